package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// NewOTP returns a 6-digit numeric passcode in [100000, 999999].
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("auth.NewOTP: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// NewShareToken returns 32 hex characters of crypto randomness.
func NewShareToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth.NewShareToken: %w", err)
	}
	return hex.EncodeToString(b), nil
}
