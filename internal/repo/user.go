package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tripplanner/api/internal/domain"
)

// UserRepo defines the persistence operations for user accounts.
type UserRepo interface {
	// GetByID returns domain.ErrNotFound if no user with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)

	// GetByEmail looks a user up by normalized email.
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// UpsertPending creates an unverified user, or overwrites name, password
	// hash, and OTP of an existing unverified user with the same email.
	// A verified user with that email is never touched; the call then
	// returns domain.ErrNotFound.
	UpsertPending(ctx context.Context, u domain.User) (domain.User, error)

	// SetOTP stores a new passcode and expiry on the user.
	SetOTP(ctx context.Context, id uuid.UUID, otp string, expiresAt time.Time) error

	// MarkVerified flips the user to verified and clears the OTP fields.
	MarkVerified(ctx context.Context, id uuid.UUID) (domain.User, error)

	// UpdatePassword replaces the password hash and clears the OTP fields.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// pgUserRepo is the Postgres implementation of UserRepo.
type pgUserRepo struct {
	db db
}

// NewUserRepo constructs a UserRepo backed by the provided db connection.
func NewUserRepo(db db) UserRepo {
	return &pgUserRepo{db: db}
}

const userColumns = `id, name, email, password_hash, verified, otp, otp_expires_at, is_admin, created_at, updated_at`

// GetByID retrieves a user by primary key.
func (r *pgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = @id`

	u, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.GetByID: %w", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email.
func (r *pgUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = @email`

	u, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"email": email}))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.GetByEmail: %w", err)
	}
	return u, nil
}

// UpsertPending relies on the unique email index. The WHERE on the conflict
// branch keeps verified accounts out of reach of a re-registration.
func (r *pgUserRepo) UpsertPending(ctx context.Context, u domain.User) (domain.User, error) {
	const q = `
		INSERT INTO users (name, email, password_hash, verified, otp, otp_expires_at)
		VALUES (@name, @email, @password_hash, false, @otp, @otp_expires_at)
		ON CONFLICT (email) DO UPDATE
		SET name           = EXCLUDED.name,
		    password_hash  = EXCLUDED.password_hash,
		    otp            = EXCLUDED.otp,
		    otp_expires_at = EXCLUDED.otp_expires_at,
		    updated_at     = now()
		WHERE users.verified = false
		RETURNING ` + userColumns

	args := pgx.NamedArgs{
		"name":           u.Name,
		"email":          u.Email,
		"password_hash":  u.PasswordHash,
		"otp":            u.OTP,
		"otp_expires_at": u.OTPExpiresAt,
	}

	result, err := scanUser(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.UpsertPending: %w", err)
	}
	return result, nil
}

// SetOTP stores a fresh passcode.
func (r *pgUserRepo) SetOTP(ctx context.Context, id uuid.UUID, otp string, expiresAt time.Time) error {
	const q = `
		UPDATE users
		SET otp = @otp, otp_expires_at = @otp_expires_at, updated_at = now()
		WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "otp": otp, "otp_expires_at": expiresAt})
	if err != nil {
		return fmt.Errorf("repo.UserRepo.SetOTP: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.UserRepo.SetOTP: %w", domain.ErrNotFound)
	}
	return nil
}

// MarkVerified completes registration.
func (r *pgUserRepo) MarkVerified(ctx context.Context, id uuid.UUID) (domain.User, error) {
	const q = `
		UPDATE users
		SET verified = true, otp = NULL, otp_expires_at = NULL, updated_at = now()
		WHERE id = @id
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.MarkVerified: %w", err)
	}
	return u, nil
}

// UpdatePassword completes a password reset.
func (r *pgUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	const q = `
		UPDATE users
		SET password_hash = @password_hash, otp = NULL, otp_expires_at = NULL, updated_at = now()
		WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "password_hash": passwordHash})
	if err != nil {
		return fmt.Errorf("repo.UserRepo.UpdatePassword: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.UserRepo.UpdatePassword: %w", domain.ErrNotFound)
	}
	return nil
}

// scanUser maps a single row into a domain.User.
func scanUser(s scanner) (domain.User, error) {
	var (
		u         domain.User
		id        pgtype.UUID
		otp       pgtype.Text
		otpExpiry pgtype.Timestamptz
	)

	err := s.Scan(&id, &u.Name, &u.Email, &u.PasswordHash, &u.Verified,
		&otp, &otpExpiry, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}

	u.ID = uuid.UUID(id.Bytes)
	if otp.Valid {
		u.OTP = &otp.String
	}
	if otpExpiry.Valid {
		exp := otpExpiry.Time
		u.OTPExpiresAt = &exp
	}
	return u, nil
}
