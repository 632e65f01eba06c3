package handler

import (
	"net/http"

	"github.com/tripplanner/api/internal/domain"
)

// RegisterRequest is the body of POST /api/users/register/send-otp.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EmailRequest carries just an email (resend and reset requests).
type EmailRequest struct {
	Email string `json:"email"`
}

// VerifyRequest is the body of POST /api/users/register/verify-otp.
type VerifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// LoginRequest is the body of POST /api/users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetPasswordRequest is the body of POST /api/users/reset/verify-otp.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// SessionResponse is returned by verify and login.
type SessionResponse struct {
	Message string         `json:"message,omitempty"`
	Token   string         `json:"token"`
	User    domain.Profile `json:"user"`
}

// Register handles POST /api/users/register/send-otp.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var body RegisterRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.users.Register(r.Context(), body.Name, body.Email, body.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "OTP sent to email for verification"})
}

// ResendOTP handles POST /api/users/register/resend-otp.
func (s *Server) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var body EmailRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.users.ResendOTP(r.Context(), body.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "New OTP sent to your email"})
}

// VerifyOTP handles POST /api/users/register/verify-otp.
func (s *Server) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body VerifyRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	session, err := s.users.Verify(r.Context(), body.Email, body.OTP)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{
		Message: "Registration successful",
		Token:   session.Token,
		User:    session.User,
	})
}

// Login handles POST /api/users/login.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	session, err := s.users.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Token: session.Token, User: session.User})
}

// RequestPasswordReset handles POST /api/users/reset/send-otp.
func (s *Server) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var body EmailRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.users.RequestPasswordReset(r.Context(), body.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "OTP sent to email"})
}

// ResetPassword handles POST /api/users/reset/verify-otp.
func (s *Server) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var body ResetPasswordRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.users.ResetPassword(r.Context(), body.Email, body.OTP, body.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password reset successful"})
}

// GetProfile handles GET /api/protected/profile.
func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.users.Profile(r.Context(), actorFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
