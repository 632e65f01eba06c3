package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// trip, user, or gallery photo does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing title, end date before start date, empty upload).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrForbidden is returned when an authenticated user acts on a trip they do
// not own. Handlers should map this to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidCredentials covers every authentication failure:
// unknown email, wrong password, unverified account, bad or expired OTP.
// Handlers should map this to HTTP 401.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUpstreamStore is returned when the image store rejects or fails a call.
// Handlers should map this to HTTP 502 with a fixed message.
var ErrUpstreamStore = errors.New("image store error")

// ErrUpstreamTimeout is returned when an outbound call to the image store or
// mail server exceeds its deadline. Handlers should map this to HTTP 504.
var ErrUpstreamTimeout = errors.New("upstream timeout")

// ErrUpstreamMail is returned when the OTP email could not be handed to the
// mail server. The OTP itself stays valid so the client can ask for a resend.
var ErrUpstreamMail = errors.New("mail delivery error")

// ErrConflict is reserved for optimistic-concurrency checks on the photo list.
// Nothing returns it yet; handlers already map it to HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrUpstreamSearch is returned when the third-party image search fails.
var ErrUpstreamSearch = errors.New("image search error")
