package services

import "errors"

// Sentinel errors surfaced by the service layer. Handlers switch on these to
// pick status codes; everything else bubbles up as an internal failure.
var (
	// ErrDuplicateEmail is returned by signup when the email is taken.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrUserNotFound is returned by login when no account matches the email.
	ErrUserNotFound = errors.New("user not found")

	// ErrIncorrectPassword is returned by login when the password is wrong.
	ErrIncorrectPassword = errors.New("incorrect password")

	// ErrSessionNotFound covers both a missing session and a session owned by
	// another user. The two cases are deliberately indistinguishable so the
	// API never confirms that a foreign session ID exists.
	ErrSessionNotFound = errors.New("chat session not found")

	// ErrInvalidInput rejects requests with missing or malformed fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyMessage rejects messages that are empty after trimming.
	ErrEmptyMessage = errors.New("message must not be empty")

	// ErrTooLong rejects messages over the configured rune limit.
	ErrTooLong = errors.New("message exceeds maximum length")
)
