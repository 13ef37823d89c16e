// ABOUTME: Error taxonomy for session resolution and backend calls
// ABOUTME: Credential, auth and network errors distinguishable with errors.Is / errors.As

package services

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrNoCredential means the session holds neither a bearer token nor a cookie session.
	// It is never shown to users; it simply means "not logged in".
	ErrNoCredential = errors.New("no credential")

	// ErrBearerInProduction is returned when a bearer token is stored in production mode.
	ErrBearerInProduction = errors.New("bearer tokens are not used in production mode")

	// ErrSessionNotFound is returned by registries for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("session not found")
)

// genericLoginMessage is shown when the backend gives no usable message.
const genericLoginMessage = "Login failed"

// AuthError is a rejected login or identity resolution. Message is safe to show to users.
type AuthError struct {
	Message string
	Status  int
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NetworkError is a transport failure talking to the backend.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}
