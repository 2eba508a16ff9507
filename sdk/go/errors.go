package jvsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// NetworkError is a transport-level failure: connection refused, DNS, reset.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout means the per-call budget elapsed before a response arrived.
type Timeout struct {
	Err error
}

func (e *Timeout) Error() string {
	return fmt.Sprintf("request timed out: %v", e.Err)
}

func (e *Timeout) Unwrap() error { return e.Err }

// AuthenticationError covers rejected credentials and expired sessions.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// ValidationError is a request the server understood but refused.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError means the target entity does not exist server-side.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ServerError is any remaining server-side failure.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string { return e.Message }

var authVocabulary = []string{"unauthorized", "token", "jwt", "credential", "session expired"}

// isAuthFailure reports whether an error should never be retried and should
// tear down the session when it reaches RestoreSession.
func isAuthFailure(status int, msg string) bool {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return true
	}
	lowered := strings.ToLower(msg)
	for _, word := range authVocabulary {
		if strings.Contains(lowered, word) {
			return true
		}
	}
	return false
}

// classifyStatus turns a non-2xx response into the typed error for its class.
func classifyStatus(status int, msg string) error {
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthenticationError{Message: msg}
	case status == http.StatusNotFound:
		return &NotFoundError{Message: msg}
	case status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return &ValidationError{Message: msg}
	default:
		return &ServerError{Status: status, Message: msg}
	}
}

// classifyTransport wraps transport failures, distinguishing deadline expiry.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Timeout{Err: err}
	}
	return &NetworkError{Err: err}
}

// IsAuthError reports whether err is an authentication failure, either typed
// or by message vocabulary.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	var ae *AuthenticationError
	if errors.As(err, &ae) {
		return true
	}
	return isAuthFailure(0, err.Error())
}

// IsNetworkError reports whether err is transport-level (including timeout),
// meaning the server state is unknown rather than rejecting.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	var te *Timeout
	return errors.As(err, &ne) || errors.As(err, &te)
}
