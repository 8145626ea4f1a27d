package auth

import (
	"errors"

	"github.com/blockedby/finlog/internal/apiclient"
)

var (
	// ErrAuthInProgress is returned when a different operation is already
	// in flight.
	ErrAuthInProgress = errors.New("another auth operation is in progress")

	// ErrAlreadyAuthenticated is returned by sign-in operations while a
	// session is active.
	ErrAlreadyAuthenticated = errors.New("already authenticated")

	// ErrStaleResponse is returned when a response arrived after the session
	// it belonged to was logged out.
	ErrStaleResponse = errors.New("response discarded after logout")

	// ErrInvalidInput is returned for submissions missing required fields.
	ErrInvalidInput = errors.New("invalid input")
)

// genericFailure is shown when an error carries no usable message.
const genericFailure = "Authentication failed. Please try again."

// errorMessage turns any failure into the text shown to the user.
func errorMessage(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err == nil || err.Error() == "" {
		return genericFailure
	}
	return err.Error()
}
