package apiclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// ErrEmptyToken is returned when the server accepted credentials but sent
// no token back.
var ErrEmptyToken = errors.New("empty token in auth response")

// APIError is a non-2xx response from the remote API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// newAPIError builds an APIError from a failed response body. The server
// message wins over the status text.
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = strings.TrimSpace(payload.Message)
		if msg == "" {
			msg = strings.TrimSpace(payload.Error)
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = "request failed"
	}
	return &APIError{Status: status, Message: msg}
}
