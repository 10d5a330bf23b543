package zotero

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout wraps request deadlines so callers can suggest raising
	// the timeout instead of dumping transport internals.
	ErrTimeout = errors.New("request timed out")

	// ErrConnection wraps transport failures before any HTTP status was
	// received.
	ErrConnection = errors.New("connection failed")
)

// APIError is a non-2xx response from the Zotero API.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("zotero api: %s", e.Status)
	}
	return fmt.Sprintf("zotero api: %s: %s", e.Status, e.Body)
}

const maxErrorBody = 500

func newAPIError(statusCode int, status string, body []byte) *APIError {
	text := string(body)
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return &APIError{StatusCode: statusCode, Status: status, Body: text}
}
