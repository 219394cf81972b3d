package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrCorruptedState marks persisted session data that could not be decoded.
// It never reaches presentation; the session store purges and continues.
var ErrCorruptedState = errors.New("corrupted persisted session")

// ValidationError is a request the server rejected with validation detail.
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AuthError is a 401/403 response. Views react by redirecting to login.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// TransientError covers transport failures and server-side 5xx responses.
type TransientError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Message returns the text to show a user for err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var verr *ValidationError
	if errors.As(err, &verr) && verr.Message != "" {
		return verr.Message
	}
	var aerr *AuthError
	if errors.As(err, &aerr) && aerr.Message != "" {
		return aerr.Message
	}
	return fallback
}

// IsAuth reports whether err means the credential is missing or rejected.
func IsAuth(err error) bool {
	var aerr *AuthError
	return errors.As(err, &aerr)
}

// extractMessage picks the first human-readable message out of an error
// body: a raw JSON string, then non_field_errors[0], then each of keys in
// order (string or first list entry). Returns "" when nothing matches.
func extractMessage(body []byte, keys ...string) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var raw string
	if err := json.Unmarshal(body, &raw); err == nil {
		return raw
	}

	var details map[string]json.RawMessage
	if err := json.Unmarshal(body, &details); err != nil {
		// Non-JSON bodies (proxy error pages) are treated as a raw string.
		if trimmed[0] != '{' && trimmed[0] != '[' {
			return trimmed
		}
		return ""
	}

	for _, key := range append([]string{"non_field_errors"}, keys...) {
		if msg := firstString(details[key]); msg != "" {
			return msg
		}
	}
	return ""
}

func firstString(value json.RawMessage) string {
	if len(value) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(value, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

// errorFromResponse normalizes a non-2xx response into the error taxonomy.
func errorFromResponse(op string, status int, body []byte, fallback string, keys ...string) error {
	msg := extractMessage(body, keys...)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if msg == "" {
			msg = extractMessage(body, "detail")
		}
		if msg == "" {
			msg = fallback
		}
		return &AuthError{Status: status, Message: msg}
	case status >= 400 && status < 500:
		if msg == "" {
			msg = fallback
		}
		return &ValidationError{Status: status, Message: msg}
	default:
		if msg == "" {
			msg = fallback
		}
		return &TransientError{Op: op, Status: status, Message: msg}
	}
}
