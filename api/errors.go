package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Error is the decoded form of any non-2xx API response. Loose server
// payloads (string detail, detail lists, per-field objects, bare message
// fields) are normalized here, once, so callers never sniff response bodies.
type Error struct {
	// Status is the HTTP status code of the response.
	Status int
	// Detail is a single human-readable message.
	Detail string
	// Fields maps a field name to its validation message when the server
	// returned structured field errors, nil otherwise.
	Fields map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "api: <nil>"
	}
	if e.Detail != "" {
		return fmt.Sprintf("api: %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("api: %d: %s", e.Status, http.StatusText(e.Status))
}

// IsUnauthorized reports whether the response was a 401.
func (e *Error) IsUnauthorized() bool {
	return e != nil && e.Status == http.StatusUnauthorized
}

// IsForbidden reports whether the response was a 403.
func (e *Error) IsForbidden() bool {
	return e != nil && e.Status == http.StatusForbidden
}

// IsNotFound reports whether the response was a 404.
func (e *Error) IsNotFound() bool {
	return e != nil && e.Status == http.StatusNotFound
}

// IsServerError reports whether the response status was 500 or above.
func (e *Error) IsServerError() bool {
	return e != nil && e.Status >= http.StatusInternalServerError
}

// decodeError builds an *Error from a response body. The platform emits
// either {"detail": ...} or {"message": ...}; detail may be a string, a list
// of strings, or an object of field→message pairs.
func decodeError(status int, body []byte) *Error {
	apiErr := &Error{Status: status}

	if len(body) == 0 {
		return apiErr
	}

	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		apiErr.Detail = strings.TrimSpace(string(body))
		return apiErr
	}

	raw := envelope.Detail
	if len(raw) == 0 {
		raw = envelope.Message
	}
	if len(raw) == 0 {
		apiErr.Detail = strings.TrimSpace(string(body))
		return apiErr
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		apiErr.Detail = s
		return apiErr
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		apiErr.Detail = strings.Join(list, ", ")
		return apiErr
	}

	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err == nil && len(fields) > 0 {
		apiErr.Fields = fields
		parts := make([]string, 0, len(fields))
		for name, msg := range fields {
			parts = append(parts, name+": "+msg)
		}
		apiErr.Detail = strings.Join(parts, "; ")
		return apiErr
	}

	apiErr.Detail = strings.TrimSpace(string(raw))
	return apiErr
}
