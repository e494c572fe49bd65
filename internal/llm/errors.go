package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind buckets provider failures into the categories the chat surface
// distinguishes. The raw provider message is carried for logs but is never
// shown verbatim to the end user.
type ErrorKind int

const (
	// RequestFailed covers transport failures and unclassified statuses.
	RequestFailed ErrorKind = iota

	// RateLimited means the provider answered 429.
	RateLimited

	// InvalidCredential means the provider rejected the API key (401/403).
	InvalidCredential
)

func (k ErrorKind) String() string {
	switch k {
	case RateLimited:
		return "rate_limited"
	case InvalidCredential:
		return "invalid_credential"
	default:
		return "request_failed"
	}
}

// Error is a classified provider failure.
type Error struct {
	Kind     ErrorKind
	Provider string
	Status   int
	Message  string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

// statusError classifies a non-2xx provider status.
func statusError(provider string, status int, body []byte) *Error {
	kind := RequestFailed
	switch {
	case status == http.StatusTooManyRequests:
		kind = RateLimited
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = InvalidCredential
	}
	return &Error{Kind: kind, Provider: provider, Status: status, Message: string(body)}
}

// transportError wraps a failure that never produced a status.
func transportError(provider string, err error) *Error {
	return &Error{Kind: RequestFailed, Provider: provider, Message: err.Error()}
}

// KindOf extracts the classified kind from err, RequestFailed for anything
// that is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return RequestFailed
}

// IsRateLimited reports whether err is a classified 429.
func IsRateLimited(err error) bool {
	return KindOf(err) == RateLimited
}

// IsInvalidCredential reports whether err is a classified 401/403.
func IsInvalidCredential(err error) bool {
	return KindOf(err) == InvalidCredential
}
