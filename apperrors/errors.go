// Package apperrors defines the failure taxonomy shared by the gateway, the
// guarded API client and the session manager. Every transport or backend
// failure is classified into exactly one Kind so that callers can branch on
// the category instead of on status codes or error strings.
package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind is the failure category of an Error.
type Kind string

const (
	KindNetwork    Kind = "network"    // no response reached the client
	KindAuth       Kind = "auth"       // credentials or token rejected (401/403)
	KindValidation Kind = "validation" // 4xx with field-level errors
	KindRateLimit  Kind = "rate_limit" // 429
	KindServer     Kind = "server"     // 5xx
	KindUnknown    Kind = "unknown"    // anything unclassified
)

// Error is a classified failure. StatusCode is zero for transport failures,
// Fields is populated only for validation errors and RetryAfter only for
// rate-limit errors.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Fields     map[string][]string
	RetryAfter time.Duration
	cause      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.cause.Error())
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New builds an Error of the given kind with a plain message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an underlying error without losing it from the chain.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: err}
}

// Network wraps a transport failure (DNS, refused connection, timeout).
func Network(err error) *Error {
	return &Error{Kind: KindNetwork, Message: "request failed", cause: err}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// KindOf reports the Kind carried anywhere in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var appErr *Error
	if As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return As(err, &appErr) && appErr.Kind == kind
}

// FieldMessages flattens validation field errors into "field: message" lines
// in a stable order, for rendering.
func (e *Error) FieldMessages() []string {
	if len(e.Fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		for _, msg := range e.Fields[name] {
			lines = append(lines, fmt.Sprintf("%s: %s", name, msg))
		}
	}
	return lines
}

// FromResponse maps a backend response onto the taxonomy. It is a pure
// mapping: no retries, no state. The body is expected to be DRF-shaped,
// either {"detail": "..."} or an object of field names to message lists,
// but any unparseable body still classifies by status code alone.
func FromResponse(status int, header http.Header, body []byte) *Error {
	detail, fields := parseErrorBody(body)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if detail == "" {
			detail = "authentication rejected"
		}
		return &Error{Kind: KindAuth, Message: detail, StatusCode: status}

	case status == http.StatusTooManyRequests:
		if detail == "" {
			detail = "too many requests"
		}
		return &Error{
			Kind:       KindRateLimit,
			Message:    detail,
			StatusCode: status,
			RetryAfter: parseRetryAfter(header.Get("Retry-After")),
		}

	case status >= 400 && status < 500 && len(fields) > 0:
		if detail == "" {
			detail = "validation failed"
		}
		return &Error{Kind: KindValidation, Message: detail, StatusCode: status, Fields: fields}

	case status >= 500:
		if detail == "" {
			detail = fmt.Sprintf("server error (%d)", status)
		}
		return &Error{Kind: KindServer, Message: detail, StatusCode: status}
	}

	if detail == "" {
		detail = fmt.Sprintf("unexpected response (%d)", status)
	}
	return &Error{Kind: KindUnknown, Message: detail, StatusCode: status}
}

// parseErrorBody extracts a human message and any field errors from a JSON
// error body. DRF emits either {"detail": "..."} or a map of field names to
// message lists; non-field errors arrive under "non_field_errors".
func parseErrorBody(body []byte) (detail string, fields map[string][]string) {
	if len(body) == 0 {
		return "", nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return compactDetail(body), nil
	}

	if d, ok := raw["detail"]; ok {
		var s string
		if json.Unmarshal(d, &s) == nil {
			detail = s
		}
		delete(raw, "detail")
	}

	for name, msg := range raw {
		var list []string
		if json.Unmarshal(msg, &list) == nil && len(list) > 0 {
			if fields == nil {
				fields = make(map[string][]string)
			}
			fields[name] = list
			continue
		}
		var single string
		if json.Unmarshal(msg, &single) == nil && single != "" {
			if fields == nil {
				fields = make(map[string][]string)
			}
			fields[name] = []string{single}
		}
	}

	if detail == "" {
		if msgs, ok := fields["non_field_errors"]; ok && len(msgs) > 0 {
			detail = msgs[0]
		}
	}
	return detail, fields
}

// compactDetail turns a non-JSON body (usually proxy HTML) into a short
// single-line detail. The cut backs off to a rune boundary so a multi-byte
// character is never split.
func compactDetail(body []byte) string {
	detail := strings.Join(strings.Fields(string(body)), " ")
	if len(detail) > 200 {
		cut := 200
		for cut > 0 && !utf8.RuneStart(detail[cut]) {
			cut--
		}
		detail = detail[:cut]
	}
	return detail
}

// parseRetryAfter handles the delay-seconds form of the Retry-After header.
// The HTTP-date form is rare on JSON APIs and falls back to zero.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
