package httpclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/navislabs/navis/resilience"
)

// Kind classifies client errors into a closed set. Exactly one kind applies
// to any error the client returns.
type Kind int

const (
	// KindTransport indicates a connection-level failure: DNS, refused
	// connection, read/write error, or per-attempt timeout.
	KindTransport Kind = iota
	// KindHTTP indicates the server answered with status >= 400.
	KindHTTP
	// KindDecode indicates a non-error status whose body was not valid JSON.
	KindDecode
	// KindCircuitOpen indicates the circuit breaker refused admission.
	KindCircuitOpen
	// KindCancelled indicates the caller's context cancelled the call.
	KindCancelled
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTP:
		return "http"
	case KindDecode:
		return "decode"
	case KindCircuitOpen:
		return "circuit_open"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is the structured client error.
type Error struct {
	// Kind classifies the error.
	Kind Kind
	// StatusCode is the HTTP status code (0 for pre-response failures).
	StatusCode int
	// Headers are the response headers, when a response was received.
	Headers map[string]string
	// Body is the undecoded response body, when a response was received.
	Body []byte
	// Breaker is the breaker snapshot at rejection time (KindCircuitOpen).
	Breaker *resilience.Snapshot
	// Message describes the error.
	Message string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus implements resilience.StatusCoder.
func (e *Error) HTTPStatus() int {
	return e.StatusCode
}

// NewTransportError creates a transport-level error.
func NewTransportError(err error) *Error {
	return &Error{
		Kind:    KindTransport,
		Message: err.Error(),
		Err:     err,
	}
}

// NewHTTPError creates an error for a >= 400 response.
func NewHTTPError(statusCode int, headers map[string]string, body []byte) *Error {
	return &Error{
		Kind:       KindHTTP,
		StatusCode: statusCode,
		Headers:    headers,
		Body:       body,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
	}
}

// NewDecodeError creates an error for a success response with an undecodable
// body.
func NewDecodeError(statusCode int, headers map[string]string, body []byte, cause error) *Error {
	return &Error{
		Kind:       KindDecode,
		StatusCode: statusCode,
		Headers:    headers,
		Body:       body,
		Message:    "response body is not valid JSON",
		Err:        cause,
	}
}

// NewCircuitOpenError creates an admission-refused error carrying the
// breaker state at rejection time.
func NewCircuitOpenError(snap resilience.Snapshot) *Error {
	return &Error{
		Kind:    KindCircuitOpen,
		Breaker: &snap,
		Message: "circuit breaker is " + snap.State.String(),
	}
}

// NewCancelledError creates an error for a caller-cancelled call.
func NewCancelledError(err error) *Error {
	return &Error{
		Kind:    KindCancelled,
		Message: err.Error(),
		Err:     err,
	}
}

// DefaultRetryIf is the client retry gate: transport errors are retryable,
// HTTP errors only for 429 and 5xx, everything else is terminal.
func DefaultRetryIf(err error, attempt int) bool {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindTransport:
			return true
		case KindHTTP:
			return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
		default:
			return false
		}
	}
	return resilience.DefaultRetryIf(err, attempt)
}

// IsTransport checks if an error is a transport error.
func IsTransport(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindTransport
}

// IsHTTP checks if an error is an HTTP status error.
func IsHTTP(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindHTTP
}

// IsDecode checks if an error is a decode error.
func IsDecode(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindDecode
}

// IsCircuitOpen checks if an error is a breaker rejection.
func IsCircuitOpen(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindCircuitOpen
}

// IsCancelled checks if an error is a cancellation.
func IsCancelled(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindCancelled
}

// StatusCode extracts the HTTP status from a client error, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
