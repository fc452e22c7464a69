package shipper

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a carrier adapter failure.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindTimeout   ErrorKind = "timeout"
	KindParse     ErrorKind = "parse"

	// KindUnsupported marks a shipment the carrier does not serve, such as
	// an origin outside its network. The carrier is skipped, never called.
	KindUnsupported ErrorKind = "unsupported"
)

// AdapterError represents a failure of one carrier adapter. It never aborts
// the aggregation; the manager records it on the shipment.
type AdapterError struct {
	Carrier    string
	Kind       ErrorKind
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s error: %s: %v", e.Carrier, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s error: %s", e.Carrier, e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AdapterError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for AdapterError by comparing kinds.
func (e *AdapterError) Is(target error) bool {
	t, ok := target.(*AdapterError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewAdapterError creates a new AdapterError.
func NewAdapterError(carrier string, kind ErrorKind, message string) *AdapterError {
	return &AdapterError{
		Carrier: carrier,
		Kind:    kind,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *AdapterError) WithCause(err error) *AdapterError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *AdapterError) WithStatusCode(code int) *AdapterError {
	e.StatusCode = code
	return e
}

// NewTransportError wraps a failed carrier round trip, classifying deadline
// and network timeouts as KindTimeout.
func NewTransportError(carrier string, err error) *AdapterError {
	if isTimeout(err) {
		return NewAdapterError(carrier, KindTimeout, "request timed out").WithCause(err)
	}
	return NewAdapterError(carrier, KindTransport, "request failed").WithCause(err)
}

// NewParseError wraps a carrier response that could not be decoded.
func NewParseError(carrier string, err error) *AdapterError {
	return NewAdapterError(carrier, KindParse, "invalid response").WithCause(err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Sentinel errors.
var (
	// ErrInvalidInput indicates the request was rejected before any carrier
	// was contacted.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoPackages indicates GetRates was called without packages.
	ErrNoPackages = fmt.Errorf("%w: at least one package is required", ErrInvalidInput)

	// ErrInvalidAddress indicates the address is invalid or incomplete.
	ErrInvalidAddress = fmt.Errorf("%w: invalid address", ErrInvalidInput)

	// ErrInvalidPackage indicates package dimensions or weight are invalid.
	ErrInvalidPackage = fmt.Errorf("%w: invalid package", ErrInvalidInput)

	// ErrCarrierNotFound indicates the requested carrier is not registered.
	ErrCarrierNotFound = errors.New("carrier not found")

	// ErrTransport matches any AdapterError of kind KindTransport.
	ErrTransport = &AdapterError{Kind: KindTransport, Message: "transport failure"}

	// ErrTimeout matches any AdapterError of kind KindTimeout.
	ErrTimeout = &AdapterError{Kind: KindTimeout, Message: "timed out"}

	// ErrParse matches any AdapterError of kind KindParse.
	ErrParse = &AdapterError{Kind: KindParse, Message: "unparseable response"}

	// ErrUnsupported matches any AdapterError of kind KindUnsupported.
	ErrUnsupported = &AdapterError{Kind: KindUnsupported, Message: "shipment not supported"}
)

// IsRetryable returns true if the error is a transport failure or timeout.
func IsRetryable(err error) bool {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Kind == KindTransport || adapterErr.Kind == KindTimeout
	}
	return false
}

// ErrorKindOf returns the kind of an AdapterError in err's chain, or "unknown".
func ErrorKindOf(err error) string {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return string(adapterErr.Kind)
	}
	return "unknown"
}
