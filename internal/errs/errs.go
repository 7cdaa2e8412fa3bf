// Package errs defines the engine's error taxonomy: a closed set of kinds
// rather than a growing hierarchy of error types, so every layer of the
// engine can classify a failure without type-asserting on its origin.
package errs

import "fmt"

// Kind is one of the taxonomy values every engine-surfaced error carries.
type Kind string

const (
	Validation           Kind = "VALIDATION"
	NotFound             Kind = "NOT_FOUND"
	WalletBusy           Kind = "WALLET_BUSY"
	InsufficientFunds    Kind = "INSUFFICIENT_FUNDS"
	UnsupportedPoolType  Kind = "UNSUPPORTED_POOL_TYPE"
	OracleUnreliable     Kind = "ORACLE_UNRELIABLE"
	SlippageExceeded     Kind = "SLIPPAGE_EXCEEDED"
	SlippageExhausted    Kind = "SLIPPAGE_EXHAUSTED"
	PoolPaused           Kind = "POOL_PAUSED"
	VenueUnavailable     Kind = "VENUE_UNAVAILABLE"
	RPCUnavailable       Kind = "RPC_UNAVAILABLE"
	BundleDropped        Kind = "BUNDLE_DROPPED"
	BundleTimeout        Kind = "BUNDLE_TIMEOUT"
	SignRefused          Kind = "SIGN_REFUSED"
	Internal             Kind = "INTERNAL"
)

// Error is the engine's single error shape: a kind, a short human message,
// an optional structured hint, and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Hint    any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a bare Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around an existing cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithHint attaches a structured hint (e.g. the last-tried slippage bps) and
// returns the same error for chaining.
func (e *Error) WithHint(hint any) *Error {
	e.Hint = hint
	return e
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, defaulting
// to Internal for anything else so callers always have a classification.
func KindOf(err error) Kind {
	var e *Error
	if AsError(err, &e) {
		return e.Kind
	}
	return Internal
}

// AsError is a thin errors.As wrapper kept local so callers don't need to
// import both errs and errors just to unwrap a Kind.
func AsError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Retryable reports whether a kind is one the driver/composer absorbs
// internally rather than surfacing to the caller (spec §7 propagation
// rules).
func Retryable(k Kind) bool {
	switch k {
	case VenueUnavailable, RPCUnavailable, BundleDropped, BundleTimeout, SlippageExceeded:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a kind to the HTTP status the API layer should respond
// with.
func HTTPStatus(k Kind) int {
	switch k {
	case NotFound:
		return 404
	case WalletBusy:
		return 409
	case Validation, InsufficientFunds, UnsupportedPoolType,
		OracleUnreliable, SlippageExhausted, PoolPaused, SignRefused:
		return 400
	case VenueUnavailable, RPCUnavailable, BundleDropped, BundleTimeout:
		return 503
	default:
		return 502
	}
}
