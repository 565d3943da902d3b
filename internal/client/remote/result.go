package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches retryable failures: timeouts, connectivity loss,
	// malformed responses, server-side outages.
	ErrTransport = errors.New("transport error")

	// ErrBusiness matches rejections of the payload by the remote.
	ErrBusiness = errors.New("business error")
)

// Kind tags the variant held by a Result.
type Kind int

const (
	KindSuccess Kind = iota
	KindBusiness
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindBusiness:
		return "business"
	case KindTransport:
		return "transport"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of a remote call.
type Result[T any] struct {
	kind    Kind
	value   T
	message string
	cause   error
}

// Success wraps a payload.
func Success[T any](v T) Result[T] {
	return Result[T]{kind: KindSuccess, value: v}
}

// BusinessError reports that the remote rejected the call.
func BusinessError[T any](message string) Result[T] {
	return Result[T]{kind: KindBusiness, message: message}
}

// TransportError reports that the call did not complete.
func TransportError[T any](cause error) Result[T] {
	return Result[T]{kind: KindTransport, cause: cause}
}

func unauthorized[T any](message string) Result[T] {
	return Result[T]{kind: KindBusiness, message: message, cause: errUnauthorized}
}

// Kind returns the variant.
func (r Result[T]) Kind() Kind { return r.kind }

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool { return r.kind == KindSuccess }

// Value returns the payload; it is the zero value unless OK.
func (r Result[T]) Value() T { return r.value }

// Err returns nil on success and a *Error otherwise.
func (r Result[T]) Err() error {
	if r.kind == KindSuccess {
		return nil
	}
	return &Error{Kind: r.kind, Message: r.message, Cause: r.cause}
}

// Get unpacks the result into the usual value/error pair.
func (r Result[T]) Get() (T, error) {
	return r.value, r.Err()
}

// Then carries a failure over to another payload type, or maps the payload.
func Then[A, B any](r Result[A], f func(A) B) Result[B] {
	if r.kind == KindSuccess {
		return Success(f(r.value))
	}
	return Result[B]{kind: r.kind, message: r.message, cause: r.cause}
}

// Error is the error form of a failed Result.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Cause)
	case e.Message != "":
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Cause)
	default:
		return fmt.Sprintf("%s error", e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrBusiness:
		return e.Kind == KindBusiness
	}
	return false
}

// IsRetryable reports whether err is a transport failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransport)
}
