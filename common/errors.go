package common

import (
	"errors"
	"fmt"
)

// Engine-wide sentinel errors. Callers match them with errors.Is.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrDanglingReference = errors.New("dangling reference")
	ErrBackend           = errors.New("backend error")
	ErrNotFound          = errors.New("resource not found")
	ErrDestroyed         = errors.New("used after destroy")
)

// ErrorKind classifies how a caller is expected to react to an error.
type ErrorKind int

const (
	// KindFatal marks programmer or configuration errors. They are never retried.
	KindFatal ErrorKind = iota
	// KindRetryable marks resource creation failures. Nothing is cached for them, so repeating the request retries.
	KindRetryable
	// KindSkippable marks a failure limited to one unit of work, such as a single draw, that can be skipped.
	KindSkippable
)

func (k ErrorKind) String() string {
	switch k {
	case KindFatal:
		return "fatal"
	case KindRetryable:
		return "retryable"
	case KindSkippable:
		return "skippable"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error carries the kind of failure, the operation that produced it and the underlying cause.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ConfigurationError reports a call-ordering or setup error in the calling code.
func ConfigurationError(op, format string, args ...any) error {
	return &Error{Kind: KindFatal, Op: op, Err: fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))}
}

// ArgumentError reports a nil or out-of-range parameter, or a duplicate registration.
func ArgumentError(op, format string, args ...any) error {
	return &Error{Kind: KindFatal, Op: op, Err: fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))}
}

// DanglingReferenceError reports a reference to an entry that was never registered.
func DanglingReferenceError(op, format string, args ...any) error {
	return &Error{Kind: KindFatal, Op: op, Err: fmt.Errorf("%w: %s", ErrDanglingReference, fmt.Sprintf(format, args...))}
}

// DestroyedError reports a call on an object after Destroy.
func DestroyedError(op string) error {
	return &Error{Kind: KindFatal, Op: op, Err: ErrDestroyed}
}

// ResourceError wraps a failure to load or create a GPU resource. The request may be repeated.
func ResourceError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBackend) || errors.Is(err, ErrNotFound) {
		return &Error{Kind: KindRetryable, Op: op, Err: err}
	}
	return &Error{Kind: KindRetryable, Op: op, Err: fmt.Errorf("%w: %w", ErrBackend, err)}
}

// SkippableError wraps a failure that only affects the current unit of work.
func SkippableError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindSkippable, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in the chain. Errors without one are treated as fatal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}

// SeverestKind returns the most severe kind among err and every error joined into it with errors.Join.
// An error without an *Error in its chain counts as fatal.
func SeverestKind(err error) ErrorKind {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return KindOf(err)
	}
	kind := KindSkippable
	for _, e := range joined.Unwrap() {
		if k := SeverestKind(e); k < kind {
			kind = k
		}
	}
	return kind
}

// IsRetryable reports whether repeating the failed request may succeed.
func IsRetryable(err error) bool {
	return err != nil && KindOf(err) == KindRetryable
}
