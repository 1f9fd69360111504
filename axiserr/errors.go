package axiserr

import (
	"errors"
	"fmt"
)

// Kind is the failure class of an [Error].
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInput
	KindCache
	KindExtraction
	KindSynthesis
	KindPlugin
)

// Sentinels matched by [Error.Is] for each kind.
var (
	ErrInput      = errors.New("input error")
	ErrCache      = errors.New("cache error")
	ErrExtraction = errors.New("extraction error")
	ErrSynthesis  = errors.New("synthesis error")
	ErrPlugin     = errors.New("plugin error")
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindCache:
		return "cache"
	case KindExtraction:
		return "extraction"
	case KindSynthesis:
		return "synthesis"
	case KindPlugin:
		return "plugin"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInput:
		return ErrInput
	case KindCache:
		return ErrCache
	case KindExtraction:
		return ErrExtraction
	case KindSynthesis:
		return ErrSynthesis
	case KindPlugin:
		return ErrPlugin
	default:
		return nil
	}
}

// Error is a classified failure raised by operation Op.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// New wraps err with a kind and operation name. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string. %w verbs are
// preserved for unwrapping.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Input, Cache, Extraction, Synthesis and Plugin are shorthands for New.
func Input(op string, err error) error      { return New(KindInput, op, err) }
func Cache(op string, err error) error      { return New(KindCache, op, err) }
func Extraction(op string, err error) error { return New(KindExtraction, op, err) }
func Synthesis(op string, err error) error  { return New(KindSynthesis, op, err) }
func Plugin(op string, err error) error     { return New(KindPlugin, op, err) }

// KindOf returns the kind of the outermost classified error in err's chain,
// or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Fatal reports whether err must abort the render. Cache and plugin errors
// are recoverable; every other non-nil error, including unclassified ones,
// is fatal.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindCache, KindPlugin:
		return false
	default:
		return true
	}
}
