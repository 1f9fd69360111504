package timing

import (
	"fmt"
	"log/slog"
)

// TailMode selects how a tail shorter than the remaining output is filled.
type TailMode int

const (
	// TailStretch slows the tail down to span the remainder.
	TailStretch TailMode = iota
	// TailLoop plays the tail forward and backward until the remainder is
	// filled.
	TailLoop
)

// String returns the configuration name of m.
func (m TailMode) String() string {
	if m == TailLoop {
		return "loop"
	}
	return "stretch"
}

// ParseTailMode parses "stretch" or "loop". An empty string selects
// TailStretch.
func ParseTailMode(s string) (TailMode, error) {
	switch s {
	case "", "stretch":
		return TailStretch, nil
	case "loop":
		return TailLoop, nil
	default:
		return TailStretch, fmt.Errorf("unknown tail mode %q", s)
	}
}

// Option configures a [Mapper].
type Option func(*Mapper)

// WithTailMode sets the tail fill strategy.
func WithTailMode(m TailMode) Option {
	return func(mp *Mapper) { mp.tail = m }
}

// WithLogger sets the logger used for mapping diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(mp *Mapper) {
		if l != nil {
			mp.logger = l
		}
	}
}
