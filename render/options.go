package render

import (
	"log/slog"

	"github.com/cwbudde/algo-axis/cache"
	"github.com/cwbudde/algo-axis/plugin"
)

const (
	defaultHighpassHz = 60.0
	highpassQ         = 0.707
)

// Option configures a [Renderer].
type Option func(*Renderer)

// WithStore sets the feature cache. The default store is disabled.
func WithStore(s *cache.Store) Option {
	return func(r *Renderer) {
		if s != nil {
			r.store = s
		}
	}
}

// WithDispatcher sets the plugin hooks run around synthesis.
func WithDispatcher(d *plugin.Dispatcher) Option {
	return func(r *Renderer) {
		if d != nil {
			r.plugins = d
		}
	}
}

// WithHighpassHz sets the cutoff of the zero-phase output high-pass.
// Zero disables the filter.
func WithHighpassHz(hz float64) Option {
	return func(r *Renderer) { r.highpassHz = hz }
}

// WithLogger sets the logger for stage timing and warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}
