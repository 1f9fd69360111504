package plugin

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/cwbudde/algo-axis/axiserr"
	"github.com/cwbudde/algo-axis/dsp/core"
	"github.com/cwbudde/algo-axis/feature"
)

const (
	opFeatures = "plugin.process_features"
	opAudio    = "plugin.process_audio"
)

// Dispatcher invokes the hooks of a registry.
type Dispatcher struct {
	reg    *Registry
	logger *slog.Logger
}

// NewDispatcher returns a dispatcher over reg. A nil registry dispatches to
// nothing.
func NewDispatcher(reg *Registry, opts ...Option) *Dispatcher {
	o := buildOptions(opts)
	if reg == nil {
		reg = NewRegistry(opts...)
	}
	return &Dispatcher{reg: reg, logger: o.logger}
}

// ProcessFeatures runs every ProcessFeatures hook on m. A hook may set a
// frame's pitch to zero to make it unvoiced. A hook whose call fails,
// panics or leaves m invalid (inconsistent lengths, non-finite values or a
// negative pitch) is rolled back. The returned warnings are plugin errors;
// they never abort the render.
func (d *Dispatcher) ProcessFeatures(m *feature.Mapped) []error {
	var warnings []error
	for _, e := range d.reg.entries {
		if e.table.ProcessFeatures == nil {
			continue
		}

		snapshot := m.Clone()
		err := call(func() error { return e.table.ProcessFeatures(m) })
		if err == nil {
			if n := m.UnvoiceZeroPitch(snapshot.Pitch); n > 0 {
				d.logger.Debug("plugin unvoiced frames", "plugin", e.meta.Name, "frames", n)
			}
			if verr := m.Validate(); verr != nil {
				err = fmt.Errorf("%w: %w", errInvalidData, verr)
			}
		}
		if err != nil {
			*m = *snapshot
			warnings = append(warnings, d.warn(opFeatures, e.meta, err))
		}
	}
	return warnings
}

// ProcessAudio runs every ProcessAudio hook on samples. A hook whose call
// fails, panics or writes non-finite samples is rolled back.
func (d *Dispatcher) ProcessAudio(samples []float64, sampleRate int) []error {
	var warnings []error
	for _, e := range d.reg.entries {
		if e.table.ProcessAudio == nil {
			continue
		}

		snapshot := slices.Clone(samples)
		err := call(func() error { return e.table.ProcessAudio(samples, sampleRate) })
		if err == nil && !core.AllFinite(samples) {
			err = fmt.Errorf("%w: non-finite samples", errInvalidData)
		}
		if err != nil {
			copy(samples, snapshot)
			warnings = append(warnings, d.warn(opAudio, e.meta, err))
		}
	}
	return warnings
}

func (d *Dispatcher) warn(op string, md Metadata, err error) error {
	werr := axiserr.Plugin(op, fmt.Errorf("%s: %w", md.Name, err))
	d.logger.Warn("plugin hook failed; changes discarded", "plugin", md.Name, "hook", op, "error", err)
	return werr
}

// call runs fn and converts a panic into an error.
func call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return fn()
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
