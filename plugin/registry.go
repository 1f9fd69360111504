package plugin

import (
	"fmt"
	"log/slog"
	goplugin "plugin"

	"github.com/cwbudde/algo-axis/axiserr"
)

// SymbolName is the symbol looked up in plugin files.
const SymbolName = "AxisPlugin"

const (
	opAdd  = "plugin.add"
	opLoad = "plugin.load"
)

// Option configures a [Registry] or [Dispatcher].
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for load and hook failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

type entry struct {
	meta  Metadata
	table *Table
}

// Registry is the ordered set of plugins for one render. It is not safe for
// concurrent mutation.
type Registry struct {
	entries []entry
	logger  *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	o := buildOptions(opts)
	return &Registry{logger: o.logger}
}

// Add appends t. Plugin names must be unique.
func (r *Registry) Add(t *Table) error {
	md, err := t.metadata()
	if err != nil {
		return axiserr.Plugin(opAdd, err)
	}
	for _, e := range r.entries {
		if e.meta.Name == md.Name {
			return axiserr.Plugin(opAdd, fmt.Errorf("%w: %s", errDuplicate, md.Name))
		}
	}

	r.entries = append(r.entries, entry{meta: md, table: t})
	r.logger.Debug("plugin registered", "name", md.Name, "version", md.Version)
	return nil
}

// LoadPaths opens each Go plugin file in order and registers its
// AxisPlugin table. Files that fail to load are skipped; their errors are
// returned as warnings.
func (r *Registry) LoadPaths(paths []string) []error {
	var warnings []error
	for _, path := range paths {
		t, err := open(path)
		if err == nil {
			err = r.Add(t)
		}
		if err != nil {
			err = axiserr.Plugin(opLoad, fmt.Errorf("%s: %w", path, err))
			r.logger.Warn("skipping plugin", "path", path, "error", err)
			warnings = append(warnings, err)
		}
	}
	return warnings
}

func open(path string) (*Table, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}
	sym, err := p.Lookup(SymbolName)
	if err != nil {
		return nil, err
	}
	return tableFromSymbol(sym)
}

// tableFromSymbol accepts an exported *Table variable (which Lookup
// returns as **Table), a *Table, or a constructor function.
func tableFromSymbol(sym goplugin.Symbol) (*Table, error) {
	switch v := sym.(type) {
	case *Table:
		return v, nil
	case **Table:
		if v == nil {
			return nil, errNilTable
		}
		return *v, nil
	case func() *Table:
		return construct(v)
	case *func() *Table:
		if v == nil || *v == nil {
			return nil, errNilTable
		}
		return construct(*v)
	default:
		return nil, fmt.Errorf("%w: %T", errBadSymbol, sym)
	}
}

// construct runs a plugin's table constructor, turning a panic into an
// error.
func construct(fn func() *Table) (*Table, error) {
	var t *Table
	if err := call(func() error { t = fn(); return nil }); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errNilTable
	}
	return t, nil
}

// List returns the metadata of every registered plugin in call order.
func (r *Registry) List() []Metadata {
	out := make([]Metadata, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.meta
	}
	return out
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int { return len(r.entries) }
