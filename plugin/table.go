package plugin

import (
	"errors"

	"github.com/cwbudde/algo-axis/feature"
)

// Metadata describes a plugin.
type Metadata struct {
	Name        string
	Version     string
	Author      string
	Description string
}

// Table is the function table a plugin provides. Metadata is required;
// the hooks are optional.
type Table struct {
	Metadata func() Metadata
	// ProcessFeatures may edit m in place after timing mapping.
	ProcessFeatures func(m *feature.Mapped) error
	// ProcessAudio may edit samples in place after synthesis.
	ProcessAudio func(samples []float64, sampleRate int) error
}

var (
	errNilTable    = errors.New("plugin table is nil")
	errNoMetadata  = errors.New("plugin table has no Metadata function")
	errNoName      = errors.New("plugin metadata has no name")
	errDuplicate   = errors.New("plugin already registered")
	errBadSymbol   = errors.New("AxisPlugin symbol has unsupported type")
	errInvalidData = errors.New("plugin left invalid data")
)

func (t *Table) metadata() (md Metadata, err error) {
	if t == nil {
		return Metadata{}, errNilTable
	}
	if t.Metadata == nil {
		return Metadata{}, errNoMetadata
	}

	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()

	md = t.Metadata()
	if md.Name == "" {
		return Metadata{}, errNoName
	}
	return md, nil
}
