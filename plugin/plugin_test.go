package plugin

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/cwbudde/algo-axis/axiserr"
	"github.com/cwbudde/algo-axis/feature"
)

func named(name string) func() Metadata {
	return func() Metadata { return Metadata{Name: name, Version: "1"} }
}

func testMapped() *feature.Mapped {
	m := feature.NewMapped(16000, 80, 800, 11)
	for j := range m.Pitch {
		m.Pitch[j] = 220
		m.Voiced[j] = true
	}
	return m
}

func TestRegistryAdd(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Add(&Table{Metadata: named("a")}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	full := Metadata{Name: "b", Version: "0.2.0", Author: "Jane Doe", Description: "breath noise"}
	if err := r.Add(&Table{Metadata: func() Metadata { return full }}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	for _, tc := range []struct {
		name  string
		table *Table
		want  error
	}{
		{name: "nil", table: nil, want: errNilTable},
		{name: "no metadata", table: &Table{}, want: errNoMetadata},
		{name: "no name", table: &Table{Metadata: named("")}, want: errNoName},
		{name: "duplicate", table: &Table{Metadata: named("a")}, want: errDuplicate},
		{name: "panicking metadata", table: &Table{Metadata: func() Metadata { panic("boom") }}},
	} {
		err := r.Add(tc.table)
		if !errors.Is(err, axiserr.ErrPlugin) {
			t.Fatalf("%s: Add() error = %v, want plugin error", tc.name, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: Add() error = %v, want %v", tc.name, err, tc.want)
		}
	}

	got := r.List()
	if len(got) != 2 || got[0].Name != "a" || got[1] != full || r.Len() != 2 {
		t.Fatalf("List() = %+v", got)
	}
}

func TestLoadPathsSkipsBrokenFiles(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	warnings := r.LoadPaths([]string{"/nonexistent/axis-plugin.so", t.TempDir() + "/missing.so"})
	if len(warnings) != 2 {
		t.Fatalf("LoadPaths() warnings = %v, want 2", warnings)
	}
	for _, w := range warnings {
		if !errors.Is(w, axiserr.ErrPlugin) || axiserr.Fatal(w) {
			t.Fatalf("warning %v must be a non-fatal plugin error", w)
		}
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}
}

func TestTableFromSymbol(t *testing.T) {
	t.Parallel()

	tbl := &Table{Metadata: named("sym")}
	ctor := func() *Table { return tbl }

	for _, sym := range []any{tbl, &tbl, ctor, &ctor} {
		got, err := tableFromSymbol(sym)
		if err != nil || got != tbl {
			t.Fatalf("tableFromSymbol(%T) = %v, %v", sym, got, err)
		}
	}
	if _, err := tableFromSymbol(42); !errors.Is(err, errBadSymbol) {
		t.Fatalf("tableFromSymbol(int) error = %v", err)
	}

	panicky := func() *Table { panic("init failed") }
	nilCtor := func() *Table { return nil }
	for _, sym := range []any{panicky, &panicky, nilCtor} {
		if got, err := tableFromSymbol(sym); err == nil || got != nil {
			t.Fatalf("tableFromSymbol(%T) = %v, %v, want error", sym, got, err)
		}
	}
}

func TestProcessFeaturesOrderAndIsolation(t *testing.T) {
	t.Parallel()

	var order []string
	r := NewRegistry()
	add := func(tbl *Table) {
		t.Helper()
		if err := r.Add(tbl); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	add(&Table{Metadata: named("up"), ProcessFeatures: func(m *feature.Mapped) error {
		order = append(order, "up")
		for j := range m.Pitch {
			m.Pitch[j] *= 2
		}
		return nil
	}})
	add(&Table{Metadata: named("fails"), ProcessFeatures: func(m *feature.Mapped) error {
		order = append(order, "fails")
		m.Pitch[0] = 1
		return errors.New("refused")
	}})
	add(&Table{Metadata: named("panics"), ProcessFeatures: func(m *feature.Mapped) error {
		order = append(order, "panics")
		m.Pitch[1] = 2
		panic("boom")
	}})
	add(&Table{Metadata: named("breaks"), ProcessFeatures: func(m *feature.Mapped) error {
		order = append(order, "breaks")
		m.Envelope = m.Envelope[:1]
		return nil
	}})
	add(&Table{Metadata: named("audio only")})
	add(&Table{Metadata: named("last"), ProcessFeatures: func(m *feature.Mapped) error {
		order = append(order, "last")
		m.Voiced[0] = false
		return nil
	}})

	m := testMapped()
	warnings := NewDispatcher(r).ProcessFeatures(m)

	if want := []string{"up", "fails", "panics", "breaks", "last"}; !slices.Equal(order, want) {
		t.Fatalf("call order = %v, want %v", order, want)
	}
	if len(warnings) != 3 {
		t.Fatalf("warnings = %v, want 3", warnings)
	}
	for _, w := range warnings {
		if !errors.Is(w, axiserr.ErrPlugin) {
			t.Fatalf("warning %v is not a plugin error", w)
		}
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("features invalid after dispatch: %v", err)
	}
	for j, p := range m.Pitch {
		if p != 440 {
			t.Fatalf("Pitch[%d] = %v, want 440", j, p)
		}
	}
	if m.Voiced[0] {
		t.Fatal("last plugin's change was lost")
	}
}

func TestProcessFeaturesPitchEdits(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, tbl := range []*Table{
		{Metadata: named("unvoice"), ProcessFeatures: func(m *feature.Mapped) error {
			m.Pitch[2] = 0
			return nil
		}},
		{Metadata: named("nan"), ProcessFeatures: func(m *feature.Mapped) error {
			m.Pitch[4] = math.NaN()
			m.Voiced[5] = false
			return nil
		}},
		{Metadata: named("negative"), ProcessFeatures: func(m *feature.Mapped) error {
			m.Pitch[6] = -220
			return nil
		}},
		{Metadata: named("inf envelope"), ProcessFeatures: func(m *feature.Mapped) error {
			m.Envelope[7][0] = math.Inf(1)
			return nil
		}},
	} {
		if err := r.Add(tbl); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	m := testMapped()
	warnings := NewDispatcher(r).ProcessFeatures(m)
	if len(warnings) != 3 {
		t.Fatalf("warnings = %v, want 3", warnings)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("features invalid after dispatch: %v", err)
	}

	if m.Pitch[2] != 220 || m.Voiced[2] || m.Aperiodicity[2][0] != 1 {
		t.Fatalf("frame 2 = pitch %v voiced %v ap %v, want unvoiced at 220", m.Pitch[2], m.Voiced[2], m.Aperiodicity[2])
	}
	if m.Pitch[4] != 220 || !m.Voiced[5] || m.Pitch[6] != 220 || m.Envelope[7][0] != 0 {
		t.Fatal("invalid edits were not rolled back")
	}
}

func TestProcessAudioRollsBack(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, tbl := range []*Table{
		{Metadata: named("gain"), ProcessAudio: func(x []float64, sr int) error {
			for i := range x {
				x[i] *= 0.5
			}
			return nil
		}},
		{Metadata: named("nan"), ProcessAudio: func(x []float64, sr int) error {
			x[0] = math.NaN()
			return nil
		}},
		{Metadata: named("error"), ProcessAudio: func(x []float64, sr int) error {
			x[1] = 100
			return errors.New("bad rate")
		}},
		{Metadata: named("panic"), ProcessAudio: func(x []float64, sr int) error {
			x[2] = 100
			panic(errors.New("boom"))
		}},
	} {
		if err := r.Add(tbl); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	samples := []float64{1, 1, 1, 1}
	warnings := NewDispatcher(r).ProcessAudio(samples, 16000)
	if len(warnings) != 3 {
		t.Fatalf("warnings = %v, want 3", warnings)
	}
	if want := []float64{0.5, 0.5, 0.5, 0.5}; !slices.Equal(samples, want) {
		t.Fatalf("samples = %v, want %v", samples, want)
	}
}

func TestNilRegistryDispatchesNothing(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil)
	if w := d.ProcessFeatures(testMapped()); len(w) != 0 {
		t.Fatalf("ProcessFeatures() warnings = %v", w)
	}
	if w := d.ProcessAudio([]float64{1}, 8000); len(w) != 0 {
		t.Fatalf("ProcessAudio() warnings = %v", w)
	}
}
