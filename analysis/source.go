package analysis

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-axis/feature"
)

// DefaultSourcePitch is returned by SourcePitch when no frame is voiced
// (middle C).
const DefaultSourcePitch = 261.6255653005986

// SourcePitch returns the median pitch over the voiced frames of set. It is
// the base pitch the sample was recorded at, against which per-frame
// deviations are measured.
func SourcePitch(set *feature.Set, path feature.Path) float64 {
	voiced := make([]float64, 0, len(set.Frames))
	for i, f := range set.Frames {
		if i < len(path) && path[i] == feature.Voiced && f.Pitch > 0 {
			voiced = append(voiced, f.Pitch)
		}
	}
	if len(voiced) == 0 {
		return DefaultSourcePitch
	}

	sort.Float64s(voiced)
	return stat.Quantile(0.5, stat.Empirical, voiced, nil)
}
