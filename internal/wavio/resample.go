package wavio

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/cwbudde/algo-axis/feature"
)

// Resample converts w to rate. The result has exactly
// round(len*rate/w.SampleRate) samples; the converter's tail is flushed by
// feeding trailing silence.
func Resample(w feature.Waveform, rate int) (feature.Waveform, error) {
	if rate <= 0 || w.SampleRate <= 0 {
		return feature.Waveform{}, fmt.Errorf("resample: invalid rates %d -> %d", w.SampleRate, rate)
	}
	if rate == w.SampleRate || len(w.Samples) == 0 {
		return feature.Waveform{Samples: append([]float64(nil), w.Samples...), SampleRate: rate}, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(w.SampleRate),
		OutputRate: float64(rate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return feature.Waveform{}, fmt.Errorf("failed to create resampler: %w", err)
	}

	want := int(math.Round(float64(len(w.Samples)) * float64(rate) / float64(w.SampleRate)))

	// 100 ms of silence is longer than the converter's filter delay.
	in := make([]float64, len(w.Samples)+w.SampleRate/10)
	copy(in, w.Samples)

	out, err := r.Process(in)
	if err != nil {
		return feature.Waveform{}, fmt.Errorf("resample error: %w", err)
	}

	res := make([]float64, want)
	copy(res, out)

	return feature.Waveform{Samples: res, SampleRate: rate}, nil
}
