// Package wavio reads and writes the mono PCM WAV files exchanged with the
// host.
package wavio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"

	"github.com/cwbudde/algo-axis/dsp/dither"
	"github.com/cwbudde/algo-axis/feature"
)

// DefaultSampleRate is used for outputs of empty inputs.
const DefaultSampleRate = 44100

const pcmFormat = 1

// ErrUnsupported reports a WAV encoding other than 16, 24 or 32 bit PCM.
var ErrUnsupported = errors.New("unsupported wav encoding")

// Load decodes path and mixes all channels down to mono in [-1, 1]. A
// zero-length file yields an empty waveform at [DefaultSampleRate].
func Load(path string) (feature.Waveform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return feature.Waveform{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return feature.Waveform{SampleRate: DefaultSampleRate}, nil
	}

	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return feature.Waveform{}, fmt.Errorf("decode %s: not a valid wav file", path)
	}
	if d.WavAudioFormat != pcmFormat {
		return feature.Waveform{}, fmt.Errorf("decode %s: %w: format %d", path, ErrUnsupported, d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return feature.Waveform{}, fmt.Errorf("decode %s: %w", path, err)
	}

	return mixdown(buf)
}

func mixdown(buf *audio.IntBuffer) (feature.Waveform, error) {
	if buf == nil || buf.Format == nil {
		return feature.Waveform{}, fmt.Errorf("decode: missing format")
	}

	var full float64
	switch buf.SourceBitDepth {
	case 16:
		full = 1 << 15
	case 24:
		full = 1 << 23
	case 32:
		full = 1 << 31
	default:
		return feature.Waveform{}, fmt.Errorf("decode: %w: %d bit", ErrUnsupported, buf.SourceBitDepth)
	}

	ch := buf.Format.NumChannels
	if ch < 1 || buf.Format.SampleRate <= 0 {
		return feature.Waveform{}, fmt.Errorf("decode: invalid format %d ch @ %d Hz", ch, buf.Format.SampleRate)
	}

	n := len(buf.Data) / ch
	out := make([]float64, n)
	gain := 1 / (full * float64(ch))
	for i := range out {
		sum := 0
		for c := range ch {
			sum += buf.Data[i*ch+c]
		}
		out[i] = float64(sum) * gain
	}

	return feature.Waveform{Samples: out, SampleRate: buf.Format.SampleRate}, nil
}

// Option configures [Save].
type Option func(*saveConfig)

type saveConfig struct {
	dither bool
	seed   uint64
}

// WithDither enables TPDF dither on the 16-bit conversion (default on).
func WithDither(enabled bool) Option {
	return func(c *saveConfig) { c.dither = enabled }
}

// WithDitherSeed seeds the dither generator.
func WithDitherSeed(seed uint64) Option {
	return func(c *saveConfig) { c.seed = seed }
}

// Save writes w as 16-bit mono PCM. The file is written beside path under
// a temporary name and renamed into place, so a reader never sees a
// partial file and a failed write leaves nothing behind.
func Save(path string, w feature.Waveform, opts ...Option) (err error) {
	cfg := saveConfig{dither: true, seed: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	rate := w.SampleRate
	if rate <= 0 {
		if len(w.Samples) > 0 {
			return fmt.Errorf("encode %s: sample rate must be > 0: %d", path, rate)
		}
		rate = DefaultSampleRate
	}

	typ := dither.None
	if cfg.dither {
		typ = dither.Triangular
	}
	q, err := dither.NewQuantizer(dither.WithBitDepth(16), dither.WithType(typ), dither.WithSeed(cfg.seed))
	if err != nil {
		return err
	}

	pcm := make([]int, len(w.Samples))
	if err := q.ProcessInts(pcm, w.Samples); err != nil {
		return err
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	enc := wav.NewEncoder(f, rate, 16, 1, pcmFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           pcm,
		SourceBitDepth: 16,
	}
	if err = enc.Write(buf); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err = enc.Close(); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish %s: %w", path, err)
	}

	return nil
}
