package feature

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Fingerprint identifies a waveform analysed with a given parameter set.
type Fingerprint string

// NewFingerprint hashes the parameter identifier, the sample rate and the
// exact bit pattern of every sample.
func NewFingerprint(paramsID string, w Waveform) Fingerprint {
	h := sha256.New()

	var hdr [16]byte
	binary.LittleEndian.PutUint64(hdr[:8], uint64(len(paramsID)))
	binary.LittleEndian.PutUint64(hdr[8:], uint64(w.SampleRate))
	h.Write(hdr[:8])
	h.Write([]byte(paramsID))
	h.Write(hdr[8:])

	var buf [8 * 512]byte
	for off := 0; off < len(w.Samples); off += 512 {
		end := off + 512
		if end > len(w.Samples) {
			end = len(w.Samples)
		}
		n := 0
		for _, v := range w.Samples[off:end] {
			binary.LittleEndian.PutUint64(buf[n:], math.Float64bits(v))
			n += 8
		}
		h.Write(buf[:n])
	}

	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// String implements fmt.Stringer.
func (f Fingerprint) String() string { return string(f) }

// Valid reports whether f looks like a fingerprint produced by
// NewFingerprint.
func (f Fingerprint) Valid() bool {
	if len(f) != 2*sha256.Size {
		return false
	}
	_, err := hex.DecodeString(string(f))
	return err == nil
}
