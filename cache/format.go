package cache

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cwbudde/algo-axis/feature"
)

const (
	magic         = "AXFC"
	formatVersion = 1
	headerSize    = 32
)

var (
	errTruncated = errors.New("entry truncated")
	errMagic     = errors.New("bad magic")
	errVersion   = errors.New("unsupported format version")
	errChecksum  = errors.New("checksum mismatch")
	errShape     = errors.New("header does not match body")
)

// header is the fixed-size prefix of every entry file.
//
//	0  magic       [4]byte
//	4  version     uint16
//	6  reserved    uint16
//	8  sampleRate  uint32
//	12 hop         uint32
//	16 frameCount  uint32
//	20 bodyLength  uint32
//	24 checksum    uint64 (xxhash64 of the body)
type header struct {
	version    uint16
	sampleRate uint32
	hop        uint32
	frames     uint32
	bodyLen    uint32
	checksum   uint64
}

func (h header) put(dst []byte) {
	copy(dst[0:4], magic)
	binary.LittleEndian.PutUint16(dst[4:], h.version)
	binary.LittleEndian.PutUint16(dst[6:], 0)
	binary.LittleEndian.PutUint32(dst[8:], h.sampleRate)
	binary.LittleEndian.PutUint32(dst[12:], h.hop)
	binary.LittleEndian.PutUint32(dst[16:], h.frames)
	binary.LittleEndian.PutUint32(dst[20:], h.bodyLen)
	binary.LittleEndian.PutUint64(dst[24:], h.checksum)
}

func parseHeader(src []byte) (header, error) {
	if len(src) < headerSize {
		return header{}, errTruncated
	}
	if string(src[0:4]) != magic {
		return header{}, errMagic
	}

	h := header{
		version:    binary.LittleEndian.Uint16(src[4:]),
		sampleRate: binary.LittleEndian.Uint32(src[8:]),
		hop:        binary.LittleEndian.Uint32(src[12:]),
		frames:     binary.LittleEndian.Uint32(src[16:]),
		bodyLen:    binary.LittleEndian.Uint32(src[20:]),
		checksum:   binary.LittleEndian.Uint64(src[24:]),
	}
	if h.version != formatVersion {
		return header{}, fmt.Errorf("%w: %d", errVersion, h.version)
	}

	return h, nil
}

type frameRecord struct {
	Pitch        float64   `msgpack:"f0"`
	Confidence   float64   `msgpack:"conf"`
	Envelope     []float64 `msgpack:"env"`
	Aperiodicity []float64 `msgpack:"ap"`
}

type record struct {
	ParamsID string        `msgpack:"params"`
	Frames   []frameRecord `msgpack:"frames"`
	Path     []uint8       `msgpack:"path"`
}

// encode serializes set and path into a complete entry file image.
func encode(set *feature.Set, path feature.Path) ([]byte, error) {
	rec := record{
		ParamsID: set.ParamsID,
		Frames:   make([]frameRecord, len(set.Frames)),
		Path:     make([]uint8, len(path)),
	}
	for i, f := range set.Frames {
		rec.Frames[i] = frameRecord{
			Pitch:        f.Pitch,
			Confidence:   f.Confidence,
			Envelope:     f.Envelope,
			Aperiodicity: f.Aperiodicity,
		}
	}
	for i, st := range path {
		rec.Path[i] = uint8(st)
	}

	body, err := msgpack.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("encode entry body: %w", err)
	}

	buf := make([]byte, headerSize+len(body))
	header{
		version:    formatVersion,
		sampleRate: uint32(set.SampleRate),
		hop:        uint32(set.Hop),
		frames:     uint32(len(set.Frames)),
		bodyLen:    uint32(len(body)),
		checksum:   xxhash.Sum64(body),
	}.put(buf)
	copy(buf[headerSize:], body)

	return buf, nil
}

// decode validates a complete entry file image and rebuilds its contents.
func decode(data []byte) (Entry, error) {
	h, err := parseHeader(data)
	if err != nil {
		return Entry{}, err
	}

	body := data[headerSize:]
	if uint64(len(body)) != uint64(h.bodyLen) {
		return Entry{}, fmt.Errorf("%w: body has %d bytes, header says %d", errTruncated, len(body), h.bodyLen)
	}
	if xxhash.Sum64(body) != h.checksum {
		return Entry{}, errChecksum
	}

	var rec record
	if err := msgpack.Unmarshal(body, &rec); err != nil {
		return Entry{}, fmt.Errorf("decode entry body: %w", err)
	}
	if uint64(len(rec.Frames)) != uint64(h.frames) || len(rec.Path) != len(rec.Frames) {
		return Entry{}, errShape
	}

	set := &feature.Set{
		SampleRate: int(h.sampleRate),
		Hop:        int(h.hop),
		ParamsID:   rec.ParamsID,
		Frames:     make([]feature.Frame, len(rec.Frames)),
	}
	for i, f := range rec.Frames {
		set.Frames[i] = feature.Frame{
			Pitch:        f.Pitch,
			Confidence:   f.Confidence,
			Envelope:     f.Envelope,
			Aperiodicity: f.Aperiodicity,
		}
	}

	path := make(feature.Path, len(rec.Path))
	for i, st := range rec.Path {
		if st > uint8(feature.Voiced) {
			return Entry{}, fmt.Errorf("%w: invalid voicing state %d", errShape, st)
		}
		path[i] = feature.State(st)
	}

	if err := set.Validate(); err != nil {
		return Entry{}, err
	}

	return Entry{Set: set, Path: path}, nil
}
