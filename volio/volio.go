// Package volio reads and writes volumes in the binary .pvol format.
//
// A .pvol file is a fixed little endian header followed by the volume
// samples as float32, x varying fastest, optionally compressed with zstd.
// The header carries an xxhash64 checksum of the uncompressed samples.
package volio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/chewxy/math32"
	"github.com/klauspost/compress/zstd"
	"github.com/soypat/pointvol"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	magic   = "PVOL"
	version = 1
)

// Codec identifies how the sample payload is stored.
type Codec uint8

const (
	CodecRaw Codec = iota
	CodecZstd
)

func (c Codec) String() string {
	switch c {
	case CodecRaw:
		return "raw"
	case CodecZstd:
		return "zstd"
	}
	return fmt.Sprintf("Codec(%d)", uint8(c))
}

var (
	ErrBadMagic  = errors.New("not a pvol file")
	ErrVersion   = errors.New("unsupported pvol version")
	ErrChecksum  = errors.New("pvol checksum mismatch")
	ErrTruncated = errors.New("pvol file truncated")
	ErrCodec     = errors.New("unknown pvol codec")
	// ErrRange is returned when a finite sample does not fit in a float32.
	ErrRange = errors.New("sample out of float32 range")
)

// zstdBound is the largest compressed size accepted for n payload bytes.
// It covers zstd's worst case expansion of incompressible input.
func zstdBound(n uint64) uint64 {
	return n + n/128 + 1<<10
}

type header struct {
	Magic    [4]byte
	Version  uint8
	Codec    Codec
	_        [2]byte
	Dims     [3]uint32
	Bounds   [6]float64
	Length   uint64 // stored payload length in bytes
	Checksum uint64 // xxhash64 of uncompressed payload
}

// Options configure Write.
type Options struct {
	Compress bool
}

// Write encodes vol to w.
func Write(w io.Writer, vol *pointvol.Volume, opts Options) error {
	if vol == nil {
		panic("nil volume")
	}
	payload := make([]byte, 4*vol.Len())
	for i, v := range vol.Data() {
		f := float32(v)
		if math32.IsInf(f, 0) && !math.IsInf(v, 0) {
			return fmt.Errorf("sample %d = %g: %w", i, v, ErrRange)
		}
		binary.LittleEndian.PutUint32(payload[4*i:], math.Float32bits(f))
	}
	dims := vol.Dims()
	bb := vol.Bounds()
	hdr := header{
		Version:  version,
		Codec:    CodecRaw,
		Dims:     [3]uint32{uint32(dims[0]), uint32(dims[1]), uint32(dims[2])},
		Bounds:   [6]float64{bb.Min.X, bb.Min.Y, bb.Min.Z, bb.Max.X, bb.Max.Y, bb.Max.Z},
		Checksum: xxhash.Sum64(payload),
	}
	copy(hdr.Magic[:], magic)
	if opts.Compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		payload = enc.EncodeAll(payload, nil)
		enc.Close()
		hdr.Codec = CodecZstd
	}
	hdr.Length = uint64(len(payload))
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// Read decodes a volume from r.
func Read(r io.Reader) (*pointvol.Volume, error) {
	var hdr header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	if string(hdr.Magic[:]) != magic {
		return nil, ErrBadMagic
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("version %d: %w", hdr.Version, ErrVersion)
	}
	dims := pointvol.V3i{int(hdr.Dims[0]), int(hdr.Dims[1]), int(hdr.Dims[2])}
	n, err := pointvol.CheckDims(dims)
	if err != nil {
		return nil, err
	}
	want := 4 * uint64(n)
	switch hdr.Codec {
	case CodecRaw:
		if hdr.Length != want {
			return nil, fmt.Errorf("raw payload length %d, want %d: %w", hdr.Length, want, ErrTruncated)
		}
	case CodecZstd:
		if hdr.Length > zstdBound(want) {
			return nil, fmt.Errorf("zstd payload length %d exceeds %d: %w", hdr.Length, zstdBound(want), ErrTruncated)
		}
	default:
		return nil, fmt.Errorf("codec %d: %w", hdr.Codec, ErrCodec)
	}
	// Length is untrusted, the buffer grows only as bytes arrive.
	var stored bytes.Buffer
	if _, err := io.CopyN(&stored, r, int64(hdr.Length)); err != nil {
		return nil, ErrTruncated
	}
	payload := stored.Bytes()
	if hdr.Codec == CodecZstd {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(want))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		payload, err = dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing samples: %w", err)
		}
	}
	if uint64(len(payload)) != want {
		return nil, fmt.Errorf("got %d sample bytes, want %d: %w", len(payload), want, ErrTruncated)
	}
	if xxhash.Sum64(payload) != hdr.Checksum {
		return nil, ErrChecksum
	}
	b := hdr.Bounds
	bb := r3.Box{
		Min: r3.Vec{X: b[0], Y: b[1], Z: b[2]},
		Max: r3.Vec{X: b[3], Y: b[4], Z: b[5]},
	}
	vol, err := pointvol.NewVolume(bb, dims)
	if err != nil {
		return nil, err
	}
	data := vol.Data()
	for i := range data {
		data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[4*i:])))
	}
	return vol, nil
}

// Save writes vol to a file at path.
func Save(path string, vol *pointvol.Volume, opts Options) error {
	var buf bytes.Buffer
	if err := Write(&buf, vol, opts); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Load reads a volume from the file at path.
func Load(path string) (*pointvol.Volume, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	vol, err := Read(fp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vol, nil
}
