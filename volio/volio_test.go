package volio

import (
	"bytes"
	"encoding/binary"
	"math"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/soypat/pointvol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func rampVolume(t testing.TB) *pointvol.Volume {
	t.Helper()
	bb := r3.Box{Min: r3.Vec{X: -1, Y: 0, Z: 2}, Max: r3.Vec{X: 1, Y: 3, Z: 4}}
	vol, err := pointvol.NewVolume(bb, pointvol.V3i{5, 4, 3})
	require.NoError(t, err)
	for i := range vol.Data() {
		vol.Data()[i] = float64(i) * 0.25
	}
	return vol
}

func TestRoundTrip(t *testing.T) {
	for _, opts := range []Options{{}, {Compress: true}} {
		vol := rampVolume(t)
		vol.Data()[3] = math.NaN()
		vol.Data()[4] = math.Inf(-1)
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, vol, opts))
		got, err := Read(&buf)
		require.NoError(t, err, "compress=%v", opts.Compress)
		assert.Equal(t, vol.Dims(), got.Dims())
		assert.Equal(t, vol.Bounds(), got.Bounds())
		if diff := cmp.Diff(vol.Data(), got.Data(), cmpopts.EquateNaNs()); diff != "" {
			t.Errorf("compress=%v data mismatch (-want +got):\n%s", opts.Compress, diff)
		}
	}
}

func TestCompressionShrinks(t *testing.T) {
	bb := r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}
	vol, err := pointvol.NewVolume(bb, pointvol.V3i{32, 32, 32})
	require.NoError(t, err)
	var raw, packed bytes.Buffer
	require.NoError(t, Write(&raw, vol, Options{}))
	require.NoError(t, Write(&packed, vol, Options{Compress: true}))
	assert.Less(t, packed.Len(), raw.Len()/10)
}

func TestReadErrors(t *testing.T) {
	var good bytes.Buffer
	require.NoError(t, Write(&good, rampVolume(t), Options{}))
	hdrSize := binary.Size(header{})

	mutate := func(f func(b []byte) []byte) []byte {
		return f(bytes.Clone(good.Bytes()))
	}
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"short header", good.Bytes()[:10], ErrTruncated},
		{"short payload", good.Bytes()[:hdrSize+7], ErrTruncated},
		{"magic", mutate(func(b []byte) []byte { b[0] = 'X'; return b }), ErrBadMagic},
		{"version", mutate(func(b []byte) []byte { b[4] = 9; return b }), ErrVersion},
		{"codec", mutate(func(b []byte) []byte { b[5] = 7; return b }), ErrCodec},
		{"checksum", mutate(func(b []byte) []byte { b[len(b)-1] ^= 0xff; return b }), ErrChecksum},
		{"dims", mutate(func(b []byte) []byte { copy(b[8:12], []byte{0, 0, 0, 0}); return b }), pointvol.ErrBadDims},
		{"dims overflow", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[8:], 1<<30)
			binary.LittleEndian.PutUint32(b[12:], 5)
			binary.LittleEndian.PutUint32(b[16:], 3435973837)
			return b
		}), pointvol.ErrBadDims},
		{"raw length", mutate(func(b []byte) []byte { binary.LittleEndian.PutUint64(b[68:], 4*60+4); return b }), ErrTruncated},
		{"zstd length", mutate(func(b []byte) []byte {
			b[5] = byte(CodecZstd)
			binary.LittleEndian.PutUint64(b[68:], 1<<32)
			return b
		}), ErrTruncated},
	}
	for _, test := range tests {
		_, err := Read(bytes.NewReader(test.data))
		assert.ErrorIs(t, err, test.want, test.name)
	}
}

func TestReadLargeLengthDoesNotAllocate(t *testing.T) {
	var good bytes.Buffer
	require.NoError(t, Write(&good, rampVolume(t), Options{}))
	hdrSize := binary.Size(header{})
	for _, c := range []Codec{CodecRaw, CodecZstd} {
		b := bytes.Clone(good.Bytes()[:hdrSize])
		b[5] = byte(c)
		// Plausible dims for a large volume and a 4 GiB payload with no bytes behind it.
		binary.LittleEndian.PutUint32(b[8:], 1024)
		binary.LittleEndian.PutUint32(b[12:], 1024)
		binary.LittleEndian.PutUint32(b[16:], 1024)
		binary.LittleEndian.PutUint64(b[68:], 4<<30)

		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		_, err := Read(bytes.NewReader(b))
		runtime.ReadMemStats(&after)
		assert.ErrorIs(t, err, ErrTruncated, c.String())
		assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20), c.String())
	}
}

func TestWriteRange(t *testing.T) {
	vol := rampVolume(t)
	vol.Data()[0] = 1e300
	err := Write(&bytes.Buffer{}, vol, Options{})
	assert.ErrorIs(t, err, ErrRange)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ramp.pvol")
	vol := rampVolume(t)
	require.NoError(t, Save(path, vol, Options{Compress: true}))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, vol.Data(), got.Data())

	_, err = Load(filepath.Join(t.TempDir(), "missing.pvol"))
	assert.Error(t, err)
}
