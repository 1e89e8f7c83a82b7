package geopackage

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeGeometry(t *testing.T) {
	line := orb.LineString{{-3.19, 55.95}, {-3.18, 55.96}, {-3.17, 55.94}}

	blob, err := EncodeGeometry(line, 4326)
	require.NoError(t, err)
	assert.Equal(t, byte('G'), blob[0])
	assert.Equal(t, byte('P'), blob[1])

	got, err := DecodeGeometry(blob)
	require.NoError(t, err)
	assert.Equal(t, line, got)
}

func TestDecodeGeometry_Empty(t *testing.T) {
	blob, err := EncodeGeometry(nil, 27700)
	require.NoError(t, err)

	got, err := DecodeGeometry(blob)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = DecodeGeometry(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDecodeGeometry_Envelope(t *testing.T) {
	pt := orb.Point{1, 2}
	blob, err := EncodeGeometry(pt, 4326)
	require.NoError(t, err)

	// splice in a 32 byte xy envelope and set indicator 1
	withEnv := append([]byte{}, blob[:8]...)
	withEnv[3] |= 1 << 1
	withEnv = append(withEnv, make([]byte, 32)...)
	withEnv = append(withEnv, blob[8:]...)

	got, err := DecodeGeometry(withEnv)
	require.NoError(t, err)
	assert.Equal(t, pt, got)
}

func TestDecodeGeometry_Invalid(t *testing.T) {
	_, err := DecodeGeometry([]byte("not a blob"))
	assert.ErrorIs(t, err, ErrInvalidBlob)

	_, err = DecodeGeometry([]byte{'G', 'P', 0, 0x01 | 7<<1, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidBlob)

	_, err = DecodeGeometry([]byte{'G', 'P', 0, 0x01, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidBlob)
}

// wkbBuilder writes raw WKB so tests can produce Z and M variants orb
// itself never emits.
type wkbBuilder struct {
	order binary.ByteOrder
	buf   []byte
}

func (b *wkbBuilder) header(code uint32) *wkbBuilder {
	if b.order == binary.LittleEndian {
		b.buf = append(b.buf, 1)
	} else {
		b.buf = append(b.buf, 0)
	}
	return b.uint32(code)
}

func (b *wkbBuilder) uint32(v uint32) *wkbBuilder {
	var tmp [4]byte
	b.order.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return b
}

func (b *wkbBuilder) coords(vs ...float64) *wkbBuilder {
	var tmp [8]byte
	for _, v := range vs {
		b.order.PutUint64(tmp[:], math.Float64bits(v))
		b.buf = append(b.buf, tmp[:]...)
	}
	return b
}

// gpBlob wraps a WKB body in a GeoPackage header with the given envelope
// indicator.
func gpBlob(body []byte, envIndicator byte, srsID uint32) []byte {
	blob := []byte{'G', 'P', 0, 0x01 | envIndicator<<1, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(blob[4:], srsID)
	blob = append(blob, make([]byte, envelopeSize[envIndicator])...)
	return append(blob, body...)
}

func TestDecodeGeometry_DropsZM(t *testing.T) {
	le := func() *wkbBuilder { return &wkbBuilder{order: binary.LittleEndian} }
	be := func() *wkbBuilder { return &wkbBuilder{order: binary.BigEndian} }

	tests := []struct {
		name string
		blob []byte
		want orb.Geometry
	}{
		{
			name: "iso point z",
			blob: gpBlob(le().header(1001).coords(400000, 800000, 12.5).buf, 2, 27700),
			want: orb.Point{400000, 800000},
		},
		{
			name: "iso linestring z big endian",
			blob: gpBlob(be().header(1002).uint32(2).coords(1, 2, 3, 4, 5, 6).buf, 2, 27700),
			want: orb.LineString{{1, 2}, {4, 5}},
		},
		{
			name: "iso linestring m",
			blob: gpBlob(le().header(2002).uint32(2).coords(1, 2, 0, 3, 4, 9).buf, 3, 27700),
			want: orb.LineString{{1, 2}, {3, 4}},
		},
		{
			name: "iso polygon zm",
			blob: gpBlob(le().header(3003).uint32(1).uint32(4).
				coords(0, 0, 1, 7, 1, 0, 1, 7, 1, 1, 1, 7, 0, 0, 1, 7).buf, 4, 27700),
			want: orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		},
		{
			name: "iso multilinestring z with mixed part byte order",
			blob: gpBlob(append(
				le().header(1005).uint32(2).header(1002).uint32(2).coords(0, 0, 5, 1, 1, 5).buf,
				be().header(1002).uint32(2).coords(2, 2, 5, 3, 3, 5).buf...,
			), 2, 27700),
			want: orb.MultiLineString{{{0, 0}, {1, 1}}, {{2, 2}, {3, 3}}},
		},
		{
			name: "ewkb point z with srid",
			blob: gpBlob(le().header(1|ewkbZ|ewkbSRID).uint32(27700).coords(7, 8, 9).buf, 0, 27700),
			want: orb.Point{7, 8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeGeometry(tt.blob)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeGeometry_TruncatedZ(t *testing.T) {
	body := (&wkbBuilder{order: binary.LittleEndian}).header(1002).uint32(3).coords(1, 2, 3, 4, 5, 6).buf

	_, err := DecodeGeometry(gpBlob(body, 0, 27700))
	assert.ErrorIs(t, err, ErrInvalidBlob)
}
