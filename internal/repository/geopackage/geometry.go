package geopackage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

const (
	flagLittleEndian = 0x01
	flagEmpty        = 0x10
	flagExtended     = 0x20
	headerSize       = 8
)

var ErrInvalidBlob = errors.New("invalid geopackage geometry blob")

// envelopeSize maps the envelope contents indicator (flags bits 1-3) to
// the number of envelope bytes following the header.
var envelopeSize = map[byte]int{0: 0, 1: 32, 2: 48, 3: 48, 4: 64}

// DecodeGeometry parses a GeoPackage binary geometry: "GP" magic, version,
// flags, srs_id, optional envelope, then WKB. Z and M ordinates are dropped.
// A blob flagged empty decodes to a nil geometry.
func DecodeGeometry(blob []byte) (orb.Geometry, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	if len(blob) < headerSize || blob[0] != 'G' || blob[1] != 'P' {
		return nil, ErrInvalidBlob
	}

	flags := blob[3]
	if flags&flagExtended != 0 {
		return nil, fmt.Errorf("%w: extended geometry types are not supported", ErrInvalidBlob)
	}

	envSize, ok := envelopeSize[(flags>>1)&0x07]
	if !ok {
		return nil, fmt.Errorf("%w: bad envelope indicator", ErrInvalidBlob)
	}
	if flags&flagEmpty != 0 {
		return nil, nil
	}

	offset := headerSize + envSize
	if len(blob) <= offset {
		return nil, fmt.Errorf("%w: truncated", ErrInvalidBlob)
	}

	body, err := flattenWKB(blob[offset:])
	if err != nil {
		return nil, err
	}

	g, err := wkb.Unmarshal(body)
	if err != nil {
		return nil, fmt.Errorf("decode wkb: %w", err)
	}
	return g, nil
}

// EncodeGeometry writes a little-endian GeoPackage blob without envelope.
// A nil geometry is written with the empty flag set.
func EncodeGeometry(g orb.Geometry, srsID int32) ([]byte, error) {
	flags := byte(flagLittleEndian)
	if g == nil {
		flags |= flagEmpty
		g = orb.Collection{}
	}

	body, err := wkb.Marshal(g, binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("encode wkb: %w", err)
	}

	blob := make([]byte, headerSize, headerSize+len(body))
	blob[0], blob[1], blob[2], blob[3] = 'G', 'P', 0, flags
	binary.LittleEndian.PutUint32(blob[4:8], uint32(srsID))
	return append(blob, body...), nil
}
