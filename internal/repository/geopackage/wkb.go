package geopackage

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	wkbPoint uint32 = iota + 1
	wkbLineString
	wkbPolygon
	wkbMultiPoint
	wkbMultiLineString
	wkbMultiPolygon
	wkbCollection
)

// EWKB high-bit flags, as written by PostGIS and some GDAL drivers.
const (
	ewkbZ    uint32 = 0x80000000
	ewkbM    uint32 = 0x40000000
	ewkbSRID uint32 = 0x20000000
)

// maxWKBDepth bounds collection nesting.
const maxWKBDepth = 32

// flattenWKB rewrites a WKB geometry to XY only. ISO Z/M/ZM type codes
// (1000, 2000, 3000 offsets) and EWKB flags are both accepted; the extra
// ordinates are dropped and an EWKB SRID is skipped. Each part keeps its
// own byte order.
func flattenWKB(src []byte) ([]byte, error) {
	f := &wkbFlattener{src: src, out: make([]byte, 0, len(src))}
	if err := f.geometry(0); err != nil {
		return nil, err
	}
	return f.out, nil
}

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

type wkbFlattener struct {
	src []byte
	pos int
	out []byte
}

func (f *wkbFlattener) need(n int) error {
	if n < 0 || len(f.src)-f.pos < n {
		return fmt.Errorf("%w: truncated wkb", ErrInvalidBlob)
	}
	return nil
}

func (f *wkbFlattener) geometry(depth int) error {
	if depth > maxWKBDepth {
		return fmt.Errorf("%w: wkb nested too deep", ErrInvalidBlob)
	}
	if err := f.need(5); err != nil {
		return err
	}

	orderByte := f.src[f.pos]
	var order byteOrder
	switch orderByte {
	case 0:
		order = binary.BigEndian
	case 1:
		order = binary.LittleEndian
	default:
		return fmt.Errorf("%w: bad wkb byte order %d", ErrInvalidBlob, orderByte)
	}
	code := order.Uint32(f.src[f.pos+1:])
	f.pos += 5

	dims := 2
	if code&ewkbZ != 0 {
		dims++
	}
	if code&ewkbM != 0 {
		dims++
	}
	if code&ewkbSRID != 0 {
		if err := f.need(4); err != nil {
			return err
		}
		f.pos += 4
	}
	code &^= ewkbZ | ewkbM | ewkbSRID

	switch code / 1000 {
	case 0:
	case 1, 2:
		dims = 3
	case 3:
		dims = 4
	default:
		return fmt.Errorf("%w: unknown wkb type %d", ErrInvalidBlob, code)
	}
	kind := code % 1000

	f.out = append(f.out, orderByte)
	f.out = order.AppendUint32(f.out, kind)

	switch kind {
	case wkbPoint:
		return f.points(dims, 1)
	case wkbLineString:
		n, err := f.count(order)
		if err != nil {
			return err
		}
		return f.points(dims, n)
	case wkbPolygon:
		rings, err := f.count(order)
		if err != nil {
			return err
		}
		for i := 0; i < rings; i++ {
			n, err := f.count(order)
			if err != nil {
				return err
			}
			if err := f.points(dims, n); err != nil {
				return err
			}
		}
		return nil
	case wkbMultiPoint, wkbMultiLineString, wkbMultiPolygon, wkbCollection:
		n, err := f.count(order)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := f.geometry(depth + 1); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported wkb type %d", ErrInvalidBlob, kind)
	}
}

// count reads and copies a uint32 element count.
func (f *wkbFlattener) count(order byteOrder) (int, error) {
	if err := f.need(4); err != nil {
		return 0, err
	}
	n := order.Uint32(f.src[f.pos:])
	f.pos += 4
	if n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: wkb count %d", ErrInvalidBlob, n)
	}
	f.out = order.AppendUint32(f.out, n)
	return int(n), nil
}

// points copies the x and y of n points with dims ordinates each.
func (f *wkbFlattener) points(dims, n int) error {
	stride := dims * 8
	if n > (len(f.src)-f.pos)/stride {
		return fmt.Errorf("%w: truncated wkb", ErrInvalidBlob)
	}
	for i := 0; i < n; i++ {
		f.out = append(f.out, f.src[f.pos:f.pos+16]...)
		f.pos += stride
	}
	return nil
}
