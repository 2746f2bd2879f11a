package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mydraw/mydraw/internal/document"
	"github.com/mydraw/mydraw/internal/typeid"
)

// Record layout, big-endian:
//
//	fixed:    type:u8 stroke:u32 fill:u32 width:f32 startX:f64 startY:f64 endX:f64 endY:f64
//	freehand: type:u8 stroke:u32 fill:u32 width:f32 count:u32, then count × (x:f64 y:f64)
//
// A freehand record does not store start/end; they are the first and last point.
const (
	FixedRecordSize    = 45
	FreehandHeaderSize = 17
	PointSize          = 16
)

var byteOrder = binary.BigEndian

// RecordSize returns the encoded length of s.
func RecordSize(s document.Shape) int {
	if s.Kind == document.KindFreehand {
		return FreehandHeaderSize + PointSize*len(s.Points)
	}
	return FixedRecordSize
}

// EncodeShape serializes a single shape record.
func EncodeShape(s document.Shape) []byte {
	return AppendShape(make([]byte, 0, RecordSize(s)), s)
}

// AppendShape appends the record for s to b.
func AppendShape(b []byte, s document.Shape) []byte {
	b = append(b, byte(s.Kind))
	b = byteOrder.AppendUint32(b, uint32(s.StrokeColor))
	b = byteOrder.AppendUint32(b, uint32(s.FillColor))
	b = byteOrder.AppendUint32(b, math.Float32bits(s.StrokeWidth))

	if s.Kind == document.KindFreehand {
		b = byteOrder.AppendUint32(b, uint32(len(s.Points)))
		for _, p := range s.Points {
			b = appendFloat64(b, p.X)
			b = appendFloat64(b, p.Y)
		}
		return b
	}

	b = appendFloat64(b, s.Start.X)
	b = appendFloat64(b, s.Start.Y)
	b = appendFloat64(b, s.End.X)
	b = appendFloat64(b, s.End.Y)
	return b
}

// DecodeShape parses the record at the start of b. It returns the shape, the
// number of bytes the record occupies, and an error.
//
// When the record is structurally complete but its content is invalid, the
// returned length is still the record length so the caller can skip it; the
// error wraps ErrDecode. When b is too short to hold the record, the error
// wraps ErrTruncated and the length is 0.
func DecodeShape(b []byte) (document.Shape, int, error) {
	if len(b) < 1 {
		return document.Shape{}, 0, ErrTruncated
	}
	kind := document.Kind(b[0])
	if !kind.Valid() {
		if len(b) < FixedRecordSize {
			return document.Shape{}, 0, ErrTruncated
		}
		return document.Shape{}, FixedRecordSize, fmt.Errorf("%w: unknown shape type %d", ErrDecode, b[0])
	}

	n := FixedRecordSize
	if kind == document.KindFreehand {
		if len(b) < FreehandHeaderSize {
			return document.Shape{}, 0, ErrTruncated
		}
		count := byteOrder.Uint32(b[13:17])
		size := uint64(FreehandHeaderSize) + uint64(PointSize)*uint64(count)
		if size > uint64(len(b)) {
			return document.Shape{}, 0, ErrTruncated
		}
		n = int(size)
	} else if len(b) < FixedRecordSize {
		return document.Shape{}, 0, ErrTruncated
	}

	s := document.Shape{
		ID:          typeid.NewShapeID(),
		Kind:        kind,
		StrokeColor: document.Color(byteOrder.Uint32(b[1:5])),
		FillColor:   document.Color(byteOrder.Uint32(b[5:9])),
		StrokeWidth: math.Float32frombits(byteOrder.Uint32(b[9:13])),
	}

	if kind == document.KindFreehand {
		count := int(byteOrder.Uint32(b[13:17]))
		if count > 0 {
			pts := make([]document.Point, count)
			for i := range pts {
				off := FreehandHeaderSize + i*PointSize
				pts[i] = document.Point{X: readFloat64(b[off:]), Y: readFloat64(b[off+8:])}
			}
			s = document.NewFreehand(s.Style(), pts)
		}
	} else {
		s.Start = document.Point{X: readFloat64(b[13:]), Y: readFloat64(b[21:])}
		s.End = document.Point{X: readFloat64(b[29:]), Y: readFloat64(b[37:])}
	}

	if err := s.Validate(); err != nil {
		return document.Shape{}, n, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return s, n, nil
}

func appendFloat64(b []byte, f float64) []byte {
	return byteOrder.AppendUint64(b, math.Float64bits(f))
}

func readFloat64(b []byte) float64 {
	return math.Float64frombits(byteOrder.Uint64(b[:8]))
}
