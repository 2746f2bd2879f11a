// Package codec reads and writes the .mydraw binary drawing format.
//
// A file is an 8-byte header followed by the shape records back to back:
//
//	magic:   0x4D 0x44 ("MD")
//	version: u16
//	count:   u32, number of records that follow
//
// Records are self-describing: the type byte determines whether the record
// is the fixed 45-byte layout or a freehand record whose length follows from
// its point count, so a reader always advances by the real record length.
package codec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mydraw/mydraw/internal/document"
)

const (
	Version    uint16 = 1
	HeaderSize        = 8
	Extension         = ".mydraw"
)

var Magic = [2]byte{0x4D, 0x44}

var (
	// ErrFormat means the header is unusable; nothing was decoded.
	ErrFormat = errors.New("unsupported or corrupt drawing file")
	// ErrDecode marks a single record that was skipped.
	ErrDecode = errors.New("malformed shape record")
	// ErrTruncated means the data ended inside a record.
	ErrTruncated = errors.New("truncated shape data")
)

// Report describes the outcome of decoding a container.
type Report struct {
	Shapes    []document.Shape
	Declared  int     // shape count from the header
	Skipped   int     // records dropped because they failed to parse
	Truncated bool    // data ended before all declared records were read
	Errors    []error // one entry per skipped record, plus ErrTruncated if set
}

// Loaded returns the number of shapes successfully decoded.
func (r Report) Loaded() int { return len(r.Shapes) }

// Err joins the per-record errors, or returns nil for a clean decode.
func (r Report) Err() error { return errors.Join(r.Errors...) }

// Size returns the encoded length of a container holding shapes.
func Size(shapes []document.Shape) int {
	n := HeaderSize
	for _, s := range shapes {
		n += RecordSize(s)
	}
	return n
}

// Encode serializes shapes into a container.
func Encode(shapes []document.Shape) []byte {
	b := make([]byte, 0, Size(shapes))
	b = append(b, Magic[0], Magic[1])
	b = byteOrder.AppendUint16(b, Version)
	b = byteOrder.AppendUint32(b, uint32(len(shapes)))
	for _, s := range shapes {
		b = AppendShape(b, s)
	}
	return b
}

// Decode parses a container. A bad header fails closed with ErrFormat and no
// shapes. Malformed records are skipped; truncated data stops the decode and
// the shapes read so far are returned.
func Decode(data []byte) (Report, error) {
	if len(data) < HeaderSize {
		return Report{}, fmt.Errorf("%w: header is %d bytes, want %d", ErrFormat, len(data), HeaderSize)
	}
	if data[0] != Magic[0] || data[1] != Magic[1] {
		return Report{}, fmt.Errorf("%w: bad magic %#02x %#02x", ErrFormat, data[0], data[1])
	}
	if v := byteOrder.Uint16(data[2:4]); v != Version {
		return Report{}, fmt.Errorf("%w: version %d, want %d", ErrFormat, v, Version)
	}

	declared := int(byteOrder.Uint32(data[4:8]))
	report := Report{Declared: declared}
	if declared > 0 {
		// A record is at least FreehandHeaderSize bytes; cap the allocation
		// by what the data could hold.
		report.Shapes = make([]document.Shape, 0, min(declared, (len(data)-HeaderSize)/FreehandHeaderSize))
	}

	rest := data[HeaderSize:]
	for i := 0; i < declared; i++ {
		s, n, err := DecodeShape(rest)
		if errors.Is(err, ErrTruncated) {
			report.Truncated = true
			report.Errors = append(report.Errors, fmt.Errorf("record %d: %w", i, err))
			break
		}
		rest = rest[n:]
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		report.Shapes = append(report.Shapes, s)
	}
	return report, nil
}

// WriteFile encodes shapes into path. A missing .mydraw extension is added.
func WriteFile(path string, shapes []document.Shape) (string, error) {
	if !strings.EqualFold(filepath.Ext(path), Extension) {
		path += Extension
	}
	if err := os.WriteFile(path, Encode(shapes), 0o644); err != nil {
		return "", fmt.Errorf("write drawing: %w", err)
	}
	return path, nil
}

// ReadFile decodes the drawing stored at path.
func ReadFile(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("read drawing: %w", err)
	}
	return Decode(data)
}
