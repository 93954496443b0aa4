package icns

import (
	"encoding/binary"
	"fmt"
	"os"

	"go.uber.org/multierr"
)

// Container is a parsed icon container held in memory.
type Container struct {
	data      []byte
	totalSize uint64
	dirOffset int
	dirSize   uint64
	layout    Layout
	records   []Record
	positions []int // actual payload start for each record
}

// Open reads and parses a container file.
func Open(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return Parse(data)
}

// Parse parses a container from raw bytes.
//
// The directory is found by working back from the end of the data: for a
// given record count and width the directory start is fixed, and the first
// start that holds the magic and whose record lengths exactly fill the
// payload region is taken. Legacy files carry neither a usable directory
// size nor real offsets, so they are recognised by their 20-byte records.
func Parse(data []byte) (*Container, error) {
	if len(data) < HeaderSize+DirectoryHeaderSize {
		return nil, ErrTruncated
	}
	if string(data[:4]) != Magic {
		return nil, ErrInvalidMagic
	}

	c := &Container{
		data:      data,
		totalSize: binary.BigEndian.Uint64(data[4:HeaderSize]),
	}

	for _, layout := range []Layout{LayoutStandard, LayoutLegacy} {
		if c.locateDirectory(layout) {
			return c, nil
		}
	}
	return nil, ErrDirectoryNotFound
}

func (c *Container) locateDirectory(layout Layout) bool {
	width := layout.RecordSize()
	maxRecords := (len(c.data) - HeaderSize - DirectoryHeaderSize) / width
	for n := 0; n <= maxRecords; n++ {
		start := len(c.data) - DirectoryHeaderSize - width*n
		if string(c.data[start:start+4]) != Magic {
			continue
		}

		records := parseRecords(c.data[start+DirectoryHeaderSize:], n, layout)
		positions, ok := payloadPositions(records, start)
		if !ok {
			continue
		}

		c.layout = layout
		c.dirOffset = start
		c.dirSize = binary.BigEndian.Uint64(c.data[start+4 : start+DirectoryHeaderSize])
		c.records = records
		c.positions = positions
		return true
	}
	return false
}

func parseRecords(data []byte, n int, layout Layout) []Record {
	width := layout.RecordSize()
	records := make([]Record, n)
	for i := range records {
		b := data[i*width : (i+1)*width]
		copy(records[i].Type[:], b[:4])
		records[i].Size = binary.BigEndian.Uint32(b[4:])
		records[i].Length = binary.BigEndian.Uint32(b[8:])
		if layout == LayoutLegacy {
			records[i].Reserved = binary.BigEndian.Uint32(b[12:])
		}
		records[i].Offset = binary.BigEndian.Uint32(b[width-4:])
	}
	return records
}

// payloadPositions lays the records end to end from the header and reports
// whether they fill the payload region exactly.
func payloadPositions(records []Record, dirOffset int) ([]int, bool) {
	positions := make([]int, len(records))
	pos := HeaderSize
	for i, rec := range records {
		positions[i] = pos
		pos += int(rec.Length)
		if pos > dirOffset {
			return nil, false
		}
	}
	return positions, pos == dirOffset
}

// Layout returns the detected layout.
func (c *Container) Layout() Layout {
	return c.layout
}

// Size returns the container length in bytes.
func (c *Container) Size() int {
	return len(c.data)
}

// TotalSize returns the header size field.
func (c *Container) TotalSize() uint64 {
	return c.totalSize
}

// DirectoryOffset returns where the directory section starts.
func (c *Container) DirectoryOffset() int {
	return c.dirOffset
}

// DirectorySize returns the directory size field.
func (c *Container) DirectorySize() uint64 {
	return c.dirSize
}

// Records returns the directory records in file order.
func (c *Container) Records() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// List returns the type codes in file order.
func (c *Container) List() []string {
	result := make([]string, 0, len(c.records))
	for _, rec := range c.records {
		result = append(result, rec.Type.String())
	}
	return result
}

// Contains checks if a type code is present.
func (c *Container) Contains(t OSType) bool {
	return c.index(t) >= 0
}

// Read returns the payload of the first record with type t.
func (c *Container) Read(t OSType) ([]byte, error) {
	i := c.index(t)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, t)
	}
	return c.Payload(i)
}

// Payload returns the payload of record i. Standard containers are read at
// the recorded offset; legacy offsets are meaningless, so legacy payloads
// are located from the record lengths.
func (c *Container) Payload(i int) ([]byte, error) {
	if i < 0 || i >= len(c.records) {
		return nil, fmt.Errorf("record %d out of range [0,%d)", i, len(c.records))
	}
	rec := c.records[i]

	start := c.positions[i]
	if c.layout == LayoutStandard {
		start = int(rec.Offset)
	}
	end := start + int(rec.Length)
	if start < HeaderSize || end > c.dirOffset {
		return nil, fmt.Errorf("%w: %s payload at %d+%d", ErrTruncated, rec.Type, start, rec.Length)
	}

	return c.data[start:end:end], nil
}

// Verify checks the header, directory size and record offsets against the
// actual payload positions. Legacy containers only get the coverage check
// that already passed during Parse.
func (c *Container) Verify() error {
	if c.layout == LayoutLegacy {
		return nil
	}

	var errs error
	if want := uint64(len(c.data) - c.dirOffset); c.dirSize != want {
		errs = multierr.Append(errs, fmt.Errorf("%w: directory size %d, want %d",
			ErrSizeMismatch, c.dirSize, want))
	}
	if c.totalSize != uint64(len(c.data)) {
		errs = multierr.Append(errs, fmt.Errorf("%w: header says %d, file is %d bytes",
			ErrSizeMismatch, c.totalSize, len(c.data)))
	}
	for i, rec := range c.records {
		if int(rec.Offset) != c.positions[i] {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s recorded at %d, stored at %d",
				ErrOffsetMismatch, rec.Type, rec.Offset, c.positions[i]))
		}
	}
	return errs
}

func (c *Container) index(t OSType) int {
	for i, rec := range c.records {
		if rec.Type == t {
			return i
		}
	}
	return -1
}
