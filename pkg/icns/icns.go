// Package icns builds and reads the icon containers bundled with the macOS app.
//
// A container is a 12-byte header (magic plus a big-endian 64-bit total
// size), the raw image payloads back to back, and a trailing directory: the
// magic again, a 64-bit directory size and one record per payload. Records
// are 16 bytes (type, size, length, offset); legacy records carry an extra
// reserved word before the offset and are 20 bytes.
package icns

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/mkicns/pkg/encoding"
)

// Container layout constants.
const (
	Magic               = "icns"
	HeaderSize          = 12
	DirectoryHeaderSize = 12
	RecordSize          = 16
	LegacyRecordSize    = 20
)

// Container errors.
var (
	ErrInvalidMagic      = errors.New("invalid icns magic")
	ErrTruncated         = errors.New("truncated icns data")
	ErrDirectoryNotFound = errors.New("icns directory not found")
	ErrTypeNotFound      = errors.New("icon type not found")
	ErrInvalidType       = errors.New("invalid icon type code")
	ErrNoEntries         = errors.New("no icon entries")
	ErrTooLarge          = errors.New("icns container exceeds 32-bit offsets")
	ErrOffsetMismatch    = errors.New("record offset does not match payload position")
	ErrSizeMismatch      = errors.New("header size does not match file size")
	ErrUnknownLayout     = errors.New("unknown container layout")
	ErrOutputNotRegular  = errors.New("output is not a regular file")
)

// OSType is a four-char resource type code such as "ic10".
type OSType [4]byte

// ParseOSType converts s to a four-char code. s must encode to exactly
// four MacRoman bytes.
func ParseOSType(s string) (OSType, error) {
	b, err := encoding.UTF8ToMacRoman(s)
	if err != nil {
		return OSType{}, fmt.Errorf("%w: %v", ErrInvalidType, err)
	}
	if len(b) != 4 {
		return OSType{}, fmt.Errorf("%w: %q is %d bytes", ErrInvalidType, s, len(b))
	}
	var t OSType
	copy(t[:], b)
	return t, nil
}

// MustOSType is like ParseOSType but panics on error.
func MustOSType(s string) OSType {
	t, err := ParseOSType(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the code as UTF-8.
func (t OSType) String() string {
	return encoding.MacRomanToUTF8(t[:])
}

// Entry describes one image to embed.
type Entry struct {
	Type OSType
	Size uint32 // nominal square dimension in pixels
	File string // source file, relative to the source directory
}

// DefaultEntries returns the app icon set, largest first.
func DefaultEntries() []Entry {
	return []Entry{
		{Type: MustOSType("ic04"), Size: 1024, File: "1024.png"},
		{Type: MustOSType("ic09"), Size: 512, File: "512.png"},
		{Type: MustOSType("ic10"), Size: 256, File: "256.png"},
		{Type: MustOSType("ic11"), Size: 128, File: "128.png"},
		{Type: MustOSType("ic12"), Size: 64, File: "64.png"},
		{Type: MustOSType("ic13"), Size: 32, File: "32.png"},
		{Type: MustOSType("ic14"), Size: 16, File: "16.png"},
	}
}

// Resource is an entry together with its payload.
type Resource struct {
	Entry
	Data []byte
}

// Record is one directory record as stored in the container.
type Record struct {
	Type     OSType
	Size     uint32
	Length   uint32
	Reserved uint32 // legacy layout only
	Offset   uint32
}

// Layout selects how the header and directory fields are computed.
type Layout int

const (
	// LayoutStandard writes the real total size and true payload offsets.
	LayoutStandard Layout = iota
	// LayoutLegacy reproduces the historical generator byte for byte: a zero
	// size placeholder, offsets derived from file name lengths and 20-byte
	// records.
	LayoutLegacy
)

// RecordSize returns the directory record width for the layout.
func (l Layout) RecordSize() int {
	if l == LayoutLegacy {
		return LegacyRecordSize
	}
	return RecordSize
}

// String returns the layout name used in config files.
func (l Layout) String() string {
	switch l {
	case LayoutStandard:
		return "standard"
	case LayoutLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout parses a layout name. An empty name is LayoutStandard.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return LayoutStandard, nil
	case "legacy":
		return LayoutLegacy, nil
	default:
		return LayoutStandard, fmt.Errorf("%w: %q", ErrUnknownLayout, s)
	}
}
