package icns

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Directory is the computed trailer of a container.
type Directory struct {
	TotalSize uint64 // value of the header size field
	Size      uint64 // value of the directory size field
	Records   []Record
}

// BuildOptions configures Build.
type BuildOptions struct {
	SourceDir string
	Entries   []Entry
	Output    string
	Layout    Layout
	Logger    *zap.Logger
}

// Result describes a written container.
type Result struct {
	Path      string
	Layout    Layout
	Directory *Directory
	Size      int64
}

// LoadResources reads every entry's source file from dir, in order.
// The first unreadable file aborts the load.
func LoadResources(dir string, entries []Entry) ([]Resource, error) {
	resources := make([]Resource, 0, len(entries))
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.File))
		if err != nil {
			return nil, fmt.Errorf("loading %s (%s): %w", e.File, e.Type, err)
		}
		resources = append(resources, Resource{Entry: e, Data: data})
	}
	return resources, nil
}

// PlanDirectory computes the header and directory fields for resources
// without writing anything. It also returns the container length.
func PlanDirectory(resources []Resource, layout Layout) (*Directory, int64, error) {
	if layout != LayoutStandard && layout != LayoutLegacy {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownLayout, layout)
	}

	dir := &Directory{Records: make([]Record, 0, len(resources))}

	var payloadBytes uint64
	var legacyOffset uint64 = 8
	for _, r := range resources {
		if uint64(len(r.Data)) > math.MaxUint32 {
			return nil, 0, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, r.File, len(r.Data))
		}

		offset := HeaderSize + payloadBytes
		if layout == LayoutLegacy {
			offset = legacyOffset
		}
		if offset > math.MaxUint32 {
			return nil, 0, fmt.Errorf("%w: %s starts at %d", ErrTooLarge, r.File, offset)
		}

		dir.Records = append(dir.Records, Record{
			Type:   r.Type,
			Size:   r.Size,
			Length: uint32(len(r.Data)),
			Offset: uint32(offset),
		})

		payloadBytes += uint64(len(r.Data))
		legacyOffset += uint64(len(r.File)) + 12
	}

	dirBytes := uint64(DirectoryHeaderSize + layout.RecordSize()*len(resources))
	total := HeaderSize + payloadBytes + dirBytes

	switch layout {
	case LayoutStandard:
		dir.TotalSize = total
		dir.Size = dirBytes
	case LayoutLegacy:
		dir.TotalSize = 0
		dir.Size = legacyOffset
	}

	return dir, int64(total), nil
}

// Encode writes the container for resources to w. Every payload is in
// memory before the first byte goes out, so the header carries the final
// size and nothing has to be patched afterwards.
func Encode(w io.Writer, resources []Resource, layout Layout) (*Directory, int64, error) {
	dir, _, err := PlanDirectory(resources, layout)
	if err != nil {
		return nil, 0, err
	}

	cw := &countingWriter{w: w}

	header := make([]byte, 0, HeaderSize)
	header = append(header, Magic...)
	header = binary.BigEndian.AppendUint64(header, dir.TotalSize)
	if _, err := cw.Write(header); err != nil {
		return nil, cw.n, fmt.Errorf("writing header: %w", err)
	}

	for _, r := range resources {
		if _, err := cw.Write(r.Data); err != nil {
			return nil, cw.n, fmt.Errorf("writing %s payload: %w", r.Type, err)
		}
	}

	trailer := make([]byte, 0, DirectoryHeaderSize+layout.RecordSize()*len(dir.Records))
	trailer = append(trailer, Magic...)
	trailer = binary.BigEndian.AppendUint64(trailer, dir.Size)
	for _, rec := range dir.Records {
		trailer = rec.appendTo(trailer, layout)
	}
	if _, err := cw.Write(trailer); err != nil {
		return nil, cw.n, fmt.Errorf("writing directory: %w", err)
	}

	return dir, cw.n, nil
}

// outputWriter wraps the temporary file Build encodes into.
var outputWriter = func(f *os.File) io.Writer { return f }

// Build loads every source and writes the container to opts.Output.
// Sources are all read before anything is created, so a missing source
// leaves no file behind. The container is encoded into a temporary file next
// to the output and renamed over it once complete; a failed run removes the
// temporary file and leaves any existing output untouched.
func Build(opts BuildOptions) (result *Result, err error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if len(opts.Entries) == 0 {
		return nil, ErrNoEntries
	}

	log.Info("Creating icns file...",
		zap.String("output", opts.Output),
		zap.Int("entries", len(opts.Entries)),
		zap.Stringer("layout", opts.Layout))

	resources, err := LoadResources(opts.SourceDir, opts.Entries)
	if err != nil {
		return nil, err
	}
	for _, r := range resources {
		log.Debug("Loaded payload",
			zap.Stringer("type", r.Type),
			zap.Uint32("size", r.Size),
			zap.String("file", r.File),
			zap.Int("bytes", len(r.Data)))
	}

	target, mode, err := resolveOutput(opts.Output)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".icns-*")
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tmp.Close()
		if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = multierr.Append(err, rmErr)
		}
		result = nil
	}()

	bw := bufio.NewWriter(outputWriter(tmp))
	dir, n, err := Encode(bw, resources, opts.Layout)
	if err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("flushing output: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return nil, fmt.Errorf("setting output mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing output: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return nil, fmt.Errorf("replacing output: %w", err)
	}
	committed = true

	log.Info("icns file created successfully!",
		zap.String("output", opts.Output),
		zap.Int64("bytes", n))

	return &Result{
		Path:      opts.Output,
		Layout:    opts.Layout,
		Directory: dir,
		Size:      n,
	}, nil
}

// resolveOutput returns the file a container written to path replaces,
// following symlinks, and the permissions it should end up with. Anything
// other than a regular file or a missing path is refused.
func resolveOutput(path string) (string, fs.FileMode, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return path, 0644, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("checking output: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", 0, fmt.Errorf("%w: %s", ErrOutputNotRegular, path)
	}

	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", 0, fmt.Errorf("resolving output: %w", err)
	}
	return target, info.Mode().Perm(), nil
}

func (r Record) appendTo(b []byte, layout Layout) []byte {
	b = append(b, r.Type[:]...)
	b = binary.BigEndian.AppendUint32(b, r.Size)
	b = binary.BigEndian.AppendUint32(b, r.Length)
	if layout == LayoutLegacy {
		b = binary.BigEndian.AppendUint32(b, r.Reserved)
	}
	b = binary.BigEndian.AppendUint32(b, r.Offset)
	return b
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
