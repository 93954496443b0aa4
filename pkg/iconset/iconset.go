// Package iconset renders the sized PNG images an icon container is built from.
package iconset

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/image/draw"

	"github.com/Faultbox/mkicns/pkg/icns"
)

// Iconset errors.
var (
	ErrUnknownScaler = errors.New("unknown scaler")
	ErrInvalidSize   = errors.New("invalid icon size")
	ErrEmptySource   = errors.New("source image is empty")
)

// DefaultScaler is used when no scaler is given.
const DefaultScaler = "catmullrom"

// ScalerByName returns the x/image/draw scaler with the given name.
func ScalerByName(name string) (draw.Scaler, error) {
	switch strings.ToLower(name) {
	case "", DefaultScaler:
		return draw.CatmullRom, nil
	case "bilinear":
		return draw.BiLinear, nil
	case "approxbilinear":
		return draw.ApproxBiLinear, nil
	case "nearest":
		return draw.NearestNeighbor, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScaler, name)
	}
}

// Render scales src to every entry's size and writes it to dir under the
// entry's file name. It returns the written paths in entry order.
func Render(src image.Image, entries []icns.Entry, dir string, scaler draw.Scaler) ([]string, error) {
	if src.Bounds().Empty() {
		return nil, ErrEmptySource
	}
	if scaler == nil {
		scaler = draw.CatmullRom
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Size == 0 {
			return paths, fmt.Errorf("%w: %s has size 0", ErrInvalidSize, e.Type)
		}

		dst := image.NewNRGBA(image.Rect(0, 0, int(e.Size), int(e.Size)))
		scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

		path := filepath.Join(dir, e.File)
		if err := writePNG(path, dst); err != nil {
			return paths, fmt.Errorf("writing %s: %w", e.File, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// RenderFile decodes the PNG at path and renders it like Render.
func RenderFile(path string, entries []icns.Entry, dir string, scaler draw.Scaler) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	defer f.Close()

	src, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return Render(src, entries, dir, scaler)
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return png.Encode(f, img)
}
