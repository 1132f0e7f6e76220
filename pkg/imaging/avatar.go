// Package imaging normalizes uploaded avatars to a fixed-size PNG.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const (
	AvatarWidth  = 250
	AvatarHeight = 250

	// Limits on the declared size of an upload, checked before decoding.
	MaxSourceSide   = 8000
	MaxSourcePixels = 25_000_000
)

var ErrNotImage = errors.New("please upload an image")

var allowedExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// AllowedFilename reports whether name has a jpg, jpeg or png extension.
func AllowedFilename(name string) bool {
	return allowedExts[strings.ToLower(filepath.Ext(name))]
}

// ResizePNG decodes a JPEG or PNG image and re-encodes it as a width x height PNG.
// Images larger than MaxSourceSide or MaxSourcePixels are rejected from their
// header alone.
func ResizePNG(r io.Reader, width, height int) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if cfg.Width > MaxSourceSide || cfg.Height > MaxSourceSide ||
		int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds the size limit", ErrNotImage, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Avatar is ResizePNG with the standard avatar size.
func Avatar(r io.Reader) ([]byte, error) {
	return ResizePNG(r, AvatarWidth, AvatarHeight)
}
