// Package avatar validates uploaded profile pictures and normalizes them to
// a fixed-size PNG.
package avatar

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/image/draw"
)

const (
	// MaxSize is the largest accepted upload in bytes.
	MaxSize = 1_000_000
	// Side is the width and height of a stored avatar.
	Side = 250
	// MaxPixels bounds the decoded size of an upload, which can be far
	// larger than its compressed size.
	MaxPixels = 4096 * 4096
)

var (
	ErrTooLarge        = errors.New("File too large")
	ErrUnsupportedType = errors.New("Only images can be uploaded")
	ErrInvalidImage    = errors.New("Unable to read image")
	ErrTooManyPixels   = errors.New("Image dimensions too large")
)

var allowedExt = regexp.MustCompile(`jpeg|jpg|png`)

// Validate checks the upload's size and file extension before any decoding.
func Validate(filename string, size int64) error {
	if size > MaxSize {
		return ErrTooLarge
	}
	if !allowedExt.MatchString(strings.ToLower(filepath.Ext(filename))) {
		return ErrUnsupportedType
	}
	return nil
}

// Normalize decodes a PNG or JPEG image of at most MaxPixels, scales it to
// Side x Side and re-encodes it as PNG.
func Normalize(data []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrInvalidImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, ErrTooManyPixels
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, Side, Side))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}
