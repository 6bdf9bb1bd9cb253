// Package imagefile validates uploads before any collaborator sees
// them: real image bytes in a supported format, within size and
// dimension limits.
package imagefile

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Info describes a validated upload.
type Info struct {
	Format string
	Width  int
	Height int
}

var (
	ErrEmpty       = errors.New("image is empty")
	ErrTooLarge    = errors.New("image exceeds size limit")
	ErrNotAnImage  = errors.New("data is not a supported image")
	ErrHugePixels  = errors.New("image dimensions exceed limit")
)

// MaxDimension bounds either axis; moderation services reject larger
// inputs anyway, so fail early.
const MaxDimension = 10000

// Sniff decodes only the header and validates the upload.
func Sniff(data []byte, maxBytes int64) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrEmpty
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return Info{}, fmt.Errorf("%w (%d bytes, limit %d)", ErrTooLarge, len(data), maxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, ErrNotAnImage
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return Info{}, fmt.Errorf("%w (%dx%d)", ErrHugePixels, cfg.Width, cfg.Height)
	}

	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
