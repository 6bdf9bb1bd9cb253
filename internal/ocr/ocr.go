// Package ocr wraps text-extraction services. The pipeline treats
// OCR as best-effort: any failure degrades to "no text found" rather
// than failing the moderation request.
package ocr

import "context"

// Client extracts embedded text from an image.
type Client interface {
	Extract(ctx context.Context, image []byte) (string, error)
}

// Disabled is the client wired when no OCR provider is configured.
type Disabled struct{}

func (Disabled) Extract(context.Context, []byte) (string, error) {
	return "", nil
}

// Fake is a canned client for tests.
type Fake struct {
	Text string
	Err  error
}

func (f Fake) Extract(context.Context, []byte) (string, error) {
	return f.Text, f.Err
}
