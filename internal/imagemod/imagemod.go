// Package imagemod wraps per-category image moderation services. The
// raw response keeps its upstream shape (nested sub-mappings and
// all); flattening into canonical signals happens once, in the
// normalize package.
package imagemod

import "context"

// Client scores an image for harm categories. The returned map is the
// decoded upstream response as-is.
type Client interface {
	Moderate(ctx context.Context, image []byte) (map[string]any, error)
}

// Disabled is the client wired when no moderation provider is
// configured. Every category then normalizes to 0.0.
type Disabled struct{}

func (Disabled) Moderate(context.Context, []byte) (map[string]any, error) {
	return map[string]any{}, nil
}

// Fake is a canned client for tests.
type Fake struct {
	Response map[string]any
	Err      error
}

func (f Fake) Moderate(context.Context, []byte) (map[string]any, error) {
	return f.Response, f.Err
}
