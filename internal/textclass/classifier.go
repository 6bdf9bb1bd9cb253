// Package textclass wraps text-classification collaborators. A
// classifier scores one harm category; the normalizer's
// positive-label sets absorb whatever label vocabulary the concrete
// classifier emits.
package textclass

import "context"

// Prediction is one raw label/score pair as the upstream classifier
// produced it, before normalization.
type Prediction struct {
	Label string  `json:"label"`
	Score float32 `json:"score"`
}

// Classifier scores a piece of text. Implementations may return
// several predictions (one per label); the caller picks the
// top-scoring one.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]Prediction, error)
}

// Top returns the highest-scoring prediction, if any.
func Top(preds []Prediction) (Prediction, bool) {
	if len(preds) == 0 {
		return Prediction{}, false
	}
	best := preds[0]
	for _, p := range preds[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	return best, true
}

// Fake is a canned classifier for tests.
type Fake struct {
	Preds []Prediction
	Err   error
}

func (f Fake) Classify(context.Context, string) ([]Prediction, error) {
	return f.Preds, f.Err
}
