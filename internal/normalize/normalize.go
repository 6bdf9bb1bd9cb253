// Package normalize converts raw collaborator output into canonical
// signals. It absorbs label-vocabulary drift between interchangeable
// text classifiers and the nested, irregular response shapes of image
// moderation services, so the policy engine never sees either.
package normalize

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/seemly-ai/seemly/internal/signal"
)

// PositiveLabels maps a text category to the set of raw classifier
// output labels that mean "category present". Equivalent classifiers
// disagree on label strings ("toxic" vs "LABEL_1" vs "self-harm"), so
// this lives in configuration rather than in the policy engine.
type PositiveLabels map[signal.TextCategory][]string

// DefaultPositiveLabels covers the label vocabularies of the commonly
// wired classifiers.
func DefaultPositiveLabels() PositiveLabels {
	return PositiveLabels{
		signal.TextToxicity:  {"toxic", "toxicity", "LABEL_1", "1"},
		signal.TextSelfHarm:  {"self-harm", "self_harm", "suicidal", "suicide", "LABEL_1", "1"},
		signal.TextHate:      {"hate", "hateful", "LABEL_1", "1"},
		signal.TextSexual:    {"sexual", "sexual_explicit", "LABEL_1", "1"},
		signal.TextProfanity: {"profanity", "obscene", "LABEL_1", "1"},
		signal.TextSentiment: {"negative", "NEGATIVE", "LABEL_0"},
	}
}

// Text maps one raw classifier result onto a canonical text signal.
// The signal is matched when the raw label is in the category's
// positive-label set (case-insensitive). Scores are clamped to [0,1];
// NaN degrades to 0. Never fails.
func Text(cat signal.TextCategory, label string, score float32, pos PositiveLabels) signal.TextSignal {
	return signal.TextSignal{
		Category: cat,
		Score:    clamp(score),
		Matched:  labelMatches(label, pos[cat]),
	}
}

// NeutralText is the zero signal emitted when a classifier was not
// wired, failed, or had no text to classify.
func NeutralText(cat signal.TextCategory) signal.TextSignal {
	return signal.TextSignal{Category: cat}
}

// Image flattens a raw moderation response into one signal per
// canonical category. The upstream shape is irregular: nudity arrives
// as a sub-mapping with raw/sexual_activity/sexual_display siblings,
// while weapon may be a bare float and gore a {prob: x} mapping.
// Missing or malformed entries degrade to score 0.0; the returned
// slice always carries every category. Never fails.
func Image(raw map[string]any) []signal.ImageSignal {
	out := make([]signal.ImageSignal, 0, len(signal.ImageCategories))
	for _, cat := range signal.ImageCategories {
		out = append(out, signal.ImageSignal{Category: cat, Score: imageScore(raw, cat)})
	}
	return out
}

func imageScore(raw map[string]any, cat signal.ImageCategory) float32 {
	if raw == nil {
		return 0
	}
	switch cat {
	case signal.ImageNudityRaw:
		return firstScore(raw, []string{"nudity", "raw"}, []string{"nudity_raw"})
	case signal.ImageSexualActivity:
		return firstScore(raw, []string{"nudity", "sexual_activity"}, []string{"sexual_activity"})
	case signal.ImageSexualDisplay:
		return firstScore(raw, []string{"nudity", "sexual_display"}, []string{"sexual_display"})
	case signal.ImageWeapon:
		return firstScore(raw, []string{"weapon", "prob"}, []string{"weapon"})
	case signal.ImageViolence:
		return firstScore(raw, []string{"violence", "prob"}, []string{"violence"})
	case signal.ImageGore:
		return firstScore(raw, []string{"gore", "prob"}, []string{"gore"})
	case signal.ImageOffensive:
		return firstScore(raw, []string{"offensive", "prob"}, []string{"offensive"})
	}
	return 0
}

// firstScore walks each candidate path through the nested response and
// returns the first numeric leaf found.
func firstScore(raw map[string]any, paths ...[]string) float32 {
	for _, path := range paths {
		if v, ok := walk(raw, path); ok {
			return clamp(v)
		}
	}
	return 0
}

func walk(raw map[string]any, path []string) (float32, bool) {
	var cur any = raw
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return 0, false
		}
		cur, ok = m[key]
		if !ok {
			return 0, false
		}
	}
	return asFloat32(cur)
}

func asFloat32(v any) (float32, bool) {
	switch n := v.(type) {
	case float64:
		return float32(n), true
	case float32:
		return n, true
	case int:
		return float32(n), true
	case int64:
		return float32(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return float32(f), true
	default:
		return 0, false
	}
}

func labelMatches(label string, positives []string) bool {
	label = strings.TrimSpace(label)
	if label == "" {
		return false
	}
	for _, p := range positives {
		if strings.EqualFold(label, strings.TrimSpace(p)) {
			return true
		}
	}
	return false
}

func clamp(v float32) float32 {
	if math.IsNaN(float64(v)) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
