package policy

import (
	"github.com/seemly-ai/seemly/internal/signal"
)

// Outcome is the binary moderation decision.
type Outcome string

const (
	OutcomeSafe   Outcome = "SAFE"
	OutcomeUnsafe Outcome = "UNSAFE"
)

// Verdict is the terminal artifact of a moderation request. Reasons
// are ordered by rule evaluation order; the outcome is UNSAFE exactly
// when at least one reason was appended.
type Verdict struct {
	Outcome Outcome  `json:"outcome"`
	Reasons []string `json:"reasons"`
}

// Evaluate runs the compiled rules against a signal set, in order, and
// builds the verdict. It is a pure function: no input can make it
// fail, and re-running with the same signals yields the same verdict.
// A rule whose signal is absent from the set simply does not fire.
func Evaluate(set signal.Set, rules []Rule) Verdict {
	reasons := []string{}
	for _, r := range rules {
		if r.satisfied(set) {
			reasons = append(reasons, r.Reason)
		}
	}
	if len(reasons) == 0 {
		return Verdict{Outcome: OutcomeSafe, Reasons: reasons}
	}
	return Verdict{Outcome: OutcomeUnsafe, Reasons: reasons}
}

func (r Rule) satisfied(set signal.Set) bool {
	switch r.Source {
	case SourceText:
		s, ok := set.TextSignal(signal.TextCategory(r.Category))
		if !ok {
			return false
		}
		// Matched gates the score: a confident negative label
		// (e.g. "not toxic" at 0.97) must not fire the rule.
		return s.Matched && s.Score > r.Threshold
	case SourceImage:
		s, ok := set.ImageSignal(signal.ImageCategory(r.Category))
		if !ok {
			return false
		}
		return s.Score > r.Threshold
	case SourceKeyword:
		h, ok := set.KeywordHit(signal.KeywordCategory(r.Category))
		if !ok {
			return false
		}
		return h.Matched == r.Expect
	}
	return false
}
