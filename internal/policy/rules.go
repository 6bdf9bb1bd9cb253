package policy

import (
	"fmt"
	"math"
	"strings"

	"github.com/seemly-ai/seemly/internal/signal"
)

// Source names the modality a rule reads its signal from.
type Source string

const (
	SourceText    Source = "text"
	SourceImage   Source = "image"
	SourceKeyword Source = "keyword"
)

// Operator is the comparison a rule applies. Continuous scores use
// strict greater-than; keyword hits use equality.
type Operator string

const (
	OpGreater Operator = ">"
	OpEquals  Operator = "=="
)

// Rule is one compiled threshold binding. Rules are evaluated in the
// order they were configured; that order is the reason-list order.
type Rule struct {
	Source    Source
	Category  string
	Operator  Operator
	Threshold float32
	Expect    bool
	Reason    string
}

// RuleSpec is the raw, as-configured form of a rule before
// validation. Threshold is a pointer so "absent" and "0.0" can be
// told apart when validating keyword rules.
type RuleSpec struct {
	Source    string   `yaml:"source" json:"source"`
	Category  string   `yaml:"category" json:"category"`
	Operator  string   `yaml:"operator,omitempty" json:"operator,omitempty"`
	Threshold *float32 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Reason    string   `yaml:"reason" json:"reason"`
}

// Compile validates rule specs and fixes their evaluation order. Any
// type-inconsistent spec (unknown category, threshold on a keyword
// rule, score rule without a threshold, threshold outside [0,1]) is a
// startup failure, never a per-request one.
func Compile(specs []RuleSpec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for i, spec := range specs {
		rule, err := compileOne(spec)
		if err != nil {
			return nil, fmt.Errorf("policy rule %d (%s/%s): %w", i, spec.Source, spec.Category, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func compileOne(spec RuleSpec) (Rule, error) {
	src := Source(strings.ToLower(strings.TrimSpace(spec.Source)))
	cat := strings.ToLower(strings.TrimSpace(spec.Category))
	if cat == "" {
		return Rule{}, fmt.Errorf("category must be set")
	}
	if strings.TrimSpace(spec.Reason) == "" {
		return Rule{}, fmt.Errorf("reason must be set")
	}

	op := Operator(strings.TrimSpace(spec.Operator))

	switch src {
	case SourceText, SourceImage:
		if op == "" {
			op = OpGreater
		}
		if op != OpGreater {
			return Rule{}, fmt.Errorf("operator must be %q for score rules, got %q", OpGreater, op)
		}
		if spec.Threshold == nil {
			return Rule{}, fmt.Errorf("score rule requires a threshold")
		}
		th := *spec.Threshold
		if math.IsNaN(float64(th)) || th < 0 || th > 1 {
			return Rule{}, fmt.Errorf("threshold %v outside [0,1]", th)
		}
		if src == SourceText && !knownTextCategory(cat) {
			return Rule{}, fmt.Errorf("unknown text category %q", cat)
		}
		if src == SourceImage && !knownImageCategory(cat) {
			return Rule{}, fmt.Errorf("unknown image category %q", cat)
		}
		return Rule{Source: src, Category: cat, Operator: op, Threshold: th, Reason: spec.Reason}, nil

	case SourceKeyword:
		if op == "" {
			op = OpEquals
		}
		if op != OpEquals {
			return Rule{}, fmt.Errorf("operator must be %q for keyword rules, got %q", OpEquals, op)
		}
		if spec.Threshold != nil {
			return Rule{}, fmt.Errorf("keyword rule must not carry a numeric threshold")
		}
		if !knownKeywordCategory(cat) {
			return Rule{}, fmt.Errorf("unknown keyword category %q", cat)
		}
		return Rule{Source: src, Category: cat, Operator: op, Expect: true, Reason: spec.Reason}, nil
	}

	return Rule{}, fmt.Errorf("unknown source %q", spec.Source)
}

func knownTextCategory(cat string) bool {
	for _, c := range signal.TextCategories {
		if string(c) == cat {
			return true
		}
	}
	return false
}

func knownImageCategory(cat string) bool {
	for _, c := range signal.ImageCategories {
		if string(c) == cat {
			return true
		}
	}
	return false
}

func knownKeywordCategory(cat string) bool {
	for _, c := range signal.KeywordCategories {
		if string(c) == cat {
			return true
		}
	}
	return false
}

func floatPtr(v float32) *float32 { return &v }

// DefaultRuleSpecs is the converged default policy: text thresholds
// sit higher than image thresholds because classifiers are noisier on
// short OCR fragments. The most severe categories are listed first so
// they lead the reason list.
func DefaultRuleSpecs() []RuleSpec {
	return []RuleSpec{
		{Source: "text", Category: "self_harm", Threshold: floatPtr(0.65), Reason: "Self-harm / suicidal intent detected"},
		{Source: "text", Category: "toxicity", Threshold: floatPtr(0.65), Reason: "Toxic or abusive language detected"},
		{Source: "image", Category: "nudity_raw", Threshold: floatPtr(0.40), Reason: "Nudity detected"},
		{Source: "image", Category: "sexual_activity", Threshold: floatPtr(0.35), Reason: "Sexual activity detected"},
		{Source: "image", Category: "sexual_display", Threshold: floatPtr(0.35), Reason: "Sexual display detected"},
		{Source: "image", Category: "weapon", Threshold: floatPtr(0.50), Reason: "Weapon detected"},
		{Source: "image", Category: "violence", Threshold: floatPtr(0.50), Reason: "Violence detected"},
		{Source: "image", Category: "gore", Threshold: floatPtr(0.40), Reason: "Gore detected"},
		{Source: "image", Category: "offensive", Threshold: floatPtr(0.50), Reason: "Offensive / hate symbol detected"},
		{Source: "keyword", Category: "self_harm", Reason: "Self-harm related phrase detected"},
		{Source: "keyword", Category: "hate", Reason: "Hateful or threatening phrase detected"},
		{Source: "keyword", Category: "profanity", Reason: "Profanity detected"},
		{Source: "keyword", Category: "sexual", Reason: "Sexually explicit phrase detected"},
	}
}
