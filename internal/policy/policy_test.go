package policy

import (
	"reflect"
	"testing"

	"github.com/seemly-ai/seemly/internal/signal"
)

func defaultRules(t *testing.T) []Rule {
	t.Helper()
	rules, err := Compile(DefaultRuleSpecs())
	if err != nil {
		t.Fatalf("compile default rules: %v", err)
	}
	return rules
}

func TestEmptySignalSetIsSafe(t *testing.T) {
	v := Evaluate(signal.Set{}, defaultRules(t))
	if v.Outcome != OutcomeSafe {
		t.Fatalf("expected SAFE, got %s", v.Outcome)
	}
	if len(v.Reasons) != 0 {
		t.Fatalf("expected no reasons, got %v", v.Reasons)
	}
}

func TestOutcomeReasonsBiconditional(t *testing.T) {
	sets := []signal.Set{
		{},
		{Text: []signal.TextSignal{{Category: signal.TextToxicity, Score: 0.99, Matched: true}}},
		{Image: []signal.ImageSignal{{Category: signal.ImageGore, Score: 0.95}}},
		{Keyword: []signal.KeywordHit{{Category: signal.KeywordHate, Matched: true}}},
		{Text: []signal.TextSignal{{Category: signal.TextToxicity, Score: 0.2, Matched: true}}},
	}
	rules := defaultRules(t)
	for i, set := range sets {
		v := Evaluate(set, rules)
		unsafe := v.Outcome == OutcomeUnsafe
		if unsafe != (len(v.Reasons) > 0) {
			t.Fatalf("set %d: outcome %s with %d reasons violates biconditional", i, v.Outcome, len(v.Reasons))
		}
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	set := signal.Set{
		Text: []signal.TextSignal{
			{Category: signal.TextSelfHarm, Score: 0.9, Matched: true},
			{Category: signal.TextToxicity, Score: 0.9, Matched: true},
		},
		Image: []signal.ImageSignal{
			{Category: signal.ImageWeapon, Score: 0.8},
		},
		Keyword: []signal.KeywordHit{
			{Category: signal.KeywordProfanity, Matched: true},
		},
	}
	rules := defaultRules(t)
	first := Evaluate(set, rules)
	for i := 0; i < 5; i++ {
		again := Evaluate(set, rules)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differed: %+v vs %+v", i, first, again)
		}
	}
	want := []string{
		"Self-harm / suicidal intent detected",
		"Toxic or abusive language detected",
		"Weapon detected",
		"Profanity detected",
	}
	if !reflect.DeepEqual(first.Reasons, want) {
		t.Fatalf("reason order: got %v, want %v", first.Reasons, want)
	}
}

func TestStrictInequalityAtThreshold(t *testing.T) {
	rules, err := Compile([]RuleSpec{
		{Source: "image", Category: "nudity_raw", Threshold: floatPtr(0.30), Reason: "Nudity detected"},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	exactly := signal.Set{Image: []signal.ImageSignal{{Category: signal.ImageNudityRaw, Score: 0.30}}}
	if v := Evaluate(exactly, rules); v.Outcome != OutcomeSafe {
		t.Fatalf("score == threshold must not fire, got %v", v)
	}

	above := signal.Set{Image: []signal.ImageSignal{{Category: signal.ImageNudityRaw, Score: 0.300001}}}
	if v := Evaluate(above, rules); v.Outcome != OutcomeUnsafe {
		t.Fatalf("score just above threshold must fire, got %v", v)
	}
}

func TestMonotonicThresholdSensitivity(t *testing.T) {
	set := signal.Set{Image: []signal.ImageSignal{{Category: signal.ImageViolence, Score: 0.55}}}

	var prev int
	for i, th := range []float32{0.10, 0.54, 0.55, 0.90} {
		rules, err := Compile([]RuleSpec{
			{Source: "image", Category: "violence", Threshold: floatPtr(th), Reason: "Violence detected"},
		})
		if err != nil {
			t.Fatalf("compile at %v: %v", th, err)
		}
		n := len(Evaluate(set, rules).Reasons)
		if i > 0 && n > prev {
			t.Fatalf("raising threshold to %v added reasons (%d -> %d)", th, prev, n)
		}
		prev = n
	}
}

func TestUnmatchedLabelDoesNotFire(t *testing.T) {
	// High-confidence negative label: score is the confidence of the
	// negative class, so the rule must not fire.
	set := signal.Set{Text: []signal.TextSignal{{Category: signal.TextToxicity, Score: 0.97, Matched: false}}}
	if v := Evaluate(set, defaultRules(t)); v.Outcome != OutcomeSafe {
		t.Fatalf("unmatched text signal fired: %v", v)
	}
}

func TestScenarioToxicText(t *testing.T) {
	rules, err := Compile([]RuleSpec{
		{Source: "text", Category: "toxicity", Threshold: floatPtr(0.80), Reason: "Toxic or abusive language detected"},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	set := signal.Set{
		Text: []signal.TextSignal{{Category: signal.TextToxicity, Score: 0.91, Matched: true}},
		Image: []signal.ImageSignal{
			{Category: signal.ImageNudityRaw}, {Category: signal.ImageWeapon}, {Category: signal.ImageGore},
		},
		Keyword: []signal.KeywordHit{{Category: signal.KeywordProfanity}, {Category: signal.KeywordHate}},
	}
	v := Evaluate(set, rules)
	if v.Outcome != OutcomeUnsafe {
		t.Fatalf("expected UNSAFE, got %s", v.Outcome)
	}
	if !reflect.DeepEqual(v.Reasons, []string{"Toxic or abusive language detected"}) {
		t.Fatalf("unexpected reasons %v", v.Reasons)
	}
}

func TestScenarioAllNeutralIsSafe(t *testing.T) {
	set := signal.Set{}
	for _, c := range signal.TextCategories {
		set.Text = append(set.Text, signal.TextSignal{Category: c})
	}
	for _, c := range signal.ImageCategories {
		set.Image = append(set.Image, signal.ImageSignal{Category: c})
	}
	for _, c := range signal.KeywordCategories {
		set.Keyword = append(set.Keyword, signal.KeywordHit{Category: c})
	}
	v := Evaluate(set, defaultRules(t))
	if v.Outcome != OutcomeSafe || len(v.Reasons) != 0 {
		t.Fatalf("expected (SAFE, []), got %+v", v)
	}
}

func TestScenarioWeaponOnly(t *testing.T) {
	rules, err := Compile([]RuleSpec{
		{Source: "image", Category: "weapon", Threshold: floatPtr(0.40), Reason: "Weapon detected"},
		{Source: "image", Category: "violence", Threshold: floatPtr(0.60), Reason: "Violence detected"},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	set := signal.Set{Image: []signal.ImageSignal{
		{Category: signal.ImageWeapon, Score: 0.55},
		{Category: signal.ImageViolence, Score: 0.10},
	}}
	v := Evaluate(set, rules)
	if v.Outcome != OutcomeUnsafe {
		t.Fatalf("expected UNSAFE, got %s", v.Outcome)
	}
	if !reflect.DeepEqual(v.Reasons, []string{"Weapon detected"}) {
		t.Fatalf("unexpected reasons %v", v.Reasons)
	}
}

func TestCompileRejectsMalformedSpecs(t *testing.T) {
	cases := []struct {
		name string
		spec RuleSpec
	}{
		{"unknown source", RuleSpec{Source: "audio", Category: "toxicity", Threshold: floatPtr(0.5), Reason: "r"}},
		{"unknown text category", RuleSpec{Source: "text", Category: "spam", Threshold: floatPtr(0.5), Reason: "r"}},
		{"unknown image category", RuleSpec{Source: "image", Category: "toxicity", Threshold: floatPtr(0.5), Reason: "r"}},
		{"unknown keyword category", RuleSpec{Source: "keyword", Category: "weapon", Reason: "r"}},
		{"missing threshold", RuleSpec{Source: "text", Category: "toxicity", Reason: "r"}},
		{"threshold above one", RuleSpec{Source: "image", Category: "gore", Threshold: floatPtr(1.5), Reason: "r"}},
		{"negative threshold", RuleSpec{Source: "image", Category: "gore", Threshold: floatPtr(-0.1), Reason: "r"}},
		{"threshold on keyword rule", RuleSpec{Source: "keyword", Category: "hate", Threshold: floatPtr(0.5), Reason: "r"}},
		{"equality on score rule", RuleSpec{Source: "text", Category: "toxicity", Operator: "==", Threshold: floatPtr(0.5), Reason: "r"}},
		{"greater-than on keyword rule", RuleSpec{Source: "keyword", Category: "hate", Operator: ">", Reason: "r"}},
		{"missing reason", RuleSpec{Source: "text", Category: "toxicity", Threshold: floatPtr(0.5)}},
		{"missing category", RuleSpec{Source: "text", Threshold: floatPtr(0.5), Reason: "r"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Compile([]RuleSpec{tc.spec}); err == nil {
				t.Fatalf("expected compile error for %+v", tc.spec)
			}
		})
	}
}

func TestCompileDefaultsAreValid(t *testing.T) {
	rules, err := Compile(DefaultRuleSpecs())
	if err != nil {
		t.Fatalf("default specs must compile: %v", err)
	}
	if len(rules) != len(DefaultRuleSpecs()) {
		t.Fatalf("expected %d rules, got %d", len(DefaultRuleSpecs()), len(rules))
	}
	for i, r := range rules {
		switch r.Source {
		case SourceText, SourceImage:
			if r.Operator != OpGreater {
				t.Fatalf("rule %d: expected %q operator, got %q", i, OpGreater, r.Operator)
			}
		case SourceKeyword:
			if r.Operator != OpEquals || !r.Expect {
				t.Fatalf("rule %d: keyword rule misconfigured: %+v", i, r)
			}
		}
	}
}
