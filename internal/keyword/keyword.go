// Package keyword is the lexical fallback signal source: curated
// phrase lists scanned against lowercased text. It makes no network
// or model calls and is usable standalone or alongside classifier
// signals.
package keyword

import (
	"strings"

	"github.com/seemly-ai/seemly/internal/signal"
)

// Lists maps a keyword category to its ordered phrase list.
type Lists map[signal.KeywordCategory][]string

// Matcher scans text against per-category phrase lists. Matching is
// substring containment over the lowercased input, not tokenized:
// "die" inside "diet" matches. That precision trade-off is accepted
// policy, asserted in tests, and must not be silently "fixed".
type Matcher struct {
	lists Lists
}

// NewMatcher normalizes the phrase lists (lowercase, trimmed,
// deduplicated, order preserved) and returns a matcher.
func NewMatcher(lists Lists) *Matcher {
	normalized := make(Lists, len(lists))
	for cat, phrases := range lists {
		normalized[cat] = normalizePhrases(phrases)
	}
	return &Matcher{lists: normalized}
}

// Scan emits one hit per canonical keyword category, in canonical
// order. Empty text yields matched=false everywhere. Deterministic
// and pure.
func (m *Matcher) Scan(text string) []signal.KeywordHit {
	lc := strings.ToLower(text)
	hits := make([]signal.KeywordHit, 0, len(signal.KeywordCategories))
	for _, cat := range signal.KeywordCategories {
		hits = append(hits, signal.KeywordHit{
			Category: cat,
			Matched:  lc != "" && m.matches(cat, lc),
		})
	}
	return hits
}

func (m *Matcher) matches(cat signal.KeywordCategory, lowered string) bool {
	for _, phrase := range m.lists[cat] {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

func normalizePhrases(phrases []string) []string {
	seen := make(map[string]struct{}, len(phrases))
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		lp := strings.ToLower(strings.TrimSpace(p))
		if lp == "" {
			continue
		}
		if _, dup := seen[lp]; dup {
			continue
		}
		seen[lp] = struct{}{}
		out = append(out, lp)
	}
	return out
}

// DefaultLists is a small starter set; production deployments are
// expected to supply their own curated lists via config.
func DefaultLists() Lists {
	return Lists{
		signal.KeywordProfanity: {"fuck", "shit", "bitch", "asshole"},
		signal.KeywordHate:      {"kill you", "i hate you", "go to hell", "deserve to die"},
		signal.KeywordSelfHarm:  {"kill myself", "end my life", "want to die", "suicide", "self harm"},
		signal.KeywordSexual:    {"nude", "porn", "explicit"},
	}
}
