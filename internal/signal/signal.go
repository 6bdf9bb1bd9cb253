package signal

// TextCategory identifies a harm category scored from OCR-extracted text.
type TextCategory string

const (
	TextToxicity  TextCategory = "toxicity"
	TextSelfHarm  TextCategory = "self_harm"
	TextHate      TextCategory = "hate"
	TextSexual    TextCategory = "sexual"
	TextProfanity TextCategory = "profanity"
	TextSentiment TextCategory = "sentiment"
)

// ImageCategory identifies a harm category scored directly from image pixels.
type ImageCategory string

const (
	ImageNudityRaw      ImageCategory = "nudity_raw"
	ImageSexualActivity ImageCategory = "sexual_activity"
	ImageSexualDisplay  ImageCategory = "sexual_display"
	ImageWeapon         ImageCategory = "weapon"
	ImageViolence       ImageCategory = "violence"
	ImageGore           ImageCategory = "gore"
	ImageOffensive      ImageCategory = "offensive"
)

// KeywordCategory identifies a lexical phrase-list category.
type KeywordCategory string

const (
	KeywordProfanity KeywordCategory = "profanity"
	KeywordHate      KeywordCategory = "hate"
	KeywordSelfHarm  KeywordCategory = "self_harm"
	KeywordSexual    KeywordCategory = "sexual"
)

// TextCategories lists all text categories in their canonical order.
var TextCategories = []TextCategory{
	TextToxicity,
	TextSelfHarm,
	TextHate,
	TextSexual,
	TextProfanity,
	TextSentiment,
}

// ImageCategories lists all image categories in their canonical order.
var ImageCategories = []ImageCategory{
	ImageNudityRaw,
	ImageSexualActivity,
	ImageSexualDisplay,
	ImageWeapon,
	ImageViolence,
	ImageGore,
	ImageOffensive,
}

// KeywordCategories lists all keyword categories in their canonical order.
var KeywordCategories = []KeywordCategory{
	KeywordProfanity,
	KeywordHate,
	KeywordSelfHarm,
	KeywordSexual,
}

// TextSignal is one normalized text-classification result.
// Score is always present; a request with no OCR text carries
// score 0.0 and matched=false for every category.
type TextSignal struct {
	Category TextCategory `json:"category"`
	Score    float32      `json:"score"`
	Matched  bool         `json:"matched"`
}

// ImageSignal is one normalized image-moderation probability.
// Categories missing from the upstream response are emitted with
// score 0.0, never omitted.
type ImageSignal struct {
	Category ImageCategory `json:"category"`
	Score    float32       `json:"score"`
}

// KeywordHit is the boolean outcome of one phrase-list scan.
type KeywordHit struct {
	Category KeywordCategory `json:"category"`
	Matched  bool            `json:"matched"`
}

// Set groups every signal produced for a single moderation request.
// Signals are immutable snapshots of upstream responses at
// normalization time.
type Set struct {
	Text    []TextSignal  `json:"text"`
	Image   []ImageSignal `json:"image"`
	Keyword []KeywordHit  `json:"keyword"`
}

// TextSignal returns the signal for the given category, if present.
func (s Set) TextSignal(cat TextCategory) (TextSignal, bool) {
	for _, t := range s.Text {
		if t.Category == cat {
			return t, true
		}
	}
	return TextSignal{}, false
}

// ImageSignal returns the signal for the given category, if present.
func (s Set) ImageSignal(cat ImageCategory) (ImageSignal, bool) {
	for _, i := range s.Image {
		if i.Category == cat {
			return i, true
		}
	}
	return ImageSignal{}, false
}

// KeywordHit returns the hit for the given category, if present.
func (s Set) KeywordHit(cat KeywordCategory) (KeywordHit, bool) {
	for _, k := range s.Keyword {
		if k.Category == cat {
			return k, true
		}
	}
	return KeywordHit{}, false
}

// Scores flattens every signal into a source-qualified score map for
// audit events and API responses.
func (s Set) Scores() map[string]float32 {
	out := make(map[string]float32, len(s.Text)+len(s.Image)+len(s.Keyword))
	for _, t := range s.Text {
		out["text."+string(t.Category)] = t.Score
	}
	for _, i := range s.Image {
		out["image."+string(i.Category)] = i.Score
	}
	for _, k := range s.Keyword {
		v := float32(0)
		if k.Matched {
			v = 1
		}
		out["keyword."+string(k.Category)] = v
	}
	return out
}
