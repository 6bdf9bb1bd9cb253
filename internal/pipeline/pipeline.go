// Package pipeline orchestrates one moderation request: fan out to
// the external collaborators, normalize whatever comes back, and join
// on the policy engine. Collaborator failure never fails the request;
// it degrades that modality to its neutral signal and is reported in
// the result's Degraded list.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seemly-ai/seemly/internal/imagemod"
	"github.com/seemly-ai/seemly/internal/keyword"
	"github.com/seemly-ai/seemly/internal/normalize"
	"github.com/seemly-ai/seemly/internal/ocr"
	"github.com/seemly-ai/seemly/internal/policy"
	"github.com/seemly-ai/seemly/internal/signal"
	"github.com/seemly-ai/seemly/internal/textclass"
)

// Timeouts bound each collaborator call independently. A collaborator
// that misses its budget degrades to neutral instead of holding up
// the verdict.
type Timeouts struct {
	OCR           time.Duration
	TextClassify  time.Duration
	ImageModerate time.Duration
}

// Result is everything one moderation run produced.
type Result struct {
	Verdict  policy.Verdict
	Signals  signal.Set
	Text     string
	Degraded []string
	Timings  Timings
}

// Timings are per-stage wall-clock durations in milliseconds.
type Timings struct {
	OCRMs   float64
	TextMs  float64
	ImageMs float64
	TotalMs float64
}

// Orchestrator wires the collaborators to the policy engine.
type Orchestrator struct {
	ocr         ocr.Client
	classifiers map[signal.TextCategory]textclass.Classifier
	imageMod    imagemod.Client
	labels      normalize.PositiveLabels
	keywords    *keyword.Matcher
	rules       []policy.Rule
	timeouts    Timeouts
	logger      *slog.Logger
}

// Config collects the orchestrator's dependencies.
type Config struct {
	OCR         ocr.Client
	Classifiers map[signal.TextCategory]textclass.Classifier
	ImageMod    imagemod.Client
	Labels      normalize.PositiveLabels
	Keywords    *keyword.Matcher
	Rules       []policy.Rule
	Timeouts    Timeouts
	Logger      *slog.Logger
}

// New builds an orchestrator. Missing collaborators default to
// disabled implementations; a nil keyword matcher scans with empty
// lists.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		ocr:         cfg.OCR,
		classifiers: cfg.Classifiers,
		imageMod:    cfg.ImageMod,
		labels:      cfg.Labels,
		keywords:    cfg.Keywords,
		rules:       cfg.Rules,
		timeouts:    cfg.Timeouts,
		logger:      cfg.Logger,
	}
	if o.ocr == nil {
		o.ocr = ocr.Disabled{}
	}
	if o.imageMod == nil {
		o.imageMod = imagemod.Disabled{}
	}
	if o.labels == nil {
		o.labels = normalize.DefaultPositiveLabels()
	}
	if o.keywords == nil {
		o.keywords = keyword.NewMatcher(nil)
	}
	if o.timeouts.OCR <= 0 {
		o.timeouts.OCR = 8 * time.Second
	}
	if o.timeouts.TextClassify <= 0 {
		o.timeouts.TextClassify = 5 * time.Second
	}
	if o.timeouts.ImageModerate <= 0 {
		o.timeouts.ImageModerate = 8 * time.Second
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Moderate runs the full pipeline for one image. OCR and image
// moderation are independent and run concurrently; text
// classification waits on the OCR output (a staged dependency, not a
// race). The call is total: it always returns a verdict.
func (o *Orchestrator) Moderate(ctx context.Context, image []byte) Result {
	start := time.Now()

	var (
		mu       sync.Mutex
		degraded []string
	)
	degrade := func(name string, err error) {
		o.logger.Warn("collaborator degraded to neutral", "collaborator", name, "error", err)
		mu.Lock()
		degraded = append(degraded, name)
		mu.Unlock()
	}

	var (
		text        string
		textSignals []signal.TextSignal
		keywordHits []signal.KeywordHit
		imageRaw    map[string]any
		timings     Timings
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ocrStart := time.Now()
		ocrCtx, cancel := context.WithTimeout(gctx, o.timeouts.OCR)
		defer cancel()
		extracted, err := o.ocr.Extract(ocrCtx, image)
		timings.OCRMs = millis(time.Since(ocrStart))
		if err != nil {
			degrade("ocr", err)
			extracted = ""
		}
		text = extracted

		// Text-derived signals depend on the OCR output, so they run
		// in the same goroutine, after it.
		classStart := time.Now()
		textSignals = o.classifyText(gctx, text, degrade)
		keywordHits = o.keywords.Scan(text)
		timings.TextMs = millis(time.Since(classStart))
		return nil
	})

	g.Go(func() error {
		imgStart := time.Now()
		imgCtx, cancel := context.WithTimeout(gctx, o.timeouts.ImageModerate)
		defer cancel()
		raw, err := o.imageMod.Moderate(imgCtx, image)
		timings.ImageMs = millis(time.Since(imgStart))
		if err != nil {
			degrade("image_moderation", err)
			raw = nil
		}
		imageRaw = raw
		return nil
	})

	// Branches never return errors; they degrade instead.
	_ = g.Wait()

	set := signal.Set{
		Text:    textSignals,
		Image:   normalize.Image(imageRaw),
		Keyword: keywordHits,
	}
	verdict := policy.Evaluate(set, o.rules)
	timings.TotalMs = millis(time.Since(start))

	return Result{
		Verdict:  verdict,
		Signals:  set,
		Text:     text,
		Degraded: degraded,
		Timings:  timings,
	}
}

// classifyText produces one signal per canonical text category. Empty
// text short-circuits to neutral signals without calling any
// classifier: the rules still evaluate, they just cannot fire.
func (o *Orchestrator) classifyText(ctx context.Context, text string, degrade func(string, error)) []signal.TextSignal {
	signals := make([]signal.TextSignal, 0, len(signal.TextCategories))
	for _, cat := range signal.TextCategories {
		clf := o.classifiers[cat]
		if clf == nil || text == "" {
			signals = append(signals, normalize.NeutralText(cat))
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, o.timeouts.TextClassify)
		preds, err := clf.Classify(callCtx, text)
		cancel()
		if err != nil {
			degrade("text_classifier:"+string(cat), err)
			signals = append(signals, normalize.NeutralText(cat))
			continue
		}
		top, ok := textclass.Top(preds)
		if !ok {
			signals = append(signals, normalize.NeutralText(cat))
			continue
		}
		signals = append(signals, normalize.Text(cat, top.Label, top.Score, o.labels))
	}
	return signals
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
