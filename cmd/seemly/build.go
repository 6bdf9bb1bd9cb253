package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/seemly-ai/seemly/internal/audit"
	"github.com/seemly-ai/seemly/internal/config"
	"github.com/seemly-ai/seemly/internal/imagemod"
	"github.com/seemly-ai/seemly/internal/keyword"
	"github.com/seemly-ai/seemly/internal/normalize"
	"github.com/seemly-ai/seemly/internal/ocr"
	"github.com/seemly-ai/seemly/internal/pipeline"
	"github.com/seemly-ai/seemly/internal/policy"
	"github.com/seemly-ai/seemly/internal/signal"
	"github.com/seemly-ai/seemly/internal/textclass"
)

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// buildOrchestrator assembles the moderation pipeline from config.
// Collaborators whose credentials are absent come up disabled rather
// than failing startup.
func buildOrchestrator(cfg *config.Config, logger *slog.Logger) (*pipeline.Orchestrator, error) {
	rules, err := policy.Compile(cfg.Policy.Rules)
	if err != nil {
		return nil, fmt.Errorf("compile policy rules: %w", err)
	}

	var ocrClient ocr.Client = ocr.Disabled{}
	if cfg.OCR.Provider == "ocrspace" {
		if key := envValue(cfg.OCR.APIKeyEnv); key != "" {
			ocrClient = ocr.NewSpaceClient(cfg.OCR.BaseURL, key, cfg.OCR.Language,
				time.Duration(cfg.OCR.TimeoutMS)*time.Millisecond)
		} else {
			logger.Warn("ocr disabled, api key env is empty", "env", cfg.OCR.APIKeyEnv)
		}
	}

	classifiers := make(map[signal.TextCategory]textclass.Classifier)
	labels := normalize.DefaultPositiveLabels()
	for name, tc := range cfg.TextClassifiers {
		cat := signal.TextCategory(name)
		switch tc.Type {
		case "http":
			classifiers[cat] = textclass.NewHTTPClassifier(tc.BaseURL, envValue(tc.APIKeyEnv),
				time.Duration(tc.TimeoutMS)*time.Millisecond)
		case "onnx":
			clf, err := textclass.LoadONNXClassifier(tc.BundleDir, tc.SeqLen)
			if err != nil {
				logger.Warn("onnx classifier unavailable, category degrades to neutral",
					"category", name, "error", err)
				continue
			}
			classifiers[cat] = clf
		case "none":
			continue
		}
		if len(tc.PositiveLabels) > 0 {
			labels[cat] = tc.PositiveLabels
		}
	}

	var imageClient imagemod.Client = imagemod.Disabled{}
	if cfg.ImageModeration.Type == "sightengine" {
		user := envValue(cfg.ImageModeration.APIUserEnv)
		secret := envValue(cfg.ImageModeration.APISecretEnv)
		if user != "" && secret != "" {
			imageClient = imagemod.NewSightengineClient(cfg.ImageModeration.BaseURL, user, secret,
				cfg.ImageModeration.Models,
				time.Duration(cfg.ImageModeration.TimeoutMS)*time.Millisecond)
		} else {
			logger.Warn("image moderation disabled, credentials are empty")
		}
	}

	lists := keyword.DefaultLists()
	if len(cfg.Keywords) > 0 {
		lists = make(keyword.Lists, len(cfg.Keywords))
		for name, phrases := range cfg.Keywords {
			lists[signal.KeywordCategory(name)] = phrases
		}
	}

	return pipeline.New(pipeline.Config{
		OCR:         ocrClient,
		Classifiers: classifiers,
		ImageMod:    imageClient,
		Labels:      labels,
		Keywords:    keyword.NewMatcher(lists),
		Rules:       rules,
		Timeouts: pipeline.Timeouts{
			OCR:           time.Duration(cfg.OCR.TimeoutMS) * time.Millisecond,
			ImageModerate: time.Duration(cfg.ImageModeration.TimeoutMS) * time.Millisecond,
		},
		Logger: logger,
	}), nil
}

func buildAuditEmitter(cfg *config.Config, logger *slog.Logger) (*audit.Emitter, error) {
	if len(cfg.Audit.Sinks) == 0 {
		return nil, nil
	}
	sinks := make([]audit.Sink, 0, len(cfg.Audit.Sinks))
	for _, sc := range cfg.Audit.Sinks {
		switch sc.Type {
		case "file_jsonl":
			sink, err := audit.NewFileSink(sc.Path)
			if err != nil {
				return nil, fmt.Errorf("audit file sink: %w", err)
			}
			sinks = append(sinks, sink)
		case "webhook":
			sink, err := audit.NewWebhookSink(sc.URL, sc.Headers,
				time.Duration(sc.TimeoutMS)*time.Millisecond)
			if err != nil {
				return nil, fmt.Errorf("audit webhook sink: %w", err)
			}
			sinks = append(sinks, sink)
		default:
			return nil, fmt.Errorf("unknown audit sink type %q", sc.Type)
		}
	}
	return audit.NewEmitter(audit.EmitterConfig{
		QueueSize: cfg.Audit.QueueSize,
		Workers:   cfg.Audit.Workers,
		Logger:    logger,
	}, sinks), nil
}

func envValue(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
