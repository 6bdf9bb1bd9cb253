package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/seemly-ai/seemly/internal/policy"
)

// Validate checks the loaded config for required fields and
// type-consistent values. It runs once at startup: a malformed
// threshold or sink must fail here, never per-request.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", cfg.Logging.Level)
	}

	seenIDs := make(map[string]struct{})
	seenKeys := make(map[string]string)
	for _, p := range cfg.Projects {
		if strings.TrimSpace(p.ID) == "" {
			return errors.New("project id must be set")
		}
		if _, dup := seenIDs[p.ID]; dup {
			return fmt.Errorf("duplicate project id %q", p.ID)
		}
		seenIDs[p.ID] = struct{}{}
		if len(p.APIKeys) == 0 {
			return fmt.Errorf("project %q must define at least one api_keys entry", p.ID)
		}
		for _, key := range p.APIKeys {
			if other, dup := seenKeys[key]; dup {
				return fmt.Errorf("api key shared between projects %q and %q", other, p.ID)
			}
			seenKeys[key] = p.ID
		}
	}

	if err := validateOCR(cfg.OCR); err != nil {
		return err
	}

	for category, tc := range cfg.TextClassifiers {
		if err := validateTextClassifier(category, tc); err != nil {
			return err
		}
	}

	if err := validateImageModeration(cfg.ImageModeration); err != nil {
		return err
	}

	// Rule compilation is the authority on threshold/operator
	// consistency; running it here keeps all startup failures in one
	// pass.
	if _, err := policy.Compile(cfg.Policy.Rules); err != nil {
		return err
	}

	if err := validateAudit(cfg.Audit); err != nil {
		return err
	}

	if err := validateTelemetry(cfg.Telemetry); err != nil {
		return err
	}

	return nil
}

func validateOCR(o OCR) error {
	switch strings.ToLower(strings.TrimSpace(o.Provider)) {
	case "ocrspace":
		return validateHTTPURL("ocr.base_url", o.BaseURL)
	case "none":
		return nil
	default:
		return fmt.Errorf("ocr.provider must be ocrspace or none, got %q", o.Provider)
	}
}

func validateTextClassifier(category string, tc TextClassifier) error {
	switch strings.ToLower(strings.TrimSpace(tc.Type)) {
	case "http":
		if strings.TrimSpace(tc.BaseURL) == "" {
			return fmt.Errorf("text_classifiers.%s: http classifier requires base_url", category)
		}
		return validateHTTPURL("text_classifiers."+category+".base_url", tc.BaseURL)
	case "onnx":
		if strings.TrimSpace(tc.BundleDir) == "" {
			return fmt.Errorf("text_classifiers.%s: onnx classifier requires bundle_dir", category)
		}
		return nil
	case "none":
		return nil
	default:
		return fmt.Errorf("text_classifiers.%s: type must be http, onnx or none, got %q", category, tc.Type)
	}
}

func validateImageModeration(im ImageModeration) error {
	switch strings.ToLower(strings.TrimSpace(im.Type)) {
	case "sightengine":
		return validateHTTPURL("image_moderation.base_url", im.BaseURL)
	case "none":
		return nil
	default:
		return fmt.Errorf("image_moderation.type must be sightengine or none, got %q", im.Type)
	}
}

func validateAudit(a Audit) error {
	for i, s := range a.Sinks {
		switch strings.ToLower(strings.TrimSpace(s.Type)) {
		case "file_jsonl":
			if strings.TrimSpace(s.Path) == "" {
				return fmt.Errorf("audit sink %d (file_jsonl) missing path", i)
			}
		case "webhook":
			if strings.TrimSpace(s.URL) == "" {
				return fmt.Errorf("audit sink %d (webhook) missing url", i)
			}
			if err := validateHTTPURL(fmt.Sprintf("audit sink %d url", i), s.URL); err != nil {
				return err
			}
		default:
			return fmt.Errorf("audit sink %d has unknown type %q", i, s.Type)
		}
	}
	return nil
}

func validateTelemetry(t Telemetry) error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return errors.New("telemetry enabled but endpoint is empty")
	}
	if t.Protocol != "" {
		switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
		case "grpc", "http":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", t.Protocol)
		}
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s is not a valid URL", field)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be http or https", field)
	}
	return nil
}
