package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/seemly-ai/seemly/internal/policy"
)

// Config holds Seemly configuration.
type Config struct {
	Server          Server                    `yaml:"server"`
	Logging         Logging                   `yaml:"logging"`
	Limits          Limits                    `yaml:"limits"`
	Projects        []Project                 `yaml:"projects"`
	OCR             OCR                       `yaml:"ocr"`
	TextClassifiers map[string]TextClassifier `yaml:"text_classifiers"`
	ImageModeration ImageModeration           `yaml:"image_moderation"`
	Keywords        map[string][]string       `yaml:"keywords"`
	Policy          Policy                    `yaml:"policy"`
	Audit           Audit                     `yaml:"audit"`
	Telemetry       Telemetry                 `yaml:"telemetry"`
}

type Server struct {
	Addr string `yaml:"addr"` // HTTP listen address, e.g. ":8085"
}

type Logging struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

type Limits struct {
	MaxImageBytes    int64 `yaml:"max_image_bytes"`
	RequestTimeoutMS int   `yaml:"request_timeout_ms"`
	StoreTTLMinutes  int   `yaml:"store_ttl_minutes"`
}

// Project binds API keys to a caller identity. When no projects are
// configured the API runs unauthenticated.
type Project struct {
	ID      string   `yaml:"id"`
	APIKeys []string `yaml:"api_keys"`
}

// OCR configures the text-extraction collaborator. An empty
// api_key_env disables OCR; the pipeline then treats every image as
// having no embedded text.
type OCR struct {
	Provider  string `yaml:"provider"` // ocrspace | none
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Language  string `yaml:"language"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// TextClassifier configures one per-category text classifier. The map
// key in Config.TextClassifiers is the text category it scores.
type TextClassifier struct {
	Type           string   `yaml:"type"` // http | onnx | none
	BaseURL        string   `yaml:"base_url"`
	APIKeyEnv      string   `yaml:"api_key_env"`
	TimeoutMS      int      `yaml:"timeout_ms"`
	PositiveLabels []string `yaml:"positive_labels"`
	BundleDir      string   `yaml:"bundle_dir"` // onnx only
	SeqLen         int      `yaml:"seq_len"`    // onnx only
}

// ImageModeration configures the per-category image scoring
// collaborator.
type ImageModeration struct {
	Type         string   `yaml:"type"` // sightengine | none
	BaseURL      string   `yaml:"base_url"`
	APIUserEnv   string   `yaml:"api_user_env"`
	APISecretEnv string   `yaml:"api_secret_env"`
	Models       []string `yaml:"models"`
	TimeoutMS    int      `yaml:"timeout_ms"`
}

// Policy carries the ordered rule list. Order is significant: it is
// both the evaluation order and the reason-list order.
type Policy struct {
	Rules []policy.RuleSpec `yaml:"rules"`
}

type Audit struct {
	QueueSize int         `yaml:"queue_size"`
	Workers   int         `yaml:"workers"`
	Sinks     []AuditSink `yaml:"sinks"`
}

type AuditSink struct {
	Type      string            `yaml:"type"` // file_jsonl | webhook
	Path      string            `yaml:"path"`
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
	TimeoutMS int               `yaml:"timeout_ms"`
}

type Telemetry struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // grpc | http
	Service  string `yaml:"service"`
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns the default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8085"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Limits.MaxImageBytes <= 0 {
		cfg.Limits.MaxImageBytes = 10 << 20
	}
	if cfg.Limits.RequestTimeoutMS <= 0 {
		cfg.Limits.RequestTimeoutMS = 15000
	}
	if cfg.Limits.StoreTTLMinutes <= 0 {
		cfg.Limits.StoreTTLMinutes = 30
	}

	if cfg.OCR.Provider == "" {
		cfg.OCR.Provider = "ocrspace"
	}
	if cfg.OCR.BaseURL == "" {
		cfg.OCR.BaseURL = "https://api.ocr.space/parse/image"
	}
	if cfg.OCR.Language == "" {
		cfg.OCR.Language = "eng"
	}
	if cfg.OCR.TimeoutMS <= 0 {
		cfg.OCR.TimeoutMS = 8000
	}

	for name, tc := range cfg.TextClassifiers {
		if tc.Type == "" {
			tc.Type = "http"
		}
		if tc.TimeoutMS <= 0 {
			tc.TimeoutMS = 5000
		}
		if tc.SeqLen <= 0 {
			tc.SeqLen = 256
		}
		cfg.TextClassifiers[name] = tc
	}

	if cfg.ImageModeration.Type == "" {
		cfg.ImageModeration.Type = "sightengine"
	}
	if cfg.ImageModeration.BaseURL == "" {
		cfg.ImageModeration.BaseURL = "https://api.sightengine.com/1.0/check.json"
	}
	if len(cfg.ImageModeration.Models) == 0 {
		cfg.ImageModeration.Models = []string{"nudity", "weapon", "violence", "gore", "offensive"}
	}
	if cfg.ImageModeration.TimeoutMS <= 0 {
		cfg.ImageModeration.TimeoutMS = 8000
	}

	if len(cfg.Policy.Rules) == 0 {
		cfg.Policy.Rules = policy.DefaultRuleSpecs()
	}

	if cfg.Audit.QueueSize <= 0 {
		cfg.Audit.QueueSize = 1000
	}
	if cfg.Audit.Workers <= 0 {
		cfg.Audit.Workers = 1
	}

	if cfg.Telemetry.Service == "" {
		cfg.Telemetry.Service = "seemly"
	}
}
