// Package config is the typed configuration surface for the SIEM
// pipeline: defaults, YAML file loading, environment-variable overrides
// (the observable contract named in spec.md §6), and fsnotify-based hot
// reload, grounded on the teacher's engine/config.go (Defaults()) and
// engine/internal/runtime/runtime.go (HotReloadSystem).
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Provider names accepted by LLM_PROVIDER.
const (
	ProviderLocal     = "local"
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Config is the fully resolved configuration for one run of the
// pipeline. Field names mirror the YAML keys; the matching environment
// variable for each is noted alongside.
type Config struct {
	ESHost      string `yaml:"es_host" validate:"required"`       // ES_HOST
	ESPort      int    `yaml:"es_port" validate:"required,gt=0"`  // ES_PORT
	ESUser      string `yaml:"es_user"`                           // ES_USER
	ESPassword  string `yaml:"es_password"`                       // ES_PASSWORD
	ESIndexName string `yaml:"es_index_name" validate:"required"` // ES_INDEX_NAME

	// RedisAddr/RedisPassword/RedisDB are SPEC_FULL.md §6's concretized
	// storage-backend knobs; when RedisAddr is set it overrides the
	// ESHost:ESPort address (§4.6 — the document store is Redis, not
	// Elasticsearch, despite the legacy ES_* names above).
	RedisAddr     string `yaml:"redis_addr"`     // REDIS_ADDR
	RedisPassword string `yaml:"redis_password"` // REDIS_PASSWORD
	RedisDB       int    `yaml:"redis_db"`       // REDIS_DB

	LogSources []string `yaml:"log_sources"` // LOG_SOURCES (comma-separated)

	AnomalyThreshold float64 `yaml:"anomaly_threshold"`             // ANOMALY_THRESHOLD
	TrainingDays     int     `yaml:"training_days" validate:"gt=0"` // TRAINING_DAYS

	AlertWebhook string `yaml:"alert_webhook"` // ALERT_WEBHOOK
	AlertEmail   string `yaml:"alert_email"`   // ALERT_EMAIL

	// AlertSlackWebhook holds a Slack bot OAuth token (xoxb-...), not a
	// webhook URL: alertsink.NewSlackSink posts through slack-go/slack's
	// token-authenticated Web API client (chat.postMessage), which the
	// spec's incoming-webhook-style env var name doesn't make obvious.
	AlertSlackWebhook string `yaml:"alert_slack_webhook"` // ALERT_SLACK_WEBHOOK
	AlertSlackChannel string `yaml:"alert_slack_channel"` // ALERT_SLACK_CHANNEL

	APIKey      string `yaml:"api_key"`      // API_KEY
	MetricsAddr string `yaml:"metrics_addr"` // METRICS_ADDR

	LLMProvider     string `yaml:"llm_provider" validate:"omitempty,oneof=local ollama gemini anthropic"` // LLM_PROVIDER
	OllamaURL       string `yaml:"ollama_url"`        // OLLAMA_URL
	OllamaModel     string `yaml:"ollama_model"`      // OLLAMA_MODEL
	GeminiAPIKey    string `yaml:"gemini_api_key"`    // GEMINI_API_KEY
	AnthropicAPIKey string `yaml:"anthropic_api_key"` // ANTHROPIC_API_KEY
}

// Defaults returns a Config with the spec's documented defaults. Load
// starts from these and fills in the values that have no sane default
// (ESHost, ESIndexName, APIKey, ...).
func Defaults() Config {
	return Config{
		ESPort:           6379,
		ESIndexName:      "siem-events",
		AnomalyThreshold: -0.5,
		TrainingDays:     7,
		LLMProvider:      ProviderLocal,
		OllamaURL:        "http://localhost:11434/api/generate",
		OllamaModel:      "llama3",
		MetricsAddr:      ":9464",
	}
}

var validate = validator.New()

// Load builds a Config by layering, in increasing precedence: built-in
// defaults, an optional YAML file at path (skipped silently if it does
// not exist), then environment variables. The result is validated
// before being returned; a validation failure is a ConfigError and is
// fatal at startup, never during a run (spec.md §7).
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("ES_HOST"); ok {
		cfg.ESHost = v
	}
	if v, ok := os.LookupEnv("ES_PORT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ESPort = n
		}
	}
	if v, ok := os.LookupEnv("ES_USER"); ok {
		cfg.ESUser = v
	}
	if v, ok := os.LookupEnv("ES_PASSWORD"); ok {
		cfg.ESPassword = v
	}
	if v, ok := os.LookupEnv("ES_INDEX_NAME"); ok {
		cfg.ESIndexName = v
	}
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := os.LookupEnv("REDIS_PASSWORD"); ok {
		cfg.RedisPassword = v
	}
	if v, ok := os.LookupEnv("REDIS_DB"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RedisDB = n
		}
	}
	if v, ok := os.LookupEnv("LOG_SOURCES"); ok {
		cfg.LogSources = splitCSV(v)
	}
	if v, ok := os.LookupEnv("ANOMALY_THRESHOLD"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.AnomalyThreshold = f
		}
	}
	if v, ok := os.LookupEnv("TRAINING_DAYS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TrainingDays = n
		}
	}
	if v, ok := os.LookupEnv("ALERT_WEBHOOK"); ok {
		cfg.AlertWebhook = v
	}
	if v, ok := os.LookupEnv("ALERT_EMAIL"); ok {
		cfg.AlertEmail = v
	}
	if v, ok := os.LookupEnv("ALERT_SLACK_WEBHOOK"); ok {
		cfg.AlertSlackWebhook = v
	}
	if v, ok := os.LookupEnv("ALERT_SLACK_CHANNEL"); ok {
		cfg.AlertSlackChannel = v
	}
	if v, ok := os.LookupEnv("API_KEY"); ok {
		cfg.APIKey = v
	}
	if v, ok := os.LookupEnv("METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := os.LookupEnv("LLM_PROVIDER"); ok {
		cfg.LLMProvider = v
	}
	if v, ok := os.LookupEnv("OLLAMA_URL"); ok {
		cfg.OllamaURL = v
	}
	if v, ok := os.LookupEnv("OLLAMA_MODEL"); ok {
		cfg.OllamaModel = v
	}
	if v, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
		cfg.GeminiAPIKey = v
	}
	if v, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok {
		cfg.AnthropicAPIKey = v
	}
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Watcher reloads Config from a file whenever it changes on disk, the
// same role as the teacher's HotReloadSystem but trimmed to this
// package's single Config type (no version history, no A/B testing
// surface — this domain only needs "new config arrived").
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	log     *slog.Logger
}

// NewWatcher starts watching the directory containing path for writes to
// path itself.
func NewWatcher(path string, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("config: watch %s: %w", filepath.Dir(path), err)
	}
	return &Watcher{path: path, watcher: w, log: log}, nil
}

// Watch emits a newly loaded Config on the returned channel every time
// path is written, until ctx is cancelled. Reload failures are logged
// and do not close the channel or affect the previously loaded Config —
// a bad edit during a run is not a ConfigError, it is ignored until the
// file is fixed.
func (w *Watcher) Watch(ctx context.Context) <-chan Config {
	out := make(chan Config, 1)
	go func() {
		defer close(out)
		defer w.watcher.Close()
		for {
			select {
			case ev, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if ev.Name != w.path || ev.Op&fsnotify.Write != fsnotify.Write {
					continue
				}
				cfg, err := Load(w.path)
				if err != nil {
					w.log.Warn("config reload failed, keeping previous configuration", "error", err)
					continue
				}
				out <- cfg
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.Warn("config watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Close stops the underlying file watcher without waiting for Watch's
// goroutine to observe ctx cancellation.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
