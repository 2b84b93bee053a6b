// Package config loads runtime settings from defaults, an optional YAML
// file, .env files and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/your-org/genie/internal/coordinator"
	"github.com/your-org/genie/internal/registry"
)

// Config is the full runtime configuration. Env tags carry no defaults so
// that unset variables keep the value from Default or the YAML file.
type Config struct {
	Port         int    `yaml:"port" env:"PORT"`
	Environment  string `yaml:"environment" env:"GENIE_ENV"`
	ModelsPath   string `yaml:"models_path" env:"MODELS_PATH"`
	OutputDir    string `yaml:"output_dir" env:"OUTPUT_DIR"`
	AuditLogPath string `yaml:"audit_log_path" env:"AUDIT_LOG_PATH"`

	Log     LogConfig     `yaml:"log"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Gemini  GeminiConfig  `yaml:"gemini"`
	Ollama  OllamaConfig  `yaml:"ollama"`
	Lock    LockConfig    `yaml:"registry_lock"`
	Metrics MetricsConfig `yaml:"metrics"`
	Trace   TraceConfig   `yaml:"trace"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL string `yaml:"base_url" env:"OPENAI_BASE_URL"`
}

type GeminiConfig struct {
	APIKey   string `yaml:"api_key" env:"GEMINI_API_KEY"`
	BaseURL  string `yaml:"base_url" env:"GEMINI_BASE_URL"`
	ProxyURL string `yaml:"proxy_url" env:"PROXY_URL"`
}

type OllamaConfig struct {
	// BaseURL is the server listed by the installed-models endpoint.
	BaseURL    string `yaml:"base_url" env:"OLLAMA_BASE_URL"`
	Host       string `yaml:"host" env:"OLLAMA_HOST"`
	LocalHost  string `yaml:"local_host" env:"OLLAMA_LOCAL_HOST"`
	Port       int    `yaml:"port" env:"OLLAMA_PORT"`
	NumContext int    `yaml:"num_context_window" env:"NUM_CONTEXT_WINDOW"`
}

type LockConfig struct {
	Mode     string        `yaml:"mode" env:"REGISTRY_LOCK_MODE"`
	Dir      string        `yaml:"dir" env:"REGISTRY_LOCK_DIR"`
	RedisURL string        `yaml:"redis_url" env:"REGISTRY_LOCK_REDIS_URL"`
	TTL      time.Duration `yaml:"ttl" env:"REGISTRY_LOCK_TTL"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
	Addr    string `yaml:"addr" env:"METRICS_ADDR"`
}

type TraceConfig struct {
	Enabled  bool   `yaml:"enabled" env:"TRACE_ENABLED"`
	Endpoint string `yaml:"endpoint" env:"TRACE_ENDPOINT"`
	Insecure bool   `yaml:"insecure" env:"TRACE_INSECURE"`
	// SampleRatio of root spans to keep; 1 keeps all.
	SampleRatio float64 `yaml:"sample_ratio" env:"TRACE_SAMPLE_RATIO"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Port:        8081,
		Environment: registry.EnvLocal,
		ModelsPath:  "data/models.json",
		Log:         LogConfig{Level: "info", Format: "console"},
		Ollama: OllamaConfig{
			BaseURL:   "http://127.0.0.1:11434",
			LocalHost: "localhost",
			Port:      registry.DefaultOllamaPort,
		},
		Lock:    LockConfig{Mode: string(coordinator.ModeNone), TTL: 10 * time.Second},
		Metrics: MetricsConfig{Addr: ":2112"},
		Trace:   TraceConfig{Insecure: true, SampleRatio: 1},
	}
}

// Load builds the configuration. path may be empty; dotenv files that do
// not exist are skipped and never override variables already set.
func Load(path string, dotenvFiles ...string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := mergeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	// NODE_ENV is honoured for deployments written against the older name.
	if _, ok := os.LookupEnv("GENIE_ENV"); !ok {
		if v := strings.TrimSpace(os.Getenv("NODE_ENV")); v != "" {
			cfg.Environment = v
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Lock.Mode = strings.ToLower(strings.TrimSpace(c.Lock.Mode))
	if c.Ollama.Port <= 0 {
		c.Ollama.Port = registry.DefaultOllamaPort
	}
}

// Validate rejects settings the process cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.Environment {
	case registry.EnvLocal, registry.EnvDocker:
	default:
		errs = append(errs, fmt.Errorf("environment must be %q or %q, got %q", registry.EnvLocal, registry.EnvDocker, c.Environment))
	}
	if strings.TrimSpace(c.ModelsPath) == "" {
		errs = append(errs, errors.New("models path is empty"))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be console or json, got %q", c.Log.Format))
	}
	mode, err := coordinator.ParseMode(c.Lock.Mode)
	if err != nil {
		errs = append(errs, err)
	}
	if mode == coordinator.ModeRedis && strings.TrimSpace(c.Lock.RedisURL) == "" {
		errs = append(errs, errors.New("registry lock mode redis requires REGISTRY_LOCK_REDIS_URL"))
	}
	if c.Trace.SampleRatio < 0 || c.Trace.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("trace sample ratio must be within [0, 1], got %g", c.Trace.SampleRatio))
	}
	if c.Ollama.NumContext < 0 {
		errs = append(errs, fmt.Errorf("num context window must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// EndpointResolver returns the local endpoint rule for this deployment.
func (c Config) EndpointResolver() registry.EndpointResolver {
	return registry.EndpointResolver{
		Environment: c.Environment,
		Host:        c.Ollama.Host,
		LocalHost:   c.Ollama.LocalHost,
		DefaultPort: c.Ollama.Port,
	}
}
