package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the kbsearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Supported index drivers.
const (
	DriverQdrant = "qdrant"
	DriverRedis  = "redis"
)

// DatabaseConfig holds vector index connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // qdrant, redis (default: qdrant)
	Addrs            []string `yaml:"addrs"`
	APIKey           string   `yaml:"api_key"` // qdrant only
	TLS              bool     `yaml:"tls"`     // qdrant only
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	Collection       string   `yaml:"collection"` // default: PassportKnowledgeBase
	KeyPrefix        string   `yaml:"key_prefix"` // redis only
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	// VectorNames overrides the named vector per field (title, summary, chunk).
	VectorNames map[string]string `yaml:"vector_names"`
}

// EmbeddingConfig holds the query embedding provider settings.
type EmbeddingConfig struct {
	Provider         string          `yaml:"provider"` // metrics label only
	BaseURL          string          `yaml:"base_url"`
	APIKey           string          `yaml:"api_key"`
	Model            string          `yaml:"model"`
	Dimensions       int             `yaml:"dimensions"`
	QueryInstruction string          `yaml:"query_instruction"`
	User             string          `yaml:"user"`
	RateLimit        RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig bounds outbound embedding requests. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// RetrievalConfig holds ranking settings.
type RetrievalConfig struct {
	Strategy  string         `yaml:"strategy"` // weighted, cascade (default: weighted)
	TimeoutMs int            `yaml:"timeout_ms"`
	TopN      int            `yaml:"top_n"`
	Weighted  WeightedConfig `yaml:"weighted"`
	Cascade   CascadeConfig  `yaml:"cascade"`
}

// WeightedConfig holds per-field weights and limits for weighted fusion.
type WeightedConfig struct {
	Weights      WeightsConfig `yaml:"weights"`
	TitleLimit   int           `yaml:"title_limit"`
	SummaryLimit int           `yaml:"summary_limit"`
	ChunkLimit   int           `yaml:"chunk_limit"`
	AllowPartial bool          `yaml:"allow_partial"`
}

// WeightsConfig holds field weights. All zero means defaults.
type WeightsConfig struct {
	Title   float64 `yaml:"title"`
	Summary float64 `yaml:"summary"`
	Chunk   float64 `yaml:"chunk"`
}

// CascadeConfig holds stage limits and filter keys for the cascade.
type CascadeConfig struct {
	TitleLimit   int    `yaml:"title_limit"`
	SummaryLimit int    `yaml:"summary_limit"`
	SummaryKeep  int    `yaml:"summary_keep"`
	ChunkLimit   int    `yaml:"chunk_limit"`
	ChunkKeep    int    `yaml:"chunk_keep"`
	TitleKey     string `yaml:"title_key"`
	SummaryKey   string `yaml:"summary_key"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	c.Database.applyDefaults()
	c.Embedding.applyDefaults()
	c.Retrieval.applyDefaults()
}

func (d *DatabaseConfig) applyDefaults() {
	if d.Driver == "" {
		d.Driver = DriverQdrant
	}
	if d.ReadinessTimeout <= 0 {
		d.ReadinessTimeout = 10
	}
	if d.Driver == DriverRedis && d.KeyPrefix == "" {
		d.KeyPrefix = "kb:"
	}
}

func (e *EmbeddingConfig) applyDefaults() {
	if e.Provider == "" {
		e.Provider = "openai"
	}
	if e.RateLimit.RPS > 0 && e.RateLimit.Burst <= 0 {
		e.RateLimit.Burst = 1
	}
}

func (r *RetrievalConfig) applyDefaults() {
	if r.Strategy == "" {
		r.Strategy = "weighted"
	}
	if r.TimeoutMs <= 0 {
		r.TimeoutMs = 5000
	}
	if r.TopN <= 0 {
		r.TopN = 3
	}

	w := &r.Weighted
	if w.Weights == (WeightsConfig{}) {
		w.Weights = WeightsConfig{Title: 0.9, Summary: 0.05, Chunk: 0.05}
	}
	setDefault(&w.TitleLimit, 3)
	setDefault(&w.SummaryLimit, 25)
	setDefault(&w.ChunkLimit, 25)

	cc := &r.Cascade
	setDefault(&cc.TitleLimit, 3)
	setDefault(&cc.SummaryLimit, 3)
	setDefault(&cc.SummaryKeep, 5)
	setDefault(&cc.ChunkLimit, 1)
	setDefault(&cc.ChunkKeep, 2)
	if cc.TitleKey == "" {
		cc.TitleKey = "title"
	}
	if cc.SummaryKey == "" {
		cc.SummaryKey = "summary"
	}
}

func setDefault(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverQdrant, DriverRedis:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverQdrant, DriverRedis, c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	for name := range c.Database.VectorNames {
		switch name {
		case "title", "summary", "chunk":
		default:
			return fmt.Errorf("database.vector_names: unknown field %q", name)
		}
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.RateLimit.RPS < 0 {
		return fmt.Errorf("embedding.rate_limit.rps must not be negative, got %v", c.Embedding.RateLimit.RPS)
	}
	switch c.Retrieval.Strategy {
	case "weighted", "cascade":
	default:
		return fmt.Errorf("retrieval.strategy must be \"weighted\" or \"cascade\", got %q", c.Retrieval.Strategy)
	}
	w := c.Retrieval.Weighted.Weights
	if w.Title < 0 || w.Summary < 0 || w.Chunk < 0 {
		return fmt.Errorf("retrieval.weighted.weights must not be negative, got %+v", w)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
