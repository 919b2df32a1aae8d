package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/sweetpotato0/govassist/pkg/logging"
)

// EnvPrefix is prepended to every environment override, e.g.
// GOVASSIST_SERVER_ADDR or GOVASSIST_GENERATION_MODELS.
const EnvPrefix = "GOVASSIST"

// Config is the complete runtime configuration of the assistant.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Generation GenerationConfig `mapstructure:"generation"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Index      IndexConfig      `mapstructure:"index"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Advisor    AdvisorConfig    `mapstructure:"advisor"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// GenerationConfig configures the chat backend and the model fallback chain.
type GenerationConfig struct {
	Provider       string        `mapstructure:"provider"` // openai | claude
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Referer        string        `mapstructure:"referer"`
	Title          string        `mapstructure:"title"`
	Models         []string      `mapstructure:"models"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	Backoff        string        `mapstructure:"backoff"` // constant | exponential
	Wait           time.Duration `mapstructure:"wait"`
	MaxWait        time.Duration `mapstructure:"max_wait"`
}

// EmbeddingConfig configures the query embedding endpoint.
type EmbeddingConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// IndexConfig selects where service collections live.
type IndexConfig struct {
	Backend string `mapstructure:"backend"` // file | postgres
	// Dir holds one <service>.json index file per collection when Backend is file.
	Dir string `mapstructure:"dir"`
	// TablePrefix names the pgvector tables (<prefix><service>) when Backend is postgres.
	TablePrefix string `mapstructure:"table_prefix"`
}

// PostgresConfig holds the pgvector connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig configures the optional query embedding cache.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// PipelineConfig tunes retrieval and synthesis.
type PipelineConfig struct {
	DefaultTopK   int `mapstructure:"default_top_k"`
	MaxTopK       int `mapstructure:"max_top_k"`
	PassageTokens int `mapstructure:"passage_tokens"`
	// Tokenizer is "simple" or a tiktoken encoding name such as cl100k_base.
	Tokenizer string `mapstructure:"tokenizer"`
}

// AdvisorConfig points at a trained next-step model. Empty uses the embedded default.
type AdvisorConfig struct {
	ModelPath string `mapstructure:"model_path"`
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	// Endpoint is the OTLP gRPC collector. Empty falls back to OTEL_EXPORTER_OTLP_ENDPOINT,
	// then to the stdout exporter.
	Endpoint string `mapstructure:"endpoint"`
}

// DefaultModels is the free-tier OpenRouter list tried in order.
var DefaultModels = []string{
	"xiaomi/mimo-v2-flash:free",
	"mistralai/devstral-2-2512:free",
	"tngtech/deepseek-r1t2-chimera:free",
	"tngtech/deepseek-r1t-chimera:free",
	"zhipu-ai/glm-4.5-air:free",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("generation.provider", "openai")
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.base_url", "https://openrouter.ai/api/v1/")
	v.SetDefault("generation.referer", "http://localhost:8000")
	v.SetDefault("generation.title", "Kerala Government Services Assistant")
	v.SetDefault("generation.models", DefaultModels)
	v.SetDefault("generation.temperature", 0.3)
	v.SetDefault("generation.max_tokens", 512)
	v.SetDefault("generation.attempt_timeout", 60*time.Second)
	v.SetDefault("generation.backoff", "constant")
	v.SetDefault("generation.wait", 500*time.Millisecond)
	v.SetDefault("generation.max_wait", 5*time.Second)

	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "http://localhost:8080/v1/")
	v.SetDefault("embedding.model", "sentence-transformers/all-MiniLM-L6-v2")
	v.SetDefault("embedding.dimension", 384)
	v.SetDefault("embedding.timeout", 15*time.Second)

	v.SetDefault("index.backend", "file")
	v.SetDefault("index.dir", "data/index")
	v.SetDefault("index.table_prefix", "govassist_")

	v.SetDefault("postgres.host", "127.0.0.1")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "govassist")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "govassist:embedding:")
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("pipeline.default_top_k", 3)
	v.SetDefault("pipeline.max_top_k", 10)
	v.SetDefault("pipeline.passage_tokens", 2000)
	v.SetDefault("pipeline.tokenizer", "simple")

	v.SetDefault("advisor.model_path", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "govassist")
	v.SetDefault("telemetry.endpoint", "")
}

// Load reads configuration from, in increasing precedence: built-in defaults,
// an optional YAML file, a .env file and the process environment.
// configFile may be empty, in which case config.yaml is looked up in the
// working directory and ./configs.
func Load(configFile string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// OPENROUTER_API_KEY is accepted as a fallback name.
	if err := v.BindEnv("generation.api_key", EnvPrefix+"_GENERATION_API_KEY", "OPENROUTER_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind api key env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize splits comma-joined list values that arrive as a single element
// from the environment.
func (c *Config) normalize() {
	c.Generation.Models = splitList(c.Generation.Models)
	c.Server.CORSOrigins = splitList(c.Server.CORSOrigins)
	c.Generation.Provider = strings.ToLower(strings.TrimSpace(c.Generation.Provider))
	c.Index.Backend = strings.ToLower(strings.TrimSpace(c.Index.Backend))
}

func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	v := NewValidator()

	v.RequireNonEmpty("server.addr", c.Server.Addr)
	v.RequirePositiveDuration("server.read_timeout", c.Server.ReadTimeout)
	v.RequirePositiveDuration("server.write_timeout", c.Server.WriteTimeout)

	v.ValidateOneOf("generation.provider", c.Generation.Provider, "openai", "claude")
	v.RequireNonEmptyList("generation.models", c.Generation.Models)
	v.ValidateFloatRange("generation.temperature", c.Generation.Temperature, 0.0, 2.0)
	v.RequirePositive("generation.max_tokens", c.Generation.MaxTokens)
	v.RequirePositiveDuration("generation.attempt_timeout", c.Generation.AttemptTimeout)
	v.ValidateOneOf("generation.backoff", c.Generation.Backoff, "constant", "exponential")

	v.RequireNonEmpty("embedding.model", c.Embedding.Model)
	v.ValidateRange("embedding.dimension", c.Embedding.Dimension, 1, 65535)
	v.RequirePositiveDuration("embedding.timeout", c.Embedding.Timeout)

	v.ValidateOneOf("index.backend", c.Index.Backend, "file", "postgres")
	switch c.Index.Backend {
	case "file":
		v.RequireNonEmpty("index.dir", c.Index.Dir)
	case "postgres":
		v.RequireNonEmpty("index.table_prefix", c.Index.TablePrefix)
		v.Merge("postgres", ValidatePostgresConfig(c.Postgres.Host, c.Postgres.Port, c.Postgres.User,
			c.Postgres.DBName, c.Postgres.SSLMode))
	}

	if c.Redis.Enabled {
		v.Merge("redis", ValidateRedisConfig(c.Redis.Addr, c.Redis.DB, c.Redis.Prefix))
	}

	v.ValidateRange("pipeline.max_top_k", c.Pipeline.MaxTopK, 1, 100)
	v.ValidateRange("pipeline.default_top_k", c.Pipeline.DefaultTopK, 1, c.Pipeline.MaxTopK)
	v.RequirePositive("pipeline.passage_tokens", c.Pipeline.PassageTokens)
	v.RequireNonEmpty("pipeline.tokenizer", c.Pipeline.Tokenizer)

	if c.Telemetry.Enabled {
		v.RequireNonEmpty("telemetry.service_name", c.Telemetry.ServiceName)
	}

	return v.Error()
}

// loadEnvFile loads the first .env found in the working directory or the
// project root. Existing environment variables win.
func loadEnvFile() {
	candidates := []string{".env"}
	if root := findProjectRoot(); root != "" {
		candidates = append(candidates, filepath.Join(root, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			logging.WithComponent("config").Warn("failed to load env file", "path", path, "error", err)
			continue
		}
		logging.WithComponent("config").Debug("loaded env file", "path", path)
		return
	}
}

// findProjectRoot walks up from the working directory to the nearest go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
