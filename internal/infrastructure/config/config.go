package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level" validate:"oneof=debug info warn error"`

	Server    ServerConfig    `koanf:"server"`
	Redis     RedisConfig     `koanf:"redis"`
	LLM       LLMConfig       `koanf:"llm"`
	Analysis  AnalysisConfig  `koanf:"analysis"`
	Mining    MiningConfig    `koanf:"mining"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	CORS      CORSConfig      `koanf:"cors"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type RedisConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Addr         string        `koanf:"addr"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	MaxRetries   int           `koanf:"max_retries"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type LLMConfig struct {
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	BaseURL     string        `koanf:"base_url" validate:"omitempty,url"`
	Timeout     time.Duration `koanf:"timeout"`
	MaxRetries  int           `koanf:"max_retries" validate:"min=0,max=10"`
	Temperature float64       `koanf:"temperature" validate:"min=0,max=2"`
}

// Configured reports whether live model calls are possible.
func (c LLMConfig) Configured() bool {
	return c.APIKey != ""
}

type AnalysisConfig struct {
	MaxConcurrent  int           `koanf:"max_concurrent" validate:"min=1,max=16"`
	TaskTimeout    time.Duration `koanf:"task_timeout"`
	OverallTimeout time.Duration `koanf:"overall_timeout"`
	RatePerSecond  float64       `koanf:"rate_per_second" validate:"min=0"`
	RateBurst      int           `koanf:"rate_burst" validate:"min=1"`
}

type MiningConfig struct {
	FrequentPairMinCount       int           `koanf:"frequent_pair_min_count" validate:"min=2"`
	RoundAmountUnit            int64         `koanf:"round_amount_unit" validate:"min=1"`
	HighActivityMinCount       int           `koanf:"high_activity_min_count" validate:"min=2"`
	RepeatedAmountMinFrequency int           `koanf:"repeated_amount_min_frequency" validate:"min=2"`
	QuickSuccessionWindow      time.Duration `koanf:"quick_succession_window"`
	SampleLimit                int           `koanf:"sample_limit" validate:"min=1"`
	ActivitySampleLimit        int           `koanf:"activity_sample_limit" validate:"min=1"`
}

type IngestConfig struct {
	// CSVPath, when set, is loaded into the dataset store at startup.
	CSVPath string `koanf:"csv_path"`

	// MaxTransactions rejects ingests above this size.
	MaxTransactions int `koanf:"max_transactions" validate:"min=1"`
}

type TelemetryConfig struct {
	TracingEnabled bool   `koanf:"tracing_enabled"`
	OTLPEndpoint   string `koanf:"otlp_endpoint"`
	ServiceName    string `koanf:"service_name"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Load reads configuration from defaults, an optional YAML file, and
// TPB_-prefixed environment variables, in ascending precedence.
func Load() (*Config, error) {
	return LoadFromFile("configs/config.yaml")
}

// LoadFromFile is Load with an explicit config file path, for tests.
func LoadFromFile(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			RequestTimeout:  90 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		LLM: LLMConfig{
			Model:       "gemini-1.5-flash",
			BaseURL:     "https://generativelanguage.googleapis.com",
			Timeout:     30 * time.Second,
			MaxRetries:  3,
			Temperature: 0.1,
		},
		Analysis: AnalysisConfig{
			MaxConcurrent:  3,
			TaskTimeout:    25 * time.Second,
			OverallTimeout: 75 * time.Second,
			RatePerSecond:  2,
			RateBurst:      3,
		},
		Mining: MiningConfig{
			FrequentPairMinCount:       3,
			RoundAmountUnit:            1000,
			HighActivityMinCount:       10,
			RepeatedAmountMinFrequency: 3,
			QuickSuccessionWindow:      5 * time.Minute,
			SampleLimit:                3,
			ActivitySampleLimit:        5,
		},
		Ingest: IngestConfig{
			MaxTransactions: 100000,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "transaction-pattern-backend",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional
	if path != "" {
		_ = k.Load(file.Provider(path), yaml.Parser())
	}

	if err := k.Load(env.Provider("TPB_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "TPB_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
