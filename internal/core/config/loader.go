package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/placefinder/internal/analyzer"
	"github.com/vietddude/placefinder/internal/infra/retry"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding environment variables first.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	def := analyzer.DefaultConfig()
	if cfg.Analyzer.DefaultTTL == 0 {
		cfg.Analyzer.DefaultTTL = def.DefaultTTL
	}
	if cfg.Analyzer.HighConfidenceTTL == 0 {
		cfg.Analyzer.HighConfidenceTTL = def.HighConfidenceTTL
	}
	if cfg.Analyzer.HighConfidenceThreshold == 0 {
		cfg.Analyzer.HighConfidenceThreshold = def.HighConfidenceThreshold
	}
	if cfg.Analyzer.Timeout == 0 {
		cfg.Analyzer.Timeout = def.Timeout
	}

	cfg.Retry.Inference = withPolicyDefaults(cfg.Retry.Inference)
	cfg.Retry.Fetch = withPolicyDefaults(cfg.Retry.Fetch)

	if cfg.History.Backend == "" {
		cfg.History.Backend = HistoryMemory
		if cfg.Database.Enabled() {
			cfg.History.Backend = HistoryPostgres
		}
	}
}

func withPolicyDefaults(p retry.Policy) retry.Policy {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = retry.DefaultPolicy.MaxAttempts
	}
	if p.BaseDelay == 0 {
		p.BaseDelay = retry.DefaultPolicy.BaseDelay
	}
	if p.BackoffMultiplier == 0 {
		p.BackoffMultiplier = retry.DefaultPolicy.BackoffMultiplier
	}
	return p
}

func validate(cfg *AppConfig) error {
	switch cfg.History.Backend {
	case HistoryMemory:
	case HistoryPostgres:
		if !cfg.Database.Enabled() {
			return fmt.Errorf("history backend %q requires database.url", cfg.History.Backend)
		}
	case HistoryRedis:
		if !cfg.Redis.Enabled() {
			return fmt.Errorf("history backend %q requires redis.url", cfg.History.Backend)
		}
	default:
		return fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}

	if cfg.Analyzer.HighConfidenceThreshold < 0 || cfg.Analyzer.HighConfidenceThreshold > 1 {
		return fmt.Errorf("analyzer.high_confidence_threshold must be within [0,1], got %v", cfg.Analyzer.HighConfidenceThreshold)
	}
	if cfg.Retry.Inference.MaxAttempts < 0 || cfg.Retry.Fetch.MaxAttempts < 0 {
		return fmt.Errorf("retry max_attempts must not be negative")
	}
	return nil
}
