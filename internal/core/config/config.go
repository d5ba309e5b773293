package config

import (
	"time"

	"github.com/vietddude/placefinder/internal/analyzer"
	"github.com/vietddude/placefinder/internal/cache"
	"github.com/vietddude/placefinder/internal/infra/content"
	"github.com/vietddude/placefinder/internal/infra/inference"
	redisclient "github.com/vietddude/placefinder/internal/infra/redis"
	"github.com/vietddude/placefinder/internal/infra/retry"
	"github.com/vietddude/placefinder/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Logging   LoggingConfig      `yaml:"logging"`
	Redis     redisclient.Config `yaml:"redis"`
	Database  postgres.Config    `yaml:"database"`
	Inference inference.Config   `yaml:"inference"`
	Fetcher   content.Config     `yaml:"fetcher"`
	Cache     cache.Config       `yaml:"cache"`
	Analyzer  analyzer.Config    `yaml:"analyzer"`
	Retry     RetryConfig        `yaml:"retry"`
	History   HistoryConfig      `yaml:"history"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// RetryConfig holds the retry policies of outbound calls.
type RetryConfig struct {
	Inference retry.Policy `yaml:"inference"`
	Fetch     retry.Policy `yaml:"fetch"`
}

// History backends.
const (
	HistoryMemory   = "memory"
	HistoryPostgres = "postgres"
	HistoryRedis    = "redis"
)

// HistoryConfig selects where analysis records are kept.
type HistoryConfig struct {
	Backend   string        `yaml:"backend"`   // memory, postgres, redis
	Retention time.Duration `yaml:"retention"` // 0 keeps records forever
}
