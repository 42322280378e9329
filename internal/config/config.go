package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"loanverify/internal/errors"
	"loanverify/internal/pipeline"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Pipeline PipelineConfig
	Audit    AuditConfig
	Scoring  ScoringConfig
	LogLevel string
}

// ServerConfig holds the API and dashboard listener settings
type ServerConfig struct {
	Host           string
	Port           string
	GinMode        string
	DashboardPort  string
	RequestTimeout time.Duration
}

// Addr is the API listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DashboardAddr is the dashboard listen address
func (s ServerConfig) DashboardAddr() string {
	return s.Host + ":" + s.DashboardPort
}

// StoreConfig selects the application store and audit history backend
type StoreConfig struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
}

// DSN returns the data source name for the SQL drivers
func (s StoreConfig) DSN() string {
	if s.Driver == DriverSQLite {
		return s.SQLitePath
	}
	return s.DatabaseURL
}

// PipelineConfig holds runner settings
type PipelineConfig struct {
	FailurePolicy    pipeline.FailurePolicy
	BatchConcurrency int
}

// AuditConfig holds quality-audit settings
type AuditConfig struct {
	OnApply bool
	Window  int
}

// ScoringConfig points at an optional parameter override file
type ScoringConfig struct {
	ParamsFile string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:   *loadServerConfig(),
		Audit:    *loadAuditConfig(),
		Scoring:  *loadScoringConfig(),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	storeConfig, err := loadStoreConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load store configuration")
	}
	config.Store = *storeConfig

	pipelineConfig, err := loadPipelineConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load pipeline configuration")
	}
	config.Pipeline = *pipelineConfig

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:           getEnvOrDefault("HOST", "0.0.0.0"),
		Port:           getEnvOrDefault("PORT", "8000"),
		GinMode:        getEnvOrDefault("GIN_MODE", "release"),
		DashboardPort:  getEnvOrDefault("DASHBOARD_PORT", "8090"),
		RequestTimeout: getEnvDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
	}
}

func loadStoreConfig() (*StoreConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("STORE_DRIVER", DriverMemory))
	cfg := &StoreConfig{
		Driver:      driver,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnvOrDefault("SQLITE_PATH", "loan_approval.db"),
	}

	switch driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.ConfigInvalid("DATABASE_URL is required for the postgres store")
		}
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unknown STORE_DRIVER %q", driver))
	}
	return cfg, nil
}

func loadPipelineConfig() (*PipelineConfig, error) {
	policy, err := pipeline.ParseFailurePolicy(os.Getenv("FAILURE_POLICY"))
	if err != nil {
		return nil, err
	}
	return &PipelineConfig{
		FailurePolicy:    policy,
		BatchConcurrency: getEnvIntOrDefault("BATCH_CONCURRENCY", 4),
	}, nil
}

func loadAuditConfig() *AuditConfig {
	return &AuditConfig{
		OnApply: getEnvBoolOrDefault("AUDIT_ON_APPLY", true),
		Window:  getEnvIntOrDefault("AUDIT_WINDOW", 20),
	}
}

func loadScoringConfig() *ScoringConfig {
	return &ScoringConfig{
		ParamsFile: os.Getenv("SCORING_PARAMS_FILE"),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT must not be empty")
	}
	if config.Pipeline.BatchConcurrency <= 0 {
		return errors.ConfigInvalid("BATCH_CONCURRENCY must be positive")
	}
	if config.Audit.Window <= 0 {
		return errors.ConfigInvalid("AUDIT_WINDOW must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
