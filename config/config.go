package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ProviderConfig     ProviderConfig     `json:"provider"`
	UniverseConfig     UniverseConfig     `json:"universe"`
	CoordinatorConfig  CoordinatorConfig  `json:"coordinator"`
	ScoringConfig      ScoringConfig      `json:"scoring"`
	PipelineConfig     PipelineConfig     `json:"pipeline"`
	KnowledgeConfig    KnowledgeConfig    `json:"knowledge"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	VaultConfig        VaultConfig        `json:"vault"`
	NotificationConfig NotificationConfig `json:"notification"`
	ServerConfig       ServerConfig       `json:"server"`
	SchedulerConfig    SchedulerConfig    `json:"scheduler"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

// ProviderConfig holds market-data provider settings
type ProviderConfig struct {
	BaseURL       string        `json:"base_url"`
	APIKey        string        `json:"api_key"`
	RequestDelay  time.Duration `json:"request_delay"`  // inter-call delay for rate limits
	MaxRetries    int           `json:"max_retries"`    // retries per timeframe fetch
	RetryBackoff  time.Duration `json:"retry_backoff"`  // fixed backoff between retries
	HTTPTimeout   time.Duration `json:"http_timeout"`
}

// Mode selects how the coordinator sizes its date ranges.
type Mode string

const (
	ModeLive     Mode = "live"
	ModeBacktest Mode = "backtest"
)

// CoordinatorConfig holds timeframe data coordination settings
type CoordinatorConfig struct {
	Mode           Mode   `json:"mode"`
	BacktestAsOf   string `json:"backtest_as_of"` // RFC3339 date, end of all ranges in backtest mode
	CacheTTL       int    `json:"cache_ttl"`      // seconds, series cache
}

// UniverseConfig holds stock universe provider settings
type UniverseConfig struct {
	BaseURL string   `json:"base_url"`
	Static  []string `json:"static"` // "TICKER|Company|Sector" entries, used when no URL is set
}

// ScoringConfig carries the fixed scoring constants. The values are
// institutionally derived and loaded as configuration only so a deployment can
// pin them explicitly; defaults are the canonical ones.
type ScoringConfig struct {
	GateThreshold    float64 `json:"gate_threshold"`
	StrengthWeight   float64 `json:"strength_weight"`
	ConfidenceWeight float64 `json:"confidence_weight"`
	QualityWeight    float64 `json:"quality_weight"`
	RiskWeight       float64 `json:"risk_weight"`
}

// PipelineConfig holds batch pipeline settings
type PipelineConfig struct {
	EntryOffsetPercent  float64 `json:"entry_offset_percent"`  // entry vs current price
	StopOffsetPercent   float64 `json:"stop_offset_percent"`   // stop vs entry
	TargetOffsetPercent float64 `json:"target_offset_percent"` // target vs entry
}

// KnowledgeConfig holds knowledge engine and pattern matcher settings
type KnowledgeConfig struct {
	MinOutcomes        int     `json:"min_outcomes"`         // below this, analyses skip entirely
	RecentOutcomeLimit int     `json:"recent_outcome_limit"` // pattern matcher scan window
	SimilarityFloor    float64 `json:"similarity_floor"`
	MaxMatches         int     `json:"max_matches"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis configuration for the series cache layer
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// VaultConfig holds HashiCorp Vault configuration for provider credentials
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

type NotificationConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`     // seconds
	WriteTimeout    int    `json:"write_timeout"`    // seconds
	ShutdownTimeout int    `json:"shutdown_timeout"` // seconds
}

// SchedulerConfig holds cron schedules for recurring work
type SchedulerConfig struct {
	Enabled           bool   `json:"enabled"`
	ScanSpec          string `json:"scan_spec"`           // cron spec for batch scans
	KnowledgeSpec     string `json:"knowledge_spec"`      // cron spec for learning refresh
	BatchSize         int    `json:"batch_size"`          // stocks per batch
	MaxBatchesPerScan int    `json:"max_batches_per_scan"`
}

type LoggingConfig struct {
	Level   string `json:"level"`   // debug, info, warn, error
	Console bool   `json:"console"` // human-readable console writer instead of JSON
}

func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = &Config{}
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ProviderConfig.RequestDelay == 0 {
		cfg.ProviderConfig.RequestDelay = 120 * time.Millisecond
	}
	if cfg.ProviderConfig.MaxRetries == 0 {
		cfg.ProviderConfig.MaxRetries = 2
	}
	if cfg.ProviderConfig.RetryBackoff == 0 {
		cfg.ProviderConfig.RetryBackoff = time.Second
	}
	if cfg.ProviderConfig.HTTPTimeout == 0 {
		cfg.ProviderConfig.HTTPTimeout = 10 * time.Second
	}
	if cfg.CoordinatorConfig.Mode == "" {
		cfg.CoordinatorConfig.Mode = ModeLive
	}
	if cfg.CoordinatorConfig.CacheTTL == 0 {
		cfg.CoordinatorConfig.CacheTTL = 300
	}
	if cfg.ScoringConfig.GateThreshold == 0 {
		cfg.ScoringConfig.GateThreshold = 70
	}
	if cfg.ScoringConfig.StrengthWeight == 0 {
		cfg.ScoringConfig.StrengthWeight = 0.30
		cfg.ScoringConfig.ConfidenceWeight = 0.35
		cfg.ScoringConfig.QualityWeight = 0.25
		cfg.ScoringConfig.RiskWeight = 0.10
	}
	if cfg.PipelineConfig.EntryOffsetPercent == 0 {
		cfg.PipelineConfig.EntryOffsetPercent = 1.0
	}
	if cfg.PipelineConfig.StopOffsetPercent == 0 {
		cfg.PipelineConfig.StopOffsetPercent = 8.0
	}
	if cfg.PipelineConfig.TargetOffsetPercent == 0 {
		cfg.PipelineConfig.TargetOffsetPercent = 15.0
	}
	if cfg.KnowledgeConfig.MinOutcomes == 0 {
		cfg.KnowledgeConfig.MinOutcomes = 10
	}
	if cfg.KnowledgeConfig.RecentOutcomeLimit == 0 {
		cfg.KnowledgeConfig.RecentOutcomeLimit = 500
	}
	if cfg.KnowledgeConfig.SimilarityFloor == 0 {
		cfg.KnowledgeConfig.SimilarityFloor = 60
	}
	if cfg.KnowledgeConfig.MaxMatches == 0 {
		cfg.KnowledgeConfig.MaxMatches = 20
	}
	if cfg.SchedulerConfig.BatchSize == 0 {
		cfg.SchedulerConfig.BatchSize = 25
	}
	if cfg.SchedulerConfig.MaxBatchesPerScan == 0 {
		cfg.SchedulerConfig.MaxBatchesPerScan = 4
	}
	if cfg.SchedulerConfig.ScanSpec == "" {
		cfg.SchedulerConfig.ScanSpec = "0 */4 * * *"
	}
	if cfg.SchedulerConfig.KnowledgeSpec == "" {
		cfg.SchedulerConfig.KnowledgeSpec = "30 1 * * *"
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over config.json.
func applyEnvOverrides(cfg *Config) {
	cfg.ProviderConfig.BaseURL = getEnvOrDefault("PROVIDER_BASE_URL", cfg.ProviderConfig.BaseURL)
	cfg.ProviderConfig.APIKey = getEnvOrDefault("PROVIDER_API_KEY", cfg.ProviderConfig.APIKey)

	cfg.UniverseConfig.BaseURL = getEnvOrDefault("UNIVERSE_BASE_URL", cfg.UniverseConfig.BaseURL)

	if mode := os.Getenv("COORDINATOR_MODE"); mode != "" {
		cfg.CoordinatorConfig.Mode = Mode(mode)
	}
	cfg.CoordinatorConfig.BacktestAsOf = getEnvOrDefault("BACKTEST_AS_OF", cfg.CoordinatorConfig.BacktestAsOf)

	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", defaultString(cfg.DatabaseConfig.Host, "localhost"))
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", defaultInt(cfg.DatabaseConfig.Port, 5432))
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", defaultString(cfg.DatabaseConfig.User, "signal_engine"))
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", defaultString(cfg.DatabaseConfig.Database, "signal_engine"))
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", defaultString(cfg.DatabaseConfig.SSLMode, "disable"))

	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolString(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", defaultString(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", defaultInt(cfg.RedisConfig.PoolSize, 10))

	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", boolString(cfg.VaultConfig.Enabled)) == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", defaultString(cfg.VaultConfig.Address, "http://localhost:8200"))
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", defaultString(cfg.VaultConfig.MountPath, "secret"))
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", defaultString(cfg.VaultConfig.SecretPath, "signal-engine/provider"))

	cfg.NotificationConfig.Enabled = getEnvOrDefault("NOTIFICATIONS_ENABLED", boolString(cfg.NotificationConfig.Enabled)) == "true"
	cfg.NotificationConfig.WebhookURL = getEnvOrDefault("NOTIFICATION_WEBHOOK_URL", cfg.NotificationConfig.WebhookURL)

	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", defaultInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", defaultString(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", defaultString(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", defaultInt(cfg.ServerConfig.ReadTimeout, 30))
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", defaultInt(cfg.ServerConfig.WriteTimeout, 30))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", defaultInt(cfg.ServerConfig.ShutdownTimeout, 10))

	cfg.SchedulerConfig.Enabled = getEnvOrDefault("SCHEDULER_ENABLED", boolString(cfg.SchedulerConfig.Enabled)) == "true"

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultString(cfg.LoggingConfig.Level, "info"))
	cfg.LoggingConfig.Console = getEnvOrDefault("LOG_CONSOLE", boolString(cfg.LoggingConfig.Console)) == "true"
}

// Validate checks for fatal configuration problems. A missing provider
// endpoint or credential aborts the run before any stock is processed.
func (c *Config) Validate() error {
	if c.ProviderConfig.BaseURL == "" {
		return fmt.Errorf("provider base URL is not configured (PROVIDER_BASE_URL)")
	}
	if c.ProviderConfig.APIKey == "" && !c.VaultConfig.Enabled {
		return fmt.Errorf("provider API key is not configured (PROVIDER_API_KEY or Vault)")
	}
	if c.CoordinatorConfig.Mode != ModeLive && c.CoordinatorConfig.Mode != ModeBacktest {
		return fmt.Errorf("unknown coordinator mode %q", c.CoordinatorConfig.Mode)
	}
	if c.CoordinatorConfig.Mode == ModeBacktest {
		if _, err := time.Parse(time.RFC3339, c.CoordinatorConfig.BacktestAsOf); err != nil {
			return fmt.Errorf("backtest mode requires a valid BACKTEST_AS_OF date: %w", err)
		}
	}
	return nil
}

// AsOfTime returns the parsed backtest anchor date, or the zero time when
// unset or malformed. Validate catches the malformed case in backtest mode.
func (c CoordinatorConfig) AsOfTime() time.Time {
	t, err := time.Parse(time.RFC3339, c.BacktestAsOf)
	if err != nil {
		return time.Time{}
	}
	return t
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func defaultString(val, fallback string) string {
	if val == "" {
		return fallback
	}
	return val
}

func defaultInt(val, fallback int) int {
	if val == 0 {
		return fallback
	}
	return val
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
