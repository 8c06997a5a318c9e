package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"GazetteScanner/internal/domain"
)

const (
	configPathEnv    = "GAZETTE_SCANNER_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	redisAddrEnv     = "REDIS_ADDR"
	sqsQueueURLEnv   = "SQS_QUEUE_URL"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
)

// Backend names accepted in the config file.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendLocal    = "local"
	BackendS3       = "s3"
	BackendSQL      = "sql"
	BackendNone     = "none"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Source        SourceConfig       `yaml:"source"`
	Database      DatabaseConfig     `yaml:"database"`
	AWS           AWSConfig          `yaml:"aws"`
	Ledger        LedgerConfig       `yaml:"ledger"`
	Storage       StorageConfig      `yaml:"storage"`
	Notifications NotificationConfig `yaml:"notifications"`
	State         StateConfig        `yaml:"state"`
	Rules         RulesConfig        `yaml:"rules"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SourceConfig describes how to reach the gazette website.
type SourceConfig struct {
	ListingURL        string        `yaml:"listingUrl"`
	ArticlePrefix     string        `yaml:"articlePrefix"`
	Timeout           time.Duration `yaml:"timeout"`
	Attempts          int           `yaml:"attempts"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	HivePartitioning  bool          `yaml:"hivePartitioning"`
}

// DatabaseConfig is shared by the SQL ledger and the SQL rule source.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// AWSConfig overrides the default SDK resolution, mainly for local stacks.
type AWSConfig struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// LedgerConfig picks where captured entry ids are remembered.
type LedgerConfig struct {
	Backend string      `yaml:"backend"`
	Dir     string      `yaml:"dir"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig describes the Redis connection for the ledger.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// StorageConfig picks where captured entries are written.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	SQS      SQSConfig      `yaml:"sqs"`
	Log      *bool          `yaml:"log"`
}

// LogEnabled reports whether deliveries are also logged. Unset means on only
// when no other channel is configured.
func (n NotificationConfig) LogEnabled() bool {
	if n.Log != nil {
		return *n.Log
	}
	return n.Telegram.BotToken == "" && n.SQS.QueueURL == ""
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SQSConfig names the queue deliveries are published to.
type SQSConfig struct {
	QueueURL string `yaml:"queueUrl"`
}

// StateConfig picks where the RunConfig lives between runs.
type StateConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Table   string `yaml:"table"`
	Name    string `yaml:"name"`
}

// RulesConfig picks where subscriber filters come from.
type RulesConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Table       string `yaml:"table"`
	Publication string `yaml:"publication"`
}

// SchedulerConfig drives monitor mode.
type SchedulerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BatchPause time.Duration `yaml:"batchPause"`
}

// Path returns the config path: the flag value, else GAZETTE_SCANNER_CONFIG.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(configPathEnv)
}

// Load reads YAML configuration (if path is set) and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, &domain.ConfigError{Field: path, Reason: err.Error()}
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown backends and missing backend settings.
func (c Config) Validate() error {
	checks := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"ledger.backend", c.Ledger.Backend, []string{BackendFile, BackendRedis, BackendDynamoDB, BackendPostgres, BackendSQLite}},
		{"storage.backend", c.Storage.Backend, []string{BackendLocal, BackendS3, BackendNone}},
		{"state.backend", c.State.Backend, []string{BackendFile, BackendDynamoDB}},
		{"rules.backend", c.Rules.Backend, []string{BackendFile, BackendSQL}},
		{"logging.level", strings.ToLower(c.Logging.Level), []string{"debug", "info", "warn", "error"}},
	}
	for _, check := range checks {
		if !contains(check.allowed, check.value) {
			return &domain.ConfigError{Field: check.field, Reason: fmt.Sprintf("must be one of %s", strings.Join(check.allowed, ", "))}
		}
	}

	switch {
	case c.Storage.Backend == BackendS3 && c.Storage.Bucket == "":
		return &domain.ConfigError{Field: "storage.bucket", Reason: "is required for s3"}
	case c.State.Backend == BackendDynamoDB && (c.State.Table == "" || c.State.Name == ""):
		return &domain.ConfigError{Field: "state.table", Reason: "table and name are required for dynamodb"}
	case c.State.Backend == BackendFile && c.State.Path == "":
		return &domain.ConfigError{Field: "state.path", Reason: "is required"}
	case c.Rules.Backend == BackendFile && c.Rules.Path == "":
		return &domain.ConfigError{Field: "rules.path", Reason: "is required"}
	case (c.Ledger.Backend == BackendPostgres || c.Rules.Backend == BackendSQL) && c.Database.DSN == "":
		return &domain.ConfigError{Field: "database.dsn", Reason: "is required"}
	case c.Scheduler.Interval <= 0:
		return &domain.ConfigError{Field: "scheduler.interval", Reason: "must be positive"}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Ledger.Redis.Addr = v
	}

	if v := os.Getenv(sqsQueueURLEnv); v != "" {
		c.Notifications.SQS.QueueURL = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Source.ListingURL != "" {
		base.Source.ListingURL = override.Source.ListingURL
	}
	if override.Source.ArticlePrefix != "" {
		base.Source.ArticlePrefix = override.Source.ArticlePrefix
	}
	if override.Source.Timeout > 0 {
		base.Source.Timeout = override.Source.Timeout
	}
	if override.Source.Attempts > 0 {
		base.Source.Attempts = override.Source.Attempts
	}
	if override.Source.RequestsPerSecond > 0 {
		base.Source.RequestsPerSecond = override.Source.RequestsPerSecond
	}
	base.Source.HivePartitioning = base.Source.HivePartitioning || override.Source.HivePartitioning

	if override.Database.DSN != "" {
		base.Database = override.Database
	}
	if override.AWS.Region != "" {
		base.AWS.Region = override.AWS.Region
	}
	if override.AWS.Endpoint != "" {
		base.AWS.Endpoint = override.AWS.Endpoint
	}

	if override.Ledger.Backend != "" {
		base.Ledger.Backend = override.Ledger.Backend
	}
	if override.Ledger.Dir != "" {
		base.Ledger.Dir = override.Ledger.Dir
	}
	if override.Ledger.Redis.Addr != "" {
		base.Ledger.Redis = override.Ledger.Redis
	}

	if override.Storage.Backend != "" {
		base.Storage.Backend = override.Storage.Backend
	}
	if override.Storage.Path != "" {
		base.Storage.Path = override.Storage.Path
	}
	if override.Storage.Bucket != "" {
		base.Storage.Bucket = override.Storage.Bucket
	}
	if override.Storage.Prefix != "" {
		base.Storage.Prefix = override.Storage.Prefix
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.SQS.QueueURL != "" {
		base.Notifications.SQS.QueueURL = override.Notifications.SQS.QueueURL
	}
	if override.Notifications.Log != nil {
		enabled := *override.Notifications.Log
		base.Notifications.Log = &enabled
	}

	if override.State.Backend != "" {
		base.State.Backend = override.State.Backend
	}
	if override.State.Path != "" {
		base.State.Path = override.State.Path
	}
	if override.State.Table != "" {
		base.State.Table = override.State.Table
	}
	if override.State.Name != "" {
		base.State.Name = override.State.Name
	}

	if override.Rules.Backend != "" {
		base.Rules.Backend = override.Rules.Backend
	}
	if override.Rules.Path != "" {
		base.Rules.Path = override.Rules.Path
	}
	if override.Rules.Table != "" {
		base.Rules.Table = override.Rules.Table
	}
	if override.Rules.Publication != "" {
		base.Rules.Publication = override.Rules.Publication
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.BatchPause > 0 {
		base.Scheduler.BatchPause = override.Scheduler.BatchPause
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Source: SourceConfig{
			ListingURL:        "http://www.in.gov.br/leiturajornal",
			ArticlePrefix:     "http://www.in.gov.br/web/dou/-/",
			Timeout:           15 * time.Second,
			Attempts:          3,
			RequestsPerSecond: 5,
		},
		Database:  DatabaseConfig{Driver: BackendPostgres},
		Ledger:    LedgerConfig{Backend: BackendFile, Dir: "data", Redis: RedisConfig{Addr: "localhost:6379", Prefix: "gazette:ledger:"}},
		Storage:   StorageConfig{Backend: BackendLocal, Path: "data/entries"},
		State:     StateConfig{Backend: BackendFile, Path: "run_config.yaml"},
		Rules:     RulesConfig{Backend: BackendFile, Path: "filters.yaml", Table: "gazette_filters", Publication: "dou"},
		Scheduler: SchedulerConfig{Interval: 15 * time.Minute, BatchPause: 5 * time.Second},
	}
}
