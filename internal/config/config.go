// Package config provides configuration management for the scraper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
)

// Default configuration values.
const (
	defaultServerPort        = 8080
	defaultReadTimeout       = 30 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultMaxDepth          = 1
	defaultMaxConcurrency    = 5
	defaultRequestTimeout    = 30 * time.Second
	defaultUserAgent         = "kronobergsbil-scraper/1.0"
	defaultRateLimit         = 2.0
	defaultMaxBodyBytes      = 10 * 1024 * 1024
	defaultPdfTimeout        = 120 * time.Second
	defaultAIModel           = "claude-sonnet-4-20250514"
	defaultAIMaxTokens       = 8192
	defaultDBHost            = "localhost"
	defaultDBPort            = "5432"
	defaultDBUser            = "postgres"
	defaultDBName            = "kronobergsbil"
	defaultDBSSLMode         = "disable"
	defaultLogLevel          = "info"
	defaultScheduleSpec      = "0 6 * * *"
	defaultPipelineTimeout   = 15 * time.Minute
	defaultExtractionTimeout = 5 * time.Minute
)

// Config is the root configuration for all commands.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Crawler    CrawlerConfig    `mapstructure:"crawler"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	AI         AIConfig         `mapstructure:"ai"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Logging    logger.Config    `mapstructure:"logging"`
}

// ServerConfig holds the HTTP API server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// CrawlerConfig holds crawl behavior configuration.
type CrawlerConfig struct {
	MaxDepth       int           `mapstructure:"max_depth"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	PdfTimeout     time.Duration `mapstructure:"pdf_timeout"`
}

// ExtractionConfig holds classification and fact-check configuration.
type ExtractionConfig struct {
	// Timeout bounds a single extraction or fact-check request.
	Timeout time.Duration `mapstructure:"timeout"`
}

// AIConfig holds the Anthropic client configuration.
type AIConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// SchedulerConfig holds recurring crawl configuration.
type SchedulerConfig struct {
	// Spec is a cron expression; default runs daily at 06:00.
	Spec string `mapstructure:"spec"`
	// SeedURLs are crawled in order on every tick.
	SeedURLs []string `mapstructure:"seed_urls"`
	// MaxDepth overrides crawler.max_depth for scheduled runs when > 0.
	MaxDepth int `mapstructure:"max_depth"`
	// PipelineTimeout bounds a single scheduled pipeline run.
	PipelineTimeout time.Duration `mapstructure:"pipeline_timeout"`
}

// Load reads configuration from the given file (optional), environment
// variables prefixed with SCRAPER_, and built-in defaults, in that
// order of increasing precedence for env over file.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		// Missing default config file is fine; defaults + env apply.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultReadTimeout)
	v.SetDefault("server.write_timeout", defaultWriteTimeout)
	v.SetDefault("server.idle_timeout", defaultIdleTimeout)

	v.SetDefault("crawler.max_depth", defaultMaxDepth)
	v.SetDefault("crawler.max_concurrency", defaultMaxConcurrency)
	v.SetDefault("crawler.request_timeout", defaultRequestTimeout)
	v.SetDefault("crawler.user_agent", defaultUserAgent)
	v.SetDefault("crawler.rate_limit", defaultRateLimit)
	v.SetDefault("crawler.max_body_bytes", defaultMaxBodyBytes)
	v.SetDefault("crawler.pdf_timeout", defaultPdfTimeout)

	v.SetDefault("extraction.timeout", defaultExtractionTimeout)

	// Secrets default to empty so AutomaticEnv can see the keys at unmarshal
	// time; they are supplied via SCRAPER_AI_API_KEY and
	// SCRAPER_DATABASE_PASSWORD in practice.
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", defaultAIModel)
	v.SetDefault("ai.max_tokens", defaultAIMaxTokens)

	v.SetDefault("database.host", defaultDBHost)
	v.SetDefault("database.port", defaultDBPort)
	v.SetDefault("database.user", defaultDBUser)
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", defaultDBName)
	v.SetDefault("database.sslmode", defaultDBSSLMode)

	v.SetDefault("scheduler.spec", defaultScheduleSpec)
	v.SetDefault("scheduler.pipeline_timeout", defaultPipelineTimeout)

	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.development", false)
}
