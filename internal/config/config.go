package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Freshdesk  FreshdeskConfig  `mapstructure:"freshdesk"`
	SharePoint SharePointConfig `mapstructure:"sharepoint"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// FreshdeskConfig defines the source helpdesk connection
type FreshdeskConfig struct {
	Domain  string `mapstructure:"domain"`   // e.g. "company.freshdesk.com"
	APIKey  string `mapstructure:"api_key"`  // basic auth username, "X" password
	PerPage int    `mapstructure:"per_page"` // tickets per page, max 100
}

// SharePointConfig defines the destination document store connection
type SharePointConfig struct {
	SiteURL    string `mapstructure:"site_url"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	BaseFolder string `mapstructure:"base_folder"` // root folder for ticket folders

	ChunkThreshold int64 `mapstructure:"chunk_threshold"` // bytes; uploads at or above use chunked sessions
	ChunkSize      int   `mapstructure:"chunk_size"`      // bytes per chunk request
}

// StorageConfig defines the local snapshot layout
type StorageConfig struct {
	DataDir        string `mapstructure:"data_dir"`
	TicketsDir     string `mapstructure:"tickets_dir"`     // default <data_dir>/tickets
	AttachmentsDir string `mapstructure:"attachments_dir"` // default <data_dir>/attachments
}

// RetryConfig defines the bounded-retry policy applied to vendor API calls
type RetryConfig struct {
	MaxAttempts    int     `mapstructure:"max_attempts"`
	InitialBackoff string  `mapstructure:"initial_backoff"` // duration string, e.g. "1s"
	MaxBackoff     string  `mapstructure:"max_backoff"`
	Multiplier     float64 `mapstructure:"multiplier"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format"` // "json" or "text"
	OutputFile string `mapstructure:"output_file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Environment variable support, e.g.
	// freshdesk.api_key -> FSMIG_FRESHDESK_API_KEY
	viper.SetEnvPrefix("FSMIG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A config file is optional; flags and env vars can carry the
		// whole configuration
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDerivedPaths()

	return &cfg, nil
}

func setDefaults() {
	// Empty defaults register the keys with viper so AutomaticEnv can
	// populate them during Unmarshal
	viper.SetDefault("freshdesk.domain", "")
	viper.SetDefault("freshdesk.api_key", "")
	viper.SetDefault("sharepoint.site_url", "")
	viper.SetDefault("sharepoint.username", "")
	viper.SetDefault("sharepoint.password", "")
	viper.SetDefault("storage.tickets_dir", "")
	viper.SetDefault("storage.attachments_dir", "")
	viper.SetDefault("freshdesk.per_page", 100)
	viper.SetDefault("sharepoint.base_folder", "FreshdeskTickets")
	viper.SetDefault("sharepoint.chunk_threshold", 4*1024*1024)
	viper.SetDefault("sharepoint.chunk_size", 2*1024*1024)
	viper.SetDefault("storage.data_dir", "./data")
	viper.SetDefault("retry.max_attempts", 5)
	viper.SetDefault("retry.initial_backoff", "1s")
	viper.SetDefault("retry.max_backoff", "30s")
	viper.SetDefault("retry.multiplier", 2.0)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output_file", "./logs/migrator.log")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
}

// applyDerivedPaths fills the tickets and attachments directories from the
// data dir when they were not set explicitly.
func (c *Config) applyDerivedPaths() {
	if c.Storage.TicketsDir == "" {
		c.Storage.TicketsDir = c.Storage.DataDir + "/tickets"
	}
	if c.Storage.AttachmentsDir == "" {
		c.Storage.AttachmentsDir = c.Storage.DataDir + "/attachments"
	}
}

// Validate checks the fields a full run needs. Stage commands validate their
// own subset.
func (c *Config) Validate() error {
	if err := c.ValidateFreshdesk(); err != nil {
		return err
	}
	return c.ValidateSharePoint()
}

// ValidateFreshdesk checks the source connection settings.
func (c *Config) ValidateFreshdesk() error {
	if c.Freshdesk.Domain == "" {
		return fmt.Errorf("freshdesk domain is required")
	}
	if c.Freshdesk.APIKey == "" {
		return fmt.Errorf("freshdesk API key is required")
	}
	if c.Freshdesk.PerPage < 0 || c.Freshdesk.PerPage > 100 {
		return fmt.Errorf("freshdesk per_page must be between 1 and 100")
	}
	return nil
}

// ValidateSharePoint checks the destination connection settings.
func (c *Config) ValidateSharePoint() error {
	if c.SharePoint.SiteURL == "" {
		return fmt.Errorf("sharepoint site URL is required")
	}
	if c.SharePoint.Username == "" {
		return fmt.Errorf("sharepoint username is required")
	}
	if c.SharePoint.Password == "" {
		return fmt.Errorf("sharepoint password is required")
	}
	return nil
}
