// Package cli wires the stage commands. Each stage of the migration is its
// own subcommand so partial re-runs don't require a full pipeline pass; the
// run command sequences all three.
package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/config"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/freshdesk"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/logging"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/sharepoint"
)

// NewRootCommand builds the migrator command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "migrator",
		Short: "Migrate Freshdesk tickets and attachments into SharePoint",
		Long: `migrator pulls support tickets and attachments from Freshdesk into a
local snapshot and uploads them into SharePoint as one folder per ticket.

The stages can run standalone (retrieve, download, upload) or end to end
(run).`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		NewRetrieveCommand(),
		NewDownloadCommand(),
		NewUploadCommand(),
		NewRunCommand(),
	)

	return rootCmd
}

// setup loads configuration and installs the process logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Logging)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// retryConfig converts the configured retry policy into the client's form.
func retryConfig(cfg config.RetryConfig) freshdesk.RetryConfig {
	rc := freshdesk.DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		rc.MaxAttempts = cfg.MaxAttempts
	}
	if d, err := time.ParseDuration(cfg.InitialBackoff); err == nil && d > 0 {
		rc.InitialBackoff = d
	}
	if d, err := time.ParseDuration(cfg.MaxBackoff); err == nil && d > 0 {
		rc.MaxBackoff = d
	}
	if cfg.Multiplier > 1 {
		rc.BackoffMultiple = cfg.Multiplier
	}
	return rc
}

func newFreshdeskClient(cfg *config.Config, logger *slog.Logger) (*freshdesk.Client, error) {
	return freshdesk.NewClient(freshdesk.ClientConfig{
		Domain:      cfg.Freshdesk.Domain,
		APIKey:      cfg.Freshdesk.APIKey,
		RetryConfig: retryConfig(cfg.Retry),
		Logger:      logger,
	})
}

func newSharePointClient(cfg *config.Config, logger *slog.Logger) (*sharepoint.Client, error) {
	return sharepoint.NewClient(sharepoint.ClientConfig{
		SiteURL:        cfg.SharePoint.SiteURL,
		Username:       cfg.SharePoint.Username,
		Password:       cfg.SharePoint.Password,
		ChunkThreshold: cfg.SharePoint.ChunkThreshold,
		ChunkSize:      cfg.SharePoint.ChunkSize,
		Logger:         logger,
	})
}
