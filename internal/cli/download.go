package cli

import (
	"github.com/spf13/cobra"

	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/downloader"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/storage"
)

// NewDownloadCommand builds the download subcommand: fetch every attachment
// referenced by a ticket snapshot into the local attachments tree.
func NewDownloadCommand() *cobra.Command {
	var (
		domain      string
		apiKey      string
		ticketsFile string
		outputDir   string
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download attachments for a ticket snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			if domain != "" {
				cfg.Freshdesk.Domain = domain
			}
			if apiKey != "" {
				cfg.Freshdesk.APIKey = apiKey
			}
			if outputDir != "" {
				cfg.Storage.AttachmentsDir = outputDir
			}
			if err := cfg.ValidateFreshdesk(); err != nil {
				return err
			}

			// Default to the newest snapshot when no file is named
			if ticketsFile == "" {
				ticketsFile, err = storage.LatestSnapshot(cfg.Storage.TicketsDir)
				if err != nil {
					return err
				}
				logger.Info("Using latest ticket snapshot", "snapshot", ticketsFile)
			}

			client, err := newFreshdeskClient(cfg, logger)
			if err != nil {
				return err
			}

			result, err := downloader.New(client, cfg.Storage.AttachmentsDir, logger).
				Run(cmd.Context(), ticketsFile)
			if err != nil {
				return err
			}

			logger.Info("Attachment download completed",
				"tickets", result.TicketsProcessed,
				"downloaded", result.Downloaded,
				"skipped", result.Skipped,
				"failed", len(result.Failures))
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "Freshdesk domain (e.g. company.freshdesk.com)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Freshdesk API key")
	cmd.Flags().StringVar(&ticketsFile, "tickets-file", "", "Ticket snapshot file (defaults to the latest)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory to save attachments")

	return cmd
}
