package cli

import (
	"github.com/spf13/cobra"

	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/retriever"
)

// NewRetrieveCommand builds the retrieve subcommand: a full, fresh pull of
// every ticket into a timestamped snapshot file.
func NewRetrieveCommand() *cobra.Command {
	var (
		domain    string
		apiKey    string
		outputDir string
		perPage   int
	)

	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Retrieve all tickets from Freshdesk into a local snapshot",
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
				cfg.Storage.TicketsDir = outputDir
			}
			if perPage > 0 {
				cfg.Freshdesk.PerPage = perPage
			}
			if err := cfg.ValidateFreshdesk(); err != nil {
				return err
			}

			client, err := newFreshdeskClient(cfg, logger)
			if err != nil {
				return err
			}

			result, err := retriever.New(client, cfg.Storage.TicketsDir, cfg.Freshdesk.PerPage, logger).
				Run(cmd.Context())
			if err != nil {
				return err
			}

			logger.Info("Ticket retrieval completed",
				"tickets", result.TicketCount,
				"snapshot", result.SnapshotPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "Freshdesk domain (e.g. company.freshdesk.com)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Freshdesk API key")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory to save ticket snapshots")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "Tickets per page (max 100)")

	return cmd
}
