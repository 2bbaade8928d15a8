package cli

import (
	"github.com/spf13/cobra"

	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/downloader"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/migration"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/retriever"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/uploader"
)

// NewRunCommand builds the run subcommand: the full retrieve → download →
// upload pipeline over one shared data directory, ending with the summary
// reports. Item-level failures are tallied, not fatal; only stage setup
// failures exit non-zero.
func NewRunCommand() *cobra.Command {
	var (
		domain           string
		apiKey           string
		siteURL          string
		username         string
		password         string
		sharepointFolder string
		dataDir          string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full Freshdesk to SharePoint migration",
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
			if siteURL != "" {
				cfg.SharePoint.SiteURL = siteURL
			}
			if username != "" {
				cfg.SharePoint.Username = username
			}
			if password != "" {
				cfg.SharePoint.Password = password
			}
			if sharepointFolder != "" {
				cfg.SharePoint.BaseFolder = sharepointFolder
			}
			if dataDir != "" {
				cfg.Storage.DataDir = dataDir
				cfg.Storage.TicketsDir = dataDir + "/tickets"
				cfg.Storage.AttachmentsDir = dataDir + "/attachments"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()

			fdClient, err := newFreshdeskClient(cfg, logger)
			if err != nil {
				return err
			}
			spClient, err := newSharePointClient(cfg, logger)
			if err != nil {
				return err
			}

			// Both endpoints must be reachable before any stage runs
			if err := fdClient.ValidateCredentials(ctx); err != nil {
				return err
			}
			if err := spClient.Authenticate(ctx); err != nil {
				return err
			}

			runner := migration.NewRunner(
				retriever.New(fdClient, cfg.Storage.TicketsDir, cfg.Freshdesk.PerPage, logger),
				downloader.New(fdClient, cfg.Storage.AttachmentsDir, logger),
				uploader.New(spClient, cfg.Storage.TicketsDir, cfg.Storage.AttachmentsDir,
					cfg.SharePoint.BaseFolder, logger),
				migration.RunnerConfig{
					DataDir:          cfg.Storage.DataDir,
					FreshdeskDomain:  cfg.Freshdesk.Domain,
					SharePointURL:    cfg.SharePoint.SiteURL,
					SharePointFolder: cfg.SharePoint.BaseFolder,
				},
				logger,
			)

			_, err = runner.Run(ctx)
			return err
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "Freshdesk domain (e.g. company.freshdesk.com)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Freshdesk API key")
	cmd.Flags().StringVar(&siteURL, "site-url", "", "SharePoint site URL")
	cmd.Flags().StringVar(&username, "username", "", "SharePoint username")
	cmd.Flags().StringVar(&password, "password", "", "SharePoint password")
	cmd.Flags().StringVar(&sharepointFolder, "sharepoint-folder", "", "Base folder in SharePoint")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory to store snapshots, attachments, and reports")

	return cmd
}
