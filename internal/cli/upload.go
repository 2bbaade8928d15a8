package cli

import (
	"github.com/spf13/cobra"

	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/storage"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/uploader"
)

// NewUploadCommand builds the upload subcommand: mirror the latest local
// snapshot into per-ticket SharePoint folders.
func NewUploadCommand() *cobra.Command {
	var (
		siteURL          string
		username         string
		password         string
		ticketsDir       string
		attachmentsDir   string
		sharepointFolder string
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload ticket metadata and attachments to SharePoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
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
			if ticketsDir != "" {
				cfg.Storage.TicketsDir = ticketsDir
			}
			if attachmentsDir != "" {
				cfg.Storage.AttachmentsDir = attachmentsDir
			}
			if err := cfg.ValidateSharePoint(); err != nil {
				return err
			}

			client, err := newSharePointClient(cfg, logger)
			if err != nil {
				return err
			}
			if err := client.Authenticate(cmd.Context()); err != nil {
				return err
			}

			snapshotPath, err := storage.LatestSnapshot(cfg.Storage.TicketsDir)
			if err != nil {
				return err
			}

			result, err := uploader.New(client, cfg.Storage.TicketsDir, cfg.Storage.AttachmentsDir,
				cfg.SharePoint.BaseFolder, logger).
				Run(cmd.Context(), snapshotPath)
			if err != nil {
				return err
			}

			logger.Info("Upload completed",
				"tickets", result.TicketsProcessed,
				"attachments_uploaded", result.AttachmentsUploaded,
				"failed", len(result.Failures))
			return nil
		},
	}

	cmd.Flags().StringVar(&siteURL, "site-url", "", "SharePoint site URL")
	cmd.Flags().StringVar(&username, "username", "", "SharePoint username")
	cmd.Flags().StringVar(&password, "password", "", "SharePoint password")
	cmd.Flags().StringVar(&ticketsDir, "tickets-dir", "", "Directory containing ticket snapshots")
	cmd.Flags().StringVar(&attachmentsDir, "attachments-dir", "", "Directory containing downloaded attachments")
	cmd.Flags().StringVar(&sharepointFolder, "sharepoint-folder", "", "Base folder in SharePoint")

	return cmd
}
