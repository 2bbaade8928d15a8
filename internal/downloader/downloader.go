// Package downloader implements the second pipeline stage: resolving every
// attachment referenced by a ticket snapshot to bytes on local disk.
// Failures are tolerated at item granularity; one broken attachment never
// stops the scan.
package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/models"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/storage"
)

// TicketFetcher is the slice of the Freshdesk client this stage needs.
// Ticket detail is re-fetched per ticket because attachment download URLs are
// time-limited and the snapshot may be stale by download time. The download
// destination is a seeker so the client can rewind it between retry attempts.
type TicketFetcher interface {
	GetTicket(ctx context.Context, ticketID int64) (*models.Ticket, error)
	DownloadAttachment(ctx context.Context, downloadURL string, w io.WriteSeeker) (int64, error)
}

// Downloader stores attachments under one directory per ticket id.
type Downloader struct {
	client         TicketFetcher
	attachmentsDir string
	logger         *slog.Logger
}

// New creates a Downloader writing into attachmentsDir.
func New(client TicketFetcher, attachmentsDir string, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		client:         client,
		attachmentsDir: attachmentsDir,
		logger:         logger,
	}
}

// Result tallies one download run.
type Result struct {
	TicketsProcessed int
	Downloaded       int
	Skipped          int
	Failures         []models.ItemFailure
}

// Run downloads attachments for every ticket in the snapshot at snapshotPath.
// A file that already exists locally with a non-zero size is skipped, which
// makes re-runs after a partial failure cheap.
func (d *Downloader) Run(ctx context.Context, snapshotPath string) (*Result, error) {
	tickets, err := storage.LoadSnapshot(snapshotPath)
	if err != nil {
		return nil, err
	}
	d.logger.Info("Loaded ticket snapshot", "tickets", len(tickets), "snapshot", snapshotPath)

	if err := os.MkdirAll(d.attachmentsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create attachments directory: %w", err)
	}

	result := &Result{}
	for i := range tickets {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		d.downloadTicket(ctx, &tickets[i], result)
		result.TicketsProcessed++
	}

	d.logger.Info("Attachment download completed",
		"tickets", result.TicketsProcessed,
		"downloaded", result.Downloaded,
		"skipped", result.Skipped,
		"failed", len(result.Failures))

	return result, nil
}

func (d *Downloader) downloadTicket(ctx context.Context, snapshot *models.Ticket, result *Result) {
	logger := d.logger.With("ticket_id", snapshot.ID)
	logger.Info("Processing ticket", "subject", snapshot.Subject)

	// Refresh detail for current attachment URLs
	ticket, err := d.client.GetTicket(ctx, snapshot.ID)
	if err != nil {
		logger.Error("Failed to fetch ticket detail", "error", err)
		result.Failures = append(result.Failures, models.ItemFailure{
			Stage:    models.StageDownload,
			TicketID: snapshot.ID,
			Reason:   fmt.Sprintf("fetch ticket detail: %v", err),
		})
		return
	}

	if _, err := storage.WriteTicketMetadata(d.attachmentsDir, ticket); err != nil {
		logger.Error("Failed to write ticket metadata", "error", err)
		result.Failures = append(result.Failures, models.ItemFailure{
			Stage:    models.StageDownload,
			TicketID: ticket.ID,
			Filename: storage.MetadataFilename,
			Reason:   err.Error(),
		})
	}

	if len(ticket.Attachments) == 0 {
		logger.Debug("No attachments for ticket")
		return
	}
	logger.Info("Found attachments", "count", len(ticket.Attachments))

	for _, att := range ticket.Attachments {
		if err := d.downloadAttachment(ctx, ticket.ID, att, result); err != nil {
			logger.Error("Failed to download attachment",
				"attachment_id", att.ID,
				"filename", att.Name,
				"error", err)
			result.Failures = append(result.Failures, models.ItemFailure{
				Stage:    models.StageDownload,
				TicketID: ticket.ID,
				Filename: att.Name,
				Reason:   err.Error(),
			})
		}
	}
}

func (d *Downloader) downloadAttachment(ctx context.Context, ticketID int64, att models.Attachment, result *Result) error {
	// Strip any path components the vendor filename might carry
	filename := filepath.Base(att.Name)
	if filename == "." || filename == string(filepath.Separator) {
		filename = fmt.Sprintf("attachment_%d", att.ID)
	}

	ticketDir := storage.TicketAttachmentsDir(d.attachmentsDir, ticketID)
	if err := os.MkdirAll(ticketDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", ticketDir, err)
	}
	destPath := filepath.Join(ticketDir, filename)

	// Skip files already present from a previous run
	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		d.logger.Debug("Attachment already downloaded, skipping",
			"ticket_id", ticketID,
			"filename", filename)
		result.Skipped++
		return nil
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}

	n, err := d.client.DownloadAttachment(ctx, att.DownloadURL, f)
	closeErr := f.Close()
	if err != nil {
		// Remove the partial file so the next run does not skip it
		_ = os.Remove(destPath)
		return err
	}
	if closeErr != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("close %s: %w", destPath, closeErr)
	}

	d.logger.Info("Downloaded attachment",
		"ticket_id", ticketID,
		"filename", filename,
		"bytes", n)
	result.Downloaded++
	return nil
}
