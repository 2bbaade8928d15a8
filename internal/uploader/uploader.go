// Package uploader implements the final pipeline stage: creating one
// SharePoint folder per ticket and uploading the ticket metadata plus every
// locally downloaded attachment into it. The join between the snapshot and
// the attachments tree is the bare ticket id used as the directory name.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/models"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/storage"
)

// DocumentStore is the slice of the SharePoint client this stage needs.
type DocumentStore interface {
	EnsureFolder(ctx context.Context, parentPath, name string) (string, error)
	UploadFile(ctx context.Context, folderPath, filename string, r io.Reader, size int64) error
}

// Uploader mirrors the local snapshot into per-ticket SharePoint folders.
type Uploader struct {
	client         DocumentStore
	ticketsDir     string
	attachmentsDir string
	baseFolder     string
	logger         *slog.Logger
}

// New creates an Uploader. baseFolder is the SharePoint folder the per-ticket
// folders are created under.
func New(client DocumentStore, ticketsDir, attachmentsDir, baseFolder string, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		client:         client,
		ticketsDir:     ticketsDir,
		attachmentsDir: attachmentsDir,
		baseFolder:     baseFolder,
		logger:         logger,
	}
}

// UploadResultsFilename is written next to the snapshot after each run.
const UploadResultsFilename = "upload_results.json"

// Result tallies one upload run.
type Result struct {
	TicketsProcessed    int
	MetadataUploaded    int
	AttachmentsUploaded int
	Failures            []models.ItemFailure
	Tickets             []models.TicketUploadResult
}

// TicketFolderName returns the deterministic SharePoint folder name for a
// ticket.
func TicketFolderName(ticketID int64) string {
	return fmt.Sprintf("Ticket_%d", ticketID)
}

// Run uploads every ticket in the snapshot at snapshotPath. Folder creation
// is idempotent and uploads overwrite, so re-running an interrupted migration
// converges instead of duplicating. Only base-folder setup failures abort;
// per-ticket and per-file failures are tallied and skipped.
func (u *Uploader) Run(ctx context.Context, snapshotPath string) (*Result, error) {
	tickets, err := storage.LoadSnapshot(snapshotPath)
	if err != nil {
		return nil, err
	}
	u.logger.Info("Loaded ticket snapshot", "tickets", len(tickets), "snapshot", snapshotPath)

	basePath, err := u.client.EnsureFolder(ctx, "", u.baseFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure base folder %q: %w", u.baseFolder, err)
	}

	result := &Result{}
	for i := range tickets {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		u.uploadTicket(ctx, basePath, &tickets[i], result)
		result.TicketsProcessed++
	}

	if err := u.writeResults(result); err != nil {
		u.logger.Warn("Failed to write upload results", "error", err)
	}

	u.logger.Info("Upload completed",
		"tickets", result.TicketsProcessed,
		"metadata_uploaded", result.MetadataUploaded,
		"attachments_uploaded", result.AttachmentsUploaded,
		"failed", len(result.Failures))

	return result, nil
}

func (u *Uploader) uploadTicket(ctx context.Context, basePath string, ticket *models.Ticket, result *Result) {
	logger := u.logger.With("ticket_id", ticket.ID)
	logger.Info("Uploading ticket", "subject", ticket.Subject)

	ticketResult := models.TicketUploadResult{
		TicketID: ticket.ID,
		Subject:  ticket.Subject,
	}
	defer func() { result.Tickets = append(result.Tickets, ticketResult) }()

	folderPath, err := u.client.EnsureFolder(ctx, basePath, TicketFolderName(ticket.ID))
	if err != nil {
		logger.Error("Failed to ensure ticket folder", "error", err)
		result.Failures = append(result.Failures, models.ItemFailure{
			Stage:    models.StageUpload,
			TicketID: ticket.ID,
			Reason:   fmt.Sprintf("ensure folder: %v", err),
		})
		return
	}

	// Metadata JSON rendered from the snapshot record
	metadata, err := storage.MarshalTicketMetadata(ticket)
	if err == nil {
		err = u.client.UploadFile(ctx, folderPath, storage.MetadataFilename,
			bytes.NewReader(metadata), int64(len(metadata)))
	}
	if err != nil {
		logger.Error("Failed to upload ticket metadata", "error", err)
		result.Failures = append(result.Failures, models.ItemFailure{
			Stage:    models.StageUpload,
			TicketID: ticket.ID,
			Filename: storage.MetadataFilename,
			Reason:   err.Error(),
		})
	} else {
		result.MetadataUploaded++
		ticketResult.MetadataUploaded = true
	}

	// Attachments come only from the directory literally named after the
	// ticket id; a missing directory means the ticket has none
	files, err := storage.ListTicketAttachments(u.attachmentsDir, ticket.ID)
	if err != nil {
		logger.Error("Failed to list local attachments", "error", err)
		result.Failures = append(result.Failures, models.ItemFailure{
			Stage:    models.StageUpload,
			TicketID: ticket.ID,
			Reason:   fmt.Sprintf("list attachments: %v", err),
		})
		return
	}
	if len(files) == 0 {
		logger.Debug("No local attachments for ticket")
		return
	}

	ticketDir := storage.TicketAttachmentsDir(u.attachmentsDir, ticket.ID)
	for _, filename := range files {
		if err := u.uploadAttachment(ctx, folderPath, ticketDir, filename); err != nil {
			logger.Error("Failed to upload attachment", "filename", filename, "error", err)
			result.Failures = append(result.Failures, models.ItemFailure{
				Stage:    models.StageUpload,
				TicketID: ticket.ID,
				Filename: filename,
				Reason:   err.Error(),
			})
			ticketResult.Failed++
			continue
		}
		result.AttachmentsUploaded++
		ticketResult.Uploaded++
	}
}

func (u *Uploader) uploadAttachment(ctx context.Context, folderPath, ticketDir, filename string) error {
	localPath := filepath.Join(ticketDir, filename)

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	return u.client.UploadFile(ctx, folderPath, filename, f, info.Size())
}

func (u *Uploader) writeResults(result *Result) error {
	path := filepath.Join(u.ticketsDir, UploadResultsFilename)
	data, err := json.MarshalIndent(result.Tickets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
