// Package migration sequences the three pipeline stages end to end over one
// shared data directory and produces the summary reports that are the
// authoritative record of what succeeded and failed.
package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/downloader"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/models"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/retriever"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/uploader"
)

// TicketRetriever runs the retrieval stage.
type TicketRetriever interface {
	Run(ctx context.Context) (*retriever.Result, error)
}

// AttachmentDownloader runs the download stage against a snapshot.
type AttachmentDownloader interface {
	Run(ctx context.Context, snapshotPath string) (*downloader.Result, error)
}

// TicketUploader runs the upload stage against a snapshot.
type TicketUploader interface {
	Run(ctx context.Context, snapshotPath string) (*uploader.Result, error)
}

// RunnerConfig carries the endpoints recorded in the summary and the data
// directory reports are written to.
type RunnerConfig struct {
	DataDir          string
	FreshdeskDomain  string
	SharePointURL    string
	SharePointFolder string
}

// Runner sequences retrieve → download → upload and aggregates the results.
type Runner struct {
	retriever  TicketRetriever
	downloader AttachmentDownloader
	uploader   TicketUploader
	cfg        RunnerConfig
	logger     *slog.Logger
}

// NewRunner creates a migration runner.
func NewRunner(r TicketRetriever, d AttachmentDownloader, u TicketUploader, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		retriever:  r,
		downloader: d,
		uploader:   u,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run executes the full migration. Item-level failures are tallied into the
// summary and do not fail the run; a stage-setup failure (authentication,
// unreachable endpoint, unreadable snapshot) aborts with an error. The
// summary and report files are written even when the error path is taken part
// way through.
func (r *Runner) Run(ctx context.Context) (*models.Summary, error) {
	runID := uuid.NewString()
	logger := r.logger.With("run_id", runID)

	summary := &models.Summary{
		RunID:            runID,
		StartTime:        time.Now(),
		FreshdeskDomain:  r.cfg.FreshdeskDomain,
		SharePointURL:    r.cfg.SharePointURL,
		SharePointFolder: r.cfg.SharePointFolder,
	}

	logger.Info("Starting Freshdesk to SharePoint migration",
		"freshdesk_domain", r.cfg.FreshdeskDomain,
		"sharepoint_url", r.cfg.SharePointURL)

	logger.Info("Stage 1: retrieving tickets")
	retrieved, err := r.retriever.Run(ctx)
	if err != nil {
		return r.finish(summary, fmt.Errorf("retrieve stage failed: %w", err))
	}
	summary.TicketsProcessed = retrieved.TicketCount

	logger.Info("Stage 2: downloading attachments", "snapshot", retrieved.SnapshotPath)
	downloaded, err := r.downloader.Run(ctx, retrieved.SnapshotPath)
	if err != nil {
		return r.finish(summary, fmt.Errorf("download stage failed: %w", err))
	}
	summary.AttachmentsDownloaded = downloaded.Downloaded
	summary.AttachmentsSkipped = downloaded.Skipped
	summary.Failures = append(summary.Failures, downloaded.Failures...)

	logger.Info("Stage 3: uploading to SharePoint")
	uploaded, err := r.uploader.Run(ctx, retrieved.SnapshotPath)
	if err != nil {
		return r.finish(summary, fmt.Errorf("upload stage failed: %w", err))
	}
	summary.AttachmentsUploaded = uploaded.AttachmentsUploaded
	summary.MetadataUploaded = uploaded.MetadataUploaded
	summary.Failures = append(summary.Failures, uploaded.Failures...)
	summary.Tickets = uploaded.Tickets

	sum, err := r.finish(summary, nil)
	if err != nil {
		return sum, err
	}

	logger.Info("Migration completed",
		"duration", time.Duration(summary.Duration*float64(time.Second)).Round(time.Second),
		"tickets", summary.TicketsProcessed,
		"attachments_uploaded", summary.AttachmentsUploaded,
		"failures", summary.FailureCount())
	return sum, nil
}

// finish stamps the end time and writes the report files, preserving runErr
// as the primary error.
func (r *Runner) finish(summary *models.Summary, runErr error) (*models.Summary, error) {
	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime).Seconds()

	if jsonPath, err := WriteSummaryJSON(r.cfg.DataDir, summary); err != nil {
		r.logger.Error("Failed to write migration summary", "error", err)
	} else {
		r.logger.Info("Summary saved", "path", jsonPath)
	}

	if reportPath, err := WriteTextReport(r.cfg.DataDir, summary); err != nil {
		r.logger.Error("Failed to write migration report", "error", err)
	} else {
		r.logger.Info("Report saved", "path", reportPath)
	}

	return summary, runErr
}
