package migration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/models"
)

const (
	// SummaryFilename is the structured run record
	SummaryFilename = "migration_summary.json"
	// ReportFilename is the human-readable run record
	ReportFilename = "migration_report.txt"

	timeLayout = "2006-01-02 15:04:05"
)

// WriteSummaryJSON writes the structured summary into dataDir and returns its
// path. The file is replaced wholesale each run.
func WriteSummaryJSON(dataDir string, summary *models.Summary) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(dataDir, SummaryFilename)
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}
	return path, nil
}

// WriteTextReport writes the human-readable report into dataDir and returns
// its path.
func WriteTextReport(dataDir string, summary *models.Summary) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(dataDir, ReportFilename)
	if err := os.WriteFile(path, []byte(FormatReport(summary)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// FormatReport renders the text report.
func FormatReport(summary *models.Summary) string {
	var b strings.Builder

	b.WriteString("Freshdesk to SharePoint Migration Report\n")
	b.WriteString("=======================================\n\n")

	fmt.Fprintf(&b, "Run ID: %s\n", summary.RunID)
	fmt.Fprintf(&b, "Start time: %s\n", summary.StartTime.Format(timeLayout))
	fmt.Fprintf(&b, "End time: %s\n", summary.EndTime.Format(timeLayout))
	fmt.Fprintf(&b, "Duration: %s\n\n", time.Duration(summary.Duration*float64(time.Second)).Round(time.Second))

	fmt.Fprintf(&b, "Freshdesk domain: %s\n", summary.FreshdeskDomain)
	fmt.Fprintf(&b, "SharePoint site: %s\n", summary.SharePointURL)
	fmt.Fprintf(&b, "SharePoint folder: %s\n\n", summary.SharePointFolder)

	fmt.Fprintf(&b, "Total tickets processed: %d\n", summary.TicketsProcessed)
	fmt.Fprintf(&b, "Attachments downloaded: %d (skipped: %d)\n", summary.AttachmentsDownloaded, summary.AttachmentsSkipped)
	fmt.Fprintf(&b, "Attachments uploaded: %d\n", summary.AttachmentsUploaded)
	fmt.Fprintf(&b, "Metadata files uploaded: %d\n", summary.MetadataUploaded)
	fmt.Fprintf(&b, "Failures: %d\n\n", summary.FailureCount())

	if len(summary.Tickets) > 0 {
		b.WriteString("Ticket Details:\n")
		b.WriteString("--------------\n")
		for _, t := range summary.Tickets {
			fmt.Fprintf(&b, "Ticket %d: %s\n", t.TicketID, t.Subject)
			fmt.Fprintf(&b, "  Attachments: %d uploaded, %d failed\n", t.Uploaded, t.Failed)
		}
		b.WriteString("\n")
	}

	if len(summary.Failures) > 0 {
		b.WriteString("Failures:\n")
		b.WriteString("---------\n")
		for _, f := range summary.Failures {
			if f.Filename != "" {
				fmt.Fprintf(&b, "[%s] ticket %d, %s: %s\n", f.Stage, f.TicketID, f.Filename, f.Reason)
			} else {
				fmt.Fprintf(&b, "[%s] ticket %d: %s\n", f.Stage, f.TicketID, f.Reason)
			}
		}
	}

	return b.String()
}
