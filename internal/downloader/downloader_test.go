package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/freshdesk"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/models"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/storage"
)

type mockFetcher struct {
	tickets      map[int64]*models.Ticket
	ticketErrs   map[int64]error
	downloadErrs map[string]error
	content      map[string][]byte

	downloadCalls []string
}

func (m *mockFetcher) GetTicket(_ context.Context, ticketID int64) (*models.Ticket, error) {
	if err := m.ticketErrs[ticketID]; err != nil {
		return nil, err
	}
	ticket, ok := m.tickets[ticketID]
	if !ok {
		return nil, fmt.Errorf("unexpected ticket %d", ticketID)
	}
	return ticket, nil
}

func (m *mockFetcher) DownloadAttachment(_ context.Context, url string, w io.WriteSeeker) (int64, error) {
	m.downloadCalls = append(m.downloadCalls, url)
	if err := m.downloadErrs[url]; err != nil {
		return 0, err
	}
	content, ok := m.content[url]
	if !ok {
		content = []byte("default content")
	}
	n, err := w.Write(content)
	return int64(n), err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeSnapshot(t *testing.T, tickets []models.Ticket) string {
	t.Helper()
	path, err := storage.SaveSnapshot(t.TempDir(), tickets, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func ticketWithAttachment(id int64, filename, url string) *models.Ticket {
	return &models.Ticket{
		ID:      id,
		Subject: fmt.Sprintf("Ticket %d", id),
		Attachments: []models.Attachment{
			{ID: id * 10, TicketID: id, Name: filename, DownloadURL: url},
		},
	}
}

func TestDownloader_Run(t *testing.T) {
	fetcher := &mockFetcher{
		tickets: map[int64]*models.Ticket{
			100: ticketWithAttachment(100, "report.pdf", "https://cdn.example.com/report.pdf"),
			200: {ID: 200, Subject: "No attachments"},
		},
		content: map[string][]byte{
			"https://cdn.example.com/report.pdf": []byte("pdf bytes"),
		},
	}
	snapshot := writeSnapshot(t, []models.Ticket{{ID: 100}, {ID: 200}})
	attachmentsDir := t.TempDir()

	result, err := New(fetcher, attachmentsDir, testLogger()).Run(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.TicketsProcessed != 2 {
		t.Errorf("TicketsProcessed = %d, want 2", result.TicketsProcessed)
	}
	if result.Downloaded != 1 {
		t.Errorf("Downloaded = %d, want 1", result.Downloaded)
	}
	if len(result.Failures) != 0 {
		t.Errorf("Failures = %v, want none", result.Failures)
	}

	// File lands under the bare ticket id directory
	data, err := os.ReadFile(filepath.Join(attachmentsDir, "100", "report.pdf"))
	if err != nil {
		t.Fatalf("attachment not written: %v", err)
	}
	if string(data) != "pdf bytes" {
		t.Errorf("attachment content = %q", data)
	}

	// Metadata written for both tickets
	for _, id := range []string{"100", "200"} {
		if _, err := os.Stat(filepath.Join(attachmentsDir, id, storage.MetadataFilename)); err != nil {
			t.Errorf("metadata for ticket %s not written: %v", id, err)
		}
	}
}

func TestDownloader_SkipExisting(t *testing.T) {
	url := "https://cdn.example.com/big.zip"
	fetcher := &mockFetcher{
		tickets: map[int64]*models.Ticket{
			100: ticketWithAttachment(100, "big.zip", url),
		},
	}
	snapshot := writeSnapshot(t, []models.Ticket{{ID: 100}})
	attachmentsDir := t.TempDir()

	// Pre-existing non-empty file from an earlier partial run
	ticketDir := filepath.Join(attachmentsDir, "100")
	if err := os.MkdirAll(ticketDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ticketDir, "big.zip"), []byte("already here"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := New(fetcher, attachmentsDir, testLogger()).Run(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(fetcher.downloadCalls) != 0 {
		t.Errorf("downloadCalls = %v, want no re-download of existing file", fetcher.downloadCalls)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}

	// Existing content untouched
	data, _ := os.ReadFile(filepath.Join(ticketDir, "big.zip"))
	if string(data) != "already here" {
		t.Errorf("existing file was overwritten: %q", data)
	}
}

func TestDownloader_EmptyFileRedownloaded(t *testing.T) {
	url := "https://cdn.example.com/truncated.bin"
	fetcher := &mockFetcher{
		tickets: map[int64]*models.Ticket{
			100: ticketWithAttachment(100, "truncated.bin", url),
		},
		content: map[string][]byte{url: []byte("real bytes")},
	}
	snapshot := writeSnapshot(t, []models.Ticket{{ID: 100}})
	attachmentsDir := t.TempDir()

	// Zero-byte leftover does not count as downloaded
	ticketDir := filepath.Join(attachmentsDir, "100")
	if err := os.MkdirAll(ticketDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ticketDir, "truncated.bin"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := New(fetcher, attachmentsDir, testLogger()).Run(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Downloaded != 1 {
		t.Errorf("Downloaded = %d, want 1 (empty file re-downloaded)", result.Downloaded)
	}
}

func TestDownloader_PartialFailureIsolation(t *testing.T) {
	okURL := "https://cdn.example.com/ok.txt"
	badURL := "https://cdn.example.com/expired.txt"
	fetcher := &mockFetcher{
		tickets: map[int64]*models.Ticket{
			123: ticketWithAttachment(123, "ok.txt", okURL),
			456: ticketWithAttachment(456, "expired.txt", badURL),
		},
		content:      map[string][]byte{okURL: []byte("fine")},
		downloadErrs: map[string]error{badURL: freshdesk.ErrNotFound},
	}
	snapshot := writeSnapshot(t, []models.Ticket{{ID: 123}, {ID: 456}})
	attachmentsDir := t.TempDir()

	result, err := New(fetcher, attachmentsDir, testLogger()).Run(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("Run() error = %v, want partial failure to be non-fatal", err)
	}

	// Ticket 123 still succeeded
	if _, err := os.Stat(filepath.Join(attachmentsDir, "123", "ok.txt")); err != nil {
		t.Errorf("ticket 123 attachment missing: %v", err)
	}
	if result.Downloaded != 1 {
		t.Errorf("Downloaded = %d, want 1", result.Downloaded)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %d, want exactly 1", len(result.Failures))
	}

	f := result.Failures[0]
	if f.TicketID != 456 || f.Filename != "expired.txt" || f.Stage != models.StageDownload {
		t.Errorf("failure record = %+v", f)
	}

	// The failed partial file must not be left behind to fool skip-if-exists
	if _, err := os.Stat(filepath.Join(attachmentsDir, "456", "expired.txt")); !os.IsNotExist(err) {
		t.Errorf("partial file left behind for failed download")
	}
}

func TestDownloader_TicketDetailFailureIsolated(t *testing.T) {
	fetcher := &mockFetcher{
		tickets: map[int64]*models.Ticket{
			200: {ID: 200, Subject: "Fine"},
		},
		ticketErrs: map[int64]error{
			100: fmt.Errorf("detail fetch: %w", freshdesk.ErrServerError),
		},
	}
	snapshot := writeSnapshot(t, []models.Ticket{{ID: 100}, {ID: 200}})

	result, err := New(fetcher, t.TempDir(), testLogger()).Run(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.TicketsProcessed != 2 {
		t.Errorf("TicketsProcessed = %d, want 2", result.TicketsProcessed)
	}
	if len(result.Failures) != 1 || result.Failures[0].TicketID != 100 {
		t.Errorf("Failures = %+v, want one for ticket 100", result.Failures)
	}
}

func TestDownloader_MissingSnapshot(t *testing.T) {
	fetcher := &mockFetcher{}
	_, err := New(fetcher, t.TempDir(), testLogger()).
		Run(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Error("Run() error = nil, want setup failure for missing snapshot")
	}
}
