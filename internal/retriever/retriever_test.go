package retriever

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/models"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/storage"
)

type mockLister struct {
	tickets []models.Ticket
	err     error
	perPage int
}

func (m *mockLister) GetAllTickets(_ context.Context, perPage int) ([]models.Ticket, error) {
	m.perPage = perPage
	if m.err != nil {
		return nil, m.err
	}
	return m.tickets, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRetriever_Run(t *testing.T) {
	dir := t.TempDir()
	lister := &mockLister{tickets: []models.Ticket{
		{ID: 100, Subject: "First"},
		{ID: 200, Subject: "Second"},
	}}

	result, err := New(lister, dir, 50, testLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.TicketCount != 2 {
		t.Errorf("TicketCount = %d, want 2", result.TicketCount)
	}
	if lister.perPage != 50 {
		t.Errorf("perPage passed to client = %d, want 50", lister.perPage)
	}

	tickets, err := storage.LoadSnapshot(result.SnapshotPath)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if len(tickets) != 2 || tickets[0].ID != 100 {
		t.Errorf("snapshot contents = %v", tickets)
	}

	if filepath.Base(result.IndexPath) != storage.TicketIndexFilename {
		t.Errorf("IndexPath = %s, want %s", result.IndexPath, storage.TicketIndexFilename)
	}
	if _, err := os.Stat(result.IndexPath); err != nil {
		t.Errorf("index file not written: %v", err)
	}
}

func TestRetriever_Run_ClientError(t *testing.T) {
	lister := &mockLister{err: errors.New("api unreachable")}

	_, err := New(lister, t.TempDir(), 0, testLogger()).Run(context.Background())
	if err == nil {
		t.Fatal("Run() error = nil, want setup failure to propagate")
	}
}

func TestRetriever_Run_NewSnapshotPerRun(t *testing.T) {
	dir := t.TempDir()
	lister := &mockLister{tickets: []models.Ticket{{ID: 1, Subject: "Only"}}}
	r := New(lister, dir, 0, testLogger())

	first, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// Snapshot filenames have second precision; a later run with a
	// different timestamp must not mutate the earlier snapshot
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, e := range entries {
		if e.Name() == filepath.Base(first.SnapshotPath) {
			found = true
		}
	}
	if !found {
		t.Errorf("first snapshot %s missing after run", first.SnapshotPath)
	}
}
