// Package retriever implements the first pipeline stage: a full, fresh pull
// of every ticket from Freshdesk into a timestamped local snapshot. There is
// no incremental sync; each run produces a new snapshot file.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/models"
	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/storage"
)

// TicketLister is the slice of the Freshdesk client this stage needs.
type TicketLister interface {
	GetAllTickets(ctx context.Context, perPage int) ([]models.Ticket, error)
}

// Retriever drives the Freshdesk client and serializes the result to disk.
type Retriever struct {
	client     TicketLister
	ticketsDir string
	perPage    int
	logger     *slog.Logger
}

// New creates a Retriever writing snapshots into ticketsDir.
func New(client TicketLister, ticketsDir string, perPage int, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		client:     client,
		ticketsDir: ticketsDir,
		perPage:    perPage,
		logger:     logger,
	}
}

// Result describes one retrieval run.
type Result struct {
	SnapshotPath string
	IndexPath    string
	TicketCount  int
}

// Run fetches all tickets and writes the snapshot and index files. Any error
// here is setup-level: without a snapshot the rest of the pipeline cannot
// proceed.
func (r *Retriever) Run(ctx context.Context) (*Result, error) {
	r.logger.Info("Retrieving all tickets from Freshdesk")

	tickets, err := r.client.GetAllTickets(ctx, r.perPage)
	if err != nil {
		return nil, fmt.Errorf("ticket retrieval failed: %w", err)
	}

	snapshotPath, err := storage.SaveSnapshot(r.ticketsDir, tickets, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	indexPath, err := storage.SaveTicketIndex(r.ticketsDir, tickets)
	if err != nil {
		return nil, fmt.Errorf("failed to save ticket index: %w", err)
	}

	r.logger.Info("Saved ticket snapshot",
		"tickets", len(tickets),
		"snapshot", snapshotPath,
		"index", indexPath)

	return &Result{
		SnapshotPath: snapshotPath,
		IndexPath:    indexPath,
		TicketCount:  len(tickets),
	}, nil
}
