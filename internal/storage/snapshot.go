// Package storage implements the local snapshot contract shared by the
// pipeline stages: timestamped ticket snapshot files, a ticket index, and a
// per-ticket attachments tree joined to snapshots by directory name.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/helpdesk-labs/freshdesk-sharepoint-migrator/internal/models"
)

const (
	// SnapshotPrefix and SnapshotSuffix bound the snapshot filename pattern
	// tickets_<YYYYMMDD_HHMMSS>.json
	SnapshotPrefix = "tickets_"
	SnapshotSuffix = ".json"

	snapshotTimestampLayout = "20060102_150405"

	// TicketIndexFilename is the compact id/subject index written next to
	// each snapshot
	TicketIndexFilename = "ticket_index.json"

	// MetadataFilename is the per-ticket metadata file stored in each
	// ticket's attachments directory and uploaded with its attachments
	MetadataFilename = "ticket_metadata.json"

	dirPerm  = 0o755
	filePerm = 0o644
)

// SaveSnapshot writes the full ticket set to a new timestamped snapshot file
// under ticketsDir and returns its path. Snapshots are written once per
// retrieval run and never mutated; re-running produces a new file.
func SaveSnapshot(ticketsDir string, tickets []models.Ticket, now time.Time) (string, error) {
	if err := os.MkdirAll(ticketsDir, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create tickets directory: %w", err)
	}

	filename := SnapshotPrefix + now.Format(snapshotTimestampLayout) + SnapshotSuffix
	path := filepath.Join(ticketsDir, filename)

	if err := writeJSON(path, tickets); err != nil {
		return "", err
	}
	return path, nil
}

// SaveTicketIndex writes the id/subject index for a ticket set and returns
// its path. The index is overwritten on every retrieval run.
func SaveTicketIndex(ticketsDir string, tickets []models.Ticket) (string, error) {
	index := make([]models.TicketIndexEntry, 0, len(tickets))
	for _, t := range tickets {
		index = append(index, models.TicketIndexEntry{ID: t.ID, Subject: t.Subject})
	}

	path := filepath.Join(ticketsDir, TicketIndexFilename)
	if err := writeJSON(path, index); err != nil {
		return "", err
	}
	return path, nil
}

// LoadSnapshot reads a tickets snapshot file.
func LoadSnapshot(path string) ([]models.Ticket, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	var tickets []models.Ticket
	if err := json.Unmarshal(data, &tickets); err != nil {
		return nil, fmt.Errorf("malformed snapshot %s: %w", path, err)
	}
	return tickets, nil
}

// LatestSnapshot returns the path of the most recent snapshot in ticketsDir.
// Snapshot filenames embed their timestamp, so lexicographic order is
// chronological order.
func LatestSnapshot(ticketsDir string) (string, error) {
	entries, err := os.ReadDir(ticketsDir)
	if err != nil {
		return "", fmt.Errorf("failed to read tickets directory: %w", err)
	}

	var snapshots []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, SnapshotPrefix) && strings.HasSuffix(name, SnapshotSuffix) {
			snapshots = append(snapshots, name)
		}
	}

	if len(snapshots) == 0 {
		return "", fmt.Errorf("no ticket snapshot files found in %s", ticketsDir)
	}

	sort.Strings(snapshots)
	return filepath.Join(ticketsDir, snapshots[len(snapshots)-1]), nil
}

// TicketAttachmentsDir returns the attachments directory for a ticket. The
// directory name is the bare ticket id; it is the join key between the
// snapshot file and the attachments tree.
func TicketAttachmentsDir(attachmentsDir string, ticketID int64) string {
	return filepath.Join(attachmentsDir, strconv.FormatInt(ticketID, 10))
}

// ListTicketAttachments returns the filenames of downloaded attachments for a
// ticket, excluding the metadata file. A missing directory means "no
// attachments", not an error.
func ListTicketAttachments(attachmentsDir string, ticketID int64) ([]string, error) {
	dir := TicketAttachmentsDir(attachmentsDir, ticketID)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read attachments directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == MetadataFilename {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

// WriteTicketMetadata writes the per-ticket metadata JSON into the ticket's
// attachments directory, creating it as needed.
func WriteTicketMetadata(attachmentsDir string, ticket *models.Ticket) (string, error) {
	dir := TicketAttachmentsDir(attachmentsDir, ticket.ID)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create ticket directory: %w", err)
	}

	path := filepath.Join(dir, MetadataFilename)
	if err := writeJSON(path, ticket); err != nil {
		return "", err
	}
	return path, nil
}

// MarshalTicketMetadata renders the metadata JSON uploaded alongside a
// ticket's attachments.
func MarshalTicketMetadata(ticket *models.Ticket) ([]byte, error) {
	data, err := json.MarshalIndent(ticket, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ticket %d metadata: %w", ticket.ID, err)
	}
	return data, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
