package models

import "time"

// Ticket represents a Freshdesk support ticket. Fields are converted from the
// vendor payload at the client boundary so downstream stages never touch raw
// API responses.
type Ticket struct {
	ID          int64  `json:"id"`
	Subject     string `json:"subject"`
	Description string `json:"description_text,omitempty"`
	Status      int    `json:"status"`
	Priority    int    `json:"priority"`
	Source      int    `json:"source,omitempty"`
	Type        string `json:"type,omitempty"`

	RequesterID int64 `json:"requester_id"`
	ResponderID int64 `json:"responder_id,omitempty"`
	GroupID     int64 `json:"group_id,omitempty"`
	CompanyID   int64 `json:"company_id,omitempty"`

	Tags         []string       `json:"tags,omitempty"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`

	Attachments []Attachment `json:"attachments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Freshdesk ticket status codes
const (
	StatusOpen     = 2
	StatusPending  = 3
	StatusResolved = 4
	StatusClosed   = 5
)

// StatusName returns the human-readable name for a Freshdesk status code.
func StatusName(status int) string {
	switch status {
	case StatusOpen:
		return "Open"
	case StatusPending:
		return "Pending"
	case StatusResolved:
		return "Resolved"
	case StatusClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Attachment is a reference to a file attached to a ticket. Download URLs are
// time-limited on the Freshdesk side, so attachments must be fetched promptly
// after listing.
type Attachment struct {
	ID          int64  `json:"id"`
	TicketID    int64  `json:"ticket_id,omitempty"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"attachment_url"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// TicketIndexEntry is a compact id/subject record written alongside each
// snapshot for easier manual reference.
type TicketIndexEntry struct {
	ID      int64  `json:"id"`
	Subject string `json:"subject"`
}
