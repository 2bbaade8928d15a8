package models

import "time"

// Stage identifies the pipeline stage an item failure occurred in.
type Stage string

const (
	StageRetrieve Stage = "retrieve"
	StageDownload Stage = "download"
	StageUpload   Stage = "upload"
)

// ItemFailure records a single ticket/attachment/file level failure. Item
// failures never abort a run; they are tallied into the summary.
type ItemFailure struct {
	Stage    Stage  `json:"stage"`
	TicketID int64  `json:"ticket_id"`
	Filename string `json:"filename,omitempty"`
	Reason   string `json:"reason"`
}

// TicketUploadResult is the per-ticket record written to upload_results.json.
type TicketUploadResult struct {
	TicketID         int64  `json:"ticket_id"`
	Subject          string `json:"subject"`
	MetadataUploaded bool   `json:"metadata_uploaded"`
	Uploaded         int    `json:"attachments_uploaded"`
	Failed           int    `json:"attachments_failed"`
}

// Summary is the aggregate record of a full migration run. It is regenerated
// wholesale each run, never updated incrementally.
type Summary struct {
	RunID     string    `json:"run_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration_seconds"`

	FreshdeskDomain  string `json:"freshdesk_domain"`
	SharePointURL    string `json:"sharepoint_url"`
	SharePointFolder string `json:"sharepoint_folder"`

	TicketsProcessed      int `json:"tickets_processed"`
	AttachmentsDownloaded int `json:"attachments_downloaded"`
	AttachmentsSkipped    int `json:"attachments_skipped"`
	AttachmentsUploaded   int `json:"attachments_uploaded"`
	MetadataUploaded      int `json:"metadata_uploaded"`

	Failures []ItemFailure        `json:"failures"`
	Tickets  []TicketUploadResult `json:"tickets,omitempty"`
}

// FailureCount returns the total number of item-level failures in the run.
func (s *Summary) FailureCount() int {
	return len(s.Failures)
}
