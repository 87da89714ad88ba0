package domain

import (
	"time"
)

type Status string

const (
	StatusProcessing     Status = "processing"
	StatusExtractingText Status = "extracting_text"
	StatusSummarizing    Status = "summarizing"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
)

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal
// forward-only transition. Any non-terminal state may move to failed.
func (s Status) CanTransition(next Status) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	switch s {
	case StatusProcessing:
		return next == StatusExtractingText
	case StatusExtractingText:
		return next == StatusSummarizing
	case StatusSummarizing:
		return next == StatusCompleted
	default:
		return false
	}
}

// SummaryJob is the single persisted record tracking one upload's
// processing lifecycle and result.
type SummaryJob struct {
	ID           string
	OwnerID      string // empty for anonymous uploads
	FileName     string
	FileType     string // declared media type, drives extraction dispatch
	FilePath     string // object storage key; the bytes live in storage
	Status       Status
	StatusDetail string
	Summary      string
	KeyPoints    []string
	ActionItems  []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SummaryResult is the structured output of one summarization request.
type SummaryResult struct {
	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"key_points"`
	ActionItems []string `json:"action_items"`
}

// QueueMessage is the transport format sent to queue backends to
// trigger the extraction worker for one job.
type QueueMessage struct {
	JobID       string    `json:"job_id"`
	OwnerID     string    `json:"owner_id"`
	FileType    string    `json:"file_type"`
	FilePath    string    `json:"file_path"`
	RequestedAt time.Time `json:"requested_at"`
}

// ProcessedTransaction records a verified payment signature so replays
// can be rejected by uniqueness.
type ProcessedTransaction struct {
	Signature  string
	Plan       string
	Amount     float64
	RecordedAt time.Time
}
