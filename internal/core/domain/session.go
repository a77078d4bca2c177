package domain

import "time"

type SessionStatus string

const (
	SessionUploading  SessionStatus = "uploading"
	SessionExtracting SessionStatus = "extracting"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionExported   SessionStatus = "exported"
	SessionFailed     SessionStatus = "failed"
)

// statusRank orders the forward-only lifecycle. Failed sits outside the
// sequence and is reachable from any state.
var statusRank = map[SessionStatus]int{
	SessionUploading:  0,
	SessionExtracting: 1,
	SessionInProgress: 2,
	SessionCompleted:  3,
	SessionExported:   4,
}

// ImportSession tracks one uploaded PST archive through extraction,
// categorization, cluster validation and export.
type ImportSession struct {
	ID              string         `json:"id"`
	FirmID          string         `json:"firm_id"`
	UploadedBy      string         `json:"uploaded_by"`
	Status          SessionStatus  `json:"status"`
	TotalDocuments  int            `json:"total_documents"`
	CategorizedDocs int            `json:"categorized_docs"`
	SkippedDocs     int            `json:"skipped_docs"`
	AnalyzedDocs    int            `json:"analyzed_docs"`
	PipelineError   string         `json:"pipeline_error,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	ExportedAt      *time.Time     `json:"exported_at,omitempty"`
	CleanedUpAt     *time.Time     `json:"cleaned_up_at,omitempty"`
}

// CanTransition reports whether the session status may move to next.
// The lifecycle only moves forward; Failed is always reachable.
func (s *ImportSession) CanTransition(next SessionStatus) bool {
	if next == SessionFailed {
		return true
	}
	from, okFrom := statusRank[s.Status]
	to, okTo := statusRank[next]
	if !okFrom || !okTo {
		return false
	}
	return to > from
}
