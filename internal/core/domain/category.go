package domain

import "time"

// ImportCategory is an ad hoc bucket created during manual categorization,
// unique per (session, name). MergedInto keeps merge history; merged
// categories stay as tombstones pointing at the survivor.
type ImportCategory struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	Name          string    `json:"name"`
	DocumentCount int       `json:"document_count"`
	MergedInto    string    `json:"merged_into,omitempty"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
