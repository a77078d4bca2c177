package domain

import "time"

// DocumentBatch is a month-year partition of a session's documents and the
// unit of categorization work handed to a single user.
type DocumentBatch struct {
	ID               string     `json:"id"`
	SessionID        string     `json:"session_id"`
	MonthYear        string     `json:"month_year"` // "2006-01", unique per session
	AssignedTo       string     `json:"assigned_to,omitempty"`
	DocumentCount    int        `json:"document_count"`
	CategorizedCount int        `json:"categorized_count"`
	SkippedCount     int        `json:"skipped_count"`
	AssignedAt       *time.Time `json:"assigned_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Complete reports whether every document in the batch has been handled.
// A batch with zero documents counts as complete.
func (b *DocumentBatch) Complete() bool {
	return b.CategorizedCount+b.SkippedCount >= b.DocumentCount
}

// Assigned reports whether the batch currently has an owner.
func (b *DocumentBatch) Assigned() bool {
	return b.AssignedTo != ""
}

// StalledFor reports how long the batch has been without activity.
func (b *DocumentBatch) StalledFor(now time.Time) time.Duration {
	return now.Sub(b.UpdatedAt)
}

// FullyAssigned reports whether every batch in the set has an owner.
func FullyAssigned(batches []DocumentBatch) bool {
	for i := range batches {
		if !batches[i].Assigned() {
			return false
		}
	}
	return true
}

// AllComplete reports whether every batch in the set is complete.
func AllComplete(batches []DocumentBatch) bool {
	for i := range batches {
		if !batches[i].Complete() {
			return false
		}
	}
	return true
}
