package ports

import (
	"context"
	"time"

	"github.com/lexvault/import-engine/internal/core/domain"
)

// ReassignedBatch records one ownership change for the audit trail.
type ReassignedBatch struct {
	BatchID   string `json:"batch_id"`
	MonthYear string `json:"month_year"`
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
}

// BatchStats is the session-level batch summary returned with mutations so
// callers skip a second round-trip.
type BatchStats struct {
	TotalBatches    int `json:"total_batches"`
	UnassignedCount int `json:"unassigned_count"`
	CompletedCount  int `json:"completed_count"`
}

// ReassignResult is the outcome of one reassignment pass.
type ReassignResult struct {
	ReassignedCount   int               `json:"reassigned_count"`
	ReassignedBatches []ReassignedBatch `json:"reassigned_batches"`
	Stats             BatchStats        `json:"stats"`
}

// StalledBatch annotates a stalled batch with its idle time in whole days.
type StalledBatch struct {
	Batch       domain.DocumentBatch `json:"batch"`
	StalledDays int                  `json:"stalled_days"`
}

// ReassignmentInfo is the read-only stall report.
type ReassignmentInfo struct {
	StalledBatches  []StalledBatch `json:"stalled_batches"`
	FinishedUsers   []string       `json:"finished_users"`
	UnassignedCount int            `json:"unassigned_count"`
	TotalBatches    int            `json:"total_batches"`
}

// BatchReassigner is the inbound contract for batch allocation.
type BatchReassigner interface {
	ReassignBatches(ctx context.Context, sessionID, targetUserID string, stalledFor time.Duration) (*ReassignResult, error)
	ReassignmentInfo(ctx context.Context, sessionID string, stalledFor time.Duration) (*ReassignmentInfo, error)
}

// ClusterActionResult is the outcome of an approve/reject/delete action.
type ClusterActionResult struct {
	ClusterID           string               `json:"cluster_id"`
	Status              domain.ClusterStatus `json:"status,omitempty"`
	AllValidated        bool                 `json:"all_validated"`
	ExtractionTriggered bool                 `json:"extraction_triggered"`
}

// MergeResult is the outcome of a cluster merge.
type MergeResult struct {
	MergedClusterID string `json:"merged_cluster_id"`
	DocumentCount   int    `json:"document_count"`
	MergedCount     int    `json:"merged_count"`
}

// MergeRequest names the clusters to merge and the surviving identity.
type MergeRequest struct {
	ClusterIDs  []string `json:"cluster_ids"`
	NewName     string   `json:"new_name"`
	NewNameEn   string   `json:"new_name_en,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ClusterValidator is the inbound contract for the cluster review workflow.
type ClusterValidator interface {
	ApplyClusterAction(ctx context.Context, clusterID string, action domain.ClusterAction, approvedName, actorID string) (*ClusterActionResult, error)
	MergeClusters(ctx context.Context, req MergeRequest, actorID string) (*MergeResult, error)
	ListClusterDocuments(ctx context.Context, clusterID string) ([]domain.ExtractedDocument, error)
	ApplyDocumentAction(ctx context.Context, clusterID, docID string, action domain.DocumentValidationAction, note, actorID string) error
	ApplyBulkDocumentAction(ctx context.Context, clusterID string, docIDs []string, action domain.DocumentValidationAction, note, actorID string) (int, error)
}

// ClusterRunner triggers the one-shot clustering pass for a session.
type ClusterRunner interface {
	RunClustering(ctx context.Context, sessionID string) (int, error)
}

// Categorizer is the inbound contract for manual categorization.
type Categorizer interface {
	CategorizeDocument(ctx context.Context, docID, categoryID, userID string) error
	SkipDocument(ctx context.Context, docID, userID string) error
	CreateCategory(ctx context.Context, sessionID, name, userID string) (*domain.ImportCategory, error)
	MergeCategories(ctx context.Context, targetID string, sourceIDs []string) (int, error)
}

// SessionExporter requests the export report job for a completed session.
type SessionExporter interface {
	RequestExport(ctx context.Context, sessionID string) error
}

// JobProcessor executes background jobs on the worker.
type JobProcessor interface {
	Process(ctx context.Context, job domain.ImportJob) error
}
