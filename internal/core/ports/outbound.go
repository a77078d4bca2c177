package ports

import (
	"context"
	"io"
	"time"

	"github.com/lexvault/import-engine/internal/core/domain"
)

// SessionRepository persists import-session state.
type SessionRepository interface {
	GetByID(ctx context.Context, id string) (*domain.ImportSession, error)
	ListByStatus(ctx context.Context, status domain.SessionStatus) ([]domain.ImportSession, error)
	UpdateStatus(ctx context.Context, id string, status domain.SessionStatus, pipelineError string) error
	// TryMarkExtracting flips the session to extracting only when its current
	// status is neither extracting nor completed. Reports whether the flip
	// happened, so the extraction trigger fires at most once.
	TryMarkExtracting(ctx context.Context, id string) (bool, error)
	MarkExported(ctx context.Context, id string, exportedAt time.Time) error
}

// BatchRepository persists document batches and their ownership.
type BatchRepository interface {
	ListBySession(ctx context.Context, sessionID string) ([]domain.DocumentBatch, error)
	GetByID(ctx context.Context, id string) (*domain.DocumentBatch, error)
	// Assign sets the batch owner with a compare-and-swap on the updatedAt
	// snapshot; a concurrent writer surfaces as domain.ErrConflict.
	Assign(ctx context.Context, batchID, userID string, snapshotUpdatedAt time.Time) error
	MarkCompleted(ctx context.Context, batchID string, completedAt time.Time) error
}

// DocumentRepository persists extracted documents.
type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.ExtractedDocument, error)
	ListByCluster(ctx context.Context, clusterID string) ([]domain.ExtractedDocument, error)
	ListUncategorized(ctx context.Context, sessionID string) ([]domain.ExtractedDocument, error)
	SetValidation(ctx context.Context, docID string, status domain.ValidationStatus, validatedBy string, note string) error
	// ApplyCategorization writes the document status, the category document
	// count and the batch counters in one transaction, so a mid-write failure
	// never leaves a categorized document without counter credit. An already
	// handled document surfaces as domain.ErrConflict, as does a batch counter
	// overshoot.
	ApplyCategorization(ctx context.Context, docID string, status domain.CategorizationStatus, categoryID, userID string) error
	RepointCategory(ctx context.Context, fromCategoryID, toCategoryID string) (int, error)
}

// ClusterRepository persists document clusters. Multi-row operations run in a
// single transaction on the persistence side.
type ClusterRepository interface {
	GetByID(ctx context.Context, id string) (*domain.DocumentCluster, error)
	ListBySession(ctx context.Context, sessionID string, includeDeleted bool) ([]domain.DocumentCluster, error)
	CreateBatch(ctx context.Context, clusters []domain.DocumentCluster, memberIDs map[string][]string) error
	SetStatus(ctx context.Context, id string, status domain.ClusterStatus, approvedName, validatedBy string) error
	CountPending(ctx context.Context, sessionID string) (int, error)
	// SoftDelete marks the cluster deleted and cascades validation status
	// deleted to every member document atomically.
	SoftDelete(ctx context.Context, id, deletedBy string) error
	// Merge reparents every document of the source clusters onto the target,
	// applies the merged attributes, resets status to pending and removes the
	// source rows, all atomically.
	Merge(ctx context.Context, target domain.DocumentCluster, sourceIDs []string) error
}

// CategoryRepository persists ad hoc import categories.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.ImportCategory) error
	GetByID(ctx context.Context, id string) (*domain.ImportCategory, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.ImportCategory, error)
	AdjustCount(ctx context.Context, id string, delta int) error
	MarkMerged(ctx context.Context, id, mergedInto string) error
}

// TemplateRepository persists extracted document templates.
type TemplateRepository interface {
	Create(ctx context.Context, template *domain.DocumentTemplate) error
	ListBySession(ctx context.Context, sessionID string) ([]domain.DocumentTemplate, error)
}

// JobQueue publishes and consumes background import jobs.
type JobQueue interface {
	PublishTemplateExtraction(ctx context.Context, sessionID string) error
	PublishExportReport(ctx context.Context, sessionID string) error
	SubscribeJobs(ctx context.Context, handler func(ctx context.Context, job domain.ImportJob) error) error
}

// DocumentClusterer groups documents by similarity.
type DocumentClusterer interface {
	Cluster(ctx context.Context, docs []domain.ExtractedDocument) ([]domain.ClusterProposal, error)
}

// TextExtractor pulls plain text out of a stored document for vectorization.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.ExtractedDocument) (string, error)
}

// ObjectStorage stores and serves the raw files extracted from the archive.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TemplateBuilder derives a reusable template from a cluster's documents.
type TemplateBuilder interface {
	Build(ctx context.Context, cluster *domain.DocumentCluster, docs []domain.ExtractedDocument) (*domain.DocumentTemplate, error)
}

// TokenStore resolves API bearer tokens to users.
type TokenStore interface {
	Lookup(ctx context.Context, token string) (*domain.AuthUser, error)
}

// ReportWriter produces the session export report artifact.
type ReportWriter interface {
	WriteSessionReport(ctx context.Context, session *domain.ImportSession, batches []domain.DocumentBatch, categories []domain.ImportCategory, clusters []domain.DocumentCluster) (string, error)
}
