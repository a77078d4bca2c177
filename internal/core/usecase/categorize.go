package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lexvault/import-engine/internal/core/domain"
	"github.com/lexvault/import-engine/internal/core/ports"
)

// CategorizeUseCase applies paralegal categorization actions: file a document
// under a category, skip it, create ad hoc categories and merge them.
type CategorizeUseCase struct {
	sessions   ports.SessionRepository
	batches    ports.BatchRepository
	documents  ports.DocumentRepository
	categories ports.CategoryRepository
	now        func() time.Time
}

func NewCategorizeUseCase(
	sessions ports.SessionRepository,
	batches ports.BatchRepository,
	documents ports.DocumentRepository,
	categories ports.CategoryRepository,
) *CategorizeUseCase {
	return &CategorizeUseCase{
		sessions:   sessions,
		batches:    batches,
		documents:  documents,
		categories: categories,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (uc *CategorizeUseCase) CategorizeDocument(ctx context.Context, docID, categoryID, userID string) error {
	doc, err := uc.loadActionableDocument(ctx, docID)
	if err != nil {
		return err
	}

	category, err := uc.categories.GetByID(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("load category: %w", err)
	}
	if category.SessionID != doc.SessionID {
		return domain.WrapError(domain.ErrInvalidInput, "categorize document",
			fmt.Errorf("category %s belongs to a different session", categoryID))
	}
	if category.MergedInto != "" {
		return domain.WrapError(domain.ErrInvalidInput, "categorize document",
			fmt.Errorf("category %s was merged into %s", categoryID, category.MergedInto))
	}

	if err := uc.documents.ApplyCategorization(ctx, docID, domain.CategorizationCategorized, categoryID, userID); err != nil {
		return fmt.Errorf("apply categorization: %w", err)
	}
	return uc.maybeCompleteBatch(ctx, doc)
}

func (uc *CategorizeUseCase) SkipDocument(ctx context.Context, docID, userID string) error {
	doc, err := uc.loadActionableDocument(ctx, docID)
	if err != nil {
		return err
	}
	if err := uc.documents.ApplyCategorization(ctx, docID, domain.CategorizationSkipped, "", userID); err != nil {
		return fmt.Errorf("apply categorization: %w", err)
	}
	return uc.maybeCompleteBatch(ctx, doc)
}

// loadActionableDocument rejects double-handling: a document already
// categorized or skipped would inflate batch counters past documentCount.
func (uc *CategorizeUseCase) loadActionableDocument(ctx context.Context, docID string) (*domain.ExtractedDocument, error) {
	doc, err := uc.documents.GetByID(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc.CategorizationStatus != domain.CategorizationUncategorized {
		return nil, domain.WrapError(domain.ErrConflict, "categorize document",
			fmt.Errorf("document %s already %s", docID, doc.CategorizationStatus))
	}
	return doc, nil
}

// maybeCompleteBatch stamps completedAt on the transition to complete and
// moves the session to completed once every batch is done. The counter writes
// themselves happen inside ApplyCategorization; these follow-ups are
// idempotent and re-derivable from the counters on the next action.
func (uc *CategorizeUseCase) maybeCompleteBatch(ctx context.Context, doc *domain.ExtractedDocument) error {
	if doc.BatchID == "" {
		return nil
	}

	batch, err := uc.batches.GetByID(ctx, doc.BatchID)
	if err != nil {
		return fmt.Errorf("reload batch: %w", err)
	}
	if !batch.Complete() || batch.CompletedAt != nil {
		return nil
	}
	if err := uc.batches.MarkCompleted(ctx, batch.ID, uc.now()); err != nil {
		return fmt.Errorf("mark batch completed: %w", err)
	}

	all, err := uc.batches.ListBySession(ctx, doc.SessionID)
	if err != nil {
		return fmt.Errorf("list session batches: %w", err)
	}
	if !domain.AllComplete(all) {
		return nil
	}

	session, err := uc.sessions.GetByID(ctx, doc.SessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !session.CanTransition(domain.SessionCompleted) {
		return nil
	}
	if err := uc.sessions.UpdateStatus(ctx, doc.SessionID, domain.SessionCompleted, ""); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return nil
}

func (uc *CategorizeUseCase) CreateCategory(ctx context.Context, sessionID, name, userID string) (*domain.ImportCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create category", errors.New("name is required"))
	}
	if _, err := uc.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	now := uc.now()
	category := &domain.ImportCategory{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Name:      name,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

// MergeCategories repoints every document of the source categories at the
// target and tombstones the sources via mergedInto. Returns how many
// documents moved.
func (uc *CategorizeUseCase) MergeCategories(ctx context.Context, targetID string, sourceIDs []string) (int, error) {
	if len(sourceIDs) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "merge categories", errors.New("no source categories supplied"))
	}

	target, err := uc.categories.GetByID(ctx, targetID)
	if err != nil {
		return 0, fmt.Errorf("load target category: %w", err)
	}

	moved := 0
	for _, sourceID := range sourceIDs {
		if sourceID == targetID {
			return moved, domain.WrapError(domain.ErrInvalidInput, "merge categories", errors.New("target listed as source"))
		}
		source, err := uc.categories.GetByID(ctx, sourceID)
		if err != nil {
			return moved, fmt.Errorf("load source category: %w", err)
		}
		if source.SessionID != target.SessionID {
			return moved, domain.WrapError(domain.ErrInvalidInput, "merge categories",
				fmt.Errorf("category %s belongs to a different session", sourceID))
		}

		n, err := uc.documents.RepointCategory(ctx, sourceID, targetID)
		if err != nil {
			return moved, fmt.Errorf("repoint documents: %w", err)
		}
		if err := uc.categories.AdjustCount(ctx, targetID, n); err != nil {
			return moved, fmt.Errorf("bump target count: %w", err)
		}
		if err := uc.categories.MarkMerged(ctx, sourceID, targetID); err != nil {
			return moved, fmt.Errorf("mark category merged: %w", err)
		}
		moved += n
	}
	return moved, nil
}
