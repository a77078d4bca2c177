package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lexvault/import-engine/internal/core/domain"
)

type BatchRepository struct {
	db *sql.DB
}

func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

const batchColumns = `
id, session_id, month_year, assigned_to, document_count, categorized_count,
skipped_count, assigned_at, completed_at, created_at, updated_at`

func (r *BatchRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.DocumentBatch, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+batchColumns+`
FROM document_batches
WHERE session_id = $1
ORDER BY month_year
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentBatch, 0)
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, *batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return out, nil
}

func (r *BatchRepository) GetByID(ctx context.Context, id string) (*domain.DocumentBatch, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+batchColumns+`
FROM document_batches
WHERE id = $1
`, id)

	batch, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get batch", fmt.Errorf("batch %s", id))
		}
		return nil, fmt.Errorf("scan batch: %w", err)
	}
	return batch, nil
}

// Assign claims the batch for userID, conditional on the updated_at snapshot
// the caller selected against. A row that moved on in the meantime means a
// concurrent claim; that surfaces as a conflict rather than silently
// overwriting the other writer's assignee.
func (r *BatchRepository) Assign(ctx context.Context, batchID, userID string, snapshotUpdatedAt time.Time) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
UPDATE document_batches
SET assigned_to = $2, assigned_at = $3, updated_at = $3
WHERE id = $1 AND updated_at = $4
`, batchID, userID, now, snapshotUpdatedAt)
	if err != nil {
		return fmt.Errorf("assign batch: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("assign batch rows affected: %w", err)
	}
	if rows == 0 {
		if _, getErr := r.GetByID(ctx, batchID); getErr != nil {
			return getErr
		}
		return domain.WrapError(domain.ErrConflict, "assign batch",
			fmt.Errorf("batch %s changed since snapshot", batchID))
	}
	return nil
}

func (r *BatchRepository) MarkCompleted(ctx context.Context, batchID string, completedAt time.Time) error {
	// completed_at is set once and never unset.
	result, err := r.db.ExecContext(ctx, `
UPDATE document_batches
SET completed_at = $2
WHERE id = $1 AND completed_at IS NULL
`, batchID, completedAt)
	if err != nil {
		return fmt.Errorf("mark batch completed: %w", err)
	}
	if _, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("mark completed rows affected: %w", err)
	}
	return nil
}

func scanBatch(row rowScanner) (*domain.DocumentBatch, error) {
	var batch domain.DocumentBatch
	var assignedTo sql.NullString
	err := row.Scan(
		&batch.ID,
		&batch.SessionID,
		&batch.MonthYear,
		&assignedTo,
		&batch.DocumentCount,
		&batch.CategorizedCount,
		&batch.SkippedCount,
		&batch.AssignedAt,
		&batch.CompletedAt,
		&batch.CreatedAt,
		&batch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	batch.AssignedTo = assignedTo.String
	return &batch, nil
}
