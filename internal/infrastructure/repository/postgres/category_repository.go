package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lexvault/import-engine/internal/core/domain"
)

type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `
id, session_id, name, document_count, merged_into, created_by, created_at, updated_at`

func (r *CategoryRepository) Create(ctx context.Context, category *domain.ImportCategory) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO import_categories (id, session_id, name, document_count, merged_into, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,NULL,$5,$6,$7)
`, category.ID, category.SessionID, category.Name, category.DocumentCount,
		category.CreatedBy, category.CreatedAt, category.UpdatedAt)
	if err != nil {
		// (session_id, name) is unique; a duplicate insert is a caller race,
		// not an internal failure.
		if strings.Contains(err.Error(), "duplicate key") {
			return domain.WrapError(domain.ErrConflict, "create category",
				fmt.Errorf("name %q already exists in session", category.Name))
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.ImportCategory, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+categoryColumns+`
FROM import_categories
WHERE id = $1
`, id)

	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get category", fmt.Errorf("category %s", id))
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}
	return category, nil
}

func (r *CategoryRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.ImportCategory, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+categoryColumns+`
FROM import_categories
WHERE session_id = $1
ORDER BY name
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ImportCategory, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, *category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (r *CategoryRepository) AdjustCount(ctx context.Context, id string, delta int) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE import_categories
SET document_count = document_count + $2, updated_at = $3
WHERE id = $1
`, id, delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("adjust category count: %w", err)
	}
	return requireRow(result, "category", id)
}

func (r *CategoryRepository) MarkMerged(ctx context.Context, id, mergedInto string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE import_categories
SET merged_into = $2, updated_at = $3
WHERE id = $1 AND merged_into IS NULL
`, id, mergedInto, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark category merged: %w", err)
	}
	return requireRow(result, "category", id)
}

func scanCategory(row rowScanner) (*domain.ImportCategory, error) {
	var category domain.ImportCategory
	var mergedInto sql.NullString
	err := row.Scan(
		&category.ID,
		&category.SessionID,
		&category.Name,
		&category.DocumentCount,
		&mergedInto,
		&category.CreatedBy,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	category.MergedInto = mergedInto.String
	return &category, nil
}
