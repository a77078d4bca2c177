package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lexvault/import-engine/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `
id, session_id, batch_id, file_name, file_extension, file_size, storage_path,
folder_path, sent, extracted_text, email_subject, email_sender, email_receiver,
email_date, category_id, categorization_status, categorized_by, categorized_at,
cluster_id, validation_status, validated_by, validated_at, reclassification_note,
created_at, updated_at`

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.ExtractedDocument, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM extracted_documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("document %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) ListByCluster(ctx context.Context, clusterID string) ([]domain.ExtractedDocument, error) {
	return r.list(ctx, `
SELECT `+documentColumns+`
FROM extracted_documents
WHERE cluster_id = $1
ORDER BY created_at
`, clusterID)
}

func (r *DocumentRepository) ListUncategorized(ctx context.Context, sessionID string) ([]domain.ExtractedDocument, error) {
	return r.list(ctx, `
SELECT `+documentColumns+`
FROM extracted_documents
WHERE session_id = $1 AND categorization_status = $2
ORDER BY created_at
`, sessionID, string(domain.CategorizationUncategorized))
}

func (r *DocumentRepository) list(ctx context.Context, query string, args ...any) ([]domain.ExtractedDocument, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ExtractedDocument, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) SetValidation(ctx context.Context, docID string, status domain.ValidationStatus, validatedBy, note string) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
UPDATE extracted_documents
SET validation_status = $2, validated_by = $3, validated_at = $4,
    reclassification_note = $5, updated_at = $4
WHERE id = $1
`, docID, string(status), validatedBy, now, note)
	if err != nil {
		return fmt.Errorf("set validation status: %w", err)
	}
	return requireRow(result, "document", docID)
}

// ApplyCategorization files or skips a document and credits the category and
// batch counters in the same transaction. The status predicate doubles as the
// double-handling guard, and the batch update refuses to push the counters
// past the document count.
func (r *DocumentRepository) ApplyCategorization(ctx context.Context, docID string, status domain.CategorizationStatus, categoryID, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin categorization: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var batchID sql.NullString
	err = tx.QueryRowContext(ctx, `
UPDATE extracted_documents
SET categorization_status = $2, category_id = $3, categorized_by = $4,
    categorized_at = $5, updated_at = $5
WHERE id = $1 AND categorization_status = $6
RETURNING batch_id
`, docID, string(status), nullableString(categoryID), userID, now,
		string(domain.CategorizationUncategorized)).Scan(&batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.categorizationMiss(ctx, docID)
		}
		return fmt.Errorf("set categorization: %w", err)
	}

	if categoryID != "" {
		result, err := tx.ExecContext(ctx, `
UPDATE import_categories
SET document_count = document_count + 1, updated_at = $2
WHERE id = $1
`, categoryID, now)
		if err != nil {
			return fmt.Errorf("bump category count: %w", err)
		}
		if err := requireRow(result, "category", categoryID); err != nil {
			return err
		}
	}

	if batchID.Valid {
		categorized, skipped := 0, 1
		if status == domain.CategorizationCategorized {
			categorized, skipped = 1, 0
		}
		result, err := tx.ExecContext(ctx, `
UPDATE document_batches
SET categorized_count = categorized_count + $2,
    skipped_count = skipped_count + $3,
    updated_at = $4
WHERE id = $1
  AND categorized_count + skipped_count + $2 + $3 <= document_count
`, batchID.String, categorized, skipped, now)
		if err != nil {
			return fmt.Errorf("increment batch counters: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("increment counters rows affected: %w", err)
		}
		if rows == 0 {
			return domain.WrapError(domain.ErrConflict, "increment batch counters",
				fmt.Errorf("batch %s counters would exceed document count", batchID.String))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit categorization: %w", err)
	}
	return nil
}

// categorizationMiss distinguishes a missing document from one already
// filed; the transaction is already doomed when this runs.
func (r *DocumentRepository) categorizationMiss(ctx context.Context, docID string) error {
	doc, err := r.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	return domain.WrapError(domain.ErrConflict, "set categorization",
		fmt.Errorf("document %s already %s", docID, doc.CategorizationStatus))
}

func (r *DocumentRepository) RepointCategory(ctx context.Context, fromCategoryID, toCategoryID string) (int, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE extracted_documents
SET category_id = $2, updated_at = $3
WHERE category_id = $1
`, fromCategoryID, toCategoryID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("repoint category: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("repoint category rows affected: %w", err)
	}
	return int(rows), nil
}

func scanDocument(row rowScanner) (*domain.ExtractedDocument, error) {
	var doc domain.ExtractedDocument
	var batchID, categoryID, categorizedBy, clusterID, validatedBy sql.NullString
	var categorizationStatus, validationStatus string
	err := row.Scan(
		&doc.ID,
		&doc.SessionID,
		&batchID,
		&doc.FileName,
		&doc.FileExtension,
		&doc.FileSize,
		&doc.StoragePath,
		&doc.FolderPath,
		&doc.Sent,
		&doc.ExtractedText,
		&doc.EmailSubject,
		&doc.EmailSender,
		&doc.EmailReceiver,
		&doc.EmailDate,
		&categoryID,
		&categorizationStatus,
		&categorizedBy,
		&doc.CategorizedAt,
		&clusterID,
		&validationStatus,
		&validatedBy,
		&doc.ValidatedAt,
		&doc.ReclassificationNote,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.BatchID = batchID.String
	doc.CategoryID = categoryID.String
	doc.CategorizedBy = categorizedBy.String
	doc.ClusterID = clusterID.String
	doc.ValidatedBy = validatedBy.String
	doc.CategorizationStatus = domain.CategorizationStatus(categorizationStatus)
	doc.ValidationStatus = domain.ValidationStatus(validationStatus)
	return &doc, nil
}
