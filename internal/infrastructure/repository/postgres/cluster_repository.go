package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lexvault/import-engine/internal/core/domain"
)

type ClusterRepository struct {
	db *sql.DB
}

func NewClusterRepository(db *sql.DB) *ClusterRepository {
	return &ClusterRepository{db: db}
}

const clusterColumns = `
id, session_id, suggested_name, suggested_name_en, description, document_count,
sample_document_ids, status, approved_name, validated_by, validated_at,
is_deleted, deleted_by, deleted_at, created_at, updated_at`

func (r *ClusterRepository) GetByID(ctx context.Context, id string) (*domain.DocumentCluster, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+clusterColumns+`
FROM document_clusters
WHERE id = $1
`, id)

	cluster, err := scanCluster(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get cluster", fmt.Errorf("cluster %s", id))
		}
		return nil, fmt.Errorf("scan cluster: %w", err)
	}
	return cluster, nil
}

func (r *ClusterRepository) ListBySession(ctx context.Context, sessionID string, includeDeleted bool) ([]domain.DocumentCluster, error) {
	query := `
SELECT ` + clusterColumns + `
FROM document_clusters
WHERE session_id = $1
`
	if !includeDeleted {
		query += "AND is_deleted = FALSE\n"
	}
	query += "ORDER BY document_count DESC, id"

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentCluster, 0)
	for rows.Next() {
		cluster, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		out = append(out, *cluster)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clusters: %w", err)
	}
	return out, nil
}

// CreateBatch inserts the clustering pass output and links member documents
// in one transaction.
func (r *ClusterRepository) CreateBatch(ctx context.Context, clusters []domain.DocumentCluster, memberIDs map[string][]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create clusters tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := range clusters {
		c := clusters[i]
		samplesJSON, err := json.Marshal(c.SampleDocumentIDs)
		if err != nil {
			return fmt.Errorf("marshal sample ids: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO document_clusters (
	id, session_id, suggested_name, suggested_name_en, description, document_count,
	sample_document_ids, status, approved_name, is_deleted, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'',FALSE,$9,$10)
`, c.ID, c.SessionID, c.SuggestedName, c.SuggestedNameEn, c.Description,
			c.DocumentCount, samplesJSON, string(c.Status), c.CreatedAt, c.UpdatedAt); err != nil {
			return fmt.Errorf("insert cluster: %w", err)
		}

		for _, docID := range memberIDs[c.ID] {
			if _, err := tx.ExecContext(ctx, `
UPDATE extracted_documents SET cluster_id = $2, updated_at = $3 WHERE id = $1
`, docID, c.ID, c.CreatedAt); err != nil {
				return fmt.Errorf("link document %s: %w", docID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create clusters tx: %w", err)
	}
	return nil
}

func (r *ClusterRepository) SetStatus(ctx context.Context, id string, status domain.ClusterStatus, approvedName, validatedBy string) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
UPDATE document_clusters
SET status = $2, approved_name = $3, validated_by = $4, validated_at = $5, updated_at = $5
WHERE id = $1 AND is_deleted = FALSE
`, id, string(status), approvedName, validatedBy, now)
	if err != nil {
		return fmt.Errorf("set cluster status: %w", err)
	}
	return requireRow(result, "cluster", id)
}

func (r *ClusterRepository) CountPending(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM document_clusters
WHERE session_id = $1 AND status = $2 AND is_deleted = FALSE
`, sessionID, string(domain.ClusterPending)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending clusters: %w", err)
	}
	return n, nil
}

// SoftDelete marks the cluster deleted and cascades validation status
// deleted onto every member document in the same transaction.
func (r *ClusterRepository) SoftDelete(ctx context.Context, id, deletedBy string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete cluster tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `
UPDATE document_clusters
SET is_deleted = TRUE, deleted_by = $2, deleted_at = $3, updated_at = $3
WHERE id = $1 AND is_deleted = FALSE
`, id, deletedBy, now)
	if err != nil {
		return fmt.Errorf("soft delete cluster: %w", err)
	}
	if err := requireRow(result, "cluster", id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE extracted_documents
SET validation_status = $2, validated_by = $3, validated_at = $4, updated_at = $4
WHERE cluster_id = $1
`, id, string(domain.ValidationDeleted), deletedBy, now); err != nil {
		return fmt.Errorf("cascade member deletion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete cluster tx: %w", err)
	}
	return nil
}

// Merge reparents the source clusters' documents onto the target, rewrites
// the target row and removes the sources. All or nothing.
func (r *ClusterRepository) Merge(ctx context.Context, target domain.DocumentCluster, sourceIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin merge tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, sourceID := range sourceIDs {
		if _, err := tx.ExecContext(ctx, `
UPDATE extracted_documents SET cluster_id = $2, updated_at = $3 WHERE cluster_id = $1
`, sourceID, target.ID, now); err != nil {
			return fmt.Errorf("reparent documents of %s: %w", sourceID, err)
		}
	}

	samplesJSON, err := json.Marshal(target.SampleDocumentIDs)
	if err != nil {
		return fmt.Errorf("marshal sample ids: %w", err)
	}
	result, err := tx.ExecContext(ctx, `
UPDATE document_clusters
SET suggested_name = $2, suggested_name_en = $3, description = $4,
    document_count = $5, sample_document_ids = $6, status = $7,
    approved_name = '', validated_by = NULL, validated_at = NULL, updated_at = $8
WHERE id = $1 AND is_deleted = FALSE
`, target.ID, target.SuggestedName, target.SuggestedNameEn, target.Description,
		target.DocumentCount, samplesJSON, string(target.Status), now)
	if err != nil {
		return fmt.Errorf("update merge target: %w", err)
	}
	if err := requireRow(result, "cluster", target.ID); err != nil {
		return err
	}

	for _, sourceID := range sourceIDs {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM document_clusters WHERE id = $1
`, sourceID); err != nil {
			return fmt.Errorf("delete source cluster %s: %w", sourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merge tx: %w", err)
	}
	return nil
}

func scanCluster(row rowScanner) (*domain.DocumentCluster, error) {
	var cluster domain.DocumentCluster
	var samplesRaw []byte
	var status string
	var validatedBy, deletedBy sql.NullString
	err := row.Scan(
		&cluster.ID,
		&cluster.SessionID,
		&cluster.SuggestedName,
		&cluster.SuggestedNameEn,
		&cluster.Description,
		&cluster.DocumentCount,
		&samplesRaw,
		&status,
		&cluster.ApprovedName,
		&validatedBy,
		&cluster.ValidatedAt,
		&cluster.IsDeleted,
		&deletedBy,
		&cluster.DeletedAt,
		&cluster.CreatedAt,
		&cluster.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(samplesRaw, &cluster.SampleDocumentIDs); err != nil {
		return nil, fmt.Errorf("unmarshal sample ids: %w", err)
	}
	cluster.Status = domain.ClusterStatus(status)
	cluster.ValidatedBy = validatedBy.String
	cluster.DeletedBy = deletedBy.String
	return &cluster, nil
}
