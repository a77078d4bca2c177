package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lexvault/import-engine/internal/core/domain"
)

type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(ctx context.Context, template *domain.DocumentTemplate) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO document_templates (id, session_id, cluster_id, name, body, source_count, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, template.ID, template.SessionID, template.ClusterID, template.Name,
		template.Body, template.SourceCount, template.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.DocumentTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, cluster_id, name, body, source_count, created_at
FROM document_templates
WHERE session_id = $1
ORDER BY created_at
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentTemplate, 0)
	for rows.Next() {
		var t domain.DocumentTemplate
		if err := rows.Scan(&t.ID, &t.SessionID, &t.ClusterID, &t.Name, &t.Body, &t.SourceCount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return out, nil
}
