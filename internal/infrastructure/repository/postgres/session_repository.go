package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lexvault/import-engine/internal/core/domain"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `
id, firm_id, uploaded_by, status, total_documents, categorized_docs, skipped_docs,
analyzed_docs, pipeline_error, created_at, updated_at, exported_at, cleaned_up_at`

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.ImportSession, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+sessionColumns+`
FROM import_sessions
WHERE id = $1
`, id)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get session", fmt.Errorf("session %s", id))
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return session, nil
}

func (r *SessionRepository) ListByStatus(ctx context.Context, status domain.SessionStatus) ([]domain.ImportSession, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+sessionColumns+`
FROM import_sessions
WHERE status = $1
ORDER BY created_at
`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ImportSession, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, status domain.SessionStatus, pipelineError string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE import_sessions
SET status = $2, pipeline_error = $3, updated_at = $4
WHERE id = $1
`, id, string(status), nullableString(pipelineError), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return requireRow(result, "session", id)
}

// TryMarkExtracting flips the session to extracting unless a run is already
// in flight or finished. The WHERE clause makes the check-and-flip one atomic
// statement, so concurrent validation calls cannot double-trigger.
func (r *SessionRepository) TryMarkExtracting(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE import_sessions
SET status = $2, pipeline_error = NULL, updated_at = $3
WHERE id = $1 AND status NOT IN ($4, $5)
`, id, string(domain.SessionExtracting), time.Now().UTC(),
		string(domain.SessionExtracting), string(domain.SessionCompleted))
	if err != nil {
		return false, fmt.Errorf("mark session extracting: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark extracting rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *SessionRepository) MarkExported(ctx context.Context, id string, exportedAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE import_sessions
SET status = $2, exported_at = $3, updated_at = $3
WHERE id = $1
`, id, string(domain.SessionExported), exportedAt)
	if err != nil {
		return fmt.Errorf("mark session exported: %w", err)
	}
	return requireRow(result, "session", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.ImportSession, error) {
	var session domain.ImportSession
	var status string
	var pipelineError sql.NullString
	err := row.Scan(
		&session.ID,
		&session.FirmID,
		&session.UploadedBy,
		&status,
		&session.TotalDocuments,
		&session.CategorizedDocs,
		&session.SkippedDocs,
		&session.AnalyzedDocs,
		&pipelineError,
		&session.CreatedAt,
		&session.UpdatedAt,
		&session.ExportedAt,
		&session.CleanedUpAt,
	)
	if err != nil {
		return nil, err
	}
	session.Status = domain.SessionStatus(status)
	session.PipelineError = pipelineError.String
	return &session, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func requireRow(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", entity, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update "+entity, fmt.Errorf("%s %s", entity, id))
	}
	return nil
}
