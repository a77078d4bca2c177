package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the import-pipeline tables if missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS import_sessions (
	id TEXT PRIMARY KEY,
	firm_id TEXT NOT NULL,
	uploaded_by TEXT NOT NULL,
	status TEXT NOT NULL,
	total_documents INTEGER NOT NULL DEFAULT 0,
	categorized_docs INTEGER NOT NULL DEFAULT 0,
	skipped_docs INTEGER NOT NULL DEFAULT 0,
	analyzed_docs INTEGER NOT NULL DEFAULT 0,
	pipeline_error TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	exported_at TIMESTAMPTZ,
	cleaned_up_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_import_sessions_status ON import_sessions(status);

CREATE TABLE IF NOT EXISTS document_batches (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES import_sessions(id),
	month_year TEXT NOT NULL,
	assigned_to TEXT,
	document_count INTEGER NOT NULL DEFAULT 0,
	categorized_count INTEGER NOT NULL DEFAULT 0,
	skipped_count INTEGER NOT NULL DEFAULT 0,
	assigned_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (session_id, month_year)
);

CREATE INDEX IF NOT EXISTS idx_document_batches_session ON document_batches(session_id);

CREATE TABLE IF NOT EXISTS extracted_documents (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES import_sessions(id),
	batch_id TEXT REFERENCES document_batches(id),
	file_name TEXT NOT NULL,
	file_extension TEXT NOT NULL DEFAULT '',
	file_size BIGINT NOT NULL DEFAULT 0,
	storage_path TEXT NOT NULL,
	folder_path TEXT NOT NULL DEFAULT '',
	sent BOOLEAN NOT NULL DEFAULT FALSE,
	extracted_text TEXT NOT NULL DEFAULT '',
	email_subject TEXT NOT NULL DEFAULT '',
	email_sender TEXT NOT NULL DEFAULT '',
	email_receiver TEXT NOT NULL DEFAULT '',
	email_date TIMESTAMPTZ,
	category_id TEXT,
	categorization_status TEXT NOT NULL,
	categorized_by TEXT,
	categorized_at TIMESTAMPTZ,
	cluster_id TEXT,
	validation_status TEXT NOT NULL,
	validated_by TEXT,
	validated_at TIMESTAMPTZ,
	reclassification_note TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extracted_documents_session ON extracted_documents(session_id);
CREATE INDEX IF NOT EXISTS idx_extracted_documents_cluster ON extracted_documents(cluster_id);
CREATE INDEX IF NOT EXISTS idx_extracted_documents_category ON extracted_documents(category_id);

CREATE TABLE IF NOT EXISTS document_clusters (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES import_sessions(id),
	suggested_name TEXT NOT NULL,
	suggested_name_en TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	document_count INTEGER NOT NULL DEFAULT 0,
	sample_document_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
	status TEXT NOT NULL,
	approved_name TEXT NOT NULL DEFAULT '',
	validated_by TEXT,
	validated_at TIMESTAMPTZ,
	is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_by TEXT,
	deleted_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_document_clusters_session ON document_clusters(session_id);

CREATE TABLE IF NOT EXISTS import_categories (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES import_sessions(id),
	name TEXT NOT NULL,
	document_count INTEGER NOT NULL DEFAULT 0,
	merged_into TEXT,
	created_by TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (session_id, name)
);

CREATE TABLE IF NOT EXISTS document_templates (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES import_sessions(id),
	cluster_id TEXT NOT NULL,
	name TEXT NOT NULL,
	body TEXT NOT NULL,
	source_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
