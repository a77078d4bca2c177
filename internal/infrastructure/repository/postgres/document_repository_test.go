package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/lexvault/import-engine/internal/core/domain"
)

func documentRow(id, sessionID, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "session_id", "batch_id", "file_name", "file_extension", "file_size",
		"storage_path", "folder_path", "sent", "extracted_text", "email_subject",
		"email_sender", "email_receiver", "email_date", "category_id",
		"categorization_status", "categorized_by", "categorized_at", "cluster_id",
		"validation_status", "validated_by", "validated_at", "reclassification_note",
		"created_at", "updated_at",
	}).AddRow(id, sessionID, "b-1", "contract.pdf", ".pdf", 1024,
		"s-1/contract.pdf", "Inbox", false, "", "Contract cadru",
		"a@firm.ro", "b@firm.ro", now, nil,
		status, nil, nil, nil,
		string(domain.ValidationPending), nil, nil, "",
		now, now)
}

// Filing a document commits the status write, the category credit and the
// batch counter bump as one transaction.
func TestDocumentRepositoryApplyCategorizationCommitsAllWrites(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE extracted_documents").
		WithArgs("d-1", string(domain.CategorizationCategorized), "cat-1", "user-a",
			sqlmock.AnyArg(), string(domain.CategorizationUncategorized)).
		WillReturnRows(sqlmock.NewRows([]string{"batch_id"}).AddRow("b-1"))
	mock.ExpectExec("UPDATE import_categories").
		WithArgs("cat-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE document_batches").
		WithArgs("b-1", 1, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.ApplyCategorization(context.Background(), "d-1", domain.CategorizationCategorized, "cat-1", "user-a")
	if err != nil {
		t.Fatalf("ApplyCategorization() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

// Skipping has no category credit and counts against skipped_count.
func TestDocumentRepositoryApplyCategorizationSkipOmitsCategory(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE extracted_documents").
		WithArgs("d-1", string(domain.CategorizationSkipped), nil, "user-a",
			sqlmock.AnyArg(), string(domain.CategorizationUncategorized)).
		WillReturnRows(sqlmock.NewRows([]string{"batch_id"}).AddRow("b-1"))
	mock.ExpectExec("UPDATE document_batches").
		WithArgs("b-1", 0, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.ApplyCategorization(context.Background(), "d-1", domain.CategorizationSkipped, "", "user-a")
	if err != nil {
		t.Fatalf("ApplyCategorization() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

// A failing counter write rolls back the document status with it; no commit
// happens and the conflict surfaces.
func TestDocumentRepositoryApplyCategorizationRollsBackOnCounterOvershoot(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE extracted_documents").
		WithArgs("d-1", string(domain.CategorizationCategorized), "cat-1", "user-a",
			sqlmock.AnyArg(), string(domain.CategorizationUncategorized)).
		WillReturnRows(sqlmock.NewRows([]string{"batch_id"}).AddRow("b-1"))
	mock.ExpectExec("UPDATE import_categories").
		WithArgs("cat-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE document_batches").
		WithArgs("b-1", 1, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = repo.ApplyCategorization(context.Background(), "d-1", domain.CategorizationCategorized, "cat-1", "user-a")
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("ApplyCategorization() error = %v, want conflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentRepositoryApplyCategorizationAlreadyHandledConflicts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE extracted_documents").
		WithArgs("d-1", string(domain.CategorizationCategorized), "cat-1", "user-a",
			sqlmock.AnyArg(), string(domain.CategorizationUncategorized)).
		WillReturnRows(sqlmock.NewRows([]string{"batch_id"}))
	mock.ExpectQuery("FROM extracted_documents").
		WithArgs("d-1").
		WillReturnRows(documentRow("d-1", "s-1", string(domain.CategorizationCategorized)))
	mock.ExpectRollback()

	err = repo.ApplyCategorization(context.Background(), "d-1", domain.CategorizationCategorized, "cat-1", "user-a")
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("ApplyCategorization() error = %v, want conflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentRepositoryApplyCategorizationMissingDocumentNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE extracted_documents").
		WithArgs("missing", string(domain.CategorizationSkipped), nil, "user-a",
			sqlmock.AnyArg(), string(domain.CategorizationUncategorized)).
		WillReturnRows(sqlmock.NewRows([]string{"batch_id"}))
	mock.ExpectQuery("FROM extracted_documents").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err = repo.ApplyCategorization(context.Background(), "missing", domain.CategorizationSkipped, "", "user-a")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("ApplyCategorization() error = %v, want not found", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentRepositoryApplyCategorizationCategoryMissingRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE extracted_documents").
		WithArgs("d-1", string(domain.CategorizationCategorized), "cat-gone", "user-a",
			sqlmock.AnyArg(), string(domain.CategorizationUncategorized)).
		WillReturnRows(sqlmock.NewRows([]string{"batch_id"}).AddRow("b-1"))
	mock.ExpectExec("UPDATE import_categories").
		WithArgs("cat-gone", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = repo.ApplyCategorization(context.Background(), "d-1", domain.CategorizationCategorized, "cat-gone", "user-a")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("ApplyCategorization() error = %v, want not found", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
