package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexvault/import-engine/internal/core/domain"
	"github.com/lexvault/import-engine/internal/core/ports"
)

// JobUseCase executes background import jobs on the worker: template
// extraction after cluster validation and the session export report. Failures
// are written into session state, never surfaced to the request that queued
// the job.
type JobUseCase struct {
	sessions   ports.SessionRepository
	batches    ports.BatchRepository
	documents  ports.DocumentRepository
	clusters   ports.ClusterRepository
	categories ports.CategoryRepository
	templates  ports.TemplateRepository
	builder    ports.TemplateBuilder
	reports    ports.ReportWriter
	now        func() time.Time
}

func NewJobUseCase(
	sessions ports.SessionRepository,
	batches ports.BatchRepository,
	documents ports.DocumentRepository,
	clusters ports.ClusterRepository,
	categories ports.CategoryRepository,
	templates ports.TemplateRepository,
	builder ports.TemplateBuilder,
	reports ports.ReportWriter,
) *JobUseCase {
	return &JobUseCase{
		sessions:   sessions,
		batches:    batches,
		documents:  documents,
		clusters:   clusters,
		categories: categories,
		templates:  templates,
		builder:    builder,
		reports:    reports,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (uc *JobUseCase) Process(ctx context.Context, job domain.ImportJob) error {
	switch job.Kind {
	case domain.JobTemplateExtraction:
		return uc.extractTemplates(ctx, job.SessionID)
	case domain.JobExportReport:
		return uc.exportReport(ctx, job.SessionID)
	default:
		return domain.WrapError(domain.ErrInvalidInput, "process job", fmt.Errorf("unknown job kind %q", job.Kind))
	}
}

// extractTemplates builds one template per eligible approved cluster. Success
// completes the session pipeline; any failure is recorded on the session.
func (uc *JobUseCase) extractTemplates(ctx context.Context, sessionID string) error {
	if err := uc.runTemplateExtraction(ctx, sessionID); err != nil {
		if statusErr := uc.sessions.UpdateStatus(ctx, sessionID, domain.SessionFailed, err.Error()); statusErr != nil {
			return fmt.Errorf("%w; mark session failed: %w", err, statusErr)
		}
		return err
	}
	if err := uc.sessions.UpdateStatus(ctx, sessionID, domain.SessionCompleted, ""); err != nil {
		return fmt.Errorf("complete session after extraction: %w", err)
	}
	return nil
}

func (uc *JobUseCase) runTemplateExtraction(ctx context.Context, sessionID string) error {
	clusters, err := uc.clusters.ListBySession(ctx, sessionID, false)
	if err != nil {
		return fmt.Errorf("list clusters: %w", err)
	}

	extracted := 0
	for i := range clusters {
		cluster := clusters[i]
		if !cluster.TemplateEligible() {
			continue
		}

		docs, err := uc.documents.ListByCluster(ctx, cluster.ID)
		if err != nil {
			return fmt.Errorf("list documents for cluster %s: %w", cluster.ID, err)
		}
		template, err := uc.builder.Build(ctx, &cluster, docs)
		if err != nil {
			return fmt.Errorf("build template for cluster %s: %w", cluster.ID, err)
		}
		template.CreatedAt = uc.now()
		if err := uc.templates.Create(ctx, template); err != nil {
			return fmt.Errorf("persist template: %w", err)
		}
		extracted++
	}

	if extracted == 0 {
		return errors.New("no eligible cluster produced a template")
	}
	return nil
}

// exportReport renders the XLSX session summary and stamps the session
// exported.
func (uc *JobUseCase) exportReport(ctx context.Context, sessionID string) error {
	session, err := uc.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !session.CanTransition(domain.SessionExported) {
		return domain.WrapError(domain.ErrConflict, "export report",
			fmt.Errorf("session %s in status %s cannot be exported", sessionID, session.Status))
	}

	batches, err := uc.batches.ListBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("list batches: %w", err)
	}
	categories, err := uc.categories.ListBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	clusters, err := uc.clusters.ListBySession(ctx, sessionID, false)
	if err != nil {
		return fmt.Errorf("list clusters: %w", err)
	}

	if _, err := uc.reports.WriteSessionReport(ctx, session, batches, categories, clusters); err != nil {
		if statusErr := uc.sessions.UpdateStatus(ctx, sessionID, domain.SessionFailed, err.Error()); statusErr != nil {
			return fmt.Errorf("write report: %w; mark session failed: %w", err, statusErr)
		}
		return fmt.Errorf("write report: %w", err)
	}

	if err := uc.sessions.MarkExported(ctx, sessionID, uc.now()); err != nil {
		return fmt.Errorf("mark session exported: %w", err)
	}
	return nil
}
