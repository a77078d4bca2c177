package usecase

import (
	"context"
	"fmt"

	"github.com/lexvault/import-engine/internal/core/domain"
	"github.com/lexvault/import-engine/internal/core/ports"
)

// ExportUseCase queues the export report job for a completed session.
type ExportUseCase struct {
	sessions ports.SessionRepository
	queue    ports.JobQueue
}

func NewExportUseCase(sessions ports.SessionRepository, queue ports.JobQueue) *ExportUseCase {
	return &ExportUseCase{sessions: sessions, queue: queue}
}

func (uc *ExportUseCase) RequestExport(ctx context.Context, sessionID string) error {
	session, err := uc.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session.Status != domain.SessionCompleted {
		return domain.WrapError(domain.ErrConflict, "request export",
			fmt.Errorf("session %s in status %s is not ready for export", sessionID, session.Status))
	}
	if err := uc.queue.PublishExportReport(ctx, sessionID); err != nil {
		return fmt.Errorf("publish export job: %w", err)
	}
	return nil
}
