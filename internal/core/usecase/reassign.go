package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/lexvault/import-engine/internal/core/domain"
	"github.com/lexvault/import-engine/internal/core/ports"
)

// ReassignUseCase moves categorization work between users: either a targeted
// hand-off to one requested user or an automatic rebalance of stalled and
// unassigned batches across finished users.
type ReassignUseCase struct {
	sessions ports.SessionRepository
	batches  ports.BatchRepository
	now      func() time.Time
}

func NewReassignUseCase(sessions ports.SessionRepository, batches ports.BatchRepository) *ReassignUseCase {
	return &ReassignUseCase{
		sessions: sessions,
		batches:  batches,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ReassignUseCase) ReassignBatches(ctx context.Context, sessionID, targetUserID string, stalledFor time.Duration) (*ports.ReassignResult, error) {
	if stalledFor <= 0 {
		stalledFor = DefaultStallThreshold
	}
	if _, err := uc.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	batches, err := uc.batches.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	now := uc.now()
	var moves []autoAssignment
	if targetUserID != "" {
		for _, b := range selectForTarget(batches, targetUserID, stalledFor, now) {
			moves = append(moves, autoAssignment{batch: b, user: targetUserID})
		}
	} else {
		moves = selectAuto(batches, stalledFor, now)
	}

	reassigned := make([]ports.ReassignedBatch, 0, len(moves))
	for _, m := range moves {
		if err := uc.batches.Assign(ctx, m.batch.ID, m.user, m.batch.UpdatedAt); err != nil {
			return nil, fmt.Errorf("assign batch %s: %w", m.batch.ID, err)
		}
		reassigned = append(reassigned, ports.ReassignedBatch{
			BatchID:   m.batch.ID,
			MonthYear: m.batch.MonthYear,
			From:      m.batch.AssignedTo,
			To:        m.user,
		})
	}

	fresh, err := uc.batches.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reload batches: %w", err)
	}

	return &ports.ReassignResult{
		ReassignedCount:   len(reassigned),
		ReassignedBatches: reassigned,
		Stats:             batchStats(fresh),
	}, nil
}

// ReassignmentInfo is the read-only stall report. Safe to poll; it never
// touches any batch's updatedAt.
func (uc *ReassignUseCase) ReassignmentInfo(ctx context.Context, sessionID string, stalledFor time.Duration) (*ports.ReassignmentInfo, error) {
	if stalledFor <= 0 {
		stalledFor = DefaultStallThreshold
	}
	if _, err := uc.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	batches, err := uc.batches.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	return &ports.ReassignmentInfo{
		StalledBatches:  stalledBatches(batches, stalledFor, uc.now()),
		FinishedUsers:   finishedUsers(batches),
		UnassignedCount: unassignedCount(batches),
		TotalBatches:    len(batches),
	}, nil
}

// SweepStalled runs the no-target rebalance pass over every in-progress
// session. Invoked from the worker's cron schedule; returns the total number
// of batches moved.
func (uc *ReassignUseCase) SweepStalled(ctx context.Context, stalledFor time.Duration) (int, error) {
	sessions, err := uc.sessions.ListByStatus(ctx, domain.SessionInProgress)
	if err != nil {
		return 0, fmt.Errorf("list in-progress sessions: %w", err)
	}

	total := 0
	for i := range sessions {
		result, err := uc.ReassignBatches(ctx, sessions[i].ID, "", stalledFor)
		if err != nil {
			return total, fmt.Errorf("rebalance session %s: %w", sessions[i].ID, err)
		}
		total += result.ReassignedCount
	}
	return total, nil
}
