package usecase

import (
	"sort"
	"time"

	"github.com/lexvault/import-engine/internal/core/domain"
	"github.com/lexvault/import-engine/internal/core/ports"
)

// DefaultStallThreshold is how long an assigned, incomplete batch may sit
// without activity before it counts as stalled.
const DefaultStallThreshold = 24 * time.Hour

func stalledBatches(batches []domain.DocumentBatch, threshold time.Duration, now time.Time) []ports.StalledBatch {
	out := make([]ports.StalledBatch, 0)
	for i := range batches {
		b := batches[i]
		if !b.Assigned() || b.Complete() {
			continue
		}
		idle := b.StalledFor(now)
		if idle < threshold {
			continue
		}
		out = append(out, ports.StalledBatch{
			Batch:       b,
			StalledDays: int(idle.Hours() / 24),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Batch.MonthYear < out[j].Batch.MonthYear
	})
	return out
}

// finishedUsers lists users whose every assigned batch is complete. They are
// the preferred reassignment targets since they have spare capacity.
func finishedUsers(batches []domain.DocumentBatch) []string {
	complete := make(map[string]bool)
	for i := range batches {
		b := batches[i]
		if !b.Assigned() {
			continue
		}
		done, seen := complete[b.AssignedTo]
		if !seen {
			complete[b.AssignedTo] = b.Complete()
			continue
		}
		complete[b.AssignedTo] = done && b.Complete()
	}

	out := make([]string, 0, len(complete))
	for user, done := range complete {
		if done {
			out = append(out, user)
		}
	}
	sort.Strings(out)
	return out
}

func unassignedCount(batches []domain.DocumentBatch) int {
	n := 0
	for i := range batches {
		if !batches[i].Assigned() {
			n++
		}
	}
	return n
}

func batchStats(batches []domain.DocumentBatch) ports.BatchStats {
	stats := ports.BatchStats{TotalBatches: len(batches)}
	for i := range batches {
		if !batches[i].Assigned() {
			stats.UnassignedCount++
		}
		if batches[i].Complete() {
			stats.CompletedCount++
		}
	}
	return stats
}
