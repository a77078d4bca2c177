package usecase

import (
	"sort"
	"time"

	"github.com/lexvault/import-engine/internal/core/domain"
)

// ReassignCap bounds how many batches one reassignment pass may move. Keeps a
// single action from dumping an entire backlog on one person.
const ReassignCap = 3

// selectForTarget picks up to ReassignCap batches to hand to targetUserID:
// unassigned batches first (oldest month first), then stalled batches not
// already owned by the target. Completion is re-checked at selection time so
// a batch finished since the stall snapshot is never moved.
func selectForTarget(batches []domain.DocumentBatch, targetUserID string, threshold time.Duration, now time.Time) []domain.DocumentBatch {
	selected := make([]domain.DocumentBatch, 0, ReassignCap)

	for _, b := range sortedByMonth(batches) {
		if len(selected) == ReassignCap {
			return selected
		}
		if b.Assigned() || b.Complete() {
			continue
		}
		selected = append(selected, b)
	}

	for _, s := range stalledBatches(batches, threshold, now) {
		if len(selected) == ReassignCap {
			break
		}
		b := s.Batch
		if b.AssignedTo == targetUserID || b.Complete() {
			continue
		}
		selected = append(selected, b)
	}
	return selected
}

// autoAssignment pairs a batch with its new owner for the no-target pass.
type autoAssignment struct {
	batch domain.DocumentBatch
	user  string
}

// selectAuto redistributes unassigned and stalled batches round-robin across
// finished users, bounded by ReassignCap. With nobody free the pass selects
// nothing; stalled work is not piled onto users who are still busy.
func selectAuto(batches []domain.DocumentBatch, threshold time.Duration, now time.Time) []autoAssignment {
	users := finishedUsers(batches)
	if len(users) == 0 {
		return nil
	}

	candidates := make([]domain.DocumentBatch, 0)
	for _, b := range sortedByMonth(batches) {
		if !b.Assigned() && !b.Complete() {
			candidates = append(candidates, b)
		}
	}
	for _, s := range stalledBatches(batches, threshold, now) {
		candidates = append(candidates, s.Batch)
	}

	out := make([]autoAssignment, 0, ReassignCap)
	next := 0
	for _, b := range candidates {
		if len(out) == ReassignCap {
			break
		}
		user := users[next%len(users)]
		if b.AssignedTo == user {
			// Handing a stalled batch back to its current owner changes
			// nothing; try the next free user.
			next++
			user = users[next%len(users)]
			if b.AssignedTo == user {
				continue
			}
		}
		out = append(out, autoAssignment{batch: b, user: user})
		next++
	}
	return out
}

func sortedByMonth(batches []domain.DocumentBatch) []domain.DocumentBatch {
	out := make([]domain.DocumentBatch, len(batches))
	copy(out, batches)
	sort.Slice(out, func(i, j int) bool {
		return out[i].MonthYear < out[j].MonthYear
	})
	return out
}
