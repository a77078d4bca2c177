package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lexvault/import-engine/internal/core/domain"
	"github.com/lexvault/import-engine/internal/core/ports"
)

// ClusterValidationUseCase drives the human review of document clusters:
// approve/reject/delete per cluster, accept/delete/reclassify per document,
// merging, and the one-shot template-extraction trigger once no pending
// cluster remains.
type ClusterValidationUseCase struct {
	sessions  ports.SessionRepository
	clusters  ports.ClusterRepository
	documents ports.DocumentRepository
	queue     ports.JobQueue
}

func NewClusterValidationUseCase(
	sessions ports.SessionRepository,
	clusters ports.ClusterRepository,
	documents ports.DocumentRepository,
	queue ports.JobQueue,
) *ClusterValidationUseCase {
	return &ClusterValidationUseCase{
		sessions:  sessions,
		clusters:  clusters,
		documents: documents,
		queue:     queue,
	}
}

func (uc *ClusterValidationUseCase) ApplyClusterAction(ctx context.Context, clusterID string, action domain.ClusterAction, approvedName, actorID string) (*ports.ClusterActionResult, error) {
	if !action.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "cluster action", fmt.Errorf("unknown action %q", action))
	}

	cluster, err := uc.clusters.GetByID(ctx, clusterID)
	if err != nil {
		return nil, fmt.Errorf("load cluster: %w", err)
	}

	result := &ports.ClusterActionResult{ClusterID: cluster.ID}

	switch action {
	case domain.ClusterActionApprove:
		if err := uc.clusters.SetStatus(ctx, cluster.ID, domain.ClusterApproved, approvedName, actorID); err != nil {
			return nil, fmt.Errorf("approve cluster: %w", err)
		}
		result.Status = domain.ClusterApproved
	case domain.ClusterActionReject:
		if err := uc.clusters.SetStatus(ctx, cluster.ID, domain.ClusterRejected, "", actorID); err != nil {
			return nil, fmt.Errorf("reject cluster: %w", err)
		}
		result.Status = domain.ClusterRejected
	case domain.ClusterActionDelete:
		if err := uc.clusters.SoftDelete(ctx, cluster.ID, actorID); err != nil {
			return nil, fmt.Errorf("delete cluster: %w", err)
		}
	}

	pending, err := uc.clusters.CountPending(ctx, cluster.SessionID)
	if err != nil {
		return nil, fmt.Errorf("count pending clusters: %w", err)
	}
	result.AllValidated = pending == 0
	if !result.AllValidated {
		return result, nil
	}

	triggered, err := uc.maybeTriggerExtraction(ctx, cluster.SessionID)
	if err != nil {
		return nil, err
	}
	result.ExtractionTriggered = triggered
	return result, nil
}

// maybeTriggerExtraction fires the template-extraction job when every cluster
// is validated and at least one approved cluster is large enough. The session
// flip to extracting is a conditional write, so concurrent validation calls
// cannot double-trigger; the job itself is fire-and-forget.
func (uc *ClusterValidationUseCase) maybeTriggerExtraction(ctx context.Context, sessionID string) (bool, error) {
	clusters, err := uc.clusters.ListBySession(ctx, sessionID, false)
	if err != nil {
		return false, fmt.Errorf("list clusters: %w", err)
	}

	eligible := false
	for i := range clusters {
		if clusters[i].TemplateEligible() {
			eligible = true
			break
		}
	}
	if !eligible {
		return false, nil
	}

	flipped, err := uc.sessions.TryMarkExtracting(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("mark session extracting: %w", err)
	}
	if !flipped {
		return false, nil
	}

	if err := uc.queue.PublishTemplateExtraction(ctx, sessionID); err != nil {
		if statusErr := uc.sessions.UpdateStatus(ctx, sessionID, domain.SessionFailed, err.Error()); statusErr != nil {
			return false, fmt.Errorf("publish extraction job: %w; mark failed: %w", err, statusErr)
		}
		return false, fmt.Errorf("publish extraction job: %w", err)
	}
	return true, nil
}

func (uc *ClusterValidationUseCase) ListClusterDocuments(ctx context.Context, clusterID string) ([]domain.ExtractedDocument, error) {
	if _, err := uc.clusters.GetByID(ctx, clusterID); err != nil {
		return nil, fmt.Errorf("load cluster: %w", err)
	}
	docs, err := uc.documents.ListByCluster(ctx, clusterID)
	if err != nil {
		return nil, fmt.Errorf("list cluster documents: %w", err)
	}
	return docs, nil
}

func (uc *ClusterValidationUseCase) ApplyDocumentAction(ctx context.Context, clusterID, docID string, action domain.DocumentValidationAction, note, actorID string) error {
	status, ok := action.StatusFor()
	if !ok {
		return domain.WrapError(domain.ErrInvalidInput, "document action", fmt.Errorf("unknown action %q", action))
	}
	if err := validateReclassifyNote(action, note); err != nil {
		return err
	}

	doc, err := uc.documents.GetByID(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc.ClusterID != clusterID {
		return domain.WrapError(domain.ErrInvalidInput, "document action",
			fmt.Errorf("document %s does not belong to cluster %s", docID, clusterID))
	}

	if err := uc.documents.SetValidation(ctx, docID, status, actorID, note); err != nil {
		return fmt.Errorf("set validation status: %w", err)
	}
	return nil
}

// ApplyBulkDocumentAction validates the whole batch of ids up front; nothing
// mutates when any supplied document is outside the cluster.
func (uc *ClusterValidationUseCase) ApplyBulkDocumentAction(ctx context.Context, clusterID string, docIDs []string, action domain.DocumentValidationAction, note, actorID string) (int, error) {
	status, ok := action.StatusFor()
	if !ok {
		return 0, domain.WrapError(domain.ErrInvalidInput, "bulk document action", fmt.Errorf("unknown action %q", action))
	}
	if len(docIDs) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "bulk document action", errors.New("no document ids supplied"))
	}
	if err := validateReclassifyNote(action, note); err != nil {
		return 0, err
	}

	members, err := uc.documents.ListByCluster(ctx, clusterID)
	if err != nil {
		return 0, fmt.Errorf("list cluster documents: %w", err)
	}
	memberSet := make(map[string]bool, len(members))
	for i := range members {
		memberSet[members[i].ID] = true
	}
	for _, id := range docIDs {
		if !memberSet[id] {
			return 0, domain.WrapError(domain.ErrInvalidInput, "bulk document action",
				fmt.Errorf("document %s does not belong to cluster %s", id, clusterID))
		}
	}

	applied := 0
	for _, id := range docIDs {
		if err := uc.documents.SetValidation(ctx, id, status, actorID, note); err != nil {
			return applied, fmt.Errorf("set validation status for %s: %w", id, err)
		}
		applied++
	}
	return applied, nil
}

func validateReclassifyNote(action domain.DocumentValidationAction, note string) error {
	if action == domain.DocActionReclassify && strings.TrimSpace(note) == "" {
		return domain.WrapError(domain.ErrValidation, "reclassify document", errors.New("reclassification note is required"))
	}
	return nil
}
