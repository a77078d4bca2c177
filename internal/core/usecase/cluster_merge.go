package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lexvault/import-engine/internal/core/domain"
	"github.com/lexvault/import-engine/internal/core/ports"
)

// MergeClusters absorbs the documents of every listed cluster into the first
// one. The merged cluster drops back to pending so the combined entity gets
// re-validated; the source rows are removed in the same transaction.
func (uc *ClusterValidationUseCase) MergeClusters(ctx context.Context, req ports.MergeRequest, actorID string) (*ports.MergeResult, error) {
	if len(req.ClusterIDs) < 2 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "merge clusters", errors.New("at least two cluster ids are required"))
	}
	if strings.TrimSpace(req.NewName) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "merge clusters", errors.New("new name is required"))
	}

	loaded := make([]*domain.DocumentCluster, 0, len(req.ClusterIDs))
	seen := make(map[string]bool, len(req.ClusterIDs))
	for _, id := range req.ClusterIDs {
		if seen[id] {
			return nil, domain.WrapError(domain.ErrInvalidInput, "merge clusters", fmt.Errorf("duplicate cluster id %s", id))
		}
		seen[id] = true

		cluster, err := uc.clusters.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load cluster %s: %w", id, err)
		}
		loaded = append(loaded, cluster)
	}

	sessionID := loaded[0].SessionID
	for _, c := range loaded[1:] {
		if c.SessionID != sessionID {
			return nil, domain.WrapError(domain.ErrInvalidInput, "merge clusters",
				fmt.Errorf("cluster %s belongs to a different session", c.ID))
		}
	}

	target := *loaded[0]
	target.SuggestedName = req.NewName
	target.SuggestedNameEn = req.NewNameEn
	target.Description = req.Description
	target.Status = domain.ClusterPending
	target.ApprovedName = ""
	target.ValidatedBy = ""
	target.ValidatedAt = nil

	target.DocumentCount = 0
	samples := make([]string, 0, domain.MaxSampleDocuments)
	for _, c := range loaded {
		target.DocumentCount += c.DocumentCount
		for _, id := range c.SampleDocumentIDs {
			if len(samples) == domain.MaxSampleDocuments {
				break
			}
			samples = append(samples, id)
		}
	}
	target.SampleDocumentIDs = samples

	sourceIDs := make([]string, 0, len(loaded)-1)
	for _, c := range loaded[1:] {
		sourceIDs = append(sourceIDs, c.ID)
	}

	if err := uc.clusters.Merge(ctx, target, sourceIDs); err != nil {
		return nil, fmt.Errorf("merge clusters: %w", err)
	}

	return &ports.MergeResult{
		MergedClusterID: target.ID,
		DocumentCount:   target.DocumentCount,
		MergedCount:     len(req.ClusterIDs),
	}, nil
}
