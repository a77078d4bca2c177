package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lexvault/import-engine/internal/core/domain"
	"github.com/lexvault/import-engine/internal/core/ports"
)

// ClusterRunUseCase runs the one-shot clustering pass over a session's
// extracted but uncategorized documents.
type ClusterRunUseCase struct {
	sessions  ports.SessionRepository
	documents ports.DocumentRepository
	clusters  ports.ClusterRepository
	extractor ports.TextExtractor
	clusterer ports.DocumentClusterer
	now       func() time.Time
}

func NewClusterRunUseCase(
	sessions ports.SessionRepository,
	documents ports.DocumentRepository,
	clusters ports.ClusterRepository,
	extractor ports.TextExtractor,
	clusterer ports.DocumentClusterer,
) *ClusterRunUseCase {
	return &ClusterRunUseCase{
		sessions:  sessions,
		documents: documents,
		clusters:  clusters,
		extractor: extractor,
		clusterer: clusterer,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunClustering groups the session's uncategorized documents and persists the
// resulting clusters in pending status. Returns the number of clusters
// created.
func (uc *ClusterRunUseCase) RunClustering(ctx context.Context, sessionID string) (int, error) {
	if _, err := uc.sessions.GetByID(ctx, sessionID); err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}

	docs, err := uc.documents.ListUncategorized(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("list uncategorized documents: %w", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	for i := range docs {
		if docs[i].ExtractedText != "" {
			continue
		}
		text, err := uc.extractor.Extract(ctx, &docs[i])
		if err != nil {
			// Unreadable attachments still cluster on email metadata.
			slog.Warn("text_extraction_failed", "document_id", docs[i].ID, "error", err)
			continue
		}
		docs[i].ExtractedText = text
	}

	proposals, err := uc.clusterer.Cluster(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("cluster documents: %w", err)
	}
	if len(proposals) == 0 {
		return 0, nil
	}

	now := uc.now()
	clusters := make([]domain.DocumentCluster, 0, len(proposals))
	members := make(map[string][]string, len(proposals))
	for _, p := range proposals {
		samples := p.SampleDocumentIDs
		if len(samples) > domain.MaxSampleDocuments {
			samples = samples[:domain.MaxSampleDocuments]
		}
		cluster := domain.DocumentCluster{
			ID:                uuid.NewString(),
			SessionID:         sessionID,
			SuggestedName:     p.SuggestedName,
			SuggestedNameEn:   p.SuggestedNameEn,
			Description:       p.Description,
			DocumentCount:     len(p.DocumentIDs),
			SampleDocumentIDs: samples,
			Status:            domain.ClusterPending,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		clusters = append(clusters, cluster)
		members[cluster.ID] = p.DocumentIDs
	}

	if err := uc.clusters.CreateBatch(ctx, clusters, members); err != nil {
		return 0, fmt.Errorf("persist clusters: %w", err)
	}
	return len(clusters), nil
}
