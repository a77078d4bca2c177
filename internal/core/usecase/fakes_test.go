package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lexvault/import-engine/internal/core/domain"
)

type sessionRepoFake struct {
	sessions    map[string]*domain.ImportSession
	statusCalls []struct {
		Status domain.SessionStatus
		Err    string
	}
	extractingFlips int
}

func newSessionRepoFake(sessions ...*domain.ImportSession) *sessionRepoFake {
	f := &sessionRepoFake{sessions: make(map[string]*domain.ImportSession)}
	for _, s := range sessions {
		f.sessions[s.ID] = s
	}
	return f
}

func (f *sessionRepoFake) GetByID(_ context.Context, id string) (*domain.ImportSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get session", fmt.Errorf("session %s", id))
	}
	copySession := *s
	return &copySession, nil
}

func (f *sessionRepoFake) ListByStatus(_ context.Context, status domain.SessionStatus) ([]domain.ImportSession, error) {
	out := make([]domain.ImportSession, 0)
	for _, s := range f.sessions {
		if s.Status == status {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *sessionRepoFake) UpdateStatus(_ context.Context, id string, status domain.SessionStatus, pipelineError string) error {
	s, ok := f.sessions[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update session", fmt.Errorf("session %s", id))
	}
	s.Status = status
	s.PipelineError = pipelineError
	f.statusCalls = append(f.statusCalls, struct {
		Status domain.SessionStatus
		Err    string
	}{status, pipelineError})
	return nil
}

func (f *sessionRepoFake) TryMarkExtracting(_ context.Context, id string) (bool, error) {
	s, ok := f.sessions[id]
	if !ok {
		return false, domain.WrapError(domain.ErrNotFound, "mark extracting", fmt.Errorf("session %s", id))
	}
	if s.Status == domain.SessionExtracting || s.Status == domain.SessionCompleted {
		return false, nil
	}
	s.Status = domain.SessionExtracting
	f.extractingFlips++
	return true, nil
}

func (f *sessionRepoFake) MarkExported(_ context.Context, id string, exportedAt time.Time) error {
	s, ok := f.sessions[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "mark exported", fmt.Errorf("session %s", id))
	}
	s.Status = domain.SessionExported
	s.ExportedAt = &exportedAt
	return nil
}

type batchRepoFake struct {
	batches     map[string]*domain.DocumentBatch
	assignNow   time.Time
	assignCalls int
	conflictOn  map[string]bool
}

func newBatchRepoFake(now time.Time, batches ...*domain.DocumentBatch) *batchRepoFake {
	f := &batchRepoFake{
		batches:    make(map[string]*domain.DocumentBatch),
		assignNow:  now,
		conflictOn: make(map[string]bool),
	}
	for _, b := range batches {
		f.batches[b.ID] = b
	}
	return f
}

func (f *batchRepoFake) ListBySession(_ context.Context, sessionID string) ([]domain.DocumentBatch, error) {
	out := make([]domain.DocumentBatch, 0)
	for _, b := range f.batches {
		if b.SessionID == sessionID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthYear < out[j].MonthYear })
	return out, nil
}

func (f *batchRepoFake) GetByID(_ context.Context, id string) (*domain.DocumentBatch, error) {
	b, ok := f.batches[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get batch", fmt.Errorf("batch %s", id))
	}
	copyBatch := *b
	return &copyBatch, nil
}

func (f *batchRepoFake) Assign(_ context.Context, batchID, userID string, snapshotUpdatedAt time.Time) error {
	b, ok := f.batches[batchID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "assign batch", fmt.Errorf("batch %s", batchID))
	}
	if f.conflictOn[batchID] || !b.UpdatedAt.Equal(snapshotUpdatedAt) {
		return domain.WrapError(domain.ErrConflict, "assign batch", fmt.Errorf("batch %s changed since snapshot", batchID))
	}
	assignedAt := f.assignNow
	b.AssignedTo = userID
	b.AssignedAt = &assignedAt
	b.UpdatedAt = f.assignNow
	f.assignCalls++
	return nil
}

func (f *batchRepoFake) MarkCompleted(_ context.Context, batchID string, completedAt time.Time) error {
	b, ok := f.batches[batchID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "complete batch", fmt.Errorf("batch %s", batchID))
	}
	b.CompletedAt = &completedAt
	return nil
}

type documentRepoFake struct {
	docs            map[string]*domain.ExtractedDocument
	validationCalls int

	// When set, ApplyCategorization mirrors the transactional side effects of
	// the real repository onto these fakes.
	batches    *batchRepoFake
	categories *categoryRepoFake
}

func newDocumentRepoFake(docs ...*domain.ExtractedDocument) *documentRepoFake {
	f := &documentRepoFake{docs: make(map[string]*domain.ExtractedDocument)}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *documentRepoFake) GetByID(_ context.Context, id string) (*domain.ExtractedDocument, error) {
	d, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("document %s", id))
	}
	copyDoc := *d
	return &copyDoc, nil
}

func (f *documentRepoFake) ListByCluster(_ context.Context, clusterID string) ([]domain.ExtractedDocument, error) {
	out := make([]domain.ExtractedDocument, 0)
	for _, d := range f.docs {
		if d.ClusterID == clusterID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *documentRepoFake) ListUncategorized(_ context.Context, sessionID string) ([]domain.ExtractedDocument, error) {
	out := make([]domain.ExtractedDocument, 0)
	for _, d := range f.docs {
		if d.SessionID == sessionID && d.CategorizationStatus == domain.CategorizationUncategorized {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *documentRepoFake) SetValidation(_ context.Context, docID string, status domain.ValidationStatus, validatedBy, note string) error {
	d, ok := f.docs[docID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "set validation", fmt.Errorf("document %s", docID))
	}
	d.ValidationStatus = status
	d.ValidatedBy = validatedBy
	d.ReclassificationNote = note
	f.validationCalls++
	return nil
}

func (f *documentRepoFake) ApplyCategorization(_ context.Context, docID string, status domain.CategorizationStatus, categoryID, userID string) error {
	d, ok := f.docs[docID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "set categorization", fmt.Errorf("document %s", docID))
	}
	if d.CategorizationStatus != domain.CategorizationUncategorized {
		return domain.WrapError(domain.ErrConflict, "set categorization",
			fmt.Errorf("document %s already %s", docID, d.CategorizationStatus))
	}
	var b *domain.DocumentBatch
	if d.BatchID != "" && f.batches != nil {
		batch, ok := f.batches.batches[d.BatchID]
		if !ok {
			return domain.WrapError(domain.ErrNotFound, "increment batch", fmt.Errorf("batch %s", d.BatchID))
		}
		if batch.CategorizedCount+batch.SkippedCount+1 > batch.DocumentCount {
			return domain.WrapError(domain.ErrConflict, "increment batch counters",
				fmt.Errorf("batch %s counters would exceed document count", d.BatchID))
		}
		b = batch
	}
	var c *domain.ImportCategory
	if categoryID != "" && f.categories != nil {
		category, ok := f.categories.categories[categoryID]
		if !ok {
			return domain.WrapError(domain.ErrNotFound, "bump category", fmt.Errorf("category %s", categoryID))
		}
		c = category
	}

	if b != nil {
		if status == domain.CategorizationCategorized {
			b.CategorizedCount++
		} else {
			b.SkippedCount++
		}
		b.UpdatedAt = f.batches.assignNow
	}
	if c != nil {
		c.DocumentCount++
	}
	d.CategorizationStatus = status
	d.CategoryID = categoryID
	d.CategorizedBy = userID
	return nil
}

func (f *documentRepoFake) RepointCategory(_ context.Context, fromCategoryID, toCategoryID string) (int, error) {
	n := 0
	for _, d := range f.docs {
		if d.CategoryID == fromCategoryID {
			d.CategoryID = toCategoryID
			n++
		}
	}
	return n, nil
}

type clusterRepoFake struct {
	clusters map[string]*domain.DocumentCluster
	docs     *documentRepoFake
	mergedTo map[string][]string
}

func newClusterRepoFake(docs *documentRepoFake, clusters ...*domain.DocumentCluster) *clusterRepoFake {
	f := &clusterRepoFake{
		clusters: make(map[string]*domain.DocumentCluster),
		docs:     docs,
		mergedTo: make(map[string][]string),
	}
	for _, c := range clusters {
		f.clusters[c.ID] = c
	}
	return f
}

func (f *clusterRepoFake) GetByID(_ context.Context, id string) (*domain.DocumentCluster, error) {
	c, ok := f.clusters[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get cluster", fmt.Errorf("cluster %s", id))
	}
	copyCluster := *c
	return &copyCluster, nil
}

func (f *clusterRepoFake) ListBySession(_ context.Context, sessionID string, includeDeleted bool) ([]domain.DocumentCluster, error) {
	out := make([]domain.DocumentCluster, 0)
	for _, c := range f.clusters {
		if c.SessionID != sessionID {
			continue
		}
		if c.IsDeleted && !includeDeleted {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *clusterRepoFake) CreateBatch(_ context.Context, clusters []domain.DocumentCluster, memberIDs map[string][]string) error {
	for i := range clusters {
		c := clusters[i]
		f.clusters[c.ID] = &c
		if f.docs == nil {
			continue
		}
		for _, docID := range memberIDs[c.ID] {
			if d, ok := f.docs.docs[docID]; ok {
				d.ClusterID = c.ID
			}
		}
	}
	return nil
}

func (f *clusterRepoFake) SetStatus(_ context.Context, id string, status domain.ClusterStatus, approvedName, validatedBy string) error {
	c, ok := f.clusters[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "set cluster status", fmt.Errorf("cluster %s", id))
	}
	c.Status = status
	c.ApprovedName = approvedName
	c.ValidatedBy = validatedBy
	return nil
}

func (f *clusterRepoFake) CountPending(_ context.Context, sessionID string) (int, error) {
	n := 0
	for _, c := range f.clusters {
		if c.SessionID == sessionID && !c.IsDeleted && c.Status == domain.ClusterPending {
			n++
		}
	}
	return n, nil
}

func (f *clusterRepoFake) SoftDelete(_ context.Context, id, deletedBy string) error {
	c, ok := f.clusters[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "delete cluster", fmt.Errorf("cluster %s", id))
	}
	c.IsDeleted = true
	c.DeletedBy = deletedBy
	if f.docs != nil {
		for _, d := range f.docs.docs {
			if d.ClusterID == id {
				d.ValidationStatus = domain.ValidationDeleted
			}
		}
	}
	return nil
}

func (f *clusterRepoFake) Merge(_ context.Context, target domain.DocumentCluster, sourceIDs []string) error {
	if _, ok := f.clusters[target.ID]; !ok {
		return domain.WrapError(domain.ErrNotFound, "merge clusters", fmt.Errorf("cluster %s", target.ID))
	}
	for _, id := range sourceIDs {
		if f.docs != nil {
			for _, d := range f.docs.docs {
				if d.ClusterID == id {
					d.ClusterID = target.ID
				}
			}
		}
		delete(f.clusters, id)
	}
	merged := target
	f.clusters[target.ID] = &merged
	f.mergedTo[target.ID] = sourceIDs
	return nil
}

type categoryRepoFake struct {
	categories map[string]*domain.ImportCategory
}

func newCategoryRepoFake(categories ...*domain.ImportCategory) *categoryRepoFake {
	f := &categoryRepoFake{categories: make(map[string]*domain.ImportCategory)}
	for _, c := range categories {
		f.categories[c.ID] = c
	}
	return f
}

func (f *categoryRepoFake) Create(_ context.Context, category *domain.ImportCategory) error {
	for _, existing := range f.categories {
		if existing.SessionID == category.SessionID && existing.Name == category.Name {
			return domain.WrapError(domain.ErrConflict, "create category", fmt.Errorf("name %q taken", category.Name))
		}
	}
	copyCategory := *category
	f.categories[category.ID] = &copyCategory
	return nil
}

func (f *categoryRepoFake) GetByID(_ context.Context, id string) (*domain.ImportCategory, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get category", fmt.Errorf("category %s", id))
	}
	copyCategory := *c
	return &copyCategory, nil
}

func (f *categoryRepoFake) ListBySession(_ context.Context, sessionID string) ([]domain.ImportCategory, error) {
	out := make([]domain.ImportCategory, 0)
	for _, c := range f.categories {
		if c.SessionID == sessionID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *categoryRepoFake) AdjustCount(_ context.Context, id string, delta int) error {
	c, ok := f.categories[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "adjust category", fmt.Errorf("category %s", id))
	}
	c.DocumentCount += delta
	return nil
}

func (f *categoryRepoFake) MarkMerged(_ context.Context, id, mergedInto string) error {
	c, ok := f.categories[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "mark merged", fmt.Errorf("category %s", id))
	}
	c.MergedInto = mergedInto
	return nil
}

type queueFake struct {
	extractionJobs []string
	exportJobs     []string
	publishErr     error
}

func (f *queueFake) PublishTemplateExtraction(_ context.Context, sessionID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.extractionJobs = append(f.extractionJobs, sessionID)
	return nil
}

func (f *queueFake) PublishExportReport(_ context.Context, sessionID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.exportJobs = append(f.exportJobs, sessionID)
	return nil
}

func (f *queueFake) SubscribeJobs(context.Context, func(context.Context, domain.ImportJob) error) error {
	return nil
}
