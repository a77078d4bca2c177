package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/lexvault/import-engine/internal/config"
	"github.com/lexvault/import-engine/internal/core/domain"
	"github.com/lexvault/import-engine/internal/core/ports"
)

type reassignerFake struct {
	info      *ports.ReassignmentInfo
	result    *ports.ReassignResult
	err       error
	lastCall  string
	lastHours time.Duration
}

func (f *reassignerFake) ReassignBatches(_ context.Context, sessionID, targetUserID string, stalledFor time.Duration) (*ports.ReassignResult, error) {
	f.lastCall = "reassign:" + sessionID + ":" + targetUserID
	f.lastHours = stalledFor
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *reassignerFake) ReassignmentInfo(_ context.Context, sessionID string, stalledFor time.Duration) (*ports.ReassignmentInfo, error) {
	f.lastCall = "info:" + sessionID
	f.lastHours = stalledFor
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

type validatorFake struct {
	actionResult *ports.ClusterActionResult
	mergeResult  *ports.MergeResult
	docs         []domain.ExtractedDocument
	err          error
	bulkUpdated  int
}

func (f *validatorFake) ApplyClusterAction(_ context.Context, clusterID string, action domain.ClusterAction, approvedName, actorID string) (*ports.ClusterActionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.actionResult, nil
}

func (f *validatorFake) MergeClusters(_ context.Context, req ports.MergeRequest, actorID string) (*ports.MergeResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.mergeResult, nil
}

func (f *validatorFake) ListClusterDocuments(_ context.Context, clusterID string) ([]domain.ExtractedDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func (f *validatorFake) ApplyDocumentAction(_ context.Context, clusterID, docID string, action domain.DocumentValidationAction, note, actorID string) error {
	return f.err
}

func (f *validatorFake) ApplyBulkDocumentAction(_ context.Context, clusterID string, docIDs []string, action domain.DocumentValidationAction, note, actorID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.bulkUpdated, nil
}

type runnerFake struct {
	created int
	err     error
}

func (f *runnerFake) RunClustering(_ context.Context, sessionID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.created, nil
}

type categorizerFake struct {
	err      error
	category *domain.ImportCategory
	moved    int
}

func (f *categorizerFake) CategorizeDocument(_ context.Context, docID, categoryID, userID string) error {
	return f.err
}

func (f *categorizerFake) SkipDocument(_ context.Context, docID, userID string) error {
	return f.err
}

func (f *categorizerFake) CreateCategory(_ context.Context, sessionID, name, userID string) (*domain.ImportCategory, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.category, nil
}

func (f *categorizerFake) MergeCategories(_ context.Context, targetID string, sourceIDs []string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.moved, nil
}

type exporterFake struct {
	err       error
	requested []string
}

func (f *exporterFake) RequestExport(_ context.Context, sessionID string) error {
	f.requested = append(f.requested, sessionID)
	return f.err
}

type categoryListFake struct {
	categories []domain.ImportCategory
	err        error
}

func (f *categoryListFake) Create(_ context.Context, _ *domain.ImportCategory) error { return nil }

func (f *categoryListFake) GetByID(_ context.Context, _ string) (*domain.ImportCategory, error) {
	return nil, nil
}

func (f *categoryListFake) ListBySession(_ context.Context, _ string) ([]domain.ImportCategory, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.categories, nil
}

func (f *categoryListFake) AdjustCount(_ context.Context, _ string, _ int) error { return nil }

func (f *categoryListFake) MarkMerged(_ context.Context, _, _ string) error { return nil }

type tokenStoreFake struct {
	users map[string]*domain.AuthUser
}

func (f *tokenStoreFake) Lookup(_ context.Context, token string) (*domain.AuthUser, error) {
	user, ok := f.users[token]
	if !ok {
		return nil, domain.WrapError(domain.ErrForbidden, "token lookup", errors.New("unknown token"))
	}
	return user, nil
}

type routerDeps struct {
	reassigner  *reassignerFake
	validator   *validatorFake
	runner      *runnerFake
	categorizer *categorizerFake
	exporter    *exporterFake
	categories  *categoryListFake
	tokens      *tokenStoreFake
}

func defaultDeps() *routerDeps {
	return &routerDeps{
		reassigner:  &reassignerFake{},
		validator:   &validatorFake{},
		runner:      &runnerFake{},
		categorizer: &categorizerFake{},
		exporter:    &exporterFake{},
		categories:  &categoryListFake{},
		tokens: &tokenStoreFake{users: map[string]*domain.AuthUser{
			"tok-partner":   {ID: "user-p", Role: domain.RolePartner},
			"tok-paralegal": {ID: "user-l", Role: domain.RoleParalegal},
		}},
	}
}

func newTestHandler(cfg config.Config, deps *routerDeps) http.Handler {
	router := NewRouter(
		cfg,
		deps.reassigner,
		deps.validator,
		deps.runner,
		deps.categorizer,
		deps.exporter,
		deps.categories,
		deps.tokens,
		nil,
	)
	return router.Handler()
}

func doRequest(handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}
