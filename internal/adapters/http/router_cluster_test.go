package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/lexvault/import-engine/internal/config"
	"github.com/lexvault/import-engine/internal/core/domain"
	"github.com/lexvault/import-engine/internal/core/ports"
)

func TestClusterActionReportsExtractionTrigger(t *testing.T) {
	deps := defaultDeps()
	deps.validator.actionResult = &ports.ClusterActionResult{
		ClusterID:           "c-1",
		Status:              domain.ClusterApproved,
		AllValidated:        true,
		ExtractionTriggered: true,
	}
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodPost, "/v1/clusters/c-1/action", "tok-partner",
		`{"action":"approve","approved_name":"Contracte"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload clusterActionResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.Success || !payload.ExtractionTriggered || payload.Status != domain.ClusterApproved {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestClusterActionMapsInvalidActionTo400(t *testing.T) {
	deps := defaultDeps()
	deps.validator.err = domain.WrapError(domain.ErrInvalidInput, "cluster action", errors.New("unknown action"))
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodPost, "/v1/clusters/c-1/action", "tok-partner", `{"action":"promote"}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestClusterMergeReturnsMergedCluster(t *testing.T) {
	deps := defaultDeps()
	deps.validator.mergeResult = &ports.MergeResult{MergedClusterID: "c-1", DocumentCount: 11, MergedCount: 2}
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodPost, "/v1/clusters/merge", "tok-partner",
		`{"cluster_ids":["c-1","c-2"],"new_name":"Contracts"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload mergeResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.DocumentCount != 11 || payload.MergedCount != 2 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestDocumentReclassifyWithoutNoteIs422(t *testing.T) {
	deps := defaultDeps()
	deps.validator.err = domain.WrapError(domain.ErrValidation, "document action", errors.New("note required"))
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodPost, "/v1/clusters/c-1/documents/d-1", "tok-partner",
		`{"action":"reclassify","note":""}`)
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}
}

func TestBulkDocumentActionReturnsUpdatedCount(t *testing.T) {
	deps := defaultDeps()
	deps.validator.bulkUpdated = 3
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodPut, "/v1/clusters/c-1/documents", "tok-partner",
		`{"document_ids":["d-1","d-2","d-3"],"action":"accept"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload map[string]any
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["updated_count"].(float64) != 3 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestListClusterDocuments(t *testing.T) {
	deps := defaultDeps()
	deps.validator.docs = []domain.ExtractedDocument{{ID: "d-1"}, {ID: "d-2"}}
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodGet, "/v1/clusters/c-1/documents", "tok-partner", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var payload struct {
		Documents []domain.ExtractedDocument `json:"documents"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(payload.Documents))
	}
}

func TestRunClusteringAccepted(t *testing.T) {
	deps := defaultDeps()
	deps.runner.created = 4
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodPost, "/v1/sessions/s-1/clustering", "tok-partner", "")
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
}

func TestCategorizeAllowedForParalegal(t *testing.T) {
	handler := newTestHandler(config.Config{}, defaultDeps())

	res := doRequest(handler, http.MethodPost, "/v1/documents/d-1/categorize", "tok-paralegal",
		`{"category_id":"cat-1"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
}

func TestExportRequiresPrivilegedRole(t *testing.T) {
	deps := defaultDeps()
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodPost, "/v1/sessions/s-1/export", "tok-paralegal", "")
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}

	res = doRequest(handler, http.MethodPost, "/v1/sessions/s-1/export", "tok-partner", "")
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
	if len(deps.exporter.requested) != 1 || deps.exporter.requested[0] != "s-1" {
		t.Fatalf("export not requested: %+v", deps.exporter.requested)
	}
}

func TestExportConflictWhenSessionNotCompleted(t *testing.T) {
	deps := defaultDeps()
	deps.exporter.err = domain.WrapError(domain.ErrConflict, "request export", errors.New("session not completed"))
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodPost, "/v1/sessions/s-1/export", "tok-partner", "")
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}
