package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lexvault/import-engine/internal/config"
	"github.com/lexvault/import-engine/internal/core/domain"
	"github.com/lexvault/import-engine/internal/core/ports"
	"github.com/lexvault/import-engine/internal/core/usecase"
	"github.com/lexvault/import-engine/internal/observability/metrics"
)

const serviceName = "import-api"

type Router struct {
	cfg config.Config

	reassigner  ports.BatchReassigner
	validator   ports.ClusterValidator
	runner      ports.ClusterRunner
	categorizer ports.Categorizer
	exporter    ports.SessionExporter
	categories  ports.CategoryRepository
	tokens      ports.TokenStore
	metrics     *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	reassigner ports.BatchReassigner,
	validator ports.ClusterValidator,
	runner ports.ClusterRunner,
	categorizer ports.Categorizer,
	exporter ports.SessionExporter,
	categories ports.CategoryRepository,
	tokens ports.TokenStore,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:         cfg,
		reassigner:  reassigner,
		validator:   validator,
		runner:      runner,
		categorizer: categorizer,
		exporter:    exporter,
		categories:  categories,
		tokens:      tokens,
		metrics:     m,
	}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /v1/sessions/{sessionID}/reassignment-info", rt.requireRole(domain.ActionReassign, rt.reassignmentInfo))
	api.HandleFunc("POST /v1/sessions/{sessionID}/reassign", rt.requireRole(domain.ActionReassign, rt.reassign))
	api.HandleFunc("POST /v1/sessions/{sessionID}/clustering", rt.requireRole(domain.ActionValidate, rt.runClustering))
	api.HandleFunc("GET /v1/sessions/{sessionID}/categories", rt.requireRole(domain.ActionCategorize, rt.listCategories))
	api.HandleFunc("POST /v1/sessions/{sessionID}/categories", rt.requireRole(domain.ActionCategorize, rt.createCategory))
	api.HandleFunc("POST /v1/sessions/{sessionID}/export", rt.requireRole(domain.ActionExport, rt.requestExport))

	api.HandleFunc("POST /v1/clusters/merge", rt.requireRole(domain.ActionValidate, rt.mergeClusters))
	api.HandleFunc("POST /v1/clusters/{clusterID}/action", rt.requireRole(domain.ActionValidate, rt.clusterAction))
	api.HandleFunc("GET /v1/clusters/{clusterID}/documents", rt.requireRole(domain.ActionValidate, rt.listClusterDocuments))
	api.HandleFunc("POST /v1/clusters/{clusterID}/documents/{docID}", rt.requireRole(domain.ActionValidate, rt.documentAction))
	api.HandleFunc("PUT /v1/clusters/{clusterID}/documents", rt.requireRole(domain.ActionValidate, rt.bulkDocumentAction))

	api.HandleFunc("POST /v1/documents/{docID}/categorize", rt.requireRole(domain.ActionCategorize, rt.categorizeDocument))
	api.HandleFunc("POST /v1/documents/{docID}/skip", rt.requireRole(domain.ActionCategorize, rt.skipDocument))
	api.HandleFunc("POST /v1/categories/merge", rt.requireRole(domain.ActionCategorize, rt.mergeCategories))

	var protected http.Handler = api
	protected = authMiddleware(protected, rt.tokens)
	protected = backpressureMiddleware(protected, rt.cfg.APIMaxConcurrent, 2*time.Second)
	protected = rateLimitMiddleware(protected, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		root.Handle("GET /metrics", rt.metrics.Handler())
	}
	root.Handle("/", protected)

	var handler http.Handler = root
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireRole gates a handler on the caller's role. Identity is established
// by authMiddleware; a caller who is authenticated but under-privileged gets
// a 403, not a 401.
func (rt *Router) requireRole(action domain.Action, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		if user == nil {
			writeError(w, http.StatusUnauthorized, "missing caller identity")
			return
		}
		if !domain.Can(user.Role, action) {
			writeError(w, http.StatusForbidden, "role "+string(user.Role)+" may not "+string(action))
			return
		}
		next(w, r)
	}
}

func (rt *Router) reassignmentInfo(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")
	stalledFor, err := stalledDuration(r.URL.Query().Get("stalled_hours"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "stalled_hours must be a positive integer")
		return
	}

	info, err := rt.reassigner.ReassignmentInfo(r.Context(), sessionID, stalledFor)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordStalledBatches(serviceName, sessionID, len(info.StalledBatches))
	}
	writeJSON(w, http.StatusOK, info)
}

func (rt *Router) reassign(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")

	var req struct {
		TargetUserID string `json:"target_user_id"`
		StalledHours int    `json:"stalled_hours"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.StalledHours < 0 {
		writeError(w, http.StatusBadRequest, "stalled_hours must not be negative")
		return
	}

	result, err := rt.reassigner.ReassignBatches(r.Context(), sessionID, req.TargetUserID,
		time.Duration(req.StalledHours)*time.Hour)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	if rt.metrics != nil {
		mode := "targeted"
		if req.TargetUserID == "" {
			mode = "auto"
		}
		rt.metrics.RecordReassignments(serviceName, mode, result.ReassignedCount)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) runClustering(w http.ResponseWriter, r *http.Request) {
	created, err := rt.runner.RunClustering(r.Context(), r.PathValue("sessionID"))
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"clusters_created": created})
}

func (rt *Router) clusterAction(w http.ResponseWriter, r *http.Request) {
	clusterID := r.PathValue("clusterID")

	var req struct {
		Action       string `json:"action"`
		ApprovedName string `json:"approved_name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	user := userFromContext(r.Context())
	result, err := rt.validator.ApplyClusterAction(r.Context(), clusterID,
		domain.ClusterAction(req.Action), req.ApprovedName, user.ID)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordClusterValidation(serviceName, req.Action)
		if result.ExtractionTriggered {
			rt.metrics.RecordExtractionTrigger(serviceName)
		}
	}
	writeJSON(w, http.StatusOK, clusterActionResponse{
		Success:             true,
		ClusterID:           result.ClusterID,
		Status:              result.Status,
		AllValidated:        result.AllValidated,
		ExtractionTriggered: result.ExtractionTriggered,
	})
}

func (rt *Router) mergeClusters(w http.ResponseWriter, r *http.Request) {
	var req ports.MergeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	user := userFromContext(r.Context())
	result, err := rt.validator.MergeClusters(r.Context(), req, user.ID)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordClusterMerge(serviceName)
	}
	writeJSON(w, http.StatusOK, mergeResponse{
		Success:         true,
		MergedClusterID: result.MergedClusterID,
		DocumentCount:   result.DocumentCount,
		MergedCount:     result.MergedCount,
	})
}

func (rt *Router) listClusterDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.validator.ListClusterDocuments(r.Context(), r.PathValue("clusterID"))
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) documentAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
		Note   string `json:"note"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	user := userFromContext(r.Context())
	err := rt.validator.ApplyDocumentAction(r.Context(), r.PathValue("clusterID"),
		r.PathValue("docID"), domain.DocumentValidationAction(req.Action), req.Note, user.ID)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (rt *Router) bulkDocumentAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentIDs []string `json:"document_ids"`
		Action      string   `json:"action"`
		Note        string   `json:"note"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	user := userFromContext(r.Context())
	updated, err := rt.validator.ApplyBulkDocumentAction(r.Context(), r.PathValue("clusterID"),
		req.DocumentIDs, domain.DocumentValidationAction(req.Action), req.Note, user.ID)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated_count": updated})
}

func (rt *Router) categorizeDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CategoryID string `json:"category_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	user := userFromContext(r.Context())
	if err := rt.categorizer.CategorizeDocument(r.Context(), r.PathValue("docID"), req.CategoryID, user.ID); err != nil {
		rt.respondError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordCategorization(serviceName, "categorized")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (rt *Router) skipDocument(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if err := rt.categorizer.SkipDocument(r.Context(), r.PathValue("docID"), user.ID); err != nil {
		rt.respondError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordCategorization(serviceName, "skipped")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (rt *Router) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := rt.categories.ListBySession(r.Context(), r.PathValue("sessionID"))
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (rt *Router) createCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	user := userFromContext(r.Context())
	category, err := rt.categorizer.CreateCategory(r.Context(), r.PathValue("sessionID"), req.Name, user.ID)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (rt *Router) mergeCategories(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetID  string   `json:"target_id"`
		SourceIDs []string `json:"source_ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	moved, err := rt.categorizer.MergeCategories(r.Context(), req.TargetID, req.SourceIDs)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "moved_documents": moved})
}

func (rt *Router) requestExport(w http.ResponseWriter, r *http.Request) {
	if err := rt.exporter.RequestExport(r.Context(), r.PathValue("sessionID")); err != nil {
		rt.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "export scheduled"})
}

type clusterActionResponse struct {
	Success             bool                 `json:"success"`
	ClusterID           string               `json:"cluster_id"`
	Status              domain.ClusterStatus `json:"status,omitempty"`
	AllValidated        bool                 `json:"all_validated"`
	ExtractionTriggered bool                 `json:"extraction_triggered"`
}

type mergeResponse struct {
	Success         bool   `json:"success"`
	MergedClusterID string `json:"merged_cluster_id"`
	DocumentCount   int    `json:"document_count"`
	MergedCount     int    `json:"merged_count"`
}

// respondError maps error kinds to status codes. Production keeps the
// underlying message out of the response body.
func (rt *Router) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		slog.Error("request failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}

	message := err.Error()
	if rt.cfg.IsProduction() {
		message = http.StatusText(status)
	}
	writeError(w, status, message)
}

func stalledDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return usecase.DefaultStallThreshold, nil
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return 0, errors.New("invalid stalled_hours")
	}
	return time.Duration(hours) * time.Hour, nil
}

// decodeJSON tolerates an absent body; handlers with required fields
// validate them after decoding.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
