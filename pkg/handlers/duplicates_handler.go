package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ripclass/trdrhub.com-sub003/pkg/auth"
	"github.com/ripclass/trdrhub.com-sub003/pkg/models"
	"github.com/ripclass/trdrhub.com-sub003/pkg/services"
)

// TenantMiddleware is a function that wraps a handler with tenant context.
type TenantMiddleware func(http.HandlerFunc) http.HandlerFunc

// CandidateListResponse for GET /api/duplicates/{sid}/candidates
type CandidateListResponse struct {
	Candidates []models.DuplicateCandidate `json:"candidates"`
	Total      int                         `json:"total"`
}

// DuplicatesHandler handles duplicate-candidate and merge HTTP requests.
type DuplicatesHandler struct {
	matcher     services.SimilarityMatcher
	coordinator services.MergeCoordinator
	logger      *zap.Logger
}

// NewDuplicatesHandler creates a new duplicates handler.
func NewDuplicatesHandler(
	matcher services.SimilarityMatcher,
	coordinator services.MergeCoordinator,
	logger *zap.Logger,
) *DuplicatesHandler {
	return &DuplicatesHandler{
		matcher:     matcher,
		coordinator: coordinator,
		logger:      logger,
	}
}

// RegisterRoutes registers the duplicates handler's routes on the given mux.
func (h *DuplicatesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	mux.HandleFunc("GET /api/duplicates/{sid}/candidates",
		authMiddleware.RequireAuth(tenantMiddleware(h.Candidates)))
	mux.HandleFunc("POST /api/duplicates/merge",
		authMiddleware.RequireAuth(tenantMiddleware(h.Merge)))
}

// Candidates handles GET /api/duplicates/{sid}/candidates
func (h *DuplicatesHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := ParseSessionID(w, r, h.logger)
	if !ok {
		return
	}

	candidates, err := h.matcher.FindCandidates(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to find duplicate candidates",
			zap.String("session_id", sessionID.String()),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	response := CandidateListResponse{
		Candidates: candidates,
		Total:      len(candidates),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode candidates response", zap.Error(err))
	}
}

// Merge handles POST /api/duplicates/merge
func (h *DuplicatesHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req services.MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	req.PerformedBy = auth.ActorFromContext(r.Context())

	record, err := h.coordinator.Merge(r.Context(), req)
	if err != nil {
		h.logger.Warn("Merge request failed",
			zap.String("source_session_id", req.SourceSessionID.String()),
			zap.String("target_session_id", req.TargetSessionID.String()),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, record); err != nil {
		h.logger.Error("Failed to encode merge response", zap.Error(err))
	}
}
