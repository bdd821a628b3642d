package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ripclass/trdrhub.com-sub003/pkg/auth"
	"github.com/ripclass/trdrhub.com-sub003/pkg/models"
	"github.com/ripclass/trdrhub.com-sub003/pkg/services"
)

// MergeHistoryResponse for GET /api/sessions/{sid}/merge-history
type MergeHistoryResponse struct {
	Records []*models.MergeRecord `json:"records"`
	Total   int                   `json:"total"`
}

// SessionsHandler handles session HTTP requests.
type SessionsHandler struct {
	sessionService services.SessionService
	logger         *zap.Logger
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(sessionService services.SessionService, logger *zap.Logger) *SessionsHandler {
	return &SessionsHandler{
		sessionService: sessionService,
		logger:         logger,
	}
}

// RegisterRoutes registers the sessions handler's routes on the given mux.
func (h *SessionsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	mux.HandleFunc("POST /api/sessions",
		authMiddleware.RequireAuth(tenantMiddleware(h.Ingest)))
	mux.HandleFunc("GET /api/sessions/{sid}",
		authMiddleware.RequireAuth(tenantMiddleware(h.Get)))
	mux.HandleFunc("GET /api/sessions/{sid}/merge-history",
		authMiddleware.RequireAuth(tenantMiddleware(h.MergeHistory)))
	mux.HandleFunc("GET /api/sessions/{sid}/state",
		authMiddleware.RequireAuth(tenantMiddleware(h.State)))
}

// Ingest handles POST /api/sessions
func (h *SessionsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req services.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	session, err := h.sessionService.Ingest(r.Context(), req)
	if err != nil {
		h.logger.Error("Failed to ingest session",
			zap.String("lc_number", req.LCNumber),
			zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, session); err != nil {
		h.logger.Error("Failed to encode session response", zap.Error(err))
	}
}

// Get handles GET /api/sessions/{sid}
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := ParseSessionID(w, r, h.logger)
	if !ok {
		return
	}

	session, err := h.sessionService.Get(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, session); err != nil {
		h.logger.Error("Failed to encode session response", zap.Error(err))
	}
}

// MergeHistory handles GET /api/sessions/{sid}/merge-history
func (h *SessionsHandler) MergeHistory(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := ParseSessionID(w, r, h.logger)
	if !ok {
		return
	}

	records, err := h.sessionService.History(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	response := MergeHistoryResponse{
		Records: records,
		Total:   len(records),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode merge history response", zap.Error(err))
	}
}

// State handles GET /api/sessions/{sid}/state
func (h *SessionsHandler) State(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := ParseSessionID(w, r, h.logger)
	if !ok {
		return
	}

	state, err := h.sessionService.State(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, state); err != nil {
		h.logger.Error("Failed to encode state response", zap.Error(err))
	}
}
