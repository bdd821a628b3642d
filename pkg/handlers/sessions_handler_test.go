package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ripclass/trdrhub.com-sub003/pkg/apperrors"
	"github.com/ripclass/trdrhub.com-sub003/pkg/models"
)

func sessionRequest(t *testing.T, method, target, pathSID string, body string) *http.Request {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if pathSID != "" {
		req.SetPathValue("sid", pathSID)
	}
	return req
}

func TestIngestHandler_Created(t *testing.T) {
	session := &models.ValidationSession{
		ID:       uuid.New(),
		LCNumber: "LC-2026-001",
	}
	svc := &mockSessionService{session: session}
	handler := NewSessionsHandler(svc, zap.NewNop())

	body := `{"lc_number": "LC-2026-001", "extracted_fields": {"amount": {"value": 100000, "confidence": 0.9}}}`
	rec := httptest.NewRecorder()

	handler.Ingest(rec, sessionRequest(t, http.MethodPost, "/api/sessions", "", body))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var got models.ValidationSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, session.ID, got.ID)
}

func TestIngestHandler_InvalidJSON(t *testing.T) {
	handler := NewSessionsHandler(&mockSessionService{}, zap.NewNop())
	rec := httptest.NewRecorder()

	handler.Ingest(rec, sessionRequest(t, http.MethodPost, "/api/sessions", "", "{broken"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_request")
}

func TestGetHandler_NotFound(t *testing.T) {
	handler := NewSessionsHandler(&mockSessionService{err: apperrors.ErrNotFound}, zap.NewNop())
	rec := httptest.NewRecorder()

	handler.Get(rec, sessionRequest(t, http.MethodGet, "/api/sessions/x", uuid.NewString(), ""))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "session_not_found")
}

func TestMergeHistoryHandler(t *testing.T) {
	records := []*models.MergeRecord{
		{MergeID: uuid.New(), MergeType: models.MergeTypeDuplicate},
		{MergeID: uuid.New(), MergeType: models.MergeTypeAmendment},
	}
	handler := NewSessionsHandler(&mockSessionService{records: records}, zap.NewNop())
	rec := httptest.NewRecorder()

	handler.MergeHistory(rec, sessionRequest(t, http.MethodGet, "/api/sessions/x/merge-history", uuid.NewString(), ""))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp MergeHistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Records, 2)
}

func TestMergeHistoryHandler_UnknownSession(t *testing.T) {
	handler := NewSessionsHandler(&mockSessionService{err: apperrors.ErrNotFound}, zap.NewNop())
	rec := httptest.NewRecorder()

	handler.MergeHistory(rec, sessionRequest(t, http.MethodGet, "/api/sessions/x/merge-history", uuid.NewString(), ""))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStateHandler(t *testing.T) {
	state := &models.ComplianceState{
		Status:                    models.StatusNonCompliant,
		ComplianceScore:           68,
		ExtractionCompleteness:    80,
		CriticalFieldCompleteness: 100,
		MissingCriticalFields:     []string{},
	}
	handler := NewSessionsHandler(&mockSessionService{state: state}, zap.NewNop())
	rec := httptest.NewRecorder()

	handler.State(rec, sessionRequest(t, http.MethodGet, "/api/sessions/x/state", uuid.NewString(), ""))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got models.ComplianceState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.StatusNonCompliant, got.Status)
	assert.Equal(t, 68, got.ComplianceScore)
	assert.NotNil(t, got.MissingCriticalFields)
}

func TestStateHandler_InvalidSessionID(t *testing.T) {
	handler := NewSessionsHandler(&mockSessionService{}, zap.NewNop())
	rec := httptest.NewRecorder()

	handler.State(rec, sessionRequest(t, http.MethodGet, "/api/sessions/nope/state", "nope", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_session_id")
}
