package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ripclass/trdrhub.com-sub003/pkg/apperrors"
	"github.com/ripclass/trdrhub.com-sub003/pkg/auth"
	"github.com/ripclass/trdrhub.com-sub003/pkg/jsonutil"
	"github.com/ripclass/trdrhub.com-sub003/pkg/models"
	"github.com/ripclass/trdrhub.com-sub003/pkg/repositories"
)

// IngestField is the tolerant wire shape for one extracted field as sent by
// the extraction pipeline. Value may arrive as a string, number or boolean.
type IngestField struct {
	Value      json.RawMessage `json:"value"`
	Confidence float64         `json:"confidence"`
	Status     string          `json:"status,omitempty"`
}

// IngestRequest is the payload the extraction pipeline posts when a
// validation run finishes.
type IngestRequest struct {
	SessionID       uuid.UUID                 `json:"session_id,omitempty"`
	LCNumber        string                    `json:"lc_number"`
	ExtractedFields map[string]IngestField    `json:"extracted_fields"`
	Issues          []models.ValidationIssue  `json:"issues"`
	Documents       []string                  `json:"documents"`
}

// SessionService exposes the session store to the HTTP layer: ingesting
// pipeline output, reading sessions, deriving compliance state and listing
// merge history.
type SessionService interface {
	// Ingest normalizes and stores a validation run. Pipeline payloads are
	// resolved against the extraction schema exactly once, here.
	Ingest(ctx context.Context, req IngestRequest) (*models.ValidationSession, error)

	// Get returns one session by ID.
	Get(ctx context.Context, id uuid.UUID) (*models.ValidationSession, error)

	// State derives the session's current compliance state.
	State(ctx context.Context, id uuid.UUID) (*models.ComplianceState, error)

	// History returns the session's merge records in chronological order.
	History(ctx context.Context, id uuid.UUID) ([]*models.MergeRecord, error)
}

type sessionService struct {
	sessionRepo repositories.SessionRepository
	recordRepo  repositories.MergeRecordRepository
	schema      *models.ExtractionSchema
	logger      *zap.Logger
}

// NewSessionService creates a new SessionService using the given extraction
// schema for ingest normalization and state derivation.
func NewSessionService(
	sessionRepo repositories.SessionRepository,
	recordRepo repositories.MergeRecordRepository,
	schema *models.ExtractionSchema,
	logger *zap.Logger,
) SessionService {
	return &sessionService{
		sessionRepo: sessionRepo,
		recordRepo:  recordRepo,
		schema:      schema,
		logger:      logger.Named("sessions"),
	}
}

var _ SessionService = (*sessionService)(nil)

func (s *sessionService) Ingest(ctx context.Context, req IngestRequest) (*models.ValidationSession, error) {
	tenantID, err := auth.TenantFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidRequest)
	}
	if req.LCNumber == "" {
		return nil, fmt.Errorf("lc_number is required: %w", apperrors.ErrInvalidRequest)
	}

	fields := make(map[string]models.ExtractedField, len(req.ExtractedFields))
	for name, f := range req.ExtractedFields {
		status := f.Status
		if status == "" {
			status = models.FieldStatusReview
		}
		fields[name] = models.ExtractedField{
			Value:      jsonutil.FlexibleStringValue(f.Value),
			Confidence: f.Confidence,
			Status:     status,
		}
	}
	fields = s.schema.ResolveDefaults(fields)

	session := &models.ValidationSession{
		ID:              req.SessionID,
		TenantID:        tenantID,
		LCNumber:        req.LCNumber,
		ExtractedFields: fields,
		Issues:          req.Issues,
		Documents:       req.Documents,
	}
	if session.Issues == nil {
		session.Issues = []models.ValidationIssue{}
	}
	if session.Documents == nil {
		session.Documents = []string{}
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Ingested validation session",
		zap.String("session_id", session.ID.String()),
		zap.String("lc_number", session.LCNumber),
		zap.Int("field_count", len(session.ExtractedFields)),
		zap.Int("issue_count", len(session.Issues)))

	return session, nil
}

func (s *sessionService) Get(ctx context.Context, id uuid.UUID) (*models.ValidationSession, error) {
	return s.sessionRepo.GetByID(ctx, id)
}

func (s *sessionService) State(ctx context.Context, id uuid.UUID) (*models.ComplianceState, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	state := DeriveState(session, s.schema)
	return &state, nil
}

func (s *sessionService) History(ctx context.Context, id uuid.UUID) ([]*models.MergeRecord, error) {
	// A history query for an unknown session is a NotFound, not an empty list.
	if _, err := s.sessionRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	records, err := s.recordRepo.GetBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.MergeRecord{}
	}
	return records, nil
}
