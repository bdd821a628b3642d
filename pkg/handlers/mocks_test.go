package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/ripclass/trdrhub.com-sub003/pkg/models"
	"github.com/ripclass/trdrhub.com-sub003/pkg/services"
)

// mockMatcher implements services.SimilarityMatcher.
type mockMatcher struct {
	candidates []models.DuplicateCandidate
	err        error
}

func (m *mockMatcher) FindCandidates(context.Context, uuid.UUID) ([]models.DuplicateCandidate, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.candidates, nil
}

// mockCoordinator implements services.MergeCoordinator and captures the
// request it received.
type mockCoordinator struct {
	record  *models.MergeRecord
	err     error
	lastReq services.MergeRequest
}

func (m *mockCoordinator) Merge(_ context.Context, req services.MergeRequest) (*models.MergeRecord, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.record, nil
}

// mockSessionService implements services.SessionService.
type mockSessionService struct {
	session *models.ValidationSession
	state   *models.ComplianceState
	records []*models.MergeRecord
	err     error
}

func (m *mockSessionService) Ingest(context.Context, services.IngestRequest) (*models.ValidationSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func (m *mockSessionService) Get(context.Context, uuid.UUID) (*models.ValidationSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func (m *mockSessionService) State(context.Context, uuid.UUID) (*models.ComplianceState, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.state, nil
}

func (m *mockSessionService) History(context.Context, uuid.UUID) ([]*models.MergeRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

var (
	_ services.SimilarityMatcher = (*mockMatcher)(nil)
	_ services.MergeCoordinator  = (*mockCoordinator)(nil)
	_ services.SessionService    = (*mockSessionService)(nil)
)
