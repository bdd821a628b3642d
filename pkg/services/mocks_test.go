package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ripclass/trdrhub.com-sub003/pkg/apperrors"
	"github.com/ripclass/trdrhub.com-sub003/pkg/auth"
	"github.com/ripclass/trdrhub.com-sub003/pkg/models"
	"github.com/ripclass/trdrhub.com-sub003/pkg/repositories"
)

// testTenantID is the tenant every mock-backed test runs under.
var testTenantID = uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000001")

func testContext() context.Context {
	return auth.SetClaims(context.Background(), &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		TenantID:         testTenantID.String(),
		Email:            "officer@bank.example",
	})
}

// mockSessionRepo implements repositories.SessionRepository in memory.
type mockSessionRepo struct {
	sessions map[uuid.UUID]*models.ValidationSession

	applyPatchErr error
	markMergedErr error
	listErr       error
}

func newMockSessionRepo(sessions ...*models.ValidationSession) *mockSessionRepo {
	m := &mockSessionRepo{sessions: make(map[uuid.UUID]*models.ValidationSession)}
	for _, s := range sessions {
		m.sessions[s.ID] = s
	}
	return m
}

func (m *mockSessionRepo) Create(_ context.Context, session *models.ValidationSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.Version = 1
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.ValidationSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, apperrors.ErrNotFound)
	}
	return s, nil
}

func (m *mockSessionRepo) GetByLCNumber(_ context.Context, lcNumber string) ([]*models.ValidationSession, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*models.ValidationSession
	for _, s := range m.sessions {
		if s.LCNumber == lcNumber {
			result = append(result, s)
		}
	}
	sortSessionsByID(result)
	return result, nil
}

func (m *mockSessionRepo) ListRecent(_ context.Context, limit int) ([]*models.ValidationSession, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*models.ValidationSession
	for _, s := range m.sessions {
		result = append(result, s)
	}
	sortSessionsByID(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockSessionRepo) ApplyPatch(_ context.Context, id uuid.UUID, patch repositories.SessionPatch, expectedVersion int64) error {
	if m.applyPatchErr != nil {
		return m.applyPatchErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, apperrors.ErrNotFound)
	}
	if s.Version != expectedVersion || s.MergedInto != nil {
		return fmt.Errorf("session %s was modified concurrently: %w", id, apperrors.ErrConflict)
	}
	if patch.ExtractedFields != nil {
		s.ExtractedFields = patch.ExtractedFields
	}
	if patch.Issues != nil {
		s.Issues = patch.Issues
	}
	if patch.Documents != nil {
		s.Documents = patch.Documents
	}
	s.Version++
	s.UpdatedAt = time.Now()
	return nil
}

func (m *mockSessionRepo) MarkMerged(_ context.Context, sourceID, targetID uuid.UUID) error {
	if m.markMergedErr != nil {
		return m.markMergedErr
	}
	s, ok := m.sessions[sourceID]
	if !ok || s.MergedInto != nil {
		return fmt.Errorf("session %s: %w", sourceID, apperrors.ErrAlreadyMerged)
	}
	s.MergedInto = &targetID
	s.Version++
	return nil
}

func (m *mockSessionRepo) snapshot() map[uuid.UUID]models.ValidationSession {
	snap := make(map[uuid.UUID]models.ValidationSession, len(m.sessions))
	for id, s := range m.sessions {
		snap[id] = *s
	}
	return snap
}

// restore writes the snapshot back through the existing pointers so callers
// holding a session see its pre-transaction state.
func (m *mockSessionRepo) restore(snap map[uuid.UUID]models.ValidationSession) {
	for id := range m.sessions {
		if _, ok := snap[id]; !ok {
			delete(m.sessions, id)
		}
	}
	for id, s := range snap {
		*m.sessions[id] = s
	}
}

func sortSessionsByID(sessions []*models.ValidationSession) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ID.String() < sessions[j].ID.String()
	})
}

// mockMergeRecordRepo implements repositories.MergeRecordRepository in memory.
type mockMergeRecordRepo struct {
	records   []*models.MergeRecord
	createErr error
	getErr    error
}

func (m *mockMergeRecordRepo) Create(_ context.Context, record *models.MergeRecord) (*models.MergeRecord, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	for _, r := range m.records {
		if r.IdempotencyKey == record.IdempotencyKey {
			return r, nil
		}
	}
	record.MergeID = uuid.New()
	record.PerformedAt = time.Now()
	m.records = append(m.records, record)
	return record, nil
}

func (m *mockMergeRecordRepo) GetByIdempotencyKey(_ context.Context, key string) (*models.MergeRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, r := range m.records {
		if r.IdempotencyKey == key {
			return r, nil
		}
	}
	return nil, fmt.Errorf("merge record %q: %w", key, apperrors.ErrNotFound)
}

func (m *mockMergeRecordRepo) GetBySession(_ context.Context, sessionID uuid.UUID) ([]*models.MergeRecord, error) {
	var result []*models.MergeRecord
	for _, r := range m.records {
		if r.SourceSessionID == sessionID || r.TargetSessionID == sessionID {
			result = append(result, r)
		}
	}
	return result, nil
}

// mockTransactor mirrors database transaction semantics over the in-memory
// repos: an error from fn restores both to their pre-call state.
type mockTransactor struct {
	sessions *mockSessionRepo
	records  *mockMergeRecordRepo
	beginErr error
}

func (t *mockTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.beginErr != nil {
		return t.beginErr
	}
	sessionSnap := t.sessions.snapshot()
	recordSnap := append([]*models.MergeRecord(nil), t.records.records...)
	if err := fn(ctx); err != nil {
		t.sessions.restore(sessionSnap)
		t.records.records = recordSnap
		return err
	}
	return nil
}

var (
	_ repositories.SessionRepository     = (*mockSessionRepo)(nil)
	_ repositories.MergeRecordRepository = (*mockMergeRecordRepo)(nil)
	_ repositories.Transactor            = (*mockTransactor)(nil)
)
