package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ripclass/trdrhub.com-sub003/pkg/apperrors"
	"github.com/ripclass/trdrhub.com-sub003/pkg/database"
	"github.com/ripclass/trdrhub.com-sub003/pkg/models"
)

// SessionPatch carries the field groups a merge writes back to the target
// session. Nil members are left unchanged.
type SessionPatch struct {
	ExtractedFields map[string]models.ExtractedField
	Issues          []models.ValidationIssue
	Documents       []string
}

// SessionRepository provides data access for validation sessions.
// All reads and writes run on the tenant-scoped connection from context;
// row-level security keeps each tenant inside its own rows.
type SessionRepository interface {
	// Create inserts a new validation session.
	Create(ctx context.Context, session *models.ValidationSession) error

	// GetByID returns the session with the given ID.
	// Returns apperrors.ErrNotFound if no such session exists.
	GetByID(ctx context.Context, id uuid.UUID) (*models.ValidationSession, error)

	// GetByLCNumber returns all sessions sharing the given LC number,
	// newest first.
	GetByLCNumber(ctx context.Context, lcNumber string) ([]*models.ValidationSession, error)

	// ListRecent returns the tenant's most recently updated sessions.
	ListRecent(ctx context.Context, limit int) ([]*models.ValidationSession, error)

	// ApplyPatch writes merged field groups to a session, guarded by an
	// optimistic version check. Returns apperrors.ErrConflict if the session
	// changed since it was read or has become terminal.
	ApplyPatch(ctx context.Context, id uuid.UUID, patch SessionPatch, expectedVersion int64) error

	// MarkMerged sets merged_into on the source session. Returns
	// apperrors.ErrAlreadyMerged if the session is already terminal.
	MarkMerged(ctx context.Context, sourceID, targetID uuid.UUID) error
}

type sessionRepository struct{}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository() SessionRepository {
	return &sessionRepository{}
}

var _ SessionRepository = (*sessionRepository)(nil)

func (r *sessionRepository) Create(ctx context.Context, session *models.ValidationSession) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	session.Version = 1

	fieldsJSON, issuesJSON, documentsJSON, err := marshalSessionData(
		session.ExtractedFields, session.Issues, session.Documents)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (
			id, tenant_id, lc_number, extracted_fields, issues, documents, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = scope.Querier().Exec(ctx, query,
		session.ID,
		session.TenantID,
		session.LCNumber,
		fieldsJSON,
		issuesJSON,
		documentsJSON,
		session.Version,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

const sessionColumns = `id, tenant_id, lc_number, extracted_fields, issues, documents, merged_into, version, created_at, updated_at`

func (r *sessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ValidationSession, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	session, err := scanSession(scope.Querier().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return session, nil
}

func (r *sessionRepository) GetByLCNumber(ctx context.Context, lcNumber string) ([]*models.ValidationSession, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE lc_number = $1 ORDER BY updated_at DESC`

	rows, err := scope.Querier().Query(ctx, query, lcNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions by lc_number: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

func (r *sessionRepository) ListRecent(ctx context.Context, limit int) ([]*models.ValidationSession, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY updated_at DESC LIMIT $1`

	rows, err := scope.Querier().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

func (r *sessionRepository) ApplyPatch(ctx context.Context, id uuid.UUID, patch SessionPatch, expectedVersion int64) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	fieldsJSON, issuesJSON, documentsJSON, err := marshalSessionData(
		patch.ExtractedFields, patch.Issues, patch.Documents)
	if err != nil {
		return err
	}

	// The version predicate is the authoritative concurrency guard: a merge
	// that read stale data affects zero rows and must be retried by the
	// caller with fresh state.
	query := `
		UPDATE sessions
		SET extracted_fields = COALESCE($2, extracted_fields),
		    issues = COALESCE($3, issues),
		    documents = COALESCE($4, documents),
		    version = version + 1,
		    updated_at = $5
		WHERE id = $1 AND version = $6 AND merged_into IS NULL`

	tag, err := scope.Querier().Exec(ctx, query, id, fieldsJSON, issuesJSON, documentsJSON, time.Now(), expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to patch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s was modified concurrently: %w", id, apperrors.ErrConflict)
	}

	return nil
}

func (r *sessionRepository) MarkMerged(ctx context.Context, sourceID, targetID uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	query := `
		UPDATE sessions
		SET merged_into = $2, version = version + 1, updated_at = $3
		WHERE id = $1 AND merged_into IS NULL`

	tag, err := scope.Querier().Exec(ctx, query, sourceID, targetID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark session merged: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", sourceID, apperrors.ErrAlreadyMerged)
	}

	return nil
}

func marshalSessionData(fields map[string]models.ExtractedField, issues []models.ValidationIssue, documents []string) (fieldsJSON, issuesJSON, documentsJSON []byte, err error) {
	if fields != nil {
		fieldsJSON, err = json.Marshal(fields)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal extracted_fields: %w", err)
		}
	}
	if issues != nil {
		issuesJSON, err = json.Marshal(issues)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal issues: %w", err)
		}
	}
	if documents != nil {
		documentsJSON, err = json.Marshal(documents)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal documents: %w", err)
		}
	}
	return fieldsJSON, issuesJSON, documentsJSON, nil
}

func collectSessions(rows pgx.Rows) ([]*models.ValidationSession, error) {
	var sessions []*models.ValidationSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

func scanSession(row pgx.Row) (*models.ValidationSession, error) {
	var session models.ValidationSession
	var fieldsJSON, issuesJSON, documentsJSON []byte

	err := row.Scan(
		&session.ID,
		&session.TenantID,
		&session.LCNumber,
		&fieldsJSON,
		&issuesJSON,
		&documentsJSON,
		&session.MergedInto,
		&session.Version,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &session.ExtractedFields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal extracted_fields: %w", err)
		}
	}
	if len(issuesJSON) > 0 {
		if err := json.Unmarshal(issuesJSON, &session.Issues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal issues: %w", err)
		}
	}
	if len(documentsJSON) > 0 {
		if err := json.Unmarshal(documentsJSON, &session.Documents); err != nil {
			return nil, fmt.Errorf("failed to unmarshal documents: %w", err)
		}
	}

	return &session, nil
}
