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

// MergeRecordRepository is the append-only ledger of merge operations.
// Records are created once and never updated or deleted; the public contract
// deliberately has no mutation methods beyond Create.
type MergeRecordRepository interface {
	// Create appends a merge record. If a record with the same idempotency
	// key already exists, the insert is a no-op and the existing record is
	// returned instead.
	Create(ctx context.Context, record *models.MergeRecord) (*models.MergeRecord, error)

	// GetByIdempotencyKey returns the record created under the given key.
	// Returns apperrors.ErrNotFound if no such record exists.
	GetByIdempotencyKey(ctx context.Context, key string) (*models.MergeRecord, error)

	// GetBySession returns all records in which the session appears as
	// source or target, in chronological order.
	GetBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.MergeRecord, error)
}

type mergeRecordRepository struct{}

// NewMergeRecordRepository creates a new MergeRecordRepository.
func NewMergeRecordRepository() MergeRecordRepository {
	return &mergeRecordRepository{}
}

var _ MergeRecordRepository = (*mergeRecordRepository)(nil)

func (r *mergeRecordRepository) Create(ctx context.Context, record *models.MergeRecord) (*models.MergeRecord, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	if record.MergeID == uuid.Nil {
		record.MergeID = uuid.New()
	}
	if record.PerformedAt.IsZero() {
		record.PerformedAt = time.Now()
	}

	fieldsJSON, err := json.Marshal(record.FieldsMerged)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields_merged: %w", err)
	}

	// The unique index on (tenant_id, idempotency_key) makes retries safe
	// under concurrency: the losing insert is a no-op and the winner's record
	// is what every caller sees. Keys are scoped per tenant, matching the
	// row-level security every read runs under.
	query := `
		INSERT INTO merge_records (
			merge_id, tenant_id, source_session_id, target_session_id,
			merge_type, fields_merged, merge_reason, idempotency_key,
			performed_by, performed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant_id, idempotency_key) DO NOTHING`

	tag, err := scope.Querier().Exec(ctx, query,
		record.MergeID,
		record.TenantID,
		record.SourceSessionID,
		record.TargetSessionID,
		record.MergeType,
		fieldsJSON,
		record.MergeReason,
		record.IdempotencyKey,
		record.PerformedBy,
		record.PerformedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge record: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return r.GetByIdempotencyKey(ctx, record.IdempotencyKey)
	}

	return record, nil
}

const mergeRecordColumns = `merge_id, tenant_id, source_session_id, target_session_id, merge_type, fields_merged, merge_reason, idempotency_key, performed_by, performed_at`

func (r *mergeRecordRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.MergeRecord, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + mergeRecordColumns + ` FROM merge_records WHERE idempotency_key = $1`

	record, err := scanMergeRecord(scope.Querier().QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("merge record for key %q: %w", key, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return record, nil
}

func (r *mergeRecordRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.MergeRecord, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT ` + mergeRecordColumns + `
		FROM merge_records
		WHERE source_session_id = $1 OR target_session_id = $1
		ORDER BY performed_at ASC`

	rows, err := scope.Querier().Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query merge records: %w", err)
	}
	defer rows.Close()

	var records []*models.MergeRecord
	for rows.Next() {
		record, err := scanMergeRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating merge records: %w", err)
	}

	return records, nil
}

func scanMergeRecord(row pgx.Row) (*models.MergeRecord, error) {
	var record models.MergeRecord
	var fieldsJSON []byte

	err := row.Scan(
		&record.MergeID,
		&record.TenantID,
		&record.SourceSessionID,
		&record.TargetSessionID,
		&record.MergeType,
		&fieldsJSON,
		&record.MergeReason,
		&record.IdempotencyKey,
		&record.PerformedBy,
		&record.PerformedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan merge record: %w", err)
	}

	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &record.FieldsMerged); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fields_merged: %w", err)
		}
	}

	return &record, nil
}
