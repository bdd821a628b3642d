package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ripclass/trdrhub.com-sub003/pkg/apperrors"
	"github.com/ripclass/trdrhub.com-sub003/pkg/audit"
	"github.com/ripclass/trdrhub.com-sub003/pkg/auth"
	"github.com/ripclass/trdrhub.com-sub003/pkg/config"
	"github.com/ripclass/trdrhub.com-sub003/pkg/models"
	"github.com/ripclass/trdrhub.com-sub003/pkg/repositories"
)

// MergeRequest describes one requested consolidation of a duplicate session
// into a canonical target session.
type MergeRequest struct {
	SourceSessionID uuid.UUID `json:"source_session_id"`
	TargetSessionID uuid.UUID `json:"target_session_id"`
	MergeType       string    `json:"merge_type"`
	MergeReason     string    `json:"merge_reason,omitempty"`
	FieldsToMerge   []string  `json:"fields_to_merge"`

	// IdempotencyKey deduplicates retried requests. Assigned server-side
	// when the client did not send one.
	IdempotencyKey string `json:"-"`

	// PerformedBy is resolved from the caller's claims, not the body.
	PerformedBy string `json:"-"`
}

// MergeCoordinator executes field-scoped merges between validation sessions.
type MergeCoordinator interface {
	// Merge validates, applies and records a merge. A retried request with
	// the same idempotency key and same source/target returns the original
	// MergeRecord without re-applying anything.
	Merge(ctx context.Context, req MergeRequest) (*models.MergeRecord, error)
}

type mergeCoordinator struct {
	sessionRepo repositories.SessionRepository
	recordRepo  repositories.MergeRecordRepository
	tx          repositories.Transactor
	redisClient *redis.Client
	auditLog    *audit.EventLogger
	cfg         *config.DedupConfig
	logger      *zap.Logger
}

// NewMergeCoordinator creates a new MergeCoordinator. redisClient may be nil;
// the database's conditional writes remain the authoritative concurrency
// guard either way.
func NewMergeCoordinator(
	sessionRepo repositories.SessionRepository,
	recordRepo repositories.MergeRecordRepository,
	tx repositories.Transactor,
	redisClient *redis.Client,
	auditLog *audit.EventLogger,
	cfg *config.DedupConfig,
	logger *zap.Logger,
) MergeCoordinator {
	return &mergeCoordinator{
		sessionRepo: sessionRepo,
		recordRepo:  recordRepo,
		tx:          tx,
		redisClient: redisClient,
		auditLog:    auditLog,
		cfg:         cfg,
		logger:      logger.Named("merge"),
	}
}

var _ MergeCoordinator = (*mergeCoordinator)(nil)

func (c *mergeCoordinator) Merge(ctx context.Context, req MergeRequest) (*models.MergeRecord, error) {
	tenantID, err := auth.TenantFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidRequest)
	}

	if err := validateMergeRequest(&req); err != nil {
		c.auditLog.LogMergeRejected(ctx, tenantID, req.SourceSessionID, req.TargetSessionID, err.Error())
		return nil, err
	}

	// Replay check: a retry with a known key short-circuits before any read
	// or write. Only a definitive miss falls through to a fresh merge; a
	// transient lookup failure must not re-run the pipeline.
	existing, err := c.recordRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	switch {
	case err == nil:
		if existing.SourceSessionID != req.SourceSessionID || existing.TargetSessionID != req.TargetSessionID {
			return nil, fmt.Errorf("idempotency key %q was used for a different session pair: %w",
				req.IdempotencyKey, apperrors.ErrInvalidRequest)
		}
		c.logger.Info("Replayed merge request",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("merge_id", existing.MergeID.String()))
		return existing, nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("idempotency replay check: %w", err)
	}

	source, err := c.sessionRepo.GetByID(ctx, req.SourceSessionID)
	if err != nil {
		return nil, fmt.Errorf("source session: %w", err)
	}
	target, err := c.sessionRepo.GetByID(ctx, req.TargetSessionID)
	if err != nil {
		return nil, fmt.Errorf("target session: %w", err)
	}

	// Terminal sessions can be neither source nor target: chained merges are
	// disallowed rather than collapsed, so the audit trail never needs its
	// back-references rewritten.
	if source.IsTerminal() {
		c.auditLog.LogMergeRejected(ctx, tenantID, source.ID, target.ID, "source already merged")
		return nil, fmt.Errorf("source session %s: %w", source.ID, apperrors.ErrAlreadyMerged)
	}
	if target.IsTerminal() {
		c.auditLog.LogMergeRejected(ctx, tenantID, source.ID, target.ID, "target already merged")
		return nil, fmt.Errorf("target session %s: %w", target.ID, apperrors.ErrAlreadyMerged)
	}

	unlock, err := c.acquireLock(ctx, source.ID)
	if err != nil {
		c.auditLog.LogMergeConflict(ctx, tenantID, source.ID, target.ID)
		return nil, err
	}
	defer unlock()

	patch := buildPatch(source, target, req.FieldsToMerge)
	record := &models.MergeRecord{
		TenantID:        tenantID,
		SourceSessionID: source.ID,
		TargetSessionID: target.ID,
		MergeType:       req.MergeType,
		FieldsMerged:    req.FieldsToMerge,
		MergeReason:     req.MergeReason,
		IdempotencyKey:  req.IdempotencyKey,
		PerformedBy:     req.PerformedBy,
	}

	// The target patch, the source's terminal marker and the ledger row
	// commit together or not at all: a losing racer rolls back its partial
	// writes and a merged session always has a record explaining it.
	err = c.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := c.sessionRepo.ApplyPatch(ctx, target.ID, patch, target.Version); err != nil {
			return err
		}
		if err := c.sessionRepo.MarkMerged(ctx, source.ID, target.ID); err != nil {
			return err
		}
		created, err := c.recordRepo.Create(ctx, record)
		if err != nil {
			return err
		}
		record = created
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrAlreadyMerged) {
			c.auditLog.LogMergeConflict(ctx, tenantID, source.ID, target.ID)
		}
		return nil, err
	}

	c.auditLog.LogMergeApplied(ctx, tenantID, source.ID, target.ID)
	c.logger.Info("Merge completed",
		zap.String("merge_id", record.MergeID.String()),
		zap.String("source_session_id", source.ID.String()),
		zap.String("target_session_id", target.ID.String()),
		zap.Strings("fields_merged", record.FieldsMerged))

	return record, nil
}

func validateMergeRequest(req *MergeRequest) error {
	if req.SourceSessionID == uuid.Nil || req.TargetSessionID == uuid.Nil {
		return fmt.Errorf("source and target session IDs are required: %w", apperrors.ErrInvalidRequest)
	}
	if req.SourceSessionID == req.TargetSessionID {
		return fmt.Errorf("a session cannot be merged into itself: %w", apperrors.ErrInvalidRequest)
	}
	if !models.ValidMergeType(req.MergeType) {
		return fmt.Errorf("unknown merge type %q: %w", req.MergeType, apperrors.ErrInvalidRequest)
	}
	if len(req.FieldsToMerge) == 0 {
		return fmt.Errorf("fields_to_merge must not be empty: %w", apperrors.ErrInvalidFieldSet)
	}
	for _, group := range req.FieldsToMerge {
		if !models.ValidFieldGroup(group) {
			return fmt.Errorf("unknown field group %q: %w", group, apperrors.ErrInvalidFieldSet)
		}
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	} else if len(req.IdempotencyKey) > 255 {
		return fmt.Errorf("idempotency key exceeds 255 characters: %w", apperrors.ErrInvalidRequest)
	}
	return nil
}

// acquireLock takes a short-lived exclusive lock on the source session when
// Redis is configured. Without Redis the conditional database writes alone
// guarantee that a losing racer fails fast.
func (c *mergeCoordinator) acquireLock(ctx context.Context, sourceID uuid.UUID) (func(), error) {
	if c.redisClient == nil {
		return func() {}, nil
	}

	key := "merge-lock:" + sourceID.String()
	ttl := time.Duration(c.cfg.MergeLockTTLSeconds) * time.Second
	acquired, err := c.redisClient.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire merge lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("another merge of session %s is in flight: %w", sourceID, apperrors.ErrConflict)
	}

	return func() {
		if err := c.redisClient.Del(context.Background(), key).Err(); err != nil {
			c.logger.Warn("Failed to release merge lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// buildPatch computes the target's post-merge field groups. Precedence is
// deterministic: a trusted field on the target is preserved, otherwise the
// source's value wins. Issues are unioned with (code, field) duplicates
// collapsed; document sets are unioned. Group order in the request does not
// affect the result.
func buildPatch(source, target *models.ValidationSession, groups []string) repositories.SessionPatch {
	var patch repositories.SessionPatch

	for _, group := range groups {
		switch group {
		case models.FieldGroupExtractedData:
			merged := make(map[string]models.ExtractedField, len(target.ExtractedFields))
			for name, f := range target.ExtractedFields {
				merged[name] = f
			}
			for name, sf := range source.ExtractedFields {
				if tf, ok := merged[name]; ok && tf.Status == models.FieldStatusTrusted {
					continue
				}
				merged[name] = sf
			}
			patch.ExtractedFields = merged

		case models.FieldGroupValidationResults:
			type issueKey struct{ code, field string }
			seen := make(map[issueKey]struct{}, len(target.Issues))
			merged := make([]models.ValidationIssue, 0, len(target.Issues)+len(source.Issues))
			for _, issue := range target.Issues {
				seen[issueKey{issue.Code, issue.Field}] = struct{}{}
				merged = append(merged, issue)
			}
			for _, issue := range source.Issues {
				key := issueKey{issue.Code, issue.Field}
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				merged = append(merged, issue)
			}
			patch.Issues = merged

		case models.FieldGroupDocuments:
			seen := make(map[string]struct{}, len(target.Documents))
			merged := make([]string, 0, len(target.Documents)+len(source.Documents))
			for _, doc := range target.Documents {
				seen[doc] = struct{}{}
				merged = append(merged, doc)
			}
			for _, doc := range source.Documents {
				if _, ok := seen[doc]; ok {
					continue
				}
				seen[doc] = struct{}{}
				merged = append(merged, doc)
			}
			patch.Documents = merged
		}
	}

	return patch
}
