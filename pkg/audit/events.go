// Package audit provides structured compliance-event logging for SIEM
// consumption. The durable merge history lives in the merge_records table;
// this logger adds a real-time feed of merge decisions (including rejected
// ones, which never reach the table) in structured JSON.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ripclass/trdrhub.com-sub003/pkg/auth"
)

// EventType categorizes compliance-relevant events for filtering and alerting.
type EventType string

const (
	// EventMergeApplied is logged when a merge completes and a MergeRecord is written.
	EventMergeApplied EventType = "merge_applied"
	// EventMergeRejected is logged when a merge request fails a precondition.
	EventMergeRejected EventType = "merge_rejected"
	// EventMergeConflict is logged when a merge loses a concurrency race.
	EventMergeConflict EventType = "merge_conflict"
)

// Event represents an auditable compliance event with all relevant context.
type Event struct {
	Timestamp       time.Time `json:"timestamp"`
	EventType       EventType `json:"event_type"`
	TenantID        uuid.UUID `json:"tenant_id"`
	SourceSessionID uuid.UUID `json:"source_session_id"`
	TargetSessionID uuid.UUID `json:"target_session_id"`
	UserID          string    `json:"user_id,omitempty"`
	Reason          string    `json:"reason,omitempty"`
}

// EventLogger logs compliance events for SIEM consumption.
type EventLogger struct {
	logger *zap.Logger
}

// NewEventLogger creates an event logger with a dedicated namespace so SIEM
// pipelines can filter on logger name.
func NewEventLogger(logger *zap.Logger) *EventLogger {
	return &EventLogger{logger: logger.Named("compliance_audit")}
}

// LogMergeApplied records a completed merge.
func (l *EventLogger) LogMergeApplied(ctx context.Context, tenantID, sourceID, targetID uuid.UUID) {
	l.log(ctx, zap.InfoLevel, Event{
		EventType:       EventMergeApplied,
		TenantID:        tenantID,
		SourceSessionID: sourceID,
		TargetSessionID: targetID,
	})
}

// LogMergeRejected records a merge request that failed a precondition.
func (l *EventLogger) LogMergeRejected(ctx context.Context, tenantID, sourceID, targetID uuid.UUID, reason string) {
	l.log(ctx, zap.WarnLevel, Event{
		EventType:       EventMergeRejected,
		TenantID:        tenantID,
		SourceSessionID: sourceID,
		TargetSessionID: targetID,
		Reason:          reason,
	})
}

// LogMergeConflict records a merge that lost a concurrency race.
func (l *EventLogger) LogMergeConflict(ctx context.Context, tenantID, sourceID, targetID uuid.UUID) {
	l.log(ctx, zap.WarnLevel, Event{
		EventType:       EventMergeConflict,
		TenantID:        tenantID,
		SourceSessionID: sourceID,
		TargetSessionID: targetID,
	})
}

func (l *EventLogger) log(ctx context.Context, level zapcore.Level, event Event) {
	event.Timestamp = time.Now().UTC()
	event.UserID = auth.ActorFromContext(ctx)

	fields := []zap.Field{
		zap.String("event_type", string(event.EventType)),
		zap.String("tenant_id", event.TenantID.String()),
		zap.String("source_session_id", event.SourceSessionID.String()),
		zap.String("target_session_id", event.TargetSessionID.String()),
		zap.String("user_id", event.UserID),
		zap.Time("timestamp", event.Timestamp),
	}
	if event.Reason != "" {
		fields = append(fields, zap.String("reason", event.Reason))
	}

	if ce := l.logger.Check(level, "compliance event"); ce != nil {
		ce.Write(fields...)
	}
}
