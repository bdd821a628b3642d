package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ripclass/trdrhub.com-sub003/pkg/auth"
)

func TestEventLogger_LogMergeApplied(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	eventLogger := NewEventLogger(zap.New(core))

	tenantID, sourceID, targetID := uuid.New(), uuid.New(), uuid.New()
	ctx := auth.SetClaims(context.Background(), &auth.Claims{Email: "officer@bank.example"})

	eventLogger.LogMergeApplied(ctx, tenantID, sourceID, targetID)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "compliance_audit", entries[0].LoggerName)

	fields := entries[0].ContextMap()
	assert.Equal(t, string(EventMergeApplied), fields["event_type"])
	assert.Equal(t, tenantID.String(), fields["tenant_id"])
	assert.Equal(t, sourceID.String(), fields["source_session_id"])
	assert.Equal(t, targetID.String(), fields["target_session_id"])
	assert.Equal(t, "officer@bank.example", fields["user_id"])
	assert.NotContains(t, fields, "reason")
}

func TestEventLogger_LogMergeRejectedCarriesReason(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	eventLogger := NewEventLogger(zap.New(core))

	eventLogger.LogMergeRejected(context.Background(), uuid.New(), uuid.New(), uuid.New(), "source already merged")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, string(EventMergeRejected), fields["event_type"])
	assert.Equal(t, "source already merged", fields["reason"])
	// Without claims the actor falls back to system.
	assert.Equal(t, "system", fields["user_id"])
}

func TestEventLogger_RespectsLevelGate(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	eventLogger := NewEventLogger(zap.New(core))

	eventLogger.LogMergeApplied(context.Background(), uuid.New(), uuid.New(), uuid.New())
	eventLogger.LogMergeConflict(context.Background(), uuid.New(), uuid.New(), uuid.New())

	assert.Empty(t, logs.All())
}
