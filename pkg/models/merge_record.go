package models

import (
	"time"

	"github.com/google/uuid"
)

// MergeType values describe why two sessions were consolidated.
const (
	MergeTypeDuplicate  = "duplicate"
	MergeTypeAmendment  = "amendment"
	MergeTypeCorrection = "correction"
	MergeTypeManual     = "manual"
)

// Field groups that a merge request may ask to consolidate.
const (
	FieldGroupExtractedData     = "extracted_data"
	FieldGroupValidationResults = "validation_results"
	FieldGroupDocuments         = "documents"
)

// ValidMergeType reports whether t is a known merge type.
func ValidMergeType(t string) bool {
	switch t {
	case MergeTypeDuplicate, MergeTypeAmendment, MergeTypeCorrection, MergeTypeManual:
		return true
	}
	return false
}

// ValidFieldGroup reports whether g is a known merge field group.
func ValidFieldGroup(g string) bool {
	switch g {
	case FieldGroupExtractedData, FieldGroupValidationResults, FieldGroupDocuments:
		return true
	}
	return false
}

// MergeRecord is an immutable audit entry describing one merge operation.
// Stored append-only in the merge_records table; this shape is exported to
// compliance reports, so changes must be additive only.
type MergeRecord struct {
	MergeID         uuid.UUID `json:"merge_id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	SourceSessionID uuid.UUID `json:"source_session_id"`
	TargetSessionID uuid.UUID `json:"target_session_id"`
	MergeType       string    `json:"merge_type"`
	FieldsMerged    []string  `json:"fields_merged"`
	MergeReason     string    `json:"merge_reason,omitempty"`
	IdempotencyKey  string    `json:"idempotency_key"`
	PerformedBy     string    `json:"performed_by"`
	PerformedAt     time.Time `json:"performed_at"`
}
