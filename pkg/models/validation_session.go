package models

import (
	"time"

	"github.com/google/uuid"
)

// ExtractedField status values. A field's status reflects how much the
// extraction pipeline trusts the value it produced.
const (
	FieldStatusTrusted   = "trusted"
	FieldStatusReview    = "review"
	FieldStatusUntrusted = "untrusted"
	FieldStatusMissing   = "missing"
)

// ValidationIssue severity values.
const (
	SeverityCritical = "critical"
	SeverityMajor    = "major"
	SeverityMinor    = "minor"
)

// ExtractedField is one field produced by the extraction pipeline for a
// validation session.
type ExtractedField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
}

// ValidationIssue is one discrepancy raised while validating a session's
// documents against its LC terms.
type ValidationIssue struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

// ValidationSession represents one document-validation run for a trade
// finance transaction. Stored in the sessions table.
//
// A session with MergedInto set is terminal: it has been consolidated into
// another session and must never participate in a merge again, on either side.
type ValidationSession struct {
	ID              uuid.UUID                 `json:"session_id"`
	TenantID        uuid.UUID                 `json:"tenant_id"`
	LCNumber        string                    `json:"lc_number"`
	ExtractedFields map[string]ExtractedField `json:"extracted_fields"`
	Issues          []ValidationIssue         `json:"issues"`
	Documents       []string                  `json:"documents"`
	MergedInto      *uuid.UUID                `json:"merged_into,omitempty"`

	// Version is bumped on every write and used as an optimistic guard so two
	// concurrent merges against the same session cannot both succeed.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether the session has been merged into another session.
func (s *ValidationSession) IsTerminal() bool {
	return s.MergedInto != nil
}

// IssueCounts returns the number of critical, major and minor issues.
func (s *ValidationSession) IssueCounts() (critical, major, minor int) {
	for _, issue := range s.Issues {
		switch issue.Severity {
		case SeverityCritical:
			critical++
		case SeverityMajor:
			major++
		case SeverityMinor:
			minor++
		}
	}
	return critical, major, minor
}
