package models

// Compliance status values, from worst to best. BLOCKED is the entry gate:
// until enough critical data has been extracted, no further classification
// is attempted.
const (
	StatusBlocked         = "BLOCKED"
	StatusNonCompliant    = "NON_COMPLIANT"
	StatusPartial         = "PARTIAL"
	StatusMostlyCompliant = "MOSTLY_COMPLIANT"
	StatusCompliant       = "COMPLIANT"
)

// ComplianceState is the derived classification of a session's validation
// results. It is recomputed from the session's current extracted fields and
// issues on every read and never stored.
type ComplianceState struct {
	Status                    string   `json:"status"`
	ComplianceScore           int      `json:"compliance_score"`
	ExtractionCompleteness    float64  `json:"extraction_completeness"`
	CriticalFieldCompleteness float64  `json:"critical_field_completeness"`
	MissingCriticalFields     []string `json:"missing_critical_fields"`
	BlockReason               string   `json:"block_reason,omitempty"`
}
