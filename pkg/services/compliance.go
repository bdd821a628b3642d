package services

import (
	"github.com/ripclass/trdrhub.com-sub003/pkg/models"
)

// Penalty weights for the compliance score.
const (
	criticalPenalty = 15
	majorPenalty    = 7
	minorPenalty    = 2

	// criticalCompletenessFloor is the minimum percentage of critical fields
	// that must be extracted before a session can be classified at all.
	criticalCompletenessFloor = 50.0
)

// DeriveState maps a session's current extracted fields and issues to a
// discrete compliance state. It is a pure function of its inputs: the state
// is recomputed on every read and never stored, so there are no transitions
// to persist and no staleness to manage.
//
// Classification runs in strict order, first match wins:
//
//  1. BLOCKED when critical-field completeness is below the floor, no matter
//     what the issue list says - there is not enough data to judge.
//  2. NON_COMPLIANT on any critical issue.
//  3. PARTIAL on any major issue.
//  4. MOSTLY_COMPLIANT on minor issues only.
//  5. COMPLIANT otherwise.
func DeriveState(session *models.ValidationSession, schema *models.ExtractionSchema) models.ComplianceState {
	if schema == nil || len(schema.Fields) == 0 {
		return models.ComplianceState{
			Status:                models.StatusBlocked,
			BlockReason:           "no extraction schema",
			MissingCriticalFields: []string{},
		}
	}

	extraction := completeness(session, schema.FieldNames())
	criticalNames := schema.CriticalFields()
	critical := completeness(session, criticalNames)
	missing := missingFields(session, criticalNames)

	state := models.ComplianceState{
		ComplianceScore:           complianceScore(session),
		ExtractionCompleteness:    extraction,
		CriticalFieldCompleteness: critical,
		MissingCriticalFields:     missing,
	}

	nCritical, nMajor, nMinor := session.IssueCounts()

	switch {
	case critical < criticalCompletenessFloor:
		state.Status = models.StatusBlocked
		state.BlockReason = "critical field extraction below floor"
	case nCritical > 0:
		state.Status = models.StatusNonCompliant
	case nMajor > 0:
		state.Status = models.StatusPartial
	case nMinor > 0:
		state.Status = models.StatusMostlyCompliant
	default:
		state.Status = models.StatusCompliant
	}

	return state
}

// complianceScore is computed independently of the discrete state:
// 100 minus weighted issue counts, floored at 0.
func complianceScore(session *models.ValidationSession) int {
	nCritical, nMajor, nMinor := session.IssueCounts()
	score := 100 - (nCritical*criticalPenalty + nMajor*majorPenalty + nMinor*minorPenalty)
	if score < 0 {
		return 0
	}
	return score
}

// completeness returns the percentage of named fields that were extracted
// (present with a non-missing status and a non-empty value).
func completeness(session *models.ValidationSession, names []string) float64 {
	if len(names) == 0 {
		return 100
	}
	present := 0
	for _, name := range names {
		if fieldExtracted(session, name) {
			present++
		}
	}
	return 100 * float64(present) / float64(len(names))
}

func missingFields(session *models.ValidationSession, names []string) []string {
	missing := []string{}
	for _, name := range names {
		if !fieldExtracted(session, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func fieldExtracted(session *models.ValidationSession, name string) bool {
	f, ok := session.ExtractedFields[name]
	return ok && f.Status != models.FieldStatusMissing && f.Value != ""
}
