package models

import "github.com/google/uuid"

// DuplicateCandidate is a scored relationship between a source session and
// another session that may represent the same underlying transaction.
// Candidates are derived on demand from current session data and never
// persisted.
type DuplicateCandidate struct {
	SessionID uuid.UUID `json:"session_id"`

	// SimilarityScore is the overall match confidence in [0,1].
	SimilarityScore float64 `json:"similarity_score"`

	// ContentSimilarity is the text-level similarity component in [0,1].
	// Nil when the candidate matched purely on structured identifiers.
	ContentSimilarity *float64 `json:"content_similarity,omitempty"`

	// LCNumber and MatchedOn give the review UI enough context to render a
	// candidate row without a second fetch.
	LCNumber  string   `json:"lc_number"`
	MatchedOn []string `json:"matched_on,omitempty"`
}
