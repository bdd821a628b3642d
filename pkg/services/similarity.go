package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ripclass/trdrhub.com-sub003/pkg/apperrors"
	"github.com/ripclass/trdrhub.com-sub003/pkg/config"
	"github.com/ripclass/trdrhub.com-sub003/pkg/models"
	"github.com/ripclass/trdrhub.com-sub003/pkg/repositories"
)

// Relative weights for the structured-identifier signal. LC number dominates:
// two sessions quoting the same LC are near-certain duplicates.
const (
	weightLCNumber    = 0.5
	weightBeneficiary = 0.2
	weightAmount      = 0.2
	weightDates       = 0.1
)

// SimilarityMatcher computes duplicate candidates for a source session.
type SimilarityMatcher interface {
	// FindCandidates returns scored duplicate candidates for the source
	// session, ordered by similarity descending. A missing source session or
	// an empty peer set yields an empty slice, never an error.
	FindCandidates(ctx context.Context, sourceSessionID uuid.UUID) ([]models.DuplicateCandidate, error)
}

type similarityMatcher struct {
	sessionRepo repositories.SessionRepository
	cfg         *config.DedupConfig
	logger      *zap.Logger
}

// NewSimilarityMatcher creates a new SimilarityMatcher.
func NewSimilarityMatcher(sessionRepo repositories.SessionRepository, cfg *config.DedupConfig, logger *zap.Logger) SimilarityMatcher {
	return &similarityMatcher{
		sessionRepo: sessionRepo,
		cfg:         cfg,
		logger:      logger.Named("similarity"),
	}
}

var _ SimilarityMatcher = (*similarityMatcher)(nil)

func (m *similarityMatcher) FindCandidates(ctx context.Context, sourceSessionID uuid.UUID) ([]models.DuplicateCandidate, error) {
	source, err := m.sessionRepo.GetByID(ctx, sourceSessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return []models.DuplicateCandidate{}, nil
		}
		return nil, err
	}

	peers, err := m.collectPeers(ctx, source)
	if err != nil {
		return nil, err
	}

	sourceTokens := contentTokens(source)

	candidates := make([]models.DuplicateCandidate, 0, len(peers))
	for _, peer := range peers {
		if peer.ID == source.ID || peer.IsTerminal() {
			continue
		}

		idScore, matchedOn := m.identifierScore(source, peer)
		textScore := jaccard(sourceTokens, contentTokens(peer))

		sharesLC := normalizeIdentifier(source.LCNumber) != "" &&
			normalizeIdentifier(source.LCNumber) == normalizeIdentifier(peer.LCNumber)
		if !sharesLC && textScore < m.cfg.ContentSimilarityFloor {
			continue
		}

		score := m.cfg.IdentifierWeight*idScore + m.cfg.TextWeight*textScore
		score = clamp01(score)

		content := textScore
		candidates = append(candidates, models.DuplicateCandidate{
			SessionID:         peer.ID,
			SimilarityScore:   score,
			ContentSimilarity: &content,
			LCNumber:          peer.LCNumber,
			MatchedOn:         matchedOn,
		})
	}

	// Deterministic order: score descending, session ID as tiebreak.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].SimilarityScore != candidates[j].SimilarityScore {
			return candidates[i].SimilarityScore > candidates[j].SimilarityScore
		}
		return candidates[i].SessionID.String() < candidates[j].SessionID.String()
	})

	if m.cfg.MaxCandidates > 0 && len(candidates) > m.cfg.MaxCandidates {
		candidates = candidates[:m.cfg.MaxCandidates]
	}

	m.logger.Debug("Computed duplicate candidates",
		zap.String("source_session_id", sourceSessionID.String()),
		zap.Int("peer_count", len(peers)),
		zap.Int("candidate_count", len(candidates)))

	return candidates, nil
}

// collectPeers gathers the evaluation set: every session sharing the source's
// LC number plus the tenant's recent sessions, deduplicated by ID.
func (m *similarityMatcher) collectPeers(ctx context.Context, source *models.ValidationSession) ([]*models.ValidationSession, error) {
	seen := make(map[uuid.UUID]struct{})
	var peers []*models.ValidationSession

	if source.LCNumber != "" {
		byLC, err := m.sessionRepo.GetByLCNumber(ctx, source.LCNumber)
		if err != nil {
			return nil, err
		}
		for _, s := range byLC {
			if _, ok := seen[s.ID]; !ok {
				seen[s.ID] = struct{}{}
				peers = append(peers, s)
			}
		}
	}

	limit := m.cfg.MaxCandidates * 10
	if limit <= 0 {
		limit = 200
	}
	recent, err := m.sessionRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	for _, s := range recent {
		if _, ok := seen[s.ID]; !ok {
			seen[s.ID] = struct{}{}
			peers = append(peers, s)
		}
	}

	return peers, nil
}

// identifierScore compares the structured identifiers of two sessions and
// returns the matched weight sum in [0,1] plus the names of matched signals.
func (m *similarityMatcher) identifierScore(a, b *models.ValidationSession) (float64, []string) {
	var score float64
	var matched []string

	if lc := normalizeIdentifier(a.LCNumber); lc != "" && lc == normalizeIdentifier(b.LCNumber) {
		score += weightLCNumber
		matched = append(matched, "lc_number")
	}

	if beneficiaryMatch(fieldValue(a, "beneficiary"), fieldValue(b, "beneficiary")) {
		score += weightBeneficiary
		matched = append(matched, "beneficiary")
	}

	if amountMatch(fieldValue(a, "amount"), fieldValue(b, "amount")) {
		score += weightAmount
		matched = append(matched, "amount")
	}

	if dateMatch(a, b) {
		score += weightDates
		matched = append(matched, "dates")
	}

	return score, matched
}

func fieldValue(s *models.ValidationSession, name string) string {
	f, ok := s.ExtractedFields[name]
	if !ok || f.Status == models.FieldStatusMissing {
		return ""
	}
	return f.Value
}

// normalizeIdentifier upper-cases and strips whitespace so "LC 123-45" and
// "lc123-45" compare equal.
func normalizeIdentifier(v string) string {
	var b strings.Builder
	for _, r := range v {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// beneficiaryMatch fuzzily compares party names: token sets must overlap by
// at least 0.8 Jaccard after normalization.
func beneficiaryMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ta, tb := tokenize(a), tokenize(b)
	return jaccard(ta, tb) >= 0.8
}

// amountMatch compares monetary amounts exactly using decimals so "100000.00"
// and "100,000" agree and float drift cannot produce a false negative.
func amountMatch(a, b string) bool {
	da, errA := parseAmount(a)
	db, errB := parseAmount(b)
	if errA != nil || errB != nil {
		return false
	}
	return da.Equal(db)
}

func parseAmount(v string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, v)
	if cleaned == "" {
		return decimal.Zero, errors.New("empty amount")
	}
	return decimal.NewFromString(cleaned)
}

// dateMatch reports whether the sessions agree on at least one of the key
// date fields.
func dateMatch(a, b *models.ValidationSession) bool {
	for _, name := range []string{"issue_date", "expiry_date"} {
		va, vb := fieldValue(a, name), fieldValue(b, name)
		if va != "" && va == vb {
			return true
		}
	}
	return false
}

// contentTokens builds the token set for text similarity from every extracted
// field value. Tokens are lowercased, singularized, and short tokens dropped.
func contentTokens(s *models.ValidationSession) map[string]struct{} {
	var b strings.Builder
	for _, f := range s.ExtractedFields {
		if f.Status == models.FieldStatusMissing {
			continue
		}
		b.WriteString(f.Value)
		b.WriteByte(' ')
	}
	return tokenize(b.String())
}

func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, raw := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(raw) < 2 {
			continue
		}
		tokens[inflection.Singular(raw)] = struct{}{}
	}
	return tokens
}

// jaccard computes token-set Jaccard similarity. Two empty sets score 0, not
// 1: sessions with no extracted text have nothing in common.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
