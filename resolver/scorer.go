// ABOUTME: Candidate scoring for name-based resolution
// ABOUTME: Structured first/last gate, token-set similarity and context, recency and relationship boosts
package resolver

import (
	"sort"
	"strings"
	"time"

	"github.com/harperreed/kin/models"
	"github.com/harperreed/kin/names"
)

// Structured similarity values for candidates that pass the name gate.
const (
	structuredExact     = 100.0
	structuredNickname  = 90.0
	structuredInitial   = 85.0
	structuredFirstOnly = 75.0

	rawSimilarityFloor = 50.0
)

type Scorer struct {
	cfg        Config
	similarity names.Similarity
	now        func() time.Time
}

// NewScorer builds a scorer. A nil similarity uses token-set ratio and a nil
// clock uses the wall clock.
func NewScorer(cfg Config, similarity names.Similarity, now func() time.Time) *Scorer {
	if similarity == nil {
		similarity = names.TokenSetRatio
	}
	if now == nil {
		now = time.Now
	}
	return &Scorer{cfg: cfg, similarity: similarity, now: now}
}

// ScoreCandidates scores every person against the name, in input order.
// People whose names fail the structured gate are never returned.
func (s *Scorer) ScoreCandidates(name, contextPath string, people []*models.CanonicalPerson) []models.ResolutionCandidate {
	query := names.ParseName(name)
	if query.IsEmpty() {
		return nil
	}
	cleanQuery := query.Full()
	singleToken := names.IsSingleToken(cleanQuery)
	path := names.NormalizeContextPath(contextPath)

	var candidates []models.ResolutionCandidate
	for _, person := range people {
		raw, structured, bothLast, eligible := s.nameMatch(query, cleanQuery, person)
		if !eligible || !(raw > rawSimilarityFloor || bothLast) {
			continue
		}

		score := max(raw, structured) * s.cfg.NameWeight
		matchType := models.MatchFuzzy
		if path != "" && contextMatches(path, person.VaultContexts) {
			score += s.cfg.ContextBoost
			matchType = models.MatchContext
		}
		if s.isRecent(person.LastSeen) {
			score += s.cfg.RecencyBoost
		}
		score += s.relationshipBoost(person.RelationshipStrength, singleToken)

		candidates = append(candidates, models.ResolutionCandidate{
			Person:         person,
			Score:          score,
			NameSimilarity: raw,
			MatchType:      matchType,
			Confidence:     min(score/100, 1.0),
		})
	}
	return candidates
}

// SortCandidates orders by score, highest first, breaking ties by name then ID.
func SortCandidates(candidates []models.ResolutionCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Person.CanonicalName != b.Person.CanonicalName {
			return a.Person.CanonicalName < b.Person.CanonicalName
		}
		return a.Person.ID < b.Person.ID
	})
}

// nameMatch returns the best raw similarity over the person's names, the best
// structured similarity among names passing the gate, whether that structured
// match compared two last names, and whether any name passed at all.
func (s *Scorer) nameMatch(query names.ParsedName, cleanQuery string, person *models.CanonicalPerson) (float64, float64, bool, bool) {
	var raw, structured float64
	bothLast, eligible := false, false

	for _, variant := range person.NameVariants() {
		candidate := names.ParseName(variant)
		if candidate.IsEmpty() {
			continue
		}
		raw = max(raw, s.similarity(cleanQuery, candidate.Full()))

		sim, ok := structuredSimilarity(query, candidate)
		if !ok {
			continue
		}
		eligible = true
		if sim > structured {
			structured = sim
		}
		if query.HasLast() && candidate.HasLast() {
			bothLast = true
		}
	}
	return raw, structured, bothLast, eligible
}

// structuredSimilarity is the gate: when both names carry a last name the last
// names must be compatible, and the first names must always be compatible.
func structuredSimilarity(query, candidate names.ParsedName) (float64, bool) {
	bothLast := query.HasLast() && candidate.HasLast()
	lastInitial := false
	if bothLast {
		ok, initial := names.LastNamesCompatible(query.Last, candidate.Last)
		if !ok {
			return 0, false
		}
		lastInitial = initial
	}

	first := names.FirstNamesCompatible(query.First, candidate.First, bothLast)
	if first == names.FirstIncompatible {
		return 0, false
	}
	if !bothLast {
		return structuredFirstOnly, true
	}

	switch {
	case first == names.FirstInitial || lastInitial:
		return structuredInitial, true
	case first == names.FirstNickname:
		return structuredNickname, true
	default:
		return structuredExact, true
	}
}

func contextMatches(path string, vaultContexts []string) bool {
	for _, vc := range vaultContexts {
		prefix := names.NormalizeContextPath(vc)
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(path, prefix) || strings.Contains(path, "/"+prefix) {
			return true
		}
	}
	return false
}

func (s *Scorer) isRecent(lastSeen time.Time) bool {
	if lastSeen.IsZero() || s.cfg.RecencyThresholdDays <= 0 {
		return false
	}
	window := time.Duration(s.cfg.RecencyThresholdDays) * 24 * time.Hour
	return s.now().Sub(lastSeen) <= window
}

func (s *Scorer) relationshipBoost(strength int, firstNameOnly bool) float64 {
	if strength <= 0 {
		return 0
	}
	boost := min(float64(strength)*s.cfg.RelationshipWeight, s.cfg.RelationshipCap)
	if firstNameOnly {
		boost *= s.cfg.FirstNameOnlyMultiplier
	}
	return boost
}
