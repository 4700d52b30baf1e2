// ABOUTME: Tests for candidate scoring
// ABOUTME: Covers the structured name gate, boosts and candidate ordering
package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/kin/models"
)

var fixedNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestScorer() *Scorer {
	return NewScorer(DefaultConfig(), nil, func() time.Time { return fixedNow })
}

func TestScoreCandidatesGate(t *testing.T) {
	people := []*models.CanonicalPerson{
		{ID: "1", CanonicalName: "Taylor Walker"},
		{ID: "2", CanonicalName: "Mary Katherine Palmer"},
		{ID: "3", CanonicalName: "Benjamin Smith"},
		{ID: "4", CanonicalName: "Sam Smith"},
	}

	tests := []struct {
		name      string
		query     string
		wantIDs   []string
		wantScore float64
	}{
		{name: "different last names never match", query: "Mary Walker", wantIDs: nil},
		{name: "full name", query: "Mary Katherine Palmer", wantIDs: []string{"2"}, wantScore: 100},
		{name: "nickname", query: "Ben Smith", wantIDs: []string{"3"}, wantScore: 90},
		{name: "suffix stripped", query: "Taylor Walker MD", wantIDs: []string{"1"}, wantScore: 100},
		{name: "initial last name", query: "Taylor W", wantIDs: []string{"1"}, wantScore: 85},
		{name: "unrelated first name", query: "Zed Smith", wantIDs: nil},
	}

	scorer := newTestScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := scorer.ScoreCandidates(tt.query, "", people)
			var ids []string
			for _, c := range candidates {
				ids = append(ids, c.Person.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			if len(candidates) == 1 {
				assert.InDelta(t, tt.wantScore, candidates[0].Score, 0.001)
				assert.Equal(t, models.MatchFuzzy, candidates[0].MatchType)
			}
		})
	}
}

func TestScoreCandidatesContextBoost(t *testing.T) {
	people := []*models.CanonicalPerson{
		{ID: "work", CanonicalName: "Sarah", VaultContexts: []string{"Work/ML/"}},
		{ID: "murm", CanonicalName: "Sarah", VaultContexts: []string{"Personal/zArchive/Murm/"}},
	}

	candidates := newTestScorer().ScoreCandidates("Sarah", "Work/ML/standup.md", people)
	require.Len(t, candidates, 2)
	SortCandidates(candidates)

	assert.Equal(t, "work", candidates[0].Person.ID)
	assert.Equal(t, models.MatchContext, candidates[0].MatchType)
	assert.InDelta(t, 130, candidates[0].Score, 0.001)
	assert.Equal(t, 1.0, candidates[0].Confidence)
	assert.Equal(t, models.MatchFuzzy, candidates[1].MatchType)
}

func TestScoreCandidatesRecencyAndRelationship(t *testing.T) {
	people := []*models.CanonicalPerson{
		{ID: "1", CanonicalName: "Sarah Chen", LastSeen: fixedNow.Add(-48 * time.Hour), RelationshipStrength: 50},
	}
	scorer := newTestScorer()

	full := scorer.ScoreCandidates("Sarah Chen", "", people)
	require.Len(t, full, 1)
	// 100 name, 10 recency, 5 relationship
	assert.InDelta(t, 115, full[0].Score, 0.001)

	people[0].LastSeen = fixedNow.AddDate(0, -3, 0)
	firstOnly := scorer.ScoreCandidates("Sarah", "", people)
	require.Len(t, firstOnly, 1)
	// bare first names double the relationship boost
	assert.InDelta(t, 110, firstOnly[0].Score, 0.001)
}

func TestRelationshipBoostCap(t *testing.T) {
	scorer := newTestScorer()
	assert.Equal(t, 0.0, scorer.relationshipBoost(0, true))
	assert.InDelta(t, 10, scorer.relationshipBoost(100, false), 0.001)
	assert.InDelta(t, 20, scorer.relationshipBoost(100, true), 0.001)
}

func TestSortCandidatesTies(t *testing.T) {
	candidates := []models.ResolutionCandidate{
		{Person: &models.CanonicalPerson{ID: "b", CanonicalName: "Sarah"}, Score: 90},
		{Person: &models.CanonicalPerson{ID: "a", CanonicalName: "Sarah"}, Score: 90},
		{Person: &models.CanonicalPerson{ID: "c", CanonicalName: "Alex"}, Score: 90},
		{Person: &models.CanonicalPerson{ID: "d", CanonicalName: "Zoe"}, Score: 95},
	}
	SortCandidates(candidates)

	var ids []string
	for _, c := range candidates {
		ids = append(ids, c.Person.ID)
	}
	assert.Equal(t, []string{"d", "c", "a", "b"}, ids)
}

func TestScoreCandidatesCustomSimilarity(t *testing.T) {
	zero := func(a, b string) float64 { return 0 }
	scorer := NewScorer(DefaultConfig(), zero, func() time.Time { return fixedNow })

	people := []*models.CanonicalPerson{{ID: "1", CanonicalName: "Yoni Landau"}}

	// Two last names passing the gate are emitted even with no raw similarity.
	candidates := scorer.ScoreCandidates("Yoni Landau", "", people)
	require.Len(t, candidates, 1)
	assert.Equal(t, 0.0, candidates[0].NameSimilarity)
	assert.InDelta(t, 100, candidates[0].Score, 0.001)

	assert.Empty(t, scorer.ScoreCandidates("Yoni", "", people))
}
