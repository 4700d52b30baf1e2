// ABOUTME: Directory query tool handler
// ABOUTME: Implements find_people with name, email and attribute filters over canonical people
package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/kin/models"
	"github.com/harperreed/kin/names"
)

const (
	defaultQueryLimit = 10
	queryNameFloor    = 60.0
)

// PeopleLister is the read side of the person directory.
type PeopleLister interface {
	GetByID(ctx context.Context, id string) (*models.CanonicalPerson, error)
	GetAll(ctx context.Context) ([]*models.CanonicalPerson, error)
}

type QueryHandlers struct {
	people PeopleLister
}

func NewQueryHandlers(people PeopleLister) *QueryHandlers {
	return &QueryHandlers{people: people}
}

type FindPeopleInput struct {
	Query   string            `json:"query,omitempty" jsonschema:"Name, alias or email fragment to search for"`
	Filters map[string]string `json:"filters,omitempty" jsonschema:"Exact filters: category, company, source, context_prefix"`
	Limit   int               `json:"limit,omitempty" jsonschema:"Maximum results to return (default 10)"`
}

type FindPeopleOutput struct {
	Results []PersonOutput `json:"results"`
	Count   int            `json:"count"`
}

var validFilters = map[string]bool{
	"category":       true,
	"company":        true,
	"source":         true,
	"context_prefix": true,
}

func (h *QueryHandlers) FindPeople(ctx context.Context, req *mcp.CallToolRequest, input FindPeopleInput) (*mcp.CallToolResult, FindPeopleOutput, error) {
	if input.Limit <= 0 {
		input.Limit = defaultQueryLimit
	}
	for key := range input.Filters {
		if !validFilters[key] {
			return nil, FindPeopleOutput{}, fmt.Errorf("invalid filter: %s (valid: category, company, source, context_prefix)", key)
		}
	}

	people, err := h.people.GetAll(ctx)
	if err != nil {
		return nil, FindPeopleOutput{}, fmt.Errorf("failed to list people: %w", err)
	}

	type hit struct {
		person *models.CanonicalPerson
		score  float64
	}
	var hits []hit
	for _, p := range people {
		if !matchesFilters(p, input.Filters) {
			continue
		}
		score := queryScore(p, input.Query)
		if score <= 0 {
			continue
		}
		hits = append(hits, hit{p, score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].person.CanonicalName < hits[j].person.CanonicalName
	})
	if len(hits) > input.Limit {
		hits = hits[:input.Limit]
	}

	out := FindPeopleOutput{Results: make([]PersonOutput, len(hits)), Count: len(hits)}
	for i, h := range hits {
		out.Results[i] = personToOutput(h.person)
	}
	return nil, out, nil
}

// queryScore ranks a person against a free-text query. Email and substring
// hits outrank fuzzy name similarity; an empty query matches everyone.
func queryScore(p *models.CanonicalPerson, query string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 1
	}
	if strings.Contains(q, "@") {
		for _, email := range p.Emails {
			if strings.Contains(email, q) {
				return 200
			}
		}
		return 0
	}

	best := 0.0
	for _, variant := range p.NameVariants() {
		if strings.Contains(strings.ToLower(variant), q) {
			return 150
		}
		if s := names.TokenSetRatio(variant, query); s > best {
			best = s
		}
	}
	if best < queryNameFloor {
		return 0
	}
	return best
}

func matchesFilters(p *models.CanonicalPerson, filters map[string]string) bool {
	for key, want := range filters {
		if want == "" {
			continue
		}
		switch key {
		case "category":
			if !strings.EqualFold(p.Category, want) {
				return false
			}
		case "company":
			if !strings.EqualFold(p.Company, want) {
				return false
			}
		case "source":
			if !containsFold(p.Sources, want) {
				return false
			}
		case "context_prefix":
			prefix := names.NormalizeContextPath(want)
			found := false
			for _, vc := range p.VaultContexts {
				if strings.HasPrefix(vc, prefix) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func containsFold(list []string, want string) bool {
	for _, v := range list {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
