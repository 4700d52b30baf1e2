// ABOUTME: Person resolution MCP tool handlers
// ABOUTME: Implements resolve_person and the JSON shape people are returned in
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/kin/models"
	"github.com/harperreed/kin/resolver"
)

// PersonResolver is the resolution entry point the tools call.
type PersonResolver interface {
	Resolve(ctx context.Context, q resolver.Query) (*models.ResolutionResult, error)
}

type PeopleHandlers struct {
	resolver PersonResolver
}

func NewPeopleHandlers(res PersonResolver) *PeopleHandlers {
	return &PeopleHandlers{resolver: res}
}

type ResolvePersonInput struct {
	Name            string `json:"name,omitempty" jsonschema:"Name as written in the source"`
	Email           string `json:"email,omitempty" jsonschema:"Email address, the strongest identifier"`
	Phone           string `json:"phone,omitempty" jsonschema:"Phone number in any common format"`
	ContextPath     string `json:"context_path,omitempty" jsonschema:"Where the mention came from, e.g. work/acme/meetings/standup.md"`
	SourceType      string `json:"source_type,omitempty" jsonschema:"Source kind (linkedin, gmail, calendar, chat, vault, manual)"`
	CreateIfMissing bool   `json:"create_if_missing,omitempty" jsonschema:"Create a new person when nothing matches"`
}

type PersonOutput struct {
	ID                   string   `json:"id"`
	CanonicalName        string   `json:"canonical_name"`
	DisplayName          string   `json:"display_name,omitempty"`
	Emails               []string `json:"emails,omitempty"`
	Phones               []string `json:"phones,omitempty"`
	Aliases              []string `json:"aliases,omitempty"`
	VaultContexts        []string `json:"vault_contexts,omitempty"`
	Category             string   `json:"category"`
	Company              string   `json:"company,omitempty"`
	Position             string   `json:"position,omitempty"`
	LinkedInURL          string   `json:"linkedin_url,omitempty"`
	RelationshipStrength int      `json:"relationship_strength"`
	Sources              []string `json:"sources,omitempty"`
	LastSeen             *string  `json:"last_seen,omitempty"`
	CreatedAt            string   `json:"created_at"`
}

type ResolvePersonOutput struct {
	Found                 bool          `json:"found"`
	Person                *PersonOutput `json:"person,omitempty"`
	IsNew                 bool          `json:"is_new"`
	Confidence            float64       `json:"confidence"`
	MatchType             string        `json:"match_type,omitempty"`
	DisambiguationApplied bool          `json:"disambiguation_applied"`
}

func (h *PeopleHandlers) ResolvePerson(ctx context.Context, request *mcp.CallToolRequest, input ResolvePersonInput) (*mcp.CallToolResult, ResolvePersonOutput, error) {
	if strings.TrimSpace(input.Name) == "" && strings.TrimSpace(input.Email) == "" && strings.TrimSpace(input.Phone) == "" {
		return nil, ResolvePersonOutput{}, fmt.Errorf("one of name, email or phone is required")
	}

	result, err := h.resolver.Resolve(ctx, resolver.Query{
		Name:            input.Name,
		Email:           input.Email,
		Phone:           input.Phone,
		ContextPath:     input.ContextPath,
		SourceType:      input.SourceType,
		CreateIfMissing: input.CreateIfMissing,
	})
	if err != nil {
		return nil, ResolvePersonOutput{}, fmt.Errorf("failed to resolve person: %w", err)
	}
	return nil, resultToOutput(result), nil
}

func resultToOutput(result *models.ResolutionResult) ResolvePersonOutput {
	if result == nil || result.Person == nil {
		return ResolvePersonOutput{}
	}
	person := personToOutput(result.Person)
	return ResolvePersonOutput{
		Found:                 true,
		Person:                &person,
		IsNew:                 result.IsNew,
		Confidence:            result.Confidence,
		MatchType:             string(result.MatchType),
		DisambiguationApplied: result.DisambiguationApplied,
	}
}

func personToOutput(p *models.CanonicalPerson) PersonOutput {
	out := PersonOutput{
		ID:                   p.ID,
		CanonicalName:        p.CanonicalName,
		DisplayName:          p.DisplayName,
		Emails:               p.Emails,
		Phones:               p.Phones,
		Aliases:              p.Aliases,
		VaultContexts:        p.VaultContexts,
		Category:             p.Category,
		Company:              p.Company,
		Position:             p.Position,
		LinkedInURL:          p.LinkedInURL,
		RelationshipStrength: p.RelationshipStrength,
		Sources:              p.Sources,
		CreatedAt:            p.CreatedAt.Format(time.RFC3339),
	}
	if !p.LastSeen.IsZero() {
		s := p.LastSeen.Format(time.RFC3339)
		out.LastSeen = &s
	}
	return out
}
