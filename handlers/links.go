// ABOUTME: Pending-link MCP tool handlers
// ABOUTME: Implements link_observation, list_pending_links, confirm_link, reject_link and link_statistics
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/kin/linking"
	"github.com/harperreed/kin/models"
)

const defaultPendingLimit = 20

// LinkService is the linking workflow the tools drive. *linking.Linker satisfies it.
type LinkService interface {
	Link(ctx context.Context, obs linking.Observation) (*linking.LinkOutcome, error)
	Confirm(ctx context.Context, id, resolvedBy string) (*models.PendingLink, error)
	Reject(ctx context.Context, id, resolvedBy string) (*models.PendingLink, error)
	Pending(ctx context.Context, limit int) ([]*models.PendingLink, error)
	Statistics(ctx context.Context) (*models.LinkStatistics, error)
}

type LinkHandlers struct {
	links LinkService
}

func NewLinkHandlers(links LinkService) *LinkHandlers {
	return &LinkHandlers{links: links}
}

type LinkObservationInput struct {
	SourceType  string `json:"source_type" jsonschema:"Source kind (required), e.g. chat or vault"`
	SourceID    string `json:"source_id" jsonschema:"Stable identifier of the item within its source (required)"`
	Name        string `json:"name,omitempty" jsonschema:"Observed name"`
	Email       string `json:"email,omitempty" jsonschema:"Observed email address"`
	Phone       string `json:"phone,omitempty" jsonschema:"Observed phone number"`
	ContextPath string `json:"context_path,omitempty" jsonschema:"Where the observation came from"`
	ObservedAt  string `json:"observed_at,omitempty" jsonschema:"When it was observed (RFC3339, defaults to now)"`
}

type LinkObservationOutput struct {
	SourceEntityID string              `json:"source_entity_id"`
	LinkStatus     string              `json:"link_status"`
	AutoAccepted   bool                `json:"auto_accepted"`
	Resolution     ResolvePersonOutput `json:"resolution"`
	PendingLink    *PendingLinkOutput  `json:"pending_link,omitempty"`
}

type PendingLinkOutput struct {
	ID                  string  `json:"id"`
	SourceEntityID      string  `json:"source_entity_id"`
	PreviousCanonicalID string  `json:"previous_canonical_id,omitempty"`
	ProposedCanonicalID string  `json:"proposed_canonical_id"`
	Reason              string  `json:"reason"`
	Confidence          float64 `json:"confidence"`
	Status              string  `json:"status"`
	ResolvedAt          *string `json:"resolved_at,omitempty"`
	ResolvedBy          string  `json:"resolved_by,omitempty"`
	CreatedAt           string  `json:"created_at"`
}

func (h *LinkHandlers) LinkObservation(ctx context.Context, request *mcp.CallToolRequest, input LinkObservationInput) (*mcp.CallToolResult, LinkObservationOutput, error) {
	if input.SourceType == "" || input.SourceID == "" {
		return nil, LinkObservationOutput{}, fmt.Errorf("source_type and source_id are required")
	}
	obs := linking.Observation{
		SourceType:  input.SourceType,
		SourceID:    input.SourceID,
		Name:        input.Name,
		Email:       input.Email,
		Phone:       input.Phone,
		ContextPath: input.ContextPath,
	}
	if input.ObservedAt != "" {
		t, err := time.Parse(time.RFC3339, input.ObservedAt)
		if err != nil {
			return nil, LinkObservationOutput{}, fmt.Errorf("invalid observed_at format (use RFC3339): %w", err)
		}
		obs.ObservedAt = t
	}

	outcome, err := h.links.Link(ctx, obs)
	if err != nil {
		return nil, LinkObservationOutput{}, fmt.Errorf("failed to link observation: %w", err)
	}

	out := LinkObservationOutput{
		SourceEntityID: outcome.SourceEntity.ID,
		LinkStatus:     outcome.SourceEntity.LinkStatus,
		AutoAccepted:   outcome.AutoAccepted,
		Resolution:     resultToOutput(outcome.Result),
	}
	if outcome.PendingLink != nil {
		link := linkToOutput(outcome.PendingLink)
		out.PendingLink = &link
	}
	return nil, out, nil
}

type ListPendingLinksInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of links (default 20)"`
}

type ListPendingLinksOutput struct {
	Links []PendingLinkOutput `json:"links"`
	Count int                 `json:"count"`
}

func (h *LinkHandlers) ListPendingLinks(ctx context.Context, request *mcp.CallToolRequest, input ListPendingLinksInput) (*mcp.CallToolResult, ListPendingLinksOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	links, err := h.links.Pending(ctx, limit)
	if err != nil {
		return nil, ListPendingLinksOutput{}, fmt.Errorf("failed to list pending links: %w", err)
	}

	out := ListPendingLinksOutput{Links: make([]PendingLinkOutput, len(links)), Count: len(links)}
	for i, link := range links {
		out.Links[i] = linkToOutput(link)
	}
	return nil, out, nil
}

type ResolveLinkInput struct {
	ID string `json:"id" jsonschema:"Pending link ID (required)"`
}

func (h *LinkHandlers) ConfirmLink(ctx context.Context, request *mcp.CallToolRequest, input ResolveLinkInput) (*mcp.CallToolResult, PendingLinkOutput, error) {
	return h.resolveLink(ctx, input, h.links.Confirm)
}

func (h *LinkHandlers) RejectLink(ctx context.Context, request *mcp.CallToolRequest, input ResolveLinkInput) (*mcp.CallToolResult, PendingLinkOutput, error) {
	return h.resolveLink(ctx, input, h.links.Reject)
}

func (h *LinkHandlers) resolveLink(ctx context.Context, input ResolveLinkInput, decide func(context.Context, string, string) (*models.PendingLink, error)) (*mcp.CallToolResult, PendingLinkOutput, error) {
	if input.ID == "" {
		return nil, PendingLinkOutput{}, fmt.Errorf("id is required")
	}
	link, err := decide(ctx, input.ID, models.ResolvedByUser)
	if err != nil {
		return nil, PendingLinkOutput{}, fmt.Errorf("failed to resolve link: %w", err)
	}
	if link == nil {
		return nil, PendingLinkOutput{}, fmt.Errorf("pending link not found: %s", input.ID)
	}
	return nil, linkToOutput(link), nil
}

type LinkStatisticsInput struct{}

func (h *LinkHandlers) LinkStatistics(ctx context.Context, request *mcp.CallToolRequest, input LinkStatisticsInput) (*mcp.CallToolResult, models.LinkStatistics, error) {
	stats, err := h.links.Statistics(ctx)
	if err != nil {
		return nil, models.LinkStatistics{}, fmt.Errorf("failed to get link statistics: %w", err)
	}
	if stats.ByReason == nil {
		stats.ByReason = map[string]int{}
	}
	return nil, *stats, nil
}

func linkToOutput(link *models.PendingLink) PendingLinkOutput {
	out := PendingLinkOutput{
		ID:                  link.ID,
		SourceEntityID:      link.SourceEntityID,
		PreviousCanonicalID: link.PreviousCanonicalID,
		ProposedCanonicalID: link.ProposedCanonicalID,
		Reason:              link.Reason,
		Confidence:          link.Confidence,
		Status:              link.Status,
		ResolvedBy:          link.ResolvedBy,
		CreatedAt:           link.CreatedAt.Format(time.RFC3339),
	}
	if link.ResolvedAt != nil {
		s := link.ResolvedAt.Format(time.RFC3339)
		out.ResolvedAt = &s
	}
	return out
}
