// ABOUTME: MCP prompt handlers for review and summary workflows
// ABOUTME: Builds review-pending-link and person-summary prompts from stored data
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/kin/models"
)

// LinkLookup fetches one pending link.
type LinkLookup interface {
	GetByID(ctx context.Context, id string) (*models.PendingLink, error)
}

// SourceLookup fetches observations by ID or by person.
type SourceLookup interface {
	GetByID(ctx context.Context, id string) (*models.SourceEntity, error)
	ListForPerson(ctx context.Context, personID string) ([]*models.SourceEntity, error)
}

type PromptHandlers struct {
	people  PeopleLister
	links   LinkLookup
	sources SourceLookup
}

func NewPromptHandlers(people PeopleLister, links LinkLookup, sources SourceLookup) *PromptHandlers {
	return &PromptHandlers{people: people, links: links, sources: sources}
}

// Register adds every prompt to server.
func (h *PromptHandlers) Register(server *mcp.Server) {
	server.AddPrompt(&mcp.Prompt{
		Name:        "review-pending-link",
		Description: "Decide whether an observation belongs to the proposed person",
		Arguments: []*mcp.PromptArgument{
			{Name: "link_id", Description: "Pending link ID", Required: true},
		},
	}, h.GetPrompt)
	server.AddPrompt(&mcp.Prompt{
		Name:        "person-summary",
		Description: "Summarize everything known about one person",
		Arguments: []*mcp.PromptArgument{
			{Name: "person_id", Description: "Canonical person ID", Required: true},
		},
	}, h.GetPrompt)
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	arguments := request.Params.Arguments
	switch name {
	case "review-pending-link":
		return h.getReviewPrompt(ctx, arguments)
	case "person-summary":
		return h.getPersonSummaryPrompt(ctx, arguments)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", name)
	}
}

func (h *PromptHandlers) getReviewPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	linkID := args["link_id"]
	if linkID == "" {
		return nil, fmt.Errorf("link_id is required")
	}
	link, err := h.links.GetByID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending link: %w", err)
	}
	if link == nil {
		return nil, fmt.Errorf("pending link not found: %s", linkID)
	}
	entity, err := h.sources.GetByID(ctx, link.SourceEntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source entity: %w", err)
	}
	proposed, err := h.people.GetByID(ctx, link.ProposedCanonicalID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch proposed person: %w", err)
	}

	var b strings.Builder
	b.WriteString("An observation was tentatively linked to an existing person. Decide whether it is the same human.\n\n")
	fmt.Fprintf(&b, "Reason: %s (confidence %.2f)\n\n", link.Reason, link.Confidence)
	if entity != nil {
		b.WriteString("Observation:\n")
		fmt.Fprintf(&b, "- Source: %s (%s)\n", entity.SourceType, entity.SourceID)
		writeField(&b, "Name", entity.ObservedName)
		writeField(&b, "Email", entity.ObservedEmail)
		writeField(&b, "Phone", entity.ObservedPhone)
		writeField(&b, "Context", entity.ContextPath)
		b.WriteString("\n")
	}
	if proposed != nil {
		b.WriteString("Proposed person:\n")
		writePerson(&b, proposed)
		b.WriteString("\n")
	}
	if link.PreviousCanonicalID != "" && link.PreviousCanonicalID != link.ProposedCanonicalID {
		previous, err := h.people.GetByID(ctx, link.PreviousCanonicalID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch previous person: %w", err)
		}
		if previous != nil {
			b.WriteString("Previously linked to:\n")
			writePerson(&b, previous)
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "Answer with confirm_link or reject_link for id %s, and say which details decided it.\n", link.ID)

	return &mcp.GetPromptResult{
		Description: "Review of pending link " + link.ID,
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: b.String()}},
		},
	}, nil
}

func (h *PromptHandlers) getPersonSummaryPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	personID := args["person_id"]
	if personID == "" {
		return nil, fmt.Errorf("person_id is required")
	}
	person, err := h.people.GetByID(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch person: %w", err)
	}
	if person == nil {
		return nil, fmt.Errorf("person not found: %s", personID)
	}
	observations, err := h.sources.ListForPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch observations: %w", err)
	}

	var b strings.Builder
	b.WriteString("Please summarize who this person is and how I know them:\n\n")
	writePerson(&b, person)
	if len(observations) > 0 {
		fmt.Fprintf(&b, "\nRecent observations (%d):\n", len(observations))
		for i, o := range observations {
			if i == 10 {
				break
			}
			fmt.Fprintf(&b, "- %s %s", o.ObservedAt.Format("2006-01-02"), o.SourceType)
			if o.ContextPath != "" {
				fmt.Fprintf(&b, " in %s", o.ContextPath)
			}
			b.WriteString("\n")
		}
	}

	return &mcp.GetPromptResult{
		Description: "Summary of " + person.Name(),
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: b.String()}},
		},
	}, nil
}

func writePerson(b *strings.Builder, p *models.CanonicalPerson) {
	fmt.Fprintf(b, "- Name: %s (id %s)\n", p.Name(), p.ID)
	writeField(b, "Aliases", strings.Join(p.Aliases, ", "))
	writeField(b, "Emails", strings.Join(p.Emails, ", "))
	writeField(b, "Phones", strings.Join(p.Phones, ", "))
	writeField(b, "Category", p.Category)
	writeField(b, "Company", p.Company)
	writeField(b, "Position", p.Position)
	writeField(b, "Contexts", strings.Join(p.VaultContexts, ", "))
	writeField(b, "Sources", strings.Join(p.Sources, ", "))
	if !p.LastSeen.IsZero() {
		writeField(b, "Last seen", p.LastSeen.Format("2006-01-02"))
	}
}

func writeField(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "- %s: %s\n", label, value)
	}
}
