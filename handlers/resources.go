// ABOUTME: MCP resource handlers for exposing the person directory
// ABOUTME: Serves kin://people, kin://people/{id} and kin://pending as read-only JSON
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/kin/models"
)

const resourceScheme = "kin://"

// SourceLister returns the observations linked to a person.
type SourceLister interface {
	ListForPerson(ctx context.Context, personID string) ([]*models.SourceEntity, error)
}

// PendingLister returns unresolved link proposals.
type PendingLister interface {
	Pending(ctx context.Context, limit int) ([]*models.PendingLink, error)
}

type ResourceHandlers struct {
	people  PeopleLister
	sources SourceLister
	pending PendingLister
}

func NewResourceHandlers(people PeopleLister, sources SourceLister, pending PendingLister) *ResourceHandlers {
	return &ResourceHandlers{people: people, sources: sources, pending: pending}
}

// Register adds the static resources and the per-person template to server.
func (h *ResourceHandlers) Register(server *mcp.Server) {
	server.AddResource(&mcp.Resource{
		URI:         resourceScheme + "people",
		Name:        "people",
		Description: "Every canonical person in the directory",
		MIMEType:    "application/json",
	}, h.ReadResource)
	server.AddResource(&mcp.Resource{
		URI:         resourceScheme + "pending",
		Name:        "pending",
		Description: "Link proposals waiting for review",
		MIMEType:    "application/json",
	}, h.ReadResource)
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: resourceScheme + "people/{id}",
		Name:        "person",
		Description: "One person with the observations linked to them",
		MIMEType:    "application/json",
	}, h.ReadResource)
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, resourceScheme), "/")
	switch parts[0] {
	case "people":
		if len(parts) == 1 || parts[1] == "" {
			return h.readAllPeople(ctx, uri)
		}
		return h.readPerson(ctx, uri, parts[1])
	case "pending":
		return h.readPending(ctx, uri)
	default:
		return nil, mcp.ResourceNotFoundError(uri)
	}
}

func (h *ResourceHandlers) readAllPeople(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	people, err := h.people.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch people: %w", err)
	}
	out := make([]PersonOutput, len(people))
	for i, p := range people {
		out[i] = personToOutput(p)
	}
	return jsonResource(uri, out)
}

func (h *ResourceHandlers) readPerson(ctx context.Context, uri, id string) (*mcp.ReadResourceResult, error) {
	person, err := h.people.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch person: %w", err)
	}
	if person == nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	sources, err := h.sources.ListForPerson(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch person sources: %w", err)
	}

	personData := struct {
		PersonOutput
		Observations []*models.SourceEntity `json:"observations"`
	}{
		PersonOutput: personToOutput(person),
		Observations: sources,
	}
	return jsonResource(uri, personData)
}

func (h *ResourceHandlers) readPending(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	links, err := h.pending.Pending(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending links: %w", err)
	}
	out := make([]PendingLinkOutput, len(links))
	for i, link := range links {
		out[i] = linkToOutput(link)
	}
	return jsonResource(uri, out)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
