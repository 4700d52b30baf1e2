// ABOUTME: MCP server subcommand
// ABOUTME: Serves resolution and link review tools, kin:// resources and prompts on stdio
package cli

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/kin/handlers"
)

// NewMCPServer registers every tool, resource and prompt against app.
func NewMCPServer(app *App) *mcp.Server {
	peopleHandlers := handlers.NewPeopleHandlers(app.Resolver)
	linkHandlers := handlers.NewLinkHandlers(app.Linker)
	queryHandlers := handlers.NewQueryHandlers(app.People)
	resourceHandlers := handlers.NewResourceHandlers(app.People, app.Sources, app.Linker)
	promptHandlers := handlers.NewPromptHandlers(app.People, app.Links, app.Sources)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "kin",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_person",
		Description: "Resolve a name, email or phone to the canonical person it refers to, optionally creating one",
	}, peopleHandlers.ResolvePerson)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_people",
		Description: "Search the person directory by name, alias or email with category, company, source and context filters",
	}, queryHandlers.FindPeople)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "link_observation",
		Description: "Record a sighting of a person from a source and link it, auto-accepting confident matches and queueing the rest for review",
	}, linkHandlers.LinkObservation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_pending_links",
		Description: "List link proposals waiting for human review, oldest first",
	}, linkHandlers.ListPendingLinks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "confirm_link",
		Description: "Confirm a pending link, merging the observation into the proposed person",
	}, linkHandlers.ConfirmLink)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reject_link",
		Description: "Reject a pending link, restoring the observation's previous link",
	}, linkHandlers.RejectLink)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "link_statistics",
		Description: "Count links by status and reason",
	}, linkHandlers.LinkStatistics)

	resourceHandlers.Register(server)
	promptHandlers.Register(server)
	return server
}

// MCPCommand starts the MCP server on stdio
func MCPCommand(app *App) error {
	app.Logger.Info("starting kin MCP server", "version", version)
	return NewMCPServer(app).Run(context.Background(), &mcp.StdioTransport{})
}
