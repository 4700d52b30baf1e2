// ABOUTME: Tests for the kin:// MCP resources
// ABOUTME: Reads people, one person with observations, and the pending queue
package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/kin/models"
)

func readResource(t *testing.T, h *ResourceHandlers, uri string) (*mcp.ReadResourceResult, error) {
	t.Helper()
	return h.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
}

func TestReadPeopleResource(t *testing.T) {
	env := setupHandlerEnv(t)
	seedDirectory(t, env)
	h := NewResourceHandlers(env.people, env.sources, env.linker)

	result, err := readResource(t, h, "kin://people")
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)

	var people []PersonOutput
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &people))
	assert.Len(t, people, 3)
}

func TestReadPersonResource(t *testing.T) {
	env := setupHandlerEnv(t)
	link := env.pendingFromNewEmail(t, "msg-1", "quinn@fresh.example")
	h := NewResourceHandlers(env.people, env.sources, env.linker)

	uri := "kin://people/" + link.ProposedCanonicalID
	result, err := readResource(t, h, uri)
	require.NoError(t, err)
	assert.Equal(t, uri, result.Contents[0].URI)

	var person struct {
		ID           string                 `json:"id"`
		Emails       []string               `json:"emails"`
		Observations []*models.SourceEntity `json:"observations"`
	}
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &person))
	assert.Equal(t, link.ProposedCanonicalID, person.ID)
	assert.Equal(t, []string{"quinn@fresh.example"}, person.Emails)
	require.Len(t, person.Observations, 1)
	assert.Equal(t, "msg-1", person.Observations[0].SourceID)
}

func TestReadPendingResource(t *testing.T) {
	env := setupHandlerEnv(t)
	link := env.pendingFromNewEmail(t, "msg-1", "quinn@fresh.example")
	h := NewResourceHandlers(env.people, env.sources, env.linker)

	result, err := readResource(t, h, "kin://pending")
	require.NoError(t, err)

	var links []PendingLinkOutput
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &links))
	require.Len(t, links, 1)
	assert.Equal(t, link.ID, links[0].ID)
}

func TestReadResourceErrors(t *testing.T) {
	env := setupHandlerEnv(t)
	h := NewResourceHandlers(env.people, env.sources, env.linker)

	_, err := readResource(t, h, "https://example.com/people")
	assert.ErrorContains(t, err, "invalid URI scheme")

	_, err = readResource(t, h, "kin://deals")
	assert.Error(t, err)

	_, err = readResource(t, h, "kin://people/does-not-exist")
	assert.Error(t, err)
}
