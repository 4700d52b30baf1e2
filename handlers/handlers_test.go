// ABOUTME: Shared fixtures for MCP handler tests
// ABOUTME: Wires the real resolver and linker over in-memory SQLite stores
package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harperreed/kin/db"
	"github.com/harperreed/kin/linking"
	"github.com/harperreed/kin/mappings"
	"github.com/harperreed/kin/models"
	"github.com/harperreed/kin/resolver"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type handlerEnv struct {
	people   *db.PersonStore
	sources  *db.SourceEntityStore
	links    *db.PendingLinkStore
	resolver *resolver.Resolver
	linker   *linking.Linker
}

func setupHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	conn, err := db.OpenDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	env := &handlerEnv{
		people:  db.NewPersonStore(conn),
		sources: db.NewSourceEntityStore(conn),
		links:   db.NewPendingLinkStore(conn),
	}
	overrides := db.NewOverrideStore(conn)
	clock := func() time.Time { return testNow }
	m := mappings.Default()
	env.resolver = resolver.New(env.people, resolver.DefaultConfig(),
		resolver.WithOverrides(overrides),
		resolver.WithNormalizer(m),
		resolver.WithMapper(m),
		resolver.WithClock(clock),
	)
	env.linker = linking.New(env.people, env.resolver, env.links, env.sources, overrides, linking.WithClock(clock))
	return env
}

func (e *handlerEnv) addPerson(t *testing.T, p *models.CanonicalPerson) *models.CanonicalPerson {
	t.Helper()
	if p.Category == "" {
		p.Category = models.CategoryUnknown
	}
	added, err := e.people.Add(context.Background(), p)
	require.NoError(t, err)
	return added
}

// pendingFromNewEmail links an unknown address, which creates a person and
// leaves the link for review.
func (e *handlerEnv) pendingFromNewEmail(t *testing.T, sourceID, email string) *models.PendingLink {
	t.Helper()
	outcome, err := e.linker.Link(context.Background(), linking.Observation{
		SourceType: models.SourceChat,
		SourceID:   sourceID,
		Email:      email,
	})
	require.NoError(t, err)
	require.NotNil(t, outcome.PendingLink)
	return outcome.PendingLink
}
