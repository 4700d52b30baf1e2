// ABOUTME: Tests for the resolve_person tool
// ABOUTME: Covers exact anchors, creation and the empty-query error
package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/kin/models"
)

func TestResolvePersonByEmail(t *testing.T) {
	env := setupHandlerEnv(t)
	existing := env.addPerson(t, &models.CanonicalPerson{
		CanonicalName: "Maya Lin",
		Emails:        []string{"maya@studio.example"},
		Category:      models.CategoryWork,
	})
	h := NewPeopleHandlers(env.resolver)

	_, out, err := h.ResolvePerson(context.Background(), nil, ResolvePersonInput{Email: "Maya@Studio.example"})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.False(t, out.IsNew)
	assert.Equal(t, "email_exact", out.MatchType)
	assert.Equal(t, 1.0, out.Confidence)
	require.NotNil(t, out.Person)
	assert.Equal(t, existing.ID, out.Person.ID)
	assert.Equal(t, "work", out.Person.Category)
}

func TestResolvePersonNotFound(t *testing.T) {
	env := setupHandlerEnv(t)
	h := NewPeopleHandlers(env.resolver)

	_, out, err := h.ResolvePerson(context.Background(), nil, ResolvePersonInput{Email: "nobody@nowhere.example"})
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Nil(t, out.Person)

	count, err := env.people.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestResolvePersonCreates(t *testing.T) {
	env := setupHandlerEnv(t)
	h := NewPeopleHandlers(env.resolver)

	_, out, err := h.ResolvePerson(context.Background(), nil, ResolvePersonInput{
		Email:           "sam.ortiz@gmail.com",
		CreateIfMissing: true,
	})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.True(t, out.IsNew)
	assert.Equal(t, "email_new", out.MatchType)
	require.NotNil(t, out.Person)
	assert.Equal(t, []string{"sam.ortiz@gmail.com"}, out.Person.Emails)
	assert.NotEmpty(t, out.Person.CreatedAt)
}

func TestResolvePersonRequiresIdentifier(t *testing.T) {
	env := setupHandlerEnv(t)
	h := NewPeopleHandlers(env.resolver)

	_, _, err := h.ResolvePerson(context.Background(), nil, ResolvePersonInput{ContextPath: "work/acme"})
	assert.Error(t, err)
}

func TestPersonToOutputLastSeen(t *testing.T) {
	p := &models.CanonicalPerson{ID: "p1", CanonicalName: "A B", CreatedAt: testNow}
	assert.Nil(t, personToOutput(p).LastSeen)

	p.LastSeen = testNow
	out := personToOutput(p)
	require.NotNil(t, out.LastSeen)
	assert.Equal(t, "2026-03-10T12:00:00Z", *out.LastSeen)
}
