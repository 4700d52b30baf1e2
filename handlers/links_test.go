// ABOUTME: Tests for the pending-link MCP tools
// ABOUTME: Drives link_observation through confirm and reject against the real linker
package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/kin/models"
)

func TestLinkObservationAutoAcceptsEmailMatch(t *testing.T) {
	env := setupHandlerEnv(t)
	existing := env.addPerson(t, &models.CanonicalPerson{
		CanonicalName: "Noor Haddad",
		Emails:        []string{"noor@haddad.example"},
	})
	h := NewLinkHandlers(env.linker)

	_, out, err := h.LinkObservation(context.Background(), nil, LinkObservationInput{
		SourceType: models.SourceChat,
		SourceID:   "thread-9",
		Name:       "Noor",
		Email:      "noor@haddad.example",
		ObservedAt: "2026-03-01T08:30:00Z",
	})
	require.NoError(t, err)
	assert.True(t, out.AutoAccepted)
	assert.Equal(t, models.LinkStatusConfirmed, out.LinkStatus)
	assert.Nil(t, out.PendingLink)
	require.NotNil(t, out.Resolution.Person)
	assert.Equal(t, existing.ID, out.Resolution.Person.ID)

	entity, err := env.sources.GetByID(context.Background(), out.SourceEntityID)
	require.NoError(t, err)
	assert.True(t, entity.ObservedAt.Equal(time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)))
}

func TestLinkObservationValidation(t *testing.T) {
	env := setupHandlerEnv(t)
	h := NewLinkHandlers(env.linker)
	ctx := context.Background()

	_, _, err := h.LinkObservation(ctx, nil, LinkObservationInput{SourceType: models.SourceChat, Name: "X"})
	assert.Error(t, err)

	_, _, err = h.LinkObservation(ctx, nil, LinkObservationInput{
		SourceType: models.SourceChat,
		SourceID:   "a",
		Name:       "X",
		ObservedAt: "last tuesday",
	})
	assert.ErrorContains(t, err, "invalid observed_at")
}

func TestPendingLinkReviewFlow(t *testing.T) {
	env := setupHandlerEnv(t)
	h := NewLinkHandlers(env.linker)
	ctx := context.Background()

	_, created, err := h.LinkObservation(ctx, nil, LinkObservationInput{
		SourceType: models.SourceChat,
		SourceID:   "msg-1",
		Email:      "jo@fresh.example",
	})
	require.NoError(t, err)
	require.NotNil(t, created.PendingLink)
	assert.False(t, created.AutoAccepted)
	assert.True(t, created.Resolution.IsNew)
	assert.Equal(t, models.LinkStatusPending, created.LinkStatus)

	second := env.pendingFromNewEmail(t, "msg-2", "lee@fresh.example")

	_, list, err := h.ListPendingLinks(ctx, nil, ListPendingLinksInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)

	_, confirmed, err := h.ConfirmLink(ctx, nil, ResolveLinkInput{ID: created.PendingLink.ID})
	require.NoError(t, err)
	assert.Equal(t, models.LinkStatusConfirmed, confirmed.Status)
	assert.Equal(t, models.ResolvedByUser, confirmed.ResolvedBy)
	assert.NotNil(t, confirmed.ResolvedAt)

	_, rejected, err := h.RejectLink(ctx, nil, ResolveLinkInput{ID: second.ID})
	require.NoError(t, err)
	assert.Equal(t, models.LinkStatusRejected, rejected.Status)

	_, list, err = h.ListPendingLinks(ctx, nil, ListPendingLinksInput{Limit: 5})
	require.NoError(t, err)
	assert.Zero(t, list.Count)
	assert.NotNil(t, list.Links)

	_, stats, err := h.LinkStatistics(ctx, nil, LinkStatisticsInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ConfirmedCount)
	assert.Equal(t, 1, stats.RejectedCount)
	assert.Zero(t, stats.PendingCount)
}

func TestResolveLinkErrors(t *testing.T) {
	env := setupHandlerEnv(t)
	h := NewLinkHandlers(env.linker)
	ctx := context.Background()

	_, _, err := h.ConfirmLink(ctx, nil, ResolveLinkInput{})
	assert.ErrorContains(t, err, "id is required")

	_, _, err = h.RejectLink(ctx, nil, ResolveLinkInput{ID: "missing"})
	assert.ErrorContains(t, err, "pending link not found")
}

func TestLinkStatisticsEmpty(t *testing.T) {
	env := setupHandlerEnv(t)
	h := NewLinkHandlers(env.linker)

	_, stats, err := h.LinkStatistics(context.Background(), nil, LinkStatisticsInput{})
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.NotNil(t, stats.ByReason)
}
