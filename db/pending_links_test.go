// ABOUTME: Tests for the pending link store
// ABOUTME: Covers the one-way status transitions, bulk deletes and statistics totals
package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/kin/models"
)

func addLink(t *testing.T, store *PendingLinkStore, source, proposed, reason string) *models.PendingLink {
	t.Helper()
	link, err := store.Add(context.Background(), &models.PendingLink{
		SourceEntityID:      source,
		ProposedCanonicalID: proposed,
		Reason:              reason,
		Confidence:          0.72,
	})
	require.NoError(t, err)
	return link
}

func TestPendingLinkAddAndGet(t *testing.T) {
	store := NewPendingLinkStore(setupTestDB(t))
	ctx := context.Background()

	link := addLink(t, store, "src-1", "person-1", models.ReasonNameMatch)
	assert.NotEmpty(t, link.ID)
	assert.Equal(t, models.LinkStatusPending, link.Status)

	got, err := store.GetByID(ctx, link.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.72, got.Confidence)
	assert.Nil(t, got.ResolvedAt)

	missing, err := store.GetByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPendingLinkConfirm(t *testing.T) {
	store := NewPendingLinkStore(setupTestDB(t))
	ctx := context.Background()
	link := addLink(t, store, "src-1", "person-1", models.ReasonNameMatch)

	confirmed, err := store.Confirm(ctx, link.ID, models.ResolvedByUser)
	require.NoError(t, err)
	require.NotNil(t, confirmed)
	assert.Equal(t, models.LinkStatusConfirmed, confirmed.Status)
	assert.Equal(t, "user", confirmed.ResolvedBy)
	require.NotNil(t, confirmed.ResolvedAt)

	// A second decision leaves the first in place.
	again, err := store.Reject(ctx, link.ID, models.ResolvedByAuto)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, models.LinkStatusConfirmed, again.Status)
	assert.Equal(t, "user", again.ResolvedBy)
	assert.True(t, again.ResolvedAt.Equal(*confirmed.ResolvedAt))

	none, err := store.Confirm(ctx, "does-not-exist", models.ResolvedByUser)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestPendingLinkRejectDefaultsToUser(t *testing.T) {
	store := NewPendingLinkStore(setupTestDB(t))
	link := addLink(t, store, "src-1", "person-1", models.ReasonNewEntity)

	rejected, err := store.Reject(context.Background(), link.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.LinkStatusRejected, rejected.Status)
	assert.Equal(t, models.ResolvedByUser, rejected.ResolvedBy)
}

func TestPendingLinkQueries(t *testing.T) {
	store := NewPendingLinkStore(setupTestDB(t))
	ctx := context.Background()

	a := addLink(t, store, "src-1", "person-1", models.ReasonNameMatch)
	addLink(t, store, "src-1", "person-2", models.ReasonContextMatch)
	addLink(t, store, "src-2", "person-1", models.ReasonNewEntity)
	_, err := store.Confirm(ctx, a.ID, models.ResolvedByUser)
	require.NoError(t, err)

	pending, err := store.GetPending(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	limited, err := store.GetPending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	forPerson, err := store.GetPendingForPerson(ctx, "person-1")
	require.NoError(t, err)
	assert.Len(t, forPerson, 1)

	forSource, err := store.GetForSourceEntity(ctx, "src-1")
	require.NoError(t, err)
	assert.Len(t, forSource, 2)

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPendingLinkDeletes(t *testing.T) {
	store := NewPendingLinkStore(setupTestDB(t))
	ctx := context.Background()

	a := addLink(t, store, "src-1", "person-1", models.ReasonNameMatch)
	addLink(t, store, "src-2", "person-1", models.ReasonNameMatch)
	addLink(t, store, "src-2", "person-3", models.ReasonNameMatch)

	deleted, err := store.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	n, err := store.DeleteForSourceEntity(ctx, "src-2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.DeleteForSourceEntity(ctx, "src-2")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPendingLinkStatisticsTotals(t *testing.T) {
	store := NewPendingLinkStore(setupTestDB(t))
	ctx := context.Background()

	links := []*models.PendingLink{
		addLink(t, store, "s1", "p1", models.ReasonNameMatch),
		addLink(t, store, "s2", "p1", models.ReasonNameMatch),
		addLink(t, store, "s3", "p2", models.ReasonEmailMatch),
		addLink(t, store, "s4", "p3", models.ReasonNewEntity),
		addLink(t, store, "s5", "p3", models.ReasonContextMatch),
	}
	_, err := store.Confirm(ctx, links[0].ID, models.ResolvedByUser)
	require.NoError(t, err)
	_, err = store.Reject(ctx, links[1].ID, models.ResolvedByUser)
	require.NoError(t, err)
	_, err = store.Reject(ctx, links[3].ID, models.ResolvedByAuto)
	require.NoError(t, err)
	_, err = store.Confirm(ctx, links[3].ID, models.ResolvedByUser)
	require.NoError(t, err)

	stats, err := store.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, stats.Total, stats.PendingCount+stats.ConfirmedCount+stats.RejectedCount)
	assert.Equal(t, 2, stats.PendingCount)
	assert.Equal(t, 1, stats.ConfirmedCount)
	assert.Equal(t, 2, stats.RejectedCount)
	assert.Equal(t, 2, stats.ByReason[models.ReasonNameMatch])
	assert.Equal(t, 1, stats.ByReason[models.ReasonEmailMatch])
}
