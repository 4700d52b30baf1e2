// ABOUTME: Tests for LinkedIn export parsing and connection import
// ABOUTME: Uses a Connections.csv fixture with the notes preamble LinkedIn writes
package sync

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/kin/models"
)

const connectionsCSV = "\ufeffNotes:\n" +
	"\"When exporting your connection data, you may notice that some of the email addresses are missing.\"\n" +
	"\n" +
	"First Name,Last Name,URL,Email Address,Company,Position,Connected On\n" +
	"Dana,Reyes,https://www.linkedin.com/in/danareyes,dana@reyes.example,Reyes Labs,Founder,03 Feb 2025\n" +
	"Eli,Park,https://www.linkedin.com/in/elipark,,\"Park, Wu & Co\",Partner,15 Jan 2024\n" +
	",,,,,,\n"

func TestParseLinkedInCSV(t *testing.T) {
	conns, err := ParseLinkedInCSV(strings.NewReader(connectionsCSV))
	require.NoError(t, err)
	require.Len(t, conns, 3)

	dana := conns[0]
	assert.Equal(t, "Dana Reyes", dana.Profile.FullName())
	assert.Equal(t, "dana@reyes.example", dana.Profile.Email)
	assert.Equal(t, "Founder", dana.Profile.Position)
	assert.True(t, dana.ConnectedOn.Equal(time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "https://www.linkedin.com/in/danareyes", dana.SourceID())

	assert.Equal(t, "Park, Wu & Co", conns[1].Profile.Company)
	assert.Empty(t, conns[2].SourceID())
}

func TestParseLinkedInCSVWithoutHeader(t *testing.T) {
	_, err := ParseLinkedInCSV(strings.NewReader("name,email\nx,y\n"))
	assert.ErrorIs(t, err, ErrNoConnectionsHeader)
}

func TestLinkedInImport(t *testing.T) {
	env := setupImportEnv(t)
	ctx := context.Background()
	existing := env.addPerson(t, "Dana Reyes", "dana@reyes.example")
	li := NewLinkedInImporter(env.resolver, env.sources, env.state, nil, env.out)

	report, err := li.Import(ctx, strings.NewReader(connectionsCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, 2, report.Linked)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.AutoAccepted)
	assert.Equal(t, 1, report.Skipped["rows without a name, email or URL"])

	dana, err := env.people.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://www.linkedin.com/in/danareyes", dana.LinkedInURL)
	assert.Equal(t, "Founder", dana.Position)

	entity, err := env.sources.GetBySource(ctx, models.SourceLinkedIn, "https://www.linkedin.com/in/elipark")
	require.NoError(t, err)
	assert.Equal(t, models.LinkStatusConfirmed, entity.LinkStatus)
	eli, err := env.people.GetByID(ctx, entity.CanonicalPersonID)
	require.NoError(t, err)
	assert.Equal(t, "Eli Park", eli.CanonicalName)
	assert.Equal(t, models.CategoryWork, eli.Category)

	state, err := env.state.GetSyncState(ctx, linkedinService)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusIdle, state.Status)

	again, err := li.Import(ctx, strings.NewReader(connectionsCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, again.Duplicates)
	count, err := env.people.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLinkedInImportSkipsURLOnlyRows(t *testing.T) {
	env := setupImportEnv(t)
	ctx := context.Background()
	li := NewLinkedInImporter(env.resolver, env.sources, env.state, nil, env.out)

	csv := "First Name,Last Name,URL,Email Address,Company,Position,Connected On\n" +
		",,https://www.linkedin.com/in/private-member,,,,01 Mar 2025\n"
	report, err := li.Import(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped["rows without a name or email"])
	assert.Zero(t, report.Created)

	count, err := env.people.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
