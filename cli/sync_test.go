// ABOUTME: Tests for Google sync and LinkedIn import CLI commands
// ABOUTME: Verifies token handling, flag parsing and the import path end to end
package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/harperreed/kin/models"
	"github.com/harperreed/kin/sync"
)

// isolateXDG points token storage at a temp directory.
func isolateXDG(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	xdg.Reload()
	t.Cleanup(xdg.Reload)
}

func TestSyncCalendarCommand_NoToken(t *testing.T) {
	isolateXDG(t)
	app, _ := setupTestCLI(t)

	err := SyncCalendarCommand(app, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no authentication token found")
}

func TestSyncCommands_ParseFlagsAndBuildClients(t *testing.T) {
	isolateXDG(t)
	app, _ := setupTestCLI(t)
	require.NoError(t, sync.SaveToken(&oauth2.Token{AccessToken: "fake-access-token"}))

	errClients := errors.New("no real credentials")
	var calls int
	original := newServices
	newServices = func(ctx context.Context, token *oauth2.Token) (*sync.Services, error) {
		calls++
		assert.Equal(t, "fake-access-token", token.AccessToken)
		return nil, errClients
	}
	t.Cleanup(func() { newServices = original })

	assert.ErrorIs(t, SyncCalendarCommand(app, []string{"--initial"}), errClients)
	assert.ErrorIs(t, SyncGmailCommand(app, []string{"--initial"}), errClients)
	assert.ErrorIs(t, SyncContactsCommand(app, nil), errClients)
	assert.Equal(t, 3, calls)

	assert.Error(t, SyncGmailCommand(app, []string{"--bogus"}))
}

func TestImportLinkedInCommand(t *testing.T) {
	app, out := setupTestCLI(t)
	path := filepath.Join(t.TempDir(), "Connections.csv")
	csv := "First Name,Last Name,URL,Email Address,Company,Position,Connected On\n" +
		"Hedy,Lamarr,https://www.linkedin.com/in/hedy,,Spread Spectrum,Inventor,09 Nov 2024\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0600))

	require.NoError(t, ImportLinkedInCommand(app, []string{path}))
	assert.Contains(t, out.String(), "Importing LinkedIn connections...")

	entity, err := app.Sources.GetBySource(context.Background(), models.SourceLinkedIn, "https://www.linkedin.com/in/hedy")
	require.NoError(t, err)
	require.NotNil(t, entity)
	person, err := app.People.GetByID(context.Background(), entity.CanonicalPersonID)
	require.NoError(t, err)
	assert.Equal(t, "Hedy Lamarr", person.CanonicalName)
	assert.Equal(t, "Inventor", person.Position)

	assert.ErrorIs(t, ImportLinkedInCommand(app, nil), ErrUsage)
	assert.Error(t, ImportLinkedInCommand(app, []string{filepath.Join(t.TempDir(), "missing.csv")}))
}

func TestSyncStatusCommand(t *testing.T) {
	app, out := setupTestCLI(t)

	require.NoError(t, SyncStatusCommand(app, nil))
	assert.Contains(t, out.String(), "Nothing synced yet")

	ctx := context.Background()
	require.NoError(t, app.Sync.UpdateSyncToken(ctx, "linkedin", ""))
	require.NoError(t, app.Sync.UpdateSyncStatus(ctx, "gmail", models.SyncStatusError, "quota exceeded"))

	out.Reset()
	require.NoError(t, SyncStatusCommand(app, nil))
	assert.Contains(t, out.String(), "linkedin")
	assert.Contains(t, out.String(), "just now")
	assert.Contains(t, out.String(), "✗ quota exceeded")
}
