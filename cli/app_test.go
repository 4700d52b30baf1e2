// ABOUTME: Shared CLI test fixture and composition tests
// ABOUTME: Builds an App over a temp-file SQLite database with captured output
package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/kin/config"
	"github.com/harperreed/kin/db"
	"github.com/harperreed/kin/models"
)

func setupTestCLI(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	app := NewApp(database, nil, nil, config.Default(), nil)
	out := &bytes.Buffer{}
	app.Out = out
	app.In = strings.NewReader("")
	return app, out
}

func addTestPerson(t *testing.T, app *App, name string, emails ...string) *models.CanonicalPerson {
	t.Helper()
	p, err := app.People.Add(context.Background(), &models.CanonicalPerson{
		CanonicalName: name,
		Emails:        emails,
		Category:      models.CategoryWork,
	})
	require.NoError(t, err)
	return p
}

func TestNewAppDefaults(t *testing.T) {
	database, err := db.OpenDatabase(":memory:")
	require.NoError(t, err)
	defer func() { _ = database.Close() }()

	app := NewApp(database, nil, nil, nil, nil)
	assert.IsType(t, &db.PersonStore{}, app.People)
	assert.NotNil(t, app.Resolver)
	assert.NotNil(t, app.Linker)
	assert.NotNil(t, app.Logger)
	assert.Equal(t, version, Version())
}
