// ABOUTME: Tests for the directory migration utility
// ABOUTME: Copies people from SQLite into a throwaway Charm store and checks dry-run and backups
package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/kin/charm"
	"github.com/harperreed/kin/db"
	"github.com/harperreed/kin/models"
)

func TestCopyPeople(t *testing.T) {
	ctx := context.Background()
	database, err := db.OpenDatabase(":memory:")
	require.NoError(t, err)
	defer func() { _ = database.Close() }()

	from := db.NewPersonStore(database)
	grace, err := from.Add(ctx, &models.CanonicalPerson{CanonicalName: "Grace Hopper", Emails: []string{"grace@navy.example"}})
	require.NoError(t, err)
	_, err = from.Add(ctx, &models.CanonicalPerson{CanonicalName: "Alan Turing"})
	require.NoError(t, err)

	client, cleanup := charm.NewTestClient(t)
	defer cleanup()
	dest := charm.NewPersonDirectory(client)

	report, err := copyPeople(ctx, from, dest, true)
	require.NoError(t, err)
	assert.Equal(t, copyReport{Copied: 2}, report)
	count, err := dest.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "dry run must not write")

	report, err = copyPeople(ctx, from, dest, false)
	require.NoError(t, err)
	assert.Equal(t, copyReport{Copied: 2}, report)

	got, err := dest.GetByEmail(ctx, "grace@navy.example")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, grace.ID, got.ID)

	report, err = copyPeople(ctx, from, dest, false)
	require.NoError(t, err)
	assert.Equal(t, copyReport{Skipped: 2}, report)
}

func TestBackupFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kin.db")

	backup, err := backupFile(path, time.Now())
	require.NoError(t, err)
	assert.Empty(t, backup, "missing file needs no backup")

	require.NoError(t, os.WriteFile(path, []byte("sqlite bytes"), 0600))
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	backup, err = backupFile(path, now)
	require.NoError(t, err)
	assert.Equal(t, path+".backup.20260310-120000", backup)

	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "sqlite bytes", string(data))
}

func TestRunRejectsUnknownBackend(t *testing.T) {
	err := run(filepath.Join(t.TempDir(), "kin.db"), "postgres", true, false, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid -to")
}
