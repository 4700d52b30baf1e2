// ABOUTME: Migration utility that copies the person directory between SQLite and Charm KV.
// ABOUTME: Provides dry-run and backup capabilities so a backend switch never loses people.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/harperreed/kin/charm"
	"github.com/harperreed/kin/config"
	"github.com/harperreed/kin/db"
	"github.com/harperreed/kin/resolver"
)

func main() {
	dbPath := flag.String("db", config.DefaultDBPath(), "Path to the SQLite database")
	to := flag.String("to", config.BackendCharm, "Destination backend: charm or sqlite")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Create a backup of the database before writing to it")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(*dbPath, *to, *dryRun, *backup, logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("migration completed successfully")
}

func run(dbPath, to string, dryRun, createBackup bool, logger *slog.Logger) error {
	if to != config.BackendCharm && to != config.BackendSQLite {
		return fmt.Errorf("invalid -to %q: must be charm or sqlite", to)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) && to == config.BackendCharm {
		return fmt.Errorf("database file does not exist: %s", dbPath)
	}

	// Backups only matter when SQLite is written to.
	if createBackup && !dryRun && to == config.BackendSQLite {
		if path, err := backupFile(dbPath, time.Now()); err != nil {
			return err
		} else if path != "" {
			logger.Info("backup created", "path", path)
		}
	}

	database, err := db.OpenDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	charmCfg, err := charm.LoadConfig()
	if err != nil {
		return err
	}
	client, err := charm.NewClient(charmCfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	var from, dest resolver.Directory = db.NewPersonStore(database), charm.NewPersonDirectory(client)
	if to == config.BackendSQLite {
		from, dest = dest, from
	}

	report, err := copyPeople(context.Background(), from, dest, dryRun)
	if err != nil {
		return err
	}
	logger.Info("people copied",
		"to", to, "dry_run", dryRun,
		"copied", report.Copied, "skipped", report.Skipped)
	return nil
}

type copyReport struct {
	Copied  int
	Skipped int
}

// copyPeople adds every person in from that dest does not already hold by ID.
func copyPeople(ctx context.Context, from, dest resolver.Directory, dryRun bool) (copyReport, error) {
	var report copyReport
	people, err := from.GetAll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to read source directory: %w", err)
	}
	for _, person := range people {
		existing, err := dest.GetByID(ctx, person.ID)
		if err != nil {
			return report, fmt.Errorf("failed to check %s: %w", person.ID, err)
		}
		if existing != nil {
			report.Skipped++
			continue
		}
		report.Copied++
		if dryRun {
			continue
		}
		if _, err := dest.Add(ctx, person); err != nil {
			return report, fmt.Errorf("failed to copy %s: %w", person.CanonicalName, err)
		}
	}
	if dryRun {
		return report, nil
	}
	if err := dest.Save(ctx); err != nil {
		return report, fmt.Errorf("failed to save destination: %w", err)
	}
	return report, nil
}

// backupFile copies path next to itself with a timestamp suffix. A missing file needs no backup.
func backupFile(path string, now time.Time) (string, error) {
	input, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read database: %w", err)
	}
	backupPath := fmt.Sprintf("%s.backup.%s", path, now.Format("20060102-150405"))
	if err := os.WriteFile(backupPath, input, 0600); err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	return backupPath, nil
}
