// ABOUTME: Shared plumbing for importers that turn external records into observations
// ABOUTME: Idempotency through the sync log, sync status bookkeeping and per-run reports
package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/harperreed/kin/linking"
	"github.com/harperreed/kin/models"
)

// Linker routes an observation to a person.
type Linker interface {
	Link(ctx context.Context, obs linking.Observation) (*linking.LinkOutcome, error)
}

// StateStore is the sync bookkeeping an importer needs. *db.SyncStore satisfies it.
type StateStore interface {
	GetSyncState(ctx context.Context, service string) (*models.SyncState, error)
	UpdateSyncStatus(ctx context.Context, service, status, errorMsg string) error
	UpdateSyncToken(ctx context.Context, service, token string) error
	CheckSyncLogExists(ctx context.Context, sourceService, sourceID string) (bool, error)
	CreateSyncLog(ctx context.Context, sourceService, sourceID, sourceEntityID, metadata string) error
}

// Report summarizes one import run.
type Report struct {
	Fetched      int
	Linked       int
	AutoAccepted int
	Pending      int
	Created      int
	Duplicates   int
	Skipped      map[string]int
}

func newReport() *Report {
	return &Report{Skipped: make(map[string]int)}
}

func (r *Report) skip(reason string) {
	r.Skipped[reason]++
}

func (r *Report) record(outcome *linking.LinkOutcome) {
	if outcome == nil || outcome.Result == nil {
		r.skip("unresolvable")
		return
	}
	r.Linked++
	if outcome.Result.IsNew {
		r.Created++
	}
	if outcome.AutoAccepted {
		r.AutoAccepted++
	}
	if outcome.PendingLink != nil {
		r.Pending++
	}
}

// Print writes the summary in the CLI's checkmark style.
func (r *Report) Print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "\n✓ Fetched %d records\n", r.Fetched)
	if r.Linked == 0 {
		_, _ = fmt.Fprintln(w, "  ✓ Nothing new to link (all up to date)")
	} else {
		_, _ = fmt.Fprintf(w, "  ✓ Linked %d observations\n", r.Linked)
		if r.AutoAccepted > 0 {
			_, _ = fmt.Fprintf(w, "  ✓ Auto-accepted %d matches\n", r.AutoAccepted)
		}
		if r.Created > 0 {
			_, _ = fmt.Fprintf(w, "  ✓ Created %d new people\n", r.Created)
		}
		if r.Pending > 0 {
			_, _ = fmt.Fprintf(w, "  → %d links waiting for review (kin pending review)\n", r.Pending)
		}
	}
	if r.Duplicates > 0 {
		_, _ = fmt.Fprintf(w, "  ✓ Skipped %d already imported\n", r.Duplicates)
	}

	reasons := make([]string, 0, len(r.Skipped))
	for reason := range r.Skipped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		_, _ = fmt.Fprintf(w, "  ✓ Skipped %d %s\n", r.Skipped[reason], reason)
	}
}

// importer carries what every source-specific importer shares.
type importer struct {
	service string
	linker  Linker
	state   StateStore
	logger  *slog.Logger
	out     io.Writer
}

func newImporter(service string, linker Linker, state StateStore, logger *slog.Logger, out io.Writer) importer {
	if logger == nil {
		logger = slog.Default()
	}
	if out == nil {
		out = io.Discard
	}
	return importer{service: service, linker: linker, state: state, logger: logger, out: out}
}

// linkOnce links an observation unless its sync log key was already imported.
// It returns nil without error for a duplicate.
func (im *importer) linkOnce(ctx context.Context, report *Report, logKey string, obs linking.Observation, metadata string) (*linking.LinkOutcome, error) {
	exists, err := im.state.CheckSyncLogExists(ctx, im.service, logKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check sync log: %w", err)
	}
	if exists {
		report.Duplicates++
		return nil, nil
	}

	outcome, err := im.linker.Link(ctx, obs)
	if err != nil {
		return nil, err
	}
	report.record(outcome)

	if err := im.state.CreateSyncLog(ctx, im.service, logKey, outcome.SourceEntity.ID, metadata); err != nil {
		return nil, fmt.Errorf("failed to create sync log: %w", err)
	}
	return outcome, nil
}

// begin marks the service as syncing.
func (im *importer) begin(ctx context.Context) error {
	if err := im.state.UpdateSyncStatus(ctx, im.service, models.SyncStatusSyncing, ""); err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}
	return nil
}

// fail records err as the service's sync error and returns it.
func (im *importer) fail(ctx context.Context, err error) error {
	_ = im.state.UpdateSyncStatus(ctx, im.service, models.SyncStatusError, err.Error())
	im.logger.Error("sync failed", "service", im.service, "error", err)
	return err
}

func (im *importer) finish(ctx context.Context) error {
	if err := im.state.UpdateSyncStatus(ctx, im.service, models.SyncStatusIdle, ""); err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}
	return nil
}
