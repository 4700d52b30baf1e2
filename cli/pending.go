// ABOUTME: Pending-link review CLI commands
// ABOUTME: List, confirm, reject, statistics and an interactive review loop
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/harperreed/kin/models"
)

var ErrNotInteractive = errors.New("pending review needs an interactive terminal")

// PendingListCommand lists unresolved links oldest first.
func PendingListCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("pending list", flag.ContinueOnError)
	fs.SetOutput(app.Out)
	limit := fs.Int("limit", 20, "Max results (0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	links, err := app.Linker.Pending(context.Background(), *limit)
	if err != nil {
		return fmt.Errorf("failed to list pending links: %w", err)
	}
	if len(links) == 0 {
		_, _ = fmt.Fprintln(app.Out, "✓ No pending links")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tREASON\tCONFIDENCE\tOBSERVED\tPROPOSED")
	for _, link := range links {
		observed, proposed := app.describeLink(link)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n", link.ID, link.Reason, link.Confidence, observed, proposed)
	}
	_ = w.Flush()
	return nil
}

// PendingConfirmCommand accepts a pending link.
func PendingConfirmCommand(app *App, args []string) error {
	return app.decideCommand("pending confirm", args, true)
}

// PendingRejectCommand declines a pending link.
func PendingRejectCommand(app *App, args []string) error {
	return app.decideCommand("pending reject", args, false)
}

func (app *App) decideCommand(name string, args []string, confirm bool) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(app.Out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: %s <id> [id...]", ErrUsage, name)
	}
	for _, id := range fs.Args() {
		if err := app.decide(context.Background(), id, confirm); err != nil {
			return err
		}
	}
	return nil
}

func (app *App) decide(ctx context.Context, id string, confirm bool) error {
	decideFn, verb := app.Linker.Reject, "Rejected"
	if confirm {
		decideFn, verb = app.Linker.Confirm, "Confirmed"
	}
	link, err := decideFn(ctx, id, models.ResolvedByUser)
	if err != nil {
		return fmt.Errorf("failed to resolve link %s: %w", id, err)
	}
	if link == nil {
		return fmt.Errorf("pending link not found: %s", id)
	}
	if link.Status == models.LinkStatusPending {
		return fmt.Errorf("link %s was not resolved", id)
	}
	if (link.Status == models.LinkStatusConfirmed) != confirm {
		_, _ = fmt.Fprintf(app.Out, "✗ Link %s was already %s\n", id, link.Status)
		return nil
	}
	_, _ = fmt.Fprintf(app.Out, "✓ %s %s\n", verb, id)
	return nil
}

// PendingStatsCommand prints link counts by status and reason.
func PendingStatsCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("pending stats", flag.ContinueOnError)
	fs.SetOutput(app.Out)
	if err := fs.Parse(args); err != nil {
		return err
	}

	stats, err := app.Linker.Statistics(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get link statistics: %w", err)
	}

	_, _ = fmt.Fprintln(app.Out, "Link Statistics")
	_, _ = fmt.Fprintln(app.Out, "───────────────")
	_, _ = fmt.Fprintf(app.Out, "Total:     %d\n", stats.Total)
	_, _ = fmt.Fprintf(app.Out, "Pending:   %d\n", stats.PendingCount)
	_, _ = fmt.Fprintf(app.Out, "Confirmed: %d\n", stats.ConfirmedCount)
	_, _ = fmt.Fprintf(app.Out, "Rejected:  %d\n", stats.RejectedCount)
	if len(stats.ByReason) > 0 {
		reasons := make([]string, 0, len(stats.ByReason))
		for reason := range stats.ByReason {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		_, _ = fmt.Fprintln(app.Out, "\nBy reason:")
		for _, reason := range reasons {
			_, _ = fmt.Fprintf(app.Out, "  %-15s %d\n", reason, stats.ByReason[reason])
		}
	}
	return nil
}

// PendingReviewCommand walks through pending links asking for a decision on each.
func PendingReviewCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("pending review", flag.ContinueOnError)
	fs.SetOutput(app.Out)
	limit := fs.Int("limit", 0, "Max links to review (0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if f, ok := app.In.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return ErrNotInteractive
	}

	ctx := context.Background()
	links, err := app.Linker.Pending(ctx, *limit)
	if err != nil {
		return fmt.Errorf("failed to list pending links: %w", err)
	}
	if len(links) == 0 {
		_, _ = fmt.Fprintln(app.Out, "✓ No pending links")
		return nil
	}

	reader := bufio.NewReader(app.In)
	confirmed, rejected := 0, 0
	for i, link := range links {
		observed, proposed := app.describeLink(link)
		_, _ = fmt.Fprintf(app.Out, "\n[%d/%d] %s (%.2f)\n", i+1, len(links), link.Reason, link.Confidence)
		_, _ = fmt.Fprintf(app.Out, "  Observed: %s\n", observed)
		_, _ = fmt.Fprintf(app.Out, "  Proposed: %s\n", proposed)
		_, _ = fmt.Fprint(app.Out, "Same person? [y]es / [n]o / [s]kip / [q]uit: ")

		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			break
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			if err := app.decide(ctx, link.ID, true); err != nil {
				return err
			}
			confirmed++
		case "n", "no":
			if err := app.decide(ctx, link.ID, false); err != nil {
				return err
			}
			rejected++
		case "q", "quit":
			_, _ = fmt.Fprintf(app.Out, "\n✓ Reviewed: %d confirmed, %d rejected\n", confirmed, rejected)
			return nil
		}
	}
	_, _ = fmt.Fprintf(app.Out, "\n✓ Reviewed: %d confirmed, %d rejected\n", confirmed, rejected)
	return nil
}

// describeLink renders the observation and the proposed person on one line each.
func (app *App) describeLink(link *models.PendingLink) (string, string) {
	ctx := context.Background()
	observed := link.SourceEntityID
	if entity, err := app.Sources.GetByID(ctx, link.SourceEntityID); err == nil && entity != nil {
		parts := []string{entity.SourceType}
		for _, v := range []string{entity.ObservedName, entity.ObservedEmail, entity.ObservedPhone, entity.ContextPath} {
			if v != "" {
				parts = append(parts, v)
			}
		}
		observed = strings.Join(parts, " · ")
	}

	proposed := link.ProposedCanonicalID
	if person, err := app.People.GetByID(ctx, link.ProposedCanonicalID); err == nil && person != nil {
		proposed = person.Name()
		if len(person.Emails) > 0 {
			proposed += " <" + person.Emails[0] + ">"
		}
	}
	return observed, proposed
}
