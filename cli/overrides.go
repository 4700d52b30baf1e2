// ABOUTME: Link override CLI commands
// ABOUTME: Pin a name to a person within an optional source and context scope
package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/harperreed/kin/models"
)

// OverrideAddCommand records that a name means a specific person.
func OverrideAddCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("override add", flag.ContinueOnError)
	fs.SetOutput(app.Out)
	name := fs.String("name", "", "Name as it appears in sources (required)")
	personID := fs.String("person", "", "Preferred person ID (required)")
	source := fs.String("source", "", "Only apply to this source type")
	contextPrefix := fs.String("context", "", "Only apply under this context path prefix")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *personID == "" {
		return fmt.Errorf("%w: --name and --person are required", ErrUsage)
	}

	ctx := context.Background()
	person, err := app.People.GetByID(ctx, *personID)
	if err != nil {
		return fmt.Errorf("failed to get person: %w", err)
	}
	if person == nil {
		return fmt.Errorf("person not found: %s", *personID)
	}

	override, err := app.Overrides.Add(ctx, &models.LinkOverride{
		Name:              *name,
		SourceType:        *source,
		ContextPrefix:     *contextPrefix,
		PreferredPersonID: person.ID,
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(app.Out, "✓ %q now resolves to %s (override %s)\n", override.Name, person.Name(), override.ID)
	return nil
}

// OverrideListCommand prints every recorded override.
func OverrideListCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("override list", flag.ContinueOnError)
	fs.SetOutput(app.Out)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	overrides, err := app.Overrides.List(ctx)
	if err != nil {
		return err
	}
	if len(overrides) == 0 {
		_, _ = fmt.Fprintln(app.Out, "No overrides")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSOURCE\tCONTEXT\tPERSON")
	for _, o := range overrides {
		person := o.PreferredPersonID
		if p, err := app.People.GetByID(ctx, o.PreferredPersonID); err == nil && p != nil {
			person = p.Name()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", o.ID, o.Name, orDash(o.SourceType), orDash(o.ContextPrefix), person)
	}
	_ = w.Flush()
	return nil
}

// OverrideDeleteCommand removes an override by ID.
func OverrideDeleteCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("override delete", flag.ContinueOnError)
	fs.SetOutput(app.Out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: override delete <id>", ErrUsage)
	}

	deleted, err := app.Overrides.Delete(context.Background(), fs.Arg(0))
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("override not found: %s", fs.Arg(0))
	}
	_, _ = fmt.Fprintf(app.Out, "✓ Deleted override %s\n", fs.Arg(0))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
