// ABOUTME: Resolve and people CLI commands
// ABOUTME: Looks up who an observation refers to and lists or shows canonical people
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/harperreed/kin/models"
	"github.com/harperreed/kin/names"
	"github.com/harperreed/kin/resolver"
)

// ResolveCommand resolves a name, email or phone to a canonical person.
func ResolveCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(app.Out)
	name := fs.String("name", "", "Name as written in the source")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	contextPath := fs.String("context", "", "Context path, e.g. work/acme/notes.md")
	source := fs.String("source", models.SourceManual, "Source type")
	create := fs.Bool("create", false, "Create a new person when nothing matches")
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// A bare argument is treated as the name.
	if *name == "" && fs.NArg() > 0 {
		*name = strings.Join(fs.Args(), " ")
	}
	if *name == "" && *email == "" && *phone == "" {
		return fmt.Errorf("%w: one of --name, --email or --phone is required", ErrUsage)
	}

	result, err := app.Resolver.Resolve(context.Background(), resolver.Query{
		Name:            *name,
		Email:           *email,
		Phone:           *phone,
		ContextPath:     *contextPath,
		SourceType:      *source,
		CreateIfMissing: *create,
	})
	if err != nil {
		return fmt.Errorf("failed to resolve: %w", err)
	}

	if *asJSON {
		enc := json.NewEncoder(app.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	if result == nil {
		_, _ = fmt.Fprintln(app.Out, "✗ No match")
		return nil
	}

	verb := "Matched"
	if result.IsNew {
		verb = "Created"
	}
	_, _ = fmt.Fprintf(app.Out, "✓ %s %s (%s, confidence %.2f)\n", verb, result.Person.Name(), result.MatchType, result.Confidence)
	if result.DisambiguationApplied {
		_, _ = fmt.Fprintln(app.Out, "  Disambiguated from a namesake")
	}
	printPerson(app.Out, result.Person)
	return nil
}

// PeopleListCommand lists canonical people, optionally filtered.
func PeopleListCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("people list", flag.ContinueOnError)
	fs.SetOutput(app.Out)
	query := fs.String("query", "", "Filter by name, alias or email")
	category := fs.String("category", "", "Filter by category (work, personal, family, unknown)")
	limit := fs.Int("limit", 50, "Max results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	people, err := app.People.GetAll(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list people: %w", err)
	}
	sort.SliceStable(people, func(i, j int) bool {
		return strings.ToLower(people[i].Name()) < strings.ToLower(people[j].Name())
	})

	var shown []*models.CanonicalPerson
	for _, p := range people {
		if *category != "" && !strings.EqualFold(p.Category, *category) {
			continue
		}
		if *query != "" && !personMatches(p, *query) {
			continue
		}
		shown = append(shown, p)
		if *limit > 0 && len(shown) == *limit {
			break
		}
	}

	if len(shown) == 0 {
		_, _ = fmt.Fprintln(app.Out, "No people found")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tEMAIL\tLAST SEEN")
	for _, p := range shown {
		email := ""
		if len(p.Emails) > 0 {
			email = p.Emails[0]
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name(), p.Category, email, formatDate(p.LastSeen))
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(app.Out, "\n%d of %d people\n", len(shown), len(people))
	return nil
}

// PeopleShowCommand prints one person and the observations linked to them.
func PeopleShowCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("people show", flag.ContinueOnError)
	fs.SetOutput(app.Out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: people show <id>", ErrUsage)
	}

	ctx := context.Background()
	person, err := app.People.GetByID(ctx, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to get person: %w", err)
	}
	if person == nil {
		return fmt.Errorf("person not found: %s", fs.Arg(0))
	}

	_, _ = fmt.Fprintln(app.Out, person.Name())
	printPerson(app.Out, person)

	observations, err := app.Sources.ListForPerson(ctx, person.ID)
	if err != nil {
		return fmt.Errorf("failed to list observations: %w", err)
	}
	if len(observations) > 0 {
		_, _ = fmt.Fprintf(app.Out, "\nObservations (%d):\n", len(observations))
		for _, o := range observations {
			_, _ = fmt.Fprintf(app.Out, "  %s  %-15s %-10s %s\n", formatDate(o.ObservedAt), o.SourceType, o.LinkStatus, o.SourceID)
		}
	}
	return nil
}

func personMatches(p *models.CanonicalPerson, query string) bool {
	q := strings.ToLower(query)
	for _, email := range p.Emails {
		if strings.Contains(email, q) {
			return true
		}
	}
	for _, variant := range p.NameVariants() {
		if strings.Contains(strings.ToLower(variant), q) || names.TokenSetRatio(variant, query) >= 80 {
			return true
		}
	}
	return false
}

func printPerson(w io.Writer, p *models.CanonicalPerson) {
	field := func(label, value string) {
		if value != "" {
			_, _ = fmt.Fprintf(w, "  %-10s %s\n", label+":", value)
		}
	}
	field("ID", p.ID)
	field("Aliases", strings.Join(p.Aliases, ", "))
	field("Emails", strings.Join(p.Emails, ", "))
	field("Phones", strings.Join(p.Phones, ", "))
	field("Category", p.Category)
	field("Company", p.Company)
	field("Position", p.Position)
	field("LinkedIn", p.LinkedInURL)
	field("Contexts", strings.Join(p.VaultContexts, ", "))
	field("Sources", strings.Join(p.Sources, ", "))
	if p.RelationshipStrength > 0 {
		field("Strength", fmt.Sprintf("%d", p.RelationshipStrength))
	}
	if !p.LastSeen.IsZero() {
		field("Last seen", formatDate(p.LastSeen))
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}
