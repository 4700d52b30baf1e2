// ABOUTME: Google sync and import CLI commands
// ABOUTME: OAuth setup, per-service imports, LinkedIn CSV import, status and a scheduling daemon
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	"github.com/harperreed/kin/sync"
)

const (
	serviceContacts = "contacts"
	serviceCalendar = "calendar"
	serviceGmail    = "gmail"

	minDaemonInterval = 5 * time.Minute
)

var allServices = []string{serviceContacts, serviceCalendar, serviceGmail}

// newServices is replaced in tests.
var newServices = sync.NewServices

// SyncInitCommand handles OAuth setup
func SyncInitCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("sync init", flag.ContinueOnError)
	fs.SetOutput(app.Out)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	config, err := sync.RequireOAuthConfig()
	if err != nil {
		return err
	}

	callbackChan := make(chan *oauth2.Token, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(sync.OAuthCallbackPath, func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no authorization code received")
			return
		}

		token, err := config.Exchange(ctx, code)
		if err != nil {
			errChan <- fmt.Errorf("failed to exchange code: %w", err)
			return
		}

		callbackChan <- token
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
	})

	server := &http.Server{Addr: sync.OAuthCallbackAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	authURL := config.AuthCodeURL("state", oauth2.AccessTypeOffline)

	_, _ = fmt.Fprintln(app.Out, "Opening browser for Google OAuth...")
	_, _ = fmt.Fprintf(app.Out, "\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)
	_ = openBrowser(authURL)

	select {
	case token := <-callbackChan:
		_ = server.Shutdown(ctx)

		if err := sync.SaveToken(token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}

		_, _ = fmt.Fprintf(app.Out, "\n✓ Authenticated successfully\n")
		_, _ = fmt.Fprintf(app.Out, "✓ Tokens saved to %s\n\n", sync.TokenPath())
		_, _ = fmt.Fprintln(app.Out, "Ready to sync! Run 'kin sync contacts' to import contacts.")
		return nil

	case err := <-errChan:
		_ = server.Shutdown(ctx)
		return fmt.Errorf("OAuth flow failed: %w", err)
	}
}

// SyncContactsCommand imports Google Contacts.
func SyncContactsCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("sync contacts", flag.ContinueOnError)
	fs.SetOutput(app.Out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return app.runSync(context.Background(), serviceContacts, false)
}

// SyncGmailCommand imports correspondents from Gmail headers.
func SyncGmailCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("sync gmail", flag.ContinueOnError)
	fs.SetOutput(app.Out)
	initial := fs.Bool("initial", false, "Full import of the last 30 days instead of incremental")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return app.runSync(context.Background(), serviceGmail, *initial)
}

// SyncCalendarCommand imports meeting attendees from Google Calendar.
func SyncCalendarCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("sync calendar", flag.ContinueOnError)
	fs.SetOutput(app.Out)
	initial := fs.Bool("initial", false, "Full import (last 6 months)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return app.runSync(context.Background(), serviceCalendar, *initial)
}

func (app *App) runSync(ctx context.Context, service string, initial bool) error {
	token, err := sync.LoadToken()
	if err != nil {
		return fmt.Errorf("no authentication token found. Run 'kin sync init' first: %w", err)
	}
	services, err := newServices(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to create Google clients: %w", err)
	}

	switch service {
	case serviceContacts:
		_, err = sync.NewContactsImporter(app.Linker, app.Sync, app.Logger, app.Out).Import(ctx, services.People)
	case serviceGmail:
		_, err = sync.NewGmailImporter(app.Linker, app.Sync, app.Logger, app.Out).Import(ctx, services.Gmail, initial)
	case serviceCalendar:
		_, err = sync.NewCalendarImporter(app.Linker, app.Sync, app.Logger, app.Out).Import(ctx, services.Calendar, initial)
	default:
		return fmt.Errorf("%w: unknown service %q", ErrUsage, service)
	}
	if err != nil {
		return fmt.Errorf("%s sync failed: %w", service, err)
	}
	return nil
}

// ImportLinkedInCommand imports a LinkedIn Connections.csv export.
func ImportLinkedInCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("import linkedin", flag.ContinueOnError)
	fs.SetOutput(app.Out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: import linkedin <Connections.csv>", ErrUsage)
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to open export: %w", err)
	}
	defer func() { _ = f.Close() }()

	_, err = sync.NewLinkedInImporter(app.Resolver, app.Sources, app.Sync, app.Logger, app.Out).Import(context.Background(), f)
	return err
}

// SyncStatusCommand shows when each service last synced.
func SyncStatusCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("sync status", flag.ContinueOnError)
	fs.SetOutput(app.Out)
	if err := fs.Parse(args); err != nil {
		return err
	}

	states, err := app.Sync.GetAllSyncStates(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get sync states: %w", err)
	}
	if len(states) == 0 {
		_, _ = fmt.Fprintln(app.Out, "Nothing synced yet. Run 'kin sync init' to get started.")
		return nil
	}

	for _, s := range states {
		last := "never"
		if s.LastSyncTime != nil {
			last = formatTimeSince(*s.LastSyncTime)
		}
		_, _ = fmt.Fprintf(app.Out, "%-10s %-8s last sync %s\n", s.Service, s.Status, last)
		if s.ErrorMessage != "" {
			_, _ = fmt.Fprintf(app.Out, "           ✗ %s\n", s.ErrorMessage)
		}
	}
	return nil
}

// SyncDaemonCommand runs the selected imports on an interval until interrupted.
func SyncDaemonCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("sync daemon", flag.ContinueOnError)
	fs.SetOutput(app.Out)
	intervalStr := fs.String("interval", "1h", "Time between syncs (minimum 5m)")
	servicesStr := fs.String("services", "all", "Services to sync: all or a comma list of contacts,calendar,gmail")
	if err := fs.Parse(args); err != nil {
		return err
	}

	interval, err := parseInterval(*intervalStr)
	if err != nil {
		return err
	}
	services := parseServices(*servicesStr)
	if len(services) == 0 {
		return fmt.Errorf("%w: no valid services in %q", ErrUsage, *servicesStr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintf(app.Out, "Sync daemon started: %s every %s\n", strings.Join(services, ", "), interval)
	return app.daemonLoop(ctx, services, interval)
}

func (app *App) daemonLoop(ctx context.Context, services []string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, service := range services {
			if err := app.runSync(ctx, service, false); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				app.Logger.Error("scheduled sync failed", "service", service, "error", err)
			}
		}
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(app.Out, "\n✓ Sync daemon stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func parseInterval(value string) (time.Duration, error) {
	interval, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid interval %q", ErrUsage, value)
	}
	if interval < minDaemonInterval {
		return 0, fmt.Errorf("%w: interval must be at least %s", ErrUsage, minDaemonInterval)
	}
	return interval, nil
}

// parseServices expands "all" and drops names it does not know.
func parseServices(input string) []string {
	result := []string{}
	for _, part := range strings.Split(input, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "all" {
			return append([]string(nil), allServices...)
		}
		for _, known := range allServices {
			if name == known {
				result = append(result, name)
				break
			}
		}
	}
	return result
}

func formatTimeSince(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	default:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// openBrowser attempts to open URL in default browser
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	return exec.Command(cmd, args...).Start()
}
