// ABOUTME: Entry point for the kin CLI and MCP server
// ABOUTME: Loads config, builds the logger and person directory backend, and routes subcommands
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/harperreed/kin/charm"
	"github.com/harperreed/kin/cli"
	"github.com/harperreed/kin/config"
	"github.com/harperreed/kin/db"
	"github.com/harperreed/kin/mappings"
	"github.com/harperreed/kin/resolver"
)

type command func(app *cli.App, args []string) error

var commands = map[string]map[string]command{
	"people": {
		"list": cli.PeopleListCommand,
		"show": cli.PeopleShowCommand,
	},
	"pending": {
		"list":    cli.PendingListCommand,
		"confirm": cli.PendingConfirmCommand,
		"reject":  cli.PendingRejectCommand,
		"review":  cli.PendingReviewCommand,
		"stats":   cli.PendingStatsCommand,
	},
	"override": {
		"add":    cli.OverrideAddCommand,
		"list":   cli.OverrideListCommand,
		"delete": cli.OverrideDeleteCommand,
	},
	"import": {
		"linkedin": cli.ImportLinkedInCommand,
	},
	"sync": {
		"init":     cli.SyncInitCommand,
		"contacts": cli.SyncContactsCommand,
		"gmail":    cli.SyncGmailCommand,
		"calendar": cli.SyncCalendarCommand,
		"status":   cli.SyncStatusCommand,
		"daemon":   cli.SyncDaemonCommand,
	},
}

var charmCommands = map[string]func(c *charm.Client, args []string) error{
	"link":   charm.LinkCommand,
	"status": charm.StatusCommand,
	"sync":   charm.SyncNowCommand,
	"wipe":   charm.WipeCommand,
}

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "", "Config file (default: ~/.config/kin/config.json)")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/kin/kin.db)")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("kin version %s\n", cli.Version())
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	name, rest := args[0], args[1:]

	// charm auto only edits local config.
	if name == "charm" && len(rest) > 0 && rest[0] == "auto" {
		if err := charm.AutoSyncCommand(rest[1:]); err != nil {
			fatal(err)
		}
		return
	}
	if name == "charm" {
		runCharm(rest)
		return
	}

	app, closeApp, err := buildApp(cfg, logger)
	if err != nil {
		fatal(err)
	}
	defer closeApp()

	switch name {
	case "resolve":
		err = cli.ResolveCommand(app, rest)
	case "mcp":
		err = cli.MCPCommand(app)
	default:
		group, ok := commands[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
			printUsage()
			os.Exit(1)
		}
		if len(rest) == 0 {
			fmt.Fprintf(os.Stderr, "Error: %s requires a subcommand\n\n", name)
			printUsage()
			os.Exit(1)
		}
		cmd, ok := group[rest[0]]
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown %s command: %s\n\n", name, rest[0])
			printUsage()
			os.Exit(1)
		}
		err = cmd(app, rest[1:])
	}
	if err != nil {
		closeApp()
		fatal(err)
	}
}

// buildApp opens the database and the configured person directory.
func buildApp(cfg *config.Config, logger *slog.Logger) (*cli.App, func(), error) {
	database, err := db.OpenDatabase(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", "path", cfg.DBPath, "backend", cfg.Backend)

	m := mappings.Default()
	if cfg.MappingsPath != "" {
		if m, err = mappings.Load(cfg.MappingsPath); err != nil {
			_ = database.Close()
			return nil, nil, err
		}
	}

	var people resolver.Directory
	var kvClient *charm.Client
	if cfg.Backend == config.BackendCharm {
		charmCfg, err := charm.LoadConfig()
		if err != nil {
			_ = database.Close()
			return nil, nil, err
		}
		if kvClient, err = charm.NewClient(charmCfg); err != nil {
			_ = database.Close()
			return nil, nil, err
		}
		people = charm.NewPersonDirectory(kvClient)
	}

	closed := false
	closeFn := func() {
		if closed {
			return
		}
		closed = true
		if kvClient != nil {
			_ = kvClient.Close()
		}
		closeDB(database)
	}
	return cli.NewApp(database, people, m, cfg, logger), closeFn, nil
}

func runCharm(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: charm requires a subcommand")
		printUsage()
		os.Exit(1)
	}
	cmd, ok := charmCommands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown charm command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
	charmCfg, err := charm.LoadConfig()
	if err != nil {
		fatal(err)
	}
	client, err := charm.NewClient(charmCfg)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = client.Close() }()
	if err := cmd(client, args[1:]); err != nil {
		fatal(err)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Printf(`kin v%s - personal contact entity resolution

USAGE:
  kin [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --config <path>        Config file (default: ~/.config/kin/config.json)
  --db-path <path>       Database path (default: ~/.local/share/kin/kin.db)

COMMANDS:
  resolve [name]         Resolve an observation to a person
    --name, --email, --phone  Identifiers (at least one)
    --context <path>          Where the mention came from
    --source <type>           Source type (default: manual)
    --create                  Create a person when nothing matches
    --json                    Print the full result as JSON

  people list            List people (--query, --category, --limit)
  people show <id>       Show a person and their observations

  pending list           List pending links (--limit)
  pending confirm <id>   Confirm one or more pending links
  pending reject <id>    Reject one or more pending links
  pending review         Review pending links interactively
  pending stats          Link counts by status and reason

  override add           Pin a name to a person
    --name <name> --person <id> [--source <type>] [--context <prefix>]
  override list          List overrides
  override delete <id>   Delete an override

  import linkedin <csv>  Import a LinkedIn Connections.csv export

  sync init              Authenticate with Google
  sync contacts          Import Google Contacts
  sync gmail             Import Gmail correspondents (--initial for 30 days)
  sync calendar          Import calendar attendees (--initial for 6 months)
  sync status            Show last sync per service
  sync daemon            Sync on a schedule (--interval, --services)

  charm link|status|sync|wipe   Manage the Charm-synced directory
  charm auto --enable|--disable Toggle sync after every write

  mcp                    Start the MCP server on stdio

ENVIRONMENT:
  KIN_DB_PATH, KIN_BACKEND (sqlite|charm), KIN_MAPPINGS, KIN_LOG_LEVEL,
  KIN_DEFAULT_REGION, KIN_MIN_MATCH_SCORE, KIN_DISAMBIGUATION_GAP, KIN_AUTO_ACCEPT,
  KIN_CHARM_HOST, GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET

EXAMPLES:
  kin resolve --name "Sarah" --context work/acme/standup.md
  kin import linkedin ~/Downloads/Connections.csv
  kin pending review
`, cli.Version())
}
