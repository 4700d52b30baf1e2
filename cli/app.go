// ABOUTME: Wires stores, resolver and linker into the object every command runs against
// ABOUTME: The person directory is injected so SQLite and Charm backends share one code path
package cli

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/harperreed/kin/config"
	"github.com/harperreed/kin/db"
	"github.com/harperreed/kin/linking"
	"github.com/harperreed/kin/mappings"
	"github.com/harperreed/kin/resolver"
)

const version = "0.2.0"

var ErrUsage = errors.New("invalid usage")

// App is the wired application. Commands print to Out and read answers from In.
type App struct {
	People    resolver.Directory
	Resolver  *resolver.Resolver
	Linker    *linking.Linker
	Sources   *db.SourceEntityStore
	Links     *db.PendingLinkStore
	Overrides *db.OverrideStore
	Sync      *db.SyncStore
	Logger    *slog.Logger

	Out io.Writer
	In  io.Reader
}

// NewApp builds the resolver and linker over database and people. When people
// is nil the SQLite person store on database is used.
func NewApp(database *sql.DB, people resolver.Directory, m *mappings.Mappings, cfg *config.Config, logger *slog.Logger) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	if m == nil {
		m = mappings.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if people == nil {
		people = db.NewPersonStore(database)
	}

	app := &App{
		People:    people,
		Sources:   db.NewSourceEntityStore(database),
		Links:     db.NewPendingLinkStore(database),
		Overrides: db.NewOverrideStore(database),
		Sync:      db.NewSyncStore(database),
		Logger:    logger,
		Out:       os.Stdout,
		In:        os.Stdin,
	}
	rc := cfg.ResolverConfig()
	app.Resolver = resolver.New(people, rc,
		resolver.WithOverrides(app.Overrides),
		resolver.WithNormalizer(m),
		resolver.WithMapper(m),
		resolver.WithLogger(logger),
	)
	app.Linker = linking.New(people, app.Resolver, app.Links, app.Sources, app.Overrides,
		linking.WithAutoAcceptThreshold(cfg.AutoAcceptThreshold),
		linking.WithRegion(rc.DefaultRegion),
		linking.WithLogger(logger),
	)
	return app
}

// Version returns the CLI version string.
func Version() string {
	return version
}
