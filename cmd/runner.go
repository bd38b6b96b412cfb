package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/listenlog/internal/repositories"
	"github.com/desertthunder/listenlog/internal/services"
	"github.com/desertthunder/listenlog/internal/shared"
	"github.com/desertthunder/listenlog/internal/tasks"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
)

// CatalogLookup fetches single catalog entities for the catalog commands.
// [services.SpotifyService] implements it.
type CatalogLookup interface {
	Track(ctx context.Context, id string) (*services.SpotifyTrack, error)
	Artist(ctx context.Context, id string) (*services.SpotifyArtist, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	catalog services.Catalog
	lookup  CatalogLookup
	logger  *log.Logger
	output  io.Writer
	version string
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Catalog and Lookup are built from the Spotify credentials in Config when nil.
type RunnerOpts struct {
	Config  *shared.Config
	Catalog services.Catalog
	Lookup  CatalogLookup
	Logger  *log.Logger
	Output  io.Writer
	Version string
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	return &Runner{
		config:  opts.Config,
		catalog: opts.Catalog,
		lookup:  opts.Lookup,
		logger:  opts.Logger,
		output:  opts.Output,
		version: opts.Version,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, importCommand, serveCommand, catalogCommand, statsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Configure loads the configuration file named by --config and applies --verbose.
//
// A missing file keeps the current configuration unless the path was given explicitly.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if _, err := os.Stat(path); err != nil {
		if cmd.IsSet("config") {
			return ctx, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
		}
		return ctx, r.config.Validate()
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	if err := config.Validate(); err != nil {
		return ctx, err
	}

	r.logger.Debug("loaded config", "path", path)
	r.config = config
	return ctx, nil
}

// spotify builds the Spotify client from the configured credentials.
func (r *Runner) spotify() (*services.SpotifyService, error) {
	if !r.config.HasSpotifyCredentials() {
		return nil, fmt.Errorf("%w: set [credentials.spotify] or SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET", shared.ErrMissingCredentials)
	}
	return services.NewSpotifyService(services.SpotifyOptsFromConfig(r.config))
}

// catalogClient returns the catalog used by imports: the Spotify client behind a circuit breaker
// and the batching resolver.
func (r *Runner) catalogClient() (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	spotify, err := r.spotify()
	if err != nil {
		return nil, err
	}

	source := services.NewBreakerSource(spotify, services.BreakerOptsFromConfig(r.config.Catalog, r.logger))
	r.catalog = services.NewCatalogResolver(source, services.ResolverOpts{
		BatchSize:   r.config.Catalog.EffectiveBatchSize(),
		Concurrency: r.config.Catalog.Concurrency,
		Logger:      r.logger,
	})
	return r.catalog, nil
}

func (r *Runner) catalogLookup() (CatalogLookup, error) {
	if r.lookup != nil {
		return r.lookup, nil
	}

	spotify, err := r.spotify()
	if err != nil {
		return nil, err
	}
	r.lookup = spotify
	return r.lookup, nil
}

// openDatabase opens the configured database and brings its schema up to date.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}

	applied, err := shared.ApplyMigrations(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if applied > 0 {
		r.logger.Info("applied migrations", "count", applied, "path", r.config.Database.Path)
	}
	return db, nil
}

func (r *Runner) newEngine(db *sql.DB, catalog services.Catalog, logger *log.Logger) *tasks.ImportEngine {
	return tasks.NewImportEngine(
		catalog,
		repositories.NewStore(db),
		repositories.NewUserRepository(db),
		tasks.ImportOptsFromConfig(r.config.Import, logger),
	)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
