package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/desertthunder/setlist/internal/mutation"
	"github.com/desertthunder/setlist/internal/query"
	"github.com/desertthunder/setlist/internal/repositories"
	"github.com/desertthunder/setlist/internal/routes"
	"github.com/desertthunder/setlist/internal/services"
	"github.com/desertthunder/setlist/internal/session"
	"github.com/desertthunder/setlist/internal/shared"
	"github.com/desertthunder/setlist/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	relay     *routes.Relay
	store     *session.Store
	client    *services.Client
	cache     *query.Cache
	reader    *query.Reader
	mutations *mutation.Coordinator
	exporter  *tasks.Exporter
	exports   *repositories.ExportRepository
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	DB         *sql.DB // persists the session and export history; nil keeps the session in memory
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner builds the session store, gateway client, query cache and mutation coordinator shared by every command.
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
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.API.Timeout}
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		relay:      &routes.Relay{},
	}
	r.wire()
	return r
}

func (r *Runner) wire() {
	cfg := r.config
	notifier := shared.LogNotifier{Logger: r.logger}

	var persister session.Persister = &session.MemoryPersister{}
	if r.db != nil {
		persister = repositories.NewSessionRepository(r.db)
		r.exports = repositories.NewExportRepository(r.db)
	}
	r.store = session.NewStore(session.StoreOpts{
		Persister: persister,
		Notifier:  notifier,
		Logger:    shared.WithLogger(r.logger, "component", "session"),
	})

	prepare := []services.RequestMiddleware{services.WithRequestID()}
	if cfg.API.UserAgent != "" {
		prepare = append(prepare, services.WithUserAgent(cfg.API.UserAgent))
	}
	if cfg.API.RateLimit > 0 {
		burst := max(1, int(cfg.API.RateLimit))
		prepare = append(prepare, services.WithRateLimit(rate.NewLimiter(rate.Limit(cfg.API.RateLimit), burst)))
	}
	prepare = append(prepare, services.WithBearer(r.store))

	r.client = services.NewClient(cfg.API.BaseURL,
		services.WithHTTPClient(r.httpClient),
		services.WithLogger(shared.WithLogger(r.logger, "component", "gateway")),
		services.WithPrepare(prepare...),
		services.WithInspect(services.WithUnauthorizedRedirect(r.store, r.relay, r.logger)),
	)
	r.store.SetAuthenticator(r.client.Auth())

	r.cache = query.NewCache(query.WithLogger(shared.WithLogger(r.logger, "component", "query")))
	r.reader = query.NewReader(r.cache, r.client.Songs(), r.client.Playlists(), query.PoliciesFromConfig(cfg.Cache))
	r.mutations = mutation.NewCoordinator(r.client.Playlists(), r.cache,
		mutation.WithNotifier(notifier),
		mutation.WithLogger(shared.WithLogger(r.logger, "component", "mutation")),
	)

	exporter := tasks.ExporterOpts{
		Source: r.reader,
		Covers: r.httpClient,
		Logger: shared.WithLogger(r.logger, "component", "export"),
	}
	if r.exports != nil {
		exporter.Recorder = r.exports
	}
	r.exporter = tasks.NewExporter(exporter)

	r.relay.Set(func(path string) {
		r.logger.Warn("session rejected by the server, sign in again with 'setlist auth login'", "route", path)
	})
}

// SetLogger replaces the logger and rebuilds the components so they log through it.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.wire()
}

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:     "setlist",
		Usage:    "Manage playlists on the music service from the terminal, a TUI or a local web front",
		Version:  "0.1.0",
		Writer:   r.output,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, songsCommand, playlistCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
