// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file or DATAGATE_* environment
// variables; everything else is constructed here.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artpar/datagate/adapters/clock"
	gatehttp "github.com/artpar/datagate/adapters/http"
	"github.com/artpar/datagate/adapters/http/admin"
	"github.com/artpar/datagate/adapters/idgen"
	"github.com/artpar/datagate/adapters/memory"
	"github.com/artpar/datagate/adapters/metrics"
	"github.com/artpar/datagate/adapters/sqlite"
	"github.com/artpar/datagate/app"
	"github.com/artpar/datagate/config"
	"github.com/artpar/datagate/domain/call"
	"github.com/artpar/datagate/ports"
	"github.com/artpar/datagate/registry"
)

// App represents the running application.
type App struct {
	Logger   zerolog.Logger
	Config   *config.Config
	DB       *sqlite.DB
	Registry *registry.Registry
	Metrics  *metrics.Collector

	AdminServer *http.Server

	// Services
	filters *app.FilterService
	version string

	// Adapters (for cleanup)
	promRegistry *prometheus.Registry
	transport    *gatehttp.Client
	recorder     ports.CallRecorder
	callStore    ports.CallStore
	holder       *config.Holder
}

// Options provides optional overrides for application construction.
type Options struct {
	// Logger replaces the logger built from the logging config.
	Logger *zerolog.Logger

	// Version is reported by the admin healthz endpoint.
	Version string
}

// New creates and initializes the application.
func New(cfg *config.Config) (*App, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates and initializes the application with custom
// options.
func NewWithOptions(cfg *config.Config, opts Options) (*App, error) {
	logger := SetupLogger(cfg.Logging)
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	logger.Info().Msg("initializing datagate")

	a := &App{
		Logger:   logger,
		Config:   cfg,
		Registry: registry.New(),
		filters:  app.NewFilterService(),
		version:  opts.Version,
	}

	a.transport = gatehttp.NewClient(gatehttp.ClientConfig{
		Timeout:         cfg.Transport.Timeout,
		MaxIdleConns:    cfg.Transport.MaxIdleConns,
		IdleConnTimeout: cfg.Transport.IdleConnTimeout,
		MaxBodyBytes:    cfg.Transport.MaxBodyBytes,
		UserAgent:       cfg.Transport.UserAgent,
		Headers:         cfg.Transport.Headers,
	})

	if err := a.initRecorder(cfg); err != nil {
		return nil, fmt.Errorf("init recorder: %w", err)
	}

	handlers, err := a.buildHandlers(cfg)
	if err != nil {
		a.closeAdapters()
		return nil, err
	}
	a.Registry.Replace(handlers)
	logger.Info().Int("resources", len(handlers)).Msg("resource handlers built")

	if cfg.Admin.Enabled {
		a.initAdminServer(cfg)
	}

	return a, nil
}

// NewWithHotReload creates the application from a config file and
// watches it for changes, rebuilding the resource handlers on every
// successful reload. Transport, recorder and admin settings stay fixed
// until restart. SIGHUP forces a reload.
func NewWithHotReload(path string, opts Options) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	a, err := NewWithOptions(cfg, opts)
	if err != nil {
		return nil, err
	}

	holder, err := config.NewHolder(path, a.Logger)
	if err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("config holder: %w", err)
	}
	holder.OnChange(func(next *config.Config) {
		if err := a.Rebuild(next); err != nil {
			a.Logger.Error().Err(err).Msg("config reload failed, keeping old handlers")
		}
	})
	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch unavailable")
	}
	holder.WatchSignals()
	a.holder = holder

	return a, nil
}

// Validate builds every resource handler from the configuration and
// discards the result. All expressions compile during the build, so a
// config that passes here cannot fail handler construction at startup.
func Validate(cfg *config.Config) error {
	a := &App{
		Logger:  zerolog.Nop(),
		Config:  cfg,
		filters: app.NewFilterService(),
	}
	_, err := a.buildHandlers(cfg)
	return err
}

// initRecorder builds the audit chain: the configured store, the batch
// recorder in front of it and, when metrics are enabled, the metrics
// observer in front of both.
func (a *App) initRecorder(cfg *config.Config) error {
	switch cfg.Recorder.Mode {
	case "none":
		// no store, events are dropped
	case "memory":
		a.callStore = memory.NewCallStore()
	case "sqlite":
		db, err := sqlite.Open(cfg.Recorder.DSN)
		if err != nil {
			return err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return fmt.Errorf("migrate: %w", err)
		}
		a.DB = db
		a.callStore = sqlite.NewCallStore(db)
		a.Logger.Info().Str("dsn", cfg.Recorder.DSN).Msg("call store initialized")
	default:
		return fmt.Errorf("unknown recorder mode %q", cfg.Recorder.Mode)
	}

	var next ports.CallRecorder
	if a.callStore != nil {
		next = NewBatchRecorder(a.callStore, cfg.Recorder.BatchSize, cfg.Recorder.FlushInterval)
	}

	if cfg.Metrics.Enabled {
		a.promRegistry = prometheus.NewRegistry()
		a.Metrics = metrics.NewWithRegistry(a.promRegistry)
		a.recorder = metrics.NewRecorder(a.Metrics, next)
		a.Logger.Info().Msg("prometheus metrics enabled")
	} else {
		a.recorder = next
	}

	return nil
}

// buildHandlers constructs one resource facade per configured resource.
func (a *App) buildHandlers(cfg *config.Config) ([]*app.Handler, error) {
	handlers := make([]*app.Handler, 0, len(cfg.Resources))
	for _, res := range cfg.Resources {
		h, err := a.buildResource(cfg, res)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", res.ID(), err)
		}
		handlers = append(handlers, h)
	}
	return handlers, nil
}

// buildResource builds the call contracts and executors for one
// resource. When an operation declares refresh_token, a single refresh
// interceptor watches that operation's responses and installs the
// extracted credential on every executor of the resource.
func (a *App) buildResource(cfg *config.Config, res config.ResourceConfig) (*app.Handler, error) {
	var refresh *app.CredentialRefresh
	for _, op := range res.Operations {
		if op.RefreshToken != "" {
			refresh = app.NewCredentialRefresh(refreshPath(op.RefreshToken), a.Logger)
			break
		}
	}

	var ops app.Operations
	var execs []*app.HTTPExecutor
	for name, op := range res.Operations {
		c, exec, err := a.buildOperation(cfg, res, name, op, refresh)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		execs = append(execs, exec)

		switch name {
		case app.OpGet:
			ops.Get = c
		case app.OpFind:
			ops.Find = c
		case app.OpFindByID:
			ops.FindByID = c
		case app.OpFindByIDRange:
			ops.FindByIDRange = c
		case app.OpPut:
			ops.Put = c
		}
	}

	if refresh != nil {
		for _, exec := range execs {
			refresh.AddTarget(exec)
		}
	}

	return app.NewHandler(res.Domain, res.Name, ops), nil
}

// buildOperation translates one operation config into a bound call
// contract. The executor it returns is also needed by the caller for
// credential refresh wiring.
func (a *App) buildOperation(cfg *config.Config, res config.ResourceConfig, name string, op config.OperationConfig, refresh *app.CredentialRefresh) (*app.Call, *app.HTTPExecutor, error) {
	kind, err := call.ParseOutputKind(op.Output)
	if err != nil {
		return nil, nil, err
	}

	opts := app.HTTPOptions{
		Resource:      res.ID(),
		Operation:     name,
		Method:        op.Method,
		BaseURL:       cfg.Transport.BaseURL,
		Path:          op.Path,
		FullPath:      op.FullPath,
		Query:         op.Query,
		Headers:       op.Headers,
		BodyType:      op.BodyType,
		FilterPattern: op.FilterPattern,
		MaxRetries:    op.ErrorRetries,
	}

	opts.Rules.Static = call.Params(op.ParamsStatic)
	opts.Rules.Map = op.ParamsMap
	if len(op.Providers) > 0 {
		opts.Rules.Providers = make(map[string]call.ProviderFunc, len(op.Providers))
		for key, src := range op.Providers {
			fn, perr := a.filters.Provider(src)
			if perr != nil {
				return nil, nil, fmt.Errorf("provider %q: %w", key, perr)
			}
			opts.Rules.Providers[key] = fn
		}
	}

	if auth := op.Authorization; auth != nil {
		switch {
		case auth.Token != "":
			cred := call.Bearer(auth.Token)
			opts.Credential = &cred
		case auth.User != "" || auth.Pass != "":
			cred := call.Basic(auth.User, auth.Pass)
			opts.Credential = &cred
		}
		opts.AuthFields = auth.Fields
	}

	if op.Body != "" {
		opts.Body = op.Body
	}
	if op.BodyPattern != "" {
		opts.BodyBuilder = call.BodyPattern{Template: op.BodyPattern}
	}

	if op.ValidateExpr != "" {
		opts.Validate, err = a.filters.Validator(op.ValidateExpr)
		if err != nil {
			return nil, nil, err
		}
	}
	if op.FilterExpr != "" {
		opts.Filter, err = a.filters.OutputFilter(op.FilterExpr)
		if err != nil {
			return nil, nil, err
		}
	}
	if op.JSONFilter != "" {
		opts.JSONFilter, err = a.filters.OutputFilter(op.JSONFilter)
		if err != nil {
			return nil, nil, err
		}
	}

	if op.ErrorResponse != "" {
		opts.ErrorResponse = op.ErrorResponse
	}
	if op.RefreshToken != "" {
		opts.Interceptor = refresh
	}

	exec := app.NewHTTPExecutor(opts, a.transport, clock.Real{}, clock.Real{}, idgen.UUID{}, a.recorder, a.Logger)

	c := app.NewCall(op.Input, kind)
	c.AllowRetries = !op.DisableRetries
	c.Bind(exec)

	return c, exec, nil
}

// refreshPath maps the config spelling to the interceptor's. A bare
// dot selects the whole output, which the interceptor spells as the
// empty path; the empty config value means no refresh at all.
func refreshPath(p string) string {
	if p == "." {
		return ""
	}
	return p
}

func (a *App) initAdminServer(cfg *config.Config) {
	var gatherer prometheus.Gatherer
	if a.promRegistry != nil {
		gatherer = a.promRegistry
	}

	srv := admin.NewServer(admin.Deps{
		Registry: a.Registry,
		Calls:    a.callStore,
		Gatherer: gatherer,
		Logger:   a.Logger,
		Version:  a.version,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Admin.Host, cfg.Admin.Port)
	a.AdminServer = &http.Server{
		Addr:         addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Admin.ReadTimeout,
		WriteTimeout: cfg.Admin.WriteTimeout,
	}

	a.Logger.Info().Str("addr", addr).Msg("admin server configured")
}

// Resource returns the handler for domain:name.
func (a *App) Resource(domain, name string) (*app.Handler, bool) {
	return a.Registry.ByName(domain, name)
}

// Rebuild replaces the resource handlers from a fresh configuration.
// The transport, recorder and admin endpoint keep running; only the
// handler set swaps, atomically. Used by hot reload.
func (a *App) Rebuild(cfg *config.Config) error {
	handlers, err := a.buildHandlers(cfg)
	if err != nil {
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
		return fmt.Errorf("rebuild handlers: %w", err)
	}

	a.Registry.Replace(handlers)
	a.Config = cfg

	if a.Metrics != nil {
		a.Metrics.ConfigReloads.Inc()
		a.Metrics.ConfigLastReload.SetToCurrentTime()
	}
	a.Logger.Info().Int("resources", len(handlers)).Msg("resource handlers rebuilt")
	return nil
}

// Run starts the admin server and blocks until shutdown.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	if a.AdminServer != nil {
		go func() {
			a.Logger.Info().
				Str("addr", a.AdminServer.Addr).
				Msg("starting admin server")
			if err := a.AdminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
	}

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
		a.holder = nil
	}

	if a.AdminServer != nil {
		if err := a.AdminServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("admin server shutdown error")
		}
	}

	a.closeAdapters()

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func (a *App) closeAdapters() {
	// Flush the recorder before its store goes away
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("call recorder close error")
		}
		a.recorder = nil
	}

	if a.transport != nil {
		a.transport.Close()
		a.transport = nil
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
		a.DB = nil
	}
}

// SetupLogger builds the process logger from the logging config.
func SetupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
