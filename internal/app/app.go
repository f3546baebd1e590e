// Package app wires configuration, storage, the download engine and the
// Telegram handlers into a runnable bot.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	corebootstrap "github.com/m3rciful/mediabot/core/bootstrap"
	corecmd "github.com/m3rciful/mediabot/core/cmd"
	"github.com/m3rciful/mediabot/core/logger"
	coretelegram "github.com/m3rciful/mediabot/core/telegram"
	"github.com/m3rciful/mediabot/core/telegram/middleware"
	"github.com/m3rciful/mediabot/core/telegram/router"
	"github.com/m3rciful/mediabot/internal/admin"
	"github.com/m3rciful/mediabot/internal/bot"
	"github.com/m3rciful/mediabot/internal/config"
	"github.com/m3rciful/mediabot/internal/coordinator"
	"github.com/m3rciful/mediabot/internal/engine"
	"github.com/m3rciful/mediabot/internal/metrics"
	"github.com/m3rciful/mediabot/internal/refresher"
	"github.com/m3rciful/mediabot/internal/store"
)

// Options replace infrastructure constructors in tests.
type Options struct {
	Bootstrap func(corebootstrap.Options) (*corebootstrap.Result, error)
	NewEngine func(ctx context.Context, workdir string, opts engine.Options) (engine.Engine, error)
	Registry  *prometheus.Registry
}

// App holds the initialized bot dependencies.
type App struct {
	cfg      *config.Config
	infra    *corebootstrap.Result
	store    *store.Store
	handle   *engine.Handle
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	admin    *admin.Handler
}

// Bootstrap matches the signature expected by the core runner.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(context.Background(), cfg, Options{})
}

// New initializes logging, storage and the engine.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	boot := opts.Bootstrap
	if boot == nil {
		boot = corebootstrap.Run
	}
	infra, err := boot(corebootstrap.Options{
		Config:      cfg.CoreConfig(),
		Database:    cfg.Database,
		UseDatabase: cfg.Storage.Driver == config.StoragePostgres,
	})
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, infra: infra}
	if err := a.init(ctx, opts); err != nil {
		_ = infra.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, opts Options) error {
	if err := os.MkdirAll(a.cfg.App.Workdir, 0o755); err != nil {
		return fmt.Errorf("app: create workdir: %w", err)
	}

	a.registry = opts.Registry
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
	}
	m, err := metrics.New(a.registry)
	if err != nil {
		return err
	}
	a.metrics = m

	var snap store.Snapshotter
	switch a.cfg.Storage.Driver {
	case config.StoragePostgres:
		if a.infra == nil || a.infra.DB == nil {
			return fmt.Errorf("app: postgres storage selected but no database connection")
		}
		snap = store.NewPostgresSnapshot(a.infra.DB)
	default:
		snap = store.NewFileSnapshot(a.cfg.Storage.File)
	}
	st, err := store.Open(ctx, snap, store.WithPersistFailureHook(m.SnapshotFailed))
	if err != nil {
		return err
	}
	a.store = st
	a.admin = admin.New(st)

	newEngine := opts.NewEngine
	if newEngine == nil {
		newEngine = func(ctx context.Context, workdir string, o engine.Options) (engine.Engine, error) {
			return engine.NewYTDLP(ctx, workdir, o)
		}
	}
	logger.Info(ctx, "engine", "engine.prepare", slog.String("path", a.cfg.App.Workdir))
	eng, err := newEngine(ctx, a.cfg.App.Workdir, engine.Options{
		Timeout:     a.cfg.Engine.Timeout(),
		SkipInstall: a.cfg.Engine.SkipInstall,
	})
	if err != nil {
		return err
	}
	a.handle = engine.NewHandle(eng)
	return nil
}

// Store exposes the registry (tests, diagnostics).
func (a *App) Store() *store.Store { return a.store }

// TelegramRunOptions builds the routes and middleware for the bot runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	coreCfg := a.cfg.CoreConfig()
	reg := coretelegram.NewRegistry()

	flow := bot.NewFlow(func(m coordinator.Messenger) bot.Flow {
		return coordinator.New(a.store, a.handle, m, a.metrics)
	})
	handlers := bot.NewHandlers(flow, a.admin)
	if err := handlers.Register(reg); err != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: register handlers: %w", err)
	}

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       coreCfg.Telegram.AdminID,
		OnAdminReject: handlers.OnText,
	})
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	// The allow-list gate runs ahead of logging so unknown senders leave no trace.
	gate := coretelegram.Middleware{
		Name: "allow_list",
		Use: middleware.AllowListMiddleware(middleware.AllowListOptions{
			AdminID: coreCfg.Telegram.AdminID,
			Allowed: a.store.Contains,
		}),
	}
	return coretelegram.RunOptions{
		Config:      coreCfg,
		Registry:    reg,
		Middlewares: append([]coretelegram.Middleware{gate}, coretelegram.DefaultMiddlewares(coreCfg, handlers.OnLimited)...),
		Routes:      routes,
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			logger.Info(ctx, "app", "registry.loaded", slog.Int("users", len(a.store.List())))
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			if rt.Dispatcher != nil {
				if n := rt.Dispatcher.ErrorCount(); n > 0 {
					logger.Warn(ctx, "app", "send.failures", slog.Uint64("count", n))
				}
			}
			return a.Close()
		},
	}, nil
}

// BackgroundTasks returns the engine refresher and, when configured, the metrics listener.
func (a *App) BackgroundTasks() []corecmd.BackgroundTask {
	tasks := []corecmd.BackgroundTask{{
		Name: "refresher",
		Run:  refresher.New(a.handle, a.cfg.Engine.UpdateInterval(), a.metrics).Run,
	}}
	if a.cfg.Metrics.Listen != "" {
		listen := a.cfg.Metrics.Listen
		tasks = append(tasks, corecmd.BackgroundTask{
			Name: "metrics",
			Run: func(ctx context.Context) error {
				return metrics.Serve(ctx, listen, a.registry)
			},
		})
	}
	return tasks
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a == nil || a.infra == nil {
		return nil
	}
	return a.infra.Close()
}
