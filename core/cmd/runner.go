// Package cmd is the shared process entry point: load configuration,
// bootstrap the application, then run the bot next to its background tasks.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	coreconfig "github.com/m3rciful/mediabot/core/config"
	"github.com/m3rciful/mediabot/core/logger"
	coretelegram "github.com/m3rciful/mediabot/core/telegram"
)

// DefaultConfigEnvVar names the variable that overrides the config path.
const DefaultConfigEnvVar = "CONFIG_PATH"

// ConfigCarrier exposes the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp builds the bot runtime options.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// BackgroundTask runs next to the bot until ctx is done.
type BackgroundTask struct {
	Name string
	Run  func(ctx context.Context) error
}

// BackgroundApp is implemented by apps with long-running jobs besides the bot.
type BackgroundApp interface {
	BackgroundTasks() []BackgroundTask
}

// Options describe how to load, bootstrap and run the application.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
	// Context replaces the signal-bound root context.
	Context context.Context
}

func (o Options) configPath() (string, error) {
	env := o.ConfigEnvVar
	if env == "" {
		env = DefaultConfigEnvVar
	}
	if p := os.Getenv(env); p != "" {
		return p, nil
	}
	if o.DefaultConfigPath != "" {
		return o.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
}

// Run returns when the bot stops, a background task fails, or SIGINT/SIGTERM arrives.
func Run(opts Options) error {
	if opts.LoadConfig == nil || opts.Bootstrap == nil {
		return errors.New("cmd: LoadConfig and Bootstrap are required")
	}
	path, err := opts.configPath()
	if err != nil {
		return err
	}

	log.Printf("loading config: %s", path)
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg == nil || cfg.CoreConfig() == nil {
		return errors.New("cmd: loaded config is missing core configuration")
	}

	app, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	shutdown := opts.ShutdownLogger
	if shutdown == nil {
		shutdown = logger.Shutdown
	}
	defer func() {
		if err := shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}
	announceLifecycle(&runOpts, time.Now())

	root := opts.Context
	if root == nil {
		root = context.Background()
	}
	ctx, stop := signal.NotifyContext(root, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runBot := opts.RunTelegram
	if runBot == nil {
		runBot = coretelegram.RunTelegram
	}
	var tasks []BackgroundTask
	if bg, ok := app.(BackgroundApp); ok {
		tasks = bg.BackgroundTasks()
	}
	return runAll(ctx, stop, runOpts, runBot, tasks)
}

// announceLifecycle logs readiness and shutdown around the app's own hooks.
func announceLifecycle(ro *coretelegram.RunOptions, startedAt time.Time) {
	onStart, onStop := ro.OnStart, ro.OnStop
	appLog := logger.Component("app")
	ro.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		appLog.Info("app ready",
			slog.String("event", "ready"),
			slog.Duration("startup_duration", time.Since(startedAt)),
		)
		return nil
	}
	ro.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		appLog.Info("shutting down", slog.String("event", "shutdown"))
		if onStop != nil {
			return onStop(ctx, rt)
		}
		return nil
	}
}

// runAll runs the bot and tasks in one errgroup. The bot stopping cancels the
// tasks; a task failing cancels the bot. Cancellation errors are not failures.
func runAll(ctx context.Context, cancel context.CancelFunc, ro coretelegram.RunOptions,
	runBot func(context.Context, coretelegram.RunOptions) error, tasks []BackgroundTask) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		if task.Run == nil {
			continue
		}
		task := task
		g.Go(func() error {
			if err := task.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("cmd: background task %s: %w", task.Name, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer cancel()
		return runBot(gctx, ro)
	})
	return g.Wait()
}
