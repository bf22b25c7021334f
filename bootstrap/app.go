package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tienminhktvn/dataops-project/component"
	"github.com/tienminhktvn/dataops-project/logger"
)

// App runs a service with a uniform lifecycle. C is the config type; any
// struct embedding config.ServiceConfig satisfies Config.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
//	    return a.RegisterComponent(sched)
//	})
//	err = app.Run(ctx)
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	gracefulTimeout time.Duration
	summaryOut      io.Writer
	onConfigure     []func(ctx context.Context, app *App[C]) error

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewApp applies defaults, validates cfg and initializes the logger.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	base := cfg.GetServiceConfig()

	o := resolveOptions(opts)
	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		gracefulTimeout: 45 * time.Second,
		summaryOut:      os.Stdout,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.summaryOut != nil {
		app.summaryOut = o.summaryOut
	}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(&base.Logging)
		app.Logger = logger.GetGlobalLogger()
	}
	app.Components = component.NewRegistry().WithLogger(app.Logger)
	app.Summary = NewSummary(base.Name, base.Version)
	return app, nil
}

// RegisterComponent adds a component to the registry. Components start in
// registration order and stop in reverse.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnConfigure registers a callback for the configure phase, after the
// infrastructure components have started.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// ReadyCheck fails when any component is unhealthy. Degraded components,
// such as a scheduler whose last run failed, do not block readiness.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status != component.StatusUnhealthy {
			continue
		}
		detail := h.Name
		if h.Message != "" {
			detail += "(" + h.Message + ")"
		}
		unhealthy = append(unhealthy, detail)
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Run is the lifecycle of the long-running service: start, configure,
// ready, block on a signal or ctx, then shut down.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		a.abort()
		return err
	}
	a.Logger.Info("service ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)
	return a.stop()
}

// RunTask runs task with the same lifecycle and shuts down when it
// returns. SIGINT or SIGTERM cancels the task's context.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		a.abort()
		return err
	}

	taskCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	taskErr := task(taskCtx)
	if taskCtx.Err() != nil && ctx.Err() == nil {
		a.Logger.Warn("task interrupted by signal")
	}
	cancel()

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("starting "+a.Name, logger.Fields("version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	if err := a.configure(ctx); err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.DisplaySummary(ctx)
	return nil
}

// configure runs the configure callbacks. Components they register are
// started afterwards; StartAll skips the ones already running.
func (a *App[C]) configure(ctx context.Context) error {
	if len(a.onConfigure) == 0 {
		return nil
	}
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return err
		}
	}
	return a.Components.StartAll(ctx)
}

// DisplaySummary prints the startup summary with live component health.
func (a *App[C]) DisplaySummary(ctx context.Context) {
	a.Summary.Render(ctx, a.summaryOut, a.Components)
}

// WaitForSignal blocks until SIGINT, SIGTERM or ctx cancellation.
func (a *App[C]) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("received shutdown signal", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		a.Logger.Info("context cancelled, shutting down")
		return nil
	}
}

// Shutdown stops the app when the caller manages its own lifecycle.
func (a *App[C]) Shutdown(_ context.Context) error {
	return a.stop()
}

// abort stops whatever started before a failed startup.
func (a *App[C]) abort() {
	if err := a.stop(); err != nil {
		a.Logger.Warn("cleanup after failed startup", logger.Fields(logger.FieldError, err.Error()))
	}
}

func (a *App[C]) stop() error {
	a.Logger.Info("shutting down", logger.Fields("timeout", a.gracefulTimeout.String()))
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("onStop hook error", logger.Fields(logger.FieldError, err.Error()))
		shutdownErr = err
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		shutdownErr = err
	}
	a.Logger.Info("shutdown complete")
	return shutdownErr
}
