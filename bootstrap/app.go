package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/captionkit/logger"
	"github.com/kbukum/captionkit/observability"
)

// Hook runs during startup or shutdown.
type Hook func(ctx context.Context) error

// App owns the lifecycle of a service with config type C.
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Logger  *logger.Logger

	components      *registry
	gracefulTimeout time.Duration
	signals         bool
	onReady         []Hook
	onStop          []Hook
}

// NewApp applies defaults, validates cfg and initialises logging.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	base := cfg.GetServiceConfig()

	o := &appOptions{gracefulTimeout: 15 * time.Second, signals: true}
	for _, opt := range opts {
		opt(o)
	}
	log := o.logger
	if log == nil {
		logger.Init(base.Logging)
		log = logger.New(&base.Logging, base.Name)
		logger.SetGlobalLogger(log)
	}

	return &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Logger:          log,
		components:      newRegistry(log.WithComponent("bootstrap")),
		gracefulTimeout: o.gracefulTimeout,
		signals:         o.signals,
	}, nil
}

// Register adds a component. Components start in registration order, so
// register dependencies first.
func (a *App[C]) Register(c Component) error {
	return a.components.register(c)
}

// OnReady registers hooks that run once every component has started.
func (a *App[C]) OnReady(hooks ...Hook) { a.onReady = append(a.onReady, hooks...) }

// OnStop registers hooks that run before components are stopped.
func (a *App[C]) OnStop(hooks ...Hook) { a.onStop = append(a.onStop, hooks...) }

// HealthCheckers returns every registered component as a health checker.
func (a *App[C]) HealthCheckers() []observability.HealthChecker {
	return a.components.checkers()
}

// Run starts the service, blocks until a shutdown signal or ctx is done, and
// shuts down gracefully. Components already started are stopped when startup fails.
func (a *App[C]) Run(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.components.startAll(ctx); err != nil {
		_ = a.stop()
		return fmt.Errorf("startup failed: %w", err)
	}
	for i, h := range a.onReady {
		if err := h(ctx); err != nil {
			_ = a.stop()
			return fmt.Errorf("ready hook %d failed: %w", i, err)
		}
	}
	a.logSummary(ctx, time.Since(start))

	a.wait(ctx)
	return a.stop()
}

func (a *App[C]) wait(ctx context.Context) {
	if !a.signals {
		<-ctx.Done()
		a.Logger.Info("context canceled, shutting down")
		return
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("received shutdown signal", logger.Fields("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.Info("context canceled, shutting down")
	}
}

func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var firstErr error
	for i, h := range a.onStop {
		if err := h(ctx); err != nil {
			a.Logger.Error("stop hook failed", logger.Fields("hook", i, logger.FieldError, err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if err := a.components.stopAll(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	a.Logger.Info("application shutdown complete")
	return firstErr
}

// logSummary logs one line per component with its live health.
func (a *App[C]) logSummary(ctx context.Context, took time.Duration) {
	healthy := 0
	comps := a.components.components()
	for _, c := range comps {
		h := c.CheckHealth(ctx)
		fields := logger.Fields(logger.FieldComponent, c.Name(), logger.FieldStatus, string(h.Status))
		if d, ok := c.(Describable); ok {
			fields["details"] = d.Describe()
		}
		if h.Message != "" {
			fields["message"] = h.Message
		}
		if h.Status == observability.HealthStatusUp {
			healthy++
			a.Logger.Info("component ready", fields)
		} else {
			a.Logger.Warn("component not healthy", fields)
		}
	}
	a.Logger.Info("application ready", logger.Fields(
		"startup_ms", took.Milliseconds(),
		"healthy", fmt.Sprintf("%d/%d", healthy, len(comps)),
	))
}
