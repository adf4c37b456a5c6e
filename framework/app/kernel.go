package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-mediator/framework/bus"
	"github.com/km-arc/go-mediator/framework/config"
	"github.com/km-arc/go-mediator/framework/container"
	"github.com/km-arc/go-mediator/framework/metrics"
	"github.com/km-arc/go-mediator/framework/providers"
	"github.com/km-arc/go-mediator/framework/routing"
)

// Application is the top-level kernel. It embeds the IoC Container and the
// ProviderRegistry so bootstrap code can call app.Bind(), app.Singleton(),
// app.Register() directly, and owns the bus builder that routes requests
// to handlers.
//
// Lifecycle: New → Register providers, bind handlers, declare bus wiring →
// Boot (providers boot, bus validates, container seals) → Run.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry

	builder *bus.Builder
	bus     *bus.Bus
	booted  bool
}

// New creates the application and registers the framework core providers.
func New(envFiles ...string) *Application {
	c := container.New()
	registry := container.NewProviderRegistry(c)

	a := &Application{
		Container: c,
		Providers: registry,
		builder:   bus.NewBuilder(),
	}

	must(registry.Register(&providers.ConfigServiceProvider{EnvFiles: envFiles}))
	must(registry.Register(&providers.LoggingServiceProvider{}))
	must(registry.Register(&providers.MetricsServiceProvider{}))
	must(registry.Register(&providers.RoutingServiceProvider{}))

	return a
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Builder exposes the bus builder for handler and behavior registration.
// Only meaningful before Boot.
func (a *Application) Builder() *bus.Builder { return a.builder }

// Bus returns the mediator. Nil before Boot.
func (a *Application) Bus() *bus.Bus { return a.bus }

// Boot runs the provider boot phase, validates and builds the bus, and
// seals the container. A *bus.ConfigError here means the handler table is
// miswired; nothing has been dispatched yet.
func (a *Application) Boot() error {
	if a.booted {
		return nil
	}

	if err := a.Providers.Boot(); err != nil {
		return err
	}

	b, err := a.builder.Build(a.Container)
	if err != nil {
		return err
	}
	a.bus = b

	cfg := a.Config()
	if cfg.Metrics.Enabled {
		a.Router().Mount(cfg.Metrics.Path, a.Metrics().Handler())
	}

	// Registration is done: the registry is read-only from here on.
	a.Container.Seal()
	a.booted = true
	return nil
}

// Run boots the application (if needed) and serves HTTP until the process
// receives SIGINT/SIGTERM, then shuts down gracefully and disposes the
// container's singletons.
func (a *Application) Run() error {
	if err := a.Boot(); err != nil {
		return err
	}

	cfg := a.Config()
	logger := a.Logger()

	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: a.Router(),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	logger.Info("listening",
		zap.String("addr", srv.Addr),
		zap.String("env", cfg.App.Env))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}

	return a.Container.Close()
}

// ── Accessors ────────────────────────────────────────────────────────────────

// Config resolves *config.Config from the container.
func (a *Application) Config() *config.Config {
	return container.MustResolve[*config.Config](a.Container, "config")
}

// Logger resolves *zap.Logger from the container.
func (a *Application) Logger() *zap.Logger {
	return container.MustResolve[*zap.Logger](a.Container, "logger")
}

// Metrics resolves *metrics.Metrics from the container.
func (a *Application) Metrics() *metrics.Metrics {
	return container.MustResolve[*metrics.Metrics](a.Container, "metrics")
}

// Router resolves *routing.Router from the container.
func (a *Application) Router() *routing.Router {
	return container.MustResolve[*routing.Router](a.Container, "router")
}

// Environment returns the APP_ENV value.
func (a *Application) Environment() string { return a.Config().App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config().App.Debug }

func must(err error) {
	if err != nil {
		panic(err)
	}
}
