package providers

import (
	"go.uber.org/zap"

	"github.com/km-arc/go-mediator/framework/config"
	"github.com/km-arc/go-mediator/framework/container"
	gohttp "github.com/km-arc/go-mediator/framework/http"
	"github.com/km-arc/go-mediator/framework/logging"
	"github.com/km-arc/go-mediator/framework/metrics"
	"github.com/km-arc/go-mediator/framework/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider loads the application configuration from .env,
// an optional YAML file, and process environment, and binds it as
// "config".
type ConfigServiceProvider struct {
	container.BaseProvider
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(app *container.Container) {
	envFiles := p.EnvFiles
	app.Singleton("config", func(container.Resolver) (any, error) {
		return config.Load(envFiles...)
	})
	app.Alias("config", "configuration")
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider builds the zap logger from config and binds it as
// "logger".
type LoggingServiceProvider struct {
	container.BaseProvider
}

func (p *LoggingServiceProvider) Register(app *container.Container) {
	app.Singleton("logger", func(r container.Resolver) (any, error) {
		cfg, err := container.Resolve[*config.Config](r, "config")
		if err != nil {
			return nil, err
		}
		return logging.New(cfg.Log, cfg.App.Debug)
	})
}

func (p *LoggingServiceProvider) Boot(app *container.Container) error {
	logger, err := container.Resolve[*zap.Logger](app, "logger")
	if err != nil {
		return err
	}
	cfg, err := container.Resolve[*config.Config](app, "config")
	if err != nil {
		return err
	}
	logger.Info("application booting",
		zap.String("name", cfg.App.Name),
		zap.String("env", cfg.App.Env))

	// Every construction shows up in the debug log, one line per
	// capability; cache hits stay silent.
	app.AfterResolving(func(abstract string, _ any) {
		logger.Debug("resolved", zap.String("capability", abstract))
	})
	return nil
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider binds the Prometheus registry wrapper as
// "metrics".
type MetricsServiceProvider struct {
	container.BaseProvider
}

func (p *MetricsServiceProvider) Register(app *container.Container) {
	app.Singleton("metrics", func(container.Resolver) (any, error) {
		return metrics.New(), nil
	})
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router as "router", with the
// scope-per-request middleware already attached (chi requires the full
// middleware stack before the first route).
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(app *container.Container) {
	app.Singleton("router", func(r container.Resolver) (any, error) {
		c, err := container.Resolve[*container.Container](r, "container")
		if err != nil {
			return nil, err
		}
		logger, err := container.Resolve[*zap.Logger](r, "logger")
		if err != nil {
			return nil, err
		}
		router := routing.New()
		router.Middleware(gohttp.ScopeMiddleware(c, logger))
		return router, nil
	})
}
