package container

import "sync"

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related bindings so bootstrap code can compose an
// application out of modules.
//
// Every provider must implement at minimum Register(). Boot() is called
// after ALL providers have been registered, making it safe to resolve
// other bindings inside Boot().
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) {
//	    app.Singleton("logger", func(r container.Resolver) (any, error) {
//	        cfg, err := container.Resolve[*config.Config](r, "config")
//	        if err != nil {
//	            return nil, err
//	        }
//	        return logging.New(cfg.Log)
//	    })
//	}
//
//	func (p *AppServiceProvider) Boot(app *container.Container) error {
//	    logger, err := container.Resolve[*zap.Logger](app, "logger")
//	    if err != nil {
//	        return err
//	    }
//	    logger.Info("application booted")
//	    return nil
//	}
type ServiceProvider interface {
	// Register binds services into the container.
	// Do NOT resolve other bindings here; use Boot() for that.
	Register(app *Container)

	// Boot is called after all providers are registered.
	// Safe to resolve and use any binding here. A non-nil error is a
	// configuration failure and aborts boot.
	Boot(app *Container) error

	// Provides returns the list of capability keys this provider
	// registers. Used for deferred (lazy) provider loading. Return nil
	// if the provider is always eager.
	Provides() []string

	// IsDeferred returns true if this provider should be loaded lazily,
	// only when one of its Provides() capabilities is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct that provides no-op implementations
// of Boot(), Provides(), and IsDeferred().
// Embed it in your provider and only override what you need.
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(app *container.Container) { ... }
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []string      { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred (lazy) providers.
type ProviderRegistry struct {
	app *Container

	mu         sync.Mutex
	eager      []ServiceProvider
	registered map[ServiceProvider]bool
	loaded     map[ServiceProvider]bool // deferred providers already materialized
	booted     bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		registered: make(map[ServiceProvider]bool),
		loaded:     make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register() method (unless
// deferred). Registering the same provider twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true
	booted := r.booted
	r.mu.Unlock()

	if provider.IsDeferred() {
		r.interceptDeferred(provider)
		return nil
	}

	provider.Register(r.app)

	r.mu.Lock()
	r.eager = append(r.eager, provider)
	r.mu.Unlock()

	// A provider registered after Boot() is booted immediately.
	if booted {
		return provider.Boot(r.app)
	}
	return nil
}

// interceptDeferred installs a lazy binding for each deferred capability.
// The first resolution materializes the provider's real bindings and then
// resolves through them. Materialization after Seal is allowed: the
// capability set was declared before sealing via Provides().
func (r *ProviderRegistry) interceptDeferred(provider ServiceProvider) {
	for _, abstract := range provider.Provides() {
		abs := abstract
		r.app.bindPlaceholder(abs, func(res Resolver) (any, error) {
			if err := r.load(provider); err != nil {
				return nil, err
			}
			// Re-enter resolution with this placeholder's own frame
			// popped, so the real binding does not look like a cycle.
			if child, ok := res.(*resolution); ok {
				fresh := resolution{
					container: child.container,
					scope:     child.scope,
					stack:     child.stack[:len(child.stack)-1],
				}
				return fresh.Resolve(abs)
			}
			return r.app.Resolve(abs)
		})
	}
}

// load materializes a deferred provider exactly once.
func (r *ProviderRegistry) load(provider ServiceProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded[provider] {
		return nil
	}
	r.loaded[provider] = true

	r.app.beginLoad()
	provider.Register(r.app)
	r.app.endLoad()

	if r.booted {
		return provider.Boot(r.app)
	}
	return nil
}

// Boot calls Boot() on all eager providers, in registration order. Must be
// called after ALL providers have been registered. The first boot failure
// aborts and is returned.
func (r *ProviderRegistry) Boot() error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	providers := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range providers {
		if err := provider.Boot(r.app); err != nil {
			return err
		}
	}
	return nil
}

// Booted returns true if Boot() has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns all registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}
