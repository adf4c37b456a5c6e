package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/go-mediator/framework/app"
	"github.com/km-arc/go-mediator/framework/bus"
	"github.com/km-arc/go-mediator/framework/bus/middleware"
	"github.com/km-arc/go-mediator/framework/config"
	"github.com/km-arc/go-mediator/framework/container"
	gohttp "github.com/km-arc/go-mediator/framework/http"
	"github.com/km-arc/go-mediator/framework/metrics"
	"github.com/km-arc/go-mediator/framework/routing"
	"github.com/km-arc/go-mediator/framework/validation"
)

// ── Domain ───────────────────────────────────────────────────────────────────

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

var ErrUserNotFound = errors.New("user not found")

// UserRepository is the persistence boundary; the core never knows what
// backs it.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
}

type memoryUserRepository struct {
	mu    sync.Mutex
	seq   int
	users map[string]*User
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: make(map[string]*User)}
}

func (s *memoryUserRepository) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	u.ID = fmt.Sprintf("%d", s.seq)
	s.users[u.ID] = u
	return nil
}

func (s *memoryUserRepository) Find(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return u, nil
}

// auditRepository decorates UserRepository with write logging. Wired via
// container.Extend, so resolving "repository.users" yields this wrapper
// around the in-memory store.
type auditRepository struct {
	inner  UserRepository
	logger *zap.Logger
}

func (a *auditRepository) Create(ctx context.Context, u *User) error {
	if err := a.inner.Create(ctx, u); err != nil {
		return err
	}
	a.logger.Info("user created", zap.String("id", u.ID))
	return nil
}

func (a *auditRepository) Find(ctx context.Context, id string) (*User, error) {
	return a.inner.Find(ctx, id)
}

// ── Commands & queries ───────────────────────────────────────────────────────

type CreateUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c CreateUser) Validate() error {
	return validation.Make(map[string]string{
		"name":  c.Name,
		"email": c.Email,
	}, validation.Rules{
		"name":  "required|min:2|max:100",
		"email": "required|email",
	}).Err()
}

type GetUser struct {
	ID string
}

// ── Provider ─────────────────────────────────────────────────────────────────

// AppServiceProvider wires the example domain: repository, handlers, and
// the built-in behaviors.
type AppServiceProvider struct {
	container.BaseProvider
}

func (p *AppServiceProvider) Register(c *container.Container) {
	c.Singleton("repository.users", func(container.Resolver) (any, error) {
		return newMemoryUserRepository(), nil
	})
	c.Extend("repository.users", func(inner any, r container.Resolver) (any, error) {
		logger, err := container.Resolve[*zap.Logger](r, "logger")
		if err != nil {
			return nil, err
		}
		return &auditRepository{inner: inner.(UserRepository), logger: logger}, nil
	})

	// Handlers are scoped: one instance per request.
	c.Scoped("handler.createUser", func(r container.Resolver) (any, error) {
		repo, err := container.Resolve[UserRepository](r, "repository.users")
		if err != nil {
			return nil, err
		}
		return bus.HandlerOf(func(ctx context.Context, cmd CreateUser) (*User, error) {
			u := &User{Name: cmd.Name, Email: cmd.Email}
			if err := repo.Create(ctx, u); err != nil {
				return nil, err
			}
			return u, nil
		}), nil
	})
	c.Scoped("handler.getUser", func(r container.Resolver) (any, error) {
		repo, err := container.Resolve[UserRepository](r, "repository.users")
		if err != nil {
			return nil, err
		}
		return bus.HandlerOf(func(ctx context.Context, q GetUser) (*User, error) {
			return repo.Find(ctx, q.ID)
		}), nil
	})

	// Behaviors are capabilities too; they resolve their own dependencies.
	c.Singleton("behavior.validation", func(container.Resolver) (any, error) {
		return middleware.NewValidation(), nil
	})
	c.Singleton("behavior.throttle", func(r container.Resolver) (any, error) {
		cfg, err := container.Resolve[*config.Config](r, "config")
		if err != nil {
			return nil, err
		}
		return middleware.NewThrottle(cfg.Bus.RateLimit, cfg.Bus.RateBurst), nil
	})
	c.Singleton("behavior.logging", func(r container.Resolver) (any, error) {
		logger, err := container.Resolve[*zap.Logger](r, "logger")
		if err != nil {
			return nil, err
		}
		return middleware.NewLogging(logger), nil
	})
	c.Singleton("behavior.timing", func(r container.Resolver) (any, error) {
		cfg, err := container.Resolve[*config.Config](r, "config")
		if err != nil {
			return nil, err
		}
		m, err := container.Resolve[*metrics.Metrics](r, "metrics")
		if err != nil {
			return nil, err
		}
		logger, err := container.Resolve[*zap.Logger](r, "logger")
		if err != nil {
			return nil, err
		}
		return middleware.NewTiming(m, logger, cfg.Bus.SlowThreshold), nil
	})
}

func main() {
	application := app.New() // loads .env and config.yaml automatically

	if err := application.Register(&AppServiceProvider{}); err != nil {
		log.Fatalf("register: %v", err)
	}

	// Bus wiring: one handler per request shape, behaviors in key order.
	builder := application.Builder()
	bus.Handle[CreateUser, *User](builder, "handler.createUser")
	bus.Handle[GetUser, *User](builder, "handler.getUser")
	builder.Use("behavior.validation", 0)
	builder.Use("behavior.throttle", 5)
	builder.Use("behavior.logging", 10)
	builder.Use("behavior.timing", 20)

	if err := application.Boot(); err != nil {
		log.Fatalf("boot: %v", err) // *bus.ConfigError lands here, pre-dispatch
	}

	r := application.Router()
	b := application.Bus()

	r.Prefix("/api/v1", func(api *routing.Router) {
		api.Post("/users", func(w http.ResponseWriter, req *http.Request) {
			var cmd CreateUser
			if err := gohttp.NewRequest(req).Bind(&cmd); err != nil {
				gohttp.NewResponse(w).Error(http.StatusBadRequest, err.Error())
				return
			}
			gohttp.Dispatch(b, w, req, cmd, http.StatusCreated)
		})

		api.Get("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
			q := GetUser{ID: gohttp.NewRequest(req).RouteParam("id")}
			gohttp.Dispatch(b, w, req, q, http.StatusOK)
		})
	})

	if err := application.Run(); err != nil {
		log.Fatalf("server: %v", err)
	}
}
