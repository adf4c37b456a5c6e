package container

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// Scope is a bounded resolution context for one unit of work, typically an
// incoming request. It owns every Scoped and Transient instance it
// produced and releases them exactly once when closed, in reverse creation
// order, whatever exit path the unit of work took.
//
// A scope belongs to one unit of work and must not be shared across
// concurrent units. If that single unit fans out concurrent resolutions,
// first construction per capability is still serialized internally.
type Scope struct {
	container *Container
	id        string

	mu        sync.Mutex
	instances map[string]any         // scoped cache
	guards    map[string]*sync.Mutex // per-capability first-construction guards
	owned     []any                  // creation order, scoped + transient
	closed    bool
}

func newScope(c *Container) *Scope {
	return &Scope{
		container: c,
		id:        uuid.NewString(),
		instances: make(map[string]any),
		guards:    make(map[string]*sync.Mutex),
	}
}

// ID returns the scope's unique identifier, useful for correlating logs.
func (s *Scope) ID() string { return s.id }

// Container returns the root container this scope belongs to.
func (s *Scope) Container() *Container { return s.container }

// Resolve resolves a capability within this scope.
func (s *Scope) Resolve(abstract string) (any, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: resolve [%s]", ErrScopeClosed, abstract)
	}
	res := resolution{container: s.container, scope: s}
	return res.Resolve(abstract)
}

// resolveScoped caches one instance per capability per scope. Distinct
// scopes never block each other: the guard lives on the scope.
func (s *Scope) resolveScoped(key string, b *binding, parent *resolution) (any, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: [%s]", ErrScopeClosed, key)
	}
	if inst, ok := s.instances[key]; ok {
		s.mu.Unlock()
		return inst, nil
	}
	g, ok := s.guards[key]
	if !ok {
		g = &sync.Mutex{}
		s.guards[key] = g
	}
	s.mu.Unlock()

	g.Lock()
	defer g.Unlock()

	s.mu.Lock()
	if inst, ok := s.instances[key]; ok {
		s.mu.Unlock()
		return inst, nil
	}
	s.mu.Unlock()

	child := resolution{container: s.container, scope: s, stack: push(parent.stack, key)}
	inst, err := b.factory(&child)
	if err != nil {
		return nil, fmt.Errorf("container: build [%s]: %w", key, err)
	}
	inst, err = child.applyExtenders(key, inst)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		// The scope was torn down while the factory ran (cancellation
		// mid-dispatch). The fresh instance still gets released.
		s.mu.Unlock()
		disposeOne(inst)
		return nil, fmt.Errorf("%w: [%s]", ErrScopeClosed, key)
	}
	s.instances[key] = inst
	s.owned = append(s.owned, inst)
	s.mu.Unlock()
	s.container.fireAfterResolving(key, inst)
	return inst, nil
}

// track records a transient instance for disposal bookkeeping.
func (s *Scope) track(inst any) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		disposeOne(inst)
		return
	}
	s.owned = append(s.owned, inst)
	s.mu.Unlock()
}

// Close releases every owned instance exactly once, last constructed
// first. A disposal failure is collected and does not prevent the release
// of the remaining instances. Closing twice is a no-op.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	owned := s.owned
	s.owned = nil
	s.instances = nil
	s.guards = nil
	s.mu.Unlock()

	var errs []error
	for i := len(owned) - 1; i >= 0; i-- {
		if closer, ok := owned[i].(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("container: dispose %T: %w", owned[i], err))
			}
		}
	}
	return errors.Join(errs...)
}

// Closed reports whether the scope has been closed.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func disposeOne(inst any) {
	if closer, ok := inst.(io.Closer); ok {
		_ = closer.Close()
	}
}
