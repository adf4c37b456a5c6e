package container_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/km-arc/go-mediator/framework/container"
)

// ── test fixtures ─────────────────────────────────────────────────────────────

type service struct {
	name string
}

func factoryOf(name string) container.Factory {
	return func(container.Resolver) (any, error) {
		return &service{name: name}, nil
	}
}

// ── Singleton lifetime ────────────────────────────────────────────────────────

func TestSingleton_SameInstanceAcrossResolutions(t *testing.T) {
	c := container.New()
	c.Singleton("svc", factoryOf("svc"))

	a, err := c.Resolve("svc")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	b, err := c.Resolve("svc")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if a != b {
		t.Error("singleton should return the same instance on every resolution")
	}
}

func TestSingleton_SameInstanceAcrossScopes(t *testing.T) {
	c := container.New()
	c.Singleton("svc", factoryOf("svc"))

	s1 := c.NewScope()
	defer s1.Close()
	s2 := c.NewScope()
	defer s2.Close()

	a, _ := s1.Resolve("svc")
	b, _ := s2.Resolve("svc")
	if a != b {
		t.Error("singleton should be shared between scopes")
	}
}

func TestSingleton_ConcurrentFirstResolutionConstructsOnce(t *testing.T) {
	c := container.New()
	var constructed atomic.Int32
	c.Singleton("svc", func(container.Resolver) (any, error) {
		constructed.Add(1)
		time.Sleep(5 * time.Millisecond) // widen the race window
		return &service{name: "svc"}, nil
	})

	const n = 20
	results := make([]any, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inst, err := c.Resolve("svc")
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			results[i] = inst
		}(i)
	}
	wg.Wait()

	if got := constructed.Load(); got != 1 {
		t.Errorf("constructed %d instances, want exactly 1", got)
	}
	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d got a different instance", i)
		}
	}
}

// ── Transient lifetime ────────────────────────────────────────────────────────

func TestTransient_DistinctInstances(t *testing.T) {
	c := container.New()
	c.Bind("svc", factoryOf("svc"))

	seen := make(map[any]bool)
	for i := 0; i < 5; i++ {
		inst, err := c.Resolve("svc")
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if seen[inst] {
			t.Fatalf("resolution %d returned an already-seen instance", i)
		}
		seen[inst] = true
	}
}

// ── Scoped lifetime ───────────────────────────────────────────────────────────

func TestScoped_SameInstanceWithinScope(t *testing.T) {
	c := container.New()
	c.Scoped("svc", factoryOf("svc"))

	scope := c.NewScope()
	defer scope.Close()

	a, err := scope.Resolve("svc")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	b, _ := scope.Resolve("svc")
	if a != b {
		t.Error("scoped capability should be cached within one scope")
	}
}

func TestScoped_DistinctInstancesAcrossScopes(t *testing.T) {
	c := container.New()
	c.Scoped("svc", factoryOf("svc"))

	s1 := c.NewScope()
	defer s1.Close()
	s2 := c.NewScope()
	defer s2.Close()

	a, _ := s1.Resolve("svc")
	b, _ := s2.Resolve("svc")
	if a == b {
		t.Error("distinct scopes should hold distinct scoped instances")
	}
}

func TestScoped_RootResolutionFailsWithNoActiveScope(t *testing.T) {
	c := container.New()
	c.Scoped("svc", factoryOf("svc"))

	_, err := c.Resolve("svc")
	if !errors.Is(err, container.ErrNoActiveScope) {
		t.Errorf("got %v, want ErrNoActiveScope", err)
	}
}

func TestScoped_SingletonCannotCaptureScopedDependency(t *testing.T) {
	c := container.New()
	c.Scoped("request-state", factoryOf("request-state"))
	c.Singleton("svc", func(r container.Resolver) (any, error) {
		return r.Resolve("request-state")
	})

	scope := c.NewScope()
	defer scope.Close()

	// Even inside a scope, singleton construction runs scope-free so
	// request-local state can never leak into a shared instance.
	_, err := scope.Resolve("svc")
	if !errors.Is(err, container.ErrNoActiveScope) {
		t.Errorf("got %v, want ErrNoActiveScope", err)
	}
}

// ── Cycle detection ───────────────────────────────────────────────────────────

func TestResolve_CycleFailsWithoutConstruction(t *testing.T) {
	c := container.New()
	var constructed atomic.Int32
	c.Bind("a", func(r container.Resolver) (any, error) {
		dep, err := r.Resolve("b")
		if err != nil {
			return nil, err
		}
		constructed.Add(1)
		return &service{name: "a" + dep.(*service).name}, nil
	})
	c.Bind("b", func(r container.Resolver) (any, error) {
		dep, err := r.Resolve("a")
		if err != nil {
			return nil, err
		}
		constructed.Add(1)
		return &service{name: "b" + dep.(*service).name}, nil
	})

	_, err := c.Resolve("a")
	if !errors.Is(err, container.ErrCircularDependency) {
		t.Fatalf("got %v, want ErrCircularDependency", err)
	}
	if constructed.Load() != 0 {
		t.Error("cycle detection should abort before any construction completes")
	}
}

func TestResolve_SelfCycleFails(t *testing.T) {
	c := container.New()
	c.Singleton("a", func(r container.Resolver) (any, error) {
		return r.Resolve("a")
	})

	if _, err := c.Resolve("a"); !errors.Is(err, container.ErrCircularDependency) {
		t.Errorf("got %v, want ErrCircularDependency", err)
	}
}

// ── Missing bindings ──────────────────────────────────────────────────────────

func TestResolve_UnknownCapabilityFailsWithNotBound(t *testing.T) {
	c := container.New()
	if _, err := c.Resolve("missing"); !errors.Is(err, container.ErrNotBound) {
		t.Errorf("got %v, want ErrNotBound", err)
	}
}

// ── Override semantics ────────────────────────────────────────────────────────

func TestRegister_LastRegistrationWins(t *testing.T) {
	c := container.New()
	c.Singleton("svc", factoryOf("first"))
	c.Singleton("svc", factoryOf("second"))

	inst, err := container.Resolve[*service](c, "svc")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if inst.name != "second" {
		t.Errorf("got %q, want the later registration to win", inst.name)
	}
}

func TestRegister_OverrideDropsCachedSingleton(t *testing.T) {
	c := container.New()
	c.Singleton("svc", factoryOf("first"))
	if _, err := c.Resolve("svc"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	c.Singleton("svc", factoryOf("second"))
	inst, _ := container.Resolve[*service](c, "svc")
	if inst.name != "second" {
		t.Errorf("got %q, want the rebound factory's instance", inst.name)
	}
}

// ── Decoration ────────────────────────────────────────────────────────────────

type decorated struct {
	inner any
	label string
}

func TestExtend_ChainsInRegistrationOrder(t *testing.T) {
	c := container.New()
	c.Singleton("svc", factoryOf("base"))
	c.Extend("svc", func(inner any, _ container.Resolver) (any, error) {
		return &decorated{inner: inner, label: "first"}, nil
	})
	c.Extend("svc", func(inner any, _ container.Resolver) (any, error) {
		return &decorated{inner: inner, label: "second"}, nil
	})

	inst, err := container.Resolve[*decorated](c, "svc")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// Outermost decorator is the last registered.
	if inst.label != "second" {
		t.Fatalf("outermost = %q, want 'second'", inst.label)
	}
	mid, ok := inst.inner.(*decorated)
	if !ok || mid.label != "first" {
		t.Fatalf("middle = %#v, want the first decorator", inst.inner)
	}
	base, ok := mid.inner.(*service)
	if !ok || base.name != "base" {
		t.Fatalf("innermost = %#v, want the original registration", mid.inner)
	}
}

func TestExtend_WrapsRegisteredInstance(t *testing.T) {
	c := container.New()
	c.Instance("greeter", &service{name: "base"})
	c.Extend("greeter", func(inner any, _ container.Resolver) (any, error) {
		return &decorated{inner: inner, label: "wrap"}, nil
	})

	inst, err := container.Resolve[*decorated](c, "greeter")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if inst.inner.(*service).name != "base" {
		t.Fatalf("got %#v, want the decorator around the registered value", inst)
	}

	again, _ := container.Resolve[*decorated](c, "greeter")
	if again != inst {
		t.Error("repeated resolution should return the same wrapped instance")
	}
}

func TestExtend_WrapsResolvedSingletonWithoutRebuild(t *testing.T) {
	c := container.New()
	var constructed atomic.Int32
	c.Singleton("svc", func(container.Resolver) (any, error) {
		constructed.Add(1)
		return &service{name: "base"}, nil
	})
	if _, err := c.Resolve("svc"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	c.Extend("svc", func(inner any, _ container.Resolver) (any, error) {
		return &decorated{inner: inner, label: "wrap"}, nil
	})

	inst, err := container.Resolve[*decorated](c, "svc")
	if err != nil {
		t.Fatalf("resolve after extend: %v", err)
	}
	if inst.inner.(*service).name != "base" {
		t.Fatalf("got %#v, want the original instance wrapped", inst)
	}
	if constructed.Load() != 1 {
		t.Errorf("factory ran %d times, want the cached instance wrapped in place", constructed.Load())
	}
}

func TestExtend_AppliedOncePerScopedInstance(t *testing.T) {
	c := container.New()
	var wrapped atomic.Int32
	c.Scoped("svc", factoryOf("base"))
	c.Extend("svc", func(inner any, _ container.Resolver) (any, error) {
		wrapped.Add(1)
		return &decorated{inner: inner, label: "wrap"}, nil
	})

	scope := c.NewScope()
	defer scope.Close()
	scope.Resolve("svc")
	scope.Resolve("svc")

	if wrapped.Load() != 1 {
		t.Errorf("decorator ran %d times, want once per scoped instance", wrapped.Load())
	}
}

// ── Alias / Tags / Contextual ─────────────────────────────────────────────────

func TestAlias_ResolvesCanonicalBinding(t *testing.T) {
	c := container.New()
	c.Singleton("svc", factoryOf("svc"))
	c.Alias("svc", "service")

	a, _ := c.Resolve("svc")
	b, err := c.Resolve("service")
	if err != nil {
		t.Fatalf("resolve alias: %v", err)
	}
	if a != b {
		t.Error("alias should resolve to the same singleton instance")
	}
}

func TestTagged_ResolvesGroupInRegistrationOrder(t *testing.T) {
	c := container.New()
	c.Singleton("one", factoryOf("one"))
	c.Singleton("two", factoryOf("two"))
	c.Tag([]string{"one", "two"}, "group")

	out, err := c.Tagged(nil, "group")
	if err != nil {
		t.Fatalf("tagged: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d instances, want 2", len(out))
	}
	if out[0].(*service).name != "one" || out[1].(*service).name != "two" {
		t.Error("tagged instances should come back in registration order")
	}
}

func TestContextual_ConsumerGetsSpecificDependency(t *testing.T) {
	c := container.New()
	c.Singleton("dep", factoryOf("default"))
	c.Bind("consumer", func(r container.Resolver) (any, error) {
		return r.Resolve("dep")
	})
	c.When("consumer").Needs("dep").Give(factoryOf("special"))

	inst, err := container.Resolve[*service](c, "consumer")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if inst.name != "special" {
		t.Errorf("got %q, want the contextual binding", inst.name)
	}

	direct, _ := container.Resolve[*service](c, "dep")
	if direct.name != "default" {
		t.Errorf("direct resolution got %q, want the default binding", direct.name)
	}
}

// ── Resolution callbacks ──────────────────────────────────────────────────────

func TestAfterResolving_FiresOncePerConstruction(t *testing.T) {
	c := container.New()
	c.Singleton("single", factoryOf("single"))
	c.Bind("fresh", factoryOf("fresh"))
	c.Scoped("perScope", factoryOf("perScope"))

	var events []string
	c.AfterResolving(func(abstract string, _ any) {
		events = append(events, abstract)
	})

	c.Resolve("single")
	c.Resolve("single") // cache hit, no event
	c.Resolve("fresh")
	c.Resolve("fresh")

	scope := c.NewScope()
	scope.Resolve("perScope")
	scope.Resolve("perScope") // cache hit, no event
	scope.Close()

	want := []string{"single", "fresh", "fresh", "perScope"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
}

func TestAfterResolving_SeesDecoratedInstance(t *testing.T) {
	c := container.New()
	c.Bind("svc", factoryOf("base"))
	c.Extend("svc", func(inner any, _ container.Resolver) (any, error) {
		return &decorated{inner: inner, label: "wrap"}, nil
	})

	var seen any
	c.AfterResolving(func(_ string, instance any) { seen = instance })

	c.Resolve("svc")
	if _, ok := seen.(*decorated); !ok {
		t.Errorf("callback saw %T, want the outermost decorator", seen)
	}
}

// ── Sealing ───────────────────────────────────────────────────────────────────

func TestSeal_RegistrationPanics(t *testing.T) {
	c := container.New()
	c.Seal()

	defer func() {
		if recover() == nil {
			t.Error("Bind after Seal should panic")
		}
	}()
	c.Bind("late", factoryOf("late"))
}

func TestSeal_ResolutionStillWorks(t *testing.T) {
	c := container.New()
	c.Singleton("svc", factoryOf("svc"))
	c.Seal()

	if _, err := c.Resolve("svc"); err != nil {
		t.Errorf("resolve after Seal: %v", err)
	}
}

// ── Generic helpers ───────────────────────────────────────────────────────────

func TestResolveGeneric_TypeMismatchFails(t *testing.T) {
	c := container.New()
	c.Singleton("svc", factoryOf("svc"))

	if _, err := container.Resolve[string](c, "svc"); !errors.Is(err, container.ErrResolveType) {
		t.Errorf("got %v, want ErrResolveType", err)
	}
}

func TestContainer_ResolvesItself(t *testing.T) {
	c := container.New()
	got, err := container.Resolve[*container.Container](c, "container")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != c {
		t.Error("'container' should resolve to the container itself")
	}
}
