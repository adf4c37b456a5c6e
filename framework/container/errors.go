package container

import "errors"

// Resolution errors. All are fatal to the resolution that hit them and are
// never silently defaulted: a Scoped capability resolved without a scope is
// an error, not a transient.
var (
	// ErrNotBound is returned when no binding exists for the requested
	// capability.
	ErrNotBound = errors.New("container: no binding registered")

	// ErrCircularDependency is returned when a capability's dependency
	// graph loops back onto itself. Nothing is constructed.
	ErrCircularDependency = errors.New("container: circular dependency detected")

	// ErrNoActiveScope is returned when a Scoped capability is resolved
	// directly from the root container. Lifetime promotion is never
	// inferred; open a Scope instead.
	ErrNoActiveScope = errors.New("container: scoped binding requires an active scope")

	// ErrScopeClosed is returned when resolving through a scope that has
	// already been closed.
	ErrScopeClosed = errors.New("container: scope already closed")

	// ErrResolveType is returned by the generic Resolve helper when the
	// resolved instance does not have the requested type.
	ErrResolveType = errors.New("container: resolved instance has unexpected type")
)
