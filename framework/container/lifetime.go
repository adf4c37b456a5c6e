package container

import "fmt"

// Lifetime governs how instances of a capability are shared between
// resolutions.
type Lifetime int

const (
	// Transient creates a new instance on every resolution. The resolving
	// Scope owns the instance for disposal bookkeeping only.
	Transient Lifetime = iota

	// Scoped creates one instance per Scope, lazily on first resolution
	// within that scope. The instance is released when the scope closes.
	Scoped

	// Singleton creates exactly one instance per Container, lazily on
	// first resolution, guarded against concurrent double-construction.
	Singleton
)

// String returns the lifetime name.
func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "Transient"
	case Scoped:
		return "Scoped"
	case Singleton:
		return "Singleton"
	default:
		return fmt.Sprintf("Unknown(%d)", int(l))
	}
}

// IsValid reports whether l is one of the three defined lifetimes.
func (l Lifetime) IsValid() bool {
	return l >= Transient && l <= Singleton
}
