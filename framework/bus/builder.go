package bus

import "github.com/km-arc/go-mediator/framework/container"

// Builder collects handler and behavior registrations during bootstrap and
// validates the whole configuration in one place. Build fails fast with a
// *ConfigError on a duplicate handler or an unbound capability, before any
// dispatch is possible.
type Builder struct {
	handlers  []HandlerDescriptor
	behaviors []BehaviorDescriptor
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// HandleShape maps a request shape key to a handler capability.
// Prefer the typed Handle helper.
func (b *Builder) HandleShape(shape, capability, result string) *Builder {
	b.handlers = append(b.handlers, HandlerDescriptor{
		Shape:      shape,
		Capability: capability,
		Result:     result,
	})
	return b
}

// Handle maps the Req request shape to a handler capability producing Res.
//
//	bus.Handle[CreateUser, *User](builder, "handler.createUser")
func Handle[Req any, Res any](b *Builder, capability string) *Builder {
	return b.HandleShape(Shape[Req](), capability, Shape[Res]())
}

// Use registers a behavior capability with an ordering key. Behaviors with
// lower keys run first (outermost); ties execute in registration order.
// With no shapes the behavior applies to every request.
func (b *Builder) Use(capability string, order int, shapes ...string) *Builder {
	b.behaviors = append(b.behaviors, BehaviorDescriptor{
		Capability: capability,
		Order:      order,
		Shapes:     shapes,
		seq:        len(b.behaviors),
	})
	return b
}

// UseFor registers a behavior that applies only to the Req request shape.
func UseFor[Req any](b *Builder, capability string, order int) *Builder {
	return b.Use(capability, order, Shape[Req]())
}

// Build validates the configuration against the container and produces
// the immutable Bus. Validation errors are *ConfigError values:
//
//   - more than one handler registered for a request shape
//   - a handler capability with no container binding (the zero-handler case)
//   - a behavior capability with no container binding
func (b *Builder) Build(c *container.Container) (*Bus, error) {
	handlers := make(map[string]HandlerDescriptor, len(b.handlers))
	for _, d := range b.handlers {
		if prev, dup := handlers[d.Shape]; dup {
			return nil, configErrorf(
				"bus: duplicate handler for %s: [%s] and [%s]",
				d.Shape, prev.Capability, d.Capability)
		}
		if !c.Bound(d.Capability) {
			return nil, configErrorf(
				"bus: handler capability [%s] for %s is not bound",
				d.Capability, d.Shape)
		}
		handlers[d.Shape] = d
	}

	for _, d := range b.behaviors {
		if !c.Bound(d.Capability) {
			return nil, configErrorf(
				"bus: behavior capability [%s] is not bound", d.Capability)
		}
	}

	return &Bus{
		catalog:  &Catalog{handlers: handlers},
		pipeline: newPipeline(b.behaviors),
	}, nil
}
