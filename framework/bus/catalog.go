package bus

// HandlerDescriptor maps one request shape to the capability that handles
// it. Result records the shape of the handler's return value, for
// diagnostics and tooling.
type HandlerDescriptor struct {
	Shape      string
	Capability string
	Result     string
}

// Catalog is the read-only handler table: exactly one handler per request
// shape. It is built once by Builder.Build, before the first dispatch, and
// needs no locking afterwards.
type Catalog struct {
	handlers map[string]HandlerDescriptor
}

// Lookup returns the handler descriptor for a request shape.
func (c *Catalog) Lookup(shape string) (HandlerDescriptor, bool) {
	d, ok := c.handlers[shape]
	return d, ok
}

// Shapes returns all registered request shapes (for diagnostics).
func (c *Catalog) Shapes() []string {
	out := make([]string, 0, len(c.handlers))
	for s := range c.handlers {
		out = append(out, s)
	}
	return out
}
