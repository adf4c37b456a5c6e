package container

// ContextualBuilder implements the fluent contextual binding API.
//
//	// when the "report.mailer" capability is being built and asks for
//	// "transport", hand it the SMTP factory instead of the default
//	c.When("report.mailer").Needs("transport").Give(func(r container.Resolver) (any, error) {
//	    return mail.NewSMTP(), nil
//	})
//
// The consumer key is matched against the capability currently under
// construction. Contextual instances are transient: the requesting scope
// tracks them for disposal like any other transient.
type ContextualBuilder struct {
	container *Container
	consumer  string
	needs     string
}

// When starts a contextual binding chain for the given consumer capability.
func (c *Container) When(consumer string) *ContextualBuilder {
	return &ContextualBuilder{container: c, consumer: consumer}
}

// Needs specifies which capability the consumer depends on.
func (b *ContextualBuilder) Needs(abstract string) *ContextualBuilder {
	b.needs = abstract
	return b
}

// Give provides the factory used when the consumer resolves the needed
// capability.
func (b *ContextualBuilder) Give(factory Factory) {
	b.container.assertMutable(b.needs)
	b.container.mu.Lock()
	defer b.container.mu.Unlock()

	if _, ok := b.container.contextual[b.consumer]; !ok {
		b.container.contextual[b.consumer] = make(map[string]Factory)
	}
	b.container.contextual[b.consumer][b.needs] = factory
}

// GiveValue is a shorthand for Give when the value is a simple scalar or
// pre-built instance.
//
//	c.When("report.mailer").Needs("storagePath").GiveValue("/tmp/reports")
func (b *ContextualBuilder) GiveValue(value any) {
	b.Give(func(Resolver) (any, error) { return value, nil })
}
