package thimble

import "go.uber.org/zap"

// Register attaches p to key on c. A key takes one provider per container,
// whatever its kind; registering the same key on another container in the
// hierarchy is always allowed.
func (c *Container) Register(key Key, p Provider) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := p.validate(key); err != nil {
		return err
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return errDisposed(c)
	}
	if c.hasLocked(key) {
		c.mu.Unlock()
		return errDuplicateKey(key)
	}

	switch p.kind {
	case KindValue:
		c.values[key] = p.value
		if p.onDestroy != nil {
			value, onDestroy := p.value, p.onDestroy
			c.hooks = append(c.hooks, hook{run: func() error { return onDestroy(value) }})
		}
	case KindResolver:
		c.resolvers[key] = p
	case KindGenerator:
		c.generators[key] = p
	}
	c.kinds[key] = p.kind
	c.mu.Unlock()

	c.logger.Debug(
		"registered",
		zap.String("key", KeyName(key)),
		zap.Stringer("kind", p.kind),
		zap.Stringer("scope", p.scope),
	)
	return nil
}

// MustRegister is Register for fluent setup code; it panics on error.
func (c *Container) MustRegister(key Key, p Provider) *Container {
	if err := c.Register(key, p); err != nil {
		panic(err)
	}
	return c
}
