package thimble

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Dispose marks c disposed and runs its disposal hooks in the order they were
// added: destroy hooks, hooks added by producers, Close/Dispose of produced
// values, and the disposal of child containers. Every hook runs; their errors
// are combined. Disposing twice is a no-op.
func (c *Container) Dispose() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	hooks := c.hooks
	c.hooks = nil
	c.mu.Unlock()

	var err error
	for _, h := range hooks {
		err = multierr.Append(err, h.run())
	}

	if c.parent != nil {
		c.parent.release(c)
	}

	if err != nil {
		c.logger.Warn("disposed with errors", zap.Int("hooks", len(hooks)), zap.Error(err))
	} else {
		c.logger.Debug("disposed", zap.Int("hooks", len(hooks)))
	}
	return err
}

func (c *Container) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// addHook queues fn for disposal, or runs it right away when c is already
// disposed.
func (c *Container) addHook(fn func() error) {
	c.mu.Lock()
	if !c.disposed {
		c.hooks = append(c.hooks, hook{run: fn})
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := fn(); err != nil {
		c.logger.Warn("late disposal hook failed", zap.Error(err))
	}
}
