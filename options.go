package thimble

import "go.uber.org/zap"

type Option func(*containerConfig)

type containerConfig struct {
	parent       *Container
	scope        *Scope
	name         string
	logger       *zap.Logger
	declarations *Declarations
	onResolve    []ResolveHook
}

// WithParent links the new container below parent. Lookups that miss fall
// back to parent, and disposing parent disposes the new container.
func WithParent(parent *Container) Option {
	return func(cfg *containerConfig) {
		cfg.parent = parent
	}
}

// WithScope tags the new container. The tag must not already appear in the
// parent chain.
func WithScope(s *Scope) Option {
	return func(cfg *containerConfig) {
		cfg.scope = s
	}
}

func WithName(name string) Option {
	return func(cfg *containerConfig) {
		cfg.name = name
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(cfg *containerConfig) {
		cfg.logger = logger
	}
}

// WithDeclarations sets the registry consulted for auto-construction.
// Containers without one inherit their parent's, and roots use
// DefaultDeclarations.
func WithDeclarations(d *Declarations) Option {
	return func(cfg *containerConfig) {
		cfg.declarations = d
	}
}

func WithResolveObserver(hook ResolveHook) Option {
	return func(cfg *containerConfig) {
		cfg.onResolve = append(cfg.onResolve, hook)
	}
}

func (cfg *containerConfig) inherit(parent *Container) {
	if cfg.logger == nil {
		cfg.logger = parent.cfg.logger
	}
	if cfg.declarations == nil {
		cfg.declarations = parent.cfg.declarations
	}
	if len(parent.cfg.onResolve) > 0 {
		hooks := make([]ResolveHook, 0, len(parent.cfg.onResolve)+len(cfg.onResolve))
		hooks = append(hooks, parent.cfg.onResolve...)
		cfg.onResolve = append(hooks, cfg.onResolve...)
	}
}

func (cfg *containerConfig) defaults() {
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.declarations == nil {
		cfg.declarations = DefaultDeclarations
	}
}
