package thimble

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Container maps keys to providers and caches produced values. Containers
// form a tree: lookups that miss fall back to the parent, and disposing a
// container disposes its whole subtree.
type Container struct {
	id     string
	parent *Container
	scope  *Scope
	cfg    *containerConfig
	logger *zap.Logger

	mu         sync.Mutex
	values     map[Key]any
	resolvers  map[Key]Provider
	generators map[Key]Provider
	kinds      map[Key]ProviderKind
	cells      map[Key]*cell
	children   []*Container
	hooks      []hook
	disposed   bool
}

// hook is a disposal callback. child is set when the callback disposes a
// child container, so the entry can be dropped once that child goes away.
type hook struct {
	child *Container
	run   func() error
}

func New(opts ...Option) (*Container, error) {
	cfg := &containerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	parent := cfg.parent
	if parent != nil {
		cfg.inherit(parent)

		if cfg.scope != nil {
			for cur := parent; cur != nil; cur = cur.parent {
				if cur.scope == cfg.scope {
					return nil, errDuplicateScope(cfg.scope)
				}
			}
		}
	}
	cfg.defaults()

	c := &Container{
		id:         uuid.NewString(),
		parent:     parent,
		scope:      cfg.scope,
		cfg:        cfg,
		values:     make(map[Key]any),
		resolvers:  make(map[Key]Provider),
		generators: make(map[Key]Provider),
		kinds:      make(map[Key]ProviderKind),
		cells:      make(map[Key]*cell),
	}
	c.logger = cfg.logger.With(zap.String("container", c.label()))

	if parent != nil {
		if err := parent.adopt(c); err != nil {
			return nil, err
		}
	}

	c.logger.Debug(
		"container created",
		zap.String("id", c.id),
		zap.Stringer("scope", c.scope),
		zap.Bool("root", parent == nil),
	)
	return c, nil
}

func MustNew(opts ...Option) *Container {
	c, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Child creates a container whose parent is c.
func (c *Container) Child(opts ...Option) (*Container, error) {
	return New(append([]Option{WithParent(c)}, opts...)...)
}

func (c *Container) adopt(child *Container) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return errDisposed(c)
	}

	c.children = append(c.children, child)
	c.hooks = append(c.hooks, hook{child: child, run: child.Dispose})
	return nil
}

// release forgets a child that was disposed on its own.
func (c *Container) release(child *Container) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, ch := range c.children {
		if ch == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			break
		}
	}
	for i, h := range c.hooks {
		if h.child == child {
			c.hooks = append(c.hooks[:i], c.hooks[i+1:]...)
			break
		}
	}
}

func (c *Container) ID() string {
	return c.id
}

func (c *Container) Name() string {
	return c.cfg.name
}

func (c *Container) Parent() *Container {
	return c.parent
}

func (c *Container) Scope() *Scope {
	return c.scope
}

func (c *Container) Declarations() *Declarations {
	return c.cfg.declarations
}

// Has reports whether c itself holds an entry for key. Ancestors are not
// consulted.
func (c *Container) Has(key Key) bool {
	if validateKey(key) != nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hasLocked(key)
}

func (c *Container) hasLocked(key Key) bool {
	if _, ok := c.values[key]; ok {
		return true
	}
	if _, ok := c.resolvers[key]; ok {
		return true
	}
	_, ok := c.generators[key]
	return ok
}

// Keys returns the keys held by c, sorted by name.
func (c *Container) Keys() []Key {
	c.mu.Lock()
	keys := make([]Key, 0, len(c.kinds)+len(c.values))
	for key := range c.kinds {
		keys = append(keys, key)
	}
	for key := range c.values {
		if _, registered := c.kinds[key]; !registered {
			keys = append(keys, key)
		}
	}
	c.mu.Unlock()

	sort.Slice(
		keys, func(i, j int) bool {
			return KeyName(keys[i]) < KeyName(keys[j])
		},
	)
	return keys
}

func (c *Container) Size() int {
	return len(c.Keys())
}

func (c *Container) label() string {
	if c.cfg.name != "" {
		return c.cfg.name
	}
	return c.id
}
