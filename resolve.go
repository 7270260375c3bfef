package thimble

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danpasecinic/thimble/internal/reflect"
)

// Getter is implemented by *Container and *Resolution.
type Getter interface {
	Get(key Key) (any, error)
}

// Disposer is implemented by produced values that release resources when
// their container is disposed. io.Closer values are handled the same way.
type Disposer interface {
	Dispose() error
}

// session is the state shared by one top-level Get and every nested lookup
// it triggers: the auto-construction frames, the production cells held and
// the generators running.
type session struct {
	mu         sync.Mutex
	frames     []Frame
	held       map[*cell]struct{}
	generating map[generation]struct{}

	// waiting is the cell this session is blocked on. Guarded by waits.
	waiting *cell
}

type generation struct {
	container *Container
	key       Key
}

func newSession() *session {
	return &session{
		held:       make(map[*cell]struct{}),
		generating: make(map[generation]struct{}),
	}
}

type sessionKey struct{}

func sessionFrom(ctx context.Context) *session {
	s, _ := ctx.Value(sessionKey{}).(*session)
	return s
}

// enter pushes a construction frame for target, failing when target is
// already being constructed in this session. The frame list is cleared on
// failure.
func (s *session) enter(target Key, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.frames {
		if f.Target == target {
			chain := make([]Frame, len(s.frames), len(s.frames)+1)
			copy(chain, s.frames)
			chain = append(chain, Frame{Target: target, Index: index})
			s.frames = nil
			return errCircularDependency(chain)
		}
	}

	s.frames = append(s.frames, Frame{Target: target, Index: index})
	return nil
}

func (s *session) leave(target Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].Target == target {
			s.frames = append(s.frames[:i], s.frames[i+1:]...)
			return
		}
	}
}

func (s *session) clear() {
	s.mu.Lock()
	s.frames = nil
	s.mu.Unlock()
}

// cycle reports key as circular, using the current frames as the chain, and
// clears them.
func (s *session) cycle(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := make([]Frame, len(s.frames), len(s.frames)+1)
	copy(chain, s.frames)
	if n := len(chain); n == 0 || chain[n-1].Target != key {
		chain = append(chain, Frame{Target: key, Index: -1})
	}
	s.frames = nil
	return errCircularDependency(chain)
}

func (s *session) hold(cl *cell, key Key) error {
	s.mu.Lock()
	_, held := s.held[cl]
	if !held {
		s.held[cl] = struct{}{}
	}
	s.mu.Unlock()

	if held {
		return s.cycle(key)
	}
	return nil
}

func (s *session) drop(cl *cell) {
	s.mu.Lock()
	delete(s.held, cl)
	s.mu.Unlock()
}

// startGenerating marks the generator for key on c as running. A generator
// that reaches itself again in the same session is circular.
func (s *session) startGenerating(c *Container, key Key) error {
	g := generation{container: c, key: key}

	s.mu.Lock()
	_, running := s.generating[g]
	if !running {
		s.generating[g] = struct{}{}
	}
	s.mu.Unlock()

	if running {
		return s.cycle(key)
	}
	return nil
}

func (s *session) stopGenerating(c *Container, key Key) {
	s.mu.Lock()
	delete(s.generating, generation{container: c, key: key})
	s.mu.Unlock()
}

// waits guards the wait-for links between sessions: the owner of each cell
// and the cell each session is blocked on.
var waits sync.Mutex

// acquire locks cl for s. Before blocking it follows the chain of owners and
// the cells they wait on; reaching s again means the sessions wait on each
// other, which is reported as circular instead of blocking.
func (s *session) acquire(cl *cell, key Key) error {
	waits.Lock()
	for owner := cl.owner; owner != nil; {
		if owner == s {
			waits.Unlock()
			return s.cycle(key)
		}
		if owner.waiting == nil {
			break
		}
		owner = owner.waiting.owner
	}
	s.waiting = cl
	waits.Unlock()

	cl.mu.Lock()

	waits.Lock()
	s.waiting = nil
	cl.owner = s
	waits.Unlock()
	return nil
}

func (s *session) release(cl *cell) {
	waits.Lock()
	cl.owner = nil
	waits.Unlock()
	cl.mu.Unlock()
}

// cell serializes the production of a cached value for one (container, key)
// pair. A failed production retires its cell.
type cell struct {
	mu    sync.Mutex
	owner *session
}

// Resolution is handed to producers. It exposes the container the value is
// produced for, and lookups made through it continue the current session so
// cycles are still detected.
type Resolution struct {
	ctx       context.Context
	container *Container
	key       Key
	session   *session
}

func (r *Resolution) Context() context.Context {
	return r.ctx
}

// Container returns the execution container: the scope-matching container
// for scoped providers, else the container the provider is registered on.
func (r *Resolution) Container() *Container {
	return r.container
}

func (r *Resolution) Key() Key {
	return r.key
}

func (r *Resolution) Get(key Key) (any, error) {
	return r.container.get(r.ctx, r.session, key)
}

// OnDispose runs hook when the execution container is disposed.
func (r *Resolution) OnDispose(hook func() error) {
	r.container.addHook(hook)
}

func (c *Container) Get(key Key) (any, error) {
	return c.GetCtx(context.Background(), key)
}

// GetCtx resolves key starting at c. A ctx obtained from Resolution.Context
// continues that resolution's session.
func (c *Container) GetCtx(ctx context.Context, key Key) (any, error) {
	s := sessionFrom(ctx)
	if s == nil {
		s = newSession()
		ctx = context.WithValue(ctx, sessionKey{}, s)
	}
	return c.get(ctx, s, key)
}

func (c *Container) get(ctx context.Context, s *session, key Key) (any, error) {
	start := time.Now()

	var (
		value any
		err   error
	)
	if err = validateKey(key); err == nil {
		if c.Disposed() {
			err = errDisposed(c)
		} else {
			value, err = c.search(ctx, s, c, key, -1)
		}
	}

	for _, hook := range c.cfg.onResolve {
		hook(key, time.Since(start), err)
	}
	return value, err
}

// search walks from c up through its ancestors looking for key. origin is the
// container the lookup was issued on; scoped providers are targeted from it,
// never from the container that defines them. arg is the dependency index
// when the lookup resolves a constructor argument, else -1.
func (c *Container) search(ctx context.Context, s *session, origin *Container, key Key, arg int) (any, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	root := c
	for cur := c; cur != nil; cur = cur.parent {
		root = cur

		cur.mu.Lock()
		if value, ok := cur.values[key]; ok {
			cur.mu.Unlock()
			return value, nil
		}
		generator, isGenerator := cur.generators[key]
		resolver, isResolver := cur.resolvers[key]
		cur.mu.Unlock()

		switch {
		case isGenerator:
			return cur.generate(ctx, s, origin, key, generator)
		case isResolver:
			return cur.resolve(ctx, s, origin, key, resolver)
		}
	}

	return root.construct(ctx, s, origin, key, arg)
}

func (c *Container) generate(ctx context.Context, s *session, origin *Container, key Key, p Provider) (any, error) {
	target, err := origin.scopeTarget(c, key, p.scope)
	if err != nil {
		return nil, err
	}

	if err := s.startGenerating(c, key); err != nil {
		return nil, err
	}
	defer s.stopGenerating(c, key)

	value, err := p.produce(&Resolution{ctx: ctx, container: target, key: key, session: s})
	if err != nil {
		return nil, errProviderFailed(key, err)
	}

	target.track(value, p.onDestroy)
	target.logger.Debug("generated", zap.String("key", KeyName(key)))
	return value, nil
}

func (c *Container) resolve(ctx context.Context, s *session, origin *Container, key Key, p Provider) (any, error) {
	target, err := origin.scopeTarget(c, key, p.scope)
	if err != nil {
		return nil, err
	}

	return target.produceOnce(
		s, key, p.onDestroy, func() (any, error) {
			value, err := p.produce(&Resolution{ctx: ctx, container: target, key: key, session: s})
			if err != nil {
				return nil, errProviderFailed(key, err)
			}
			return value, nil
		},
	)
}

// scopeTarget finds the container a scoped provider runs in: the nearest
// container in c's ancestry, c included, tagged with scope. Unscoped
// providers run in the container that defines them.
func (c *Container) scopeTarget(defining *Container, key Key, scope *Scope) (*Container, error) {
	if scope == nil {
		return defining, nil
	}
	for cur := c; cur != nil; cur = cur.parent {
		if cur.scope == scope {
			return cur, nil
		}
	}
	return nil, errUndefinedScope(key, scope)
}

// produceOnce returns the value cached on c for key, producing and caching it
// first when absent. Concurrent callers for the same pair wait for the first
// producer; sessions that would wait on each other, or on themselves, get a
// circular dependency error instead of a deadlock.
func (c *Container) produceOnce(s *session, key Key, onDestroy DestroyHook, produce func() (any, error)) (any, error) {
	for {
		value, done, err := c.attempt(s, key, onDestroy, produce)
		if done {
			return value, err
		}
	}
}

// attempt runs one round of produceOnce. It is not done when the cell it
// waited on was retired by a failed production, so the caller takes a fresh
// one.
func (c *Container) attempt(s *session, key Key, onDestroy DestroyHook, produce func() (any, error)) (any, bool, error) {
	c.mu.Lock()
	if value, ok := c.values[key]; ok {
		c.mu.Unlock()
		return value, true, nil
	}
	cl, ok := c.cells[key]
	if !ok {
		cl = &cell{}
		c.cells[key] = cl
	}
	c.mu.Unlock()

	if err := s.hold(cl, key); err != nil {
		return nil, true, err
	}
	defer s.drop(cl)

	if err := s.acquire(cl, key); err != nil {
		return nil, true, err
	}
	defer s.release(cl)

	c.mu.Lock()
	value, ok := c.values[key]
	current := c.cells[key] == cl
	c.mu.Unlock()
	if ok {
		return value, true, nil
	}
	if !current {
		return nil, false, nil
	}

	value, err := produce()

	c.mu.Lock()
	delete(c.cells, key)
	if err == nil {
		c.values[key] = value
	}
	c.mu.Unlock()

	if err != nil {
		return nil, true, err
	}

	c.track(value, onDestroy)
	c.logger.Debug("resolved", zap.String("key", KeyName(key)))
	return value, true, nil
}

// track attaches the disposal hooks a produced value needs to c.
func (c *Container) track(value any, onDestroy DestroyHook) {
	if onDestroy != nil {
		c.addHook(func() error { return onDestroy(value) })
	}
	if reflect.IsNil(value) {
		return
	}

	switch v := value.(type) {
	case Disposer:
		c.addHook(v.Dispose)
	case io.Closer:
		c.addHook(v.Close)
	}
}
