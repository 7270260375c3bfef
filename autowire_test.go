package thimble_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/thimble"
)

type (
	Logger     struct{ Prefix string }
	Repository struct{ Log *Logger }
	Cache      struct{ Log *Logger }
	Service    struct {
		Repo  *Repository
		Cache *Cache
	}
)

type (
	nodeA struct{}
	nodeB struct{}
	nodeC struct{}
)

func TestConstructResolvesDependenciesInOrder(t *testing.T) {
	t.Parallel()

	decls := thimble.NewDeclarations()
	root := newRoot(t, thimble.WithDeclarations(decls))

	var order []string
	require.NoError(
		t, decls.Inject(
			thimble.TypeOf[*Repository](), func(args []any) (any, error) {
				order = append(order, "repository")
				return &Repository{Log: args[0].(*Logger)}, nil
			}, thimble.Ref(thimble.TypeOf[*Logger]()),
		),
	)
	require.NoError(
		t, decls.Inject(
			thimble.TypeOf[*Cache](), func(args []any) (any, error) {
				order = append(order, "cache")
				return &Cache{Log: args[0].(*Logger)}, nil
			}, thimble.Ref(thimble.TypeOf[*Logger]()),
		),
	)
	require.NoError(
		t, decls.Inject(
			thimble.TypeOf[*Service](), func(args []any) (any, error) {
				order = append(order, "service")
				return &Service{Repo: args[0].(*Repository), Cache: args[1].(*Cache)}, nil
			},
			thimble.Ref(thimble.TypeOf[*Repository]()),
			thimble.Ref(thimble.TypeOf[*Cache]()),
		),
	)

	log := &Logger{Prefix: "app"}
	root.MustRegister(thimble.TypeOf[*Logger](), thimble.Value(log))

	svc, err := thimble.Resolve[*Service](root)
	require.NoError(t, err)
	assert.Same(t, log, svc.Repo.Log)
	assert.Same(t, log, svc.Cache.Log)
	assert.Equal(t, []string{"repository", "cache", "service"}, order)

	again := thimble.MustResolve[*Service](root)
	assert.Same(t, svc, again)
	assert.Len(t, order, 3)
}

func TestConstructDependenciesFallBackIndependently(t *testing.T) {
	t.Parallel()

	decls := thimble.NewDeclarations()
	root := newRoot(t, thimble.WithDeclarations(decls))
	child := newChild(t, root)

	require.NoError(
		t, thimble.InjectFunc[*Service](
			decls, func(repo *Repository, cache *Cache) *Service {
				return &Service{Repo: repo, Cache: cache}
			},
		),
	)

	repo := &Repository{}
	cache := &Cache{}
	child.MustRegister(thimble.TypeOf[*Repository](), thimble.Value(repo))
	root.MustRegister(thimble.TypeOf[*Cache](), thimble.Value(cache))

	svc, err := thimble.Resolve[*Service](child)
	require.NoError(t, err)
	assert.Same(t, repo, svc.Repo)
	assert.Same(t, cache, svc.Cache)

	assert.True(t, root.Has(thimble.TypeOf[*Service]()))
	assert.False(t, child.Has(thimble.TypeOf[*Service]()))
}

func TestConstructMissingDependency(t *testing.T) {
	t.Parallel()

	decls := thimble.NewDeclarations()
	root := newRoot(t, thimble.WithDeclarations(decls))

	require.NoError(
		t, thimble.InjectFunc[*Repository](
			decls, func() *Repository {
				return &Repository{}
			},
		),
	)
	require.NoError(
		t, thimble.InjectFunc[*Service](
			decls, func(repo *Repository, cache *Cache) *Service {
				return &Service{Repo: repo, Cache: cache}
			},
		),
	)

	_, err := thimble.Resolve[*Service](root)
	require.Error(t, err)
	assert.True(t, thimble.IsMissingDependency(err))
	assert.ErrorIs(t, err, thimble.ErrUndefinedKey)

	var e *thimble.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, thimble.TypeOf[*Cache](), e.Key)
	assert.Equal(t, thimble.TypeOf[*Service](), e.Target)
	assert.Equal(t, 1, e.Index)

	assert.True(t, root.Has(thimble.TypeOf[*Repository]()))
	assert.False(t, root.Has(thimble.TypeOf[*Service]()))
}

func TestConstructCircularDependency(t *testing.T) {
	t.Parallel()

	decls := thimble.NewDeclarations()
	root := newRoot(t, thimble.WithDeclarations(decls))

	a, b, c := thimble.TypeOf[nodeA](), thimble.TypeOf[nodeB](), thimble.TypeOf[nodeC]()
	ctor := func(args []any) (any, error) { return struct{}{}, nil }

	root.MustRegister("x", thimble.Value(1))
	require.NoError(t, decls.Inject(a, ctor, thimble.Ref("x"), thimble.Ref(b)))
	require.NoError(t, decls.Inject(b, ctor, thimble.Ref(c)))
	require.NoError(t, decls.Inject(c, ctor, thimble.Ref(a)))

	_, err := root.Get(a)
	require.Error(t, err)
	assert.True(t, thimble.IsCircularDependency(err))

	var e *thimble.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(
		t, []thimble.Frame{
			{Target: a, Index: -1},
			{Target: b, Index: 1},
			{Target: c, Index: 0},
			{Target: a, Index: 0},
		}, e.Chain,
	)
	assert.Contains(t, e.Error(), "[1]")

	_, err = root.Get(b)
	require.Error(t, err)
	require.ErrorAs(t, err, &e)
	assert.Len(t, e.Chain, 4)
	assert.Equal(t, b, e.Chain[0].Target)
}

func TestConstructFramesClearedAfterFailure(t *testing.T) {
	t.Parallel()

	decls := thimble.NewDeclarations()
	root := newRoot(t, thimble.WithDeclarations(decls))

	calls := 0
	root.MustRegister(
		"flaky", thimble.Generator(
			func(r *thimble.Resolution) (any, error) {
				calls++
				if calls == 1 {
					return nil, errors.New("not ready")
				}
				return &Logger{Prefix: "ready"}, nil
			},
		),
	)
	require.NoError(
		t, decls.Inject(
			thimble.TypeOf[*Repository](), func(args []any) (any, error) {
				return &Repository{Log: args[0].(*Logger)}, nil
			}, thimble.Ref("flaky"),
		),
	)

	var firstErr error
	root.MustRegister(
		"probe", thimble.Resolver(
			func(r *thimble.Resolution) (any, error) {
				_, firstErr = thimble.Resolve[*Repository](r)
				return thimble.Resolve[*Repository](r)
			},
		),
	)

	v, err := root.Get("probe")
	require.NoError(t, err)
	require.Error(t, firstErr)
	assert.False(t, thimble.IsCircularDependency(firstErr))

	repo, ok := v.(*Repository)
	require.True(t, ok)
	assert.Equal(t, "ready", repo.Log.Prefix)
}

func TestConstructDeferredDependency(t *testing.T) {
	t.Parallel()

	decls := thimble.NewDeclarations()
	root := newRoot(t, thimble.WithDeclarations(decls))

	var cacheKey thimble.Key
	require.NoError(
		t, thimble.InjectFunc[*Service](
			decls, func(cache *Cache) *Service {
				return &Service{Cache: cache}
			}, thimble.Deferred(func() thimble.Key { return cacheKey }),
		),
	)
	require.NoError(
		t, thimble.InjectFunc[*Cache](
			decls, func() *Cache {
				return &Cache{}
			},
		),
	)
	cacheKey = thimble.TypeOf[*Cache]()

	svc, err := thimble.Resolve[*Service](root)
	require.NoError(t, err)
	assert.NotNil(t, svc.Cache)

	decl, ok := decls.Lookup(thimble.TypeOf[*Service]())
	require.True(t, ok)
	require.Len(t, decl.Deps, 1)
	assert.True(t, decl.Deps[0].IsDeferred())
}

func TestConstructScopedDeclaration(t *testing.T) {
	t.Parallel()

	request := thimble.NewScope("request")
	decls := thimble.NewDeclarations()
	root := newRoot(t, thimble.WithDeclarations(decls))

	require.NoError(
		t, thimble.InjectFunc[*Cache](
			decls, func() *Cache {
				return &Cache{}
			},
		),
	)
	require.NoError(t, decls.InjectScope(thimble.TypeOf[*Cache](), request))

	req1 := newChild(t, root, thimble.WithScope(request))
	handler := newChild(t, req1)
	req2 := newChild(t, root, thimble.WithScope(request))

	a := thimble.MustResolve[*Cache](handler)
	b := thimble.MustResolve[*Cache](req1)
	c := thimble.MustResolve[*Cache](req2)
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)

	assert.True(t, req1.Has(thimble.TypeOf[*Cache]()))
	assert.False(t, handler.Has(thimble.TypeOf[*Cache]()))

	_, err := thimble.Resolve[*Cache](root)
	assert.True(t, thimble.IsUndefinedScope(err))
}

func TestConstructorError(t *testing.T) {
	t.Parallel()

	decls := thimble.NewDeclarations()
	root := newRoot(t, thimble.WithDeclarations(decls))

	boom := errors.New("boom")
	require.NoError(
		t, thimble.InjectFunc[*Cache](
			decls, func() (*Cache, error) {
				return nil, boom
			},
		),
	)

	_, err := thimble.Resolve[*Cache](root)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var e *thimble.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, thimble.ErrCodeProviderFailed, e.Code)
	assert.False(t, root.Has(thimble.TypeOf[*Cache]()))
}

func TestRegisteredKeyShadowsDeclaration(t *testing.T) {
	t.Parallel()

	decls := thimble.NewDeclarations()
	root := newRoot(t, thimble.WithDeclarations(decls))

	require.NoError(
		t, thimble.InjectFunc[*Cache](
			decls, func() *Cache {
				return &Cache{Log: &Logger{Prefix: "declared"}}
			},
		),
	)

	child := newChild(t, root)
	registered := &Cache{}
	child.MustRegister(thimble.TypeOf[*Cache](), thimble.Value(registered))

	assert.Same(t, registered, thimble.MustResolve[*Cache](child))
	assert.Equal(t, "declared", thimble.MustResolve[*Cache](root).Log.Prefix)
}

func TestDeclarationsMisuse(t *testing.T) {
	t.Parallel()

	decls := thimble.NewDeclarations()
	key := thimble.TypeOf[*Cache]()
	ctor := func(args []any) (any, error) { return &Cache{}, nil }
	scope := thimble.NewScope("request")

	err := decls.InjectScope(key, scope)
	assert.ErrorIs(t, err, thimble.ErrScopeWithoutInjection)

	require.NoError(t, decls.Inject(key, ctor))
	err = decls.Inject(key, ctor)
	assert.ErrorIs(t, err, thimble.ErrInjectionAlreadyApplied)

	require.NoError(t, decls.InjectScope(key, scope))
	err = decls.InjectScope(key, thimble.NewScope("other"))
	assert.ErrorIs(t, err, thimble.ErrScopeAlreadyApplied)

	got, ok := decls.ScopeOf(key)
	require.True(t, ok)
	assert.Same(t, scope, got)

	var e *thimble.Error
	err = decls.Inject(thimble.TypeOf[*Logger](), nil)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, thimble.ErrCodeInvalidProvider, e.Code)

	err = decls.Inject(nil, ctor)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, thimble.ErrCodeInvalidKey, e.Code)

	assert.Equal(t, []thimble.Key{key}, decls.Keys())
}

func TestInjectFuncErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   any
		deps []thimble.Dep
	}{
		{name: "nil", fn: nil},
		{name: "not a function", fn: 42},
		{name: "wrong return type", fn: func() *Logger { return nil }},
		{name: "second result not error", fn: func() (*Cache, int) { return nil, 0 }},
		{name: "variadic", fn: func(...int) *Cache { return nil }},
		{
			name: "dependency count",
			fn:   func(*Logger) *Cache { return nil },
			deps: []thimble.Dep{thimble.Ref("a"), thimble.Ref("b")},
		},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				t.Parallel()

				decls := thimble.NewDeclarations()
				err := thimble.InjectFunc[*Cache](decls, tt.fn, tt.deps...)
				require.Error(t, err)

				var e *thimble.Error
				require.ErrorAs(t, err, &e)
				assert.Equal(t, thimble.ErrCodeInvalidProvider, e.Code)
				assert.Empty(t, decls.Keys())
			},
		)
	}
}

func TestInjectFuncExplicitDeps(t *testing.T) {
	t.Parallel()

	decls := thimble.NewDeclarations()
	root := newRoot(t, thimble.WithDeclarations(decls))

	prefix := thimble.NewToken[string]("prefix")
	root.MustRegister(prefix, thimble.Value("svc"))

	require.NoError(
		t, thimble.InjectFunc[*Logger](
			decls, func(p string) *Logger {
				return &Logger{Prefix: p}
			}, thimble.Ref(prefix),
		),
	)

	assert.Equal(t, "svc", thimble.MustResolve[*Logger](root).Prefix)
}

type (
	globalClock   struct{ ticks int }
	globalTracker struct{ clock *globalClock }
)

var globalScope = thimble.NewScope("global-test")

func TestPackageLevelDeclarations(t *testing.T) {
	t.Parallel()

	clockKey := thimble.TypeOf[*globalClock]()
	trackerKey := thimble.TypeOf[*globalTracker]()

	// The default registry outlives a single run, so repeated runs find the
	// declarations already in place.
	allowRepeat := func(err error, sentinel error) {
		if !errors.Is(err, sentinel) {
			require.NoError(t, err)
		}
	}
	allowRepeat(
		thimble.Inject(
			clockKey, func(args []any) (any, error) {
				return &globalClock{}, nil
			},
		), thimble.ErrInjectionAlreadyApplied,
	)
	allowRepeat(
		thimble.Inject(
			trackerKey, func(args []any) (any, error) {
				return &globalTracker{clock: args[0].(*globalClock)}, nil
			}, thimble.Ref(clockKey),
		), thimble.ErrInjectionAlreadyApplied,
	)
	allowRepeat(thimble.InjectScope(trackerKey, globalScope), thimble.ErrScopeAlreadyApplied)

	root := thimble.MustNew()
	t.Cleanup(func() { _ = root.Dispose() })
	scoped := newChild(t, root, thimble.WithScope(globalScope))

	tracker := thimble.MustResolve[*globalTracker](scoped)
	assert.Same(t, thimble.MustResolve[*globalClock](root), tracker.clock)
	assert.True(t, scoped.Has(trackerKey))
}

func TestConstructCachesOnDeclarationOwner(t *testing.T) {
	t.Parallel()

	inject := func(decls *thimble.Declarations, prefix string) {
		require.NoError(
			t, decls.Inject(
				thimble.TypeOf[*Cache](), func([]any) (any, error) {
					return &Cache{Log: &Logger{Prefix: prefix}}, nil
				},
			),
		)
	}

	one := thimble.NewDeclarations()
	two := thimble.NewDeclarations()
	inject(one, "one")
	inject(two, "two")

	root := newRoot(t, thimble.WithDeclarations(one))
	override := newChild(t, root, thimble.WithDeclarations(two))
	nested := newChild(t, override)
	inherited := newChild(t, root)

	cache := thimble.MustResolve[*Cache](nested)
	assert.Equal(t, "two", cache.Log.Prefix)
	assert.True(t, override.Has(thimble.TypeOf[*Cache]()))
	assert.False(t, nested.Has(thimble.TypeOf[*Cache]()))
	assert.False(t, root.Has(thimble.TypeOf[*Cache]()))

	cache = thimble.MustResolve[*Cache](inherited)
	assert.Equal(t, "one", cache.Log.Prefix)
	assert.True(t, root.Has(thimble.TypeOf[*Cache]()))
	assert.False(t, inherited.Has(thimble.TypeOf[*Cache]()))

	assert.Same(t, cache, thimble.MustResolve[*Cache](root))
	assert.Equal(t, "two", thimble.MustResolve[*Cache](override).Log.Prefix)
}
