package thimbletest

import (
	"go.uber.org/zap/zaptest"

	"github.com/danpasecinic/thimble"
)

type TB interface {
	zaptest.TestingT
	Helper()
	Fatalf(format string, args ...any)
	Cleanup(f func())
}

type TestContainer struct {
	*thimble.Container
	tb TB
}

// New returns a root container that logs through tb, uses its own
// declarations registry, and is disposed when the test ends. Options passed
// by the caller override those defaults.
func New(tb TB, opts ...thimble.Option) *TestContainer {
	tb.Helper()

	defaults := []thimble.Option{
		thimble.WithLogger(zaptest.NewLogger(tb)),
		thimble.WithDeclarations(thimble.NewDeclarations()),
	}
	return build(tb, append(defaults, opts...))
}

// Child returns a container below tc, disposed when the test ends.
func (tc *TestContainer) Child(opts ...thimble.Option) *TestContainer {
	tc.tb.Helper()

	return build(tc.tb, append([]thimble.Option{thimble.WithParent(tc.Container)}, opts...))
}

func build(tb TB, opts []thimble.Option) *TestContainer {
	tb.Helper()

	c, err := thimble.New(opts...)
	if err != nil {
		tb.Fatalf("failed to create container: %v", err)
		return nil
	}

	tb.Cleanup(func() {
		if err := c.Dispose(); err != nil {
			tb.Errorf("failed to dispose container: %v", err)
		}
	})

	return &TestContainer{Container: c, tb: tb}
}

func (tc *TestContainer) MustRegister(key thimble.Key, p thimble.Provider) *TestContainer {
	tc.tb.Helper()

	if err := tc.Register(key, p); err != nil {
		tc.tb.Fatalf("failed to register %s: %v", thimble.KeyName(key), err)
	}
	return tc
}

func (tc *TestContainer) RequireDispose() {
	tc.tb.Helper()

	if err := tc.Dispose(); err != nil {
		tc.tb.Fatalf("failed to dispose container: %v", err)
	}
}

func (tc *TestContainer) RequireDisposed() {
	tc.tb.Helper()

	if !tc.Disposed() {
		tc.tb.Fatalf("expected container %s to be disposed", tc.ID())
	}
}

func (tc *TestContainer) AssertHas(key thimble.Key) {
	tc.tb.Helper()

	if !tc.Has(key) {
		tc.tb.Fatalf("expected container to have %s", thimble.KeyName(key))
	}
}

func (tc *TestContainer) AssertNotHas(key thimble.Key) {
	tc.tb.Helper()

	if tc.Has(key) {
		tc.tb.Fatalf("expected container to not have %s", thimble.KeyName(key))
	}
}

func MustGet[T any](tc *TestContainer, key thimble.Key) T {
	tc.tb.Helper()

	v, err := thimble.Get[T](tc.Container, key)
	if err != nil {
		tc.tb.Fatalf("failed to get %s: %v", thimble.KeyName(key), err)
	}
	return v
}

func MustResolve[T any](tc *TestContainer) T {
	tc.tb.Helper()

	return MustGet[T](tc, thimble.TypeOf[T]())
}

// MustInjectFunc declares fn as the constructor of T in tc's declarations.
func MustInjectFunc[T any](tc *TestContainer, fn any, deps ...thimble.Dep) {
	tc.tb.Helper()

	if err := thimble.InjectFunc[T](tc.Declarations(), fn, deps...); err != nil {
		tc.tb.Fatalf("failed to declare %s: %v", thimble.KeyName(thimble.TypeOf[T]()), err)
	}
}
