package thimble

import (
	"fmt"
	"sync"

	"github.com/danpasecinic/thimble/internal/reflect"
)

// Constructor builds an instance from resolved dependencies, passed in
// declared order.
type Constructor func(args []any) (any, error)

// Dep references a dependency key. Deferred deps are evaluated right before
// each use, which lets a declaration name a key that is declared later.
type Dep struct {
	key      Key
	deferred func() Key
}

func Ref(key Key) Dep {
	return Dep{key: key}
}

func Deferred(fn func() Key) Dep {
	return Dep{deferred: fn}
}

func (d Dep) Key() Key {
	if d.deferred != nil {
		return d.deferred()
	}
	return d.key
}

func (d Dep) IsDeferred() bool {
	return d.deferred != nil
}

// Declaration is the recipe for auto-constructing Key.
type Declaration struct {
	Key       Key
	Deps      []Dep
	Construct Constructor
}

// Declarations holds injection declarations and class scopes. Each key takes
// at most one declaration and at most one scope, and a scope requires a
// declaration.
type Declarations struct {
	mu     sync.RWMutex
	decls  map[Key]Declaration
	scopes map[Key]*Scope
	order  []Key
}

// DefaultDeclarations is used by root containers created without
// WithDeclarations.
var DefaultDeclarations = NewDeclarations()

func NewDeclarations() *Declarations {
	return &Declarations{
		decls:  make(map[Key]Declaration),
		scopes: make(map[Key]*Scope),
	}
}

func (d *Declarations) Inject(key Key, ctor Constructor, deps ...Dep) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if ctor == nil {
		return errInvalidProvider(key, "constructor is nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.decls[key]; exists {
		return errInjectionAlreadyApplied(key)
	}

	d.decls[key] = Declaration{
		Key:       key,
		Deps:      append([]Dep(nil), deps...),
		Construct: ctor,
	}
	d.order = append(d.order, key)
	return nil
}

// InjectScope makes instances of key cache on the nearest container tagged
// with scope.
func (d *Declarations) InjectScope(key Key, scope *Scope) error {
	if err := validateKey(key); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.decls[key]; !exists {
		return errScopeWithoutInjection(key)
	}
	if _, exists := d.scopes[key]; exists {
		return errScopeAlreadyApplied(key)
	}

	d.scopes[key] = scope
	return nil
}

func (d *Declarations) Lookup(key Key) (Declaration, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	decl, ok := d.decls[key]
	return decl, ok
}

func (d *Declarations) ScopeOf(key Key) (*Scope, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	scope, ok := d.scopes[key]
	return scope, ok
}

// Keys returns declared keys in declaration order.
func (d *Declarations) Keys() []Key {
	d.mu.RLock()
	defer d.mu.RUnlock()

	keys := make([]Key, len(d.order))
	copy(keys, d.order)
	return keys
}

// InjectFunc declares fn as the constructor of T. fn must return T or
// (T, error). Without explicit deps, fn's parameter types are the
// dependency keys.
func InjectFunc[T any](d *Declarations, fn any, deps ...Dep) error {
	key := TypeOf[T]()

	f, err := reflect.Inspect(fn)
	if err != nil {
		return errInvalidProvider(key, err.Error())
	}
	if !f.Returns(reflect.TypeOf[T]()) {
		return errInvalidProvider(key, fmt.Sprintf("constructor returns %s", reflect.NameOf(f.Out)))
	}

	if len(deps) == 0 {
		deps = make([]Dep, len(f.Params))
		for i, param := range f.Params {
			deps[i] = Ref(param)
		}
	} else if len(deps) != len(f.Params) {
		return errInvalidProvider(
			key,
			fmt.Sprintf("constructor takes %d arguments, %d dependencies declared", len(f.Params), len(deps)),
		)
	}

	return d.Inject(key, f.Call, deps...)
}

func Inject(key Key, ctor Constructor, deps ...Dep) error {
	return DefaultDeclarations.Inject(key, ctor, deps...)
}

func InjectScope(key Key, scope *Scope) error {
	return DefaultDeclarations.InjectScope(key, scope)
}
