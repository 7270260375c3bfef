package reflect

import (
	"fmt"
	"reflect"
	"sync"
)

var (
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
	typeNameCache sync.Map
)

// TypeOf returns the identity of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func TypeName[T any]() string {
	return NameOf(TypeOf[T]())
}

func NameOf(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if cached, ok := typeNameCache.Load(t); ok {
		return cached.(string)
	}

	name := buildTypeName(t)
	typeNameCache.Store(t, name)
	return name
}

func buildTypeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Ptr:
		return "*" + buildTypeName(t.Elem())
	case reflect.Slice:
		return "[]" + buildTypeName(t.Elem())
	case reflect.Array:
		return fmt.Sprintf("[%d]%s", t.Len(), buildTypeName(t.Elem()))
	case reflect.Map:
		return "map[" + buildTypeName(t.Key()) + "]" + buildTypeName(t.Elem())
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + buildTypeName(t.Elem())
		case reflect.SendDir:
			return "chan<- " + buildTypeName(t.Elem())
		default:
			return "chan " + buildTypeName(t.Elem())
		}
	case reflect.Func:
		return t.String()
	default:
		if t.PkgPath() != "" {
			return t.PkgPath() + "." + t.Name()
		}
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}

func Comparable(v any) bool {
	if v == nil {
		return false
	}
	return reflect.ValueOf(v).Comparable()
}

func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

// Func describes a constructor function of the shape func(A, B, ...) T or
// func(A, B, ...) (T, error).
type Func struct {
	fn       reflect.Value
	Params   []reflect.Type
	Out      reflect.Type
	HasError bool
}

func Inspect(fn any) (*Func, error) {
	if fn == nil {
		return nil, fmt.Errorf("constructor is nil")
	}

	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %s", t)
	}
	if t.IsVariadic() {
		return nil, fmt.Errorf("constructor %s must not be variadic", t)
	}

	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return nil, fmt.Errorf("constructor %s must return T or (T, error)", t)
	}

	params := make([]reflect.Type, t.NumIn())
	for i := range params {
		params[i] = t.In(i)
	}

	return &Func{
		fn:       v,
		Params:   params,
		Out:      t.Out(0),
		HasError: t.NumOut() == 2,
	}, nil
}

func (f *Func) Returns(t reflect.Type) bool {
	return f.Out.AssignableTo(t)
}

func (f *Func) Call(args []any) (any, error) {
	if len(args) != len(f.Params) {
		return nil, fmt.Errorf("constructor expects %d arguments, got %d", len(f.Params), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		param := f.Params[i]
		if arg == nil {
			in[i] = reflect.Zero(param)
			continue
		}

		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(param) {
			return nil, fmt.Errorf("argument %d: cannot use %s as %s", i, NameOf(v.Type()), NameOf(param))
		}
		in[i] = v
	}

	out := f.fn.Call(in)
	if f.HasError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}
