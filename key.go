package thimble

import (
	"fmt"
	stdreflect "reflect"

	"github.com/danpasecinic/thimble/internal/reflect"
)

// Key identifies a dependency. Keys are compared with ==, so any comparable
// value works; the usual choices are TypeOf[T]() and *Token[T].
type Key = any

// TypeOf returns the type identity of T for use as a key.
func TypeOf[T any]() Key {
	return reflect.TypeOf[T]()
}

// Token is an inert marker used as a typed key when no natural type exists.
// Every NewToken call yields a distinct key, even for equal names.
type Token[T any] struct {
	name string
}

func NewToken[T any](name string) *Token[T] {
	return &Token[T]{name: name}
}

func (t *Token[T]) String() string {
	return t.name
}

func KeyName(key Key) string {
	switch k := key.(type) {
	case nil:
		return "<nil>"
	case string:
		return k
	case stdreflect.Type:
		return k.String()
	case fmt.Stringer:
		return k.String()
	default:
		return fmt.Sprintf("%v", key)
	}
}

func validateKey(key Key) error {
	if !reflect.Comparable(key) {
		return errInvalidKey(key)
	}
	return nil
}
