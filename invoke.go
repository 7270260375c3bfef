package thimble

import (
	"github.com/danpasecinic/thimble/internal/reflect"
)

// Get resolves key through g and asserts the result to T. A nil value yields
// T's zero value.
func Get[T any](g Getter, key Key) (T, error) {
	var zero T

	value, err := g.Get(key)
	if err != nil {
		return zero, err
	}
	if value == nil {
		return zero, nil
	}

	typed, ok := value.(T)
	if !ok {
		return zero, errTypeMismatch(key, reflect.TypeName[T](), value)
	}
	return typed, nil
}

func MustGet[T any](g Getter, key Key) T {
	v, err := Get[T](g, key)
	if err != nil {
		panic(err)
	}
	return v
}

// GetToken resolves a token with its declared type.
func GetToken[T any](g Getter, token *Token[T]) (T, error) {
	return Get[T](g, token)
}

// Resolve resolves the type identity of T.
func Resolve[T any](g Getter) (T, error) {
	return Get[T](g, TypeOf[T]())
}

func MustResolve[T any](g Getter) T {
	v, err := Resolve[T](g)
	if err != nil {
		panic(err)
	}
	return v
}

func TryResolve[T any](g Getter) (T, bool) {
	v, err := Resolve[T](g)
	return v, err == nil
}
