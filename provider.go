package thimble

// ProducerFunc builds a value for a Resolver or Generator provider. The
// Resolution carries the container the value is produced for.
type ProducerFunc func(r *Resolution) (any, error)

// DestroyHook receives a produced value when its owning container is disposed.
type DestroyHook func(value any) error

type ProviderKind uint8

const (
	KindValue ProviderKind = iota + 1
	KindResolver
	KindGenerator
)

func (k ProviderKind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindResolver:
		return "resolver"
	case KindGenerator:
		return "generator"
	default:
		return "unknown"
	}
}

// Provider describes how a key's value is produced. Build one with Value,
// Resolver or Generator.
type Provider struct {
	kind      ProviderKind
	value     any
	produce   ProducerFunc
	scope     *Scope
	onDestroy DestroyHook
}

func (p Provider) Kind() ProviderKind {
	return p.kind
}

func (p Provider) Scope() *Scope {
	return p.scope
}

type ProviderOption func(*Provider)

// InScope makes resolution run in, and cache on, the nearest container with
// scope s in the invoking container's ancestry.
func InScope(s *Scope) ProviderOption {
	return func(p *Provider) {
		p.scope = s
	}
}

func OnDestroy(hook DestroyHook) ProviderOption {
	return func(p *Provider) {
		p.onDestroy = hook
	}
}

func Value(v any, opts ...ProviderOption) Provider {
	return newProvider(Provider{kind: KindValue, value: v}, opts)
}

// Resolver produces a value at most once per owning container and caches it.
func Resolver(fn ProducerFunc, opts ...ProviderOption) Provider {
	return newProvider(Provider{kind: KindResolver, produce: fn}, opts)
}

// Generator produces a fresh value on every lookup.
func Generator(fn ProducerFunc, opts ...ProviderOption) Provider {
	return newProvider(Provider{kind: KindGenerator, produce: fn}, opts)
}

func ResolverOf[T any](fn func(r *Resolution) (T, error), opts ...ProviderOption) Provider {
	return Resolver(typed(fn), opts...)
}

func GeneratorOf[T any](fn func(r *Resolution) (T, error), opts ...ProviderOption) Provider {
	return Generator(typed(fn), opts...)
}

func typed[T any](fn func(r *Resolution) (T, error)) ProducerFunc {
	if fn == nil {
		return nil
	}
	return func(r *Resolution) (any, error) {
		return fn(r)
	}
}

func newProvider(p Provider, opts []ProviderOption) Provider {
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func (p Provider) validate(key Key) error {
	switch p.kind {
	case KindValue:
	case KindResolver, KindGenerator:
		if p.produce == nil {
			return errInvalidProvider(key, p.kind.String()+" function is nil")
		}
	default:
		return errInvalidProvider(key, "provider has no kind; use Value, Resolver or Generator")
	}
	return nil
}
