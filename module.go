package thimble

// Module groups registrations so they can be installed together.
type Module struct {
	name       string
	entries    []moduleEntry
	submodules []*Module
}

type moduleEntry struct {
	key      Key
	provider Provider
}

func NewModule(name string) *Module {
	return &Module{
		name: name,
	}
}

func (m *Module) Name() string {
	return m.name
}

func (m *Module) Provide(key Key, p Provider) *Module {
	m.entries = append(m.entries, moduleEntry{key: key, provider: p})
	return m
}

func (m *Module) Value(key Key, v any, opts ...ProviderOption) *Module {
	return m.Provide(key, Value(v, opts...))
}

func (m *Module) Resolver(key Key, fn ProducerFunc, opts ...ProviderOption) *Module {
	return m.Provide(key, Resolver(fn, opts...))
}

func (m *Module) Generator(key Key, fn ProducerFunc, opts ...ProviderOption) *Module {
	return m.Provide(key, Generator(fn, opts...))
}

func (m *Module) Include(submodule *Module) *Module {
	m.submodules = append(m.submodules, submodule)
	return m
}

func (m *Module) apply(c *Container) error {
	for _, sub := range m.submodules {
		if err := sub.apply(c); err != nil {
			return err
		}
	}

	for _, e := range m.entries {
		if err := c.Register(e.key, e.provider); err != nil {
			return err
		}
	}

	return nil
}

// Install registers every module on c, submodules first. It stops at the
// first failure; registrations made before it are kept.
func (c *Container) Install(modules ...*Module) error {
	for _, m := range modules {
		if err := m.apply(c); err != nil {
			return errModuleApplyFailed(m.name, err)
		}
	}
	return nil
}
