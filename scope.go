package thimble

// Scope tags a layer of the container hierarchy. Identity is the pointer, so
// two scopes created with the same name are still distinct.
type Scope struct {
	name string
}

func NewScope(name string) *Scope {
	return &Scope{name: name}
}

func (s *Scope) String() string {
	if s == nil {
		return "<none>"
	}
	return s.name
}
