package thimble

import (
	"go.uber.org/multierr"

	"github.com/danpasecinic/thimble/internal/graph"
)

// Validate reports declaration cycles without constructing anything.
func (d *Declarations) Validate() error {
	return d.validate(nil)
}

// Validate checks the declarations c uses against the keys its ancestry
// provides. Keys registered anywhere from c to the root shadow declarations;
// any remaining declaration cycle, or a declared dependency nothing can
// provide, is reported.
func (c *Container) Validate() error {
	provided := make(map[Key]bool)
	for cur := c; cur != nil; cur = cur.parent {
		for _, key := range cur.Keys() {
			provided[key] = true
		}
	}
	return c.cfg.declarations.validate(provided)
}

func (d *Declarations) validate(provided map[Key]bool) error {
	g := graph.New[Key]()
	decls := make(map[Key]Declaration)

	for _, key := range d.Keys() {
		if provided[key] {
			continue
		}
		decl, _ := d.Lookup(key)
		deps := make([]Key, len(decl.Deps))
		for i, dep := range decl.Deps {
			deps[i] = dep.Key()
		}
		decls[key] = decl
		g.AddNode(key, deps)
	}
	for key := range provided {
		g.AddNode(key, nil)
	}

	var err error
	for _, path := range g.CyclePaths() {
		err = multierr.Append(err, errCircularDependency(chainOf(path, decls)))
	}

	if provided != nil {
		for _, missing := range g.Missing() {
			for _, dependent := range g.Dependents(missing) {
				index := indexOf(decls[dependent], missing)
				err = multierr.Append(err, errMissingDependency(missing, dependent, index, errUndefinedKey(missing)))
			}
		}
	}

	return err
}

func chainOf(path []Key, decls map[Key]Declaration) []Frame {
	chain := make([]Frame, len(path))
	for i, key := range path {
		chain[i] = Frame{Target: key, Index: -1}
		if i > 0 {
			chain[i].Index = indexOf(decls[path[i-1]], key)
		}
	}
	return chain
}

func indexOf(decl Declaration, key Key) int {
	for i, dep := range decl.Deps {
		if dep.Key() == key {
			return i
		}
	}
	return -1
}
