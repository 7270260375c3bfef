package thimble

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// construct is the fallback reached at the root of the search when no
// container provides key. It builds key from its injection declaration,
// resolving each dependency from origin, and caches the instance on the
// topmost container sharing origin's declarations, or on the scope-matching
// container of origin's ancestry.
func (c *Container) construct(ctx context.Context, s *session, origin *Container, key Key, arg int) (any, error) {
	decls := origin.cfg.declarations
	decl, ok := decls.Lookup(key)
	if !ok {
		return nil, errUndefinedKey(key)
	}

	if err := s.enter(key, arg); err != nil {
		return nil, err
	}

	target := origin.declarationOwner()
	if scope, ok := decls.ScopeOf(key); ok {
		var err error
		if target, err = origin.scopeTarget(target, key, scope); err != nil {
			s.clear()
			return nil, err
		}
	}

	value, err := target.produceOnce(
		s, key, nil, func() (any, error) {
			args, err := origin.resolveArgs(ctx, s, decl)
			if err != nil {
				return nil, err
			}

			instance, err := decl.Construct(args)
			if err != nil {
				return nil, errProviderFailed(key, err)
			}
			return instance, nil
		},
	)
	if err != nil {
		s.clear()
		return nil, err
	}

	s.leave(key)
	target.logger.Debug("constructed", zap.String("key", KeyName(key)), zap.Int("args", len(decl.Deps)))
	return value, nil
}

// declarationOwner returns the topmost ancestor of c, c included, that uses
// the same declarations as c.
func (c *Container) declarationOwner() *Container {
	owner := c
	for owner.parent != nil && owner.parent.cfg.declarations == c.cfg.declarations {
		owner = owner.parent
	}
	return owner
}

// resolveArgs resolves decl's dependencies in declared order, each searched
// from c independently.
func (c *Container) resolveArgs(ctx context.Context, s *session, decl Declaration) ([]any, error) {
	args := make([]any, len(decl.Deps))
	for i, dep := range decl.Deps {
		depKey := dep.Key()

		arg, err := c.search(ctx, s, c, depKey, i)
		if err != nil {
			var e *Error
			if errors.As(err, &e) && e.Code == ErrCodeUndefinedKey && e.Key == depKey {
				return nil, errMissingDependency(depKey, decl.Key, i, err)
			}
			return nil, err
		}
		args[i] = arg
	}
	return args, nil
}
