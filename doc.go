// Package thimble provides a hierarchical dependency injection container.
//
// Containers map keys to providers and form a tree. A lookup that misses on
// a container falls back to its parent, and named scopes decide where lazily
// produced values are cached.
//
// # Quick Start
//
// Create a container and register providers:
//
//	c := thimble.MustNew()
//
//	c.MustRegister(thimble.TypeOf[*Config](), thimble.Value(&Config{Port: 8080}))
//
//	c.MustRegister(thimble.TypeOf[*Server](), thimble.ResolverOf(func(r *thimble.Resolution) (*Server, error) {
//	    cfg, err := thimble.Resolve[*Config](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &Server{config: cfg}, nil
//	}))
//
//	srv := thimble.MustResolve[*Server](c)
//	defer c.Dispose()
//
// # Keys
//
// Any comparable value is a key. TypeOf[T]() gives the identity of a type and
// NewToken[T] gives a typed marker when no natural type exists:
//
//	var DSN = thimble.NewToken[string]("dsn")
//	c.MustRegister(DSN, thimble.Value("postgres://localhost/app"))
//	dsn, err := thimble.GetToken(c, DSN)
//
// # Providers
//
// Three kinds of providers control how often a value is produced:
//
//	thimble.Value(v)          // fixed value
//	thimble.Resolver(fn)      // produced once, then cached
//	thimble.Generator(fn)     // produced on every lookup
//
// A key takes one provider per container. Registering it again on the same
// container fails with ErrDuplicateKey; registering it on another container
// of the tree shadows the ancestor's entry.
//
// # Scopes
//
// Tag containers with a Scope and attach the same scope to a provider. The
// provider then runs in, and a resolver caches on, the nearest container
// with that tag above the container the lookup was issued on:
//
//	var Request = thimble.NewScope("request")
//
//	root := thimble.MustNew()
//	root.MustRegister(TypeOf[*Tx](), thimble.Resolver(openTx, thimble.InScope(Request)))
//
//	req := thimble.MustNew(thimble.WithParent(root), thimble.WithScope(Request))
//	tx, _ := thimble.Resolve[*Tx](req)  // cached on req, not root
//
// A scope tag may appear at most once on any path from a container to the
// root.
//
// # Auto-Construction
//
// When no container provides a key, the container falls back to the
// injection declarations registry. Declared dependencies are resolved in
// order from the container the lookup was issued on:
//
//	thimble.InjectFunc[*UserService](thimble.DefaultDeclarations, NewUserService)
//	thimble.InjectScope(thimble.TypeOf[*UserService](), Request)
//
// Cycles between declarations fail with ErrCircularDependency, and the error
// carries the construction chain.
//
// # Disposal
//
// Dispose runs destroy hooks, closes produced values that implement
// io.Closer or Disposer, and disposes every child container:
//
//	c.MustRegister(key, thimble.Resolver(openDB, thimble.OnDestroy(func(v any) error {
//	    return v.(*sql.DB).Close()
//	})))
//	err := root.Dispose()
//
// # Debug Visualization
//
//	c.PrintTree()            // text tree to stdout
//	output := c.SprintTree()
//	info := c.Tree()         // structured TreeInfo
package thimble
