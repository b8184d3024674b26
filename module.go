package stratum

// ModuleOption is a registration action applied to a Builder.
type ModuleOption func(*Builder) error

// NewModule groups registrations under a name. A failing registration is
// reported as a ModuleError naming the module; nested modules wrap each
// other's errors.
//
// Example:
//
//	var StorageModule = stratum.NewModule("storage",
//	    stratum.Provide(stratum.Singleton, NewPool),
//	    stratum.Provide(stratum.TaskScoped, NewTransaction),
//	    stratum.ProvideAs[*PostgresStore, Store](),
//	)
//
//	var AppModule = stratum.NewModule("app",
//	    StorageModule,
//	    stratum.Provide(stratum.Transient, NewHandler),
//	)
func NewModule(name string, options ...ModuleOption) ModuleOption {
	return func(b *Builder) error {
		for _, option := range options {
			if option == nil {
				continue
			}

			if err := option(b); err != nil {
				return &ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// Provide returns a ModuleOption registering f as the constructor of T with
// the given lifetime.
func Provide[T any](lifetime Lifetime, f func(c Context) (T, error), opts ...ConstructorOption) ModuleOption {
	return func(b *Builder) error {
		return addTyped(b, lifetime, f, opts)
	}
}

// ProvideMapping returns a ModuleOption that calls Map.
func ProvideMapping[S, D any](convert func(c Context, s S) (D, error)) ModuleOption {
	return func(b *Builder) error {
		return Map(b, convert)
	}
}

// ProvideAs returns a ModuleOption that calls As.
func ProvideAs[S, D any]() ModuleOption {
	return func(b *Builder) error {
		return As[S, D](b)
	}
}
