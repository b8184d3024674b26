package stratum

// AddTransient registers f as the constructor of T. Every resolution runs f.
//
// Example:
//
//	stratum.AddTransient(b, func(c stratum.Context) (*Request, error) {
//	    return &Request{}, nil
//	})
func AddTransient[T any](b *Builder, f func(c Context) (T, error), opts ...ConstructorOption) error {
	return addTyped(b, Transient, f, opts)
}

// AddSingleton registers f as the constructor of T. f runs at most once per
// provider, on first resolution; every resolution gets a copy of the
// instance.
func AddSingleton[T any](b *Builder, f func(c Context) (T, error), opts ...ConstructorOption) error {
	return addTyped(b, Singleton, f, opts)
}

// AddThreadScoped registers f as the constructor of T with one instance per
// goroutine.
func AddThreadScoped[T any](b *Builder, f func(c Context) (T, error), opts ...ConstructorOption) error {
	return addTyped(b, ThreadScoped, f, opts)
}

// AddTaskScoped registers f as the constructor of T with one instance per
// task scope. Resolving T outside a task scope fails with
// *ScopeContextMissingError.
func AddTaskScoped[T any](b *Builder, f func(c Context) (T, error), opts ...ConstructorOption) error {
	return addTyped(b, TaskScoped, f, opts)
}

func addTyped[T any](b *Builder, lifetime Lifetime, f func(c Context) (T, error), opts []ConstructorOption) error {
	key := KeyOf[T]()

	if b == nil {
		return &RegistrationError{Key: key, Operation: "register constructor", Cause: ErrBuilderNil}
	}

	if f == nil {
		return &RegistrationError{Key: key, Operation: "register constructor", Cause: ErrFactoryNil}
	}

	factory := func(c Context) (Value, error) {
		v, err := f(c)
		if err != nil {
			return Value{}, err
		}

		return Wrap[T](v), nil
	}

	opts = append([]ConstructorOption{WithSplitter(CloneSplitter[T]())}, opts...)

	return b.RegisterConstructor(key, lifetime, factory, opts...)
}

// Map exposes the service constructed for S as D through convert.
//
// Example:
//
//	stratum.Map(b, func(c stratum.Context, cfg *Config) (DSN, error) {
//	    return DSN(cfg.DatabaseURL), nil
//	})
func Map[S, D any](b *Builder, convert func(c Context, s S) (D, error)) error {
	dst := KeyOf[D]()

	if b == nil {
		return &RegistrationError{Key: dst, Operation: "register mapping", Cause: ErrBuilderNil}
	}

	if convert == nil {
		return &RegistrationError{Key: dst, Operation: "register mapping", Cause: ErrConverterNil}
	}

	return b.RegisterMapping(dst, KeyOf[S](), func(c Context, v Value) (Value, error) {
		s, err := Unwrap[S](v)
		if err != nil {
			return Value{}, err
		}

		d, err := convert(c, s)
		if err != nil {
			return Value{}, err
		}

		return Wrap[D](d), nil
	})
}

// As exposes the service constructed for S under the interface D it
// implements. Several implementations mapped to one interface are all
// returned by ResolveAll.
//
// Example:
//
//	stratum.As[*PostgresStore, Store](b)
func As[S, D any](b *Builder) error {
	src, dst := KeyOf[S](), KeyOf[D]()

	if b == nil {
		return &RegistrationError{Key: dst, Operation: "register mapping", Cause: ErrBuilderNil}
	}

	if !src.implements(dst) {
		return &RegistrationError{Key: dst, Operation: "register mapping", Cause: ErrNotAssignable}
	}

	return b.RegisterMapping(dst, src, func(_ Context, v Value) (Value, error) {
		s, err := Unwrap[S](v)
		if err != nil {
			return Value{}, err
		}

		d, _ := any(s).(D)
		return Wrap[D](d), nil
	})
}
