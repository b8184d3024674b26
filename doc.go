// Package stratum provides a runtime dependency registry for Go applications.
// Services are registered by type, resolved by type, and cached according to
// one of four lifetimes.
//
// # Overview
//
// A registry is built from three layers:
//   - Construction: one factory per type key.
//   - Scope: one lifetime per constructed type, deciding whether a resolution
//     builds a fresh instance or returns a copy of a cached one.
//   - Mapping: any number of mappings per type key, each exposing a
//     constructed service (possibly converted) under that key.
//
// Every constructor is automatically exposed under its own key, so a service
// can be resolved both as itself and as any interface it is mapped to.
//
// # Basic Usage
//
// Create a builder, register services, build a provider, and resolve:
//
//	b := stratum.NewBuilder()
//	stratum.AddSingleton(b, NewLogger)
//	stratum.AddTransient(b, NewUserService)
//
//	provider, err := b.Build(stratum.WithLogger(zapLogger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	users, err := stratum.Resolve[*UserService](provider.Context(ctx))
//
// # Lifetimes
//
//   - Transient: the factory runs on every resolution.
//   - Singleton: the factory runs once per provider.
//   - ThreadScoped: the factory runs once per goroutine. Call
//     Provider.ExitThreadScope before a long-lived goroutine returns.
//   - TaskScoped: the factory runs once per task scope. A task scope lives in
//     a context.Context created by Provider.EnterTaskScope and is shared by
//     every goroutine using that context.
//
// Cached lifetimes hand out copies of the instance they retain. A pointer
// service therefore shares its state with every copy; a struct service does
// not, unless it implements Cloner to say otherwise.
//
// # Dependencies
//
// Factories receive a Context and resolve their own dependencies with it:
//
//	func NewUserService(c stratum.Context) (*UserService, error) {
//	    db, err := stratum.Resolve[*Database](c)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &UserService{db: db}, nil
//	}
//
// Dependency cycles are not detected. Two singletons that resolve each other
// from their factories deadlock on their per-type locks.
//
// # Mappings
//
// Expose a constructed service under an interface, or convert it:
//
//	stratum.As[*PostgresStore, Store](b)
//	stratum.As[*MemoryStore, Store](b)
//	stratum.Map(b, func(c stratum.Context, cfg *Config) (DSN, error) {
//	    return DSN(cfg.URL), nil
//	})
//
//	store, err := stratum.Resolve[Store](c)     // *PostgresStore
//	stores, err := stratum.ResolveAll[Store](c) // both, in registration order
//
// # Task Scopes
//
//	err := provider.RunTaskScope(ctx, func(ctx context.Context) error {
//	    tx, err := stratum.Resolve[*Transaction](provider.Context(ctx))
//	    ...
//	})
//
// # Integrations
//
// The metrics and tracing packages provide Observers for Prometheus and
// OpenTelemetry, digbridge connects to go.uber.org/dig, and the chi, gin,
// echo and fiber modules enter a task scope per HTTP request.
//
// # Error Handling
//
// Failures are returned as typed errors that match sentinel values with
// errors.Is:
//   - NotFoundError (ErrNotFound): nothing registered for the key
//   - TypeMismatchError (ErrTypeMismatch): a value stored under another type
//   - ScopeContextMissingError (ErrScopeContextMissing): a task-scoped
//     service resolved without a live task scope
//   - FactoryError, FactoryPanicError: a factory or converter failed
//
// Internal bookkeeping inconsistencies panic with InvariantError.
package stratum
