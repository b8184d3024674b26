package stratum

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Provider resolves services from a finalized Builder. It is immutable apart
// from its caches and is safe for concurrent use.
//
// Resolution walks three layers: mappings pick the source key and converter
// for the requested key, the scope layer applies the source's lifetime, and
// the construction layer runs its factory.
type Provider struct {
	id     uuid.UUID
	opts   *options
	logger *zap.Logger

	mappings *mappingLayer
	scope    *scopeLayer

	// tasks tracks the task scopes entered through this provider that have
	// not exited yet.
	tasks sync.Map // map[uuid.UUID]*taskScope

	closed atomic.Bool
}

// Resolver resolves services by key. Context implements it.
type Resolver interface {
	Resolve(key Key) (Value, error)
	ResolveAll(key Key) ([]Value, error)
}

var _ Resolver = Context{}

// ID returns the unique identifier generated for the provider by Build.
func (p *Provider) ID() string {
	return p.id.String()
}

// IsClosed reports whether Close has been called.
func (p *Provider) IsClosed() bool {
	return p.closed.Load()
}

// Context returns a resolution handle running under ctx. Task-scoped
// services need ctx to carry a task scope; see EnterTaskScope.
func (p *Provider) Context(ctx context.Context) Context {
	return Context{provider: p, ctx: ctx}
}

// Resolve resolves the first service registered under key.
func (p *Provider) Resolve(ctx context.Context, key Key) (Value, error) {
	return p.Context(ctx).Resolve(key)
}

// ResolveAll resolves every service registered under key, in registration
// order. A key nothing is registered under yields an empty slice.
func (p *Provider) ResolveAll(ctx context.Context, key Key) ([]Value, error) {
	return p.Context(ctx).ResolveAll(key)
}

func (p *Provider) resolve(c Context, key Key) (Value, error) {
	if p.closed.Load() {
		return Value{}, ErrProviderClosed
	}

	if key.IsZero() {
		return Value{}, ErrKeyZero
	}

	v, err := p.mappings.resolve(c, key)
	if err != nil {
		return Value{}, err
	}

	// Close may have run while a factory was building.
	if p.closed.Load() {
		return Value{}, ErrProviderClosed
	}

	return v, nil
}

func (p *Provider) resolveAll(c Context, key Key) ([]Value, error) {
	if p.closed.Load() {
		return nil, ErrProviderClosed
	}

	if key.IsZero() {
		return nil, ErrKeyZero
	}

	values, err := p.mappings.resolveAll(c, key)
	if err != nil {
		return nil, err
	}

	if p.closed.Load() {
		return nil, ErrProviderClosed
	}

	return values, nil
}

// Keys returns every key something can be resolved under, sorted by name.
func (p *Provider) Keys() []Key {
	return p.mappings.keys()
}

// Has reports whether anything is registered under key.
func (p *Provider) Has(key Key) bool {
	return p.mappings.has(key)
}

// Lifetime returns the lifetime of the constructor registered under key.
// Keys that are only reachable through mappings have no lifetime of their
// own.
func (p *Provider) Lifetime(key Key) (Lifetime, bool) {
	entry, ok := p.scope.entries[key]
	if !ok {
		return 0, false
	}

	return entry.lifetime, true
}

// ExitThreadScope releases the thread-scoped instances of the calling
// goroutine and disposes them. The next thread-scoped resolution on the
// goroutine starts from a fresh registry.
//
// Goroutines that resolve thread-scoped services should call it before they
// return:
//
//	go func() {
//	    defer provider.ExitThreadScope()
//	    ...
//	}()
func (p *Provider) ExitThreadScope() error {
	return p.scope.releaseThread(context.Background())
}

// Close exits the open task scopes, releases every thread scope and
// disposes the singletons, in that order. Later resolutions fail with
// ErrProviderClosed. Calling Close more than once is harmless.
func (p *Provider) Close() error {
	return p.CloseContext(context.Background())
}

// CloseContext is Close with a context handed to DisposableWithContext
// instances.
func (p *Provider) CloseContext(ctx context.Context) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error

	p.tasks.Range(func(_, ts any) bool {
		if err := p.exitTaskScope(ctx, ts.(*taskScope)); err != nil {
			errs = append(errs, err)
		}
		return true
	})

	errs = append(errs, p.scope.close(ctx)...)

	if len(errs) > 0 {
		err := &DisposalError{Context: "provider", Errors: errs}
		p.logger.Warn("provider disposal failed", zap.Stringer("provider", p.id), zap.Error(err))
		return err
	}

	p.logger.Info("provider closed", zap.Stringer("provider", p.id))
	return nil
}

// Resolve resolves the first service registered for T and unwraps it.
//
// Example:
//
//	logger, err := stratum.Resolve[Logger](provider.Context(ctx))
//	if err != nil {
//	    // Handle error
//	}
func Resolve[T any](r Resolver) (T, error) {
	var zero T

	if r == nil {
		return zero, ErrProviderNil
	}

	v, err := r.Resolve(KeyOf[T]())
	if err != nil {
		return zero, err
	}

	return Unwrap[T](v)
}

// MustResolve is Resolve that panics on failure. It suits application
// startup, where a missing service is fatal.
func MustResolve[T any](r Resolver) T {
	service, err := Resolve[T](r)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve service: %v", err))
	}

	return service
}

// ResolveAll resolves every service registered for T, in registration
// order, and unwraps them.
func ResolveAll[T any](r Resolver) ([]T, error) {
	if r == nil {
		return nil, ErrProviderNil
	}

	values, err := r.ResolveAll(KeyOf[T]())
	if err != nil {
		return nil, err
	}

	services := make([]T, 0, len(values))
	var errs []error
	for _, v := range values {
		s, err := Unwrap[T](v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		services = append(services, s)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return services, nil
}
