package stratum

import (
	"context"
)

// Context is the resolution handle passed to every factory and converter.
// It is a small value: copying it is free, and every copy resolves against
// the same provider and the same task scope.
//
// A factory resolves its own dependencies through the Context it receives:
//
//	stratum.AddTransient(b, func(c stratum.Context) (*Repository, error) {
//	    db, err := stratum.Resolve[*Database](c)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &Repository{db: db}, nil
//	})
type Context struct {
	provider *Provider
	ctx      context.Context
}

// Context returns the standard context the resolution runs under. It carries
// the active task scope, if any, and whatever observers attached to it.
func (c Context) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}

	return c.ctx
}

// Provider returns the provider this handle resolves against.
func (c Context) Provider() *Provider {
	return c.provider
}

// WithContext returns a copy of c running under ctx.
func (c Context) WithContext(ctx context.Context) Context {
	c.ctx = ctx
	return c
}

// Resolve resolves the first service registered under key.
func (c Context) Resolve(key Key) (Value, error) {
	if c.provider == nil {
		return Value{}, ErrProviderNil
	}

	return c.provider.resolve(c, key)
}

// ResolveAll resolves every service registered under key, in registration
// order.
func (c Context) ResolveAll(key Key) ([]Value, error) {
	if c.provider == nil {
		return nil, ErrProviderNil
	}

	return c.provider.resolveAll(c, key)
}

type providerKey struct{}

// NewContext returns a copy of ctx carrying p, for code that only receives a
// standard context, such as HTTP handlers behind a task scope middleware.
func NewContext(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, providerKey{}, p)
}

// FromContext returns a resolution handle for the provider attached to ctx
// by NewContext. The handle runs under ctx, so it sees ctx's task scope.
func FromContext(ctx context.Context) (Context, error) {
	p, ok := ctx.Value(providerKey{}).(*Provider)
	if !ok || p == nil {
		return Context{}, ErrNoProvider
	}

	return p.Context(ctx), nil
}
