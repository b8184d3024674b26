// Package digbridge connects stratum with go.uber.org/dig containers.
//
// Import pulls a type out of a dig container and registers it as a stratum
// constructor. Export goes the other way and provides a stratum service to a
// dig container.
//
//	c := dig.New()
//	_ = c.Provide(NewConfig)
//
//	b := stratum.NewBuilder()
//	_ = digbridge.Import[*Config](b, c, stratum.Singleton)
package digbridge

import (
	"context"
	"fmt"

	"go.uber.org/dig"

	"github.com/junioryono/stratum"
)

// Import registers T on b with the given lifetime. The factory asks c for T
// each time it runs, so dig's own caching decides whether the instance is
// shared; the stratum lifetime decides how often dig is asked.
func Import[T any](b *stratum.Builder, c *dig.Container, lifetime stratum.Lifetime, opts ...stratum.ConstructorOption) error {
	if b == nil {
		return stratum.ErrBuilderNil
	}
	if c == nil {
		return ErrContainerNil
	}

	return b.RegisterConstructor(stratum.KeyOf[T](), lifetime, func(stratum.Context) (stratum.Value, error) {
		v, err := invoke[T](c)
		if err != nil {
			return stratum.Value{}, err
		}

		return stratum.Wrap(v), nil
	}, opts...)
}

// Export provides T to c, resolved from p. dig caches the first result, so
// every consumer inside c shares one instance regardless of T's stratum
// lifetime. The resolution runs without a task scope.
func Export[T any](c *dig.Container, p *stratum.Provider, opts ...dig.ProvideOption) error {
	return ExportContext[T](context.Background(), c, p, opts...)
}

// ExportContext is like Export, but resolves T under ctx. Use it to hand
// task-scoped services to a container that lives as long as the task.
func ExportContext[T any](ctx context.Context, c *dig.Container, p *stratum.Provider, opts ...dig.ProvideOption) error {
	if c == nil {
		return ErrContainerNil
	}
	if p == nil {
		return stratum.ErrProviderNil
	}

	return c.Provide(func() (T, error) {
		return stratum.Resolve[T](p.Context(ctx))
	}, opts...)
}

func invoke[T any](c *dig.Container) (T, error) {
	var out T
	err := c.Invoke(func(v T) {
		out = v
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("dig: resolve %s: %w", stratum.KeyOf[T]().Name(), dig.RootCause(err))
	}

	return out, nil
}
