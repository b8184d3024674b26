package stratum_test

import (
	"context"
	"sync"
	"testing"

	"github.com/junioryono/stratum"
)

type benchDep struct{ Value int }

type benchService struct {
	Dep *benchDep
}

func newBenchProvider(b *testing.B, lifetime stratum.Lifetime) *stratum.Provider {
	b.Helper()

	builder := stratum.NewBuilder()
	err := builder.AddModules(
		stratum.Provide(lifetime, func(stratum.Context) (*benchDep, error) {
			return &benchDep{Value: 1}, nil
		}),
		stratum.Provide(lifetime, func(c stratum.Context) (*benchService, error) {
			dep, err := stratum.Resolve[*benchDep](c)
			if err != nil {
				return nil, err
			}
			return &benchService{Dep: dep}, nil
		}),
		stratum.ProvideMapping(func(_ stratum.Context, s *benchService) (Namer, error) {
			return namerFunc(func() string { return "bench" }), nil
		}),
	)
	if err != nil {
		b.Fatal(err)
	}

	p, err := builder.Build()
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = p.Close() })

	return p
}

type namerFunc func() string

func (f namerFunc) Name() string { return f() }

func BenchmarkResolve(b *testing.B) {
	for _, lifetime := range []stratum.Lifetime{stratum.Transient, stratum.Singleton, stratum.ThreadScoped} {
		b.Run(lifetime.String(), func(b *testing.B) {
			p := newBenchProvider(b, lifetime)
			c := p.Context(context.Background())

			b.ReportAllocs()
			for b.Loop() {
				if _, err := stratum.Resolve[*benchService](c); err != nil {
					b.Fatal(err)
				}
			}
		})
	}

	b.Run("TaskScoped", func(b *testing.B) {
		p := newBenchProvider(b, stratum.TaskScoped)
		ctx, exit := p.EnterTaskScope(context.Background())
		b.Cleanup(func() { _ = exit() })
		c := p.Context(ctx)

		b.ReportAllocs()
		for b.Loop() {
			if _, err := stratum.Resolve[*benchService](c); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkResolveMapped(b *testing.B) {
	p := newBenchProvider(b, stratum.Singleton)
	c := p.Context(context.Background())

	b.ReportAllocs()
	for b.Loop() {
		if _, err := stratum.Resolve[Namer](c); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTaskScopeEnterExit(b *testing.B) {
	p := newBenchProvider(b, stratum.TaskScoped)

	b.ReportAllocs()
	for b.Loop() {
		ctx, exit := p.EnterTaskScope(context.Background())
		_, _ = stratum.Resolve[*benchService](p.Context(ctx))
		_ = exit()
	}
}

func BenchmarkResolveSingletonParallel(b *testing.B) {
	p := newBenchProvider(b, stratum.Singleton)
	c := p.Context(context.Background())

	var once sync.Once
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := stratum.Resolve[*benchService](c); err != nil {
				once.Do(func() { b.Error(err) })
			}
		}
	})
}
