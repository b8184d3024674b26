// Package benchmarks compares stratum against other DI libraries.
//
// Run benchmarks with: go test -bench=. -benchmem ./benchmarks/
package benchmarks

import (
	"context"
	"testing"

	"github.com/samber/do/v2"
	"go.uber.org/dig"

	"github.com/junioryono/stratum"
)

// =============================================================================
// Shared Test Types
// =============================================================================

type Logger struct{ Name string }

type Config struct{ Value string }

type Database struct {
	Logger *Logger
	Config *Config
}

type Cache struct {
	Logger   *Logger
	Database *Database
}

type UserService struct {
	Logger   *Logger
	Config   *Config
	Database *Database
	Cache    *Cache
}

func NewLogger() *Logger { return &Logger{Name: "logger"} }

func NewConfig() *Config { return &Config{Value: "config"} }

func NewDatabase(logger *Logger, config *Config) *Database {
	return &Database{Logger: logger, Config: config}
}

func NewCache(logger *Logger, db *Database) *Cache {
	return &Cache{Logger: logger, Database: db}
}

func NewUserService(logger *Logger, config *Config, db *Database, cache *Cache) *UserService {
	return &UserService{Logger: logger, Config: config, Database: db, Cache: cache}
}

// =============================================================================
// Registration
// =============================================================================

func buildStratum(b *testing.B, lifetime stratum.Lifetime) *stratum.Provider {
	b.Helper()

	builder := stratum.NewBuilder()
	err := builder.AddModules(
		stratum.Provide(lifetime, func(stratum.Context) (*Logger, error) { return NewLogger(), nil }),
		stratum.Provide(lifetime, func(stratum.Context) (*Config, error) { return NewConfig(), nil }),
		stratum.Provide(lifetime, func(c stratum.Context) (*Database, error) {
			return NewDatabase(stratum.MustResolve[*Logger](c), stratum.MustResolve[*Config](c)), nil
		}),
		stratum.Provide(lifetime, func(c stratum.Context) (*Cache, error) {
			return NewCache(stratum.MustResolve[*Logger](c), stratum.MustResolve[*Database](c)), nil
		}),
		stratum.Provide(lifetime, func(c stratum.Context) (*UserService, error) {
			return NewUserService(
				stratum.MustResolve[*Logger](c),
				stratum.MustResolve[*Config](c),
				stratum.MustResolve[*Database](c),
				stratum.MustResolve[*Cache](c),
			), nil
		}),
	)
	if err != nil {
		b.Fatal(err)
	}

	p, err := builder.Build()
	if err != nil {
		b.Fatal(err)
	}

	return p
}

func buildDig() *dig.Container {
	c := dig.New()
	_ = c.Provide(NewLogger)
	_ = c.Provide(NewConfig)
	_ = c.Provide(NewDatabase)
	_ = c.Provide(NewCache)
	_ = c.Provide(NewUserService)
	return c
}

func buildDo() do.Injector {
	injector := do.New()
	do.Provide(injector, func(do.Injector) (*Logger, error) { return NewLogger(), nil })
	do.Provide(injector, func(do.Injector) (*Config, error) { return NewConfig(), nil })
	do.Provide(injector, func(i do.Injector) (*Database, error) {
		return NewDatabase(do.MustInvoke[*Logger](i), do.MustInvoke[*Config](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*Cache, error) {
		return NewCache(do.MustInvoke[*Logger](i), do.MustInvoke[*Database](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*UserService, error) {
		return NewUserService(
			do.MustInvoke[*Logger](i),
			do.MustInvoke[*Config](i),
			do.MustInvoke[*Database](i),
			do.MustInvoke[*Cache](i),
		), nil
	})
	return injector
}

// =============================================================================
// Build Benchmarks
// =============================================================================

func BenchmarkBuild_Stratum(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		p := buildStratum(b, stratum.Singleton)
		_ = p.Close()
	}
}

func BenchmarkBuild_Dig(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		buildDig()
	}
}

func BenchmarkBuild_Do(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		_ = buildDo().Shutdown()
	}
}

// =============================================================================
// Singleton Resolution Benchmarks
// =============================================================================

func BenchmarkResolve_Singleton_Stratum(b *testing.B) {
	p := buildStratum(b, stratum.Singleton)
	defer p.Close()

	c := p.Context(context.Background())
	stratum.MustResolve[*UserService](c)

	b.ReportAllocs()
	for b.Loop() {
		_ = stratum.MustResolve[*UserService](c)
	}
}

func BenchmarkResolve_Singleton_Dig(b *testing.B) {
	c := buildDig()
	_ = c.Invoke(func(*UserService) {})

	b.ReportAllocs()
	for b.Loop() {
		_ = c.Invoke(func(*UserService) {})
	}
}

func BenchmarkResolve_Singleton_Do(b *testing.B) {
	injector := buildDo()
	do.MustInvoke[*UserService](injector)

	b.ReportAllocs()
	for b.Loop() {
		_ = do.MustInvoke[*UserService](injector)
	}
}

// =============================================================================
// Transient Resolution Benchmarks (New Graph Each Time)
// =============================================================================

func BenchmarkResolve_Transient_Stratum(b *testing.B) {
	p := buildStratum(b, stratum.Transient)
	defer p.Close()

	c := p.Context(context.Background())

	b.ReportAllocs()
	for b.Loop() {
		_ = stratum.MustResolve[*UserService](c)
	}
}

func BenchmarkResolve_Transient_Do(b *testing.B) {
	injector := do.New()
	do.ProvideTransient(injector, func(do.Injector) (*Logger, error) { return NewLogger(), nil })

	b.ReportAllocs()
	for b.Loop() {
		_ = do.MustInvoke[*Logger](injector)
	}
}

// Note: Dig doesn't have built-in transient support

// =============================================================================
// Concurrent Resolution Benchmarks
// =============================================================================

func BenchmarkResolve_Concurrent_Stratum(b *testing.B) {
	p := buildStratum(b, stratum.Singleton)
	defer p.Close()

	c := p.Context(context.Background())
	stratum.MustResolve[*UserService](c)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = stratum.MustResolve[*UserService](c)
		}
	})
}

func BenchmarkResolve_Concurrent_Dig(b *testing.B) {
	c := buildDig()
	_ = c.Invoke(func(*UserService) {})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = c.Invoke(func(*UserService) {})
		}
	})
}

func BenchmarkResolve_Concurrent_Do(b *testing.B) {
	injector := buildDo()
	do.MustInvoke[*UserService](injector)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = do.MustInvoke[*UserService](injector)
		}
	})
}

// =============================================================================
// Scope Benchmarks
// =============================================================================

func BenchmarkTaskScope_EnterAndResolve_Stratum(b *testing.B) {
	p := buildStratum(b, stratum.TaskScoped)
	defer p.Close()

	b.ReportAllocs()
	for b.Loop() {
		ctx, exit := p.EnterTaskScope(context.Background())
		_ = stratum.MustResolve[*UserService](p.Context(ctx))
		_ = exit()
	}
}

func BenchmarkScope_CreateAndResolve_Do(b *testing.B) {
	injector := do.New()
	do.Provide(injector, func(do.Injector) (*Logger, error) { return NewLogger(), nil })

	b.ReportAllocs()
	for b.Loop() {
		scope := injector.Scope("request")
		_ = do.MustInvoke[*Logger](scope)
		_ = scope.Shutdown()
	}
}

func BenchmarkThreadScope_Resolve_Stratum(b *testing.B) {
	p := buildStratum(b, stratum.ThreadScoped)
	defer p.Close()

	c := p.Context(context.Background())
	stratum.MustResolve[*UserService](c)

	b.ReportAllocs()
	for b.Loop() {
		_ = stratum.MustResolve[*UserService](c)
	}
}
