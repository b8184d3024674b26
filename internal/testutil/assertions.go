package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/stratum"
)

// BuildProvider builds a provider from modules and closes it when the test
// ends.
func BuildProvider(t *testing.T, modules []stratum.ModuleOption, opts ...stratum.Option) *stratum.Provider {
	t.Helper()

	b := stratum.NewBuilder()
	require.NoError(t, b.AddModules(modules...))

	p, err := b.Build(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	return p
}

// EnterTaskScope enters a task scope that is exited when the test ends.
func EnterTaskScope(t *testing.T, p *stratum.Provider) context.Context {
	t.Helper()

	ctx, exit := p.EnterTaskScope(context.Background())
	t.Cleanup(func() { _ = exit() })

	return ctx
}

// RequireResolve resolves T or fails the test.
func RequireResolve[T any](t *testing.T, p *stratum.Provider, ctx context.Context) T {
	t.Helper()

	service, err := stratum.Resolve[T](p.Context(ctx))
	require.NoError(t, err, "failed to resolve service of type %s", stratum.KeyOf[T]())

	return service
}

// AssertNotFound checks that resolving T fails with a not found error.
func AssertNotFound[T any](t *testing.T, p *stratum.Provider, ctx context.Context) {
	t.Helper()

	_, err := stratum.Resolve[T](p.Context(ctx))
	assert.Error(t, err)
	assert.True(t, stratum.IsNotFound(err), "expected not found error, got: %v", err)
}

// AssertErrorType checks if an error is of a specific type
func AssertErrorType[T error](t *testing.T, err error, msgAndArgs ...any) T {
	t.Helper()
	var target T
	assert.ErrorAs(t, err, &target, msgAndArgs...)
	return target
}
