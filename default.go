package stratum

import (
	"sync/atomic"
)

// defaultProvider holds the process-wide Provider. Nothing in this package
// reads it; it exists for application code that cannot thread a Provider
// through.
var defaultProvider atomic.Pointer[Provider]

// SetDefaultProvider sets the process-wide Provider, replacing any previous
// one. This is similar to slog.SetDefault. Pass nil to remove it.
func SetDefaultProvider(p *Provider) {
	defaultProvider.Store(p)
}

// InstallDefault sets the process-wide Provider only if none is set yet. It
// fails with ErrDefaultInstalled otherwise.
func InstallDefault(p *Provider) error {
	if p == nil {
		return ErrProviderNil
	}

	if !defaultProvider.CompareAndSwap(nil, p) {
		return ErrDefaultInstalled
	}

	return nil
}

// DefaultProvider returns the process-wide Provider, or nil if none is set.
func DefaultProvider() *Provider {
	return defaultProvider.Load()
}
