package stratum

import (
	"context"

	"go.uber.org/zap"
)

// Observer is notified around every factory invocation. ObserveBuild is
// called before the factory runs; the returned context is handed to the
// factory (and so to every nested resolution), and done is called with the
// factory's error, or nil, once it returns. A nil context keeps the one the
// resolution already runs under.
//
// Observers must be safe for concurrent use.
type Observer interface {
	ObserveBuild(ctx context.Context, key Key, lifetime Lifetime) (context.Context, func(err error))
}

// Option configures the Provider produced by Builder.Build.
type Option interface {
	apply(*options)
}

// options holds provider configuration.
type options struct {
	logger           *zap.Logger
	observers        []Observer
	validateMappings bool
	recoverPanics    bool
	disposal         bool
}

// optionFunc adapts a function to Option.
type optionFunc func(*options)

func (f optionFunc) apply(opts *options) {
	f(opts)
}

func defaultOptions() *options {
	return &options{
		logger:        zap.NewNop(),
		recoverPanics: true,
		disposal:      true,
	}
}

// WithLogger sets the logger used by the provider. A nil logger disables
// logging.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(opts *options) {
		if logger == nil {
			logger = zap.NewNop()
		}
		opts.logger = logger
	})
}

// WithObserver adds an Observer. Observers run in registration order; their
// done callbacks run in reverse order.
func WithObserver(observer Observer) Option {
	return optionFunc(func(opts *options) {
		if observer != nil {
			opts.observers = append(opts.observers, observer)
		}
	})
}

// WithMappingValidation makes Build fail when a mapping's source key has no
// registered constructor. Without it such mappings fail at resolution time.
func WithMappingValidation() Option {
	return optionFunc(func(opts *options) {
		opts.validateMappings = true
	})
}

// WithPanicRecovery controls whether panicking factories and converters are
// turned into *FactoryPanicError. Enabled by default.
func WithPanicRecovery(enabled bool) Option {
	return optionFunc(func(opts *options) {
		opts.recoverPanics = enabled
	})
}

// WithDisposal controls whether cached instances implementing Disposable or
// DisposableWithContext are closed when their scope ends. Enabled by default.
func WithDisposal(enabled bool) Option {
	return optionFunc(func(opts *options) {
		opts.disposal = enabled
	})
}

// ConstructorOption configures a single constructor registration.
type ConstructorOption interface {
	applyConstructor(*constructorOptions)
}

// constructorOptions holds per-constructor configuration.
type constructorOptions struct {
	splitter Splitter
}

// constructorOptionFunc adapts a function to ConstructorOption.
type constructorOptionFunc func(*constructorOptions)

func (f constructorOptionFunc) applyConstructor(opts *constructorOptions) {
	f(opts)
}

// WithSplitter sets how cached instances of the constructor are duplicated
// for callers. Defaults to CopySplitter for the constructor's key.
func WithSplitter(splitter Splitter) ConstructorOption {
	return constructorOptionFunc(func(opts *constructorOptions) {
		opts.splitter = splitter
	})
}
