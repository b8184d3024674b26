// Package chi provides stratum integration for the Chi router.
//
// Every request runs inside its own task scope: task-scoped services resolved
// while serving it are shared by the request's handlers and disposed when the
// request completes.
//
// Example usage:
//
//	provider, _ := builder.Build()
//
//	r := stratumchi.NewRouter(provider)
//	r.Post("/login", stratumchi.Handle(AuthController.Login))
//	r.Get("/users/{id}", stratumchi.Handle(UserController.GetByID))
package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/junioryono/stratum"
)

// Config holds the configuration for the task scope middleware.
type Config struct {
	// ErrorHandler is called when the request cannot be served, e.g. the
	// provider is closed or a middleware failed.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// Logger receives task scope disposal failures. Defaults to a no-op logger.
	Logger *zap.Logger

	// Middlewares run inside the task scope, before the next handler.
	// They can be used to seed task-scoped services with request data.
	Middlewares []func(stratum.Context, *http.Request) error
}

// Option configures the task scope middleware.
type Option func(*Config)

// WithErrorHandler sets the handler for requests that cannot be served.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithMiddleware adds a function that runs inside the task scope.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(stratum.Context, *http.Request) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		},
		Logger: zap.NewNop(),
	}
}

// TaskScopeMiddleware creates a middleware that enters a task scope for each
// request and attaches the provider to the request context, where Handle
// and stratum.FromContext find it.
//
// The task scope is exited when the request completes.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(stratumchi.TaskScopeMiddleware(provider))
func TaskScopeMiddleware(provider *stratum.Provider, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if provider == nil || provider.IsClosed() {
				cfg.ErrorHandler(w, r, stratum.ErrProviderClosed)
				return
			}

			ctx, exit := provider.EnterTaskScope(r.Context())
			defer func() {
				if err := exit(); err != nil {
					cfg.Logger.Warn("failed to exit task scope",
						zap.String("method", r.Method),
						zap.String("route", routePattern(r)),
						zap.Error(err))
				}
			}()

			r = r.WithContext(stratum.NewContext(ctx, provider))

			c := provider.Context(r.Context())
			for _, mw := range cfg.Middlewares {
				if err := mw(c, r); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewRouter returns a chi router with TaskScopeMiddleware installed.
func NewRouter(provider *stratum.Provider, opts ...Option) chi.Router {
	r := chi.NewRouter()
	r.Use(TaskScopeMiddleware(provider, opts...))
	return r
}

// routePattern returns the matched chi route, or the raw path when the
// request did not go through a chi router.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	return r.URL.Path
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(http.ResponseWriter, *http.Request, any)

	// ResolutionErrorHandler is called when the controller cannot be resolved,
	// including when the request did not pass through TaskScopeMiddleware.
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)

	// Logger receives panics and resolution failures.
	Logger *zap.Logger
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics.
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

// WithHandlerLogger sets the logger used by the default handlers.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(c *HandlerConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

func defaultHandlerConfig() *HandlerConfig {
	cfg := &HandlerConfig{Logger: zap.NewNop()}
	cfg.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		cfg.Logger.Error("panic in handler",
			zap.String("route", routePattern(r)),
			zap.Any("panic", v))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
	cfg.ResolutionErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		cfg.Logger.Error("failed to resolve controller",
			zap.String("route", routePattern(r)),
			zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
	return cfg
}

// Handle wraps a controller method for type-safe resolution from the
// request's task scope.
//
// The method signature should be: func(T, http.ResponseWriter, *http.Request)
//
// Example:
//
//	type UserController interface {
//	    GetByID(http.ResponseWriter, *http.Request)
//	}
//
//	r.Get("/users/{id}", stratumchi.Handle(UserController.GetByID))
func Handle[T any](method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(w, r, v)
				}
			}()
		}

		c, err := stratum.FromContext(r.Context())
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		controller, err := stratum.Resolve[T](c)
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		method(controller, w, r)
	}
}
