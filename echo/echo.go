// Package echo provides stratum integration for the Echo web framework.
//
// Every request runs inside its own task scope that is exited once the
// handler returns.
//
// Example usage:
//
//	provider, _ := builder.Build()
//
//	e := echo.New()
//	e.Use(stratumecho.TaskScopeMiddleware(provider))
//
//	e.POST("/login", stratumecho.Handle(AuthController.Login))
//	e.GET("/users/:id", stratumecho.Handle(UserController.GetByID))
package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/junioryono/stratum"
)

// Config holds the configuration for the task scope middleware.
type Config struct {
	// ErrorHandler is called when the request cannot be served.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(echo.Context, error) error

	// Logger receives task scope disposal failures. Defaults to a no-op logger.
	Logger *zap.Logger

	// Middlewares run inside the task scope, before the next handler.
	Middlewares []func(stratum.Context, echo.Context) error
}

// Option configures the task scope middleware.
type Option func(*Config)

// WithErrorHandler sets the handler for requests that cannot be served.
func WithErrorHandler(h func(echo.Context, error) error) Option {
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
func WithMiddleware(mw func(stratum.Context, echo.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func internalError() error {
	return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(echo.Context, error) error {
			return internalError()
		},
		Logger: zap.NewNop(),
	}
}

// TaskScopeMiddleware creates an Echo middleware that enters a task scope for
// each request. The provider and the task scope are attached to the request
// context.
//
// Example:
//
//	e := echo.New()
//	e.Use(stratumecho.TaskScopeMiddleware(provider))
func TaskScopeMiddleware(provider *stratum.Provider, opts ...Option) echo.MiddlewareFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if provider == nil || provider.IsClosed() {
				return cfg.ErrorHandler(c, stratum.ErrProviderClosed)
			}

			ctx, exit := provider.EnterTaskScope(c.Request().Context())
			defer func() {
				if err := exit(); err != nil {
					cfg.Logger.Warn("failed to exit task scope",
						zap.String("method", c.Request().Method),
						zap.String("route", c.Path()),
						zap.Error(err))
				}
			}()

			c.SetRequest(c.Request().WithContext(stratum.NewContext(ctx, provider)))

			sc := provider.Context(c.Request().Context())
			for _, mw := range cfg.Middlewares {
				if err := mw(sc, c); err != nil {
					return cfg.ErrorHandler(c, err)
				}
			}

			return next(c)
		}
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(echo.Context, any) error

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(echo.Context, error) error

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
func WithPanicHandler(h func(echo.Context, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(echo.Context, error) error) HandlerOption {
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
	cfg.PanicHandler = func(c echo.Context, v any) error {
		cfg.Logger.Error("panic in handler",
			zap.String("route", c.Path()),
			zap.Any("panic", v))
		return internalError()
	}
	cfg.ResolutionErrorHandler = func(c echo.Context, err error) error {
		cfg.Logger.Error("failed to resolve controller",
			zap.String("route", c.Path()),
			zap.Error(err))
		return internalError()
	}
	return cfg
}

// Handle wraps a controller method for type-safe resolution from the
// request's task scope.
//
// The method signature should be: func(T, echo.Context) error
//
// Example:
//
//	type UserController interface {
//	    GetByID(echo.Context) error
//	}
//
//	e.GET("/users/:id", stratumecho.Handle(UserController.GetByID))
func Handle[T any](method func(T, echo.Context) error, opts ...HandlerOption) echo.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c echo.Context) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		sc, ctxErr := stratum.FromContext(c.Request().Context())
		if ctxErr != nil {
			return cfg.ResolutionErrorHandler(c, ctxErr)
		}

		controller, resolveErr := stratum.Resolve[T](sc)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}
