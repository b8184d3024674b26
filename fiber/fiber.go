// Package fiber provides stratum integration for the Fiber web framework.
//
// Every request runs inside its own task scope. The scope travels in the
// request's user context and is exited once the handler chain returns.
//
// Example usage:
//
//	provider, _ := builder.Build()
//
//	app := fiber.New()
//	app.Use(stratumfiber.TaskScopeMiddleware(provider))
//
//	app.Post("/login", stratumfiber.Handle(AuthController.Login))
//	app.Get("/users/:id", stratumfiber.Handle(UserController.GetByID))
package fiber

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/junioryono/stratum"
)

// Config holds the configuration for the task scope middleware.
type Config struct {
	// ErrorHandler is called when the request cannot be served.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(*fiber.Ctx, error) error

	// Logger receives task scope disposal failures. Defaults to a no-op logger.
	Logger *zap.Logger

	// Middlewares run inside the task scope, before the next handler.
	Middlewares []func(stratum.Context, *fiber.Ctx) error
}

// Option configures the task scope middleware.
type Option func(*Config)

// WithErrorHandler sets the handler for requests that cannot be served.
func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
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
func WithMiddleware(mw func(stratum.Context, *fiber.Ctx) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal Server Error",
	})
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *fiber.Ctx, _ error) error {
			return internalError(c)
		},
		Logger: zap.NewNop(),
	}
}

// TaskScopeMiddleware creates a Fiber middleware that enters a task scope for
// each request and stores it, together with the provider, in the request's
// user context.
//
// Example:
//
//	app := fiber.New()
//	app.Use(stratumfiber.TaskScopeMiddleware(provider))
func TaskScopeMiddleware(provider *stratum.Provider, opts ...Option) fiber.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) error {
		if provider == nil || provider.IsClosed() {
			return cfg.ErrorHandler(c, stratum.ErrProviderClosed)
		}

		ctx, exit := provider.EnterTaskScope(c.UserContext())
		defer func() {
			if err := exit(); err != nil {
				cfg.Logger.Warn("failed to exit task scope",
					zap.String("method", c.Method()),
					zap.String("route", c.Route().Path),
					zap.Error(err))
			}
		}()

		c.SetUserContext(stratum.NewContext(ctx, provider))

		sc := provider.Context(c.UserContext())
		for _, mw := range cfg.Middlewares {
			if err := mw(sc, c); err != nil {
				return cfg.ErrorHandler(c, err)
			}
		}

		return c.Next()
	}
}

// FromContext returns a resolution handle for the request's task scope.
// This is useful when you need to resolve services manually.
//
// Example:
//
//	sc, err := stratumfiber.FromContext(c)
//	users := stratum.MustResolve[*UserService](sc)
func FromContext(c *fiber.Ctx) (stratum.Context, error) {
	return stratum.FromContext(c.UserContext())
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*fiber.Ctx, any) error

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(*fiber.Ctx, error) error

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
func WithPanicHandler(h func(*fiber.Ctx, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
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
	cfg.PanicHandler = func(c *fiber.Ctx, v any) error {
		cfg.Logger.Error("panic in handler",
			zap.String("route", c.Route().Path),
			zap.Any("panic", v))
		return internalError(c)
	}
	cfg.ResolutionErrorHandler = func(c *fiber.Ctx, err error) error {
		cfg.Logger.Error("failed to resolve controller",
			zap.String("route", c.Route().Path),
			zap.Error(err))
		return internalError(c)
	}
	return cfg
}

// Handle wraps a controller method for type-safe resolution from the
// request's task scope.
//
// The method signature should be: func(T, *fiber.Ctx) error
//
// Example:
//
//	type UserController interface {
//	    GetByID(*fiber.Ctx) error
//	}
//
//	app.Get("/users/:id", stratumfiber.Handle(UserController.GetByID))
func Handle[T any](method func(T, *fiber.Ctx) error, opts ...HandlerOption) fiber.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		sc, ctxErr := FromContext(c)
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
