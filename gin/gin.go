// Package gin provides stratum integration for the Gin web framework.
//
// Every request runs inside its own task scope that is exited once the
// handler chain returns.
//
// Example usage:
//
//	provider, _ := builder.Build()
//
//	g := gin.New()
//	g.Use(stratumgin.TaskScopeMiddleware(provider))
//
//	g.POST("/login", stratumgin.Handle(AuthController.Login))
//	g.GET("/users/:id", stratumgin.Handle(UserController.GetByID))
package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/junioryono/stratum"
)

// Config holds the configuration for the task scope middleware.
type Config struct {
	// ErrorHandler is called when the request cannot be served.
	// If nil, a default handler aborting with 500 Internal Server Error is used.
	ErrorHandler func(*gin.Context, error)

	// Logger receives task scope disposal failures. Defaults to a no-op logger.
	Logger *zap.Logger

	// Middlewares run inside the task scope, before the rest of the chain.
	//
	// Example:
	//
	//	stratumgin.WithMiddleware(func(sc stratum.Context, c *gin.Context) error {
	//	    req := stratum.MustResolve[*request.Context](sc)
	//	    req.SetUser(c.GetHeader("X-User"))
	//	    return nil
	//	})
	Middlewares []func(stratum.Context, *gin.Context) error
}

// Option configures the task scope middleware.
type Option func(*Config)

// WithErrorHandler sets the handler for requests that cannot be served.
func WithErrorHandler(h func(*gin.Context, error)) Option {
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
func WithMiddleware(mw func(stratum.Context, *gin.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func abortInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": http.StatusText(http.StatusInternalServerError),
	})
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *gin.Context, _ error) {
			abortInternal(c)
		},
		Logger: zap.NewNop(),
	}
}

// TaskScopeMiddleware creates a gin.HandlerFunc that enters a task scope for
// each request. The provider and the task scope are attached to the request
// context, so stratum.FromContext(c.Request.Context()) resolves within it.
//
// Example:
//
//	g := gin.New()
//	g.Use(stratumgin.TaskScopeMiddleware(provider))
func TaskScopeMiddleware(provider *stratum.Provider, opts ...Option) gin.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		if provider == nil || provider.IsClosed() {
			cfg.ErrorHandler(c, stratum.ErrProviderClosed)
			return
		}

		ctx, exit := provider.EnterTaskScope(c.Request.Context())
		defer func() {
			if err := exit(); err != nil {
				cfg.Logger.Warn("failed to exit task scope",
					zap.String("method", c.Request.Method),
					zap.String("route", c.FullPath()),
					zap.Error(err))
			}
		}()

		c.Request = c.Request.WithContext(stratum.NewContext(ctx, provider))

		sc := provider.Context(c.Request.Context())
		for _, mw := range cfg.Middlewares {
			if err := mw(sc, c); err != nil {
				cfg.ErrorHandler(c, err)
				return
			}
		}

		c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	// If true, panics are caught and handled by PanicHandler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*gin.Context, any)

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(*gin.Context, error)

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

// WithPanicHandler sets the handler for panics (requires WithPanicRecovery(true)).
func WithPanicHandler(h func(*gin.Context, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(*gin.Context, error)) HandlerOption {
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
	cfg.PanicHandler = func(c *gin.Context, v any) {
		cfg.Logger.Error("panic in handler",
			zap.String("route", c.FullPath()),
			zap.Any("panic", v))
		abortInternal(c)
	}
	cfg.ResolutionErrorHandler = func(c *gin.Context, err error) {
		cfg.Logger.Error("failed to resolve controller",
			zap.String("route", c.FullPath()),
			zap.Error(err))
		abortInternal(c)
	}
	return cfg
}

// Handle wraps a controller method for type-safe resolution from the
// request's task scope.
//
// The method signature should be: func(T, *gin.Context)
//
// Example:
//
//	type UserController interface {
//	    GetByID(*gin.Context)
//	}
//
//	g.GET("/users/:id", stratumgin.Handle(UserController.GetByID))
func Handle[T any](method func(T, *gin.Context), opts ...HandlerOption) gin.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		if cfg.PanicRecovery {
			defer func() {
				if r := recover(); r != nil {
					cfg.PanicHandler(c, r)
				}
			}()
		}

		sc, err := stratum.FromContext(c.Request.Context())
		if err != nil {
			cfg.ResolutionErrorHandler(c, err)
			return
		}

		controller, err := stratum.Resolve[T](sc)
		if err != nil {
			cfg.ResolutionErrorHandler(c, err)
			return
		}

		method(controller, c)
	}
}
