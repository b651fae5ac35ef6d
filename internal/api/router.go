package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/inkpot/blog/internal/api/handler"
	"github.com/inkpot/blog/internal/api/middleware"
	"github.com/inkpot/blog/internal/api/view"
	"github.com/inkpot/blog/internal/core/ports"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Posts  ports.PostService
	Auth   ports.AuthService
	Logger zerolog.Logger
	// Checks are pinged by the readiness probe, keyed by name.
	Checks map[string]handler.Pinger
	// Registerer and Gatherer back the HTTP metrics. A private registry is
	// used when nil.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) (*echo.Echo, error) {
	renderer, err := view.New()
	if err != nil {
		return nil, err
	}

	if deps.Registerer == nil || deps.Gatherer == nil {
		reg := prometheus.NewRegistry()
		deps.Registerer, deps.Gatherer = reg, reg
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "blog",
		Registerer: deps.Registerer,
	}))

	// --- Handlers ---
	postHandler := handler.NewPostHandler(deps.Posts)
	authHandler := handler.NewAuthHandler(deps.Auth)
	adminHandler := handler.NewAdminHandler(deps.Posts)
	requireAuth := middleware.RequireAuthenticated(deps.Auth)
	loadUser := middleware.LoadUser(deps.Auth)

	// --- Public pages ---
	e.GET("/", postHandler.Index, loadUser)
	e.GET("/post/:filename", postHandler.Show, loadUser)
	e.GET("/login", authHandler.LoginForm, loadUser)
	e.POST("/login", authHandler.Login)

	e.GET("/logout", authHandler.Logout, requireAuth)

	// --- Admin ---
	admin := e.Group("/admin", requireAuth)
	admin.GET("", adminHandler.Dashboard)
	admin.GET("/new", adminHandler.NewForm)
	admin.POST("/new", adminHandler.Create)
	admin.GET("/edit/*", adminHandler.EditForm)
	admin.POST("/edit/*", adminHandler.Update)
	admin.GET("/archive/*", adminHandler.Archive)
	admin.GET("/unarchive/*", adminHandler.Unarchive)
	admin.GET("/delete/*", adminHandler.Delete)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)            // liveness: is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness: are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: deps.Gatherer,
	}))

	return e, nil
}

// requestLogger feeds one structured line per request into zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
