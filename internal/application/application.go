package application

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/coffee-shop-env/internal/api"
	"github.com/eugenenazirov/coffee-shop-env/internal/config"
	"github.com/eugenenazirov/coffee-shop-env/internal/environment"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	env     *environment.Environment
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if cfg.Environment == nil {
		return nil, fmt.Errorf("no environment configured for profile %q", cfg.Profile)
	}

	logger = logger.With(zap.String("profile", cfg.Environment.Profile()))

	handler := api.NewHandler(cfg.Environment)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithAllowedOrigins(cfg.AllowedOrigins...),
	)

	return &App{
		env:     cfg.Environment,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// BuildRootHandler mounts the API under /api/ and the static-style
// /environment.json document; every other path is not found.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/environment.json", apiHandler)
	mux.Handle("/", http.NotFoundHandler())
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening",
			zap.String("addr", a.server.Addr),
			zap.Bool("production", a.env.Production()),
			zap.String("api_server_url", a.env.APIServerURL()),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Environment returns the record served by the application.
func (a *App) Environment() *environment.Environment {
	return a.env
}
