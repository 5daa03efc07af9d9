package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/coffee-shop-env/internal/application"
	"github.com/eugenenazirov/coffee-shop-env/internal/config"
	"github.com/eugenenazirov/coffee-shop-env/internal/environment"
	"github.com/eugenenazirov/coffee-shop-env/internal/logging"
	"github.com/eugenenazirov/coffee-shop-env/internal/profile"
)

var signalNotify = signal.Notify

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "coffee-env: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	kingpinApp := kingpin.New("coffee-env", "Coffee Shop environment service - serves the client application's deployment configuration")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	profileName := kingpinApp.Flag("profile", "Deployment profile (development, production)").String()
	apiServerURL := kingpinApp.Flag("api-server-url", "Backend API base URL").String()
	auth0Domain := kingpinApp.Flag("auth0-domain", "Auth0 tenant domain").String()
	auth0Audience := kingpinApp.Flag("auth0-audience", "Auth0 API audience").String()
	auth0ClientID := kingpinApp.Flag("auth0-client-id", "Auth0 client identifier").String()
	auth0CallbackURL := kingpinApp.Flag("auth0-callback-url", "URL Auth0 redirects to after login").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()

	serveCmd := kingpinApp.Command("serve", "Serve the active environment over HTTP").Default()
	showCmd := kingpinApp.Command("show", "Print the active environment")
	showFormat := showCmd.Flag("format", "Output format").Default("json").Enum("json", "yaml")
	validateCmd := kingpinApp.Command("validate", "Validate every profile and the resolved configuration")
	profilesCmd := kingpinApp.Command("profiles", "List deployment profiles")

	command, err := kingpinApp.Parse(args)
	if err != nil {
		return err
	}

	overrides := &config.CLIOverrides{
		ConfigFile:       *configFile,
		Profile:          nonEmpty(profileName),
		APIServerURL:     nonEmpty(apiServerURL),
		Auth0Domain:      nonEmpty(auth0Domain),
		Auth0Audience:    nonEmpty(auth0Audience),
		Auth0ClientID:    nonEmpty(auth0ClientID),
		Auth0CallbackURL: nonEmpty(auth0CallbackURL),
		Port:             nonEmpty(port),
		LogLevel:         nonEmpty(logLevel),
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	registry := profile.Builtin()

	switch command {
	case showCmd.FullCommand():
		return show(stdout, registry, overrides, *showFormat)
	case validateCmd.FullCommand():
		return validate(stdout, registry, overrides)
	case profilesCmd.FullCommand():
		return listProfiles(stdout, registry)
	case serveCmd.FullCommand():
		return serve(registry, overrides)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func nonEmpty(value *string) *string {
	if value == nil || *value == "" {
		return nil
	}
	return value
}

func serve(registry *profile.Registry, overrides *config.CLIOverrides) error {
	cfg, err := config.Load(registry, overrides)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", zap.Error(err))
		return err
	}

	if err := app.Start(); err != nil {
		logger.Error("failed to start server", zap.Error(err))
		return err
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	return nil
}

func show(w io.Writer, registry *profile.Registry, overrides *config.CLIOverrides, format string) error {
	cfg, err := config.Load(registry, overrides)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg.Environment); err != nil {
			return fmt.Errorf("encode YAML: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg.Environment)
}

func validate(w io.Writer, registry *profile.Registry, overrides *config.CLIOverrides) error {
	failed := false
	for _, name := range registry.Names() {
		env, err := registry.Lookup(name)
		if err == nil {
			err = environment.Validate(env.Settings())
		}
		if err != nil {
			failed = true
			fmt.Fprintf(w, "profile %s: %v\n", name, err)
			continue
		}
		fmt.Fprintf(w, "profile %s: ok\n", name)
	}

	if err := registry.Validate(); err != nil {
		return err
	}

	cfg, err := config.Load(registry, overrides)
	if err != nil {
		return fmt.Errorf("resolved configuration: %w", err)
	}
	fmt.Fprintf(w, "active profile %s: ok\n", cfg.Profile)

	if failed {
		return fmt.Errorf("one or more profiles are invalid")
	}
	return nil
}

func listProfiles(w io.Writer, registry *profile.Registry) error {
	for _, name := range registry.Names() {
		env, err := registry.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\tproduction=%t\t%s\n", name, env.Production(), env.APIServerURL())
	}
	return nil
}

// shutdown blocks until SIGINT or SIGTERM, then drains in-flight requests
// for at most grace before closing the remaining connections.
func shutdown(server *http.Server, grace time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info("shutting down server",
		zap.String("signal", sig.String()),
		zap.Duration("grace_period", grace),
	)

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed, closing connections", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
		return
	}
	logger.Info("server stopped")
}
