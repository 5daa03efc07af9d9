package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/coffee-shop-env/internal/environment"
	"github.com/eugenenazirov/coffee-shop-env/internal/profile"
)

const (
	envPrefix             = "COFFEE"
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultLogLevel       = "info"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Profile              string
	Environment          *environment.Environment
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
	LogLevel             string
	AllowedOrigins       []string
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Profile              string          `yaml:"profile"`
	Environment          yamlEnvironment `yaml:"environment"`
	Port                 string          `yaml:"port"`
	ShutdownGracePeriod  string          `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string          `yaml:"read_header_timeout"`
	WriteTimeout         string          `yaml:"write_timeout"`
	IdleTimeout          string          `yaml:"idle_timeout"`
	EnableRequestLogging *bool           `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit   `yaml:"rate_limit"`
	LogLevel             string          `yaml:"log_level"`
	AllowedOrigins       []string        `yaml:"allowed_origins"`
}

// yamlEnvironment overrides fields of the selected profile. Keys are the
// record's wire names, so the output of `show --format=yaml` can be pasted
// in as is. Production may be present but must match the profile.
type yamlEnvironment struct {
	Production   *bool     `yaml:"production"`
	APIServerURL string    `yaml:"apiServerUrl"`
	Auth0        yamlAuth0 `yaml:"auth0"`
}

type yamlAuth0 struct {
	Domain      string `yaml:"domain"`
	Audience    string `yaml:"audience"`
	ClientID    string `yaml:"clientId"`
	CallbackURL string `yaml:"callbackURL"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// envConfig is decoded from COFFEE_* variables. Record fields carry an
// explicit envconfig tag, which also accepts the unprefixed name (for
// example AUTH0_CLIENT_ID). Server fields only read the prefixed name.
type envConfig struct {
	Profile              string   `split_words:"true"`
	APIServerURL         string   `envconfig:"API_SERVER_URL"`
	Auth0Domain          string   `envconfig:"AUTH0_DOMAIN"`
	Auth0Audience        string   `envconfig:"AUTH0_AUDIENCE"`
	Auth0ClientID        string   `envconfig:"AUTH0_CLIENT_ID"`
	Auth0CallbackURL     string   `envconfig:"AUTH0_CALLBACK_URL"`
	Port                 string   `split_words:"true"`
	EnableRequestLogging *bool    `split_words:"true"`
	RateLimitRPS         *float64 `split_words:"true"`
	RateLimitBurst       *int     `split_words:"true"`
	LogLevel             string   `split_words:"true"`
	AllowedOrigins       []string `split_words:"true"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile       string
	Profile          *string
	APIServerURL     *string
	Auth0Domain      *string
	Auth0Audience    *string
	Auth0ClientID    *string
	Auth0CallbackURL *string
	Port             *string
	RateLimitRPS     *float64
	RateLimitBurst   *int
	LogLevel         *string
}

// Load resolves the active profile and runtime settings with precedence:
// CLI flags > YAML config > Environment variables > Defaults.
// A nil registry means the built-in profiles.
func Load(registry *profile.Registry, overrides *CLIOverrides) (Config, error) {
	if registry == nil {
		registry = profile.Builtin()
	}
	if overrides == nil {
		overrides = &CLIOverrides{}
	}

	envCfg, err := loadFromEnv()
	if err != nil {
		return Config{}, fmt.Errorf("load environment variables: %w", err)
	}

	yamlCfg := &yamlConfig{}
	if overrides.ConfigFile != "" {
		yamlCfg, err = loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
	}

	name := resolveProfile(envCfg, yamlCfg, overrides)
	base, err := registry.Lookup(name)
	if err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	cfg.Profile = name

	settings := base.Settings()
	applyEnvConfig(&cfg, &settings, envCfg)
	if err := applyYAMLConfig(&cfg, &settings, yamlCfg); err != nil {
		return Config{}, err
	}
	applyCLIOverrides(&cfg, &settings, overrides)

	if settings == base.Settings() {
		cfg.Environment = base
	} else {
		cfg.Environment, err = environment.New(name, settings)
		if err != nil {
			return Config{}, fmt.Errorf("profile %s: %w", name, err)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ErrProductionMismatch indicates a config file sets environment.production
// to a value other than the selected profile's.
var ErrProductionMismatch = errors.New("production flag is fixed by the profile")

// defaultConfig returns a Config with default server values.
func defaultConfig() Config {
	return Config{
		Profile:              profile.Development,
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		LogLevel:             defaultLogLevel,
	}
}

func resolveProfile(envCfg *envConfig, yamlCfg *yamlConfig, overrides *CLIOverrides) string {
	name := profile.Development
	if v := strings.TrimSpace(envCfg.Profile); v != "" {
		name = v
	}
	if v := strings.TrimSpace(yamlCfg.Profile); v != "" {
		name = v
	}
	if overrides.Profile != nil {
		if v := strings.TrimSpace(*overrides.Profile); v != "" {
			name = v
		}
	}
	return name
}

// loadFromEnv decodes COFFEE_* variables.
func loadFromEnv() (*envConfig, error) {
	var envCfg envConfig
	if err := envconfig.Process(envPrefix, &envCfg); err != nil {
		return nil, err
	}
	return &envCfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&yamlCfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config, settings *environment.Settings, envCfg *envConfig) {
	override(&settings.APIServerURL, envCfg.APIServerURL)
	override(&settings.Auth0.Domain, envCfg.Auth0Domain)
	override(&settings.Auth0.Audience, envCfg.Auth0Audience)
	override(&settings.Auth0.ClientID, envCfg.Auth0ClientID)
	override(&settings.Auth0.CallbackURL, envCfg.Auth0CallbackURL)

	override(&cfg.Port, envCfg.Port)
	override(&cfg.LogLevel, envCfg.LogLevel)

	if origins := trimAll(envCfg.AllowedOrigins); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}
	if envCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *envCfg.EnableRequestLogging
	}
	if envCfg.RateLimitRPS != nil && *envCfg.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *envCfg.RateLimitRPS
	}
	if envCfg.RateLimitBurst != nil && *envCfg.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *envCfg.RateLimitBurst
	}
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, settings *environment.Settings, yamlCfg *yamlConfig) error {
	if p := yamlCfg.Environment.Production; p != nil && *p != settings.Production {
		return fmt.Errorf("%w: environment.production is %t but profile %s has %t",
			ErrProductionMismatch, *p, cfg.Profile, settings.Production)
	}

	override(&settings.APIServerURL, yamlCfg.Environment.APIServerURL)
	override(&settings.Auth0.Domain, yamlCfg.Environment.Auth0.Domain)
	override(&settings.Auth0.Audience, yamlCfg.Environment.Auth0.Audience)
	override(&settings.Auth0.ClientID, yamlCfg.Environment.Auth0.ClientID)
	override(&settings.Auth0.CallbackURL, yamlCfg.Environment.Auth0.CallbackURL)

	override(&cfg.Port, yamlCfg.Port)
	override(&cfg.LogLevel, yamlCfg.LogLevel)

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = value
	}

	if origins := trimAll(yamlCfg.AllowedOrigins); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil && *yamlCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil && *yamlCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, settings *environment.Settings, overrides *CLIOverrides) {
	overridePtr(&settings.APIServerURL, overrides.APIServerURL)
	overridePtr(&settings.Auth0.Domain, overrides.Auth0Domain)
	overridePtr(&settings.Auth0.Audience, overrides.Auth0Audience)
	overridePtr(&settings.Auth0.ClientID, overrides.Auth0ClientID)
	overridePtr(&settings.Auth0.CallbackURL, overrides.Auth0CallbackURL)

	overridePtr(&cfg.Port, overrides.Port)
	overridePtr(&cfg.LogLevel, overrides.LogLevel)

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// override replaces *dst with the trimmed value when it is non-empty.
func override(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func overridePtr(dst *string, value *string) {
	if value != nil {
		override(dst, *value)
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if cfg.Environment == nil {
		return fmt.Errorf("no environment resolved for profile %s", cfg.Profile)
	}
	return nil
}
