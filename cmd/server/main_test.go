package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/coffee-shop-env/internal/environment"
)

// isolateEnv unsets every variable config.Load reads for the duration of t.
func isolateEnv(t *testing.T) {
	t.Helper()

	for _, name := range []string{
		"COFFEE_PROFILE", "COFFEE_PORT", "COFFEE_LOG_LEVEL", "COFFEE_ALLOWED_ORIGINS",
		"COFFEE_ENABLE_REQUEST_LOGGING", "COFFEE_RATE_LIMIT_RPS", "COFFEE_RATE_LIMIT_BURST",
		"COFFEE_API_SERVER_URL", "API_SERVER_URL",
		"COFFEE_AUTH0_DOMAIN", "AUTH0_DOMAIN",
		"COFFEE_AUTH0_AUDIENCE", "AUTH0_AUDIENCE",
		"COFFEE_AUTH0_CLIENT_ID", "AUTH0_CLIENT_ID",
		"COFFEE_AUTH0_CALLBACK_URL", "AUTH0_CALLBACK_URL",
	} {
		t.Setenv(name, "")
		if err := os.Unsetenv(name); err != nil {
			t.Fatalf("unset %s: %v", name, err)
		}
	}
}

func TestShowJSON(t *testing.T) {
	isolateEnv(t)

	var out bytes.Buffer
	if err := run([]string{"show"}, &out); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	var got environment.Settings
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	want := environment.Settings{
		Production:   false,
		APIServerURL: "http://127.0.0.1:5000",
		Auth0: environment.Auth0{
			Domain:      "qatrelnada.us",
			Audience:    "Coffee Shop",
			ClientID:    "LGCpVKlBjps5K6YYjH6W0E7R6RcX2qtW",
			CallbackURL: "http://localhost:8100",
		},
	}
	if got != want {
		t.Fatalf("unexpected record:\n got  %+v\n want %+v", got, want)
	}
}

func TestShowYAMLWithOverrides(t *testing.T) {
	isolateEnv(t)

	var out bytes.Buffer
	args := []string{"--profile", "production", "--api-server-url", "https://api.coffee.example", "show", "--format", "yaml"}
	if err := run(args, &out); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	var got environment.Settings
	if err := yaml.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if !got.Production || got.APIServerURL != "https://api.coffee.example" {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.Auth0.ClientID != "LGCpVKlBjps5K6YYjH6W0E7R6RcX2qtW" {
		t.Fatalf("expected profile client id, got %s", got.Auth0.ClientID)
	}
}

func TestShowRejectsMalformedOverride(t *testing.T) {
	isolateEnv(t)

	var out bytes.Buffer
	err := run([]string{"--auth0-callback-url", "not a url", "show"}, &out)
	if err == nil {
		t.Fatalf("expected error for malformed callback url")
	}
	if !strings.Contains(err.Error(), "auth0.callbackURL") {
		t.Fatalf("expected error to name the field, got %v", err)
	}
}

func TestValidateCommand(t *testing.T) {
	isolateEnv(t)

	var out bytes.Buffer
	if err := run([]string{"validate"}, &out); err != nil {
		t.Fatalf("run returned error: %v\n%s", err, out.String())
	}

	for _, line := range []string{"profile development: ok", "profile production: ok", "active profile development: ok"} {
		if !strings.Contains(out.String(), line) {
			t.Fatalf("expected %q in output:\n%s", line, out.String())
		}
	}
}

func TestValidateCommandUnknownProfile(t *testing.T) {
	isolateEnv(t)

	var out bytes.Buffer
	if err := run([]string{"--profile", "staging", "validate"}, &out); err == nil {
		t.Fatalf("expected error for unknown profile")
	}
}

func TestProfilesCommand(t *testing.T) {
	isolateEnv(t)

	var out bytes.Buffer
	if err := run([]string{"profiles"}, &out); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two profiles, got:\n%s", out.String())
	}
	if !strings.HasPrefix(lines[0], "development\tproduction=false") ||
		!strings.HasPrefix(lines[1], "production\tproduction=true") {
		t.Fatalf("unexpected profiles output:\n%s", out.String())
	}
}

func TestShowIgnoresStrayProfileVariable(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PROFILE", "dev-laptop")

	var out bytes.Buffer
	if err := run([]string{"show"}, &out); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
}
