package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/coffee-shop-env/internal/api"
	"github.com/eugenenazirov/coffee-shop-env/internal/application"
	"github.com/eugenenazirov/coffee-shop-env/internal/config"
	"github.com/eugenenazirov/coffee-shop-env/internal/environment"
)

func newServer(t *testing.T, overrides *config.CLIOverrides) *httptest.Server {
	t.Helper()

	cfg, err := config.Load(nil, overrides)
	if err != nil {
		t.Fatalf("config.Load returned error: %v", err)
	}

	handler := api.NewHandler(cfg.Environment)
	router := api.NewRouter(handler, zaptest.NewLogger(t), api.WithLogging(false))
	srv := httptest.NewServer(application.BuildRootHandler(router))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, target string, dst any) {
	t.Helper()

	resp, err := http.Get(target)
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: expected 200, got %d", target, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode %s: %v", target, err)
	}
}

func TestIntegrationFlow(t *testing.T) {
	production := "production"
	srv := newServer(t, &config.CLIOverrides{Profile: &production})

	var health struct {
		Status  string `json:"status"`
		Profile string `json:"profile"`
	}
	getJSON(t, srv.URL+"/api/health", &health)
	if health.Status != "ok" || health.Profile != "production" {
		t.Fatalf("unexpected health response %+v", health)
	}

	var env environment.Settings
	getJSON(t, srv.URL+"/environment.json", &env)
	if !env.Production {
		t.Fatalf("expected production record")
	}

	// Consumers build request URLs from the base as served.
	rec, err := environment.New("client", env)
	if err != nil {
		t.Fatalf("served record does not validate: %v", err)
	}
	if got := rec.Endpoint("/drinks"); got != "http://127.0.0.1:5000/drinks" {
		t.Fatalf("unexpected drinks endpoint %s", got)
	}

	var auth struct {
		LoginURL string `json:"loginUrl"`
	}
	getJSON(t, srv.URL+"/api/auth0", &auth)
	login, err := url.Parse(auth.LoginURL)
	if err != nil {
		t.Fatalf("login url does not parse: %v", err)
	}
	if login.Host != env.Auth0.Domain || login.Query().Get("client_id") != env.Auth0.ClientID {
		t.Fatalf("login url does not match record: %s", auth.LoginURL)
	}
}
