package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/eugenenazirov/coffee-shop-env/internal/auth0"
	"github.com/eugenenazirov/coffee-shop-env/internal/environment"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler serves the active environment record to client applications.
type Handler struct {
	env    *environment.Environment
	client auth0.ClientConfig

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler for env.
func NewHandler(env *environment.Environment, opts ...HandlerOption) *Handler {
	h := &Handler{
		env:    env,
		client: auth0.NewClientConfig(env.Auth0()),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Profile:   h.env.Profile(),
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleEnvironment(w http.ResponseWriter, r *http.Request) {
	_ = r
	body, err := json.Marshal(h.env)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) handleAuth0(w http.ResponseWriter, r *http.Request) {
	callbackPath := r.URL.Query().Get("callbackPath")
	if !auth0.ValidCallbackPath(callbackPath) {
		writeError(w, http.StatusBadRequest, "Invalid callback path", "callbackPath must be a relative path")
		return
	}

	resp := auth0Response{
		ClientConfig: h.client,
		LoginURL:     h.client.LoginURL(callbackPath),
	}
	writeJSON(w, http.StatusOK, resp)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type healthResponse struct {
	Status    string    `json:"status"`
	Profile   string    `json:"profile"`
	Timestamp time.Time `json:"timestamp"`
}

type auth0Response struct {
	auth0.ClientConfig
	LoginURL string `json:"loginUrl"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: details,
	})
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
