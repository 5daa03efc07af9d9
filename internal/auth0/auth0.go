// Package auth0 derives the settings an Auth0 client library is initialised
// with from an environment record.
package auth0

import (
	"net/url"
	"strings"

	"github.com/eugenenazirov/coffee-shop-env/internal/environment"
)

// ClientConfig is the identity provider configuration of the client
// application. It is a pure function of the environment's auth0 block.
type ClientConfig struct {
	Domain       string `json:"domain"`
	ClientID     string `json:"clientId"`
	Audience     string `json:"audience"`
	RedirectURI  string `json:"redirectUri"`
	Issuer       string `json:"issuer"`
	AuthorizeURL string `json:"authorizeUrl"`
	JWKSURL      string `json:"jwksUrl"`
}

// NewClientConfig builds the client configuration for a.
func NewClientConfig(a environment.Auth0) ClientConfig {
	issuer := "https://" + a.Domain + "/"

	return ClientConfig{
		Domain:       a.Domain,
		ClientID:     a.ClientID,
		Audience:     a.Audience,
		RedirectURI:  a.CallbackURL,
		Issuer:       issuer,
		AuthorizeURL: issuer + "authorize",
		JWKSURL:      issuer + ".well-known/jwks.json",
	}
}

// LoginURL returns the implicit-flow authorize link. callbackPath, when not
// empty, is appended to the redirect URI so the identity provider returns to
// a specific page of the client application.
//
// Query parameters are encoded with url.Values, in sorted key order
// (audience, client_id, redirect_uri, response_type). This differs from the
// order a hand-built link would use; Auth0 does not depend on it, and sorted
// order keeps the link byte-identical across builds.
func (c ClientConfig) LoginURL(callbackPath string) string {
	q := url.Values{}
	q.Set("audience", c.Audience)
	q.Set("response_type", "token")
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", joinCallback(c.RedirectURI, callbackPath))
	return c.AuthorizeURL + "?" + q.Encode()
}

// ValidCallbackPath reports whether p can be appended to the redirect URI:
// empty, or a relative path without scheme or host.
func ValidCallbackPath(p string) bool {
	if p == "" {
		return true
	}
	if strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		return false
	}
	u, err := url.Parse(p)
	return err == nil && u.Scheme == "" && u.Host == ""
}

func joinCallback(base, p string) string {
	if p == "" {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(p, "/")
}
