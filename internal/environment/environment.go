package environment

import (
	"encoding/json"
	"strings"
)

// Auth0 holds the identity provider integration parameters.
type Auth0 struct {
	Domain      string `json:"domain" yaml:"domain" validate:"notblank,hostname_rfc1123"`
	Audience    string `json:"audience" yaml:"audience" validate:"notblank"`
	ClientID    string `json:"clientId" yaml:"clientId" validate:"notblank"`
	CallbackURL string `json:"callbackURL" yaml:"callbackURL" validate:"notblank,http_url"`
}

// Settings is the authoring form of an environment: plain values that have
// not been validated yet.
type Settings struct {
	Production   bool   `json:"production" yaml:"production"`
	APIServerURL string `json:"apiServerUrl" yaml:"apiServerUrl" validate:"notblank,http_url"`
	Auth0        Auth0  `json:"auth0" yaml:"auth0"`
}

// Environment is a validated, read-only configuration record for one
// deployment profile. The zero value is not usable; build one with New.
type Environment struct {
	profile  string
	settings Settings
}

// New validates s and returns the frozen record for the named profile.
func New(profile string, s Settings) (*Environment, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}
	return &Environment{
		profile:  profile,
		settings: s,
	}, nil
}

// Profile returns the name of the deployment profile the record came from.
func (e *Environment) Profile() string {
	return e.profile
}

// Production reports whether this is a production build.
func (e *Environment) Production() bool {
	return e.settings.Production
}

// APIServerURL returns the backend API base URL exactly as configured.
func (e *Environment) APIServerURL() string {
	return e.settings.APIServerURL
}

// Auth0 returns a copy of the identity provider parameters.
func (e *Environment) Auth0() Auth0 {
	return e.settings.Auth0
}

// Settings returns a copy of all values held by the record.
func (e *Environment) Settings() Settings {
	return e.settings
}

// Endpoint joins path onto the API base URL. The base is kept verbatim as
// the prefix of the result.
func (e *Environment) Endpoint(path string) string {
	base := e.settings.APIServerURL
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return base
	}
	if strings.HasSuffix(base, "/") {
		return base + path
	}
	return base + "/" + path
}

// MarshalJSON encodes the record in the shape the client application reads.
func (e *Environment) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.settings)
}

// MarshalYAML encodes the record for yaml.v3.
func (e *Environment) MarshalYAML() (any, error) {
	return e.settings, nil
}
