// Package config resolves the active deployment profile and runtime settings
// from multiple sources (YAML files, environment variables, CLI flags) with
// precedence: CLI flags > YAML config > Environment variables > Defaults.
// Record values of the selected profile may be overridden from any source;
// the result is validated before it is handed to the rest of the application.
package config
