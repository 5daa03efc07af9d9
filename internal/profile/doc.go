// Package profile keeps the named deployment profiles (development,
// production, and any registered at startup) from which exactly one
// environment record is selected at runtime.
package profile
