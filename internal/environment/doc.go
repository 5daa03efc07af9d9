// Package environment defines the configuration record a client application
// is built against: the production flag, the backend API base URL, and the
// Auth0 integration parameters. Records are validated once by New and are
// read-only afterwards, so any number of goroutines may read them.
package environment
