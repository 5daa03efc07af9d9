package profile

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/eugenenazirov/coffee-shop-env/internal/environment"
)

const (
	// Development is the profile used when none is selected.
	Development = "development"
	// Production is the profile shipped by release builds.
	Production = "production"
)

var (
	// ErrUnknownProfile indicates no profile is registered under the requested name.
	ErrUnknownProfile = errors.New("unknown profile")
	// ErrDuplicateProfile indicates a profile name is already registered.
	ErrDuplicateProfile = errors.New("profile already registered")
	// ErrProductionProfileCount indicates the registry does not hold exactly one production profile.
	ErrProductionProfileCount = errors.New("exactly one profile must be marked production")
)

var builtinAuth0 = environment.Auth0{
	Domain:      "qatrelnada.us",
	Audience:    "Coffee Shop",
	ClientID:    "LGCpVKlBjps5K6YYjH6W0E7R6RcX2qtW",
	CallbackURL: "http://localhost:8100",
}

var builtinSettings = map[string]environment.Settings{
	Development: {
		Production:   false,
		APIServerURL: "http://127.0.0.1:5000",
		Auth0:        builtinAuth0,
	},
	Production: {
		Production:   true,
		APIServerURL: "http://127.0.0.1:5000",
		Auth0:        builtinAuth0,
	},
}

// Registry holds the immutable records of every known deployment profile
// and guards access with a RWMutex.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*environment.Environment
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		profiles: make(map[string]*environment.Environment),
	}
}

// Builtin returns a registry seeded with the development and production profiles.
func Builtin() *Registry {
	r := NewRegistry()
	for _, name := range []string{Development, Production} {
		env, err := environment.New(name, builtinSettings[name])
		if err != nil {
			panic(fmt.Sprintf("builtin profile %s: %v", name, err))
		}
		if err := r.Register(env); err != nil {
			panic(fmt.Sprintf("builtin profile %s: %v", name, err))
		}
	}
	return r
}

// BuiltinSettings returns the authoring values of a built-in profile.
func BuiltinSettings(name string) (environment.Settings, bool) {
	s, ok := builtinSettings[name]
	return s, ok
}

// Register adds env under its profile name.
func (r *Registry) Register(env *environment.Environment) error {
	if env == nil {
		return fmt.Errorf("register profile: nil environment")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[env.Profile()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProfile, env.Profile())
	}
	r.profiles[env.Profile()] = env
	return nil
}

// Lookup returns the record registered under name.
func (r *Registry) Lookup(name string) (*environment.Environment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	env, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return env, nil
}

// Names returns the registered profile names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Validate checks that exactly one registered profile is a production build.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var production []string
	for name, env := range r.profiles {
		if env.Production() {
			production = append(production, name)
		}
	}
	if len(production) != 1 {
		sort.Strings(production)
		return fmt.Errorf("%w: found %d %v", ErrProductionProfileCount, len(production), production)
	}
	return nil
}
