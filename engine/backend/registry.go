package backend

import (
	"sync"

	"github.com/Carmen-Shannon/nucleus-go/common"
	"github.com/Carmen-Shannon/nucleus-go/common/log"
)

// Factory creates the draw API for a version.
type Factory func(version Version) (DrawAPI, error)

// Registry owns the backend factories and the process-wide active backend.
// The first backend created through it becomes active and is never replaced.
// The application constructs one Registry at startup and passes it to whatever needs the active backend.
type Registry struct {
	mu        sync.Mutex
	factories map[Version]Factory
	active    Backend
	log       log.Log
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger handed to created backends.
func WithRegistryLogger(l log.Log) RegistryOption {
	return func(r *Registry) {
		r.log = l
	}
}

// WithFactory registers a factory for one or more versions.
func WithFactory(f Factory, versions ...Version) RegistryOption {
	return func(r *Registry) {
		for _, v := range versions {
			r.factories[v] = f
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		factories: make(map[Version]Factory),
		log:       log.Provide(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// RegisterFactory adds or replaces the factory used for versions.
func (r *Registry) RegisterFactory(f Factory, versions ...Version) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range versions {
		r.factories[v] = f
	}
}

// Create builds a backend for version. If no backend is active yet the new one becomes the active backend;
// otherwise the active backend is left in place and the new one is only returned.
//
// Parameters:
//   - version: the API version to create
//
// Returns:
//   - Backend: the created backend
//   - error: a configuration error if no factory is registered for version, or the factory's error
func (r *Registry) Create(version Version) (Backend, error) {
	r.mu.Lock()
	f, ok := r.factories[version]
	r.mu.Unlock()
	if !ok {
		return nil, common.ConfigurationError("backend.Create", "no factory registered for %s", version)
	}

	api, err := f(version)
	if err != nil {
		return nil, common.ResourceError("backend.Create", err)
	}

	b := NewBackend(version, api, r.log)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		r.active = b
		r.log.Info("active backend set", log.String("version", version.String()), log.String("api", api.Name()))
	}
	return b, nil
}

// Active returns the active backend, or nil before any backend was created.
func (r *Registry) Active() Backend {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.active
}
