package integration

import (
	"fmt"
	"sync"

	"github.com/storeops/backend/internal/domain/shared"
)

// Registry holds the named backends of one domain.
//
// Registration happens once at process start; last registration for a name
// wins but keeps the slot of the first, so registration order (used by
// Default and Configured) is stable when mocks overwrite real adapters.
type Registry[P Provider] struct {
	domain      Domain
	mu          sync.RWMutex
	providers   map[string]P
	order       []string
	defaultName string
}

// RegistryOption configures a Registry
type RegistryOption func(*registryOptions)

type registryOptions struct {
	defaultName string
}

// WithDefault sets the preferred default provider name
func WithDefault(name string) RegistryOption {
	return func(o *registryOptions) {
		o.defaultName = name
	}
}

// NewRegistry creates an empty registry for the domain
func NewRegistry[P Provider](domain Domain, opts ...RegistryOption) *Registry[P] {
	o := &registryOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return &Registry[P]{
		domain:      domain,
		providers:   make(map[string]P),
		order:       make([]string, 0),
		defaultName: o.defaultName,
	}
}

// Domain returns the domain this registry serves
func (r *Registry[P]) Domain() Domain {
	return r.domain
}

// Register inserts or overwrites a provider by name
func (r *Registry[P]) Register(p P) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

// SetDefault changes the preferred default provider name
func (r *Registry[P]) SetDefault(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultName = name
}

// Get returns the provider registered under name.
// A registered provider is not necessarily configured.
func (r *Registry[P]) Get(name string) (P, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		var zero P
		return zero, shared.NewNotFoundError(fmt.Sprintf("%s provider %q is not registered", r.domain, name))
	}
	return p, nil
}

// GetConfigured is Get plus a configuration check
func (r *Registry[P]) GetConfigured(name string) (P, error) {
	p, err := r.Get(name)
	if err != nil {
		return p, err
	}
	if !p.IsConfigured() {
		var zero P
		return zero, shared.NewConfigurationError(name, fmt.Sprintf("%s provider is not configured", r.domain))
	}
	return p, nil
}

// Configured returns configured providers in registration order
func (r *Registry[P]) Configured() []P {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]P, 0, len(r.order))
	for _, name := range r.order {
		p := r.providers[name]
		if p.IsConfigured() {
			result = append(result, p)
		}
	}
	return result
}

// All returns every registered provider in registration order
func (r *Registry[P]) All() []P {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]P, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.providers[name])
	}
	return result
}

// Default returns the configured default if it is registered and configured,
// else the first configured provider in registration order.
func (r *Registry[P]) Default() (P, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.defaultName != "" {
		if p, ok := r.providers[r.defaultName]; ok && p.IsConfigured() {
			return p, nil
		}
	}
	for _, name := range r.order {
		if p := r.providers[name]; p.IsConfigured() {
			return p, nil
		}
	}
	var zero P
	return zero, shared.NewNotFoundError(fmt.Sprintf("no configured %s provider", r.domain))
}

// Names returns registered provider names in registration order
func (r *Registry[P]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Descriptors summarises every registered provider
func (r *Registry[P]) Descriptors() []Descriptor {
	var defaultName string
	if p, err := r.Default(); err == nil {
		defaultName = p.Name()
	}

	all := r.All()
	result := make([]Descriptor, 0, len(all))
	for _, p := range all {
		result = append(result, Descriptor{
			Name:        p.Name(),
			DisplayName: p.DisplayName(),
			Configured:  p.IsConfigured(),
			Default:     p.Name() == defaultName,
		})
	}
	return result
}
