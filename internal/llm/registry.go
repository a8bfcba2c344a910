package llm

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry holds the configured providers by name. Without an explicit
// default, the alphabetically first provider serves.
type Registry struct {
	mu        sync.RWMutex
	byName    map[string]Provider
	preferred string
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Provider)}
}

// Register adds p under name, replacing any provider already there.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = p
}

// SetDefault prefers the named provider. It must be registered first.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		return fmt.Errorf("set default: %w: %s", ErrProviderNotFound, name)
	}
	r.preferred = name
	return nil
}

func (r *Registry) Named(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.byName[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
}

// Default returns the preferred provider.
func (r *Registry) Default() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.byName[r.preferred]; ok {
		return p, nil
	}
	if names := r.names(); len(names) > 0 {
		return r.byName[names[0]], nil
	}
	return nil, ErrNoDefaultProvider
}

// ForAudio returns the default provider if it accepts audio, otherwise
// the first registered provider that does.
func (r *Registry) ForAudio() (Provider, error) {
	if p, err := r.Default(); err == nil && p.SupportsAudio() {
		return p, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.names() {
		if p := r.byName[name]; p.SupportsAudio() {
			return p, nil
		}
	}
	return nil, ErrAudioUnsupported
}

// List returns the registered names in order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

// DefaultName is the explicitly preferred provider, or "".
func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.preferred
}

// Close closes every provider that holds resources.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, name := range r.names() {
		c, ok := r.byName[name].(interface{ Close() error })
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// names must be called with the lock held.
func (r *Registry) names() []string {
	return slices.Sorted(maps.Keys(r.byName))
}
