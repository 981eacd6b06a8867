package tts

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lectorlabs/narrator/internal/logging"
)

var ErrUnknownProvider = errors.New("unknown tts provider")

// Descriptor is the caller-visible summary of one registered provider.
type Descriptor struct {
	ID         string
	Available  bool
	Configured bool
}

// Registry holds the sealed set of synthesis backends in fixed priority
// order (highest quality first) and tracks which one is active. Selection
// degrades through the list so narration falls back to the zero-config
// baseline instead of disappearing when richer providers are unconfigured.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	active    Provider
}

// NewRegistry registers providers in priority order and activates the first
// configured-and-available one, falling back to the last available provider.
func NewRegistry(providers ...Provider) (*Registry, error) {
	if len(providers) == 0 {
		return nil, errors.New("registry requires at least one provider")
	}

	r := &Registry{providers: providers}
	r.active = r.pickDefault()
	if r.active == nil {
		return nil, errors.New("no tts provider is available")
	}
	logging.Infof("tts registry: active provider %s", r.active.ID())
	return r, nil
}

func (r *Registry) pickDefault() Provider {
	for _, p := range r.providers {
		if p.Available() && p.Configured() {
			return p
		}
	}
	for i := len(r.providers) - 1; i >= 0; i-- {
		if r.providers[i].Available() {
			return r.providers[i]
		}
	}
	return nil
}

func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(r.providers))
	for _, p := range r.providers {
		descriptors = append(descriptors, Descriptor{
			ID:         p.ID(),
			Available:  p.Available(),
			Configured: p.Configured(),
		})
	}
	return descriptors
}

func (r *Registry) Select(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.providers {
		if p.ID() != id {
			continue
		}
		if !p.Available() {
			return fmt.Errorf("provider %s is not available on this platform", id)
		}
		r.active = p
		logging.Infof("tts registry: switched to provider %s", id)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownProvider, id)
}

func (r *Registry) Active() Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}
