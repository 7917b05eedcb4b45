package provider

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Provider is the behaviour every adapter shares.
type Provider interface {
	Name() ProviderName
	TestConnection(ctx context.Context) error
}

// Registry holds the registered provider adapters keyed by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[ProviderName]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[ProviderName]Provider),
	}
}

// Register adds a provider to the registry, replacing one with the same name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil if not registered.
func (r *Registry) Get(name ProviderName) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// All returns the registered providers in AllProviderNames order.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Provider
	for _, name := range AllProviderNames() {
		if p, ok := r.providers[name]; ok {
			result = append(result, p)
		}
	}
	return result
}

// Status is the outcome of one connection test.
type Status struct {
	Provider ProviderName  `json:"provider"`
	OK       bool          `json:"ok"`
	Latency  time.Duration `json:"latency_ns"`
	Error    string        `json:"error,omitempty"`
}

// CheckAll tests every registered provider concurrently. A failing provider
// is reported in its Status and does not stop the others.
func (r *Registry) CheckAll(ctx context.Context) []Status {
	providers := r.All()
	statuses := make([]Status, len(providers))

	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			start := time.Now()
			err := p.TestConnection(ctx)
			statuses[i] = Status{Provider: p.Name(), OK: err == nil, Latency: time.Since(start)}
			if err != nil {
				statuses[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()
	return statuses
}
