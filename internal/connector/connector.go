// Package connector defines the external data sources a brand run
// gathers from. Connectors are intentionally thin: they fetch text for
// a query and leave interpretation to the sentiment pipeline, so a
// misbehaving source can be retried or dropped without touching the
// rest of the run.
package connector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/brandpulse-ai/brandpulse/internal/types"
)

// FetchOptions carries per-call tuning for a connector fetch.
type FetchOptions struct {
	// Region hints the geographic slice of results, empty for global.
	Region string
	// Language is an ISO 639-1 hint, empty for any language.
	Language string
}

// Connector is a single external data source. Fetch must be safe to
// call repeatedly with the same arguments: the orchestrator retries
// failed fetches and relies on idempotency.
type Connector interface {
	// Name identifies the connector inside a registry and in run slots.
	Name() string
	// Fetch returns raw text for the query, at most limit items worth.
	Fetch(ctx context.Context, query string, limit int, opts FetchOptions) (string, error)
}

// Registry is a named collection of connectors. Lookup by name backs
// the config-driven source lists the orchestrator fans out over.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

// NewRegistry creates an empty connector registry.
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]Connector)}
}

// Register adds a connector. Duplicate or empty names are rejected so a
// config typo surfaces at startup instead of silently shadowing a source.
func (r *Registry) Register(c Connector) error {
	if c == nil {
		return types.NewError(types.CONNECTOR_NOT_FOUND, "cannot register nil connector")
	}
	name := c.Name()
	if name == "" {
		return types.NewError(types.CONNECTOR_NOT_FOUND, "connector name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.connectors[name]; exists {
		return types.NewError(types.CONNECTOR_NOT_FOUND, fmt.Sprintf("connector %q already registered", name))
	}
	r.connectors[name] = c
	return nil
}

// Get returns the connector registered under name.
func (r *Registry) Get(name string) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[name]
	if !ok {
		return nil, types.NewError(types.CONNECTOR_NOT_FOUND, fmt.Sprintf("connector %q not registered", name))
	}
	return c, nil
}

// List returns registered connector names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
