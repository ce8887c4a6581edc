// Package providers defines the adapter contract every cloud provider
// implements, plus the error taxonomy the retry coordinator relies on.
package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yairfalse/kartta/types"
)

// ListScope is the slice of a discovery request one adapter call covers:
// a single region (or resource group / project zone set) for one provider.
type ListScope struct {
	// Region is the provider region to list. For Azure it may instead name
	// a resource group when Group is set.
	Region string
	// Account is the account, subscription or project identifier.
	Account string
	// Group restricts Azure listing to a resource group.
	Group string
}

func (s ListScope) String() string {
	if s.Group != "" {
		return s.Group
	}
	return s.Region
}

// Adapter is implemented once per cloud provider. ListResources pages
// through provider APIs in strict page order and maps every record to the
// canonical model at the boundary; a listing is not restartable mid-stream,
// so retries re-authenticate and start again from page one. Mapping failures
// for single records are skipped, logged and counted, never fatal.
type Adapter interface {
	Name() string
	// Regions returns the default regions scanned when the scope names none.
	Regions() []string
	// Authenticate validates credentials. An AuthError here is fatal for
	// this provider's portion of the job and is never retried.
	Authenticate(ctx context.Context) error
	ListResources(ctx context.Context, scope ListScope) ([]types.Resource, error)
}

// Config holds the provider-specific settings an adapter factory needs.
type Config struct {
	Region         string
	Account        string // AWS account, Azure subscription or GCP project
	ResourceGroups []string
}

// Factory creates an adapter instance.
type Factory func(ctx context.Context, cfg Config) (Adapter, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register registers an adapter factory under a provider name.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// New creates an adapter by provider name.
func New(ctx context.Context, name string, cfg Config) (Adapter, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("provider %s not registered", name)
	}
	return factory(ctx, cfg)
}

// Names returns registered provider names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
