package protection

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/protectgrid/internal/ctxlog"
	"github.com/specialistvlad/protectgrid/internal/fsutil"
	"go.uber.org/multierr"
)

// ProviderRegistry holds the loaded providers by id.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]*PluggableProtectionProvider
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: make(map[string]*PluggableProtectionProvider)}
}

// LoadProviders builds a provider from every *.hcl file under dir. A file
// that fails to load is logged and skipped; the others still load.
func LoadProviders(ctx context.Context, dir string, deps Dependencies) (*ProviderRegistry, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFilesByExtension(dir, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to scan provider config dir '%s': %w", dir, err)
	}
	sort.Strings(files)

	r := NewProviderRegistry()
	for _, file := range files {
		fileLogger := logger.With("file", file)

		cfg, err := LoadProviderConfig(file)
		if err != nil {
			fileLogger.Error("Failed to load provider config, skipping.", "error", err)
			continue
		}
		p, err := NewProvider(ctx, cfg, deps)
		if err != nil {
			fileLogger.Error("Failed to load provider, skipping.", "provider", cfg.ID, "error", err)
			continue
		}
		if err := r.Add(p); err != nil {
			fileLogger.Error("Failed to register provider, skipping.", "provider", cfg.ID, "error", err)
			_ = p.Close()
			continue
		}
	}
	logger.Info("Providers loaded.", "files", len(files), "providers", r.Len())
	return r, nil
}

// Add registers p. Ids must be unique.
func (r *ProviderRegistry) Add(p *PluggableProtectionProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.ID()]; exists {
		return fmt.Errorf("provider '%s' already loaded", p.ID())
	}
	r.providers[p.ID()] = p
	return nil
}

// Len returns the number of providers.
func (r *ProviderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// ListProviders returns all providers sorted by id.
func (r *ProviderRegistry) ListProviders() []*PluggableProtectionProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*PluggableProtectionProvider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// ShowProvider returns the provider with the given id.
func (r *ProviderRegistry) ShowProvider(id string) (*PluggableProtectionProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}
	return p, nil
}

// Close closes every provider.
func (r *ProviderRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs error
	for _, p := range r.providers {
		errs = multierr.Append(errs, p.Close())
	}
	return errs
}
