package storage

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	storageConfig "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/storage/config"
	coreConfig "github.com/tigerroll/surfin-migrate/pkg/migrate/core/config"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

// Resolver resolves named storage connections through the provider registered for their type.
type Resolver struct {
	providers map[string]StorageProvider
	raw       map[string]interface{}
}

// ResolverParams defines the dependencies for NewResolver.
type ResolverParams struct {
	fx.In
	Providers []StorageProvider `group:"storage_providers"`
	Config    *coreConfig.Config
}

// NewResolver creates a Resolver over the given providers.
func NewResolver(p ResolverParams) *Resolver {
	r := &Resolver{providers: make(map[string]StorageProvider), raw: p.Config.Migrate.Storages}
	for _, prov := range p.Providers {
		r.providers[prov.Type()] = prov
	}
	return r
}

// Resolve returns the connection configured under name.
func (r *Resolver) Resolve(ctx context.Context, name string) (StorageConnection, error) {
	cfg, err := storageConfig.Lookup(r.raw, name)
	if err != nil {
		return nil, err
	}
	provider, ok := r.providers[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider found for type '%s' (connection '%s')", cfg.Type, name)
	}
	conn, err := provider.GetConnection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage connection '%s' from provider '%s': %w", name, cfg.Type, err)
	}
	logger.Debugf("Resolved storage connection '%s' (%s).", name, cfg.Type)
	return conn, nil
}

// CloseAll closes the connections of every provider.
func (r *Resolver) CloseAll() error {
	var errs []error
	for _, p := range r.providers {
		if err := p.CloseAll(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing storage connections: %v", errs)
	}
	return nil
}
