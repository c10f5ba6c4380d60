package database

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	dbconfig "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database/config"
	coreConfig "github.com/tigerroll/surfin-migrate/pkg/migrate/core/config"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

// Resolver resolves named database connections through the provider registered for their type.
type Resolver struct {
	providers map[string]DBProvider
	raw       map[string]interface{}
}

// ResolverParams defines the dependencies for NewResolver.
type ResolverParams struct {
	fx.In
	Providers []DBProvider `group:"db_providers"`
	Config    *coreConfig.Config
}

// NewResolver creates a Resolver over the given providers.
func NewResolver(p ResolverParams) *Resolver {
	r := &Resolver{providers: make(map[string]DBProvider), raw: p.Config.Migrate.Databases}
	for _, prov := range p.Providers {
		r.providers[prov.Type()] = prov
	}
	return r
}

// Resolve returns the connection configured under name. A connection that no longer answers a
// ping is reopened once.
func (r *Resolver) Resolve(ctx context.Context, name string) (DBConnection, error) {
	cfg, err := dbconfig.Lookup(r.raw, name)
	if err != nil {
		return nil, err
	}
	provider, ok := r.providers[cfg.Type]
	if !ok && cfg.Type == "redshift" {
		provider, ok = r.providers["postgres"]
	}
	if !ok {
		return nil, fmt.Errorf("no database provider found for type '%s' (connection '%s')", cfg.Type, name)
	}

	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection '%s': %w", name, err)
	}
	if pingErr := conn.Ping(ctx); pingErr != nil {
		logger.Warnf("Database connection '%s' is invalid (%v). Attempting to reconnect.", name, pingErr)
		conn, err = provider.ForceReconnect(name)
		if err != nil {
			return nil, fmt.Errorf("failed to reconnect database connection '%s': %w", name, err)
		}
		logger.Infof("Reconnected database connection '%s'.", name)
	}
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
		return fmt.Errorf("errors closing database connections: %v", errs)
	}
	return nil
}
