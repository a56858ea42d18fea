package storage

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	storageConfig "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

// ConnectionResolver dispatches a connection name to the provider that
// handles its configured type.
type ConnectionResolver struct {
	providers map[string]StorageProvider
	sections  storageConfig.Sections
}

// NewConnectionResolver creates a resolver over the given providers.
func NewConnectionResolver(providers []StorageProvider, sections storageConfig.Sections) *ConnectionResolver {
	byType := make(map[string]StorageProvider, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		byType[p.Type()] = p
	}
	return &ConnectionResolver{providers: byType, sections: sections}
}

// Resolve returns the named connection.
func (r *ConnectionResolver) Resolve(name string) (StorageConnection, error) {
	cfg, err := r.sections.Lookup(name)
	if err != nil {
		return nil, err
	}
	provider, ok := r.providers[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider found for type '%s' (connection '%s')", cfg.Type, name)
	}
	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage connection '%s' from provider '%s': %w", name, cfg.Type, err)
	}
	logger.Debugf("Resolved storage connection '%s' (type %s).", name, cfg.Type)
	return conn, nil
}

// CloseAll closes every provider's connections.
func (r *ConnectionResolver) CloseAll() error {
	var errs *multierror.Error
	for _, p := range r.providers {
		if err := p.CloseAll(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
