package geo

import (
	"context"
	"fmt"

	"github.com/roadwatch/datex-zone-monitor/internal/domain"
)

// LocationLookup resolves the current coordinates of a tracked entity
// (person or external sensor). Supplied by the host environment.
type LocationLookup interface {
	// Locate returns the entity's current position. ok is false when the
	// entity exists but has no known location right now.
	Locate(ctx context.Context, entityID string) (geo domain.Geo, ok bool, err error)
}

// Resolver produces the current reference point for a zone from its
// configured source.
type Resolver struct {
	lookup LocationLookup
}

// NewResolver creates a Resolver. lookup may be nil when only static zones
// are configured.
func NewResolver(lookup LocationLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the reference point for the given configuration. Static
// sources return the configured pair unconditionally. Person and sensor
// sources query the lookup; when the entity has no known location the
// resolution fails with ReferenceUnavailableError rather than falling back
// to a stale or zero coordinate.
func (r *Resolver) Resolve(ctx context.Context, cfg domain.ReferenceConfig) (domain.ReferencePoint, error) {
	if cfg.Source == domain.RefStatic || cfg.Source == "" {
		return domain.ReferencePoint{Geo: cfg.Geo, Source: domain.RefStatic}, nil
	}

	if r.lookup == nil {
		return domain.ReferencePoint{}, &domain.ReferenceUnavailableError{
			EntityID: cfg.EntityID,
			Err:      fmt.Errorf("no location lookup configured for %s source", cfg.Source),
		}
	}

	geo, ok, err := r.lookup.Locate(ctx, cfg.EntityID)
	if err != nil {
		return domain.ReferencePoint{}, &domain.ReferenceUnavailableError{EntityID: cfg.EntityID, Err: err}
	}
	if !ok {
		return domain.ReferencePoint{}, &domain.ReferenceUnavailableError{EntityID: cfg.EntityID}
	}

	return domain.ReferencePoint{Geo: geo, Source: cfg.Source, EntityID: cfg.EntityID}, nil
}
