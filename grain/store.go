package grain

import (
	"context"

	"github.com/xraph/granary/id"
)

// Store defines persistence operations for grains.
type Store interface {
	// CreateGrain persists a new grain. Names are unique per tenant.
	CreateGrain(ctx context.Context, g *Grain) error

	// GetGrain retrieves an active grain by ID.
	GetGrain(ctx context.Context, grainID id.GrainID) (*Grain, error)

	// GetGrainByName retrieves an active grain by tenant and name.
	GetGrainByName(ctx context.Context, tenantID, name string) (*Grain, error)

	// ListGrains returns grains matching the filter, ordered by name.
	ListGrains(ctx context.Context, filter *ListFilter) ([]*Grain, error)

	// DeleteGrain marks a grain deleted.
	DeleteGrain(ctx context.Context, grainID id.GrainID) error
}
