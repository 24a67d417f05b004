package securableitem

import (
	"context"

	"github.com/xraph/granary/id"
)

// Store defines persistence operations for securable items.
type Store interface {
	// CreateSecurableItem persists a new item. Names are unique per
	// (tenant, grain).
	CreateSecurableItem(ctx context.Context, s *SecurableItem) error

	// GetSecurableItem retrieves an active item by ID.
	GetSecurableItem(ctx context.Context, itemID id.SecurableItemID) (*SecurableItem, error)

	// GetSecurableItemByName retrieves an active item by grain and name.
	GetSecurableItemByName(ctx context.Context, tenantID, grain, name string) (*SecurableItem, error)

	// ListSecurableItems returns active items matching the filter, ordered by name.
	ListSecurableItems(ctx context.Context, filter *ListFilter) ([]*SecurableItem, error)

	// DeleteSecurableItem marks an item deleted.
	DeleteSecurableItem(ctx context.Context, itemID id.SecurableItemID) error
}
