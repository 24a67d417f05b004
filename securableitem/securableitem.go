// Package securableitem defines SecurableItem, the unit within a grain that
// roles and permissions are scoped to.
package securableitem

import (
	"time"

	"github.com/xraph/granary/entity"
	"github.com/xraph/granary/id"
)

// SecurableItem is a named node within a grain. Items may nest through
// ParentID. ClientOwner is the client allowed to mutate the item and the
// roles and permissions scoped to it.
type SecurableItem struct {
	ID          id.SecurableItemID  `json:"id" db:"id"`
	TenantID    string              `json:"tenant_id" db:"tenant_id"`
	Grain       string              `json:"grain" db:"grain"`
	Name        string              `json:"name" db:"name"`
	ClientOwner string              `json:"client_owner,omitempty" db:"client_owner"`
	ParentID    *id.SecurableItemID `json:"parent_id,omitempty" db:"parent_id"`
	Status      entity.Status       `json:"status" db:"status"`
	CreatedBy   string              `json:"created_by,omitempty" db:"created_by"`
	ModifiedBy  string              `json:"modified_by,omitempty" db:"modified_by"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`
}

// CanMutate reports whether clientID may change the item. Items without an
// owner are open to every client.
func (s *SecurableItem) CanMutate(clientID string) bool {
	return s.ClientOwner == "" || s.ClientOwner == clientID
}

// ListFilter contains filters for listing securable items.
type ListFilter struct {
	TenantID string              `json:"tenant_id,omitempty"`
	Grain    string              `json:"grain,omitempty"`
	ParentID *id.SecurableItemID `json:"parent_id,omitempty"`
	Limit    int                 `json:"limit,omitempty"`
	Offset   int                 `json:"offset,omitempty"`
}
