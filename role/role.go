// Package role defines the Role entity and its store interface.
package role

import (
	"time"

	"github.com/xraph/granary/entity"
	"github.com/xraph/granary/id"
)

// Role is a named bundle of permissions scoped to one grain and securable
// item. A role inherits the permissions of its parent chain. Permissions are
// linked by ID only; the role never carries permission records.
type Role struct {
	ID            id.RoleID     `json:"id" db:"id"`
	TenantID      string        `json:"tenant_id" db:"tenant_id"`
	Grain         string        `json:"grain" db:"grain"`
	SecurableItem string        `json:"securable_item" db:"securable_item"`
	Name          string        `json:"name" db:"name"`
	DisplayName   string        `json:"display_name,omitempty" db:"display_name"`
	Description   string        `json:"description,omitempty" db:"description"`
	ParentID      *id.RoleID    `json:"parent_id,omitempty" db:"parent_id"`
	Status        entity.Status `json:"status" db:"status"`
	CreatedBy     string        `json:"created_by,omitempty" db:"created_by"`
	ModifiedBy    string        `json:"modified_by,omitempty" db:"modified_by"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// InScope reports whether the role applies to grain and, when securableItem
// is non-empty, to that securable item.
func (r *Role) InScope(grain, securableItem string) bool {
	if r.Grain != grain {
		return false
	}
	return securableItem == "" || r.SecurableItem == securableItem
}

// ListFilter contains filters for listing roles.
type ListFilter struct {
	TenantID      string `json:"tenant_id,omitempty"`
	Grain         string `json:"grain,omitempty"`
	SecurableItem string `json:"securable_item,omitempty"`
	Name          string `json:"name,omitempty"`
	Limit         int    `json:"limit,omitempty"`
	Offset        int    `json:"offset,omitempty"`
}
