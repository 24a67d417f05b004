// Package permission defines the Permission entity and its store interface.
package permission

import (
	"time"

	"github.com/xraph/granary/entity"
	"github.com/xraph/granary/id"
)

// Action says whether a permission grants or blocks its name. A deny
// always overrides an allow with the same Key.
type Action string

const (
	ActionAllow Action = "allow"
	ActionDeny  Action = "deny"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool { return a == ActionAllow || a == ActionDeny }

// Permission is a named capability within a grain and securable item.
// Identity is (grain, securable item, name, action), so one name may exist
// once as allow and once as deny.
type Permission struct {
	ID            id.PermissionID `json:"id" db:"id"`
	TenantID      string          `json:"tenant_id" db:"tenant_id"`
	Grain         string          `json:"grain" db:"grain"`
	SecurableItem string          `json:"securable_item" db:"securable_item"`
	Name          string          `json:"name" db:"name"`
	Action        Action          `json:"action" db:"action"`
	Description   string          `json:"description,omitempty" db:"description"`
	Status        entity.Status   `json:"status" db:"status"`
	CreatedBy     string          `json:"created_by,omitempty" db:"created_by"`
	ModifiedBy    string          `json:"modified_by,omitempty" db:"modified_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Key identifies a permission for allow/deny merging.
type Key struct {
	Grain         string `json:"grain"`
	SecurableItem string `json:"securable_item"`
	Name          string `json:"name"`
}

// String renders the key as "grain/securableItem.name".
func (k Key) String() string { return k.Grain + "/" + k.SecurableItem + "." + k.Name }

// Key returns the merge key of p.
func (p *Permission) Key() Key {
	return Key{Grain: p.Grain, SecurableItem: p.SecurableItem, Name: p.Name}
}

// ListFilter contains filters for listing permissions.
type ListFilter struct {
	TenantID      string `json:"tenant_id,omitempty"`
	Grain         string `json:"grain,omitempty"`
	SecurableItem string `json:"securable_item,omitempty"`
	Name          string `json:"name,omitempty"`
	Action        Action `json:"action,omitempty"`
	Limit         int    `json:"limit,omitempty"`
	Offset        int    `json:"offset,omitempty"`
}
