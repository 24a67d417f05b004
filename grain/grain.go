// Package grain defines the Grain entity, the top-level partition of the
// authorization namespace (for example "app" or "dos").
package grain

import (
	"slices"
	"time"

	"github.com/xraph/granary/entity"
	"github.com/xraph/granary/id"
)

// Grain groups securable items. A shared grain is written to by several
// clients, so mutating it requires one of RequiredWriteScopes.
type Grain struct {
	ID                  id.GrainID    `json:"id" db:"id"`
	TenantID            string        `json:"tenant_id" db:"tenant_id"`
	Name                string        `json:"name" db:"name"`
	IsShared            bool          `json:"is_shared" db:"is_shared"`
	RequiredWriteScopes []string      `json:"required_write_scopes,omitempty" db:"required_write_scopes"`
	Status              entity.Status `json:"status" db:"status"`
	CreatedBy           string        `json:"created_by,omitempty" db:"created_by"`
	ModifiedBy          string        `json:"modified_by,omitempty" db:"modified_by"`
	CreatedAt           time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at" db:"updated_at"`
}

// Writable reports whether a caller holding scopes may mutate entities in g.
func (g *Grain) Writable(scopes []string) bool {
	if !g.IsShared {
		return true
	}
	for _, s := range g.RequiredWriteScopes {
		if slices.Contains(scopes, s) {
			return true
		}
	}
	return false
}

// ListFilter contains filters for listing grains.
type ListFilter struct {
	TenantID       string `json:"tenant_id,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
}
