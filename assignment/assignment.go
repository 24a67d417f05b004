// Package assignment defines the Assignment entity, which binds a role to a
// user principal or a group.
package assignment

import (
	"time"

	"github.com/xraph/granary/id"
)

// PrincipalKind distinguishes user principals from groups.
type PrincipalKind string

const (
	PrincipalUser  PrincipalKind = "user"
	PrincipalGroup PrincipalKind = "group"
)

// Valid reports whether k is a known principal kind.
func (k PrincipalKind) Valid() bool { return k == PrincipalUser || k == PrincipalGroup }

// Assignment grants RoleID to a principal. For groups PrincipalID holds the
// group ID string.
type Assignment struct {
	ID            id.AssignmentID `json:"id" db:"id"`
	TenantID      string          `json:"tenant_id" db:"tenant_id"`
	RoleID        id.RoleID       `json:"role_id" db:"role_id"`
	PrincipalKind PrincipalKind   `json:"principal_kind" db:"principal_kind"`
	PrincipalID   string          `json:"principal_id" db:"principal_id"`
	CreatedBy     string          `json:"created_by,omitempty" db:"created_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// ListFilter contains filters for listing assignments.
type ListFilter struct {
	TenantID      string        `json:"tenant_id,omitempty"`
	RoleID        *id.RoleID    `json:"role_id,omitempty"`
	PrincipalKind PrincipalKind `json:"principal_kind,omitempty"`
	PrincipalID   string        `json:"principal_id,omitempty"`
	Limit         int           `json:"limit,omitempty"`
	Offset        int           `json:"offset,omitempty"`
}
