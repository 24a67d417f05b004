// Package group defines groups, their memberships, and the group store.
package group

import (
	"time"

	"github.com/xraph/granary/entity"
	"github.com/xraph/granary/id"
)

// Type distinguishes groups managed in granary from groups synced from a
// directory.
type Type string

const (
	TypeCustom    Type = "custom"
	TypeDirectory Type = "directory"
)

// Group is a named set of users and other groups.
type Group struct {
	ID          id.GroupID    `json:"id" db:"id"`
	TenantID    string        `json:"tenant_id" db:"tenant_id"`
	Name        string        `json:"name" db:"name"`
	DisplayName string        `json:"display_name,omitempty" db:"display_name"`
	Description string        `json:"description,omitempty" db:"description"`
	Type        Type          `json:"type" db:"type"`
	Source      string        `json:"source,omitempty" db:"source"`
	Status      entity.Status `json:"status" db:"status"`
	CreatedBy   string        `json:"created_by,omitempty" db:"created_by"`
	ModifiedBy  string        `json:"modified_by,omitempty" db:"modified_by"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// MemberKind says whether a member is a user principal or a nested group.
type MemberKind string

const (
	MemberUser  MemberKind = "user"
	MemberGroup MemberKind = "group"
)

// Valid reports whether k is a known member kind.
func (k MemberKind) Valid() bool { return k == MemberUser || k == MemberGroup }

// Member records that MemberID belongs to GroupID. For nested groups
// MemberID holds the child group ID string.
type Member struct {
	ID         id.MemberID `json:"id" db:"id"`
	TenantID   string      `json:"tenant_id" db:"tenant_id"`
	GroupID    id.GroupID  `json:"group_id" db:"group_id"`
	MemberKind MemberKind  `json:"member_kind" db:"member_kind"`
	MemberID   string      `json:"member_id" db:"member_id"`
	CreatedBy  string      `json:"created_by,omitempty" db:"created_by"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// ListFilter contains filters for listing groups.
type ListFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	Type     Type   `json:"type,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}
