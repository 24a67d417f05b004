package group

import (
	"context"

	"github.com/xraph/granary/id"
)

// Store defines persistence operations for groups and memberships. Group
// reads skip deleted groups; memberships are hard-deleted.
type Store interface {
	// CreateGroup persists a new group. Names are unique per tenant.
	CreateGroup(ctx context.Context, g *Group) error

	// GetGroup retrieves an active group by ID.
	GetGroup(ctx context.Context, groupID id.GroupID) (*Group, error)

	// GetGroupByName retrieves an active group by tenant and name.
	GetGroupByName(ctx context.Context, tenantID, name string) (*Group, error)

	// ListGroups returns active groups matching the filter, ordered by name.
	ListGroups(ctx context.Context, filter *ListFilter) ([]*Group, error)

	// DeleteGroup marks a group deleted.
	DeleteGroup(ctx context.Context, groupID id.GroupID) error

	// AddMember adds a membership. Adding the same member twice returns
	// store.ErrDuplicate.
	AddMember(ctx context.Context, m *Member) error

	// RemoveMember deletes a membership.
	RemoveMember(ctx context.Context, groupID id.GroupID, kind MemberKind, memberID string) error

	// ListMembers returns the direct members of a group.
	ListMembers(ctx context.Context, groupID id.GroupID) ([]*Member, error)

	// ListGroupsForPrincipal returns the active groups that directly contain
	// a user principal.
	ListGroupsForPrincipal(ctx context.Context, tenantID, principalID string) ([]id.GroupID, error)

	// ListParentGroups returns the active groups that directly contain
	// groupID as a member.
	ListParentGroups(ctx context.Context, groupID id.GroupID) ([]id.GroupID, error)
}
