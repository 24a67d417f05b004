package api

// ──────────────────────────────────────────────────
// Resolution requests
// ──────────────────────────────────────────────────

// ResolveRequest is the body for resolving a principal's permission set.
type ResolveRequest struct {
	PrincipalID   string `json:"principal_id" description:"Principal identifier, subject or subject:provider"`
	Grain         string `json:"grain" description:"Grain name"`
	SecurableItem string `json:"securable_item,omitempty" description:"Securable item name; empty resolves the whole grain"`
}

// CheckRequest asks whether one permission is in effect.
type CheckRequest struct {
	PrincipalID   string `json:"principal_id" description:"Principal identifier"`
	Grain         string `json:"grain" description:"Grain name"`
	SecurableItem string `json:"securable_item,omitempty" description:"Securable item name"`
	Permission    string `json:"permission" description:"Permission name"`
}

// BatchCheckRequest contains multiple checks.
type BatchCheckRequest struct {
	Checks []CheckRequest `json:"checks" description:"List of permission checks"`
}

// PrincipalPermissionsRequest holds path and query parameters for the
// principal permissions route.
type PrincipalPermissionsRequest struct {
	PrincipalID   string `path:"principalId" description:"Principal identifier"`
	Grain         string `query:"grain" description:"Grain name"`
	SecurableItem string `query:"securable_item" description:"Securable item name"`
}

// PrincipalGroupsRequest is the path parameter for the group expansion route.
type PrincipalGroupsRequest struct {
	PrincipalID string `path:"principalId" description:"Principal identifier"`
}

// ──────────────────────────────────────────────────
// Grain requests
// ──────────────────────────────────────────────────

// CreateGrainRequest is the body for creating a grain.
type CreateGrainRequest struct {
	Name                string   `json:"name" description:"Grain name"`
	IsShared            bool     `json:"is_shared,omitempty" description:"Shared grains require a write scope"`
	RequiredWriteScopes []string `json:"required_write_scopes,omitempty" description:"Scopes allowed to write a shared grain"`
}

// GetGrainRequest is the path parameter for grain routes.
type GetGrainRequest struct {
	Grain string `path:"grain" description:"Grain name"`
}

// ListGrainsRequest holds query parameters for listing grains.
type ListGrainsRequest struct {
	Limit  int `query:"limit" description:"Maximum results (default: 50)"`
	Offset int `query:"offset" description:"Results to skip"`
}

// CreateSecurableItemRequest is the body for creating a securable item.
type CreateSecurableItemRequest struct {
	Name        string `json:"name" description:"Securable item name"`
	ParentID    string `json:"parent_id,omitempty" description:"Parent securable item ID"`
	ClientOwner string `json:"client_owner,omitempty" description:"Owning client; defaults to the calling client"`
}

// GetSecurableItemRequest is the path parameter for securable item routes.
type GetSecurableItemRequest struct {
	Grain string `path:"grain" description:"Grain name"`
	Item  string `path:"item" description:"Securable item name"`
}

// ListSecurableItemsRequest holds query parameters for listing items.
type ListSecurableItemsRequest struct {
	Grain  string `path:"grain" description:"Grain name"`
	Limit  int    `query:"limit" description:"Maximum results"`
	Offset int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Role requests
// ──────────────────────────────────────────────────

// CreateRoleRequest is the body for creating a role.
type CreateRoleRequest struct {
	Grain         string `json:"grain" description:"Grain name"`
	SecurableItem string `json:"securable_item" description:"Securable item name"`
	Name          string `json:"name" description:"Role name"`
	DisplayName   string `json:"display_name,omitempty" description:"Human-readable name"`
	Description   string `json:"description,omitempty" description:"Human-readable description"`
	ParentID      string `json:"parent_id,omitempty" description:"Parent role ID for inheritance"`
}

// SetRoleParentRequest is the body for changing a role's parent. An empty
// parent_id clears it.
type SetRoleParentRequest struct {
	ParentID string `json:"parent_id" description:"Parent role ID"`
}

// GetRoleRequest is the path parameter for getting a role.
type GetRoleRequest struct {
	RoleID string `path:"roleId" description:"Role ID"`
}

// ListRolesRequest holds query parameters for listing roles.
type ListRolesRequest struct {
	Grain         string `query:"grain" description:"Filter by grain"`
	SecurableItem string `query:"securable_item" description:"Filter by securable item"`
	Name          string `query:"name" description:"Filter by name"`
	Limit         int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset        int    `query:"offset" description:"Results to skip"`
}

// AttachPermissionRequest is the body for attaching a permission to a role.
type AttachPermissionRequest struct {
	PermissionID string `json:"permission_id" description:"Permission ID to attach"`
}

// ──────────────────────────────────────────────────
// Permission requests
// ──────────────────────────────────────────────────

// CreatePermissionRequest is the body for creating a permission.
type CreatePermissionRequest struct {
	Grain         string `json:"grain" description:"Grain name"`
	SecurableItem string `json:"securable_item" description:"Securable item name"`
	Name          string `json:"name" description:"Permission name"`
	Action        string `json:"action,omitempty" description:"allow (default) or deny"`
	Description   string `json:"description,omitempty" description:"Human-readable description"`
}

// GetPermissionRequest is the path parameter for getting a permission.
type GetPermissionRequest struct {
	PermissionID string `path:"permissionId" description:"Permission ID"`
}

// ListPermissionsRequest holds query parameters.
type ListPermissionsRequest struct {
	Grain         string `query:"grain" description:"Filter by grain"`
	SecurableItem string `query:"securable_item" description:"Filter by securable item"`
	Name          string `query:"name" description:"Filter by name"`
	Action        string `query:"action" description:"Filter by action"`
	Limit         int    `query:"limit" description:"Maximum results"`
	Offset        int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Group requests
// ──────────────────────────────────────────────────

// CreateGroupRequest is the body for creating a group.
type CreateGroupRequest struct {
	Name        string `json:"name" description:"Group name"`
	DisplayName string `json:"display_name,omitempty" description:"Human-readable name"`
	Description string `json:"description,omitempty" description:"Human-readable description"`
	Type        string `json:"type,omitempty" description:"custom (default) or directory"`
	Source      string `json:"source,omitempty" description:"Directory the group is synced from"`
}

// GetGroupRequest is the path parameter for group routes.
type GetGroupRequest struct {
	GroupID string `path:"groupId" description:"Group ID"`
}

// ListGroupsRequest holds query parameters for listing groups.
type ListGroupsRequest struct {
	Type   string `query:"type" description:"Filter by group type"`
	Search string `query:"search" description:"Search by name"`
	Limit  int    `query:"limit" description:"Maximum results"`
	Offset int    `query:"offset" description:"Results to skip"`
}

// AddMemberRequest is the body for adding a group member.
type AddMemberRequest struct {
	MemberKind string `json:"member_kind" description:"user or group"`
	MemberID   string `json:"member_id" description:"Principal identifier or group ID"`
}

// ──────────────────────────────────────────────────
// Assignment requests
// ──────────────────────────────────────────────────

// AssignRoleRequest is the body for assigning a role to a principal.
type AssignRoleRequest struct {
	RoleID        string `json:"role_id" description:"Role ID to assign"`
	PrincipalKind string `json:"principal_kind,omitempty" description:"user (default) or group"`
	PrincipalID   string `json:"principal_id" description:"Principal identifier or group ID"`
}

// GetAssignmentRequest is the path parameter for getting an assignment.
type GetAssignmentRequest struct {
	AssignmentID string `path:"assignmentId" description:"Assignment ID"`
}

// ListAssignmentsRequest holds query parameters.
type ListAssignmentsRequest struct {
	RoleID        string `query:"role_id" description:"Filter by role ID"`
	PrincipalKind string `query:"principal_kind" description:"Filter by principal kind"`
	PrincipalID   string `query:"principal_id" description:"Filter by principal ID"`
	Limit         int    `query:"limit" description:"Maximum results"`
	Offset        int    `query:"offset" description:"Results to skip"`
}
