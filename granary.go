// Package granary resolves effective permissions for principals in a
// multi-tenant authorization service.
//
// Permissions live in grains and securable items. Roles bundle permission
// IDs and are assigned to users or groups, and groups may nest. Resolving a
// principal walks principal → groups → roles → permissions and merges the
// result with deny-overrides-allow.
//
//	eng, err := granary.NewEngine(granary.WithStore(memory.New()))
//	ctx = granary.WithTenant(ctx, "app", "tenant_1")
//	set, err := eng.Resolve(ctx, &granary.ResolveRequest{
//	    PrincipalID:   "alice",
//	    Grain:         "app",
//	    SecurableItem: "patientsafety",
//	})
//	set.Has("edit")
package granary

import (
	"slices"
	"strings"

	"github.com/xraph/granary/id"
	"github.com/xraph/granary/permission"
)

// ResolveRequest is the input to a resolution.
type ResolveRequest struct {
	PrincipalID   string `json:"principal_id"`
	Grain         string `json:"grain"`
	SecurableItem string `json:"securable_item,omitempty"`
}

// EffectivePermission is one permission key in a resolved set.
type EffectivePermission struct {
	permission.Key
	// RoleIDs lists the roles that contributed a record for this key.
	RoleIDs []id.RoleID `json:"role_ids"`
}

// ResolvedPermissionSet is the outcome of a resolution. Slices are sorted,
// so two resolutions over identical store state compare equal.
type ResolvedPermissionSet struct {
	PrincipalID   string                `json:"principal_id"`
	Grain         string                `json:"grain"`
	SecurableItem string                `json:"securable_item,omitempty"`
	Permissions   []EffectivePermission `json:"permissions"`
	// Denied lists keys blocked by at least one deny, with the denying roles.
	Denied   []EffectivePermission `json:"denied,omitempty"`
	RoleIDs  []id.RoleID           `json:"role_ids"`
	GroupIDs []id.GroupID          `json:"group_ids"`

	Cached     bool  `json:"cached"`
	EvalTimeNs int64 `json:"eval_time_ns"`
}

// Clone returns a deep copy of s.
func (s *ResolvedPermissionSet) Clone() *ResolvedPermissionSet {
	out := *s
	out.Permissions = cloneEffective(s.Permissions)
	out.Denied = cloneEffective(s.Denied)
	out.RoleIDs = slices.Clone(s.RoleIDs)
	out.GroupIDs = slices.Clone(s.GroupIDs)
	return &out
}

func cloneEffective(in []EffectivePermission) []EffectivePermission {
	if in == nil {
		return nil
	}
	out := make([]EffectivePermission, len(in))
	for i, p := range in {
		p.RoleIDs = slices.Clone(p.RoleIDs)
		out[i] = p
	}
	return out
}

// Has reports whether the set contains an effective permission named name.
func (s *ResolvedPermissionSet) Has(name string) bool {
	return slices.ContainsFunc(s.Permissions, func(p EffectivePermission) bool { return p.Name == name })
}

// Names returns the sorted, unique permission names in the set.
func (s *ResolvedPermissionSet) Names() []string {
	names := make([]string, 0, len(s.Permissions))
	for _, p := range s.Permissions {
		names = append(names, p.Name)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// Strings returns every effective permission as "grain/securableItem.name".
func (s *ResolvedPermissionSet) Strings() []string {
	out := make([]string, len(s.Permissions))
	for i, p := range s.Permissions {
		out[i] = p.Key.String()
	}
	return out
}

// Empty reports whether no permission is in effect.
func (s *ResolvedPermissionSet) Empty() bool { return len(s.Permissions) == 0 }

// FormatPrincipalID joins a subject ID and identity provider into the
// "subject:provider" form stored on assignments and memberships. An empty
// provider leaves the subject unchanged.
func FormatPrincipalID(subjectID, provider string) string {
	if provider == "" {
		return subjectID
	}
	return subjectID + ":" + provider
}

// ParsePrincipalID splits a principal ID into subject and provider. The
// provider is whatever follows the last colon.
func ParsePrincipalID(principalID string) (subjectID, provider string) {
	i := strings.LastIndexByte(principalID, ':')
	if i < 0 {
		return principalID, ""
	}
	return principalID[:i], principalID[i+1:]
}
