package granary

import (
	"cmp"
	"slices"

	"github.com/xraph/granary/id"
	"github.com/xraph/granary/permission"
	"github.com/xraph/granary/role"
)

type keyState struct {
	key        permission.Key
	allowRoles []id.RoleID
	denyRoles  []id.RoleID
}

// merge applies deny-overrides-allow across the permissions of roles.
// permsByRole[i] belongs to roles[i]. Records outside grain, or outside
// securableItem when it is set, are ignored. The output does not depend on
// the order of roles or of their permissions.
func merge(grain, securableItem string, roles []*role.Role, permsByRole [][]*permission.Permission) *ResolvedPermissionSet {
	states := make(map[permission.Key]*keyState)
	for i, perms := range permsByRole {
		roleID := roles[i].ID
		for _, p := range perms {
			if p == nil || !p.Status.IsActive() || p.Grain != grain {
				continue
			}
			if securableItem != "" && p.SecurableItem != securableItem {
				continue
			}
			st, ok := states[p.Key()]
			if !ok {
				st = &keyState{key: p.Key()}
				states[p.Key()] = st
			}
			switch p.Action {
			case permission.ActionDeny:
				st.denyRoles = appendRole(st.denyRoles, roleID)
			case permission.ActionAllow:
				st.allowRoles = appendRole(st.allowRoles, roleID)
			}
		}
	}

	set := &ResolvedPermissionSet{
		Permissions: []EffectivePermission{},
		RoleIDs:     make([]id.RoleID, 0, len(roles)),
	}
	for _, st := range states {
		switch {
		case len(st.denyRoles) > 0:
			set.Denied = append(set.Denied, EffectivePermission{Key: st.key, RoleIDs: sortedRoles(st.denyRoles)})
		case len(st.allowRoles) > 0:
			set.Permissions = append(set.Permissions, EffectivePermission{Key: st.key, RoleIDs: sortedRoles(st.allowRoles)})
		}
	}
	for _, rl := range roles {
		set.RoleIDs = append(set.RoleIDs, rl.ID)
	}

	byKey := func(a, b EffectivePermission) int { return cmp.Compare(a.Key.String(), b.Key.String()) }
	slices.SortFunc(set.Permissions, byKey)
	slices.SortFunc(set.Denied, byKey)
	slices.SortFunc(set.RoleIDs, id.Compare)
	return set
}

func appendRole(ids []id.RoleID, rid id.RoleID) []id.RoleID {
	if slices.ContainsFunc(ids, func(x id.RoleID) bool { return x.String() == rid.String() }) {
		return ids
	}
	return append(ids, rid)
}

func sortedRoles(ids []id.RoleID) []id.RoleID {
	slices.SortFunc(ids, id.Compare)
	return ids
}
