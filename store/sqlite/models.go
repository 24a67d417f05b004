package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/granary/assignment"
	"github.com/xraph/granary/entity"
	"github.com/xraph/granary/grain"
	"github.com/xraph/granary/group"
	"github.com/xraph/granary/id"
	"github.com/xraph/granary/permission"
	"github.com/xraph/granary/role"
	"github.com/xraph/granary/securableitem"
)

// ──────────────────────────────────────────────────
// Grain model
// ──────────────────────────────────────────────────

type grainModel struct {
	grove.BaseModel     `grove:"table:granary_grains"`
	ID                  string    `grove:"id,pk"`
	TenantID            string    `grove:"tenant_id,notnull"`
	Name                string    `grove:"name,notnull"`
	IsShared            bool      `grove:"is_shared,notnull"`
	RequiredWriteScopes string    `grove:"required_write_scopes"` // JSON text
	Status              string    `grove:"status,notnull"`
	CreatedBy           string    `grove:"created_by"`
	ModifiedBy          string    `grove:"modified_by"`
	CreatedAt           time.Time `grove:"created_at,notnull"`
	UpdatedAt           time.Time `grove:"updated_at,notnull"`
}

func grainToModel(g *grain.Grain) (*grainModel, error) {
	scopes := g.RequiredWriteScopes
	if scopes == nil {
		scopes = []string{}
	}
	raw, err := json.Marshal(scopes)
	if err != nil {
		return nil, fmt.Errorf("marshal grain write scopes: %w", err)
	}
	return &grainModel{
		ID:                  g.ID.String(),
		TenantID:            g.TenantID,
		Name:                g.Name,
		IsShared:            g.IsShared,
		RequiredWriteScopes: string(raw),
		Status:              string(orActive(g.Status)),
		CreatedBy:           g.CreatedBy,
		ModifiedBy:          g.ModifiedBy,
		CreatedAt:           g.CreatedAt,
		UpdatedAt:           g.UpdatedAt,
	}, nil
}

func grainFromModel(m *grainModel) (*grain.Grain, error) {
	gid, _ := id.ParseGrainID(m.ID) //nolint:errcheck // stored IDs are always valid
	var scopes []string
	if m.RequiredWriteScopes != "" {
		if err := json.Unmarshal([]byte(m.RequiredWriteScopes), &scopes); err != nil {
			return nil, fmt.Errorf("unmarshal grain write scopes: %w", err)
		}
	}
	if len(scopes) == 0 {
		scopes = nil
	}
	return &grain.Grain{
		ID:                  gid,
		TenantID:            m.TenantID,
		Name:                m.Name,
		IsShared:            m.IsShared,
		RequiredWriteScopes: scopes,
		Status:              entity.Status(m.Status),
		CreatedBy:           m.CreatedBy,
		ModifiedBy:          m.ModifiedBy,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}, nil
}

// ──────────────────────────────────────────────────
// Securable item model
// ──────────────────────────────────────────────────

type securableItemModel struct {
	grove.BaseModel `grove:"table:granary_securable_items"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Grain           string    `grove:"grain,notnull"`
	Name            string    `grove:"name,notnull"`
	ClientOwner     string    `grove:"client_owner"`
	ParentID        *string   `grove:"parent_id"`
	Status          string    `grove:"status,notnull"`
	CreatedBy       string    `grove:"created_by"`
	ModifiedBy      string    `grove:"modified_by"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func securableItemToModel(si *securableitem.SecurableItem) *securableItemModel {
	m := &securableItemModel{
		ID:          si.ID.String(),
		TenantID:    si.TenantID,
		Grain:       si.Grain,
		Name:        si.Name,
		ClientOwner: si.ClientOwner,
		Status:      string(orActive(si.Status)),
		CreatedBy:   si.CreatedBy,
		ModifiedBy:  si.ModifiedBy,
		CreatedAt:   si.CreatedAt,
		UpdatedAt:   si.UpdatedAt,
	}
	if si.ParentID != nil {
		s := si.ParentID.String()
		m.ParentID = &s
	}
	return m
}

func securableItemFromModel(m *securableItemModel) *securableitem.SecurableItem {
	sid, _ := id.ParseSecurableItemID(m.ID) //nolint:errcheck // stored IDs are always valid
	si := &securableitem.SecurableItem{
		ID:          sid,
		TenantID:    m.TenantID,
		Grain:       m.Grain,
		Name:        m.Name,
		ClientOwner: m.ClientOwner,
		Status:      entity.Status(m.Status),
		CreatedBy:   m.CreatedBy,
		ModifiedBy:  m.ModifiedBy,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.ParentID != nil {
		if pid, err := id.ParseSecurableItemID(*m.ParentID); err == nil {
			si.ParentID = &pid
		}
	}
	return si
}

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:granary_roles"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Grain           string    `grove:"grain,notnull"`
	SecurableItem   string    `grove:"securable_item,notnull"`
	Name            string    `grove:"name,notnull"`
	DisplayName     string    `grove:"display_name"`
	Description     string    `grove:"description"`
	ParentID        *string   `grove:"parent_id"`
	Status          string    `grove:"status,notnull"`
	CreatedBy       string    `grove:"created_by"`
	ModifiedBy      string    `grove:"modified_by"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func roleToModel(r *role.Role) *roleModel {
	m := &roleModel{
		ID:            r.ID.String(),
		TenantID:      r.TenantID,
		Grain:         r.Grain,
		SecurableItem: r.SecurableItem,
		Name:          r.Name,
		DisplayName:   r.DisplayName,
		Description:   r.Description,
		Status:        string(orActive(r.Status)),
		CreatedBy:     r.CreatedBy,
		ModifiedBy:    r.ModifiedBy,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.ParentID != nil {
		s := r.ParentID.String()
		m.ParentID = &s
	}
	return m
}

func roleFromModel(m *roleModel) *role.Role {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid
	r := &role.Role{
		ID:            rid,
		TenantID:      m.TenantID,
		Grain:         m.Grain,
		SecurableItem: m.SecurableItem,
		Name:          m.Name,
		DisplayName:   m.DisplayName,
		Description:   m.Description,
		Status:        entity.Status(m.Status),
		CreatedBy:     m.CreatedBy,
		ModifiedBy:    m.ModifiedBy,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.ParentID != nil {
		if pid, err := id.ParseRoleID(*m.ParentID); err == nil {
			r.ParentID = &pid
		}
	}
	return r
}

// ──────────────────────────────────────────────────
// Permission model
// ──────────────────────────────────────────────────

type permissionModel struct {
	grove.BaseModel `grove:"table:granary_permissions"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Grain           string    `grove:"grain,notnull"`
	SecurableItem   string    `grove:"securable_item,notnull"`
	Name            string    `grove:"name,notnull"`
	Action          string    `grove:"action,notnull"`
	Description     string    `grove:"description"`
	Status          string    `grove:"status,notnull"`
	CreatedBy       string    `grove:"created_by"`
	ModifiedBy      string    `grove:"modified_by"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func permissionToModel(p *permission.Permission) *permissionModel {
	return &permissionModel{
		ID:            p.ID.String(),
		TenantID:      p.TenantID,
		Grain:         p.Grain,
		SecurableItem: p.SecurableItem,
		Name:          p.Name,
		Action:        string(p.Action),
		Description:   p.Description,
		Status:        string(orActive(p.Status)),
		CreatedBy:     p.CreatedBy,
		ModifiedBy:    p.ModifiedBy,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func permissionFromModel(m *permissionModel) *permission.Permission {
	pid, _ := id.ParsePermissionID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &permission.Permission{
		ID:            pid,
		TenantID:      m.TenantID,
		Grain:         m.Grain,
		SecurableItem: m.SecurableItem,
		Name:          m.Name,
		Action:        permission.Action(m.Action),
		Description:   m.Description,
		Status:        entity.Status(m.Status),
		CreatedBy:     m.CreatedBy,
		ModifiedBy:    m.ModifiedBy,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Role-Permission junction model
// ──────────────────────────────────────────────────

type rolePermissionModel struct {
	grove.BaseModel `grove:"table:granary_role_permissions"`
	RoleID          string `grove:"role_id,pk"`
	PermissionID    string `grove:"permission_id,pk"`
}

// ──────────────────────────────────────────────────
// Group models
// ──────────────────────────────────────────────────

type groupModel struct {
	grove.BaseModel `grove:"table:granary_groups"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Name            string    `grove:"name,notnull"`
	DisplayName     string    `grove:"display_name"`
	Description     string    `grove:"description"`
	Type            string    `grove:"type,notnull"`
	Source          string    `grove:"source"`
	Status          string    `grove:"status,notnull"`
	CreatedBy       string    `grove:"created_by"`
	ModifiedBy      string    `grove:"modified_by"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func groupToModel(g *group.Group) *groupModel {
	return &groupModel{
		ID:          g.ID.String(),
		TenantID:    g.TenantID,
		Name:        g.Name,
		DisplayName: g.DisplayName,
		Description: g.Description,
		Type:        string(g.Type),
		Source:      g.Source,
		Status:      string(orActive(g.Status)),
		CreatedBy:   g.CreatedBy,
		ModifiedBy:  g.ModifiedBy,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func groupFromModel(m *groupModel) *group.Group {
	gid, _ := id.ParseGroupID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &group.Group{
		ID:          gid,
		TenantID:    m.TenantID,
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Description: m.Description,
		Type:        group.Type(m.Type),
		Source:      m.Source,
		Status:      entity.Status(m.Status),
		CreatedBy:   m.CreatedBy,
		ModifiedBy:  m.ModifiedBy,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type memberModel struct {
	grove.BaseModel `grove:"table:granary_group_members"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	GroupID         string    `grove:"group_id,notnull"`
	MemberKind      string    `grove:"member_kind,notnull"`
	MemberID        string    `grove:"member_id,notnull"`
	CreatedBy       string    `grove:"created_by"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func memberToModel(m *group.Member) *memberModel {
	return &memberModel{
		ID:         m.ID.String(),
		TenantID:   m.TenantID,
		GroupID:    m.GroupID.String(),
		MemberKind: string(m.MemberKind),
		MemberID:   m.MemberID,
		CreatedBy:  m.CreatedBy,
		CreatedAt:  m.CreatedAt,
	}
}

func memberFromModel(m *memberModel) *group.Member {
	mid, _ := id.ParseMemberID(m.ID)   //nolint:errcheck // stored IDs are always valid
	gid, _ := id.ParseGroupID(m.GroupID) //nolint:errcheck // stored IDs are always valid
	return &group.Member{
		ID:         mid,
		TenantID:   m.TenantID,
		GroupID:    gid,
		MemberKind: group.MemberKind(m.MemberKind),
		MemberID:   m.MemberID,
		CreatedBy:  m.CreatedBy,
		CreatedAt:  m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Assignment model
// ──────────────────────────────────────────────────

type assignmentModel struct {
	grove.BaseModel `grove:"table:granary_assignments"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	RoleID          string    `grove:"role_id,notnull"`
	PrincipalKind   string    `grove:"principal_kind,notnull"`
	PrincipalID     string    `grove:"principal_id,notnull"`
	CreatedBy       string    `grove:"created_by"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func assignmentToModel(a *assignment.Assignment) *assignmentModel {
	return &assignmentModel{
		ID:            a.ID.String(),
		TenantID:      a.TenantID,
		RoleID:        a.RoleID.String(),
		PrincipalKind: string(a.PrincipalKind),
		PrincipalID:   a.PrincipalID,
		CreatedBy:     a.CreatedBy,
		CreatedAt:     a.CreatedAt,
	}
}

func assignmentFromModel(m *assignmentModel) *assignment.Assignment {
	aid, _ := id.ParseAssignmentID(m.ID) //nolint:errcheck // stored IDs are always valid
	rid, _ := id.ParseRoleID(m.RoleID)   //nolint:errcheck // stored IDs are always valid
	return &assignment.Assignment{
		ID:            aid,
		TenantID:      m.TenantID,
		RoleID:        rid,
		PrincipalKind: assignment.PrincipalKind(m.PrincipalKind),
		PrincipalID:   m.PrincipalID,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
	}
}

func orActive(s entity.Status) entity.Status {
	if s == "" {
		return entity.StatusActive
	}
	return s
}
