// Package seed loads a declarative YAML document of grains, permissions,
// roles, groups and assignments into a granary engine.
//
// Entities are referenced by name and created through the engine, so a seed
// file is validated exactly like API calls: a group membership cycle or a
// cross-grain role parent fails the load.
//
//	grains:
//	  - name: app
//	    items:
//	      - name: docs
//	roles:
//	  - grain: app
//	    item: docs
//	    name: viewer
//	    allow: [view]
//	  - grain: app
//	    item: docs
//	    name: editor
//	    parent: viewer
//	    allow: [edit]
//	groups:
//	  - name: staff
//	    users: [alice]
//	assignments:
//	  - grain: app
//	    item: docs
//	    role: editor
//	    group: staff
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xraph/granary"
	"github.com/xraph/granary/assignment"
	"github.com/xraph/granary/grain"
	"github.com/xraph/granary/group"
	"github.com/xraph/granary/id"
	"github.com/xraph/granary/permission"
	"github.com/xraph/granary/role"
	"github.com/xraph/granary/securableitem"
)

// Document is the root of a seed file.
type Document struct {
	Grains      []Grain      `yaml:"grains"`
	Permissions []Permission `yaml:"permissions"`
	Roles       []Role       `yaml:"roles"`
	Groups      []Group      `yaml:"groups"`
	Assignments []Assignment `yaml:"assignments"`
}

// Grain declares a grain and its securable items.
type Grain struct {
	Name        string   `yaml:"name"`
	Shared      bool     `yaml:"shared"`
	WriteScopes []string `yaml:"write_scopes"`
	Items       []Item   `yaml:"items"`
}

// Item declares a securable item. Parent names another item in the same
// grain that appears earlier in the list.
type Item struct {
	Name        string `yaml:"name"`
	Parent      string `yaml:"parent"`
	ClientOwner string `yaml:"client_owner"`
}

// Permission declares a permission explicitly, for example to attach a
// description. Permissions referenced by roles are created on demand.
type Permission struct {
	Grain       string `yaml:"grain"`
	Item        string `yaml:"item"`
	Name        string `yaml:"name"`
	Action      string `yaml:"action"`
	Description string `yaml:"description"`
}

// Role declares a role with allowed and denied permission names. Parent
// names another role in the same grain and item.
type Role struct {
	Grain       string   `yaml:"grain"`
	Item        string   `yaml:"item"`
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	Description string   `yaml:"description"`
	Parent      string   `yaml:"parent"`
	Allow       []string `yaml:"allow"`
	Deny        []string `yaml:"deny"`
}

// Group declares a group with user members and nested groups by name.
type Group struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	Type        string   `yaml:"type"`
	Source      string   `yaml:"source"`
	Users       []string `yaml:"users"`
	Groups      []string `yaml:"groups"`
}

// Assignment grants a role to exactly one of User or Group.
type Assignment struct {
	Grain string `yaml:"grain"`
	Item  string `yaml:"item"`
	Role  string `yaml:"role"`
	User  string `yaml:"user"`
	Group string `yaml:"group"`
}

// Result counts the entities created by a load.
type Result struct {
	Grains      int `json:"grains"`
	Items       int `json:"items"`
	Permissions int `json:"permissions"`
	Roles       int `json:"roles"`
	Groups      int `json:"groups"`
	Members     int `json:"members"`
	Assignments int `json:"assignments"`
}

// Parse decodes a seed document. Unknown fields are rejected.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("seed: parse: %w", err)
	}
	return &doc, nil
}

// Load parses r and applies it to eng in the tenant carried by ctx.
func Load(ctx context.Context, eng *granary.Engine, r io.Reader) (*Result, error) {
	doc, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return Apply(ctx, eng, doc)
}

// Apply creates every entity in doc. It stops at the first error; entities
// created before it are kept.
func Apply(ctx context.Context, eng *granary.Engine, doc *Document) (*Result, error) {
	l := &loader{
		eng:   eng,
		res:   &Result{},
		perms: make(map[string]id.PermissionID),
		rls:   make(map[string]*role.Role),
		grps:  make(map[string]id.GroupID),
	}
	steps := []func(context.Context, *Document) error{
		l.grains,
		l.permissions,
		l.roles,
		l.groups,
		l.assignments,
	}
	for _, step := range steps {
		if err := step(ctx, doc); err != nil {
			return l.res, err
		}
	}
	return l.res, nil
}

type loader struct {
	eng   *granary.Engine
	res   *Result
	perms map[string]id.PermissionID
	rls   map[string]*role.Role
	grps  map[string]id.GroupID
}

func (l *loader) grains(ctx context.Context, doc *Document) error {
	for _, g := range doc.Grains {
		if err := l.eng.CreateGrain(ctx, &grain.Grain{
			Name:                g.Name,
			IsShared:            g.Shared,
			RequiredWriteScopes: g.WriteScopes,
		}); err != nil {
			return fmt.Errorf("seed: grain %q: %w", g.Name, err)
		}
		l.res.Grains++

		items := make(map[string]id.SecurableItemID, len(g.Items))
		for _, it := range g.Items {
			si := &securableitem.SecurableItem{
				Grain:       g.Name,
				Name:        it.Name,
				ClientOwner: it.ClientOwner,
			}
			if it.Parent != "" {
				pid, ok := items[it.Parent]
				if !ok {
					return fmt.Errorf("seed: item %s/%s: unknown parent %q", g.Name, it.Name, it.Parent)
				}
				si.ParentID = &pid
			}
			if err := l.eng.CreateSecurableItem(ctx, si); err != nil {
				return fmt.Errorf("seed: item %s/%s: %w", g.Name, it.Name, err)
			}
			items[it.Name] = si.ID
			l.res.Items++
		}
	}
	return nil
}

func (l *loader) permissions(ctx context.Context, doc *Document) error {
	for _, p := range doc.Permissions {
		action := permission.Action(strings.ToLower(p.Action))
		if action == "" {
			action = permission.ActionAllow
		}
		if _, err := l.permission(ctx, p.Grain, p.Item, p.Name, action, p.Description); err != nil {
			return err
		}
	}
	return nil
}

// permission returns the ID of a permission, creating it on first use.
func (l *loader) permission(ctx context.Context, grainName, item, name string, action permission.Action, desc string) (id.PermissionID, error) {
	key := strings.Join([]string{grainName, item, name, string(action)}, "\x1f")
	if pid, ok := l.perms[key]; ok {
		return pid, nil
	}
	p := &permission.Permission{
		Grain:         grainName,
		SecurableItem: item,
		Name:          name,
		Action:        action,
		Description:   desc,
	}
	if err := l.eng.CreatePermission(ctx, p); err != nil {
		return id.Nil, fmt.Errorf("seed: permission %s %s: %w", p.Key(), action, err)
	}
	l.perms[key] = p.ID
	l.res.Permissions++
	return p.ID, nil
}

func (l *loader) roles(ctx context.Context, doc *Document) error {
	for _, rd := range doc.Roles {
		r := &role.Role{
			Grain:         rd.Grain,
			SecurableItem: rd.Item,
			Name:          rd.Name,
			DisplayName:   rd.DisplayName,
			Description:   rd.Description,
		}
		if err := l.eng.CreateRole(ctx, r); err != nil {
			return fmt.Errorf("seed: role %q: %w", rd.Name, err)
		}
		l.rls[roleKey(rd.Grain, rd.Item, rd.Name)] = r
		l.res.Roles++

		for _, names := range []struct {
			action permission.Action
			list   []string
		}{
			{permission.ActionAllow, rd.Allow},
			{permission.ActionDeny, rd.Deny},
		} {
			for _, name := range names.list {
				pid, err := l.permission(ctx, rd.Grain, rd.Item, name, names.action, "")
				if err != nil {
					return err
				}
				if err := l.eng.AttachPermission(ctx, r.ID, pid); err != nil {
					return fmt.Errorf("seed: role %q attach %q: %w", rd.Name, name, err)
				}
			}
		}
	}

	// Parents are linked after every role exists so order in the file does
	// not matter.
	for _, rd := range doc.Roles {
		if rd.Parent == "" {
			continue
		}
		r := l.rls[roleKey(rd.Grain, rd.Item, rd.Name)]
		parent, ok := l.rls[roleKey(rd.Grain, rd.Item, rd.Parent)]
		if !ok {
			return fmt.Errorf("seed: role %q: unknown parent %q", rd.Name, rd.Parent)
		}
		if _, err := l.eng.SetRoleParent(ctx, r.ID, &parent.ID); err != nil {
			return fmt.Errorf("seed: role %q parent: %w", rd.Name, err)
		}
	}
	return nil
}

func (l *loader) groups(ctx context.Context, doc *Document) error {
	for _, gd := range doc.Groups {
		g := &group.Group{
			Name:        gd.Name,
			DisplayName: gd.DisplayName,
			Type:        group.Type(gd.Type),
			Source:      gd.Source,
		}
		if err := l.eng.CreateGroup(ctx, g); err != nil {
			return fmt.Errorf("seed: group %q: %w", gd.Name, err)
		}
		l.grps[gd.Name] = g.ID
		l.res.Groups++
	}

	for _, gd := range doc.Groups {
		gid := l.grps[gd.Name]
		for _, u := range gd.Users {
			if err := l.member(ctx, gid, group.MemberUser, u); err != nil {
				return fmt.Errorf("seed: group %q user %q: %w", gd.Name, u, err)
			}
		}
		for _, child := range gd.Groups {
			cid, ok := l.grps[child]
			if !ok {
				return fmt.Errorf("seed: group %q: unknown nested group %q", gd.Name, child)
			}
			if err := l.member(ctx, gid, group.MemberGroup, cid.String()); err != nil {
				return fmt.Errorf("seed: group %q nested %q: %w", gd.Name, child, err)
			}
		}
	}
	return nil
}

func (l *loader) member(ctx context.Context, gid id.GroupID, kind group.MemberKind, memberID string) error {
	if err := l.eng.AddGroupMember(ctx, &group.Member{
		GroupID:    gid,
		MemberKind: kind,
		MemberID:   memberID,
	}); err != nil {
		return err
	}
	l.res.Members++
	return nil
}

func (l *loader) assignments(ctx context.Context, doc *Document) error {
	for _, ad := range doc.Assignments {
		r, ok := l.rls[roleKey(ad.Grain, ad.Item, ad.Role)]
		if !ok {
			return fmt.Errorf("seed: assignment: unknown role %s/%s/%s", ad.Grain, ad.Item, ad.Role)
		}
		a := &assignment.Assignment{RoleID: r.ID}
		switch {
		case ad.User != "" && ad.Group != "":
			return fmt.Errorf("seed: assignment of %q names both a user and a group", ad.Role)
		case ad.User != "":
			a.PrincipalKind = assignment.PrincipalUser
			a.PrincipalID = ad.User
		case ad.Group != "":
			gid, ok := l.grps[ad.Group]
			if !ok {
				return fmt.Errorf("seed: assignment of %q: unknown group %q", ad.Role, ad.Group)
			}
			a.PrincipalKind = assignment.PrincipalGroup
			a.PrincipalID = gid.String()
		default:
			return fmt.Errorf("seed: assignment of %q names no principal", ad.Role)
		}
		if err := l.eng.AssignRole(ctx, a); err != nil {
			return fmt.Errorf("seed: assign %q: %w", ad.Role, err)
		}
		l.res.Assignments++
	}
	return nil
}

func roleKey(grainName, item, name string) string {
	return grainName + "/" + item + "/" + name
}
