package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the granary store (PostgreSQL).
var Migrations = migrate.NewGroup("granary")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_grains",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS granary_grains (
    id                    TEXT PRIMARY KEY,
    tenant_id             TEXT NOT NULL,
    name                  TEXT NOT NULL,
    is_shared             BOOLEAN NOT NULL DEFAULT FALSE,
    required_write_scopes JSONB NOT NULL DEFAULT '[]',
    status                TEXT NOT NULL DEFAULT 'active',
    created_by            TEXT NOT NULL DEFAULT '',
    modified_by           TEXT NOT NULL DEFAULT '',
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_granary_grains_name
    ON granary_grains (tenant_id, name) WHERE status = 'active';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS granary_grains`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_securable_items",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS granary_securable_items (
    id           TEXT PRIMARY KEY,
    tenant_id    TEXT NOT NULL,
    grain        TEXT NOT NULL,
    name         TEXT NOT NULL,
    client_owner TEXT NOT NULL DEFAULT '',
    parent_id    TEXT,
    status       TEXT NOT NULL DEFAULT 'active',
    created_by   TEXT NOT NULL DEFAULT '',
    modified_by  TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_granary_items_name
    ON granary_securable_items (tenant_id, grain, name) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_granary_items_parent ON granary_securable_items (parent_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS granary_securable_items`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_roles",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS granary_roles (
    id             TEXT PRIMARY KEY,
    tenant_id      TEXT NOT NULL,
    grain          TEXT NOT NULL,
    securable_item TEXT NOT NULL,
    name           TEXT NOT NULL,
    display_name   TEXT NOT NULL DEFAULT '',
    description    TEXT NOT NULL DEFAULT '',
    parent_id      TEXT,
    status         TEXT NOT NULL DEFAULT 'active',
    created_by     TEXT NOT NULL DEFAULT '',
    modified_by    TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_granary_roles_name
    ON granary_roles (tenant_id, grain, securable_item, name) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_granary_roles_parent ON granary_roles (parent_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS granary_roles`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_permissions",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS granary_permissions (
    id             TEXT PRIMARY KEY,
    tenant_id      TEXT NOT NULL,
    grain          TEXT NOT NULL,
    securable_item TEXT NOT NULL,
    name           TEXT NOT NULL,
    action         TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'active',
    created_by     TEXT NOT NULL DEFAULT '',
    modified_by    TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_granary_permissions_key
    ON granary_permissions (tenant_id, grain, securable_item, name, action) WHERE status = 'active';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS granary_permissions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_role_permissions",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS granary_role_permissions (
    role_id       TEXT NOT NULL REFERENCES granary_roles(id) ON DELETE CASCADE,
    permission_id TEXT NOT NULL REFERENCES granary_permissions(id) ON DELETE CASCADE,
    PRIMARY KEY (role_id, permission_id)
);

CREATE INDEX IF NOT EXISTS idx_granary_role_permissions_perm ON granary_role_permissions (permission_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS granary_role_permissions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_groups",
			Version: "20250101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS granary_groups (
    id           TEXT PRIMARY KEY,
    tenant_id    TEXT NOT NULL,
    name         TEXT NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    description  TEXT NOT NULL DEFAULT '',
    type         TEXT NOT NULL DEFAULT 'custom',
    source       TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL DEFAULT 'active',
    created_by   TEXT NOT NULL DEFAULT '',
    modified_by  TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_granary_groups_name
    ON granary_groups (tenant_id, name) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS granary_group_members (
    id          TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    group_id    TEXT NOT NULL REFERENCES granary_groups(id) ON DELETE CASCADE,
    member_kind TEXT NOT NULL,
    member_id   TEXT NOT NULL,
    created_by  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    UNIQUE(group_id, member_kind, member_id)
);

CREATE INDEX IF NOT EXISTS idx_granary_group_members_member
    ON granary_group_members (member_kind, member_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS granary_group_members;
DROP TABLE IF EXISTS granary_groups;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_assignments",
			Version: "20250101000007",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS granary_assignments (
    id             TEXT PRIMARY KEY,
    tenant_id      TEXT NOT NULL,
    role_id        TEXT NOT NULL REFERENCES granary_roles(id) ON DELETE CASCADE,
    principal_kind TEXT NOT NULL,
    principal_id   TEXT NOT NULL,
    created_by     TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    UNIQUE(role_id, principal_kind, principal_id)
);

CREATE INDEX IF NOT EXISTS idx_granary_assignments_principal
    ON granary_assignments (tenant_id, principal_kind, principal_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS granary_assignments`)
				return err
			},
		},
	)
}
