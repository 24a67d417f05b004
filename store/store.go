// Package store defines the composite persistence interface. Each entity
// package (grain, securableitem, role, permission, group, assignment)
// declares its own store; a backend implements all of them.
//
// Backends: memory, postgres, sqlite and mongo.
package store

import (
	"context"
	"errors"

	"github.com/xraph/granary/assignment"
	"github.com/xraph/granary/grain"
	"github.com/xraph/granary/group"
	"github.com/xraph/granary/permission"
	"github.com/xraph/granary/role"
	"github.com/xraph/granary/securableitem"
)

var (
	// ErrNotFound is wrapped by every backend when a lookup matches no
	// active record.
	ErrNotFound = errors.New("granary store: not found")

	// ErrDuplicate is wrapped by every backend when a write violates a
	// uniqueness constraint.
	ErrDuplicate = errors.New("granary store: already exists")
)

// Store is the composite persistence interface.
type Store interface {
	grain.Store
	securableitem.Store
	role.Store
	permission.Store
	group.Store
	assignment.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close() error
}
