package assignment

import (
	"context"

	"github.com/xraph/granary/id"
)

// Store defines persistence operations for role assignments. Assignments
// are hard-deleted.
type Store interface {
	// CreateAssignment persists a new assignment. Assigning the same role to
	// the same principal twice returns store.ErrDuplicate.
	CreateAssignment(ctx context.Context, a *Assignment) error

	// GetAssignment retrieves an assignment by ID.
	GetAssignment(ctx context.Context, assID id.AssignmentID) (*Assignment, error)

	// DeleteAssignment removes an assignment.
	DeleteAssignment(ctx context.Context, assID id.AssignmentID) error

	// ListAssignments returns assignments matching the filter.
	ListAssignments(ctx context.Context, filter *ListFilter) ([]*Assignment, error)
}
