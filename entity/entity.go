// Package entity holds the lifecycle status shared by soft-deletable
// granary entities.
package entity

// Status is the lifecycle tag stored on grains, securable items, roles,
// permissions and groups. Deleted rows stay in storage but are excluded
// from every resolver-facing query.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// IsActive reports whether s is active. An empty status counts as active so
// that records written before the column existed still resolve.
func (s Status) IsActive() bool { return s == "" || s == StatusActive }

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return s == StatusActive || s == StatusDeleted }
