package granary

import "github.com/xraph/granary/id"

// ID is the identifier type shared by all granary entities.
type ID = id.ID
