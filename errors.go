package granary

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is matched by resolution errors caused by bad input.
	ErrInvalidArgument = errors.New("granary: invalid argument")

	// ErrStoreUnavailable is matched by resolution errors caused by a
	// failing or timed-out store.
	ErrStoreUnavailable = errors.New("granary: store unavailable")

	// ErrCancelled is matched by resolution errors caused by caller
	// cancellation.
	ErrCancelled = errors.New("granary: resolution cancelled")

	// ErrAccessDenied is returned by Enforce when a permission is not in effect.
	ErrAccessDenied = errors.New("granary: access denied")

	// ErrCyclicGroupMembership is returned when adding a member would make
	// a group contain itself.
	ErrCyclicGroupMembership = errors.New("granary: cyclic group membership")

	// ErrCyclicRoleInheritance is returned when a role parent would create a cycle.
	ErrCyclicRoleInheritance = errors.New("granary: cyclic role inheritance")

	// ErrRoleScopeMismatch is returned when a permission or parent outside
	// the role's grain is linked to it.
	ErrRoleScopeMismatch = errors.New("granary: role scope mismatch")

	// ErrGrainNotWritable is returned when the caller lacks a write scope
	// for a shared grain.
	ErrGrainNotWritable = errors.New("granary: grain not writable by caller")

	// ErrNotOwner is returned when a client mutates a securable item it
	// does not own.
	ErrNotOwner = errors.New("granary: securable item owned by another client")
)

// ErrorKind classifies a resolution failure.
type ErrorKind int

const (
	KindInvalidArgument ErrorKind = iota + 1
	KindStoreUnavailable
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindStoreUnavailable:
		return ErrStoreUnavailable
	case KindCancelled:
		return ErrCancelled
	default:
		return nil
	}
}

// ResolutionError is returned by Resolve and ExpandGroups. It matches its
// kind's sentinel with errors.Is and unwraps to the underlying cause.
type ResolutionError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("granary: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("granary: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *ResolutionError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of a resolution error, or 0 when err is not one.
func KindOf(err error) ErrorKind {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}
