// Package id defines the TypeID-based identifiers used by every granary
// entity.
//
// An ID renders as "prefix_suffix" where the prefix names the entity kind
// (grain, sitem, role, perm, grp, gmem, asgn). Suffixes are UUIDv7 based, so
// IDs generated by one process sort by creation time.
package id

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity kind encoded in an ID.
type Prefix string

// Entity prefixes.
const (
	PrefixGrain         Prefix = "grain"
	PrefixSecurableItem Prefix = "sitem"
	PrefixRole          Prefix = "role"
	PrefixPermission    Prefix = "perm"
	PrefixGroup         Prefix = "grp"
	PrefixMember        Prefix = "gmem"
	PrefixAssignment    Prefix = "asgn"
)

// ID is a prefix-qualified, globally unique identifier.
//
//nolint:recvcheck // value receivers for reads, pointer receivers for decoding.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero ID.
var Nil ID

// New generates an ID with the given prefix. An invalid prefix is a
// programming error and panics.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid, valid: true}
}

// Parse decodes s without checking its prefix.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix decodes s and requires the expected prefix.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}
	return parsed, nil
}

// MustParse is Parse that panics. Use for fixed IDs in tests and fixtures.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}
	return parsed
}

// Kind aliases. They document intent at call sites; all share one type.
type (
	GrainID         = ID
	SecurableItemID = ID
	RoleID          = ID
	PermissionID    = ID
	GroupID         = ID
	MemberID        = ID
	AssignmentID    = ID
)

func NewGrainID() ID         { return New(PrefixGrain) }
func NewSecurableItemID() ID { return New(PrefixSecurableItem) }
func NewRoleID() ID          { return New(PrefixRole) }
func NewPermissionID() ID    { return New(PrefixPermission) }
func NewGroupID() ID         { return New(PrefixGroup) }
func NewMemberID() ID        { return New(PrefixMember) }
func NewAssignmentID() ID    { return New(PrefixAssignment) }

func ParseGrainID(s string) (ID, error)         { return ParseWithPrefix(s, PrefixGrain) }
func ParseSecurableItemID(s string) (ID, error) { return ParseWithPrefix(s, PrefixSecurableItem) }
func ParseRoleID(s string) (ID, error)          { return ParseWithPrefix(s, PrefixRole) }
func ParsePermissionID(s string) (ID, error)    { return ParseWithPrefix(s, PrefixPermission) }
func ParseGroupID(s string) (ID, error)         { return ParseWithPrefix(s, PrefixGroup) }
func ParseMemberID(s string) (ID, error)        { return ParseWithPrefix(s, PrefixMember) }
func ParseAssignmentID(s string) (ID, error)    { return ParseWithPrefix(s, PrefixAssignment) }

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

// Prefix returns the entity prefix, or "" for Nil.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

// IsNil reports whether i is the zero ID.
func (i ID) IsNil() bool { return !i.valid }

// Compare orders IDs by their string form. It is suitable for slices.SortFunc.
func Compare(a, b ID) int { return strings.Compare(a.String(), b.String()) }

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}
	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Value implements driver.Valuer. Nil is stored as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // NULL column
	}
	return i.inner.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
