package id_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/xraph/granary/id"
)

var kinds = []struct {
	name    string
	newFn   func() id.ID
	parseFn func(string) (id.ID, error)
	prefix  string
}{
	{"Grain", id.NewGrainID, id.ParseGrainID, "grain_"},
	{"SecurableItem", id.NewSecurableItemID, id.ParseSecurableItemID, "sitem_"},
	{"Role", id.NewRoleID, id.ParseRoleID, "role_"},
	{"Permission", id.NewPermissionID, id.ParsePermissionID, "perm_"},
	{"Group", id.NewGroupID, id.ParseGroupID, "grp_"},
	{"Member", id.NewMemberID, id.ParseMemberID, "gmem_"},
	{"Assignment", id.NewAssignmentID, id.ParseAssignmentID, "asgn_"},
}

func TestConstructorsAndParsers(t *testing.T) {
	for _, k := range kinds {
		t.Run(k.name, func(t *testing.T) {
			original := k.newFn()
			if !strings.HasPrefix(original.String(), k.prefix) {
				t.Fatalf("expected prefix %q, got %q", k.prefix, original.String())
			}
			parsed, err := k.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed, original)
			}
		})
	}
}

func TestParserRejectsOtherKinds(t *testing.T) {
	for i, k := range kinds {
		other := kinds[(i+1)%len(kinds)]
		t.Run(k.name, func(t *testing.T) {
			if _, err := k.parseFn(other.newFn().String()); err == nil {
				t.Errorf("expected %s parser to reject a %s id", k.name, other.name)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero ID should be nil")
	}
	if i.String() != "" || i.Prefix() != "" {
		t.Errorf("expected empty string and prefix, got %q %q", i.String(), i.Prefix())
	}
}

func TestTextRoundTrip(t *testing.T) {
	original := id.NewGroupID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var restored id.ID
	if err := restored.UnmarshalText(data); err != nil {
		t.Fatal(err)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored, original)
	}

	var empty id.ID
	if err := empty.UnmarshalText(nil); err != nil || !empty.IsNil() {
		t.Errorf("expected nil ID from empty text, got %q (%v)", empty, err)
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewPermissionID()
	val, err := original.Value()
	if err != nil {
		t.Fatal(err)
	}
	var scanned id.ID
	if err := scanned.Scan(val); err != nil {
		t.Fatal(err)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned, original)
	}

	val, err = id.Nil.Value()
	if err != nil || val != nil {
		t.Errorf("expected NULL for nil ID, got %v (%v)", val, err)
	}
	if err := scanned.Scan(nil); err != nil || !scanned.IsNil() {
		t.Errorf("expected nil after scanning NULL, got %q (%v)", scanned, err)
	}
	if err := scanned.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestCompareSortsByString(t *testing.T) {
	ids := []id.ID{id.NewRoleID(), id.NewRoleID(), id.NewRoleID()}
	slices.Reverse(ids)
	slices.SortFunc(ids, id.Compare)
	for i := 1; i < len(ids); i++ {
		if ids[i-1].String() > ids[i].String() {
			t.Fatalf("not sorted at %d: %q > %q", i, ids[i-1], ids[i])
		}
	}
}
