package folder

import (
	"strings"
	"testing"

	"loom-engine/internal/domain/shared"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		ownerID  string
		fname    string
		parentID *string
		wantErr  bool
	}{
		{"valid root folder", "user-1", "Work", nil, false},
		{"valid child folder", "user-1", "Notes", ptr("parent-1"), false},
		{"empty owner", "", "Work", nil, true},
		{"empty name", "user-1", "", nil, true},
		{"name too long", "user-1", strings.Repeat("x", MaxNameLength+1), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.ownerID, tt.fname, tt.parentID)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !shared.IsProvisional(f.ID) {
				t.Errorf("new folder id %q is not provisional", f.ID)
			}
			if err := f.ValidateInvariants(); err != nil {
				t.Errorf("new folder violates invariants: %v", err)
			}
		})
	}
}

func TestPatch_ApplyDoesNotMutateOriginal(t *testing.T) {
	f, _ := New("user-1", "Before", ptr("p1"))
	snapshot := f.Clone()

	name := "After"
	next := Patch{Name: &name, MoveToRoot: true}.Apply(f)

	if next.Name != "After" || next.ParentID != nil {
		t.Errorf("patch not applied: %+v", next)
	}
	if f.Name != snapshot.Name {
		t.Error("Apply mutated the original name")
	}
	if f.ParentID == nil || *f.ParentID != *snapshot.ParentID {
		t.Error("Apply mutated the original parent")
	}
}

func TestPatch_Validate(t *testing.T) {
	empty := ""
	name := "ok"
	tests := []struct {
		name    string
		patch   Patch
		wantErr bool
	}{
		{"rename", Patch{Name: &name}, false},
		{"empty name", Patch{Name: &empty}, true},
		{"parent and root at once", Patch{ParentID: ptr("x"), MoveToRoot: true}, true},
		{"move to root", Patch{MoveToRoot: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.patch.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateInvariants_SelfParent(t *testing.T) {
	f, _ := New("user-1", "Work", nil)
	f.ParentID = &f.ID
	if err := f.ValidateInvariants(); err == nil {
		t.Error("self-parented folder passed invariant check")
	}
}
