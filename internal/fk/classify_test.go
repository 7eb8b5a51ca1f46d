package fk

import "testing"

func TestClassifyScalar(t *testing.T) {
	tests := []struct {
		field string
		value any
	}{
		{"name", "Backend"},
		{"id", "u1"},
		{"_original_id", "c1"},
		{"assigned_to_id", 42},  // numeric value disqualifies it
		{"assigned_to_id", nil}, // null disqualifies it
		{"assigned_to_id", ""},  // empty string disqualifies it
	}
	for _, tt := range tests {
		got := Classify(tt.field, tt.value)
		if got.Kind != Scalar {
			t.Errorf("Classify(%q, %v) = %v, want Scalar", tt.field, tt.value, got.Kind)
		}
	}
}

func TestClassifySelfFK(t *testing.T) {
	for _, field := range []string{"parent_id", "parent_uuid"} {
		got := Classify(field, "p1")
		if got.Kind != SelfFK {
			t.Errorf("Classify(%q, ...) = %v, want SelfFK", field, got.Kind)
		}
	}
}

func TestClassifyExternalFK(t *testing.T) {
	tests := []struct {
		field        string
		wantResource string
	}{
		{"assigned_to_id", "assigned_tos"},
		{"project_id", "projects"},
		{"role_uuid", "roles"},
		{"note_id", "notes"},
		{"status_id", "status"},
	}
	for _, tt := range tests {
		got := Classify(tt.field, "u1")
		if got.Kind != ExternalFK {
			t.Errorf("Classify(%q, ...) = %v, want ExternalFK", tt.field, got.Kind)
		}
		if got.ResourceType != tt.wantResource {
			t.Errorf("Classify(%q, ...).ResourceType = %q, want %q", tt.field, got.ResourceType, tt.wantResource)
		}
	}
}

func TestClassifyIsPure(t *testing.T) {
	a := Classify("project_id", "p1")
	b := Classify("project_id", "p1")
	if a != b {
		t.Errorf("Classify is not idempotent: %v != %v", a, b)
	}
}

func TestPluralize(t *testing.T) {
	tests := map[string]string{
		"project": "projects",
		"role":    "roles",
		"status":  "status", // already ends in "s": left unchanged
		"users":   "users",
	}
	for in, want := range tests {
		if got := Pluralize(in); got != want {
			t.Errorf("Pluralize(%q) = %q, want %q", in, got, want)
		}
	}
}
