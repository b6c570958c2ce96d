package core

import (
	"errors"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 2000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

// TestParseRunID tests run ID parsing
func TestParseRunID(t *testing.T) {
	tests := []struct {
		input    string
		expected RunID
		hasError bool
	}{
		{"run-1", RunID("run-1"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, tt := range tests {
		got, err := ParseRunID(tt.input)
		if tt.hasError != (err != nil) {
			t.Errorf("ParseRunID(%q) error = %v, wantErr %v", tt.input, err, tt.hasError)
		}
		if got != tt.expected {
			t.Errorf("ParseRunID(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestVariableKeys(t *testing.T) {
	keys := VariableKeys([]string{"Neighborhood", "House_Style"})
	if len(keys) != 2 || keys[0] != "Neighborhood" || keys[1].String() != "House_Style" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestColumnNotFoundError(t *testing.T) {
	err := NewColumnNotFoundError("SalePrice")
	if !IsNotFoundError(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
	if !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("expected ErrColumnNotFound, got %v", err)
	}
	if IsValidationError(err) {
		t.Errorf("not-found error should not be a validation error")
	}
}
