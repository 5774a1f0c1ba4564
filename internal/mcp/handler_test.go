package mcp

import (
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		val      int
		min      int
		max      int
		expected int
	}{
		{"value in range", 5, 1, 25, 5},
		{"value below min", -3, 1, 25, 1},
		{"value above max", 40, 1, 25, 25},
		{"value equals min", 1, 1, 25, 1},
		{"value equals max", 25, 1, 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clamp(tt.val, tt.min, tt.max)
			if got != tt.expected {
				t.Errorf("clamp(%d, %d, %d) = %d, want %d", tt.val, tt.min, tt.max, got, tt.expected)
			}
		})
	}
}

func TestBoolPtr(t *testing.T) {
	truePtr := boolPtr(true)
	if truePtr == nil {
		t.Fatal("boolPtr(true) returned nil")
	}
	if *truePtr != true {
		t.Errorf("*boolPtr(true) = %v, want true", *truePtr)
	}

	falsePtr := boolPtr(false)
	if falsePtr == nil {
		t.Fatal("boolPtr(false) returned nil")
	}
	if *falsePtr != false {
		t.Errorf("*boolPtr(false) = %v, want false", *falsePtr)
	}

	if truePtr == falsePtr {
		t.Error("boolPtr(true) and boolPtr(false) should return distinct pointers")
	}
}

func TestReadOnlyAnnotation(t *testing.T) {
	ann := readOnlyAnnotation()

	if ann.ReadOnlyHint == nil {
		t.Fatal("ReadOnlyHint should not be nil for readOnlyAnnotation")
	}
	if *ann.ReadOnlyHint != true {
		t.Errorf("ReadOnlyHint = %v, want true", *ann.ReadOnlyHint)
	}
}

func TestSuccessJSON(t *testing.T) {
	result, err := successJSON(map[string]int{"count": 3})
	if err != nil {
		t.Fatalf("successJSON returned error: %v", err)
	}
	if result == nil {
		t.Fatal("successJSON returned nil result")
	}
	if result.IsError {
		t.Error("successJSON result should not be marked as an error")
	}
}

func TestToolError(t *testing.T) {
	result, err := toolError("source %q not found", "sales")
	if err != nil {
		t.Fatalf("toolError returned protocol error: %v", err)
	}
	if result == nil {
		t.Fatal("toolError returned nil result")
	}
	if !result.IsError {
		t.Error("toolError result should be marked as an error")
	}
}
