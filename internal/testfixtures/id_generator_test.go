package testfixtures

import "testing"

func TestIDGeneratorSequence(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("")
	if peek := gen.Peek(); peek != "student-1" {
		t.Fatalf("expected student-1 from Peek, got %q", peek)
	}
	first, second := gen.Next(), gen.Next()
	if first != "student-1" || second != "student-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}

	gen.Reset()
	if next := gen.NextFunc()(); next != "student-1" {
		t.Fatalf("expected student-1 after reset, got %q", next)
	}
}
