package model_test

import (
	"testing"

	"github.com/n9te9/fedgate/internal/model"
)

func TestParseFieldSet_FlatAndNested(t *testing.T) {
	set, err := model.ParseFieldSet(`id address { street city }`)
	if err != nil {
		t.Fatalf("ParseFieldSet failed: %v", err)
	}

	names := set.Names()
	if len(names) != 2 || names[0] != "id" || names[1] != "address" {
		t.Fatalf("expected top-level names [id address], got %v", names)
	}

	addr, ok := set.Lookup("address")
	if !ok || addr.Nested == nil {
		t.Fatalf("expected address to carry a nested selection")
	}
	if nestedNames := addr.Nested.Names(); len(nestedNames) != 2 || nestedNames[0] != "street" || nestedNames[1] != "city" {
		t.Fatalf("expected nested names [street city], got %v", nestedNames)
	}
}

func TestParseFieldSet_UnterminatedNestedSelectionErrors(t *testing.T) {
	if _, err := model.ParseFieldSet(`id address { street`); err == nil {
		t.Fatalf("expected an error for an unterminated nested selection")
	}
}

func TestOrderedSet_PreservesInsertionOrderAndDedupes(t *testing.T) {
	s := model.NewOrderedSet()
	for _, name := range []string{"b", "a", "b", "c"} {
		s.Add(name)
	}

	if got := s.Items(); len(got) != 3 || got[0] != "b" || got[1] != "a" || got[2] != "c" {
		t.Fatalf("expected insertion order [b a c] with duplicates dropped, got %v", got)
	}
	if s.Len() != 3 {
		t.Fatalf("expected Len()=3, got %d", s.Len())
	}
	if !s.Has("a") || s.Has("z") {
		t.Fatalf("Has() behaved unexpectedly")
	}
}
