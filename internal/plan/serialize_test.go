package plan_test

import (
	"encoding/json"
	"testing"

	"github.com/n9te9/fedgate/internal/plan"
)

func TestSequence_MarshalJSON_CarriesTypeDiscriminator(t *testing.T) {
	seq := &plan.Sequence{Nodes: []plan.Node{
		&plan.Fetch{Service: "users", Query: "query { me { id } }"},
		&plan.Flatten{
			Path:    []plan.PathSegment{{Name: "me"}},
			Prefix:  1,
			Service: "reviews",
			Query:   "query($representations:[_Any!]!) { _entities(representations: $representations) { ... on User { reviews { text } } } }",
		},
	}}

	b, err := json.Marshal(seq)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded["type"] != "sequence" {
		t.Fatalf("expected top-level type %q, got %v", "sequence", decoded["type"])
	}
	nodes, ok := decoded["nodes"].([]any)
	if !ok || len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %v", decoded["nodes"])
	}
	first := nodes[0].(map[string]any)
	if first["type"] != "fetch" || first["service"] != "users" {
		t.Fatalf("unexpected first node: %v", first)
	}
	second := nodes[1].(map[string]any)
	if second["type"] != "flatten" || second["service"] != "reviews" || second["prefix"].(float64) != 1 {
		t.Fatalf("unexpected second node: %v", second)
	}
}

func TestFetch_MarshalJSON_NormalizesNilVariablesToEmptyObject(t *testing.T) {
	f := &plan.Fetch{Service: "products", Query: "query { products { id } }"}

	b, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	vars, ok := decoded["variables"].(map[string]any)
	if !ok || len(vars) != 0 {
		t.Fatalf("expected variables to normalize to {}, got %v", decoded["variables"])
	}
}
