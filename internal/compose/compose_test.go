package compose_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/n9te9/fedgate/internal/compose"
	"github.com/n9te9/fedgate/internal/model"
)

func TestCompose_MergesEntityAcrossSubgraphs(t *testing.T) {
	users := compose.Subgraph{Name: "users", SDL: `
		type User @key(fields: "id") {
			id: ID!
			name: String!
		}
		type Query {
			me: User
		}
	`}
	products := compose.Subgraph{Name: "products", SDL: `
		type Product @key(fields: "id") {
			id: ID!
			name: String!
		}
		extend type User @key(fields: "id") {
			id: ID! @external
			products: [Product]
		}
		type Query {
			product(id: ID!): Product
		}
	`}

	schema, warnings, err := compose.Compose([]compose.Subgraph{users, products})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	userType, ok := schema.Lookup("User")
	if !ok {
		t.Fatalf("User type missing from composed schema")
	}
	if _, ok := userType.Field("products"); !ok {
		t.Fatalf("User.products not merged in from the products subgraph")
	}

	queryType, ok := schema.Lookup("Query")
	if !ok {
		t.Fatalf("Query type missing")
	}
	if _, ok := queryType.Field("me"); !ok {
		t.Fatalf("Query.me missing")
	}
	if _, ok := queryType.Field("product"); !ok {
		t.Fatalf("Query.product missing")
	}
}

func TestCompose_OwnershipConflictOnNonShareableType(t *testing.T) {
	a := compose.Subgraph{Name: "a", SDL: `
		type Widget {
			id: ID!
		}
		type Query {
			widgetA: Widget
		}
	`}
	b := compose.Subgraph{Name: "b", SDL: `
		type Widget {
			id: ID!
		}
		type Query {
			widgetB: Widget
		}
	`}

	_, _, err := compose.Compose([]compose.Subgraph{a, b})
	if err == nil {
		t.Fatalf("expected an ownership conflict error, got nil")
	}
	ce, ok := err.(*compose.Error)
	if !ok {
		t.Fatalf("expected *compose.Error, got %T: %v", err, err)
	}
	if ce.Code != compose.CodeValueTypeOwnershipConflicted {
		t.Fatalf("expected %s, got %s", compose.CodeValueTypeOwnershipConflicted, ce.Code)
	}
}

func TestCompose_DeterministicAcrossSubgraphOrder(t *testing.T) {
	a := compose.Subgraph{Name: "a", SDL: `
		type Widget @key(fields: "id") {
			id: ID!
			name: String!
		}
		type Query {
			widget: Widget
		}
	`}
	b := compose.Subgraph{Name: "b", SDL: `
		extend type Widget @key(fields: "id") {
			id: ID! @external
			price: Int!
		}
	`}

	first, _, err := compose.Compose([]compose.Subgraph{a, b})
	if err != nil {
		t.Fatalf("Compose(a, b) failed: %v", err)
	}
	second, _, err := compose.Compose([]compose.Subgraph{b, a})
	if err != nil {
		t.Fatalf("Compose(b, a) failed: %v", err)
	}

	if diff := cmp.Diff(first.Services, second.Services); diff != "" {
		t.Fatalf("Services order differs regardless of input order (-Compose(a,b) +Compose(b,a)):\n%s", diff)
	}
	if diff := cmp.Diff(typeNames(first), typeNames(second)); diff != "" {
		t.Fatalf("type order differs regardless of input order:\n%s", diff)
	}
}

func typeNames(s *model.ComposedSchema) []string {
	var out []string
	for _, t := range s.Types() {
		out = append(out, t.Name)
	}
	return out
}

func wantComposeError(t *testing.T, subgraphs []compose.Subgraph, code compose.Code) {
	t.Helper()
	_, _, err := compose.Compose(subgraphs)
	if err == nil {
		t.Fatalf("expected a %s error, got nil", code)
	}
	ce, ok := err.(*compose.Error)
	if !ok {
		t.Fatalf("expected *compose.Error, got %T: %v", err, err)
	}
	if ce.Code != code {
		t.Fatalf("expected %s, got %s (%v)", code, ce.Code, ce)
	}
}

func TestCompose_TypeKindConflict(t *testing.T) {
	svc1 := compose.Subgraph{Name: "svc1", SDL: `
		type Status {
			id: ID!
		}
		type Query {
			status: Status
		}
	`}
	svc2 := compose.Subgraph{Name: "svc2", SDL: `
		enum Status {
			ACTIVE
			INACTIVE
		}
	`}
	wantComposeError(t, []compose.Subgraph{svc1, svc2}, compose.CodeTypeKindConflicted)
}

func TestCompose_EnumDefinitionConflict(t *testing.T) {
	svc1 := compose.Subgraph{Name: "svc1", SDL: `
		enum Color {
			RED
			GREEN
		}
		type Query {
			color: Color
		}
	`}
	svc2 := compose.Subgraph{Name: "svc2", SDL: `
		enum Color {
			BLUE
			YELLOW
		}
	`}
	wantComposeError(t, []compose.Subgraph{svc1, svc2}, compose.CodeDefinitionConflicted)
}

func TestCompose_EntityFieldConflictWithoutShareable(t *testing.T) {
	svc1 := compose.Subgraph{Name: "svc1", SDL: `
		type Widget @key(fields: "id") {
			id: ID!
			name: String!
		}
		type Query {
			widget: Widget
		}
	`}
	svc2 := compose.Subgraph{Name: "svc2", SDL: `
		type Widget @key(fields: "id") {
			id: ID!
			name: String!
		}
	`}
	wantComposeError(t, []compose.Subgraph{svc1, svc2}, compose.CodeFieldConflicted)
}

func TestCompose_EntityFieldTypeConflict(t *testing.T) {
	svc1 := compose.Subgraph{Name: "svc1", SDL: `
		type Widget @key(fields: "id") {
			id: ID!
			name: String!
		}
		type Query {
			widget: Widget
		}
	`}
	svc2 := compose.Subgraph{Name: "svc2", SDL: `
		type Widget @key(fields: "id") {
			id: ID!
			name: Int!
		}
	`}
	wantComposeError(t, []compose.Subgraph{svc1, svc2}, compose.CodeFieldTypeConflicted)
}

func TestCompose_NonShareableExternalFieldReferenced(t *testing.T) {
	svc1 := compose.Subgraph{Name: "svc1", SDL: `
		type Widget @key(fields: "id") {
			id: ID!
			name: String!
		}
		type Query {
			widget: Widget
		}
	`}
	svc2 := compose.Subgraph{Name: "svc2", SDL: `
		extend type Widget @key(fields: "id") {
			id: ID! @external
			name: String! @external
		}
	`}
	wantComposeError(t, []compose.Subgraph{svc1, svc2}, compose.CodeNonShareableFieldReferenced)
}

func TestCompose_IncompatibleArgumentTypes(t *testing.T) {
	svc1 := compose.Subgraph{Name: "svc1", SDL: `
		type Widget @key(fields: "id") {
			id: ID!
			greet(x: Int!): String!
		}
		type Query {
			widget: Widget
		}
	`}
	svc2 := compose.Subgraph{Name: "svc2", SDL: `
		type Widget @key(fields: "id") {
			id: ID!
			greet(x: String!): String!
		}
	`}
	wantComposeError(t, []compose.Subgraph{svc1, svc2}, compose.CodeIncompatibleArgumentTypes)
}

func TestCompose_MissingRequiredArgument(t *testing.T) {
	svc1 := compose.Subgraph{Name: "svc1", SDL: `
		type Widget @key(fields: "id") {
			id: ID!
			greet(x: Int!): String!
		}
		type Query {
			widget: Widget
		}
	`}
	svc2 := compose.Subgraph{Name: "svc2", SDL: `
		type Widget @key(fields: "id") {
			id: ID!
			greet: String!
		}
	`}
	wantComposeError(t, []compose.Subgraph{svc1, svc2}, compose.CodeMissingRequiredArgument)
}

func TestCompose_IncompatibleFieldArguments(t *testing.T) {
	svc1 := compose.Subgraph{Name: "svc1", SDL: `
		type Widget @key(fields: "id") {
			id: ID!
			greet: String!
		}
		type Query {
			widget: Widget
		}
	`}
	svc2 := compose.Subgraph{Name: "svc2", SDL: `
		type Widget @key(fields: "id") {
			id: ID!
			greet(y: Int!): String!
		}
	`}
	wantComposeError(t, []compose.Subgraph{svc1, svc2}, compose.CodeIncompatibleFieldArguments)
}

func TestCompose_KeyFieldsMissing(t *testing.T) {
	svc1 := compose.Subgraph{Name: "svc1", SDL: `
		type Widget @key(fields: "id") {
			name: String!
		}
		type Query {
			widget: Widget
		}
	`}
	wantComposeError(t, []compose.Subgraph{svc1}, compose.CodeKeyFieldsMissing)
}

func TestCompose_IncompleteEntityReference(t *testing.T) {
	svc1 := compose.Subgraph{Name: "svc1", SDL: `
		type Widget @key(fields: "id") {
			id: ID!
			name: String!
			price: Int!
		}
		type Query {
			widget: Widget
		}
	`}
	svc2 := compose.Subgraph{Name: "svc2", SDL: `
		type Widget @key(fields: "id") {
			id: ID!
			name: String!
		}
	`}
	wantComposeError(t, []compose.Subgraph{svc1, svc2}, compose.CodeIncompleteEntityReference)
}

func TestCompose_UnionDefinitionConflict(t *testing.T) {
	svc1 := compose.Subgraph{Name: "svc1", SDL: `
		type Cat { id: ID! }
		type Dog { id: ID! }
		union Pet = Cat | Dog
		type Query {
			pet: Pet
		}
	`}
	svc2 := compose.Subgraph{Name: "svc2", SDL: `
		type Fish { id: ID! }
		union Pet = Cat | Fish
	`}
	wantComposeError(t, []compose.Subgraph{svc1, svc2}, compose.CodeDefinitionConflicted)
}

func TestCompose_InputObjectDefinitionConflict(t *testing.T) {
	svc1 := compose.Subgraph{Name: "svc1", SDL: `
		input Filter {
			name: String
		}
		type Query {
			widgets(filter: Filter): String
		}
	`}
	svc2 := compose.Subgraph{Name: "svc2", SDL: `
		input Filter {
			price: Int
		}
	`}
	wantComposeError(t, []compose.Subgraph{svc1, svc2}, compose.CodeDefinitionConflicted)
}

func TestCompose_InputObjectTypeKindConflict(t *testing.T) {
	svc1 := compose.Subgraph{Name: "svc1", SDL: `
		type Filter {
			id: ID!
		}
		type Query {
			f: Filter
		}
	`}
	svc2 := compose.Subgraph{Name: "svc2", SDL: `
		input Filter {
			name: String
		}
	`}
	wantComposeError(t, []compose.Subgraph{svc1, svc2}, compose.CodeTypeKindConflicted)
}
