package validate_test

import (
	"testing"

	"github.com/n9te9/fedgate/internal/compose"
	"github.com/n9te9/fedgate/internal/validate"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
)

func schemaFor(t *testing.T) *compose.Subgraph {
	t.Helper()
	return &compose.Subgraph{Name: "products", SDL: `
		type Product @key(fields: "id") {
			id: ID!
			name: String!
			price: Float!
		}
		type Query {
			product(id: ID!): Product
		}
	`}
}

func TestDocument_UnknownFieldIsRejected(t *testing.T) {
	sg := schemaFor(t)
	schema, _, err := compose.Compose([]compose.Subgraph{*sg})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	l := lexer.New(`query { product(id: "1") { id weight } }`)
	p := parser.New(l)
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse error: %v", errs)
	}

	errs := validate.Document(schema, doc)
	if len(errs) == 0 {
		t.Fatalf("expected a FieldsOnCorrectType violation for Product.weight, got none")
	}
}

func TestDocument_UndefinedVariableIsRejected(t *testing.T) {
	sg := schemaFor(t)
	schema, _, err := compose.Compose([]compose.Subgraph{*sg})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	l := lexer.New(`query { product(id: $missing) { id } }`)
	p := parser.New(l)
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse error: %v", errs)
	}

	errs := validate.Document(schema, doc)
	if len(errs) == 0 {
		t.Fatalf("expected a NoUndefinedVariables violation, got none")
	}
}

func TestDocument_ValidQueryHasNoErrors(t *testing.T) {
	sg := schemaFor(t)
	schema, _, err := compose.Compose([]compose.Subgraph{*sg})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	l := lexer.New(`query($id: ID!) { product(id: $id) { id name price } }`)
	p := parser.New(l)
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse error: %v", errs)
	}

	errs := validate.Document(schema, doc)
	if len(errs) != 0 {
		t.Fatalf("expected no validation errors, got: %v", errs)
	}
}
