package main

import (
	"encoding/json"
	"log"
	"os"

	"github.com/n9te9/fedgate/internal/compose"
	"github.com/n9te9/fedgate/internal/plan"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
)

var userSDL = `type User @key(fields: "id") {
  id: ID!
  name: String!
  email: String!
}

type Query {
  me: User
  user(id: ID!): User
}`

var productSDL = `type Product @key(fields: "id") {
  id: ID!
  name: String!
  price: Int!
  createdBy: User @provides(fields: "id")
}

extend type User @key(fields: "id") {
  id: ID! @external
  products: [Product]
}

type Query {
  product(id: ID!): Product
}`

var exampleQuery = `query {
  product(id: "1") {
    name
    price
    createdBy {
      name
      products {
        name
      }
    }
  }
}`

// This is a worked example of the compose+plan pipeline end to end: two
// subgraphs are composed into one schema, then a cross-subgraph query is
// planned against it.
func main() {
	schema, warnings, err := compose.Compose([]compose.Subgraph{
		{Name: "users", SDL: userSDL},
		{Name: "products", SDL: productSDL},
	})
	if err != nil {
		log.Fatalf("composition failed: %v", err)
	}
	for _, w := range warnings {
		log.Printf("composition warning: %s", w.Message)
	}

	l := lexer.New(exampleQuery)
	p := parser.New(l)
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		log.Fatalf("parse error: %v", errs)
	}

	rootPlan, err := plan.New(schema).Plan(doc, "", nil)
	if err != nil {
		log.Fatalf("planning failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rootPlan); err != nil {
		log.Fatalf("failed to encode plan: %v", err)
	}
}
