package plan_test

import (
	"testing"

	"github.com/n9te9/fedgate/internal/compose"
	"github.com/n9te9/fedgate/internal/model"
	"github.com/n9te9/fedgate/internal/plan"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
)

func mustCompose(t *testing.T, subgraphs ...compose.Subgraph) *model.ComposedSchema {
	t.Helper()
	schema, _, err := compose.Compose(subgraphs)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	return schema
}

func TestPlanner_SingleServiceQuery(t *testing.T) {
	schema := mustCompose(t, compose.Subgraph{Name: "products", SDL: `
		type Product @key(fields: "id") {
			id: ID!
			name: String!
			price: Float!
		}
		type Query {
			product(id: ID!): Product
		}
	`})

	l := lexer.New(`query { product(id: "1") { id name price } }`)
	p := parser.New(l)
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse error: %v", errs)
	}

	rootPlan, err := plan.New(schema).Plan(doc, "", nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	fetch, ok := rootPlan.Root.(*plan.Fetch)
	if !ok {
		t.Fatalf("expected a single Fetch at the root for a single-subgraph query, got %T", rootPlan.Root)
	}
	if fetch.Service != "products" {
		t.Fatalf("expected fetch routed to products, got %q", fetch.Service)
	}
}

func TestPlanner_EntityReferenceAcrossServicesProducesFlatten(t *testing.T) {
	schema := mustCompose(t,
		compose.Subgraph{Name: "users", SDL: `
			type User @key(fields: "id") {
				id: ID!
				name: String!
			}
			type Query {
				me: User
			}
		`},
		compose.Subgraph{Name: "products", SDL: `
			type Product @key(fields: "id") {
				id: ID!
				createdBy: User
			}
			extend type User @key(fields: "id") {
				id: ID! @external
				products: [Product]
			}
			type Query {
				product(id: ID!): Product
			}
		`},
	)

	l := lexer.New(`query { me { name products { id } } }`)
	p := parser.New(l)
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse error: %v", errs)
	}

	rootPlan, err := plan.New(schema).Plan(doc, "", nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	seq, ok := rootPlan.Root.(*plan.Sequence)
	if !ok {
		t.Fatalf("expected a Sequence (root fetch, then entity flatten round), got %T", rootPlan.Root)
	}
	if len(seq.Nodes) != 2 {
		t.Fatalf("expected exactly 2 steps (root fetch + flatten round), got %d", len(seq.Nodes))
	}

	fetch, ok := seq.Nodes[0].(*plan.Fetch)
	if !ok {
		t.Fatalf("expected the first step to be a Fetch, got %T", seq.Nodes[0])
	}
	if fetch.Service != "users" {
		t.Fatalf("expected the root fetch routed to users, got %q", fetch.Service)
	}
	wantFetch := "query {\n" +
		"\tme {\n" +
		"\t\tname\n" +
		"\t\t__key1___typename: __typename\n" +
		"\t\t__key1_id: id\n" +
		"\t}\n" +
		"}"
	if fetch.Query != wantFetch {
		t.Fatalf("unexpected root fetch query:\ngot:\n%s\nwant:\n%s", fetch.Query, wantFetch)
	}

	flatten, ok := seq.Nodes[1].(*plan.Flatten)
	if !ok {
		t.Fatalf("expected the second step to be a Flatten, got %T", seq.Nodes[1])
	}
	if flatten.Service != "products" {
		t.Fatalf("expected the flatten routed to products, got %q", flatten.Service)
	}
	wantFlatten := "query($representations:[_Any!]!) {\n" +
		"\t_entities(representations: $representations) {\n" +
		"\t\t... on User {\n" +
		"\t\t\tproducts {\n" +
		"\t\t\t\tid\n" +
		"\t\t\t}\n" +
		"\t\t}\n" +
		"\t}\n" +
		"}"
	if flatten.Query != wantFlatten {
		t.Fatalf("unexpected flatten query:\ngot:\n%s\nwant:\n%s", flatten.Query, wantFlatten)
	}
}

func TestPlanner_RequiresChainOrdersFlattenRoundsWithKeyAliases(t *testing.T) {
	schema := mustCompose(t,
		compose.Subgraph{Name: "products", SDL: `
			type Product @key(fields: "id") @shareable {
				id: ID!
				name: String!
				shippingEstimate: Float! @requires(fields: "weight size")
			}
			type Query {
				product(id: ID!): Product
			}
		`},
		compose.Subgraph{Name: "inventory", SDL: `
			extend type Product @key(fields: "id") {
				id: ID! @external
				weight: Float!
				size: Float!
			}
		`},
	)

	l := lexer.New(`query { product(id: "1") { name shippingEstimate } }`)
	p := parser.New(l)
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse error: %v", errs)
	}

	rootPlan, err := plan.New(schema).Plan(doc, "", nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	seq, ok := rootPlan.Root.(*plan.Sequence)
	if !ok {
		t.Fatalf("expected a Sequence (fetch, then two ordered flatten rounds), got %T", rootPlan.Root)
	}
	if len(seq.Nodes) != 3 {
		t.Fatalf("expected exactly 3 steps (fetch + 2 flattens), got %d", len(seq.Nodes))
	}

	fetch, ok := seq.Nodes[0].(*plan.Fetch)
	if !ok {
		t.Fatalf("expected the first step to be a Fetch, got %T", seq.Nodes[0])
	}
	if fetch.Service != "products" {
		t.Fatalf("expected the root fetch routed to products, got %q", fetch.Service)
	}
	wantFetch := "query {\n" +
		"\tproduct(id: \"1\") {\n" +
		"\t\tname\n" +
		"\t\t__key1___typename: __typename\n" +
		"\t\t__key1_id: id\n" +
		"\t}\n" +
		"}"
	if fetch.Query != wantFetch {
		t.Fatalf("unexpected root fetch query:\ngot:\n%s\nwant:\n%s", fetch.Query, wantFetch)
	}

	requiredFlatten, ok := seq.Nodes[1].(*plan.Flatten)
	if !ok {
		t.Fatalf("expected the second step to be a Flatten, got %T", seq.Nodes[1])
	}
	if requiredFlatten.Service != "inventory" {
		t.Fatalf("expected the required-fields flatten routed to inventory, got %q", requiredFlatten.Service)
	}
	wantRequiredFlatten := "query($representations:[_Any!]!) {\n" +
		"\t_entities(representations: $representations) {\n" +
		"\t\t... on Product {\n" +
		"\t\t\t__key1_weight: weight\n" +
		"\t\t\t__key1_size: size\n" +
		"\t\t}\n" +
		"\t}\n" +
		"}"
	if requiredFlatten.Query != wantRequiredFlatten {
		t.Fatalf("unexpected required-fields flatten query:\ngot:\n%s\nwant:\n%s", requiredFlatten.Query, wantRequiredFlatten)
	}

	requiringFlatten, ok := seq.Nodes[2].(*plan.Flatten)
	if !ok {
		t.Fatalf("expected the third step to be a Flatten, got %T", seq.Nodes[2])
	}
	if requiringFlatten.Service != "products" {
		t.Fatalf("expected the requiring-field flatten routed back to products, got %q", requiringFlatten.Service)
	}
	wantRequiringFlatten := "query($representations:[_Any!]!) {\n" +
		"\t_entities(representations: $representations) {\n" +
		"\t\t... on Product {\n" +
		"\t\t\tshippingEstimate\n" +
		"\t\t}\n" +
		"\t}\n" +
		"}"
	if requiringFlatten.Query != wantRequiringFlatten {
		t.Fatalf("unexpected requiring-field flatten query:\ngot:\n%s\nwant:\n%s", requiringFlatten.Query, wantRequiringFlatten)
	}
}

func TestPlanner_SubscriptionProducesSubscribeNode(t *testing.T) {
	schema := mustCompose(t, compose.Subgraph{Name: "notifications", SDL: `
		type Notification {
			id: ID!
			text: String!
		}
		type Query {
			noop: String
		}
		type Subscription {
			onNotification: Notification
		}
	`})

	l := lexer.New(`subscription { onNotification { id text } }`)
	p := parser.New(l)
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse error: %v", errs)
	}

	rootPlan, err := plan.New(schema).Plan(doc, "", nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if _, ok := rootPlan.Root.(*plan.Subscribe); !ok {
		t.Fatalf("expected a Subscribe node at the root, got %T", rootPlan.Root)
	}
}
