// Package compose implements the Schema Composer (spec §4.B): it merges N
// subgraph SDL documents into one immutable model.ComposedSchema while
// enforcing federation ownership, shareability, and key-validity
// invariants (I1-I6), emitting typed errors from the §7 taxonomy on the
// first violation encountered.
package compose

import (
	"fmt"
	"sort"

	"github.com/n9te9/fedgate/internal/model"
	"github.com/n9te9/graphql-parser/ast"
)

// Subgraph is one (service_name, SDL document) input to Compose.
type Subgraph struct {
	Name string
	SDL  string
}

// composer holds the mutable state threaded through one Compose call.
type composer struct {
	schema   *model.ComposedSchema
	warnings []Warning

	// per-subgraph parsed documents and link info, indexed by name, used
	// by later passes (key validation, entity completeness).
	docs  map[string]*ast.Document
	links map[string]linkInfo

	// shareableTypes/shareableFields record @shareable declarations seen
	// on a type/field across ANY subgraph, since shareability is a
	// property of the declaration, not of a single subgraph.
	shareableTypes  map[string]bool
	shareableFields map[string]bool // "Type.field"

	// fieldShape records the first subgraph+type+arg shape seen for
	// a field, for I3 compatibility checks.
	fieldShape map[string]fieldShape
}

type fieldShape struct {
	service string
	typ     string
	args    []model.Argument
}

// Compose merges subgraphs (sorted by service name for determinism, spec
// §4.B step 2) into a single model.ComposedSchema.
func Compose(subgraphs []Subgraph) (*model.ComposedSchema, []Warning, error) {
	sorted := append([]Subgraph{}, subgraphs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	c := &composer{
		docs:            make(map[string]*ast.Document),
		links:           make(map[string]linkInfo),
		shareableTypes:  make(map[string]bool),
		shareableFields: make(map[string]bool),
		fieldShape:      make(map[string]fieldShape),
	}
	c.schema = newSeed()

	// Step 3 (first pass): parse + detect federation version/namespace.
	for _, sg := range sorted {
		doc, err := parseSDL(sg.SDL)
		if err != nil {
			return nil, nil, fmt.Errorf("subgraph %q: %w", sg.Name, err)
		}
		c.docs[sg.Name] = doc
		c.links[sg.Name] = detectLink(doc)
		c.schema.Services = append(c.schema.Services, sg.Name)
	}
	if len(sorted) > 0 {
		c.schema.FederationVersion = c.links[sorted[0].Name].version
		c.schema.FederationNamespace = c.links[sorted[0].Name].namespace
		for k, v := range c.links[sorted[0].Name].mapping {
			c.schema.DirectiveMapping[k] = v
		}
	}

	// Pre-scan @shareable across all subgraphs: shareability is additive
	// (any one subgraph marking a type/field shareable makes it so).
	for _, sg := range sorted {
		c.prescanShareable(sg.Name, c.docs[sg.Name])
	}

	// Step 4 (second pass): merge type definitions, subgraph by subgraph.
	for _, sg := range sorted {
		if err := c.mergeSubgraph(sg.Name, c.docs[sg.Name]); err != nil {
			return nil, nil, err
		}
	}

	// Step 5: post-merge validation and finishing touches.
	if err := c.validateKeys(); err != nil {
		return nil, nil, err
	}
	c.dropEmptyRoots()
	c.computePossibleTypes()
	c.injectIntrospectionAndFederationFields()
	c.warnUnresolvableRequires(sorted)

	return c.schema, c.warnings, nil
}

// newSeed builds the Query/Mutation/Subscription root shells (spec §4.B
// step 1): unowned, empty root object types.
func newSeed() *model.ComposedSchema {
	s := model.NewComposedSchema()
	s.QueryType = "Query"
	s.MutationType = "Mutation"
	s.SubscriptionType = "Subscription"
	s.EnsureType("Query", model.Object)
	s.EnsureType("Mutation", model.Object)
	s.EnsureType("Subscription", model.Object)
	return s
}
