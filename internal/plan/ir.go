// Package plan implements the Query Planner (spec §4.E): it turns a
// validated operation document into a Plan IR tree of Sequence/Parallel/
// Fetch/Flatten/Introspection/Subscribe nodes routing fields to the
// subgraphs that own them, grounded in the teacher's PlannerV2 walk
// style (federation/planner/planner_v2.go) but restructured around the
// IR shape instead of mutating StepV2 slices.
package plan

// Node is any Plan IR node. Each concrete type supplies its own "type"
// discriminator via MarshalJSON (see serialize.go).
type Node interface {
	isNode()
}

// Sequence runs its children strictly in order.
type Sequence struct {
	Nodes []Node
}

// Parallel runs its children with no ordering constraint.
type Parallel struct {
	Nodes []Node
}

// Fetch sends one GraphQL document to one subgraph.
type Fetch struct {
	Service   string
	Variables map[string]any
	// VariableDefs lists every variable the operation declares, in
	// declaration order; it is not narrowed to the variables this Query
	// references (Variables is).
	VariableDefs []string
	Query        string
}

// PathSegment locates one hop of a ResponsePath (spec §4.D).
type PathSegment struct {
	Name         string
	IsList       bool
	PossibleType string // "" if not type-discriminated
}

// Flatten is a secondary fetch that resolves an entity type at Path via
// `_entities`.
type Flatten struct {
	Path      []PathSegment
	Prefix    int
	Service   string
	Variables map[string]any
	VariableDefs []string
	Query        string
}

// Introspection is answered by the gateway itself from the composed
// schema, without any subgraph fetch.
type Introspection struct {
	SelectionSet string // printed selection, for the gateway's own resolver
}

// Subscribe carries one fetch per subgraph contributing a root-level
// subscription field, plus an optional post-receive flatten tree.
type Subscribe struct {
	SubscribeNodes []*Fetch
	FlattenNode    Node // nil, or a Sequence/Parallel of Flatten nodes
}

func (*Sequence) isNode()      {}
func (*Parallel) isNode()      {}
func (*Fetch) isNode()         {}
func (*Flatten) isNode()       {}
func (*Introspection) isNode() {}
func (*Subscribe) isNode()     {}

// RootPlan is the top-level result of Plan.
type RootPlan struct {
	OperationType string // "query", "mutation", "subscription"
	Root          Node
}
