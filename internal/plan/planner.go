package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/n9te9/fedgate/internal/model"
	"github.com/n9te9/graphql-parser/ast"
)

const maxPathLength = 20
const maxFieldRepetition = 2

// Planner plans operations against one ComposedSchema (spec §4.E). It
// holds no per-plan state itself — Plan constructs a fresh planContext
// for every call, so one Planner is safe for concurrent use.
type Planner struct {
	Schema *model.ComposedSchema
}

func New(schema *model.ComposedSchema) *Planner {
	return &Planner{Schema: schema}
}

// Plan builds a RootPlan for one operation in doc (spec §4.E.1).
func (p *Planner) Plan(doc *ast.Document, operationName string, variables map[string]any) (*RootPlan, error) {
	op, err := selectOperation(doc, operationName)
	if err != nil {
		return nil, err
	}
	fragments := collectFragmentDefs(doc)

	rootTypeName := p.Schema.RootTypeName(string(op.Operation))
	if rootTypeName == "" {
		return nil, fmt.Errorf("UNREACHABLE: schema has no root type for operation %q", op.Operation)
	}
	rootType, ok := p.Schema.Lookup(rootTypeName)
	if !ok {
		return nil, fmt.Errorf("UNREACHABLE: root type %q not found", rootTypeName)
	}

	ctx := &planContext{
		schema:     p.Schema,
		doc:        doc,
		fragments:  fragments,
		variables:  variables,
		varDefs:    collectVariableDefOrder(op),
	}

	if op.Operation == ast.Subscription {
		return ctx.planSubscription(op, rootType, rootTypeName)
	}
	return ctx.planQueryOrMutation(op, rootType, rootTypeName)
}

func selectOperation(doc *ast.Document, name string) (*ast.OperationDefinition, error) {
	var ops []*ast.OperationDefinition
	for _, def := range doc.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok {
			ops = append(ops, op)
		}
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("UNREACHABLE: no operation found in document")
	}
	if name == "" {
		if len(ops) != 1 {
			return nil, fmt.Errorf("UNREACHABLE: multiple operations but no operation name given")
		}
		return ops[0], nil
	}
	for _, op := range ops {
		if op.Name != nil && op.Name.String() == name {
			return op, nil
		}
	}
	return nil, fmt.Errorf("UNREACHABLE: operation %q not found", name)
}

func collectFragmentDefs(doc *ast.Document) map[string]*ast.FragmentDefinition {
	out := map[string]*ast.FragmentDefinition{}
	for _, def := range doc.Definitions {
		if fd, ok := def.(*ast.FragmentDefinition); ok {
			out[fd.Name.String()] = fd
		}
	}
	return out
}

func collectVariableDefOrder(op *ast.OperationDefinition) []string {
	out := make([]string, 0, len(op.VariableDefinitions))
	for _, d := range op.VariableDefinitions {
		out = append(out, d.Variable.Name)
	}
	return out
}

// pendingEntity is one not-yet-emitted Flatten, keyed by its (service,
// path, type) identity (spec §4.E.3 step 5, §4.E.6).
type pendingEntity struct {
	service    string
	path       []PathSegment
	typeName   string
	selections []ast.Selection
	// requiredPrefix is non-zero when this entity's response is
	// correlated back into an enclosing fetch via __key{N}_* aliases
	// (spec §4.E.9): either the key fields injected for a plain entity
	// boundary, or the required field values for a @requires edge.
	requiredPrefix int
	// waitFor, when non-zero, names a requiredPrefix that must finish
	// its round before this entity may run (spec §4.E.3 step 4: the
	// requiring field itself can't be resolved until its @requires data
	// has landed).
	waitFor int
	// requiresSatisfied skips assignField's @requires branch for the
	// fields in this entity's own selections, since the data it would
	// otherwise schedule another fetch for has already landed by the
	// time this entity runs.
	requiresSatisfied bool
}

type planContext struct {
	schema    *model.ComposedSchema
	doc       *ast.Document
	fragments map[string]*ast.FragmentDefinition
	variables map[string]any
	varDefs   []string

	keyCounter int
}

func (c *planContext) nextKeyPrefix() int {
	c.keyCounter++
	return c.keyCounter
}

// planQueryOrMutation implements spec §4.E.2 (root selection) through
// §4.E.6 (flatten rounds).
func (c *planContext) planQueryOrMutation(op *ast.OperationDefinition, rootType *model.Type, rootTypeName string) (*RootPlan, error) {
	expanded := expandFragments(op.SelectionSet, c.fragments)

	var introspectionSel []ast.Selection
	serviceOrder := []string{}
	bySvc := map[string][]ast.Selection{}

	for _, sel := range expanded {
		f, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		name := f.Name.String()
		if strings.HasPrefix(name, "__") {
			introspectionSel = append(introspectionSel, f)
			continue
		}
		fd, ok := rootType.Field(name)
		if !ok {
			continue
		}
		svc := fd.Service
		if svc == "" {
			svc = rootType.Owner
		}
		if svc == "" {
			continue
		}
		if _, seen := bySvc[svc]; !seen {
			serviceOrder = append(serviceOrder, svc)
		}
		bySvc[svc] = append(bySvc[svc], f)
	}

	isMutation := op.Operation == ast.Mutation
	var pending []*pendingEntity
	var rootFetches []Node

	for _, svc := range serviceOrder {
		selections := bySvc[svc]
		built, newPending := c.assignSelections(selections, svc, rootType, rootTypeName, []PathSegment{}, 0, false)
		pending = append(pending, newPending...)
		query := c.printRootQuery(op.Operation, built, rootTypeName)
		rootFetches = append(rootFetches, &Fetch{
			Service:      svc,
			Variables:    c.referencedVariables(built),
			VariableDefs: c.varDefs,
			Query:        query,
		})
	}

	var rootGroup Node
	if isMutation {
		rootGroup = &Sequence{Nodes: rootFetches}
	} else {
		rootGroup = &Parallel{Nodes: rootFetches}
	}

	rounds, err := c.flattenRounds(pending)
	if err != nil {
		return nil, err
	}

	var top []Node
	if len(introspectionSel) > 0 {
		top = append(top, &Introspection{SelectionSet: printSelectionSet(introspectionSel, "")})
	}
	top = append(top, unwrap(rootGroup))
	top = append(top, rounds...)

	return &RootPlan{OperationType: string(op.Operation), Root: unwrap(&Sequence{Nodes: top})}, nil
}

func (c *planContext) planSubscription(op *ast.OperationDefinition, rootType *model.Type, rootTypeName string) (*RootPlan, error) {
	expanded := expandFragments(op.SelectionSet, c.fragments)

	var fetches []*Fetch
	var pending []*pendingEntity
	for _, sel := range expanded {
		f, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		fd, ok := rootType.Field(f.Name.String())
		if !ok {
			continue
		}
		svc := fd.Service
		if svc == "" {
			continue
		}
		built, newPending := c.assignSelections([]ast.Selection{f}, svc, rootType, rootTypeName, []PathSegment{}, 0, false)
		pending = append(pending, newPending...)
		fetches = append(fetches, &Fetch{
			Service:      svc,
			Variables:    c.referencedVariables(built),
			VariableDefs: c.varDefs,
			Query:        c.printRootQuery(ast.Subscription, built, rootTypeName),
		})
	}

	var flattenNode Node
	if len(pending) > 0 {
		rounds, err := c.flattenRounds(pending)
		if err != nil {
			return nil, err
		}
		flattenNode = unwrap(&Sequence{Nodes: rounds})
	}

	return &RootPlan{
		OperationType: "subscription",
		Root:          &Subscribe{SubscribeNodes: fetches, FlattenNode: flattenNode},
	}, nil
}

// flattenRounds repeatedly drains pending entity fetches into Parallel
// rounds until no new ones are produced (spec §4.E.6). An entity whose
// waitFor names a requiredPrefix that hasn't finished its own round yet
// is held back to a later round (spec §4.E.3 step 4).
func (c *planContext) flattenRounds(pending []*pendingEntity) ([]Node, error) {
	var rounds []Node
	resolved := map[int]bool{}
	for len(pending) > 0 {
		var round []Node
		var next []*pendingEntity
		var blocked []*pendingEntity
		var justResolved []int
		for _, pe := range pending {
			if pe.waitFor != 0 && !resolved[pe.waitFor] {
				blocked = append(blocked, pe)
				continue
			}
			t, ok := c.schema.Lookup(pe.typeName)
			if !ok {
				continue
			}
			built, newPending := c.assignSelections(pe.selections, pe.service, t, pe.typeName, pe.path, pe.requiredPrefix, pe.requiresSatisfied)
			next = append(next, newPending...)
			query := c.printFlattenQuery(pe.typeName, built, pe.requiredPrefix)
			round = append(round, &Flatten{
				Path:         pe.path,
				Prefix:       pe.requiredPrefix,
				Service:      pe.service,
				Variables:    c.referencedVariables(built),
				VariableDefs: c.varDefs,
				Query:        query,
			})
			if pe.requiredPrefix != 0 {
				justResolved = append(justResolved, pe.requiredPrefix)
			}
		}
		if len(round) == 0 && len(blocked) > 0 {
			// A waitFor prefix with no entity left to resolve it (the
			// requiring type declares no @key in any subgraph). Stop rather
			// than loop forever; the blocked entities are left out.
			break
		}
		for _, pfx := range justResolved {
			resolved[pfx] = true
		}
		if len(round) > 0 {
			rounds = append(rounds, unwrap(&Parallel{Nodes: round}))
		}
		pending = append(next, blocked...)
	}
	return rounds, nil
}

// unwrap collapses a single-child Sequence/Parallel into its one child
// (spec §4.E.6 "single-child Sequence/Parallel nodes are unwrapped").
func unwrap(n Node) Node {
	switch v := n.(type) {
	case *Sequence:
		if len(v.Nodes) == 1 {
			return unwrap(v.Nodes[0])
		}
		filtered := v.Nodes[:0:0]
		for _, c := range v.Nodes {
			filtered = append(filtered, c)
		}
		return &Sequence{Nodes: filtered}
	case *Parallel:
		if len(v.Nodes) == 1 {
			return unwrap(v.Nodes[0])
		}
		return v
	}
	return n
}

// assignSelections implements spec §4.E.3 (field assignment) across a
// whole selection set evaluated in service context svc against
// parentType, returning the selections to print for this fetch plus any
// entity fetches it spawned for later rounds.
func (c *planContext) assignSelections(selections []ast.Selection, svc string, parentType *model.Type, parentTypeName string, path []PathSegment, requiredPrefix int, requiresSatisfied bool) ([]ast.Selection, []*pendingEntity) {
	var out []ast.Selection
	var pending []*pendingEntity

	if parentType.Kind == model.Interface || parentType.Kind == model.Union {
		return c.assignAbstractSelections(selections, svc, parentType, parentTypeName, path, requiredPrefix, requiresSatisfied)
	}

	for _, sel := range selections {
		switch s := sel.(type) {
		case *ast.Field:
			_, np, emit, extra := c.assignField(s, svc, parentType, parentTypeName, path, requiredPrefix, requiresSatisfied)
			pending = append(pending, np...)
			if emit != nil {
				out = append(out, emit)
			}
			out = append(out, extra...)
		case *ast.InlineFragment:
			condName := parentTypeName
			condType := parentType
			if s.TypeCondition != nil {
				condName = s.TypeCondition.Name.String()
				if t, ok := c.schema.Lookup(condName); ok {
					condType = t
				}
			}
			inner, np := c.assignSelections(s.SelectionSet, svc, condType, condName, path, requiredPrefix, false)
			pending = append(pending, np...)
			if len(inner) > 0 {
				out = append(out, &ast.InlineFragment{TypeCondition: s.TypeCondition, SelectionSet: inner})
			}
		case *ast.FragmentSpread:
			fd, ok := c.fragments[s.Name.String()]
			if !ok {
				continue
			}
			condName := fd.TypeCondition.Name.String()
			condType := parentType
			if t, ok := c.schema.Lookup(condName); ok {
				condType = t
			}
			inner, np := c.assignSelections(fd.SelectionSet, svc, condType, condName, path, requiredPrefix, false)
			pending = append(pending, np...)
			out = append(out, inner...)
		}
	}
	return out, pending
}

// assignAbstractSelections implements spec §4.E.4: partition the inner
// selection per concrete possible type, recursing with the path's
// possible_type set.
func (c *planContext) assignAbstractSelections(selections []ast.Selection, svc string, parentType *model.Type, parentTypeName string, path []PathSegment, requiredPrefix int, requiresSatisfied bool) ([]ast.Selection, []*pendingEntity) {
	var commonFields []ast.Selection
	var typedSelections []ast.Selection
	for _, sel := range selections {
		switch s := sel.(type) {
		case *ast.Field:
			commonFields = append(commonFields, s)
		default:
			typedSelections = append(typedSelections, s)
		}
	}

	var out []ast.Selection
	var pending []*pendingEntity

	if len(commonFields) > 0 {
		commonOut, np := c.assignSelectionsAsObject(commonFields, svc, parentType, parentTypeName, path, requiredPrefix, requiresSatisfied)
		pending = append(pending, np...)
		out = append(out, commonOut...)
	}

	for _, pt := range parentType.PossibleTypes() {
		ptType, ok := c.schema.Lookup(pt)
		if !ok {
			continue
		}
		var merged []ast.Selection
		for _, sel := range typedSelections {
			switch s := sel.(type) {
			case *ast.InlineFragment:
				cond := pt
				if s.TypeCondition != nil {
					cond = s.TypeCondition.Name.String()
				}
				if cond == pt || c.schema.Overlap(cond, pt) {
					merged = append(merged, s.SelectionSet...)
				}
			case *ast.FragmentSpread:
				fd, ok := c.fragments[s.Name.String()]
				if !ok {
					continue
				}
				cond := fd.TypeCondition.Name.String()
				if cond == pt || c.schema.Overlap(cond, pt) {
					merged = append(merged, fd.SelectionSet...)
				}
			}
		}
		if len(merged) == 0 {
			continue
		}
		typedPath := append(append([]PathSegment{}, path...))
		if len(typedPath) > 0 {
			typedPath[len(typedPath)-1].PossibleType = pt
		}
		inner, np := c.assignSelectionsAsObject(merged, svc, ptType, pt, typedPath, requiredPrefix, requiresSatisfied)
		pending = append(pending, np...)
		if len(inner) > 0 {
			out = append(out, &ast.InlineFragment{
				TypeCondition: &ast.NamedType{Name: &ast.Name{Value: pt}},
				SelectionSet:  inner,
			})
		}
	}
	return out, pending
}

func (c *planContext) assignSelectionsAsObject(selections []ast.Selection, svc string, parentType *model.Type, parentTypeName string, path []PathSegment, requiredPrefix int, requiresSatisfied bool) ([]ast.Selection, []*pendingEntity) {
	var out []ast.Selection
	var pending []*pendingEntity
	for _, sel := range selections {
		f, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		_, np, emit, extra := c.assignField(f, svc, parentType, parentTypeName, path, requiredPrefix, requiresSatisfied)
		pending = append(pending, np...)
		if emit != nil {
			out = append(out, emit)
		}
		out = append(out, extra...)
	}
	return out, pending
}

// assignField implements spec §4.E.3 steps 1-6 for one field. It returns
// the field's definition, any entity fetches it spawned for later
// rounds, the selection to emit into the current fetch (nil if none),
// and any extra selections (aliased __typename/key fields, spec §4.E.9)
// that must also land in the current fetch so a later round can build
// its `_entities` representations.
func (c *planContext) assignField(f *ast.Field, svc string, parentType *model.Type, parentTypeName string, path []PathSegment, requiredPrefix int, requiresSatisfied bool) (*model.Field, []*pendingEntity, ast.Selection, []ast.Selection) {
	name := f.Name.String()
	if name == "__typename" {
		return nil, nil, f, nil
	}

	fd, ok := parentType.Field(name)
	if !ok {
		return nil, nil, nil, nil // step 1: absent field, forgiving no-op
	}
	if fd.Inaccessible {
		return nil, nil, nil, nil // step 2
	}

	target := fd.Service
	if target == "" {
		if coversBy, ok := c.provideCover(svc, parentType, name); ok && coversBy {
			target = svc
		} else if parentType.Owner != "" {
			target = parentType.Owner
		} else {
			target = svc
		}
	}

	var pending []*pendingEntity

	if target == svc {
		if fd.Requires != nil && !requiresSatisfied && pathRepetitionOK(path, name) {
			// step 4: the required data must land in an earlier round
			// before this field can be resolved, so F itself is deferred
			// rather than emitted into the current fetch.
			prefix := c.nextKeyPrefix()

			var extra []ast.Selection
			key, hasKey := keyOf(parentType, svc)
			if !hasKey {
				key, hasKey = keyOf(parentType, parentType.Owner)
			}
			if hasKey {
				extra = injectKeyFields(nil, key, prefix)
			}

			required := c.planRequiredFetch(parentTypeName, fd.Requires, path, svc, prefix)
			pending = append(pending, required...)
			pending = append(pending, &pendingEntity{
				service:           svc,
				path:              append(append([]PathSegment{}, path...)),
				typeName:          parentTypeName,
				selections:        []ast.Selection{f},
				waitFor:           prefix,
				requiresSatisfied: true,
			})
			return fd, pending, nil, extra
		}
		// same-service field (step 6)
		responseKey := responseKeyOf(f)
		childPath := append(append([]PathSegment{}, path...), PathSegment{Name: responseKey, IsList: isListType(fd.Type)})
		newField := &ast.Field{Alias: f.Alias, Name: f.Name, Arguments: f.Arguments, Directives: f.Directives}
		if len(f.SelectionSet) > 0 {
			childType, _ := c.schema.ResolveType(fd.Type)
			if childType != nil {
				inner, np := c.assignSelections(f.SelectionSet, svc, childType, childType.Name, childPath, requiredPrefix, false)
				pending = append(pending, np...)
				newField.SelectionSet = inner
			}
		}
		return fd, pending, newField, nil
	}

	// step 5: service mismatch
	key, hasKey := keyOf(parentType, target)
	if !hasKey {
		key, hasKey = keyOf(parentType, parentType.Owner)
	}
	if !hasKey {
		return fd, nil, nil, nil // nothing to join on, drop
	}

	definedInTarget := fd.Service == target
	hasProvides := fd.Provides != nil
	providesCovers := hasProvides && provideSelectionCovers(c, fd.Provides, f.SelectionSet, parentTypeName)
	_, inTargetKey := key.Fields.Lookup(name)

	if definedInTarget || (hasProvides && providesCovers) || !inTargetKey {
		prefix := c.nextKeyPrefix()
		pe := c.enqueueEntityFetch(target, parentTypeName, path, f, prefix)
		return fd, []*pendingEntity{pe}, nil, injectKeyFields(nil, key, prefix)
	}
	if hasProvides && !providesCovers {
		owner := target
		if retType, ok := c.schema.ResolveType(fd.Type); ok && retType.Owner != "" {
			owner = retType.Owner
		}
		prefix := c.nextKeyPrefix()
		pe := c.enqueueEntityFetch(owner, parentTypeName, path, f, prefix)
		return fd, []*pendingEntity{pe}, nil, injectKeyFields(nil, key, prefix)
	}
	// carried for free as part of the key
	return fd, nil, nil, nil
}

func pathRepetitionOK(path []PathSegment, name string) bool {
	if len(path) > maxPathLength {
		return false
	}
	count := 0
	for _, seg := range path {
		if seg.Name == name {
			count++
		}
	}
	return count < maxFieldRepetition
}

// planRequiredFetch locates services that can supply the @requires
// field set and enqueues an entity fetch per such service (spec §4.E.3
// step 4). Every contributing service shares prefix, since they all
// correlate back into the same requiring field's representation; each
// fetched field is aliased __key{prefix}_<name> so the requiring
// field's later round can tell plan-internal values apart from any
// user-requested field of the same name at the same path.
func (c *planContext) planRequiredFetch(typeName string, required *model.KeyFieldSet, path []PathSegment, currentSvc string, prefix int) []*pendingEntity {
	t, ok := c.schema.Lookup(typeName)
	if !ok {
		return nil
	}
	var out []*pendingEntity
	services := make([]string, 0, len(t.KeyOrder))
	for _, svc := range t.KeyOrder {
		if svc != currentSvc {
			services = append(services, svc)
		}
	}
	if len(services) == 0 && len(t.KeyOrder) > 0 {
		// No distinct remote service declares keys for the type (the
		// composer warns about this): fall back to the first service with
		// keys, which is then the current service itself.
		services = t.KeyOrder[:1]
	}
	for _, svc := range services {
		var sels []ast.Selection
		for _, name := range required.Names() {
			sels = append(sels, &ast.Field{
				Alias: &ast.Name{Value: fmt.Sprintf("__key%d_%s", prefix, name)},
				Name:  &ast.Name{Value: name},
			})
		}
		out = append(out, &pendingEntity{
			service:        svc,
			path:           append(append([]PathSegment{}, path...)),
			typeName:       typeName,
			selections:     sels,
			requiredPrefix: prefix,
		})
	}
	return out
}

func (c *planContext) enqueueEntityFetch(service, typeName string, path []PathSegment, f *ast.Field, prefix int) *pendingEntity {
	return &pendingEntity{
		service:        service,
		path:           append(append([]PathSegment{}, path...)),
		typeName:       typeName,
		selections:     []ast.Selection{f},
		requiredPrefix: prefix,
	}
}

func keyOf(t *model.Type, service string) (model.EntityKey, bool) {
	keys := t.KeysFor(service)
	if len(keys) == 0 {
		return model.EntityKey{}, false
	}
	return keys[0], true
}

// injectKeyFields appends an aliased __typename plus key's own fields to
// out (spec §4.E.9), so the enclosing fetch carries the data a later
// entity fetch needs to build its `_entities` representations from.
func injectKeyFields(out []ast.Selection, key model.EntityKey, prefix int) []ast.Selection {
	out = append(out, &ast.Field{
		Alias: &ast.Name{Value: fmt.Sprintf("__key%d___typename", prefix)},
		Name:  &ast.Name{Value: "__typename"},
	})
	if key.Fields == nil {
		return out
	}
	for _, kf := range key.Fields.Fields {
		out = append(out, keyFieldSelection(kf, prefix))
	}
	return out
}

func keyFieldSelection(kf model.KeyField, prefix int) *ast.Field {
	f := &ast.Field{
		Alias: &ast.Name{Value: fmt.Sprintf("__key%d_%s", prefix, kf.Name)},
		Name:  &ast.Name{Value: kf.Name},
	}
	if kf.Nested != nil {
		for _, nested := range kf.Nested.Fields {
			f.SelectionSet = append(f.SelectionSet, keyFieldSelection(nested, prefix))
		}
	}
	return f
}

// provideCover reports whether a @provides on some field of parentType
// in svc already covers fieldName (spec §4.E.3 step 3, loosely; full
// @provides coverage of the exact requested sub-selection is checked at
// the call site via provideSelectionCovers).
func (c *planContext) provideCover(svc string, parentType *model.Type, fieldName string) (bool, bool) {
	for _, field := range parentType.Fields() {
		if field.Service != svc && field.Service != "" {
			continue
		}
		if field.Provides == nil {
			continue
		}
		if _, ok := field.Provides.Lookup(fieldName); ok {
			return true, true
		}
	}
	return false, false
}

// provideSelectionCovers implements spec §4.E.5.
func provideSelectionCovers(c *planContext, provides *model.KeyFieldSet, selections []ast.Selection, _ string) bool {
	for _, sel := range selections {
		switch s := sel.(type) {
		case *ast.Field:
			name := s.Name.String()
			if name == "__typename" {
				continue
			}
			kf, ok := provides.Lookup(name)
			if !ok {
				return false
			}
			if len(s.SelectionSet) > 0 {
				if kf.Nested == nil {
					return false
				}
				if !provideFieldSetCovers(kf.Nested, s.SelectionSet) {
					return false
				}
			}
		case *ast.FragmentSpread:
			fd, ok := c.fragments[s.Name.String()]
			if !ok {
				return false
			}
			if !provideSelectionCovers(c, provides, fd.SelectionSet, "") {
				return false
			}
		case *ast.InlineFragment:
			if !provideSelectionCovers(c, provides, s.SelectionSet, "") {
				return false
			}
		}
	}
	return true
}

func provideFieldSetCovers(set *model.KeyFieldSet, selections []ast.Selection) bool {
	for _, sel := range selections {
		f, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		name := f.Name.String()
		if name == "__typename" {
			continue
		}
		kf, ok := set.Lookup(name)
		if !ok {
			return false
		}
		if len(f.SelectionSet) > 0 {
			if kf.Nested == nil || !provideFieldSetCovers(kf.Nested, f.SelectionSet) {
				return false
			}
		}
	}
	return true
}

func responseKeyOf(f *ast.Field) string {
	if f.Alias != nil && f.Alias.String() != "" {
		return f.Alias.String()
	}
	return f.Name.String()
}

func isListType(printed string) bool {
	trimmed := strings.TrimSuffix(printed, "!")
	return strings.HasPrefix(trimmed, "[")
}

// referencedVariables walks selections to collect only the variables
// actually used (spec §4.E.8).
func (c *planContext) referencedVariables(selections []ast.Selection) map[string]any {
	used := map[string]bool{}
	var walk func([]ast.Selection)
	walk = func(sels []ast.Selection) {
		for _, sel := range sels {
			switch s := sel.(type) {
			case *ast.Field:
				for _, arg := range s.Arguments {
					collectVarNames(arg.Value, used)
				}
				walk(s.SelectionSet)
			case *ast.InlineFragment:
				walk(s.SelectionSet)
			}
		}
	}
	walk(selections)

	out := map[string]any{}
	names := make([]string, 0, len(used))
	for n := range used {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if v, ok := c.variables[n]; ok {
			out[n] = v
		}
	}
	return out
}

func collectVarNames(val ast.Value, used map[string]bool) {
	switch v := val.(type) {
	case *ast.Variable:
		used[v.Name] = true
	case *ast.ListValue:
		for _, item := range v.Values {
			collectVarNames(item, used)
		}
	case *ast.ObjectValue:
		for _, f := range v.Fields {
			collectVarNames(f.Value, used)
		}
	}
}

// expandFragments inlines fragment spreads and inline fragments at the top
// of selections, so that root-field bucketing (which only recognizes
// *ast.Field) sees every root field a query names even when it names them
// through a fragment. Typed fragments (spread or inline) are expanded too:
// since root fields are only ever selected against the operation's root
// type, any type condition at this level necessarily matches the root
// type and its fields are safe to hoist. Nested fragments are expanded
// recursively; cycles are unreachable here because noFragmentCycles
// rejects them ahead of planning.
func expandFragments(selections []ast.Selection, fragments map[string]*ast.FragmentDefinition) []ast.Selection {
	out := make([]ast.Selection, 0, len(selections))
	for _, sel := range selections {
		switch s := sel.(type) {
		case *ast.FragmentSpread:
			fd, ok := fragments[s.Name.String()]
			if !ok {
				continue
			}
			out = append(out, expandFragments(fd.SelectionSet, fragments)...)
		case *ast.InlineFragment:
			out = append(out, expandFragments(s.SelectionSet, fragments)...)
		default:
			out = append(out, sel)
		}
	}
	return out
}
