// Package validate implements static validation of an operation document
// against a model.ComposedSchema, ahead of planning. It follows the
// teacher planner's direct-AST-walk style (no separate visitor runtime):
// each rule is a plain function over the document, and Document runs
// them in sequence, collecting every violation rather than stopping at
// the first.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/n9te9/fedgate/internal/model"
	"github.com/n9te9/graphql-parser/ast"
)

// Error is one validation failure, carrying enough context to point a
// caller at the offending part of the document.
type Error struct {
	Rule    string
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Rule, e.Message) }

func errf(rule, format string, args ...any) *Error {
	return &Error{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// Document validates every operation and fragment definition in doc
// against schema, returning every violation found.
func Document(schema *model.ComposedSchema, doc *ast.Document) []error {
	var errs []error

	fragments := collectFragments(doc)
	operations := collectOperations(doc)

	errs = append(errs, knownFragmentNames(fragments, operations)...)
	errs = append(errs, noFragmentCycles(fragments)...)
	errs = append(errs, uniqueOperationNames(operations)...)

	usedFragments := map[string]bool{}

	for _, op := range operations {
		rootName := schema.RootTypeName(string(op.Operation))
		if rootName == "" {
			errs = append(errs, errf("RootOperationTypeExists", "schema has no root type for operation %q", op.Operation))
			continue
		}
		rootType, ok := schema.Lookup(rootName)
		if !ok {
			errs = append(errs, errf("RootOperationTypeExists", "root type %q is not defined", rootName))
			continue
		}

		if op.Operation == ast.Subscription {
			errs = append(errs, singleFieldSubscription(op)...)
		}

		v := &opValidator{schema: schema, fragments: fragments, usedFragments: usedFragments, usedVariables: map[string]bool{}}
		errs = append(errs, v.selectionSet(op.SelectionSet, rootType, rootName)...)
		errs = append(errs, v.checkVariables(op)...)
	}

	for name := range fragments {
		if !usedFragments[name] {
			errs = append(errs, errf("NoUnusedFragments", "fragment %q is never used", name))
		}
	}

	errs = append(errs, providesFieldsExist(schema)...)

	return errs
}

// providesFieldsExist is the federation-specific counterpart to the generic
// rules above: every field name in an @provides selection must exist on
// the field's declared return type. Its result depends only on the
// schema, not on doc, since @provides is composed-schema metadata rather
// than something a particular operation can violate; Document re-runs it
// on every call.
func providesFieldsExist(schema *model.ComposedSchema) []error {
	var errs []error
	for _, t := range schema.Types() {
		for _, f := range t.Fields() {
			if f.Provides == nil {
				continue
			}
			retType, ok := schema.ResolveType(f.Type)
			if !ok {
				continue
			}
			for _, name := range f.Provides.Names() {
				if _, ok := retType.Field(name); !ok {
					errs = append(errs, errf("ProvidesFieldsExist", "@provides on %s.%s selects %q, which does not exist on %s", t.Name, f.Name, name, retType.Name))
				}
			}
		}
	}
	return errs
}

func collectFragments(doc *ast.Document) map[string]*ast.FragmentDefinition {
	out := map[string]*ast.FragmentDefinition{}
	for _, def := range doc.Definitions {
		if fd, ok := def.(*ast.FragmentDefinition); ok {
			out[fd.Name.String()] = fd
		}
	}
	return out
}

func collectOperations(doc *ast.Document) []*ast.OperationDefinition {
	var out []*ast.OperationDefinition
	for _, def := range doc.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok {
			out = append(out, op)
		}
	}
	return out
}

func uniqueOperationNames(ops []*ast.OperationDefinition) []error {
	var errs []error
	seen := map[string]bool{}
	for _, op := range ops {
		if op.Name == nil {
			continue
		}
		name := op.Name.String()
		if seen[name] {
			errs = append(errs, errf("UniqueOperationNames", "operation name %q used more than once", name))
		}
		seen[name] = true
	}
	return errs
}

func knownFragmentNames(fragments map[string]*ast.FragmentDefinition, operations []*ast.OperationDefinition) []error {
	var errs []error
	var walk func(selections []ast.Selection)
	walk = func(selections []ast.Selection) {
		for _, sel := range selections {
			switch s := sel.(type) {
			case *ast.FragmentSpread:
				if _, ok := fragments[s.Name.String()]; !ok {
					errs = append(errs, errf("KnownFragmentNames", "undefined fragment %q", s.Name.String()))
				}
			case *ast.Field:
				walk(s.SelectionSet)
			case *ast.InlineFragment:
				walk(s.SelectionSet)
			}
		}
	}
	for _, op := range operations {
		walk(op.SelectionSet)
	}
	for _, fd := range fragments {
		walk(fd.SelectionSet)
	}
	return errs
}

// noFragmentCycles detects `fragment A { ...B } fragment B { ...A }`-style
// cycles via DFS over the fragment-spread graph.
func noFragmentCycles(fragments map[string]*ast.FragmentDefinition) []error {
	var errs []error
	state := map[string]int{} // 0=unvisited,1=inProgress,2=done

	var visit func(name string, stack []string) bool
	visit = func(name string, stack []string) bool {
		if state[name] == 2 {
			return false
		}
		if state[name] == 1 {
			errs = append(errs, errf("NoFragmentCycles", "fragment cycle detected: %v -> %s", stack, name))
			return true
		}
		state[name] = 1
		fd, ok := fragments[name]
		if ok {
			var walk func(selections []ast.Selection) bool
			walk = func(selections []ast.Selection) bool {
				for _, sel := range selections {
					switch s := sel.(type) {
					case *ast.FragmentSpread:
						if visit(s.Name.String(), append(stack, name)) {
							return true
						}
					case *ast.Field:
						if walk(s.SelectionSet) {
							return true
						}
					case *ast.InlineFragment:
						if walk(s.SelectionSet) {
							return true
						}
					}
				}
				return false
			}
			if walk(fd.SelectionSet) {
				state[name] = 2
				return true
			}
		}
		state[name] = 2
		return false
	}

	for name := range fragments {
		if state[name] == 0 {
			visit(name, nil)
		}
	}
	return errs
}

func singleFieldSubscription(op *ast.OperationDefinition) []error {
	count := 0
	for _, sel := range op.SelectionSet {
		if f, ok := sel.(*ast.Field); ok && f.Name.String() != "__typename" {
			count++
		}
	}
	if count != 1 {
		return []error{errf("SingleFieldSubscriptions", "subscription operations must select exactly one field, got %d", count)}
	}
	return nil
}

type opValidator struct {
	schema        *model.ComposedSchema
	fragments     map[string]*ast.FragmentDefinition
	usedFragments map[string]bool
	usedVariables map[string]bool
	varUsages     []varUsage
}

// varUsage records one place a variable was referenced, so checkVariables
// can later verify it against the variable's own declared type
// (VariablesInAllowedPosition).
type varUsage struct {
	name           string
	ref            model.TypeRef
	hasSiteDefault bool
}

// selectionSet validates fields/fragments select against parentType,
// implementing FieldsOnCorrectType, ScalarLeaves, KnownArgumentNames,
// UniqueArgumentNames, OverlappingFieldsCanBeMerged, and recurses into
// children.
func (v *opValidator) selectionSet(selections []ast.Selection, parentType *model.Type, parentTypeName string) []error {
	errs := overlappingFieldsCanBeMerged(selections)
	for _, sel := range selections {
		switch s := sel.(type) {
		case *ast.Field:
			errs = append(errs, v.field(s, parentType, parentTypeName)...)
		case *ast.FragmentSpread:
			name := s.Name.String()
			v.usedFragments[name] = true
			fd, ok := v.fragments[name]
			if !ok {
				continue
			}
			condName := fd.TypeCondition.Name.String()
			if !v.schema.Overlap(condName, parentTypeName) {
				errs = append(errs, errf("PossibleFragmentSpreads", "fragment %q on %q cannot be spread on %q", name, condName, parentTypeName))
				continue
			}
			condType, ok := v.schema.Lookup(condName)
			if !ok {
				errs = append(errs, errf("KnownTypeNames", "undefined type %q in fragment %q", condName, name))
				continue
			}
			errs = append(errs, v.selectionSet(fd.SelectionSet, condType, condName)...)
		case *ast.InlineFragment:
			condName := parentTypeName
			condType := parentType
			if s.TypeCondition != nil {
				condName = s.TypeCondition.Name.String()
				t, ok := v.schema.Lookup(condName)
				if !ok {
					errs = append(errs, errf("KnownTypeNames", "undefined type %q in inline fragment", condName))
					continue
				}
				if !v.schema.Overlap(condName, parentTypeName) {
					errs = append(errs, errf("PossibleFragmentSpreads", "inline fragment on %q cannot be spread on %q", condName, parentTypeName))
					continue
				}
				condType = t
			}
			errs = append(errs, v.selectionSet(s.SelectionSet, condType, condName)...)
		}
	}
	return errs
}

func (v *opValidator) field(f *ast.Field, parentType *model.Type, parentTypeName string) []error {
	var errs []error
	fieldName := f.Name.String()

	if fieldName == "__typename" {
		return nil
	}

	fieldDef, ok := parentType.Field(fieldName)
	if !ok {
		return []error{errf("FieldsOnCorrectType", "field %q does not exist on type %q", fieldName, parentTypeName)}
	}

	named := model.ParseTypeRef(fieldDef.Type).NamedType()
	fieldReturnType, knownType := v.schema.Lookup(named)

	if len(f.SelectionSet) == 0 {
		if knownType && (fieldReturnType.Kind == model.Object || fieldReturnType.Kind == model.Interface || fieldReturnType.Kind == model.Union) {
			errs = append(errs, errf("ScalarLeaves", "field %q of composite type %q must have a selection set", fieldName, named))
		}
	} else {
		if !knownType || fieldReturnType.Kind == model.Scalar || fieldReturnType.Kind == model.Enum {
			errs = append(errs, errf("ScalarLeaves", "field %q of leaf type %q cannot have a selection set", fieldName, named))
		} else {
			errs = append(errs, v.selectionSet(f.SelectionSet, fieldReturnType, named)...)
		}
	}

	errs = append(errs, v.directives(f.Directives, "FIELD")...)
	errs = append(errs, v.arguments(f.Arguments, fieldDef, fieldName, parentTypeName)...)

	return errs
}

// builtinScalars are the spec-defined scalars, always valid input types
// even though the composer never installs Type entries for them.
var builtinScalars = map[string]bool{
	"Int":     true,
	"Float":   true,
	"String":  true,
	"Boolean": true,
	"ID":      true,
}

// builtinDirectiveLocations covers the executable directives every
// document may use without a schema-side DirectiveDef.
var builtinDirectiveLocations = map[string][]string{
	"skip":    {"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
	"include": {"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
}

// directives implements KnownDirectives and UniqueDirectivesPerLocation
// for the directives attached at one location of the document.
func (v *opValidator) directives(dirs []*ast.Directive, location string) []error {
	var errs []error
	seen := map[string]bool{}
	for _, d := range dirs {
		name := d.Name
		if seen[name] {
			errs = append(errs, errf("UniqueDirectivesPerLocation", "directive @%s repeated at the same location", name))
		}
		seen[name] = true

		locs, known := builtinDirectiveLocations[name]
		if !known {
			if dd, ok := v.schema.Directives[name]; ok {
				locs, known = dd.Locations, true
			}
		}
		if !known {
			errs = append(errs, errf("KnownDirectives", "unknown directive @%s", name))
			continue
		}
		if !containsLocation(locs, location) {
			errs = append(errs, errf("KnownDirectives", "directive @%s is not valid at location %s", name, location))
		}

		for _, arg := range d.Arguments {
			v.markUsed(arg.Value)
		}
	}
	return errs
}

func containsLocation(locs []string, loc string) bool {
	for _, l := range locs {
		if l == loc {
			return true
		}
	}
	return false
}

// responseKeyOf returns the response key a field occupies: its alias, or
// its name when unaliased.
func responseKeyOf(f *ast.Field) string {
	if f.Alias != nil {
		return f.Alias.String()
	}
	return f.Name.String()
}

// overlappingFieldsCanBeMerged flags sibling fields in the same selection
// that share a response key but disagree on the underlying field name or
// arguments, so a response could never satisfy both at once.
func overlappingFieldsCanBeMerged(selections []ast.Selection) []error {
	type seenField struct {
		name string
		args string
	}
	var errs []error
	seen := map[string]seenField{}
	for _, sel := range selections {
		f, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		key := responseKeyOf(f)
		cur := seenField{name: f.Name.String(), args: fieldArgsKey(f.Arguments)}
		if prev, ok := seen[key]; ok {
			if prev != cur {
				errs = append(errs, errf("OverlappingFieldsCanBeMerged", "fields %q and %q both alias to %q and cannot be merged", prev.name, cur.name, key))
			}
			continue
		}
		seen[key] = cur
	}
	return errs
}

func fieldArgsKey(args []*ast.Argument) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Name.String() + ":" + a.Value.String()
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (v *opValidator) arguments(args []*ast.Argument, fieldDef *model.Field, fieldName, parentTypeName string) []error {
	var errs []error
	seen := map[string]bool{}
	byName := map[string]model.Argument{}
	for _, a := range fieldDef.Arguments {
		byName[a.Name] = a
	}

	for _, arg := range args {
		name := arg.Name.String()
		if seen[name] {
			errs = append(errs, errf("UniqueArgumentNames", "argument %q repeated on field %q", name, fieldName))
		}
		seen[name] = true
		argDef, ok := byName[name]
		if !ok {
			errs = append(errs, errf("KnownArgumentNames", "unknown argument %q on field %s.%s", name, parentTypeName, fieldName))
			continue
		}
		ref := model.ParseTypeRef(argDef.Type)
		desc := fmt.Sprintf("argument %q of field %s.%s", name, parentTypeName, fieldName)
		errs = append(errs, v.checkValueAgainstRef(arg.Value, ref, "ArgumentsOfCorrectType", desc)...)
		v.collectVariables(arg.Value, ref, argDef.DefaultValue != "")
	}

	for _, a := range fieldDef.Arguments {
		if isRequiredArgType(a.Type) && a.DefaultValue == "" && !seen[a.Name] {
			errs = append(errs, errf("ProvidedRequiredArguments", "missing required argument %q on field %s.%s", a.Name, parentTypeName, fieldName))
		}
	}
	return errs
}

func isRequiredArgType(t string) bool {
	return len(t) > 0 && t[len(t)-1] == '!'
}

// checkValueAgainstRef implements ArgumentsOfCorrectType (and, called with
// rule="DefaultValuesOfCorrectType" from checkVariables, that rule too) by
// comparing a literal value's AST shape against its declared type
// reference. Variables are skipped here; their own compatibility is
// checked separately in checkVariables via VariablesInAllowedPosition.
func (v *opValidator) checkValueAgainstRef(val ast.Value, ref model.TypeRef, rule, desc string) []error {
	if val == nil {
		return nil
	}
	if _, ok := val.(*ast.Variable); ok {
		return nil
	}

	if ref.List {
		if lv, ok := val.(*ast.ListValue); ok {
			var errs []error
			for _, item := range lv.Values {
				errs = append(errs, v.checkValueAgainstRef(item, *ref.ListType, rule, desc)...)
			}
			return errs
		}
		// a bare value is coerced into a single-element list.
		return v.checkValueAgainstRef(val, *ref.ListType, rule, desc)
	}

	switch ref.Named {
	case "Int":
		if _, ok := val.(*ast.IntValue); !ok {
			return []error{errf(rule, "%s: expected an Int literal", desc)}
		}
		return nil
	case "Float":
		switch val.(type) {
		case *ast.FloatValue, *ast.IntValue:
			return nil
		}
		return []error{errf(rule, "%s: expected a Float literal", desc)}
	case "String":
		if _, ok := val.(*ast.StringValue); !ok {
			return []error{errf(rule, "%s: expected a String literal", desc)}
		}
		return nil
	case "ID":
		switch val.(type) {
		case *ast.StringValue, *ast.IntValue:
			return nil
		}
		return []error{errf(rule, "%s: expected an ID literal", desc)}
	case "Boolean":
		if _, ok := val.(*ast.BooleanValue); !ok {
			return []error{errf(rule, "%s: expected a Boolean literal", desc)}
		}
		return nil
	}

	t, known := v.schema.Lookup(ref.Named)
	if !known {
		return nil // well-known/custom scalar: no shape to check
	}
	switch t.Kind {
	case model.Enum:
		ev, ok := val.(*ast.EnumValue)
		if !ok {
			return []error{errf(rule, "%s: expected an enum value of %s", desc, ref.Named)}
		}
		for _, member := range t.EnumValues() {
			if member == ev.Value {
				return nil
			}
		}
		return []error{errf(rule, "%s: %q is not a member of enum %s", desc, ev.Value, ref.Named)}
	case model.InputObject:
		ov, ok := val.(*ast.ObjectValue)
		if !ok {
			return []error{errf(rule, "%s: expected an input object of %s", desc, ref.Named)}
		}
		var errs []error
		seen := map[string]bool{}
		for _, field := range ov.Fields {
			fname := field.Name.String()
			if seen[fname] {
				errs = append(errs, errf("UniqueInputFieldNames", "%s: input field %q repeated", desc, fname))
			}
			seen[fname] = true
			fd, ok := t.InputField(fname)
			if !ok {
				continue
			}
			errs = append(errs, v.checkValueAgainstRef(field.Value, model.ParseTypeRef(fd.Type), rule, desc+"."+fname)...)
		}
		return errs
	default:
		return nil
	}
}

// markUsed records every variable referenced anywhere inside val, without
// tracking the position it was used in (used for directive arguments,
// where the schema doesn't carry argument type definitions to check
// against).
func (v *opValidator) markUsed(val ast.Value) {
	switch vv := val.(type) {
	case *ast.Variable:
		v.usedVariables[vv.Name] = true
	case *ast.ListValue:
		for _, item := range vv.Values {
			v.markUsed(item)
		}
	case *ast.ObjectValue:
		for _, f := range vv.Fields {
			v.markUsed(f.Value)
		}
	}
}

// collectVariables records every variable referenced inside val along
// with the type reference and default-value context it was used at, for
// the later VariablesInAllowedPosition check.
func (v *opValidator) collectVariables(val ast.Value, ref model.TypeRef, hasSiteDefault bool) {
	switch vv := val.(type) {
	case *ast.Variable:
		v.usedVariables[vv.Name] = true
		v.varUsages = append(v.varUsages, varUsage{name: vv.Name, ref: ref, hasSiteDefault: hasSiteDefault})
	case *ast.ListValue:
		var elemRef model.TypeRef
		if ref.List && ref.ListType != nil {
			elemRef = *ref.ListType
		}
		for _, item := range vv.Values {
			v.collectVariables(item, elemRef, false)
		}
	case *ast.ObjectValue:
		var t *model.Type
		if ref.Named != "" {
			t, _ = v.schema.Lookup(ref.Named)
		}
		for _, f := range vv.Fields {
			var fieldRef model.TypeRef
			if t != nil {
				if fd, ok := t.InputField(f.Name.String()); ok {
					fieldRef = model.ParseTypeRef(fd.Type)
				}
			}
			v.collectVariables(f.Value, fieldRef, false)
		}
	}
}

// checkVariables implements NoUndefinedVariables, NoUnusedVariables,
// UniqueVariableNames, VariablesAreInputTypes, DefaultValuesOfCorrectType,
// and VariablesInAllowedPosition.
func (v *opValidator) checkVariables(op *ast.OperationDefinition) []error {
	var errs []error
	declared := map[string]model.TypeRef{}
	seenNames := map[string]bool{}

	for _, def := range op.VariableDefinitions {
		name := def.Variable.Name
		if seenNames[name] {
			errs = append(errs, errf("UniqueVariableNames", "variable $%s declared more than once", name))
		}
		seenNames[name] = true

		typeStr := def.Type.String()
		ref := model.ParseTypeRef(typeStr)
		declared[name] = ref

		if !builtinScalars[ref.Named] {
			if t, ok := v.schema.Lookup(ref.Named); !ok {
				errs = append(errs, errf("VariablesAreInputTypes", "variable $%s has unknown type %q", name, typeStr))
			} else if t.Kind == model.Object || t.Kind == model.Interface || t.Kind == model.Union {
				errs = append(errs, errf("VariablesAreInputTypes", "variable $%s has non-input type %q", name, typeStr))
			}
		}

		if def.DefaultValue != nil {
			desc := fmt.Sprintf("default value of variable $%s", name)
			errs = append(errs, v.checkValueAgainstRef(def.DefaultValue, ref, "DefaultValuesOfCorrectType", desc)...)
		}
	}

	for name := range v.usedVariables {
		if _, ok := declared[name]; !ok {
			errs = append(errs, errf("NoUndefinedVariables", "variable $%s is used but not defined", name))
		}
	}
	for name := range declared {
		if !v.usedVariables[name] {
			errs = append(errs, errf("NoUnusedVariables", "variable $%s is defined but never used", name))
		}
	}

	for _, u := range v.varUsages {
		varRef, ok := declared[u.name]
		if !ok {
			continue // already reported via NoUndefinedVariables
		}
		if !typeRefUsableAt(varRef, u.ref, u.hasSiteDefault) {
			errs = append(errs, errf("VariablesInAllowedPosition", "variable $%s of type %s cannot be used where %s is expected", u.name, describeRef(varRef), describeRef(u.ref)))
		}
	}

	return errs
}

// typeRefUsableAt reports whether a variable declared as varRef may be
// used at a position expecting locRef, following the same relaxation the
// spec allows: a nullable variable may fill a non-null location only if
// that location carries its own default value.
func typeRefUsableAt(varRef, locRef model.TypeRef, hasSiteDefault bool) bool {
	if locRef.NonNull && !varRef.NonNull && !hasSiteDefault {
		return false
	}
	if locRef.List {
		if !varRef.List || varRef.ListType == nil || locRef.ListType == nil {
			return false
		}
		return typeRefUsableAt(*varRef.ListType, *locRef.ListType, false)
	}
	if varRef.List {
		return false
	}
	return varRef.Named == locRef.Named
}

func describeRef(r model.TypeRef) string {
	s := r.Named
	if r.List && r.ListType != nil {
		s = "[" + describeRef(*r.ListType) + "]"
	}
	if r.NonNull {
		s += "!"
	}
	return s
}
