// Package model implements the Federation Schema Model: an immutable,
// insertion-ordered, read-only view of a composed federation schema
// (spec §3, §4.A). It never parses SDL itself — the composer builds it
// from the AST produced by github.com/n9te9/graphql-parser.
package model

// TypeKind identifies the GraphQL type system kind of a Type.
type TypeKind int

const (
	Scalar TypeKind = iota
	Object
	Interface
	Union
	Enum
	InputObject
)

func (k TypeKind) String() string {
	switch k {
	case Scalar:
		return "SCALAR"
	case Object:
		return "OBJECT"
	case Interface:
		return "INTERFACE"
	case Union:
		return "UNION"
	case Enum:
		return "ENUM"
	case InputObject:
		return "INPUT_OBJECT"
	default:
		return "UNKNOWN"
	}
}

// KeyField is one segment of a KeyFieldSet: a field name plus, for nested
// key selections such as `@key(fields: "id address { street }")`, the
// nested field set under it.
type KeyField struct {
	Name   string
	Nested *KeyFieldSet
}

// KeyFieldSet is an ordered selection shape with no arguments and no
// fragments, as produced by parsing an `@key`/`@requires`/`@provides`
// `fields:` string (spec §3).
type KeyFieldSet struct {
	Fields []KeyField
}

// Names returns the top-level field names of the set, in declaration order.
func (k *KeyFieldSet) Names() []string {
	if k == nil {
		return nil
	}
	names := make([]string, len(k.Fields))
	for i, f := range k.Fields {
		names[i] = f.Name
	}
	return names
}

// Lookup returns the KeyField for name at the top level, if present.
func (k *KeyFieldSet) Lookup(name string) (KeyField, bool) {
	if k == nil {
		return KeyField{}, false
	}
	for _, f := range k.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return KeyField{}, false
}

// Argument is a field or directive argument definition.
type Argument struct {
	Name         string
	Type         string // printed type reference, e.g. "[ID!]!"
	DefaultValue string // printed literal, "" if none
}

// Field carries the federation-aware attributes of a field definition
// (spec §3 "Field").
type Field struct {
	Name              string
	Arguments         []Argument
	Type              string // printed result type reference
	Deprecated        bool
	DeprecationReason string

	// Service is the subgraph that resolves this field. Empty for fields
	// on unowned/shareable types where no single subgraph is pinned, or
	// where the owning subgraph is the type's Owner. Root operation fields
	// always carry it, except the gateway-injected __schema/__type/_service.
	Service string

	Requires     *KeyFieldSet
	Provides     *KeyFieldSet
	OverrideFrom string // non-empty iff @override(from: "...") was declared
	Shareable    bool
	External     bool
	Tags         []string
	Inaccessible bool
}

// EntityKey is one `@key` declaration from one subgraph.
type EntityKey struct {
	Fields     *KeyFieldSet
	Resolvable bool
}

// Type is a single entry of the Composed Schema's type map (spec §3 "Type").
type Type struct {
	Name string
	Kind TypeKind

	fieldOrder []string
	fields     map[string]*Field

	possibleTypes *OrderedSet // object type names; interfaces/unions
	implements    *OrderedSet // interface names; objects/interfaces

	enumValues    []string
	inputFields   map[string]*Field
	inputOrder    []string

	// Owner is the subgraph that exclusively owns this type. Empty when
	// the type is an entity, shareable, or a root operation type (I1).
	Owner string

	// Keys maps subgraph name -> ordered @key declarations from that
	// subgraph. KeyOrder preserves the order subgraphs were merged in.
	Keys     map[string][]EntityKey
	KeyOrder []string

	IsEntity bool
	Tags     []string
}

// NewType constructs an empty Type of the given kind. Exposed so the
// composer can build up types incrementally while merging subgraphs.
func NewType(name string, kind TypeKind) *Type {
	return newType(name, kind)
}

func newType(name string, kind TypeKind) *Type {
	return &Type{
		Name:          name,
		Kind:          kind,
		fields:        make(map[string]*Field),
		possibleTypes: NewOrderedSet(),
		implements:    NewOrderedSet(),
		inputFields:   make(map[string]*Field),
		Keys:          make(map[string][]EntityKey),
	}
}

// Field returns the field definition by name, in insertion order safety.
func (t *Type) Field(name string) (*Field, bool) {
	f, ok := t.fields[name]
	return f, ok
}

// Fields returns all fields of the type in declaration (insertion) order.
func (t *Type) Fields() []*Field {
	out := make([]*Field, 0, len(t.fieldOrder))
	for _, name := range t.fieldOrder {
		out = append(out, t.fields[name])
	}
	return out
}

func (t *Type) setField(f *Field) {
	if _, exists := t.fields[f.Name]; !exists {
		t.fieldOrder = append(t.fieldOrder, f.Name)
	}
	t.fields[f.Name] = f
}

// SetField inserts or replaces a field definition, preserving first-seen
// order (exported for the composer).
func (t *Type) SetField(f *Field) { t.setField(f) }

// AddPossibleType records concreteName as a possible type of an
// interface/union (exported for the composer's reverse-implements pass).
func (t *Type) AddPossibleType(concreteName string) { t.possibleTypes.Add(concreteName) }

// AddImplements records that t implements the named interface (exported
// for the composer).
func (t *Type) AddImplements(interfaceName string) { t.implements.Add(interfaceName) }

// SetEnumValues sets the enum's ordered value list (exported for the composer).
func (t *Type) SetEnumValues(values []string) { t.enumValues = values }

// AddKey appends an @key declaration contributed by subGraph (exported
// for the composer).
func (t *Type) AddKey(subGraph string, key EntityKey) {
	if _, ok := t.Keys[subGraph]; !ok {
		t.KeyOrder = append(t.KeyOrder, subGraph)
	}
	t.Keys[subGraph] = append(t.Keys[subGraph], key)
}

// PossibleTypes returns the object type names implementing this
// interface/union, in the order they were discovered.
func (t *Type) PossibleTypes() []string {
	return t.possibleTypes.Items()
}

// Implements returns the interface names this object/interface implements.
func (t *Type) Implements() []string {
	return t.implements.Items()
}

// InputField returns an input field definition by name.
func (t *Type) InputField(name string) (*Field, bool) {
	f, ok := t.inputFields[name]
	return f, ok
}

// InputFields returns input fields in declaration order.
func (t *Type) InputFields() []*Field {
	out := make([]*Field, 0, len(t.inputOrder))
	for _, name := range t.inputOrder {
		out = append(out, t.inputFields[name])
	}
	return out
}

func (t *Type) setInputField(f *Field) {
	if _, exists := t.inputFields[f.Name]; !exists {
		t.inputOrder = append(t.inputOrder, f.Name)
	}
	t.inputFields[f.Name] = f
}

// SetInputField inserts or replaces an input field definition (exported
// for the composer).
func (t *Type) SetInputField(f *Field) { t.setInputField(f) }

// EnumValues returns the enum's values in declaration order.
func (t *Type) EnumValues() []string {
	return t.enumValues
}

// KeysFor returns the @key declarations contributed by subGraph, or nil.
func (t *Type) KeysFor(subGraph string) []EntityKey {
	return t.Keys[subGraph]
}

// DirectiveDef is a minimal directive definition entry (name + legal
// locations), used by the validator's "known directives" rule.
type DirectiveDef struct {
	Name      string
	Locations []string
	Repeatable bool
}

// ComposedSchema is the immutable, merged schema produced by the composer
// (spec §3 "Composed Schema", §4.A). It is safe for concurrent read access
// by any number of planner invocations once the composer has returned it.
type ComposedSchema struct {
	typeOrder []string
	types     map[string]*Type

	QueryType        string
	MutationType     string
	SubscriptionType string

	Directives map[string]DirectiveDef

	// FederationVersion/Namespace/DirectiveMapping capture the @link
	// metadata detected during composition (spec §4.B step 3).
	FederationVersion   string
	FederationNamespace string
	DirectiveMapping    map[string]string

	// Services lists subgraph names in sorted (deterministic) order.
	Services []string
}

func newComposedSchema() *ComposedSchema {
	return &ComposedSchema{
		types:            make(map[string]*Type),
		Directives:       make(map[string]DirectiveDef),
		DirectiveMapping: make(map[string]string),
	}
}

// Lookup returns the Type by name.
func (s *ComposedSchema) Lookup(name string) (*Type, bool) {
	t, ok := s.types[name]
	return t, ok
}

// Types returns all types in the order they were first introduced during
// composition, which itself follows sorted-subgraph merge order.
func (s *ComposedSchema) Types() []*Type {
	out := make([]*Type, 0, len(s.typeOrder))
	for _, name := range s.typeOrder {
		out = append(out, s.types[name])
	}
	return out
}

func (s *ComposedSchema) ensureType(name string, kind TypeKind) *Type {
	if t, ok := s.types[name]; ok {
		return t
	}
	t := newType(name, kind)
	s.types[name] = t
	s.typeOrder = append(s.typeOrder, name)
	return t
}

// EnsureType returns the Type named name, creating it with the given kind
// if absent (exported for the composer).
func (s *ComposedSchema) EnsureType(name string, kind TypeKind) *Type {
	return s.ensureType(name, kind)
}

// NewComposedSchema constructs an empty schema (exported for the composer).
func NewComposedSchema() *ComposedSchema {
	return newComposedSchema()
}

// SetType installs t directly (used when the composer needs to replace a
// type wholesale, e.g. resolving a placeholder root).
func (s *ComposedSchema) SetType(t *Type) {
	if _, exists := s.types[t.Name]; !exists {
		s.typeOrder = append(s.typeOrder, t.Name)
	}
	s.types[t.Name] = t
}

// RemoveType drops a type entirely (used to drop empty Mutation/
// Subscription roots per invariant I6).
func (s *ComposedSchema) RemoveType(name string) {
	if _, ok := s.types[name]; !ok {
		return
	}
	delete(s.types, name)
	for i, n := range s.typeOrder {
		if n == name {
			s.typeOrder = append(s.typeOrder[:i], s.typeOrder[i+1:]...)
			break
		}
	}
}

// IsPossibleType reports whether concreteName is a possible type of the
// named abstract type (interface or union), or is the type itself when
// named is an object.
func (s *ComposedSchema) IsPossibleType(abstractName, concreteName string) bool {
	if abstractName == concreteName {
		return true
	}
	t, ok := s.types[abstractName]
	if !ok {
		return false
	}
	switch t.Kind {
	case Interface, Union:
		for _, pt := range t.possibleTypes.Items() {
			if pt == concreteName {
				return true
			}
		}
	}
	return false
}

// Overlap reports whether two composite types (object/interface/union)
// could both apply to the same concrete runtime object, i.e. whether
// their possible-type sets intersect. Used for fragment-spread
// applicability during validation (spec §4.A).
func (s *ComposedSchema) Overlap(a, b string) bool {
	if a == b {
		return true
	}
	aTypes := s.concreteTypesOf(a)
	bSet := make(map[string]bool, len(s.concreteTypesOf(b)))
	for _, n := range s.concreteTypesOf(b) {
		bSet[n] = true
	}
	for _, n := range aTypes {
		if bSet[n] {
			return true
		}
	}
	return false
}

func (s *ComposedSchema) concreteTypesOf(name string) []string {
	t, ok := s.types[name]
	if !ok {
		return nil
	}
	switch t.Kind {
	case Object:
		return []string{name}
	case Interface, Union:
		return t.possibleTypes.Items()
	default:
		return nil
	}
}

// RootTypeName returns the object type name bound to the given operation
// kind ("query", "mutation", "subscription"), or "" if unbound (e.g. the
// schema has no Subscription root).
func (s *ComposedSchema) RootTypeName(operation string) string {
	switch operation {
	case "query":
		return s.QueryType
	case "mutation":
		return s.MutationType
	case "subscription":
		return s.SubscriptionType
	default:
		return ""
	}
}
