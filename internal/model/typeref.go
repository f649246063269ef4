package model

import "strings"

// TypeRef is a parsed GraphQL type reference: a chain of List/NonNull
// wrappers around a Named leaf (spec §4.A "resolve a Type reference").
type TypeRef struct {
	Named    string
	List     bool
	NonNull  bool
	ListType *TypeRef // set iff List is true
}

// ParseTypeRef parses a printed type reference such as "[Review!]!" into
// a TypeRef chain. It is intentionally independent of the AST library's
// own Type interface so the model package has no parser dependency;
// the composer converts from ast.Type into a printed string once, at the
// boundary, via its printASTType helper.
func ParseTypeRef(s string) TypeRef {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "!") {
		inner := ParseTypeRef(s[:len(s)-1])
		inner.NonNull = true
		return inner
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		inner := ParseTypeRef(s[1 : len(s)-1])
		return TypeRef{List: true, ListType: &inner}
	}
	return TypeRef{Named: s}
}

// NamedType returns the innermost named type of a type reference.
func (t TypeRef) NamedType() string {
	if t.List && t.ListType != nil {
		return t.ListType.NamedType()
	}
	return t.Named
}

// IsList reports whether any wrapper level of the reference is a list.
func (t TypeRef) IsList() bool {
	return t.List
}

// ResolveType resolves a printed type reference to its underlying Type
// definition in the schema (spec §4.A).
func (s *ComposedSchema) ResolveType(typeRef string) (*Type, bool) {
	named := ParseTypeRef(typeRef).NamedType()
	return s.Lookup(named)
}
