package compose

import "fmt"

// Code identifies one member of the composition error taxonomy (spec §7).
type Code string

const (
	CodeDefinitionConflicted         Code = "DEFINITION_CONFLICTED"
	CodeTypeKindConflicted           Code = "TYPE_KIND_CONFLICTED"
	CodeFieldConflicted              Code = "FIELD_CONFLICTED"
	CodeFieldTypeConflicted          Code = "FIELD_TYPE_CONFLICTED"
	CodeValueTypeOwnershipConflicted Code = "VALUE_TYPE_OWNERSHIP_CONFLICTED"
	CodeNonShareableFieldReferenced  Code = "NON_SHAREABLE_FIELD_REFERENCED"
	CodeIncompatibleFieldArguments   Code = "INCOMPATIBLE_FIELD_ARGUMENTS"
	CodeMissingRequiredArgument      Code = "MISSING_REQUIRED_ARGUMENT"
	CodeIncompatibleArgumentTypes    Code = "INCOMPATIBLE_ARGUMENT_TYPES"
	CodeKeyFieldsMissing             Code = "KEY_FIELDS_MISSING"
	CodeIncompleteEntityReference    Code = "INCOMPLETE_ENTITY_REFERENCE"
)

// Error is a structured composition error carrying type/field/service
// context, per spec §7. Composition is fail-fast: the first Error
// encountered aborts Compose.
type Error struct {
	Code       Code
	TypeName   string
	FieldName  string
	ArgName    string
	Service    string
	Service2   string
	Type1      string
	Type2      string
	Kind1      string
	Kind2      string
	OwnerSvc   string
	CurrentSvc string
	Missing    []string
}

func (e *Error) Error() string {
	switch e.Code {
	case CodeDefinitionConflicted:
		return fmt.Sprintf("type %q redeclared with a conflicting shape", e.TypeName)
	case CodeTypeKindConflicted:
		return fmt.Sprintf("type %q declared as both %s and %s", e.TypeName, e.Kind1, e.Kind2)
	case CodeFieldConflicted:
		return fmt.Sprintf("field %s.%s declared in multiple subgraphs without @shareable", e.TypeName, e.FieldName)
	case CodeFieldTypeConflicted:
		return fmt.Sprintf("field %s.%s has conflicting types %q and %q", e.TypeName, e.FieldName, e.Type1, e.Type2)
	case CodeValueTypeOwnershipConflicted:
		return fmt.Sprintf("type %q already owned by %q, redeclared by %q", e.TypeName, e.OwnerSvc, e.CurrentSvc)
	case CodeNonShareableFieldReferenced:
		return fmt.Sprintf("field %s.%s marked @external in %q but is not shareable or a key field", e.TypeName, e.FieldName, e.Service)
	case CodeIncompatibleFieldArguments:
		return fmt.Sprintf("field %s.%s has incompatible argument sets between %q and %q", e.TypeName, e.FieldName, e.Service, e.Service2)
	case CodeMissingRequiredArgument:
		return fmt.Sprintf("field %s.%s is missing required argument %q in %q", e.TypeName, e.FieldName, e.ArgName, e.Service)
	case CodeIncompatibleArgumentTypes:
		return fmt.Sprintf("field %s.%s argument %q has conflicting types %q and %q", e.TypeName, e.FieldName, e.ArgName, e.Type1, e.Type2)
	case CodeKeyFieldsMissing:
		return fmt.Sprintf("@key on %q references field %q which does not exist in %q", e.TypeName, e.FieldName, e.Service)
	case CodeIncompleteEntityReference:
		return fmt.Sprintf("entity %q referenced incompletely by %q, missing fields %v", e.TypeName, e.Service, e.Missing)
	default:
		return fmt.Sprintf("composition error %s on %s.%s", e.Code, e.TypeName, e.FieldName)
	}
}

// Warning is a non-fatal composition diagnostic (spec §9 open questions:
// unresolved @requires fallback).
type Warning struct {
	Message  string
	TypeName string
	Field    string
	Service  string
}
