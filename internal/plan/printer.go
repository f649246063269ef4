package plan

import (
	"fmt"
	"strings"

	"github.com/n9te9/graphql-parser/ast"
)

// printRootQuery prints a Fetch's document for a root-level bucket of
// fields, in the teacher's query-builder style (federation/executor/
// query_builder_v2.go writeSelection/writeValue), parameterized over
// operation kind.
func (c *planContext) printRootQuery(op ast.OperationType, selections []ast.Selection, _ string) string {
	var sb strings.Builder
	sb.WriteString(operationKeyword(op))
	writeVarDefs(&sb, c.varDefs)
	sb.WriteString(" {\n")
	for _, sel := range selections {
		writeSelection(&sb, sel, "\t")
	}
	sb.WriteString("}")
	return sb.String()
}

// printFlattenQuery prints the `_entities(representations: ...)` shape
// (spec §4.E.9).
func (c *planContext) printFlattenQuery(typeName string, selections []ast.Selection, prefix int) string {
	var sb strings.Builder
	sb.WriteString("query($representations:[_Any!]!")
	for _, n := range c.varDefs {
		sb.WriteString(", $")
		sb.WriteString(n)
	}
	sb.WriteString(") {\n")
	sb.WriteString("\t_entities(representations: $representations) {\n")
	sb.WriteString("\t\t... on ")
	sb.WriteString(typeName)
	sb.WriteString(" {\n")
	for _, sel := range selections {
		writeSelection(&sb, sel, "\t\t\t")
	}
	sb.WriteString("\t\t}\n\t}\n}")
	_ = prefix
	return sb.String()
}

func operationKeyword(op ast.OperationType) string {
	switch op {
	case ast.Mutation:
		return "mutation"
	case ast.Subscription:
		return "subscription"
	default:
		return "query"
	}
}

func writeVarDefs(sb *strings.Builder, names []string) {
	if len(names) == 0 {
		return
	}
	sb.WriteString("(")
	for i, n := range names {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("$")
		sb.WriteString(n)
	}
	sb.WriteString(")")
}

func printSelectionSet(selections []ast.Selection, indent string) string {
	var sb strings.Builder
	for _, sel := range selections {
		writeSelection(&sb, sel, indent+"\t")
	}
	return sb.String()
}

func writeSelection(sb *strings.Builder, sel ast.Selection, indent string) {
	switch s := sel.(type) {
	case *ast.Field:
		sb.WriteString(indent)
		if s.Alias != nil && s.Alias.String() != "" {
			sb.WriteString(s.Alias.String())
			sb.WriteString(": ")
		}
		sb.WriteString(s.Name.String())
		if len(s.Arguments) > 0 {
			sb.WriteString("(")
			for i, arg := range s.Arguments {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(arg.Name.String())
				sb.WriteString(": ")
				writeValue(sb, arg.Value)
			}
			sb.WriteString(")")
		}
		if len(s.SelectionSet) > 0 {
			sb.WriteString(" {\n")
			for _, child := range s.SelectionSet {
				writeSelection(sb, child, indent+"\t")
			}
			sb.WriteString(indent)
			sb.WriteString("}")
		}
		sb.WriteString("\n")
	case *ast.InlineFragment:
		sb.WriteString(indent)
		sb.WriteString("... on ")
		sb.WriteString(s.TypeCondition.Name.String())
		sb.WriteString(" {\n")
		for _, child := range s.SelectionSet {
			writeSelection(sb, child, indent+"\t")
		}
		sb.WriteString(indent)
		sb.WriteString("}\n")
	case *ast.FragmentSpread:
		sb.WriteString(indent)
		sb.WriteString("...")
		sb.WriteString(s.Name.String())
		sb.WriteString("\n")
	}
}

func writeValue(sb *strings.Builder, val ast.Value) {
	switch v := val.(type) {
	case *ast.StringValue:
		sb.WriteString(fmt.Sprintf("%q", v.Value))
	case *ast.IntValue:
		fmt.Fprintf(sb, "%d", v.Value)
	case *ast.FloatValue:
		fmt.Fprintf(sb, "%v", v.Value)
	case *ast.BooleanValue:
		fmt.Fprintf(sb, "%t", v.Value)
	case *ast.Variable:
		sb.WriteString("$")
		sb.WriteString(v.Name)
	case *ast.ListValue:
		sb.WriteString("[")
		for i, item := range v.Values {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, item)
		}
		sb.WriteString("]")
	case *ast.ObjectValue:
		sb.WriteString("{")
		for i, field := range v.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(field.Name.String())
			sb.WriteString(": ")
			writeValue(sb, field.Value)
		}
		sb.WriteString("}")
	case *ast.EnumValue:
		sb.WriteString(v.Value)
	default:
		sb.WriteString("null")
	}
}
