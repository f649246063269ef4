package compose

import (
	"fmt"
	"strings"

	"github.com/n9te9/fedgate/internal/model"
	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
)

// parseSDL parses one subgraph's SDL document into an AST, the way
// graph.NewSubGraphV2 does in the teacher's subgraph_v2.go.
func parseSDL(src string) (*ast.Document, error) {
	l := lexer.New(src)
	p := parser.New(l)
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("parse error: %v", errs)
	}
	return doc, nil
}

// directiveByName returns the first directive named name (bare or
// namespaced/renamed via the subgraph's @link directive_mapping).
func directiveByName(directives []*ast.Directive, name string, link linkInfo) (*ast.Directive, bool) {
	for _, d := range directives {
		if canon, ok := link.mappingFor(d.Name); ok && canon == name {
			return d, true
		}
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

func allDirectivesByName(directives []*ast.Directive, name string, link linkInfo) []*ast.Directive {
	var out []*ast.Directive
	for _, d := range directives {
		if canon, ok := link.mappingFor(d.Name); ok && canon == name {
			out = append(out, d)
			continue
		}
		if d.Name == name {
			out = append(out, d)
		}
	}
	return out
}

func hasDirective(directives []*ast.Directive, name string, link linkInfo) bool {
	_, ok := directiveByName(directives, name, link)
	return ok
}

func stringArg(d *ast.Directive, name string) (string, bool) {
	for _, arg := range d.Arguments {
		if arg.Name.String() == name {
			if sv, ok := arg.Value.(*ast.StringValue); ok {
				return sv.Value, true
			}
			return strings.Trim(arg.Value.String(), "\""), true
		}
	}
	return "", false
}

func boolArg(d *ast.Directive, name string, def bool) bool {
	for _, arg := range d.Arguments {
		if arg.Name.String() == name {
			if bv, ok := arg.Value.(*ast.BooleanValue); ok {
				return bv.Value
			}
			return arg.Value.String() == "true"
		}
	}
	return def
}

// printASTType renders an ast.Type the way the teacher's query builder
// does (field.Type.String()), used to populate model.Field.Type and
// model.Argument.Type as plain printed strings so the schema model has
// no dependency on the AST library's Type interface.
func printASTType(t ast.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}

// wellKnownScalars are cross-ecosystem scalar names the composer accepts
// silently from whichever subgraph defines them first (spec §4.B step 4,
// §9 design note on the pragmatic scalar deviation).
var wellKnownScalars = map[string]bool{
	"DateTime": true,
	"Date":     true,
	"Time":     true,
	"JSON":     true,
	"UUID":     true,
	"Email":    true,
	"URL":      true,
}

func fieldTags(directives []*ast.Directive, link linkInfo) []string {
	var tags []string
	for _, d := range allDirectivesByName(directives, "tag", link) {
		if name, ok := stringArg(d, "name"); ok {
			tags = append(tags, name)
		}
	}
	return tags
}

func parseKeys(directives []*ast.Directive, link linkInfo) ([]model.EntityKey, error) {
	var keys []model.EntityKey
	for _, d := range allDirectivesByName(directives, "key", link) {
		fields, ok := stringArg(d, "fields")
		if !ok {
			continue
		}
		set, err := model.ParseFieldSet(fields)
		if err != nil {
			return nil, fmt.Errorf("invalid @key(fields: %q): %w", fields, err)
		}
		keys = append(keys, model.EntityKey{
			Fields:     set,
			Resolvable: boolArg(d, "resolvable", true),
		})
	}
	return keys, nil
}

func parseArguments(args []*ast.InputValueDefinition) []model.Argument {
	out := make([]model.Argument, 0, len(args))
	for _, a := range args {
		arg := model.Argument{
			Name: a.Name.String(),
			Type: printASTType(a.Type),
		}
		if a.DefaultValue != nil {
			arg.DefaultValue = a.DefaultValue.String()
		}
		out = append(out, arg)
	}
	return out
}
