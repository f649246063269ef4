package compose

import (
	"strings"

	"github.com/n9te9/graphql-parser/ast"
)

// linkInfo is the result of scanning a subgraph's `extend schema @link(...)`
// block (spec §4.B step 3).
type linkInfo struct {
	version   string
	namespace string
	mapping   map[string]string // imported/renamed short name -> canonical "key" etc. (no "@")
}

const defaultFederationNamespace = "federation__"

// detectLink inspects the document's schema definitions for a federation
// @link directive and builds the directive_mapping table.
func detectLink(doc *ast.Document) linkInfo {
	info := linkInfo{namespace: defaultFederationNamespace, mapping: make(map[string]string)}

	for _, def := range doc.Definitions {
		sd, ok := def.(*ast.SchemaDefinition)
		if !ok {
			continue
		}
		for _, d := range sd.Directives {
			if d.Name != "link" {
				continue
			}
			url, _ := stringArg(d, "url")
			if !strings.Contains(url, "/federation/v") {
				continue
			}
			idx := strings.Index(url, "/federation/v")
			info.version = strings.TrimSuffix(url[idx+len("/federation/v"):], "/")

			if as, ok := stringArg(d, "as"); ok && as != "" {
				info.namespace = as + "__"
			}

			for _, arg := range d.Arguments {
				if arg.Name.String() != "import" {
					continue
				}
				lv, ok := arg.Value.(*ast.ListValue)
				if !ok {
					continue
				}
				for _, item := range lv.Values {
					switch v := item.(type) {
					case *ast.StringValue:
						canon := strings.TrimPrefix(v.Value, "@")
						info.mapping[canon] = canon
					case *ast.ObjectValue:
						var name, as string
						for _, f := range v.Fields {
							switch f.Name.String() {
							case "name":
								if sv, ok := f.Value.(*ast.StringValue); ok {
									name = strings.TrimPrefix(sv.Value, "@")
								}
							case "as":
								if sv, ok := f.Value.(*ast.StringValue); ok {
									as = strings.TrimPrefix(sv.Value, "@")
								}
							}
						}
						if name != "" {
							if as == "" {
								as = name
							}
							info.mapping[as] = name
						}
					}
				}
			}
		}
	}

	return info
}

// mappingFor maps the *declared* directive name
// (short form, possibly renamed) to its canonical federation name,
// falling back to accepting the fully namespaced form
// ("federation__key") transparently.
func (l linkInfo) mappingFor(declared string) (canon string, ok bool) {
	if canon, ok = l.mapping[declared]; ok {
		return canon, true
	}
	if strings.HasPrefix(declared, l.namespace) {
		return strings.TrimPrefix(declared, l.namespace), true
	}
	return "", false
}
