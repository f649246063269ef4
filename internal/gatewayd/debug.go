package gatewayd

import (
	"fmt"
	"os"

	"github.com/n9te9/fedgate/internal/compose"
	"github.com/n9te9/fedgate/internal/model"
	"github.com/n9te9/fedgate/internal/plan"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
)

const exampleConfig = `service_name: fedgate
port: 4000
timeout_duration: 5s
tracing:
  enable: false
subgraphs:
  - name: products
    schema_files:
      - subgraphs/products.graphql
  - name: reviews
    schema_files:
      - subgraphs/reviews.graphql
`

// Init scaffolds a starter gatewayd config at path, refusing to overwrite
// an existing file.
func Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	return os.WriteFile(path, []byte(exampleConfig), 0o644)
}

// ComposeFromConfig loads configPath and composes its subgraphs, the
// debug-command counterpart to Run's startup composition step.
func ComposeFromConfig(configPath string) (*model.ComposedSchema, []compose.Warning, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	sdls, err := ReadSubgraphSDLs(cfg.Subgraphs)
	if err != nil {
		return nil, nil, err
	}
	var subgraphs []compose.Subgraph
	for _, sg := range cfg.Subgraphs {
		subgraphs = append(subgraphs, compose.Subgraph{Name: sg.Name, SDL: sdls[sg.Name]})
	}
	return compose.Compose(subgraphs)
}

// PlanQuery parses queryText against schema and runs the planner, for use
// by the "plan" debug command.
func PlanQuery(schema *model.ComposedSchema, queryText, operationName string) (*plan.RootPlan, error) {
	l := lexer.New(queryText)
	p := parser.New(l)
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("parse error: %v", errs)
	}
	return plan.New(schema).Plan(doc, operationName, nil)
}
