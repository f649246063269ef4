package plan

import "encoding/json"

// MarshalJSON renders the canonical Plan JSON shape (spec §6): every
// node carries a "type" discriminator.

type sequenceJSON struct {
	Type  string `json:"type"`
	Nodes []Node `json:"nodes"`
}

func (s *Sequence) MarshalJSON() ([]byte, error) {
	nodes := s.Nodes
	if nodes == nil {
		nodes = []Node{}
	}
	return json.Marshal(sequenceJSON{Type: "sequence", Nodes: nodes})
}

type parallelJSON struct {
	Type  string `json:"type"`
	Nodes []Node `json:"nodes"`
}

func (p *Parallel) MarshalJSON() ([]byte, error) {
	nodes := p.Nodes
	if nodes == nil {
		nodes = []Node{}
	}
	return json.Marshal(parallelJSON{Type: "parallel", Nodes: nodes})
}

type fetchJSON struct {
	Type      string         `json:"type"`
	Service   string         `json:"service"`
	Variables map[string]any `json:"variables"`
	Query     string         `json:"query"`
}

func (f *Fetch) MarshalJSON() ([]byte, error) {
	vars := f.Variables
	if vars == nil {
		vars = map[string]any{}
	}
	return json.Marshal(fetchJSON{Type: "fetch", Service: f.Service, Variables: vars, Query: f.Query})
}

type pathSegmentJSON struct {
	Name         string `json:"name"`
	IsList       bool   `json:"is_list"`
	PossibleType string `json:"possible_type,omitempty"`
}

type flattenJSON struct {
	Type      string            `json:"type"`
	Path      []pathSegmentJSON `json:"path"`
	Prefix    int               `json:"prefix"`
	Service   string            `json:"service"`
	Variables map[string]any    `json:"variables"`
	Query     string            `json:"query"`
}

func (f *Flatten) MarshalJSON() ([]byte, error) {
	path := make([]pathSegmentJSON, len(f.Path))
	for i, seg := range f.Path {
		path[i] = pathSegmentJSON{Name: seg.Name, IsList: seg.IsList, PossibleType: seg.PossibleType}
	}
	vars := f.Variables
	if vars == nil {
		vars = map[string]any{}
	}
	return json.Marshal(flattenJSON{Type: "flatten", Path: path, Prefix: f.Prefix, Service: f.Service, Variables: vars, Query: f.Query})
}

type introspectionJSON struct {
	Type         string `json:"type"`
	SelectionSet string `json:"selection_set"`
}

func (i *Introspection) MarshalJSON() ([]byte, error) {
	return json.Marshal(introspectionJSON{Type: "introspection", SelectionSet: i.SelectionSet})
}

type subscribeJSON struct {
	Type           string   `json:"type"`
	SubscribeNodes []*Fetch `json:"subscribeNodes"`
	FlattenNode    Node     `json:"flattenNode,omitempty"`
}

func (s *Subscribe) MarshalJSON() ([]byte, error) {
	return json.Marshal(subscribeJSON{Type: "subscribe", SubscribeNodes: s.SubscribeNodes, FlattenNode: s.FlattenNode})
}
