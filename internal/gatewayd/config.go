// Package gatewayd wires the composer, validator, and planner into a
// long-running gateway process: it loads subgraph SDLs, composes them
// once at startup, and serves a planning endpoint over HTTP.
package gatewayd

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// SubgraphConfig names one subgraph and where its SDL comes from: either
// local SchemaFiles, or a live Endpoint fetched once at startup via
// `{ _service { sdl } }`. Endpoint takes precedence when both are set.
type SubgraphConfig struct {
	Name        string      `yaml:"name"`
	SchemaFiles []string    `yaml:"schema_files"`
	Endpoint    string      `yaml:"endpoint"`
	Retry       RetryConfig `yaml:"retry"`
}

// TracingConfig mirrors the teacher gateway's opentelemetry settings.
type TracingConfig struct {
	Enable bool `yaml:"enable" default:"false"`
}

// GatewayOption is the gateway.yaml shape: ambient server settings plus
// the subgraphs to compose at startup. Named after the teacher's
// gateway.GatewayOption, which this supersedes.
type GatewayOption struct {
	ServiceName     string           `yaml:"service_name"`
	Port            int              `yaml:"port" default:"4000"`
	TimeoutDuration string           `yaml:"timeout_duration" default:"5s"`
	Subgraphs       []SubgraphConfig `yaml:"subgraphs"`
	Tracing         TracingConfig    `yaml:"tracing"`
}

// LoadConfig reads and unmarshals a gateway.yaml-shaped config file.
func LoadConfig(path string) (*GatewayOption, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gateway config %q: %w", path, err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway config %q: %w", path, err)
	}

	var opt GatewayOption
	if err := yaml.Unmarshal(b, &opt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gateway config: %w", err)
	}
	if opt.Port == 0 {
		opt.Port = 4000
	}
	if opt.TimeoutDuration == "" {
		opt.TimeoutDuration = "5s"
	}
	return &opt, nil
}

// ReadSubgraphSDLs resolves each subgraph's SDL: fetched live from
// Endpoint if set, otherwise concatenated from SchemaFiles.
func ReadSubgraphSDLs(subgraphs []SubgraphConfig) (map[string]string, error) {
	httpClient := &http.Client{Timeout: 10 * time.Second}

	out := make(map[string]string, len(subgraphs))
	for _, sg := range subgraphs {
		if sg.Endpoint != "" {
			sdl, err := FetchSDL(sg.Endpoint, httpClient, sg.Retry)
			if err != nil {
				return nil, fmt.Errorf("subgraph %q: %w", sg.Name, err)
			}
			out[sg.Name] = sdl
			continue
		}

		var sdl []byte
		for _, f := range sg.SchemaFiles {
			src, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("subgraph %q: %w", sg.Name, err)
			}
			sdl = append(sdl, src...)
			sdl = append(sdl, '\n')
		}
		out[sg.Name] = string(sdl)
	}
	return out, nil
}
