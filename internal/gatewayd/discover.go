package gatewayd

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// serviceSDLResponse is the response body from a subgraph's GraphQL
// endpoint when queried with `{ _service { sdl } }`.
type serviceSDLResponse struct {
	Data struct {
		Service struct {
			SDL string `json:"sdl"`
		} `json:"_service"`
	} `json:"data"`
}

// RetryConfig controls how FetchSDL retries a subgraph endpoint.
type RetryConfig struct {
	Attempts int    `yaml:"attempts" default:"3"`
	Timeout  string `yaml:"timeout" default:"5s"`
}

// FetchSDL fetches a subgraph's SDL by sending `{ _service { sdl } }` to
// its GraphQL endpoint, retrying up to retry.Attempts times. This is a
// one-shot startup call, not a polling loop: gatewayd composes once and
// does not watch subgraphs for schema changes.
func FetchSDL(endpoint string, httpClient *http.Client, retry RetryConfig) (string, error) {
	attempts := retry.Attempts
	if attempts <= 0 {
		attempts = 3
	}

	timeoutDuration := 5 * time.Second
	if retry.Timeout != "" {
		if d, err := time.ParseDuration(retry.Timeout); err == nil {
			timeoutDuration = d
		}
	}

	body := []byte(`{"query":"{_service{sdl}}"}`)

	var lastErr error
	for i := 0; i < attempts; i++ {
		sdl, err := doFetchSDL(endpoint, httpClient, body, timeoutDuration)
		if err == nil {
			return sdl, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("failed to fetch SDL from %s after %d attempt(s): %w", endpoint, attempts, lastErr)
}

func doFetchSDL(endpoint string, httpClient *http.Client, body []byte, timeout time.Duration) (string, error) {
	client := httpClient
	if timeout > 0 {
		client = &http.Client{Timeout: timeout, Transport: httpClient.Transport}
	}

	resp, err := client.Post(endpoint, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, endpoint)
	}

	var svcResp serviceSDLResponse
	if err := json.NewDecoder(resp.Body).Decode(&svcResp); err != nil {
		return "", fmt.Errorf("failed to decode SDL response: %w", err)
	}

	if svcResp.Data.Service.SDL == "" {
		return "", fmt.Errorf("empty SDL returned from %s", endpoint)
	}

	return svcResp.Data.Service.SDL, nil
}
