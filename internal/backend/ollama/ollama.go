// Package ollama talks to an Ollama server over its HTTP generate API.
package ollama

import (
	"context"
	"errors"
	"fmt"

	"github.com/hejijunhao/watchpath/internal/backend"
	"github.com/hejijunhao/watchpath/internal/backend/httpclient"
)

const (
	defaultEndpoint = "http://localhost:11434"
	defaultModel    = "mistral:7b-instruct"
)

func init() {
	backend.Register("ollama", func(cfg backend.Config) (backend.Backend, error) {
		return New(cfg), nil
	})
}

// Backend implements backend.Backend against POST /api/generate.
type Backend struct {
	client *httpclient.Client
	model  string
	format string
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// New builds an HTTP backend from cfg. Extra["format"]="json" asks the
// server to constrain output to JSON.
func New(cfg backend.Config) *Backend {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	var opts []httpclient.Option
	if cfg.Timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(cfg.Timeout))
	}
	b := &Backend{client: httpclient.New(endpoint, cfg.APIKey, opts...), model: model}
	if cfg.Extra["format"] == "json" {
		b.format = "json"
	}
	return b
}

// Invoke sends one non-streaming generate request. An HTTP error status from
// a reachable server is reported as a non-zero ExitCode carrying the status
// code; transport failures are errors.
func (b *Backend) Invoke(ctx context.Context, prompt string) (backend.Result, error) {
	req := generateRequest{Model: b.model, Prompt: prompt, Stream: false, Format: b.format}
	var resp generateResponse
	err := b.client.PostJSON(ctx, "/api/generate", req, &resp)

	var apiErr *httpclient.APIError
	switch {
	case errors.As(err, &apiErr):
		return backend.Result{Stderr: apiErr.Body, ExitCode: apiErr.StatusCode}, nil
	case err != nil:
		return backend.Result{}, &backend.Error{Provider: "ollama", Err: err}
	case resp.Error != "":
		return backend.Result{Stderr: resp.Error, ExitCode: 1}, nil
	}
	return backend.Result{Stdout: resp.Response}, nil
}

// Check verifies the server is reachable and has the configured model.
func (b *Backend) Check(ctx context.Context) error {
	var tags tagsResponse
	if err := b.client.GetJSON(ctx, "/api/tags", nil, &tags); err != nil {
		return &backend.Error{Provider: "ollama", Err: err}
	}
	for _, m := range tags.Models {
		if m.Name == b.model {
			return nil
		}
	}
	return &backend.Error{Provider: "ollama", Err: fmt.Errorf("model %q not pulled", b.model)}
}
