package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Compile-time check that Ollama implements Engine.
var _ Engine = (*Ollama)(nil)

// Ollama communicates with a local Ollama instance over HTTP.
type Ollama struct {
	baseURL    string
	model      string
	embedModel string
	httpClient *http.Client
}

// NewOllama creates an Ollama engine targeting the given base URL.
// model is used for generation, embedModel for embeddings.
func NewOllama(baseURL, model, embedModel string) *Ollama {
	return &Ollama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		embedModel: embedModel,
		// Generation can take tens of seconds on a cold model;
		// callers impose their own deadlines via ctx.
		httpClient: &http.Client{Timeout: 0},
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate calls POST /api/generate and returns the completion text.
func (o *Ollama) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	reqBody := generateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: false,
	}
	if maxTokens > 0 {
		reqBody.Options = map[string]any{"num_predict": maxTokens}
	}

	var resp generateResponse
	if err := o.post(ctx, "/api/generate", reqBody, &resp); err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}
	return resp.Response, nil
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed calls POST /api/embeddings and returns the embedding vector.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embedRequest{Model: o.embedModel, Prompt: text}

	var resp embedResponse
	if err := o.post(ctx, "/api/embeddings", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("embedding model %q returned an empty vector", o.embedModel)
	}
	return resp.Embedding, nil
}

// IsRunning returns true if the Ollama server responds to GET /api/tags with 200.
func (o *Ollama) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (o *Ollama) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
