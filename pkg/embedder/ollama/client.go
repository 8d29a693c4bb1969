package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is an Ollama Embedder client.
// It implements the embedder.Provider interface using the embeddings endpoint
// of a local or remote Ollama service.
type Client struct {
	client     *http.Client
	model      string
	baseURL    string
	dimensions int
}

// Config is the configuration for Ollama Embedder.
// Model: Model name to use, defaults to "nomic-embed-text"
// BaseURL: Ollama service address, defaults to "http://localhost:11434"
// Dimensions: Vector dimensions, defaults to 768 (nomic-embed-text)
// HTTPClient: Custom HTTP client, if nil uses default client (60 seconds timeout)
type Config struct {
	Model      string
	BaseURL    string
	Dimensions int
	HTTPClient *http.Client
}

// NewClient creates a new Ollama Embedder client.
//
// Args:
//   - cfg: Ollama configuration containing Model, BaseURL, and Dimensions
//
// Returns:
//   - *Client: Ollama client instance
//   - error: Returns an error if initialization fails
func NewClient(cfg *Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = 768
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: 60 * time.Second,
		}
	}

	return &Client{
		client:     client,
		model:      model,
		baseURL:    baseURL,
		dimensions: dimensions,
	}, nil
}

// embeddingResponse is the Ollama embeddings API response body.
type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed converts a single text to a vector.
//
// Args:
//   - ctx: Context for controlling the request lifecycle
//   - text: Text content to vectorize
//
// Returns:
//   - []float64: Vector representation of the text
//   - error: Returns an error if the request fails or the response is malformed
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	reqBody, err := json.Marshal(map[string]interface{}{
		"model":  c.model,
		"prompt": text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embed: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("ollama embed: empty embedding returned")
	}

	return parsed.Embedding, nil
}

// EmbedBatch converts multiple texts to vectors.
// The Ollama embeddings endpoint accepts one prompt per request, so texts
// are embedded sequentially.
//
// Args:
//   - ctx: Context for controlling the request lifecycle
//   - texts: List of texts to vectorize
//
// Returns:
//   - [][]float64: Vector representation for each text (order matches input texts)
//   - error: Returns an error if any request fails
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	embeddings := make([][]float64, len(texts))
	for i, text := range texts {
		embedding, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// Dimensions returns the vector dimensions.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Close closes the client connection.
// The HTTP client does not require explicit closing; this method is retained for interface compatibility.
func (c *Client) Close() error {
	return nil
}
