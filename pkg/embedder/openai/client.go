// Package openai vectorizes text through the OpenAI Embeddings API.
package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// defaultDimensions matches the native output size of text-embedding-3-small.
const defaultDimensions = 1536

// Config is the configuration for the OpenAI embedder.
// APIKey is required. Model defaults to text-embedding-3-small, Dimensions
// to 1536, and BaseURL to the official API address (set it to point at an
// OpenAI-compatible gateway).
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int
}

// Client implements the embedder.Provider interface on top of the OpenAI
// Embeddings API. For the text-embedding-3 model family the configured
// dimensions are sent with every request, so the API itself truncates the
// vectors to the size the rest of the system expects.
type Client struct {
	api        *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewClient creates a new OpenAI embedder from cfg, applying the model and
// dimension defaults. Returns an error when no API key is configured.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai embedder: API key is required")
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = cfg.BaseURL
	}

	c := &Client{
		api:        openai.NewClientWithConfig(apiConfig),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
	}
	if c.model == "" {
		c.model = openai.SmallEmbedding3
	}
	if c.dimensions <= 0 {
		c.dimensions = defaultDimensions
	}
	return c, nil
}

// Embed converts a single text to a vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := c.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch converts texts to vectors in one API call, preserving input
// order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return c.embed(ctx, texts)
}

// embed issues one Embeddings API request for the given inputs and widens
// the response vectors to float64.
func (c *Client) embed(ctx context.Context, inputs []string) ([][]float64, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      inputs,
		Model:      c.model,
		Dimensions: c.requestDimensions(),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("openai embed: got %d embeddings for %d inputs", len(resp.Data), len(inputs))
	}

	vectors := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		vec := make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float64(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// requestDimensions reports the dimensions value to send with API requests.
// Only the text-embedding-3 family accepts the parameter; older models have
// a fixed output size, so zero is sent and the field is omitted.
func (c *Client) requestDimensions() int {
	if strings.HasPrefix(string(c.model), "text-embedding-3") {
		return c.dimensions
	}
	return 0
}

// Dimensions returns the configured vector dimensions.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Close is a no-op; the underlying SDK client holds no long-lived
// connections that need releasing.
func (c *Client) Close() error {
	return nil
}
