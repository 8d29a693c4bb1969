// Package mock provides a deterministic in-process embedding provider for
// tests and examples. It never performs network I/O.
package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// Client implements embedder.Provider with hash-derived vectors.
//
// The same text always produces the same unit-length vector, so similarity
// comparisons are stable across runs. Different texts produce vectors that
// are very unlikely to be similar.
type Client struct {
	dimensions int
}

// NewClient creates a mock embedder producing vectors of the given
// dimension. A dimension below 1 defaults to 64.
func NewClient(dimensions int) *Client {
	if dimensions < 1 {
		dimensions = 64
	}
	return &Client{dimensions: dimensions}
}

// Embed derives a deterministic unit vector from the text.
func (c *Client) Embed(_ context.Context, text string) ([]float64, error) {
	digest := sha256.Sum256([]byte(text))

	v := make([]float64, c.dimensions)
	var norm float64
	for i := range v {
		// Stretch the digest by rehashing with a counter suffix.
		chunk := sha256.Sum256(append(digest[:], byte(i), byte(i>>8)))
		bits := binary.LittleEndian.Uint64(chunk[:8])
		// Map to [-1, 1).
		v[i] = float64(int64(bits)) / math.MaxInt64
		norm += v[i] * v[i]
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range v {
			v[i] /= norm
		}
	}
	return v, nil
}

// EmbedBatch embeds each text independently.
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

// Close is a no-op.
func (c *Client) Close() error {
	return nil
}
