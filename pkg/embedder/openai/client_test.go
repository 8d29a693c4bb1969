package openai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorypulse/mempulse-go/pkg/embedder/openai"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := openai.NewClient(&openai.Config{})
	assert.Error(t, err)
}

func TestNewClientDefaults(t *testing.T) {
	c, err := openai.NewClient(&openai.Config{APIKey: "sk-test"})
	require.NoError(t, err)

	assert.Equal(t, 1536, c.Dimensions())
	assert.NoError(t, c.Close())
}

func TestNewClientConfiguredDimensions(t *testing.T) {
	c, err := openai.NewClient(&openai.Config{
		APIKey:     "sk-test",
		Model:      "text-embedding-3-large",
		Dimensions: 256,
	})
	require.NoError(t, err)

	assert.Equal(t, 256, c.Dimensions())
}
