package vector_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorypulse/mempulse-go/pkg/vector"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
	}{
		{
			name:     "identical vectors",
			a:        []float64{1, 2, 3},
			b:        []float64{1, 2, 3},
			expected: 1,
		},
		{
			name:     "orthogonal vectors",
			a:        []float64{1, 0},
			b:        []float64{0, 1},
			expected: 0,
		},
		{
			name:     "opposite vectors",
			a:        []float64{1, 0},
			b:        []float64{-1, 0},
			expected: -1,
		},
		{
			name:     "zero vector",
			a:        []float64{0, 0, 0},
			b:        []float64{1, 2, 3},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := vector.CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := vector.CosineSimilarity([]float64{1, 2}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
}

func TestEuclideanDistance(t *testing.T) {
	got, err := vector.EuclideanDistance([]float64{0, 0}, []float64{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 5, got, 1e-9)

	_, err = vector.EuclideanDistance([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
}

func TestDistanceToSimilarity(t *testing.T) {
	assert.InDelta(t, 1, vector.DistanceToSimilarity(0), 1e-9)
	assert.InDelta(t, 0.5, vector.DistanceToSimilarity(1), 1e-9)
}

func TestNormalize(t *testing.T) {
	normalized := vector.Normalize([]float64{3, 4})
	assert.InDelta(t, 0.6, normalized[0], 1e-9)
	assert.InDelta(t, 0.8, normalized[1], 1e-9)

	var norm float64
	for _, x := range normalized {
		norm += x * x
	}
	assert.InDelta(t, 1, math.Sqrt(norm), 1e-9)

	// A zero vector stays a zero vector.
	zero := vector.Normalize([]float64{0, 0, 0})
	assert.Equal(t, []float64{0, 0, 0}, zero)
}

func TestSerializeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    []float64
	}{
		{name: "empty", v: []float64{}},
		{name: "single", v: []float64{0.5}},
		{name: "mixed signs", v: []float64{1.25, -2.5, 0, 1024}},
		{name: "small magnitudes", v: []float64{0.0078125, -0.015625}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := vector.Serialize(tt.v)
			decoded, err := vector.Deserialize(encoded)
			require.NoError(t, err)
			require.Len(t, decoded, len(tt.v))

			// Values chosen to be exactly representable as float32, so the
			// round trip must be bit-exact.
			for i := range tt.v {
				assert.Equal(t, tt.v[i], decoded[i])
			}
		})
	}
}

func TestDeserializeInvalid(t *testing.T) {
	_, err := vector.Deserialize("not base64!!!")
	assert.Error(t, err)

	// Valid base64 but not a multiple of 4 bytes.
	_, err = vector.Deserialize("YWJj")
	assert.Error(t, err)
}
