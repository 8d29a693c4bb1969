// Package vector provides fixed-length numeric vector math for semantic
// search: similarity measures, normalization, and a compact binary
// serialization used by the storage backends.
package vector

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// ErrDimensionMismatch indicates that two vectors of different lengths were
// passed to a pairwise operation.
var ErrDimensionMismatch = fmt.Errorf("vector dimension mismatch")

// CosineSimilarity calculates the cosine similarity between two vectors.
//
// The result is in the range [-1, 1], where 1 means the vectors point in the
// same direction. If either vector has zero magnitude the similarity is 0.
//
// Returns ErrDimensionMismatch if the vectors have different lengths.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	magnitude := math.Sqrt(normA) * math.Sqrt(normB)
	if magnitude == 0 {
		return 0, nil
	}

	return dotProduct / magnitude, nil
}

// EuclideanDistance calculates the L2 distance between two vectors.
//
// Lower values indicate higher similarity.
//
// Returns ErrDimensionMismatch if the vectors have different lengths.
func EuclideanDistance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}

	return math.Sqrt(sum), nil
}

// DistanceToSimilarity converts a Euclidean distance into a similarity score
// in (0, 1], where 1 means zero distance.
func DistanceToSimilarity(distance float64) float64 {
	return 1 / (1 + distance)
}

// Normalize returns a copy of v scaled to unit length.
//
// A zero vector is returned unchanged.
func Normalize(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}

	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// Serialize packs a vector as base64-encoded little-endian float32 values.
//
// The encoding is compact (4 bytes per component) and round-trips exactly
// through Deserialize at float32 precision.
func Serialize(v []float64) string {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(x)))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// Deserialize unpacks a vector produced by Serialize.
//
// Returns an error if the input is not valid base64 or its length is not a
// multiple of 4 bytes.
func Deserialize(s string) ([]float64, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("deserialize vector: %w", err)
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("deserialize vector: invalid length %d", len(buf))
	}

	v := make([]float64, len(buf)/4)
	for i := range v {
		bits := binary.LittleEndian.Uint32(buf[i*4:])
		v[i] = float64(math.Float32frombits(bits))
	}
	return v, nil
}
