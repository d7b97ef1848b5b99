package facematch

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultDimensions is the descriptor length produced by the browser-side model.
const DefaultDimensions = 128

var (
	ErrDimensionMismatch = errors.New("embedding has unexpected dimensions")
	ErrInvalidValue      = errors.New("embedding contains a non-finite value")
)

// Embedding is a face descriptor. It travels as a JSON array of numbers.
type Embedding []float64

// CosineSimilarity returns dot(a,b) / (|a|*|b|).
// Vectors of different length, empty vectors and zero-norm vectors score 0.
func CosineSimilarity(a, b Embedding) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	normA, normB := floats.Norm(a, 2), floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}

	return floats.Dot(a, b) / (normA * normB)
}

// EuclideanDistance is a diagnostic only; matching decisions use cosine
// similarity. Length mismatch yields +Inf.
func EuclideanDistance(a, b Embedding) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	if len(a) == 0 {
		return 0
	}
	return floats.Distance(a, b, 2)
}

// Normalize returns a unit-length copy of v. A zero vector is returned as is.
func Normalize(v Embedding) Embedding {
	out := make(Embedding, len(v))
	copy(out, v)

	if norm := floats.Norm(v, 2); norm != 0 {
		floats.Scale(1/norm, out)
	}
	return out
}

// ValidateEmbedding checks the descriptor shape before it is stored or compared.
func ValidateEmbedding(v Embedding, dims int) error {
	if dims > 0 && len(v) != dims {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dims)
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w at index %d", ErrInvalidValue, i)
		}
	}
	return nil
}

// FromFloat32 converts a stored vector column back into an Embedding.
func FromFloat32(values []float32) Embedding {
	out := make(Embedding, len(values))
	for i, x := range values {
		out[i] = float64(x)
	}
	return out
}

// Float32 converts the embedding for storage in a vector column.
func (e Embedding) Float32() []float32 {
	out := make([]float32, len(e))
	for i, x := range e {
		out[i] = float32(x)
	}
	return out
}
