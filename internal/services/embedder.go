package services

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Embedder turns text into a fixed-length, L2-normalized vector. Empty or
// whitespace-only text yields an empty vector without touching the backend;
// callers must treat an empty vector as "no signal".
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type geminiEmbedder struct {
	gemini GeminiService
}

func NewEmbedder(gemini GeminiService) Embedder {
	return &geminiEmbedder{gemini: gemini}
}

// Embed implements Embedder.
func (e *geminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return []float32{}, nil
	}

	vector, err := e.gemini.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}

	return normalizeVector(vector), nil
}

// normalizeVector scales a vector to unit length so that dot products are
// valid cosine similarities.
func normalizeVector(vector []float32) []float32 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}

	norm := math.Sqrt(sum)
	if norm == 0 {
		return vector
	}

	normalized := make([]float32, len(vector))
	for i, v := range vector {
		normalized[i] = float32(float64(v) / norm)
	}
	return normalized
}

// CosineSimilarity returns the dot product of two vectors, which equals
// cosine similarity because embeddings are pre-normalized. Empty vectors or
// a length mismatch return 0 rather than an error.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}

	return dot
}
