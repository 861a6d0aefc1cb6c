package ports

import "context"

// EmbeddingProvider turns text into vectors. EmbedTexts is the only
// mandatory method; the optional interfaces below let a backend supply
// fused implementations.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// SimilarityScorer is an optional override of the default cosine
// similarity.
type SimilarityScorer interface {
	CosineSimilarity(a, b []float64) float64
}

// SimilarMatch is one hit of a FindSimilar call.
type SimilarMatch struct {
	Item  interface{} `json:"item"`
	Score float64     `json:"score"`
	Index int         `json:"index"`
}

// SimilarOptions tunes FindSimilar.
type SimilarOptions struct {
	TopK     int     `json:"topK,omitempty"`
	MinScore float64 `json:"minScore,omitempty"`
}

// SimilarFinder is an optional fused embed-and-rank implementation.
type SimilarFinder interface {
	FindSimilar(ctx context.Context, query string, embeddings [][]float64, items []interface{}, opts SimilarOptions) ([]SimilarMatch, error)
}
