package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
)

// ContentHash fingerprints the text an embedding was computed from.
// Matching hashes let a re-embed be skipped.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CosineSimilarity computes sum(a·b) / (‖a‖·‖b‖). Mismatched lengths
// and zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
