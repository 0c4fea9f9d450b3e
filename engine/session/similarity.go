package session

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrDimensionMismatch marks comparison of unequal-length vectors.
var ErrDimensionMismatch = errors.New("session: vector dimension mismatch")

// Cosine returns the cosine similarity of two equal-length vectors.
// Defined as 0 when either norm is 0 rather than failing.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0, nil
	}
	return dot / denom, nil
}

// Match is one local search hit.
type Match struct {
	Content       string
	Similarity    float64
	DocumentTitle string
}

// searchChunks is a brute-force scan: the scope is one session's small
// document set, never a persistent corpus.
func searchChunks(query []float32, title string, chunks []Chunk, topK int) ([]Match, error) {
	matches := make([]Match, 0, len(chunks))
	for i := range chunks {
		score, err := Cosine(query, chunks[i].Embedding)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{
			Content:       chunks[i].Content,
			Similarity:    score,
			DocumentTitle: title,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}
