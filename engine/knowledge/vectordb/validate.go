package vectordb

import (
	"fmt"
	"math"
)

// validateVector checks dimensionality and numeric-ness. Mismatches are
// hard errors, never silent truncation.
func validateVector(vec []float32, dimension int) error {
	if len(vec) != dimension {
		return fmt.Errorf("%w: dimension mismatch (got %d want %d)", ErrInvalidEmbedding, len(vec), dimension)
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-numeric value at index %d", ErrInvalidEmbedding, i)
		}
	}
	return nil
}

// validateBatch rejects the whole batch on the first bad record so a
// partial insert can never happen.
func validateBatch(chunks []ChunkRecord, dimension int) error {
	if len(chunks) == 0 {
		return fmt.Errorf("%w: empty chunk batch", ErrInvalidEmbedding)
	}
	if len(chunks) > MaxBatchSize {
		return fmt.Errorf("%w: batch of %d exceeds limit %d", ErrInvalidEmbedding, len(chunks), MaxBatchSize)
	}
	for i := range chunks {
		if err := validateVector(chunks[i].Embedding, dimension); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	return nil
}
