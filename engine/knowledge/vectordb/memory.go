package vectordb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/contabot/contabot/engine/core"
)

// memoryStore keeps documents and chunks in process memory. Used for
// tests and for running without a postgres backend.
type memoryStore struct {
	mu        sync.RWMutex
	dimension int
	documents map[string]Document
	chunks    map[string][]ChunkRecord
}

// NewMemoryStore builds an in-memory store with the given dimension.
func NewMemoryStore(dimension int) Store {
	return &memoryStore{
		dimension: dimension,
		documents: make(map[string]Document),
		chunks:    make(map[string][]ChunkRecord),
	}
}

func (s *memoryStore) CreateDocument(_ context.Context, title string, metadata map[string]any) (*Document, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("vectordb: document title is required")
	}
	doc := Document{
		ID:        core.NewID(),
		Title:     title,
		Metadata:  core.CloneMap(metadata),
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.documents[doc.ID] = doc
	s.mu.Unlock()
	return &doc, nil
}

func (s *memoryStore) AppendChunks(_ context.Context, documentID string, chunks []ChunkRecord) (int, error) {
	if strings.TrimSpace(documentID) == "" {
		return 0, errors.New("vectordb: document id is required")
	}
	if err := validateBatch(chunks, s.dimension); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[documentID]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrDocumentNotFound, documentID)
	}
	existing := make(map[string]struct{}, len(s.chunks[documentID]))
	for _, rec := range s.chunks[documentID] {
		existing[rec.ID] = struct{}{}
	}
	indexed := 0
	for i := range chunks {
		rec := chunks[i]
		if _, dup := existing[rec.ID]; dup {
			continue
		}
		existing[rec.ID] = struct{}{}
		s.chunks[documentID] = append(s.chunks[documentID], ChunkRecord{
			ID:        rec.ID,
			Content:   rec.Content,
			Embedding: append([]float32(nil), rec.Embedding...),
			Metadata:  core.CloneMap(rec.Metadata),
		})
		indexed++
	}
	return indexed, nil
}

func (s *memoryStore) Search(_ context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	if err := validateVector(query, s.dimension); err != nil {
		return nil, err
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidates := make([]Match, 0)
	for docID, records := range s.chunks {
		if opts.DocumentID != "" && docID != opts.DocumentID {
			continue
		}
		for i := range records {
			rec := records[i]
			score := cosineSimilarity(rec.Embedding, query)
			if opts.MinScore != 0 && score < opts.MinScore {
				continue
			}
			candidates = append(candidates, Match{
				ChunkID:    rec.ID,
				DocumentID: docID,
				Content:    rec.Content,
				Score:      score,
				Metadata:   core.CloneMap(rec.Metadata),
			})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score == candidates[j].Score {
			return candidates[i].ChunkID < candidates[j].ChunkID
		}
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}

// DocumentIDs lists created document ids in unspecified order.
func (s *memoryStore) DocumentIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.documents))
	for id := range s.documents {
		ids = append(ids, id)
	}
	return ids
}

// cosineSimilarity assumes equal-length vectors; zero norms score 0.
func cosineSimilarity(a, b []float32) float64 {
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
		return 0
	}
	return dot / denom
}
