package vectordb

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidEmbedding marks dimensionality or numeric-ness violations
	// at ingest or query time. The offending batch is rejected whole.
	ErrInvalidEmbedding = errors.New("vectordb: invalid embedding")
	// ErrStoreUnavailable marks an unreachable or misconfigured backend.
	ErrStoreUnavailable = errors.New("vectordb: store unavailable")
	// ErrDocumentNotFound marks appends against unknown document ids.
	ErrDocumentNotFound = errors.New("vectordb: document not found")
)

// MaxBatchSize bounds one AppendChunks call to keep payloads predictable.
const MaxBatchSize = 100

const defaultTopK = 5

// Document is the persisted owner of a chunk set. Immutable once created
// except by appending chunks.
type Document struct {
	ID        string
	Title     string
	Metadata  map[string]any
	CreatedAt time.Time
}

// ChunkRecord is one chunk persisted to the store.
type ChunkRecord struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]any
}

// SearchOptions controls similarity search execution.
type SearchOptions struct {
	TopK     int
	MinScore float64
	// DocumentID restricts matches to one document; the scope is
	// exclusive, never advisory.
	DocumentID string
}

// Match is a transient similarity result, recomputed per query.
type Match struct {
	ChunkID    string
	DocumentID string
	Content    string
	Score      float64
	Metadata   map[string]any
}

// Store exposes the ingestion and retrieval contract.
type Store interface {
	CreateDocument(ctx context.Context, title string, metadata map[string]any) (*Document, error)
	AppendChunks(ctx context.Context, documentID string, chunks []ChunkRecord) (int, error)
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error)
	Close(ctx context.Context) error
}

// Config captures connection details for a vector store backend.
type Config struct {
	DSN       string
	Table     string
	Dimension int
	// EnsureIndex creates an ivfflat index after the schema.
	EnsureIndex bool
}
