package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/contabot/contabot/engine/extract"
	"github.com/contabot/contabot/engine/knowledge/chunk"
	"github.com/contabot/contabot/engine/knowledge/embedder"
	"github.com/contabot/contabot/engine/knowledge/vectordb"
	"github.com/contabot/contabot/pkg/logger"
)

const (
	// maxConcurrentBatches bounds the per-batch fan-out. Batches are
	// independent and idempotent to retry individually.
	maxConcurrentBatches = 4
	retryAttempts        = 2
	retryBase            = 500 * time.Millisecond
)

// Pipeline runs the full server-side ingestion flow:
// extract -> chunk -> embed in batches -> append to the vector store.
type Pipeline struct {
	extractor *extract.Service
	chunker   *chunk.Processor
	embedder  embedder.Embedder
	store     vectordb.Store
	batchSize int
}

// Result reports what one ingestion run produced. A failed run can leave
// a created document behind; its id stays usable for a later retry since
// chunk batches are idempotent.
type Result struct {
	DocumentID string
	Title      string
	Chunks     int
	Indexed    int
}

func NewPipeline(
	extractor *extract.Service,
	chunker *chunk.Processor,
	emb embedder.Embedder,
	store vectordb.Store,
	batchSize int,
) (*Pipeline, error) {
	if extractor == nil {
		return nil, errors.New("ingest: extractor is required")
	}
	if chunker == nil {
		return nil, errors.New("ingest: chunker is required")
	}
	if emb == nil {
		return nil, errors.New("ingest: embedder is required")
	}
	if store == nil {
		return nil, errors.New("ingest: vector store is required")
	}
	if batchSize <= 0 || batchSize > vectordb.MaxBatchSize {
		batchSize = vectordb.MaxBatchSize
	}
	return &Pipeline{
		extractor: extractor,
		chunker:   chunker,
		embedder:  emb,
		store:     store,
		batchSize: batchSize,
	}, nil
}

// IngestFile extracts, chunks, embeds, and persists one uploaded file.
// Unlike chat-path retrieval, every failure here is surfaced: ingestion
// is an intentional, inspectable action.
func (p *Pipeline) IngestFile(ctx context.Context, payload []byte, filename, declaredMIME, title string) (*Result, error) {
	extracted, err := p.extractor.Extract(ctx, payload, filename, declaredMIME)
	if err != nil {
		return nil, err
	}
	metadata := map[string]any{
		"filename":        filename,
		"size":            len(payload),
		"mime":            declaredMIME,
		"embedding_model": p.embedderModel(),
	}
	if title == "" {
		title = filename
	}
	return p.IngestText(ctx, extracted.Text, title, metadata)
}

// IngestText chunks and persists already-extracted text.
func (p *Pipeline) IngestText(ctx context.Context, text, title string, metadata map[string]any) (*Result, error) {
	log := logger.FromContext(ctx)
	doc, err := p.store.CreateDocument(ctx, title, metadata)
	if err != nil {
		return nil, err
	}
	chunks, err := p.chunker.Process(doc.ID, text, metadata)
	if err != nil {
		return nil, err
	}
	log.Info("ingestion started", "document_id", doc.ID, "title", title, "chunks", len(chunks))
	indexed, err := p.appendBatches(ctx, doc.ID, chunks)
	if err != nil {
		return nil, err
	}
	log.Info("ingestion finished", "document_id", doc.ID, "indexed", indexed)
	return &Result{DocumentID: doc.ID, Title: title, Chunks: len(chunks), Indexed: indexed}, nil
}

func (p *Pipeline) appendBatches(ctx context.Context, documentID string, chunks []chunk.Chunk) (int, error) {
	var indexed atomic.Int64
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentBatches)
	for start := 0; start < len(chunks); start += p.batchSize {
		end := min(start+p.batchSize, len(chunks))
		batch := chunks[start:end]
		group.Go(func() error {
			count, err := p.processBatch(groupCtx, documentID, batch)
			if err != nil {
				return err
			}
			indexed.Add(int64(count))
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return int(indexed.Load()), err
	}
	return int(indexed.Load()), nil
}

// processBatch embeds and appends one batch, retrying transient provider
// and store failures with exponential backoff. Validation failures are
// permanent and never retried.
func (p *Pipeline) processBatch(ctx context.Context, documentID string, batch []chunk.Chunk) (int, error) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Text
	}
	var count int
	backoff := retry.WithMaxRetries(retryAttempts, retry.NewExponential(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		vectors, err := p.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			if errors.Is(err, embedder.ErrEmbeddingService) {
				return retry.RetryableError(err)
			}
			return err
		}
		records := make([]vectordb.ChunkRecord, len(batch))
		for i := range batch {
			records[i] = vectordb.ChunkRecord{
				ID:        batch[i].ID,
				Content:   batch[i].Text,
				Embedding: vectors[i],
				Metadata:  batch[i].Metadata,
			}
		}
		count, err = p.store.AppendChunks(ctx, documentID, records)
		if err != nil {
			if errors.Is(err, vectordb.ErrStoreUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ingest: batch for document %q: %w", documentID, err)
	}
	return count, nil
}

func (p *Pipeline) embedderModel() string {
	type modeler interface{ Model() string }
	if m, ok := p.embedder.(modeler); ok {
		return m.Model()
	}
	return ""
}
