package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/contabot/contabot/engine/core"
)

type pgStore struct {
	pool       *pgxpool.Pool
	table      string
	tableIdent string
	docsIdent  string
	dimension  int
	ensureIdx  bool
}

// NewPGStore connects to postgres and ensures the documents/chunks schema.
func NewPGStore(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		return nil, errors.New("vectordb: config is required")
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("%w: dsn is required", ErrStoreUnavailable)
	}
	if cfg.Dimension <= 0 {
		return nil, errors.New("vectordb: dimension must be greater than zero")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrStoreUnavailable, err)
	}
	table := cfg.Table
	if table == "" {
		table = "chunks"
	}
	store := &pgStore{
		pool:       pool,
		table:      table,
		tableIdent: pgx.Identifier{table}.Sanitize(),
		docsIdent:  pgx.Identifier{"documents"}.Sanitize(),
		dimension:  cfg.Dimension,
		ensureIdx:  cfg.EnsureIndex,
	}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (p *pgStore) ensureSchema(ctx context.Context) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire connection: %v", ErrStoreUnavailable, err)
	}
	defer conn.Release()
	if _, err = conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("%w: enable extension: %v", ErrStoreUnavailable, err)
	}
	createDocs := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		metadata JSONB,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`, p.docsIdent)
	if _, err = conn.Exec(ctx, createDocs); err != nil {
		return fmt.Errorf("%w: create documents table: %v", ErrStoreUnavailable, err)
	}
	createChunks := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES %s(id),
		content TEXT NOT NULL,
		embedding vector(%d),
		metadata JSONB,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`, p.tableIdent, p.docsIdent, p.dimension)
	if _, err = conn.Exec(ctx, createChunks); err != nil {
		return fmt.Errorf("%w: create chunks table: %v", ErrStoreUnavailable, err)
	}
	if p.ensureIdx {
		createIndex := fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s USING ivfflat (embedding vector_cosine_ops)",
			pgx.Identifier{p.table + "_embedding_idx"}.Sanitize(),
			p.tableIdent,
		)
		if _, err = conn.Exec(ctx, createIndex); err != nil {
			return fmt.Errorf("%w: create index: %v", ErrStoreUnavailable, err)
		}
	}
	return nil
}

func (p *pgStore) CreateDocument(ctx context.Context, title string, metadata map[string]any) (*Document, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("vectordb: document title is required")
	}
	doc := &Document{
		ID:        core.NewID(),
		Title:     title,
		Metadata:  core.CloneMap(metadata),
		CreatedAt: time.Now().UTC(),
	}
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("vectordb: marshal metadata: %w", err)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (id, title, metadata, created_at) VALUES ($1, $2, $3, $4)", p.docsIdent)
	if _, err := p.pool.Exec(ctx, stmt, doc.ID, doc.Title, meta, doc.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: insert document: %v", ErrStoreUnavailable, err)
	}
	return doc, nil
}

func (p *pgStore) AppendChunks(ctx context.Context, documentID string, chunks []ChunkRecord) (indexed int, err error) {
	if strings.TrimSpace(documentID) == "" {
		return 0, errors.New("vectordb: document id is required")
	}
	if err := validateBatch(chunks, p.dimension); err != nil {
		return 0, err
	}
	var exists bool
	check := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", p.docsIdent)
	if err := p.pool.QueryRow(ctx, check, documentID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("%w: check document: %v", ErrStoreUnavailable, err)
	}
	if !exists {
		return 0, fmt.Errorf("%w: %q", ErrDocumentNotFound, documentID)
	}
	tx, txErr := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if txErr != nil {
		return 0, fmt.Errorf("%w: begin tx: %v", ErrStoreUnavailable, txErr)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("vectordb: rollback failed: %v; original error: %w", rbErr, err)
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			indexed = 0
			err = fmt.Errorf("%w: commit: %v", ErrStoreUnavailable, commitErr)
		}
	}()
	stmt := fmt.Sprintf(`INSERT INTO %s (id, document_id, content, embedding, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`, p.tableIdent)
	now := time.Now().UTC()
	for i := range chunks {
		rec := chunks[i]
		meta, marshalErr := json.Marshal(rec.Metadata)
		if marshalErr != nil {
			return 0, fmt.Errorf("vectordb: marshal metadata for %q: %w", rec.ID, marshalErr)
		}
		tag, execErr := tx.Exec(ctx, stmt, rec.ID, documentID, rec.Content, pgvector.NewVector(rec.Embedding), meta, now)
		if execErr != nil {
			return 0, fmt.Errorf("%w: insert chunk %q: %v", ErrStoreUnavailable, rec.ID, execErr)
		}
		indexed += int(tag.RowsAffected())
	}
	return indexed, nil
}

func (p *pgStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	if err := validateVector(query, p.dimension); err != nil {
		return nil, err
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	builder := strings.Builder{}
	builder.WriteString("SELECT id, document_id, content, metadata, 1 - (embedding <=> $1) AS score FROM ")
	builder.WriteString(p.tableIdent)
	builder.WriteString(" WHERE 1=1")
	args := []any{pgvector.NewVector(query)}
	argPos := 2
	if opts.DocumentID != "" {
		builder.WriteString(fmt.Sprintf(" AND document_id = $%d", argPos))
		args = append(args, opts.DocumentID)
		argPos++
	}
	if opts.MinScore != 0 {
		builder.WriteString(fmt.Sprintf(" AND 1 - (embedding <=> $1) >= $%d", argPos))
		args = append(args, opts.MinScore)
		argPos++
	}
	builder.WriteString(fmt.Sprintf(" ORDER BY embedding <=> $1 ASC LIMIT $%d", argPos))
	args = append(args, topK)
	rows, err := p.pool.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()
	matches := make([]Match, 0, topK)
	for rows.Next() {
		var (
			match   Match
			rawMeta []byte
		)
		if err := rows.Scan(&match.ChunkID, &match.DocumentID, &match.Content, &rawMeta, &match.Score); err != nil {
			return nil, fmt.Errorf("%w: scan match: %v", ErrStoreUnavailable, err)
		}
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &match.Metadata); err != nil {
				return nil, fmt.Errorf("vectordb: decode metadata for %q: %w", match.ChunkID, err)
			}
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: search rows: %v", ErrStoreUnavailable, err)
	}
	return matches, nil
}

func (p *pgStore) Close(_ context.Context) error {
	p.pool.Close()
	return nil
}
