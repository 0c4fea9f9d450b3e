package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmbeddingService marks transport or auth failures against the
// embedding provider. Callers must not substitute zero vectors.
var ErrEmbeddingService = errors.New("embedder: embedding service failure")

// Provider enumerates supported embedding backends.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderOpenAI Provider = "openai"
)

// Config describes one embedding model binding. Every vector produced
// under a config shares the configured dimension.
type Config struct {
	Provider  Provider
	Model     string
	APIKey    string
	Dimension int
	BatchSize int
}

// Embedder is the contract consumed by ingestion and retrieval.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Adapter wraps a langchaingo embedder and augments error reporting.
type Adapter struct {
	provider  Provider
	model     string
	dimension int
	batchSize int
	impl      embeddings.Embedder
	cacheMu   sync.Mutex
	cache     *lru.Cache[string, []float32]
}

// New constructs a provider-backed adapter.
func New(ctx context.Context, cfg *Config) (*Adapter, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	impl, err := buildProviderEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return Wrap(cfg, impl)
}

// Wrap constructs an adapter around an existing langchaingo embedder.
func Wrap(cfg *Config, impl embeddings.Embedder) (*Adapter, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if impl == nil {
		return nil, errors.New("embedder: implementation is required")
	}
	return &Adapter{
		provider:  cfg.Provider,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		impl:      impl,
	}, nil
}

// Dimension returns the configured vector dimension.
func (a *Adapter) Dimension() int {
	return a.dimension
}

// Model returns the configured embedding model name.
func (a *Adapter) Model() string {
	return a.model
}

// BatchSize returns the configured ingestion batch size.
func (a *Adapter) BatchSize() int {
	return a.batchSize
}

// EnableCache initializes an LRU cache keyed by text hash.
func (a *Adapter) EnableCache(size int) error {
	if size <= 0 {
		return errors.New("embedder: cache size must be greater than zero")
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return fmt.Errorf("embedder: init cache: %w", err)
	}
	a.cacheMu.Lock()
	a.cache = cache
	a.cacheMu.Unlock()
	return nil
}

// EmbedQuery maps one query text to its vector.
func (a *Adapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := a.lookupCache(text); ok {
		return vector, nil
	}
	vector, err := a.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, a.wrap(err)
	}
	a.storeCache(text, vector)
	return vector, nil
}

// EmbedDocuments maps texts to vectors, order-preserving with exactly one
// vector per input text.
func (a *Adapter) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := a.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, a.wrap(err)
	}
	if len(vectors) != len(texts) {
		return nil, a.wrap(fmt.Errorf("received %d embeddings for %d texts", len(vectors), len(texts)))
	}
	return vectors, nil
}

func (a *Adapter) lookupCache(text string) ([]float32, bool) {
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	if a.cache == nil {
		return nil, false
	}
	value, ok := a.cache.Get(cacheKey(text))
	if !ok {
		return nil, false
	}
	return cloneVector(value), true
}

func (a *Adapter) storeCache(text string, vector []float32) {
	if len(vector) == 0 {
		return
	}
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	if a.cache != nil {
		a.cache.Add(cacheKey(text), cloneVector(vector))
	}
}

func (a *Adapter) wrap(err error) error {
	return fmt.Errorf("%w: model %q: %v", ErrEmbeddingService, a.model, err)
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(src []float32) []float32 {
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("embedder: config is required")
	}
	if strings.TrimSpace(string(cfg.Provider)) == "" {
		return errors.New("embedder: provider is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return errors.New("embedder: model is required")
	}
	if cfg.Dimension <= 0 {
		return errors.New("embedder: dimension must be greater than zero")
	}
	if cfg.BatchSize <= 0 {
		return errors.New("embedder: batch size must be greater than zero")
	}
	return nil
}

func buildProviderEmbedder(ctx context.Context, cfg *Config) (embeddings.Embedder, error) {
	switch cfg.Provider {
	case ProviderGoogle:
		return buildGoogleEmbedder(ctx, cfg)
	case ProviderOpenAI:
		return buildOpenAIEmbedder(cfg)
	default:
		return nil, fmt.Errorf("embedder: provider %q is not supported", cfg.Provider)
	}
}

func buildGoogleEmbedder(ctx context.Context, cfg *Config) (embeddings.Embedder, error) {
	opts := []googleai.Option{
		googleai.WithDefaultEmbeddingModel(cfg.Model),
	}
	if cfg.APIKey != "" {
		opts = append(opts, googleai.WithAPIKey(cfg.APIKey))
	}
	client, err := googleai.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: initialize google client: %v", ErrEmbeddingService, err)
	}
	impl, err := embeddings.NewEmbedder(client, embeddings.WithBatchSize(cfg.BatchSize))
	if err != nil {
		return nil, fmt.Errorf("embedder: construct google embedder: %w", err)
	}
	return impl, nil
}

func buildOpenAIEmbedder(cfg *Config) (embeddings.Embedder, error) {
	opts := []openai.Option{
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: initialize openai client: %v", ErrEmbeddingService, err)
	}
	impl, err := embeddings.NewEmbedder(client, embeddings.WithBatchSize(cfg.BatchSize))
	if err != nil {
		return nil, fmt.Errorf("embedder: construct openai embedder: %w", err)
	}
	return impl, nil
}
