package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/contabot/contabot/engine/knowledge/embedder"
	"github.com/contabot/contabot/engine/knowledge/vectordb"
	"github.com/contabot/contabot/pkg/logger"
)

// CitationMarker is the line a grounded reply must contain, enumerating
// which fragment indices were used.
const CitationMarker = "Fragmentos usados"

// Fragment is one retrieved context piece presented to the generator.
type Fragment struct {
	Content string
	Score   float64
	Source  string
}

// Searcher abstracts the persisted store and the session-local scan.
type Searcher interface {
	Search(ctx context.Context, query []float32, topK int) ([]Fragment, error)
}

// SearcherFunc adapts a closure to the Searcher interface.
type SearcherFunc func(ctx context.Context, query []float32, topK int) ([]Fragment, error)

func (f SearcherFunc) Search(ctx context.Context, query []float32, topK int) ([]Fragment, error) {
	return f(ctx, query, topK)
}

// GenerateFunc runs one generation turn for the given prompt.
type GenerateFunc func(ctx context.Context, prompt string) (string, error)

// RetryPolicy bounds corrective generation turns structurally instead of
// by code shape.
type RetryPolicy struct {
	MaxAttempts int
}

// citationRetry allows the initial attempt plus exactly one repair turn.
var citationRetry = RetryPolicy{MaxAttempts: 2}

// Config tunes the orchestrator. The threshold and top-k defaults carry
// no documented derivation; they are configuration, not invariants.
type Config struct {
	TopK           int
	Threshold      float64
	MinWords       int
	LongQueryWords int
}

// Outcome is the visible result of one orchestrated answer. A non-nil
// FallbackReason records that the RAG path failed and the reply came
// from the direct path instead.
type Outcome struct {
	Reply          string
	Grounded       bool
	Fragments      []Fragment
	FallbackReason error
}

// Service orchestrates the RAG query path. It is state-free per call.
type Service struct {
	embedder  embedder.Embedder
	cfg       Config
	heuristic Heuristic
}

func NewService(emb embedder.Embedder, cfg Config) (*Service, error) {
	if emb == nil {
		return nil, errors.New("retriever: embedder is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	return &Service{
		embedder:  emb,
		cfg:       cfg,
		heuristic: Heuristic{MinWords: cfg.MinWords, LongQueryWords: cfg.LongQueryWords},
	}, nil
}

// Needed exposes the retrieval heuristic for the policy engine.
func (s *Service) Needed(message string) bool {
	return s.heuristic.Needed(message)
}

// Answer runs the full query path: embed, search, assemble context,
// generate with citation enforcement. Retrieval failures degrade to the
// direct path; they never abort the conversation.
func (s *Service) Answer(ctx context.Context, query string, searcher Searcher, generate GenerateFunc) (*Outcome, error) {
	log := logger.FromContext(ctx)
	fragments, err := s.retrieve(ctx, query, searcher)
	if err != nil {
		log.Warn("retrieval failed, falling back to direct chat", "error", err)
		return s.direct(ctx, query, generate, err)
	}
	if len(fragments) == 0 {
		log.Debug("retrieval returned no fragments, using direct chat")
		return s.direct(ctx, query, generate, nil)
	}
	prompt := BuildPrompt(query, fragments)
	reply, err := generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	reply, err = s.enforceCitations(ctx, reply, generate)
	if err != nil {
		return nil, err
	}
	return &Outcome{Reply: reply, Grounded: true, Fragments: fragments}, nil
}

func (s *Service) retrieve(ctx context.Context, query string, searcher Searcher) ([]Fragment, error) {
	if searcher == nil {
		return nil, errors.New("retriever: no searcher available")
	}
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	fragments, err := searcher.Search(ctx, vector, s.cfg.TopK)
	if err != nil {
		return nil, err
	}
	return fragments, nil
}

func (s *Service) direct(ctx context.Context, query string, generate GenerateFunc, cause error) (*Outcome, error) {
	reply, err := generate(ctx, query)
	if err != nil {
		return nil, err
	}
	return &Outcome{Reply: reply, FallbackReason: cause}, nil
}

// enforceCitations issues at most one corrective turn when the citation
// marker is missing, then accepts whatever the retry produces.
func (s *Service) enforceCitations(ctx context.Context, reply string, generate GenerateFunc) (string, error) {
	for attempt := 1; attempt < citationRetry.MaxAttempts; attempt++ {
		if strings.Contains(reply, CitationMarker) {
			return reply, nil
		}
		logger.FromContext(ctx).Debug("citation marker missing, issuing corrective turn", "attempt", attempt)
		corrected, err := generate(ctx, correctionPrompt)
		if err != nil {
			return "", err
		}
		reply = corrected
	}
	return reply, nil
}

const correctionPrompt = `Tu respuesta anterior no indica qué fragmentos usaste. ` +
	`Repite la respuesta usando solo la información del contexto proporcionado, sin añadir información externa, ` +
	`e incluye al final la línea "Fragmentos usados: {lista de índices}".`

// BuildPrompt assembles the enumerated context block plus the grounding
// instruction in front of the user question.
func BuildPrompt(query string, fragments []Fragment) string {
	var builder strings.Builder
	builder.WriteString("Contexto de documentos:\n\n")
	for i, fragment := range fragments {
		if fragment.Source != "" {
			builder.WriteString(fmt.Sprintf("Fragmento %d (%s, similitud: %.3f):\n%s\n\n", i+1, fragment.Source, fragment.Score, fragment.Content))
			continue
		}
		builder.WriteString(fmt.Sprintf("Fragmento %d (similitud: %.3f):\n%s\n\n", i+1, fragment.Score, fragment.Content))
	}
	builder.WriteString("Usa este contexto para responder. Si no es suficiente, indica qué falta. ")
	builder.WriteString(`Incluye al final: "` + CitationMarker + `: {lista de índices}".`)
	builder.WriteString("\n\nPregunta del usuario: ")
	builder.WriteString(query)
	return builder.String()
}

// StoreSearcher scopes persisted-store searches with the configured
// threshold and an optional document id.
func StoreSearcher(store vectordb.Store, threshold float64, documentID string) Searcher {
	return SearcherFunc(func(ctx context.Context, query []float32, topK int) ([]Fragment, error) {
		matches, err := store.Search(ctx, query, vectordb.SearchOptions{
			TopK:       topK,
			MinScore:   threshold,
			DocumentID: documentID,
		})
		if err != nil {
			return nil, err
		}
		fragments := make([]Fragment, len(matches))
		for i, match := range matches {
			fragments[i] = Fragment{Content: match.Content, Score: match.Score, Source: match.DocumentID}
		}
		return fragments, nil
	})
}
