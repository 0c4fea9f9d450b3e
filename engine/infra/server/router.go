package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/contabot/contabot/engine/chat"
	"github.com/contabot/contabot/engine/extract"
	"github.com/contabot/contabot/engine/knowledge/chunk"
	"github.com/contabot/contabot/engine/knowledge/embedder"
	"github.com/contabot/contabot/engine/knowledge/ingest"
	"github.com/contabot/contabot/engine/knowledge/retriever"
	"github.com/contabot/contabot/engine/knowledge/vectordb"
	"github.com/contabot/contabot/engine/session"
	"github.com/contabot/contabot/engine/webhook"
	"github.com/contabot/contabot/pkg/config"
	"github.com/contabot/contabot/pkg/logger"
)

// Deps carries the wired services the HTTP layer exposes.
type Deps struct {
	Config    *config.Config
	Log       logger.Logger
	Store     vectordb.Store
	Extractor *extract.Service
	Chunker   *chunk.Processor
	Embedder  embedder.Embedder
	Pipeline  *ingest.Pipeline
	Chat      *chat.Service
	Sessions  *session.Store
	Webhooks  *webhook.Trigger
}

func (d *Deps) validate() error {
	switch {
	case d.Config == nil:
		return errors.New("server: config is required")
	case d.Log == nil:
		return errors.New("server: logger is required")
	case d.Store == nil:
		return errors.New("server: vector store is required")
	case d.Extractor == nil:
		return errors.New("server: extractor is required")
	case d.Chunker == nil:
		return errors.New("server: chunker is required")
	case d.Embedder == nil:
		return errors.New("server: embedder is required")
	case d.Pipeline == nil:
		return errors.New("server: ingest pipeline is required")
	case d.Sessions == nil:
		return errors.New("server: session store is required")
	case d.Webhooks == nil:
		return errors.New("server: webhook trigger is required")
	}
	return nil
}

// NewRouter builds the gin engine with all routes registered. The chat
// service may be nil when no generation API key is configured; chat
// endpoints then answer 503.
func NewRouter(deps *Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(deps.Log))
	if deps.Config.Server.MaxUploadBytes > 0 {
		engine.MaxMultipartMemory = deps.Config.Server.MaxUploadBytes
	}

	h := &handlers{deps: deps}
	engine.GET("/healthz", h.health)

	api := engine.Group("/api")
	{
		api.POST("/rag/ingest", h.ragIngest)
		api.POST("/rag/query", h.ragQuery)
		api.POST("/rag/extract", h.ragExtract)
		api.POST("/excel/extract", h.excelExtract)
		api.POST("/documents", h.ingestDocument)
		api.POST("/chat", h.chatMessage)
		api.POST("/chat/reset", h.chatReset)
		api.POST("/session/documents", h.addSessionDocument)
		api.GET("/session/documents", h.listSessionDocuments)
		api.DELETE("/session/documents", h.clearSessionDocuments)
		api.DELETE("/session/documents/:id", h.removeSessionDocument)
		api.POST("/trigger/:name", h.trigger)
	}
	return engine, nil
}

type handlers struct {
	deps *Deps
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestLogger scopes the shared logger into each request context so
// downstream services pick it up via logger.FromContext.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logger.ContextWithLogger(c.Request.Context(), log)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// sessionSearcher bridges the ephemeral session set into the retriever.
func sessionSearcher(store *session.Store, sessionID string) retriever.Searcher {
	return retriever.SearcherFunc(func(_ context.Context, query []float32, topK int) ([]retriever.Fragment, error) {
		matches, err := store.Search(sessionID, query, topK)
		if err != nil {
			return nil, err
		}
		fragments := make([]retriever.Fragment, len(matches))
		for i, match := range matches {
			fragments[i] = retriever.Fragment{
				Content: match.Content,
				Score:   match.Similarity,
				Source:  match.DocumentTitle,
			}
		}
		return fragments, nil
	})
}
