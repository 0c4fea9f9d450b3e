package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/contabot/contabot/engine/core"
	"github.com/contabot/contabot/engine/extract"
	"github.com/contabot/contabot/engine/knowledge/chunk"
	"github.com/contabot/contabot/engine/knowledge/embedder"
	"github.com/contabot/contabot/engine/knowledge/vectordb"
	"github.com/contabot/contabot/pkg/logger"
)

type ingestChunk struct {
	Content   string         `json:"content"`
	Embedding []float32      `json:"embedding"`
	Metadata  map[string]any `json:"metadata"`
}

type ragIngestRequest struct {
	Title      string         `json:"title"`
	Metadata   map[string]any `json:"metadata"`
	DocumentID string         `json:"document_id"`
	Chunks     []ingestChunk  `json:"chunks"`
}

// ragIngest handles POST /api/rag/ingest. Without a document_id it
// creates a document from the title; with chunks it appends them as one
// all-or-nothing batch.
func (h *handlers) ragIngest(c *gin.Context) {
	var req ragIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
		return
	}
	ctx := c.Request.Context()
	docID := req.DocumentID
	if docID == "" {
		if req.Title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_title"})
			return
		}
		doc, err := h.deps.Store.CreateDocument(ctx, req.Title, req.Metadata)
		if err != nil {
			h.respondStoreError(c, err)
			return
		}
		docID = doc.ID
	}
	if len(req.Chunks) == 0 {
		c.JSON(http.StatusOK, gin.H{"document_id": docID, "indexed_count": 0})
		return
	}
	records := make([]vectordb.ChunkRecord, len(req.Chunks))
	for i, ck := range req.Chunks {
		metadata := ck.Metadata
		if metadata == nil {
			metadata = req.Metadata
		}
		records[i] = vectordb.ChunkRecord{
			ID:        core.NewID(),
			Content:   ck.Content,
			Embedding: ck.Embedding,
			Metadata:  metadata,
		}
	}
	indexed, err := h.deps.Store.AppendChunks(ctx, docID, records)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document_id": docID, "indexed_count": indexed})
}

type ragQueryRequest struct {
	Embedding           []float32 `json:"embedding"`
	TopK                int       `json:"top_k"`
	DocumentID          string    `json:"document_id"`
	SimilarityThreshold *float64  `json:"similarity_threshold"`
}

type queryMatch struct {
	ChunkID    string         `json:"chunk_id"`
	DocumentID string         `json:"document_id"`
	Content    string         `json:"content"`
	Similarity float64        `json:"similarity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ragQuery handles POST /api/rag/query.
func (h *handlers) ragQuery(c *gin.Context) {
	var req ragQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_embedding"})
		return
	}
	if len(req.Embedding) != h.deps.Config.Embedder.Dimension {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_embedding"})
		return
	}
	cfg := h.deps.Config.Retrieval
	topK := req.TopK
	if topK <= 0 || topK > cfg.MaxTopK {
		topK = cfg.TopK
	}
	threshold := cfg.SimilarityThreshold
	if req.SimilarityThreshold != nil {
		threshold = *req.SimilarityThreshold
	}
	matches, err := h.deps.Store.Search(c.Request.Context(), req.Embedding, vectordb.SearchOptions{
		TopK:       topK,
		MinScore:   threshold,
		DocumentID: req.DocumentID,
	})
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	out := make([]queryMatch, len(matches))
	for i, match := range matches {
		out[i] = queryMatch{
			ChunkID:    match.ChunkID,
			DocumentID: match.DocumentID,
			Content:    match.Content,
			Similarity: match.Score,
			Metadata:   match.Metadata,
		}
	}
	c.JSON(http.StatusOK, gin.H{"matches": out})
}

// ragExtract handles POST /api/rag/extract for document files.
func (h *handlers) ragExtract(c *gin.Context) {
	payload, filename, mime, ok := h.readUpload(c)
	if !ok {
		return
	}
	result, err := h.deps.Extractor.Extract(c.Request.Context(), payload, filename, mime)
	if err != nil {
		h.respondExtractionError(c, err)
		return
	}
	resp := gin.H{"text": result.Text}
	if result.Pages > 0 {
		resp["pages"] = result.Pages
	}
	c.JSON(http.StatusOK, resp)
}

// excelExtract handles POST /api/excel/extract for spreadsheets.
func (h *handlers) excelExtract(c *gin.Context) {
	payload, filename, mime, ok := h.readUpload(c)
	if !ok {
		return
	}
	result, err := h.deps.Extractor.Extract(c.Request.Context(), payload, filename, mime)
	if err != nil {
		h.respondExtractionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"text":       result.Text,
		"sheets":     result.Sheets,
		"sheetNames": result.SheetNames,
		"details":    result.Details,
	})
}

// ingestDocument handles POST /api/documents: the full server-side
// pipeline from uploaded file to persisted chunks.
func (h *handlers) ingestDocument(c *gin.Context) {
	payload, filename, mime, ok := h.readUpload(c)
	if !ok {
		return
	}
	title := c.PostForm("title")
	result, err := h.deps.Pipeline.IngestFile(c.Request.Context(), payload, filename, mime, title)
	if err != nil {
		h.respondIngestionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"document_id":   result.DocumentID,
		"title":         result.Title,
		"chunks":        result.Chunks,
		"indexed_count": result.Indexed,
	})
}

// readUpload pulls the "file" multipart part. Responds 400 and returns
// ok=false when the part is missing or unreadable.
func (h *handlers) readUpload(c *gin.Context) (payload []byte, filename, mime string, ok bool) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_file"})
		return nil, "", "", false
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_file"})
		return nil, "", "", false
	}
	defer file.Close()
	payload, err = io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_file"})
		return nil, "", "", false
	}
	return payload, header.Filename, header.Header.Get("Content-Type"), true
}

func (h *handlers) respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, vectordb.ErrInvalidEmbedding):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_embedding"})
	case errors.Is(err, vectordb.ErrDocumentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "document_not_found"})
	case errors.Is(err, vectordb.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store_unavailable"})
	default:
		logger.FromContext(c.Request.Context()).Error("store request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *handlers) respondExtractionError(c *gin.Context, err error) {
	if errors.Is(err, extract.ErrMissingFile) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_file"})
		return
	}
	logger.FromContext(c.Request.Context()).Error("extraction failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// respondIngestionError surfaces pipeline failures as actionable
// messages. Ingestion is an intentional action, never silently degraded.
func (h *handlers) respondIngestionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, extract.ErrMissingFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_file"})
	case errors.Is(err, chunk.ErrEmptyInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_input"})
	case errors.Is(err, embedder.ErrEmbeddingService):
		c.JSON(http.StatusBadGateway, gin.H{"error": "embedding_service_unavailable"})
	case errors.Is(err, vectordb.ErrInvalidEmbedding):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_embedding"})
	case errors.Is(err, vectordb.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store_unavailable"})
	default:
		logger.FromContext(c.Request.Context()).Error("ingestion failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
