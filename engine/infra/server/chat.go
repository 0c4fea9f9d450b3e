package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/contabot/contabot/engine/core"
	"github.com/contabot/contabot/engine/knowledge/retriever"
	"github.com/contabot/contabot/engine/session"
	"github.com/contabot/contabot/pkg/logger"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// chatMessage handles POST /api/chat. When the session holds ephemeral
// documents they take precedence over the persisted store as retrieval
// context.
func (h *handlers) chatMessage(c *gin.Context) {
	if h.deps.Chat == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat_unavailable"})
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_session_or_message"})
		return
	}
	var searcher retriever.Searcher
	if h.deps.Sessions.HasDocuments(req.SessionID) {
		searcher = sessionSearcher(h.deps.Sessions, req.SessionID)
	} else {
		searcher = retriever.StoreSearcher(h.deps.Store, h.deps.Config.Retrieval.SimilarityThreshold, "")
	}
	reply, err := h.deps.Chat.Respond(c.Request.Context(), req.SessionID, req.Message, searcher)
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("chat turn failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{
		"reply":     reply.Text,
		"grounded":  reply.Grounded,
		"fragments": len(reply.Fragments),
	}
	if reply.Action != "" {
		resp["action"] = string(reply.Action)
		resp["section"] = gin.H{"id": reply.SectionID, "label": reply.SectionLabel}
	}
	c.JSON(http.StatusOK, resp)
}

type chatResetRequest struct {
	SessionID string `json:"session_id"`
}

// chatReset handles POST /api/chat/reset. Ephemeral documents survive a
// conversation reset; they are cleared through their own endpoint.
func (h *handlers) chatReset(c *gin.Context) {
	if h.deps.Chat == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat_unavailable"})
		return
	}
	var req chatResetRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_session_id"})
		return
	}
	h.deps.Chat.Reset(req.SessionID)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// addSessionDocument handles POST /api/session/documents: extract,
// chunk, and embed an upload into the session-scoped in-memory set.
func (h *handlers) addSessionDocument(c *gin.Context) {
	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_session_id"})
		return
	}
	payload, filename, mime, ok := h.readUpload(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	extracted, err := h.deps.Extractor.Extract(ctx, payload, filename, mime)
	if err != nil {
		h.respondExtractionError(c, err)
		return
	}
	docID := core.NewID()
	chunks, err := h.deps.Chunker.Process(docID, extracted.Text, map[string]any{"filename": filename})
	if err != nil {
		h.respondIngestionError(c, err)
		return
	}
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := h.deps.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		h.respondIngestionError(c, err)
		return
	}
	doc := session.Document{ID: docID, Filename: filename, Title: filename}
	if title := c.PostForm("title"); title != "" {
		doc.Title = title
	}
	doc.Chunks = make([]session.Chunk, len(chunks))
	for i := range chunks {
		doc.Chunks[i] = session.Chunk{Content: chunks[i].Text, Embedding: vectors[i]}
	}
	if _, err := h.deps.Sessions.Add(sessionID, doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"document_id": docID,
		"title":       doc.Title,
		"chunks":      len(doc.Chunks),
	})
}

// listSessionDocuments handles GET /api/session/documents.
func (h *handlers) listSessionDocuments(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_session_id"})
		return
	}
	docs := h.deps.Sessions.List(sessionID)
	out := make([]gin.H, len(docs))
	for i, doc := range docs {
		out[i] = gin.H{
			"id":       doc.ID,
			"title":    doc.Title,
			"filename": doc.Filename,
			"chunks":   len(doc.Chunks),
		}
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

// removeSessionDocument handles DELETE /api/session/documents/:id.
func (h *handlers) removeSessionDocument(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_session_id"})
		return
	}
	if !h.deps.Sessions.Remove(sessionID, c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document_not_found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// clearSessionDocuments handles DELETE /api/session/documents.
func (h *handlers) clearSessionDocuments(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_session_id"})
		return
	}
	h.deps.Sessions.Clear(sessionID)
	c.Status(http.StatusNoContent)
}
