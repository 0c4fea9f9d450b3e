package session

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/contabot/contabot/engine/core"
)

// perDocumentTopK limits how many fragments each ephemeral document
// contributes before the global ranking.
const perDocumentTopK = 3

// Chunk is one embedded text segment held only for the session.
type Chunk struct {
	Content   string
	Embedding []float32
}

// Document is an ephemeral in-memory document. It never survives the
// session and is never persisted.
type Document struct {
	ID       string
	Title    string
	Filename string
	Chunks   []Chunk
}

// Store holds each session's temporary document set.
type Store struct {
	mu   sync.RWMutex
	docs map[string][]Document
}

func NewStore() *Store {
	return &Store{docs: make(map[string][]Document)}
}

// Add registers an ephemeral document and returns its id.
func (s *Store) Add(sessionID string, doc Document) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", errors.New("session: session id is required")
	}
	if len(doc.Chunks) == 0 {
		return "", errors.New("session: document has no chunks")
	}
	if doc.ID == "" {
		doc.ID = core.NewID()
	}
	s.mu.Lock()
	s.docs[sessionID] = append(s.docs[sessionID], doc)
	s.mu.Unlock()
	return doc.ID, nil
}

// Remove drops one document from the session set.
func (s *Store) Remove(sessionID, documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.docs[sessionID]
	for i := range docs {
		if docs[i].ID == documentID {
			s.docs[sessionID] = append(docs[:i], docs[i+1:]...)
			return true
		}
	}
	return false
}

// Clear drops the whole session set.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	delete(s.docs, sessionID)
	s.mu.Unlock()
}

// List returns the session's documents in insertion order.
func (s *Store) List(sessionID string) []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.docs[sessionID]
	out := make([]Document, len(docs))
	copy(out, docs)
	return out
}

// HasDocuments reports whether the session holds any ephemeral documents.
func (s *Store) HasDocuments(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[sessionID]) > 0
}

// Search ranks the session's chunks against the query vector: each
// document contributes its own best fragments, then the merged list is
// re-ranked and cut to topK.
func (s *Store) Search(sessionID string, query []float32, topK int) ([]Match, error) {
	s.mu.RLock()
	docs := s.docs[sessionID]
	s.mu.RUnlock()
	all := make([]Match, 0)
	for i := range docs {
		matches, err := searchChunks(query, docs[i].Title, docs[i].Chunks, perDocumentTopK)
		if err != nil {
			return nil, err
		}
		all = append(all, matches...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Similarity > all[j].Similarity
	})
	if topK > 0 && len(all) > topK {
		all = all[:topK]
	}
	return all, nil
}
