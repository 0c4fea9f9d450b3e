package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/contabot/contabot/engine/core"
)

// ErrEmptyInput marks text with nothing to chunk; embedding an empty
// chunk is meaningless, so callers must treat this as a hard error.
var ErrEmptyInput = errors.New("chunk: empty input")

var newlinePattern = regexp.MustCompile(`\r\n|\r`)

// Processor splits document text into overlapping chunks.
type Processor struct {
	settings Settings
}

// NewProcessor builds a processor with validated settings.
func NewProcessor(settings Settings) (*Processor, error) {
	if settings.Size <= 0 {
		return nil, errors.New("chunk: size must be greater than zero")
	}
	if settings.Overlap < 0 {
		return nil, errors.New("chunk: overlap cannot be negative")
	}
	if settings.Overlap >= settings.Size {
		return nil, fmt.Errorf("chunk: overlap %d must be smaller than size %d", settings.Overlap, settings.Size)
	}
	return &Processor{settings: settings}, nil
}

// Split returns the ordered chunk texts for one document. Text shorter
// than the chunk size yields exactly one chunk. The recursive splitter
// prefers paragraph, sentence, and word boundaries before hard cuts.
func (p *Processor) Split(text string) ([]string, error) {
	prepared := p.preprocess(text)
	if prepared == "" {
		return nil, ErrEmptyInput
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(p.settings.Size),
		textsplitter.WithChunkOverlap(p.settings.Overlap),
	)
	segments, err := splitter.SplitText(prepared)
	if err != nil {
		return nil, fmt.Errorf("chunk: split text: %w", err)
	}
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		out = append(out, segment)
	}
	if len(out) == 0 {
		return nil, ErrEmptyInput
	}
	return out, nil
}

// Process splits a document and produces deterministic chunk records.
// Chunk IDs derive from the document id, index, and content hash, so
// re-ingesting identical content produces identical ids.
func (p *Processor) Process(docID, text string, metadata map[string]any) ([]Chunk, error) {
	if strings.TrimSpace(docID) == "" {
		return nil, errors.New("chunk: document id is required")
	}
	segments, err := p.Split(text)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	chunks := make([]Chunk, 0, len(segments))
	for idx, segment := range segments {
		trimmed := strings.TrimSpace(segment)
		hash := hashText(trimmed)
		if p.settings.Deduplicate {
			if _, exists := seen[hash]; exists {
				continue
			}
			seen[hash] = struct{}{}
		}
		meta := core.CloneMap(metadata)
		if meta == nil {
			meta = make(map[string]any)
		}
		meta["chunk_index"] = idx
		chunks = append(chunks, Chunk{
			ID:       hashText(docID + "::" + fmt.Sprint(idx) + "::" + hash),
			Index:    idx,
			Text:     trimmed,
			Hash:     hash,
			Metadata: meta,
		})
	}
	return chunks, nil
}

func (p *Processor) preprocess(text string) string {
	normalized := text
	if p.settings.NormalizeNewlines {
		normalized = newlinePattern.ReplaceAllString(normalized, "\n")
	}
	return strings.TrimSpace(normalized)
}

func hashText(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:16])
}
