package chunk

// Settings configures chunking and preprocessing behavior.
type Settings struct {
	Size              int
	Overlap           int
	Deduplicate       bool
	NormalizeNewlines bool
}

// Chunk is a processed text slice ready for embedding.
type Chunk struct {
	ID       string
	Index    int
	Text     string
	Hash     string
	Metadata map[string]any
}
