package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	t.Run("ShouldBeOneForSameVector", func(t *testing.T) {
		a := []float32{1, 2, 3}
		got, err := Cosine(a, a)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("ShouldBeMinusOneForNegatedVector", func(t *testing.T) {
		got, err := Cosine([]float32{1, 2, 3}, []float32{-1, -2, -3})
		require.NoError(t, err)
		assert.InDelta(t, -1.0, got, 1e-9)
	})

	t.Run("ShouldBeZeroForZeroVector", func(t *testing.T) {
		got, err := Cosine([]float32{1, 2, 3}, []float32{0, 0, 0})
		require.NoError(t, err)
		assert.Zero(t, got)
	})

	t.Run("ShouldFailOnLengthMismatch", func(t *testing.T) {
		_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
		require.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestStore(t *testing.T) {
	doc := func(title string, seeds ...float32) Document {
		chunks := make([]Chunk, len(seeds))
		for i, seed := range seeds {
			chunks[i] = Chunk{Content: title + "-frag", Embedding: []float32{1, seed}}
		}
		return Document{Title: title, Chunks: chunks}
	}

	t.Run("ShouldAddListAndRemove", func(t *testing.T) {
		store := NewStore()
		id, err := store.Add("s1", doc("Factura", 0.1))
		require.NoError(t, err)
		assert.True(t, store.HasDocuments("s1"))
		assert.Len(t, store.List("s1"), 1)
		assert.True(t, store.Remove("s1", id))
		assert.False(t, store.HasDocuments("s1"))
		assert.False(t, store.Remove("s1", id))
	})

	t.Run("ShouldRejectEmptyDocuments", func(t *testing.T) {
		store := NewStore()
		_, err := store.Add("s1", Document{Title: "vacio"})
		require.Error(t, err)
		_, err = store.Add("", doc("x", 0.1))
		require.Error(t, err)
	})

	t.Run("ShouldClearWholeSession", func(t *testing.T) {
		store := NewStore()
		_, err := store.Add("s1", doc("A", 0.1))
		require.NoError(t, err)
		_, err = store.Add("s1", doc("B", 0.2))
		require.NoError(t, err)
		store.Clear("s1")
		assert.Empty(t, store.List("s1"))
	})

	t.Run("ShouldIsolateSessions", func(t *testing.T) {
		store := NewStore()
		_, err := store.Add("s1", doc("A", 0.1))
		require.NoError(t, err)
		assert.False(t, store.HasDocuments("s2"))
	})

	t.Run("ShouldRankAcrossDocumentsDescending", func(t *testing.T) {
		store := NewStore()
		_, err := store.Add("s1", Document{Title: "A", Chunks: []Chunk{
			{Content: "cerca", Embedding: []float32{1, 0}},
			{Content: "lejos", Embedding: []float32{0, 1}},
		}})
		require.NoError(t, err)
		_, err = store.Add("s1", Document{Title: "B", Chunks: []Chunk{
			{Content: "medio", Embedding: []float32{1, 1}},
		}})
		require.NoError(t, err)
		matches, err := store.Search("s1", []float32{1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "cerca", matches[0].Content)
		assert.Equal(t, "medio", matches[1].Content)
		assert.Equal(t, "B", matches[1].DocumentTitle)
	})

	t.Run("ShouldCapPerDocumentContribution", func(t *testing.T) {
		store := NewStore()
		_, err := store.Add("s1", doc("A", 0.1, 0.2, 0.3, 0.4, 0.5))
		require.NoError(t, err)
		matches, err := store.Search("s1", []float32{1, 0}, 10)
		require.NoError(t, err)
		assert.Len(t, matches, perDocumentTopK)
	})

	t.Run("ShouldPropagateDimensionMismatch", func(t *testing.T) {
		store := NewStore()
		_, err := store.Add("s1", doc("A", 0.1))
		require.NoError(t, err)
		_, err = store.Search("s1", []float32{1, 0, 0}, 5)
		require.ErrorIs(t, err, ErrDimensionMismatch)
	})
}
