package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("ShouldLoadDefaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 768, cfg.Embedder.Dimension)
		assert.Equal(t, 1200, cfg.Chunking.Size)
		assert.Equal(t, 200, cfg.Chunking.Overlap)
		assert.Equal(t, 5, cfg.Retrieval.TopK)
		assert.InDelta(t, 0.3, cfg.Retrieval.SimilarityThreshold, 1e-9)
	})

	t.Run("ShouldOverrideFromEnvironment", func(t *testing.T) {
		t.Setenv("CONTABOT_SERVER_PORT", "9090")
		t.Setenv("CONTABOT_EMBEDDER_MODEL", "text-embedding-005")
		t.Setenv("CONTABOT_RETRIEVAL_SIMILARITY_THRESHOLD", "0.42")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "text-embedding-005", cfg.Embedder.Model)
		assert.InDelta(t, 0.42, cfg.Retrieval.SimilarityThreshold, 1e-9)
	})

	t.Run("ShouldRejectInvalidValues", func(t *testing.T) {
		t.Setenv("CONTABOT_EMBEDDER_PROVIDER", "aws")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("ShouldTransformEnvKeys", func(t *testing.T) {
		assert.Equal(t, "server.read_timeout", transformEnvKey("SERVER_READ_TIMEOUT"))
		assert.Equal(t, "chat.max_tokens_default", transformEnvKey("CHAT_MAX_TOKENS_DEFAULT"))
		assert.Equal(t, "log", transformEnvKey("LOG"))
	})
}
