package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	t.Run("ShouldWriteStructuredFields", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: DebugLevel, Output: &buf})
		log.Info("ingest finished", "document_id", "abc", "chunks", 3)
		out := buf.String()
		assert.Contains(t, out, "ingest finished")
		assert.Contains(t, out, "document_id")
	})

	t.Run("ShouldFilterBelowConfiguredLevel", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: WarnLevel, Output: &buf})
		log.Debug("hidden")
		log.Warn("visible")
		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "visible")
	})

	t.Run("ShouldEmitJSONWhenConfigured", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: InfoLevel, Output: &buf, JSON: true})
		log.Info("hello", "key", "value")
		require.True(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"))
	})

	t.Run("ShouldRoundTripThroughContext", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: InfoLevel, Output: &buf}).With("session_id", "s1")
		ctx := ContextWithLogger(context.Background(), log)
		FromContext(ctx).Info("turn processed")
		assert.Contains(t, buf.String(), "session_id")
	})

	t.Run("ShouldFallBackToDefaultLogger", func(t *testing.T) {
		require.NotNil(t, FromContext(context.Background()))
	})
}
