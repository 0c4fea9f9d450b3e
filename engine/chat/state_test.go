package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState(t *testing.T) {
	t.Run("ShouldReplayPreambleFirst", func(t *testing.T) {
		state := NewState(SystemPreamble)
		state.Append(RoleUser, "hola")
		state.Append(RoleAssistant, "buenas")
		replay := state.Replay()
		require.Len(t, replay, 3)
		assert.Equal(t, RoleSystem, replay[0].Role)
		assert.Equal(t, SystemPreamble, replay[0].Content)
		assert.Equal(t, RoleUser, replay[1].Role)
		assert.Equal(t, RoleAssistant, replay[2].Role)
	})

	t.Run("ShouldStripInterveningSystemMessages", func(t *testing.T) {
		state := NewState(SystemPreamble)
		state.Append(RoleUser, "pregunta")
		state.Append(RoleSystem, "directiva puntual")
		state.Append(RoleAssistant, "respuesta")
		replay := state.Replay()
		require.Len(t, replay, 3)
		for _, msg := range replay[1:] {
			assert.NotEqual(t, RoleSystem, msg.Role)
		}
	})

	t.Run("ShouldResetToPreambleOnly", func(t *testing.T) {
		state := NewState(SystemPreamble)
		state.Append(RoleUser, "pregunta")
		state.Reset()
		assert.Zero(t, state.Len())
		replay := state.Replay()
		require.Len(t, replay, 1)
		assert.Equal(t, RoleSystem, replay[0].Role)
	})

	t.Run("ShouldOmitEmptyPreamble", func(t *testing.T) {
		state := NewState("")
		state.Append(RoleUser, "pregunta")
		assert.Len(t, state.Replay(), 1)
	})
}
