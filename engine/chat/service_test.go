package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contabot/contabot/engine/chat/intent"
	"github.com/contabot/contabot/engine/knowledge/retriever"
)

type fakeGenerator struct {
	replies []string
	err     error
	calls   [][]Message
	opts    []GenerateOptions
}

func (g *fakeGenerator) Generate(_ context.Context, messages []Message, opts GenerateOptions) (string, error) {
	g.calls = append(g.calls, append([]Message(nil), messages...))
	g.opts = append(g.opts, opts)
	if g.err != nil {
		return "", g.err
	}
	reply := g.replies[0]
	if len(g.replies) > 1 {
		g.replies = g.replies[1:]
	}
	return reply, nil
}

type chatEmbedder struct{}

func (chatEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (chatEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (chatEmbedder) Dimension() int { return 3 }

func testBudget() Budget {
	return Budget{Temperature: 0.7, Precision: 0.2, DefaultTokens: 1024, ExtractTokens: 512, GuideTokens: 2048}
}

func newChatService(t *testing.T, gen Generator) *Service {
	t.Helper()
	retr, err := retriever.NewService(chatEmbedder{}, retriever.Config{TopK: 5, MinWords: 3, LongQueryWords: 18})
	require.NoError(t, err)
	svc, err := NewService(gen, retr, testBudget())
	require.NoError(t, err)
	return svc
}

func TestRespond(t *testing.T) {
	t.Run("ShouldShortCircuitOnIntentMatch", func(t *testing.T) {
		gen := &fakeGenerator{}
		svc := newChatService(t, gen)
		reply, err := svc.Respond(context.Background(), "s1", "sube esta factura", nil)
		require.NoError(t, err)
		assert.Equal(t, intent.ActionExpenseUpload, reply.Action)
		assert.Equal(t, "upload", reply.SectionID)
		assert.NotEmpty(t, reply.Text)
		assert.Empty(t, gen.calls)
	})

	t.Run("ShouldAnswerGreetingWithoutGenerator", func(t *testing.T) {
		gen := &fakeGenerator{}
		svc := newChatService(t, gen)
		reply, err := svc.Respond(context.Background(), "s1", "hola", nil)
		require.NoError(t, err)
		assert.Equal(t, GreetingReply, reply.Text)
		assert.Empty(t, gen.calls)
	})

	t.Run("ShouldReplayHistoryAcrossTurns", func(t *testing.T) {
		gen := &fakeGenerator{replies: []string{"primera", "segunda"}}
		svc := newChatService(t, gen)
		_, err := svc.Respond(context.Background(), "s1", "tengo una duda sobre el iva", nil)
		require.NoError(t, err)
		_, err = svc.Respond(context.Background(), "s1", "y sobre el irpf tambien", nil)
		require.NoError(t, err)
		require.Len(t, gen.calls, 2)
		second := gen.calls[1]
		// Preamble, first user turn, first assistant turn, new user turn.
		require.Len(t, second, 4)
		assert.Equal(t, SystemPreamble, second[0].Content)
		assert.Equal(t, "tengo una duda sobre el iva", second[1].Content)
		assert.Equal(t, "primera", second[2].Content)
		assert.Equal(t, "y sobre el irpf tambien", second[3].Content)
	})

	t.Run("ShouldNotPersistPerTurnDirectives", func(t *testing.T) {
		gen := &fakeGenerator{replies: []string{"respuesta", "otra"}}
		svc := newChatService(t, gen)
		_, err := svc.Respond(context.Background(), "s1", "recomiéndame una película", nil)
		require.NoError(t, err)
		require.Len(t, gen.calls, 1)
		first := gen.calls[0]
		// The disclosure directive rides along as a one-off system message.
		require.Len(t, first, 3)
		assert.Equal(t, RoleSystem, first[1].Role)
		assert.Contains(t, first[1].Content, "asistente de IA")

		_, err = svc.Respond(context.Background(), "s1", "tengo dudas sobre el iva", nil)
		require.NoError(t, err)
		second := gen.calls[1]
		for _, msg := range second[1:] {
			assert.NotEqual(t, RoleSystem, msg.Role)
		}
	})

	t.Run("ShouldPickParamsByShape", func(t *testing.T) {
		gen := &fakeGenerator{replies: []string{"guia", "respuesta"}}
		svc := newChatService(t, gen)
		_, err := svc.Respond(context.Background(), "s1", "como presentar la declaración trimestral", nil)
		require.NoError(t, err)
		_, err = svc.Respond(context.Background(), "s1", "tengo una duda sobre mi contabilidad", nil)
		require.NoError(t, err)
		require.Len(t, gen.opts, 2)
		assert.Equal(t, 0.2, gen.opts[0].Temperature)
		assert.Equal(t, 2048, gen.opts[0].MaxTokens)
		assert.Equal(t, 0.7, gen.opts[1].Temperature)
		assert.Equal(t, 1024, gen.opts[1].MaxTokens)
	})

	t.Run("ShouldGroundReplyWhenSearcherAvailable", func(t *testing.T) {
		gen := &fakeGenerator{replies: []string{"Total: 100 EUR. Fragmentos usados: {1}"}}
		svc := newChatService(t, gen)
		searcher := retriever.SearcherFunc(func(context.Context, []float32, int) ([]retriever.Fragment, error) {
			return []retriever.Fragment{{Content: "Total factura: 100 EUR", Score: 0.9}}, nil
		})
		reply, err := svc.Respond(context.Background(), "s1", "que pone la factura de marzo", searcher)
		require.NoError(t, err)
		assert.True(t, reply.Grounded)
		require.Len(t, reply.Fragments, 1)
		require.Len(t, gen.calls, 1)
		last := gen.calls[0][len(gen.calls[0])-1]
		assert.Contains(t, last.Content, "Fragmento 1")
		assert.Contains(t, last.Content, "que pone la factura de marzo")
	})

	t.Run("ShouldFallBackToDirectWhenSearchFails", func(t *testing.T) {
		gen := &fakeGenerator{replies: []string{"respuesta directa"}}
		svc := newChatService(t, gen)
		searcher := retriever.SearcherFunc(func(context.Context, []float32, int) ([]retriever.Fragment, error) {
			return nil, errors.New("store down")
		})
		reply, err := svc.Respond(context.Background(), "s1", "que pone la factura de marzo", searcher)
		require.NoError(t, err)
		assert.False(t, reply.Grounded)
		assert.Equal(t, "respuesta directa", reply.Text)
	})

	t.Run("ShouldApologizeOnGenerationFailure", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("model unavailable")}
		svc := newChatService(t, gen)
		reply, err := svc.Respond(context.Background(), "s1", "tengo una duda sobre el iva", nil)
		require.NoError(t, err)
		assert.Equal(t, generationFailureReply, reply.Text)

		// The failed turn must not pollute history; the next turn sees a
		// clean replay.
		gen.err = nil
		gen.replies = []string{"respuesta"}
		_, err = svc.Respond(context.Background(), "s1", "tengo una duda sobre el iva", nil)
		require.NoError(t, err)
		require.Len(t, gen.calls, 2)
		assert.Len(t, gen.calls[1], 2)
	})

	t.Run("ShouldRejectEmptyMessage", func(t *testing.T) {
		svc := newChatService(t, &fakeGenerator{})
		_, err := svc.Respond(context.Background(), "s1", "   ", nil)
		assert.Error(t, err)
	})

	t.Run("ShouldResetSessionHistory", func(t *testing.T) {
		gen := &fakeGenerator{replies: []string{"una", "dos"}}
		svc := newChatService(t, gen)
		_, err := svc.Respond(context.Background(), "s1", "tengo una duda sobre el iva", nil)
		require.NoError(t, err)
		svc.Reset("s1")
		_, err = svc.Respond(context.Background(), "s1", "tengo otra duda sobre el iva", nil)
		require.NoError(t, err)
		require.Len(t, gen.calls, 2)
		assert.Len(t, gen.calls[1], 2)
	})

	t.Run("ShouldIsolateSessions", func(t *testing.T) {
		gen := &fakeGenerator{replies: []string{"una", "dos"}}
		svc := newChatService(t, gen)
		_, err := svc.Respond(context.Background(), "s1", "tengo una duda sobre el iva", nil)
		require.NoError(t, err)
		_, err = svc.Respond(context.Background(), "s2", "tengo una duda sobre el iva", nil)
		require.NoError(t, err)
		require.Len(t, gen.calls, 2)
		assert.Len(t, gen.calls[1], 2)
	})
}
