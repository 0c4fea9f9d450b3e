package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/contabot/contabot/engine/chat/intent"
	"github.com/contabot/contabot/engine/knowledge/retriever"
	"github.com/contabot/contabot/pkg/logger"
)

// Reply is the policy engine's answer for one user turn.
type Reply struct {
	Text         string
	Action       intent.Action
	SectionID    string
	SectionLabel string
	Grounded     bool
	Fragments    []retriever.Fragment
}

// Service is the conversational policy engine. It owns per-session
// conversation state and decides, turn by turn, between UI actions,
// canned replies, retrieval-grounded generation, and direct generation.
type Service struct {
	generator Generator
	retriever *retriever.Service
	budget    Budget

	mu       sync.Mutex
	sessions map[string]*sessionSlot
}

// sessionSlot serializes generation per session. One in-flight turn at
// a time keeps the replayed history in strict submission order.
type sessionSlot struct {
	mu    sync.Mutex
	state *State
}

func NewService(gen Generator, retr *retriever.Service, budget Budget) (*Service, error) {
	if gen == nil {
		return nil, errors.New("chat: generator is required")
	}
	return &Service{
		generator: gen,
		retriever: retr,
		budget:    budget,
		sessions:  make(map[string]*sessionSlot),
	}, nil
}

// Respond runs the policy order for one message: intent short-circuit,
// greeting short-circuit, then generation with shape directives. The
// searcher is optional; without one every generated turn is direct.
func (s *Service) Respond(ctx context.Context, sessionID, message string, searcher retriever.Searcher) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.New("chat: message is required")
	}
	if routed := intent.Detect(message); routed.Matched() {
		id, label := routed.Action.Section()
		return &Reply{Text: routed.Guide, Action: routed.Action, SectionID: id, SectionLabel: label}, nil
	}
	if IsGreeting(message) {
		return &Reply{Text: GreetingReply}, nil
	}

	directives := Directives(message)
	params := s.budget.Decide(ClassifyShape(message))
	slot := s.slot(sessionID)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	generate := s.generateFn(slot.state, directives, params)

	log := logger.FromContext(ctx)
	if s.retriever != nil && searcher != nil && s.retriever.Needed(message) {
		outcome, err := s.retriever.Answer(ctx, message, searcher, generate)
		if err != nil {
			log.Error("generation failed", "session_id", sessionID, "error", err)
			return &Reply{Text: generationFailureReply}, nil
		}
		if outcome.FallbackReason != nil {
			log.Warn("answered without retrieval", "session_id", sessionID, "reason", outcome.FallbackReason)
		}
		return &Reply{Text: outcome.Reply, Grounded: outcome.Grounded, Fragments: outcome.Fragments}, nil
	}

	text, err := generate(ctx, message)
	if err != nil {
		log.Error("generation failed", "session_id", sessionID, "error", err)
		return &Reply{Text: generationFailureReply}, nil
	}
	return &Reply{Text: text}, nil
}

// Reset clears a session's history back to the preamble.
func (s *Service) Reset(sessionID string) {
	slot := s.slot(sessionID)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	slot.state.Reset()
}

// generateFn binds one turn's directives and parameters into a
// retriever-compatible generation callback. Successful turns are
// appended to the session history; the per-turn directive system
// message is not persisted.
func (s *Service) generateFn(state *State, directives []string, params Params) retriever.GenerateFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		messages := state.Replay()
		if len(directives) > 0 {
			messages = append(messages, Message{Role: RoleSystem, Content: strings.Join(directives, "\n")})
		}
		messages = append(messages, Message{Role: RoleUser, Content: prompt})
		text, err := s.generator.Generate(ctx, messages, GenerateOptions{
			Temperature: params.Temperature,
			MaxTokens:   params.MaxTokens,
		})
		if err != nil {
			return "", err
		}
		state.Append(RoleUser, prompt)
		state.Append(RoleAssistant, text)
		return text, nil
	}
}

func (s *Service) slot(sessionID string) *sessionSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.sessions[sessionID]
	if !ok {
		slot = &sessionSlot{state: NewState(SystemPreamble)}
		s.sessions[sessionID] = slot
	}
	return slot
}
