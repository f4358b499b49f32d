package chat

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrDuplicateMessage is returned when a turn is started with the id of a turn
// that is still streaming.
var ErrDuplicateMessage = errors.New("message id already streaming")

type Streamer interface {
	StreamChat(ctx context.Context, req protocol.ChatRequest) (<-chan protocol.ChatEvent, error)
}

type MessageLog interface {
	Append(project string, msg protocol.ChatMessage) error
	Replace(project string, msg protocol.ChatMessage) error
	Messages(project string) []protocol.ChatMessage
}

// HistoryLimit bounds how many earlier text messages are sent with a turn.
const HistoryLimit = 20

type Session struct {
	streamer Streamer
	log      MessageLog
	now      func() time.Time

	mu       sync.Mutex
	inflight map[string]bool
}

func NewSession(streamer Streamer, log MessageLog) *Session {
	return &Session{
		streamer: streamer,
		log:      log,
		now:      time.Now,
		inflight: map[string]bool{},
	}
}

type SendOptions struct {
	// MessageID names the assistant message; a fresh uuid when empty.
	MessageID string
	// OnRecord sees the user prompt and the assistant placeholder once they
	// are stored.
	OnRecord func(protocol.ChatMessage)
	OnUpdate func(protocol.ChatMessage)
}

// Send records the user prompt, streams the assistant reply and returns it
// finalized. Stream failures never surface as errors: they end up in the
// message as an interruption. Errors are reserved for bookkeeping failures.
func (s *Session) Send(ctx context.Context, project, prompt string, opts SendOptions) (protocol.ChatMessage, error) {
	id := opts.MessageID
	if id == "" {
		id = uuid.NewString()
	}
	if err := s.begin(id); err != nil {
		return protocol.ChatMessage{}, err
	}
	defer s.end(id)

	history := s.history(project)
	user := protocol.ChatMessage{
		ID:        uuid.NewString(),
		Role:      protocol.RoleUser,
		Kind:      protocol.MessageText,
		Content:   prompt,
		CreatedAt: s.now().UnixMilli(),
	}
	if err := s.log.Append(project, user); err != nil {
		return protocol.ChatMessage{}, errors.Wrap(err, "append user message")
	}
	if opts.OnRecord != nil {
		opts.OnRecord(user)
	}

	reply := protocol.ChatMessage{
		ID:        id,
		Role:      protocol.RoleAssistant,
		Kind:      protocol.MessageText,
		Streaming: true,
		CreatedAt: s.now().UnixMilli(),
	}
	if err := s.log.Append(project, reply); err != nil {
		return protocol.ChatMessage{}, errors.Wrap(err, "append assistant message")
	}
	if opts.OnRecord != nil {
		opts.OnRecord(reply)
	}

	asm := &Assembler{OnUpdate: func(m protocol.ChatMessage) {
		if m.Streaming {
			_ = s.log.Replace(project, m)
		}
		if opts.OnUpdate != nil {
			opts.OnUpdate(m)
		}
	}}

	events, err := s.streamer.StreamChat(ctx, protocol.ChatRequest{ProjectID: project, Message: prompt, History: history})
	if err != nil {
		failed := make(chan protocol.ChatEvent, 1)
		failed <- protocol.ChatEvent{Type: protocol.ChatEventError, Message: err.Error()}
		close(failed)
		events = failed
	}

	final := asm.Assemble(ctx, reply, events)
	if err := s.log.Replace(project, final); err != nil {
		return final, errors.Wrap(err, "store assistant message")
	}
	return final, nil
}

func (s *Session) begin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[id] {
		return errors.Wrap(ErrDuplicateMessage, id)
	}
	s.inflight[id] = true
	return nil
}

func (s *Session) end(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

// Streaming reports whether a turn is in flight.
func (s *Session) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight) > 0
}

func (s *Session) history(project string) []protocol.ChatHistory {
	var out []protocol.ChatHistory
	for _, m := range s.log.Messages(project) {
		if m.Kind != protocol.MessageText || m.Streaming || m.Content == "" {
			continue
		}
		if m.Role != protocol.RoleUser && m.Role != protocol.RoleAssistant {
			continue
		}
		out = append(out, protocol.ChatHistory{Role: string(m.Role), Content: m.Content})
	}
	if len(out) > HistoryLimit {
		out = out[len(out)-HistoryLimit:]
	}
	return out
}
