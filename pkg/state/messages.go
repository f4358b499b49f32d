package state

import (
	"sync"

	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/pkg/errors"
)

// MessageLog keeps the conversation history of each project in order.
type MessageLog struct {
	mu       sync.Mutex
	path     string
	projects map[string][]protocol.ChatMessage
}

func OpenMessageLog(path string) (*MessageLog, error) {
	m := &MessageLog{path: path, projects: map[string][]protocol.ChatMessage{}}
	if err := load(path, &m.projects); err != nil {
		return nil, err
	}
	if m.projects == nil {
		m.projects = map[string][]protocol.ChatMessage{}
	}
	return m, nil
}

func (m *MessageLog) Append(project string, msg protocol.ChatMessage) error {
	if msg.ID == "" {
		return errors.New("message without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.projects[project] {
		if existing.ID == msg.ID {
			return errors.Errorf("message %s already exists", msg.ID)
		}
	}
	m.projects[project] = append(m.projects[project], msg)
	return m.persistLocked(msg)
}

// Replace overwrites the message with the same id in place.
func (m *MessageLog) Replace(project string, msg protocol.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.projects[project]
	for i := range msgs {
		if msgs[i].ID == msg.ID {
			msgs[i] = msg
			return m.persistLocked(msg)
		}
	}
	return errors.Errorf("message %s not found", msg.ID)
}

func (m *MessageLog) Messages(project string) []protocol.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]protocol.ChatMessage{}, m.projects[project]...)
}

// persistLocked skips disk writes for in-progress streaming snapshots; the
// finalized message is written by the next Replace.
func (m *MessageLog) persistLocked(msg protocol.ChatMessage) error {
	if msg.Streaming {
		return nil
	}
	return save(m.path, m.projects)
}
