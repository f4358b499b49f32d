package tui

import (
	"time"

	"github.com/go-go-golems/studioctl/pkg/derive"
	"github.com/go-go-golems/studioctl/pkg/protocol"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type EventLogEntry struct {
	At     time.Time `json:"at"`
	Source string    `json:"source,omitempty"`
	Level  LogLevel  `json:"level,omitempty"`
	Text   string    `json:"text"`
}

type ActionLog struct {
	At    time.Time `json:"at"`
	Level LogLevel  `json:"level,omitempty"`
	Text  string    `json:"text"`
}

type ProjectionsUpdated struct {
	At          time.Time          `json:"at"`
	Projections derive.Projections `json:"projections"`
}

// ChatUpdated carries one snapshot of a chat message. Streaming snapshots
// share the message id with the final message.
type ChatUpdated struct {
	Project string               `json:"project"`
	Message protocol.ChatMessage `json:"message"`
}

type ActionResult struct {
	At              time.Time                     `json:"at"`
	Project         string                        `json:"project"`
	ProposalID      string                        `json:"proposal_id"`
	SourceMessageID string                        `json:"source_message_id"`
	Label           string                        `json:"label,omitempty"`
	Ok              bool                          `json:"ok"`
	Busy            bool                          `json:"busy,omitempty"`
	Error           string                        `json:"error,omitempty"`
	Result          *protocol.ConfirmActionResult `json:"result,omitempty"`
}
