package tui

import (
	"github.com/go-go-golems/studioctl/pkg/derive"
	"github.com/go-go-golems/studioctl/pkg/protocol"
)

type ProjectionsMsg struct {
	Projections derive.Projections
}

type ChatMessageMsg struct {
	Message protocol.ChatMessage
}

type ActionResultMsg struct {
	Result ActionResult
}

type EventLogAppendMsg struct {
	Entry EventLogEntry
}

// PublishErrMsg reports that a UI action could not be handed to the bus.
type PublishErrMsg struct {
	Err error
}
