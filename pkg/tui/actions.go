package tui

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/pkg/errors"
)

type ChatSendRequest struct {
	At     time.Time `json:"at"`
	Prompt string    `json:"prompt"`
}

type ActionConfirmRequest struct {
	At              time.Time               `json:"at"`
	SourceMessageID string                  `json:"source_message_id"`
	Action          protocol.ProposedAction `json:"action"`
}

type MarkReadRequest struct {
	At  time.Time `json:"at"`
	IDs []string  `json:"ids"`
}

type RefreshRequest struct {
	At time.Time `json:"at"`
}

func PublishChatSend(pub message.Publisher, req ChatSendRequest) error {
	if req.Prompt == "" {
		return errors.New("empty prompt")
	}
	if req.At.IsZero() {
		req.At = time.Now()
	}
	return Publish(pub, TopicUIActions, UITypeChatSendRequest, req)
}

func PublishActionConfirm(pub message.Publisher, req ActionConfirmRequest) error {
	if req.Action.ID == "" {
		return errors.New("missing action id")
	}
	if req.At.IsZero() {
		req.At = time.Now()
	}
	return Publish(pub, TopicUIActions, UITypeActionConfirmRequest, req)
}

func PublishMarkRead(pub message.Publisher, req MarkReadRequest) error {
	if len(req.IDs) == 0 {
		return errors.New("no inbox ids")
	}
	if req.At.IsZero() {
		req.At = time.Now()
	}
	return Publish(pub, TopicUIActions, UITypeMarkReadRequest, req)
}

func PublishRefresh(pub message.Publisher) error {
	return Publish(pub, TopicUIActions, UITypeRefreshRequest, RefreshRequest{At: time.Now()})
}

// Dispatcher hands UI actions to the runners. Models depend on it instead of
// the bus so they can be driven without one.
type Dispatcher interface {
	SendChat(prompt string) error
	ConfirmAction(sourceMessageID string, a protocol.ProposedAction) error
	MarkRead(ids ...string) error
	Refresh() error
}

type BusDispatcher struct {
	Pub message.Publisher
}

var _ Dispatcher = BusDispatcher{}

func (d BusDispatcher) SendChat(prompt string) error {
	return PublishChatSend(d.Pub, ChatSendRequest{Prompt: prompt})
}

func (d BusDispatcher) ConfirmAction(sourceMessageID string, a protocol.ProposedAction) error {
	return PublishActionConfirm(d.Pub, ActionConfirmRequest{SourceMessageID: sourceMessageID, Action: a})
}

func (d BusDispatcher) MarkRead(ids ...string) error {
	return PublishMarkRead(d.Pub, MarkReadRequest{IDs: ids})
}

func (d BusDispatcher) Refresh() error {
	return PublishRefresh(d.Pub)
}
