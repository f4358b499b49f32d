package tui

import (
	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/studioctl/pkg/derive"
	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/pkg/errors"
)

// Sender is the part of *tea.Program the forwarder needs.
type Sender interface {
	Send(msg tea.Msg)
}

func RegisterUIForwarder(bus *Bus, p Sender) {
	bus.AddHandler("studioctl-ui-forward", TopicUIMessages, func(msg *message.Message) error {
		defer msg.Ack()

		env, err := ParseEnvelope(msg.Payload)
		if err != nil {
			return errors.Wrap(err, "ui envelope")
		}

		switch env.Type {
		case UITypeProjections:
			var proj derive.Projections
			if err := env.Decode(&proj); err != nil {
				return err
			}
			p.Send(ProjectionsMsg{Projections: proj})
		case UITypeChatMessage:
			var m protocol.ChatMessage
			if err := env.Decode(&m); err != nil {
				return err
			}
			p.Send(ChatMessageMsg{Message: m})
		case UITypeActionResult:
			var res ActionResult
			if err := env.Decode(&res); err != nil {
				return err
			}
			p.Send(ActionResultMsg{Result: res})
		case UITypeEventAppend:
			var entry EventLogEntry
			if err := env.Decode(&entry); err != nil {
				return err
			}
			p.Send(EventLogAppendMsg{Entry: entry})
		}
		return nil
	})
}
