package chat

import (
	"context"
	"fmt"

	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/rs/zerolog/log"
)

const InterruptedNotice = "(Stream interrupted)"

// Assembler folds one turn's event stream into a single message.
type Assembler struct {
	// OnUpdate, if set, receives a copy of the message after every applied
	// event and once more when it is finalized.
	OnUpdate func(protocol.ChatMessage)
}

// Assemble consumes events until done, error, channel close or ctx
// cancellation and returns the finalized message. Text is concatenated in
// delivery order. Anything other than a done event keeps the partial text and
// appends the interruption notice.
func (a *Assembler) Assemble(ctx context.Context, msg protocol.ChatMessage, events <-chan protocol.ChatEvent) protocol.ChatMessage {
	msg.Streaming = true
	msg.Interrupted = false
	a.emit(msg)

	for {
		select {
		case <-ctx.Done():
			return a.interrupt(msg, ctx.Err().Error())
		case ev, ok := <-events:
			if !ok {
				return a.interrupt(msg, "stream closed before done")
			}
			switch ev.Type {
			case protocol.ChatEventText:
				msg.Content += ev.Content
				msg.ToolStatus = ""
			case protocol.ChatEventToolStart:
				msg.ToolStatus = toolStatus(ev)
			case protocol.ChatEventActions:
				msg.Actions = append(msg.Actions, ev.Actions...)
			case protocol.ChatEventDone:
				return a.finalize(msg)
			case protocol.ChatEventError:
				return a.interrupt(msg, ev.Message)
			default:
				log.Debug().Str("message_id", msg.ID).Str("type", string(ev.Type)).Msg("ignoring unknown chat event")
				continue
			}
			a.emit(msg)
		}
	}
}

func (a *Assembler) interrupt(msg protocol.ChatMessage, reason string) protocol.ChatMessage {
	log.Warn().Str("message_id", msg.ID).Str("reason", reason).Msg("chat stream interrupted")
	if msg.Content == "" {
		msg.Content = InterruptedNotice
	} else {
		msg.Content += "\n\n" + InterruptedNotice
	}
	msg.Interrupted = true
	return a.finalize(msg)
}

func (a *Assembler) finalize(msg protocol.ChatMessage) protocol.ChatMessage {
	msg.Streaming = false
	msg.ToolStatus = ""
	a.emit(msg)
	return msg
}

func (a *Assembler) emit(msg protocol.ChatMessage) {
	if a.OnUpdate == nil {
		return
	}
	if msg.Actions != nil {
		msg.Actions = append([]protocol.ProposedAction{}, msg.Actions...)
	}
	a.OnUpdate(msg)
}

func toolStatus(ev protocol.ChatEvent) string {
	name := ev.Name
	if name == "" {
		name = ev.ID
	}
	return fmt.Sprintf("Looking up %s…", name)
}
