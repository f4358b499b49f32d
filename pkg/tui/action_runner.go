package tui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/studioctl/pkg/action"
	"github.com/go-go-golems/studioctl/pkg/chat"
	"github.com/go-go-golems/studioctl/pkg/console"
	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type RunnerOptions struct {
	Project string
	Console *console.Console
	Guard   *action.Guard
	Session *chat.Session
}

// ActionRunner executes UI action requests. Chat turns and confirmations run
// in their own goroutines so that a long stream never holds up a confirm or a
// refresh; the guard and the session reject duplicates.
type ActionRunner struct {
	opts RunnerOptions
	pub  message.Publisher
	ctx  context.Context
	wg   sync.WaitGroup
}

func RegisterUIActionRunner(ctx context.Context, bus *Bus, opts RunnerOptions) *ActionRunner {
	if ctx == nil {
		ctx = context.Background()
	}
	r := &ActionRunner{opts: opts, pub: bus.Publisher, ctx: ctx}

	bus.AddHandler("studioctl-ui-actions", TopicUIActions, func(msg *message.Message) error {
		defer msg.Ack()

		env, err := ParseEnvelope(msg.Payload)
		if err != nil {
			_ = r.logAction(LogLevelWarn, "action: bad envelope (unmarshal failed)")
			return nil
		}

		switch env.Type {
		case UITypeChatSendRequest:
			var req ChatSendRequest
			if err := env.Decode(&req); err != nil || req.Prompt == "" {
				_ = r.logAction(LogLevelWarn, "chat: bad request")
				return nil
			}
			r.spawn(func() { r.sendChat(req) })
		case UITypeActionConfirmRequest:
			var req ActionConfirmRequest
			if err := env.Decode(&req); err != nil {
				_ = r.logAction(LogLevelWarn, "action: bad request (unmarshal failed)")
				return nil
			}
			r.spawn(func() { r.confirm(req) })
		case UITypeMarkReadRequest:
			var req MarkReadRequest
			if err := env.Decode(&req); err != nil {
				return nil
			}
			r.markRead(req)
		case UITypeRefreshRequest:
			r.refresh()
		}
		return nil
	})
	return r
}

// Wait blocks until every spawned chat turn and confirmation has returned.
func (r *ActionRunner) Wait() {
	r.wg.Wait()
}

func (r *ActionRunner) spawn(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

func (r *ActionRunner) sendChat(req ChatSendRequest) {
	if r.opts.Session == nil {
		_ = r.logAction(LogLevelError, "chat: not configured")
		return
	}
	publish := func(m protocol.ChatMessage) {
		if err := Publish(r.pub, TopicStudioEvents, DomainTypeChatUpdated, ChatUpdated{Project: r.opts.Project, Message: m}); err != nil {
			log.Warn().Err(err).Str("message_id", m.ID).Msg("publish chat update")
		}
	}
	_, err := r.opts.Session.Send(r.ctx, r.opts.Project, req.Prompt, chat.SendOptions{
		OnRecord: publish,
		OnUpdate: publish,
	})
	if err != nil {
		_ = r.logAction(LogLevelError, "chat failed: "+err.Error())
	}
}

func (r *ActionRunner) confirm(req ActionConfirmRequest) {
	a := req.Action
	label := a.Label
	if label == "" {
		label = string(a.Type)
	}
	res := ActionResult{
		Project:         r.opts.Project,
		ProposalID:      a.ID,
		SourceMessageID: req.SourceMessageID,
		Label:           label,
	}
	if r.opts.Guard == nil {
		res.At, res.Error = time.Now(), "actions not configured"
		r.publishResult(res)
		return
	}

	_ = r.logAction(LogLevelInfo, "action start: "+label)
	out, err := r.opts.Guard.Confirm(r.ctx, r.opts.Project, req.SourceMessageID, a)
	for _, m := range []*protocol.ChatMessage{out.Failure, out.Confirmation, out.ProgressCard} {
		if m == nil {
			continue
		}
		if perr := Publish(r.pub, TopicStudioEvents, DomainTypeChatUpdated, ChatUpdated{Project: r.opts.Project, Message: *m}); perr != nil {
			log.Warn().Err(perr).Msg("publish action message")
		}
	}

	res.At = time.Now()
	switch {
	case err == nil:
		res.Ok = true
		res.Result = &out.Result
	case errors.Is(err, action.ErrBusy), errors.Is(err, action.ErrAlreadyTaken):
		res.Busy = true
		res.Error = err.Error()
	default:
		res.Error = err.Error()
	}
	r.publishResult(res)
}

func (r *ActionRunner) publishResult(res ActionResult) {
	if err := Publish(r.pub, TopicStudioEvents, DomainTypeActionResult, res); err != nil {
		log.Warn().Err(err).Str("action", res.ProposalID).Msg("publish action result")
	}
}

func (r *ActionRunner) markRead(req MarkReadRequest) {
	if r.opts.Console == nil {
		return
	}
	n, err := r.opts.Console.MarkRead(r.opts.Project, req.IDs...)
	if err != nil {
		_ = r.logAction(LogLevelError, "inbox: mark read failed: "+err.Error())
		return
	}
	if n > 0 {
		_ = r.logAction(LogLevelDebug, fmt.Sprintf("inbox: %d item(s) marked read", n))
	}
}

func (r *ActionRunner) refresh() {
	if r.opts.Console == nil {
		return
	}
	if err := r.opts.Console.Refresh(r.ctx, r.opts.Project); err != nil {
		_ = r.logAction(LogLevelWarn, "refresh: "+err.Error())
		return
	}
	_ = r.logAction(LogLevelDebug, "refresh: ok")
}

func (r *ActionRunner) logAction(level LogLevel, text string) error {
	return Publish(r.pub, TopicStudioEvents, DomainTypeActionLog, ActionLog{At: time.Now(), Level: level, Text: text})
}
