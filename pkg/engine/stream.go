package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// StreamChat opens a chat turn. Events are delivered in wire order; the channel
// closes when the response ends or ctx is canceled. A stream that ends
// without a done event simply closes.
func (c *HTTPClient) StreamChat(ctx context.Context, req protocol.ChatRequest) (<-chan protocol.ChatEvent, error) {
	if req.ProjectID == "" {
		return nil, errors.New("chat: missing project id")
	}
	hreq, err := c.newRequest(ctx, http.MethodPost, "/api/projects/"+url.PathEscape(req.ProjectID)+"/chat", req)
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Accept", "text/event-stream")

	resp, err := c.hc.Do(hreq)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: open chat stream", protocol.ErrTransport)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		return nil, newAPIError(resp)
	}

	events := make(chan protocol.ChatEvent, 16)
	go func() {
		defer close(events)
		defer func() { _ = resp.Body.Close() }()
		ReadChatEvents(ctx, resp.Body, events)
	}()
	return events, nil
}

// ReadChatEvents decodes server-sent events (data: lines, blank line
// terminated) or bare JSON lines from r into out. It stops after a done or
// error event, at end of input, or when ctx is canceled. It does not close out.
func ReadChatEvents(ctx context.Context, r io.Reader, out chan<- protocol.ChatEvent) {
	br := bufio.NewReader(r)
	var (
		data      [][]byte
		eventName string
	)

	emit := func(ev protocol.ChatEvent) bool {
		select {
		case out <- ev:
			return ev.Type != protocol.ChatEventDone && ev.Type != protocol.ChatEventError
		case <-ctx.Done():
			return false
		}
	}
	flush := func() bool {
		if len(data) == 0 {
			eventName = ""
			return true
		}
		payload := bytes.Join(data, []byte("\n"))
		data = nil
		ev, ok := decodeChatEvent(payload, eventName)
		eventName = ""
		if !ok {
			return true
		}
		return emit(ev)
	}

	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			line = bytes.TrimRight(line, "\r\n")
			switch {
			case len(line) == 0:
				if !flush() {
					return
				}
			case line[0] == ':':
			case bytes.HasPrefix(line, []byte("data:")):
				data = append(data, bytes.TrimPrefix(bytes.TrimPrefix(line, []byte("data:")), []byte(" ")))
			case bytes.HasPrefix(line, []byte("event:")):
				eventName = string(bytes.TrimSpace(bytes.TrimPrefix(line, []byte("event:"))))
			case bytes.HasPrefix(line, []byte("id:")), bytes.HasPrefix(line, []byte("retry:")):
			default:
				// bare JSON line
				if !flush() {
					return
				}
				if ev, ok := decodeChatEvent(line, ""); ok && !emit(ev) {
					return
				}
			}
		}
		if err != nil {
			if !flush() {
				return
			}
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				log.Debug().Err(err).Msg("chat stream read failed")
				emit(protocol.ChatEvent{
					Type:    protocol.ChatEventError,
					Message: errors.Wrapf(err, "%s: read chat stream", protocol.ErrStreamFailed).Error(),
				})
			}
			return
		}
	}
}

// decodeChatEvent turns one frame into an event. Frames that are not JSON
// become error events. Event types this client does not know pass through
// for the consumer to ignore; incomplete tool frames are dropped and invalid
// proposals are removed from actions frames, so one bad frame never ends the
// turn.
func decodeChatEvent(payload []byte, eventName string) (protocol.ChatEvent, bool) {
	trimmed := bytes.TrimSpace(payload)
	if bytes.Equal(trimmed, []byte("[DONE]")) {
		return protocol.ChatEvent{Type: protocol.ChatEventDone}, true
	}
	var ev protocol.ChatEvent
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return protocol.ChatEvent{
			Type:    protocol.ChatEventError,
			Message: errors.Wrapf(err, "%s: undecodable stream frame %q", protocol.ErrMalformedPayload, truncate(string(trimmed), 120)).Error(),
		}, true
	}
	if ev.Type == "" && eventName != "" {
		ev.Type = protocol.ChatEventType(eventName)
	}

	switch ev.Type {
	case protocol.ChatEventText, protocol.ChatEventDone, protocol.ChatEventError:
	case protocol.ChatEventActions:
		valid := ev.Actions[:0:0]
		for _, a := range ev.Actions {
			if err := protocol.ValidateProposedAction(a); err != nil {
				log.Warn().Err(err).Str("action", a.ID).Msg("dropping proposed action")
				continue
			}
			valid = append(valid, a)
		}
		if len(valid) == 0 {
			return ev, false
		}
		ev.Actions = valid
	case protocol.ChatEventToolStart:
		if err := protocol.ValidateChatEvent(ev); err != nil {
			log.Warn().Err(err).Msg("dropping chat event")
			return ev, false
		}
	default:
		log.Debug().Str("type", string(ev.Type)).Msg("passing through unknown chat event")
	}
	return ev, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
