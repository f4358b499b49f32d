package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
)

func RegisterDomainToUITransformer(bus *Bus) {
	// Only error transitions are echoed into the event log; projections
	// arrive on every poll tick.
	var lastErrors string

	bus.AddHandler("studioctl-domain-to-ui", TopicStudioEvents, func(msg *message.Message) error {
		defer msg.Ack()

		env, err := ParseEnvelope(msg.Payload)
		if err != nil {
			return errors.Wrap(err, "domain envelope")
		}

		publishUI := func(uiType string, payload any) error {
			return Publish(bus.Publisher, TopicUIMessages, uiType, payload)
		}
		publishEventText := func(at time.Time, source string, level LogLevel, text string) error {
			return publishUI(UITypeEventAppend, EventLogEntry{At: at, Source: source, Level: level, Text: text})
		}

		switch env.Type {
		case DomainTypeProjectionsUpdated:
			var ev ProjectionsUpdated
			if err := env.Decode(&ev); err != nil {
				return err
			}
			if err := publishUI(UITypeProjections, ev.Projections); err != nil {
				return err
			}

			summary := summarizeErrors(ev.Projections.Errors)
			if summary == lastErrors {
				return nil
			}
			lastErrors = summary
			if summary == "" {
				return publishEventText(ev.At, "poll", LogLevelInfo, "engine: reachable again")
			}
			return publishEventText(ev.At, "poll", LogLevelWarn, "engine: "+summary)
		case DomainTypeChatUpdated:
			var ev ChatUpdated
			if err := env.Decode(&ev); err != nil {
				return err
			}
			if err := publishUI(UITypeChatMessage, ev.Message); err != nil {
				return err
			}
			if ev.Message.Interrupted && !ev.Message.Streaming {
				return publishEventText(time.Now(), "chat", LogLevelWarn, "chat: response interrupted")
			}
			return nil
		case DomainTypeActionResult:
			var ev ActionResult
			if err := env.Decode(&ev); err != nil {
				return err
			}
			if err := publishUI(UITypeActionResult, ev); err != nil {
				return err
			}
			switch {
			case ev.Ok:
				return publishEventText(ev.At, "actions", LogLevelInfo, fmt.Sprintf("action ok: %s", ev.Label))
			case ev.Busy:
				return publishEventText(ev.At, "actions", LogLevelDebug, fmt.Sprintf("action busy: %s", ev.Label))
			default:
				return publishEventText(ev.At, "actions", LogLevelError, fmt.Sprintf("action failed: %s: %s", ev.Label, ev.Error))
			}
		case DomainTypeActionLog:
			var ev ActionLog
			if err := env.Decode(&ev); err != nil {
				return err
			}
			level := ev.Level
			if level == "" {
				level = LogLevelInfo
			}
			return publishEventText(ev.At, "system", level, ev.Text)
		default:
			return nil
		}
	})
}

func summarizeErrors(errs map[string]string) string {
	if len(errs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+errs[k])
	}
	return strings.Join(parts, "; ")
}
