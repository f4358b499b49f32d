package protocol

import "github.com/pkg/errors"

func ValidateProposedAction(a ProposedAction) error {
	if a.ID == "" {
		return errors.Errorf("%s: action missing id", ErrMalformedPayload)
	}
	switch a.Type {
	case ActionStartRun, ActionEditArtifact:
	default:
		return errors.Errorf("%s: action %q has unsupported type %q", ErrUnsupported, a.ID, a.Type)
	}
	if a.Endpoint == "" {
		return errors.Errorf("%s: action %q missing endpoint", ErrMalformedPayload, a.ID)
	}
	return nil
}

func ValidateChatEvent(ev ChatEvent) error {
	switch ev.Type {
	case ChatEventText, ChatEventDone, ChatEventError:
		return nil
	case ChatEventToolStart:
		if ev.Name == "" && ev.ID == "" {
			return errors.Errorf("%s: tool_start without id or name", ErrMalformedPayload)
		}
		return nil
	case ChatEventActions:
		for i, a := range ev.Actions {
			if err := ValidateProposedAction(a); err != nil {
				return errors.Wrapf(err, "actions[%d]", i)
			}
		}
		return nil
	default:
		return errors.Errorf("%s: unknown chat event type %q", ErrMalformedPayload, ev.Type)
	}
}
