package action

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrBusy is returned while another proposal of the same message is being
	// confirmed.
	ErrBusy = errors.New("action in flight")
	// ErrAlreadyTaken is returned when the history already answers the proposal.
	ErrAlreadyTaken = errors.New("action already taken")
)

type Confirmer interface {
	ConfirmAction(ctx context.Context, endpoint string, payload map[string]any) (protocol.ConfirmActionResult, error)
}

type MessageStore interface {
	Append(project string, msg protocol.ChatMessage) error
	Messages(project string) []protocol.ChatMessage
}

type RunPointer interface {
	SetActiveRun(project, runID string) error
}

type Options struct {
	Confirmer Confirmer
	Messages  MessageStore
	Runs      RunPointer
	Now       func() time.Time
}

// Guard dispatches confirmation-gated actions at most once per assistant
// message: confirming one proposal answers its siblings too. In-flight
// messages are tracked in memory; answered ones are recognized by the
// ActionTaken marker in the message history.
type Guard struct {
	confirmer Confirmer
	messages  MessageStore
	runs      RunPointer
	now       func() time.Time

	mu   sync.Mutex
	busy map[string]bool
}

func NewGuard(opts Options) (*Guard, error) {
	if opts.Confirmer == nil {
		return nil, errors.New("missing confirmer")
	}
	if opts.Messages == nil {
		return nil, errors.New("missing message store")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Guard{
		confirmer: opts.Confirmer,
		messages:  opts.Messages,
		runs:      opts.Runs,
		now:       opts.Now,
		busy:      map[string]bool{},
	}, nil
}

// Outcome lists the messages Confirm appended.
type Outcome struct {
	Result       protocol.ConfirmActionResult
	Confirmation *protocol.ChatMessage
	ProgressCard *protocol.ChatMessage
	Failure      *protocol.ChatMessage
}

// Busy reports whether a proposal of sourceMessageID is being confirmed.
func (g *Guard) Busy(sourceMessageID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy[flightKey(sourceMessageID, "")]
}

func flightKey(sourceMessageID, proposalID string) string {
	if sourceMessageID == "" {
		return "proposal:" + proposalID
	}
	return sourceMessageID
}

// Confirm runs the proposal's side effect. Failures are recorded in the
// history as a recoverable error message and returned; the proposal stays
// confirmable.
func (g *Guard) Confirm(ctx context.Context, project, sourceMessageID string, a protocol.ProposedAction) (Outcome, error) {
	if err := protocol.ValidateProposedAction(a); err != nil {
		return Outcome{}, err
	}

	key := flightKey(sourceMessageID, a.ID)
	g.mu.Lock()
	if g.busy[key] {
		g.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	if Answered(g.messages.Messages(project), sourceMessageID, a.ID) {
		g.mu.Unlock()
		return Outcome{}, ErrAlreadyTaken
	}
	g.busy[key] = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.busy, key)
		g.mu.Unlock()
	}()

	l := log.With().Str("project", project).Str("message_id", sourceMessageID).Str("action", a.ID).Str("type", string(a.Type)).Logger()
	l.Info().Msg("action start")

	res, err := g.confirmer.ConfirmAction(ctx, a.Endpoint, a.Payload)
	if err == nil && a.Type == protocol.ActionStartRun && res.RunID == "" {
		err = errors.Errorf("%s: start_run result has no run_id", protocol.ErrMalformedPayload)
	}
	if err != nil {
		l.Warn().Err(err).Msg("action failed")
		fail := g.message(protocol.RoleSystem, protocol.MessageError, fmt.Sprintf("Could not %s: %s. You can try again.", labelOf(a), err.Error()))
		if aerr := g.messages.Append(project, fail); aerr != nil {
			l.Error().Err(aerr).Msg("append failure message")
		}
		return Outcome{Failure: &fail}, errors.Wrapf(err, "%s: %s", protocol.ErrActionFailed, a.ID)
	}

	out := Outcome{Result: res}
	if a.Type == protocol.ActionStartRun && g.runs != nil {
		if err := g.runs.SetActiveRun(project, res.RunID); err != nil {
			l.Error().Err(err).Msg("set active run")
		}
	}

	confirm := g.message(protocol.RoleSystem, protocol.MessageActionTaken, confirmationText(a, res))
	confirm.ActionTaken = &protocol.ActionTaken{
		ProposalID:      a.ID,
		SourceMessageID: sourceMessageID,
		ActionType:      a.Type,
		Result:          res,
	}
	if err := g.messages.Append(project, confirm); err != nil {
		return out, errors.Wrap(err, "append confirmation")
	}
	out.Confirmation = &confirm

	if a.Type == protocol.ActionStartRun {
		recipe, _ := a.Payload["recipe_id"].(string)
		b, err := json.Marshal(protocol.ProgressCardPayload{RunID: res.RunID, RecipeID: recipe, Title: a.Label})
		if err != nil {
			return out, errors.Wrap(err, "marshal progress card")
		}
		card := g.message(protocol.RoleAssistant, protocol.MessageProgressCard, string(b))
		if err := g.messages.Append(project, card); err != nil {
			return out, errors.Wrap(err, "append progress card")
		}
		out.ProgressCard = &card
	}

	l.Info().Str("run_id", res.RunID).Msg("action ok")
	return out, nil
}

func (g *Guard) message(role protocol.MessageRole, kind protocol.MessageKind, content string) protocol.ChatMessage {
	return protocol.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Kind:      kind,
		Content:   content,
		CreatedAt: g.now().UnixMilli(),
	}
}

func labelOf(a protocol.ProposedAction) string {
	if a.Label != "" {
		return a.Label
	}
	return string(a.Type)
}

func confirmationText(a protocol.ProposedAction, res protocol.ConfirmActionResult) string {
	switch a.Type {
	case protocol.ActionStartRun:
		return fmt.Sprintf("Started run %s.", res.RunID)
	case protocol.ActionEditArtifact:
		target := res.ArtifactType
		if res.EntityID != nil {
			target = fmt.Sprintf("%s (%s)", res.ArtifactType, *res.EntityID)
		}
		if target == "" {
			return fmt.Sprintf("%s: done.", labelOf(a))
		}
		return fmt.Sprintf("Updated %s to v%d.", target, res.Version)
	default:
		return fmt.Sprintf("%s: done.", labelOf(a))
	}
}
