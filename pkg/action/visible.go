package action

import "github.com/go-go-golems/studioctl/pkg/protocol"

// Answered reports whether the message sourceMessageID has already been
// acted on. Only markers recorded after the source message count. When the
// source is not in history, a marker naming it is still honored; without a
// source the proposal id is matched instead.
func Answered(history []protocol.ChatMessage, sourceMessageID, proposalID string) bool {
	if sourceMessageID == "" {
		for _, m := range history {
			if m.ActionTaken != nil && m.ActionTaken.ProposalID == proposalID {
				return true
			}
		}
		return false
	}
	for i, m := range history {
		if m.ID == sourceMessageID {
			return answered(m, history[i+1:])
		}
	}
	for _, m := range history {
		if m.ActionTaken != nil && m.ActionTaken.SourceMessageID == sourceMessageID {
			return true
		}
	}
	return false
}

// VisibleActions returns, per message id, the proposals that can still be
// confirmed. A message loses all of its buttons once any later message
// carries an action-taken marker for it.
func VisibleActions(history []protocol.ChatMessage) map[string][]protocol.ProposedAction {
	out := map[string][]protocol.ProposedAction{}
	for i, m := range history {
		if len(m.Actions) == 0 || answered(m, history[i+1:]) {
			continue
		}
		out[m.ID] = m.Actions
	}
	return out
}

// answered matches markers by source message. Markers written without a
// source fall back to matching one of m's proposal ids.
func answered(m protocol.ChatMessage, later []protocol.ChatMessage) bool {
	ids := make(map[string]bool, len(m.Actions))
	for _, a := range m.Actions {
		ids[a.ID] = true
	}
	for _, l := range later {
		t := l.ActionTaken
		if t == nil {
			continue
		}
		if t.SourceMessageID == m.ID || (t.SourceMessageID == "" && ids[t.ProposalID]) {
			return true
		}
	}
	return false
}
