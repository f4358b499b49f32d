package cmds

import (
	"bytes"
	"testing"

	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/stretchr/testify/require"
)

func TestNumbered_SkipsAnsweredMessages(t *testing.T) {
	history := []protocol.ChatMessage{
		{ID: "m1", Role: protocol.RoleAssistant, Actions: []protocol.ProposedAction{{ID: "a1", Label: "Start run"}, {ID: "a2", Label: "Edit"}}},
		{ID: "m2", Role: protocol.RoleSystem, ActionTaken: &protocol.ActionTaken{ProposalID: "a1", SourceMessageID: "m1"}},
		{ID: "m3", Role: protocol.RoleAssistant, Actions: []protocol.ProposedAction{{ID: "b1", Type: protocol.ActionStartRun, Confirm: "This costs money."}}},
	}

	got := numbered(history)
	require.Len(t, got, 1)
	require.Equal(t, "m3", got[0].sourceMessageID)
	require.Equal(t, "b1", got[0].action.ID)

	var buf bytes.Buffer
	printActions(&buf, got)
	require.Contains(t, buf.String(), "[1] start_run")
	require.Contains(t, buf.String(), "This costs money.")
}
