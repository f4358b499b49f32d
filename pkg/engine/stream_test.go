package engine

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, input string) []protocol.ChatEvent {
	t.Helper()
	out := make(chan protocol.ChatEvent, 64)
	ReadChatEvents(context.Background(), strings.NewReader(input), out)
	close(out)
	var evs []protocol.ChatEvent
	for ev := range out {
		evs = append(evs, ev)
	}
	return evs
}

func TestReadChatEvents_SSE(t *testing.T) {
	evs := collect(t, ": keepalive\n"+
		"data: {\"type\":\"text\",\"content\":\"Hel\"}\n\n"+
		"event: text\ndata: {\"content\":\"lo\"}\n\n"+
		"data: {\"type\":\"tool_start\",\"id\":\"t1\",\"name\":\"search_artifacts\"}\n\n"+
		"data: {\"type\":\"actions\",\"actions\":[{\"id\":\"a1\",\"type\":\"start_run\",\"label\":\"Run\",\"endpoint\":\"/api/projects/film/runs\"}]}\n\n"+
		"data: {\"type\":\"done\"}\n\n"+
		"data: {\"type\":\"text\",\"content\":\"after done\"}\n\n")

	require.Len(t, evs, 5)
	require.Equal(t, "Hel", evs[0].Content)
	require.Equal(t, protocol.ChatEventText, evs[1].Type)
	require.Equal(t, "lo", evs[1].Content)
	require.Equal(t, "search_artifacts", evs[2].Name)
	require.Len(t, evs[3].Actions, 1)
	require.Equal(t, protocol.ChatEventDone, evs[4].Type)
}

func TestReadChatEvents_JSONLinesAndMultiLineData(t *testing.T) {
	evs := collect(t, "{\"type\":\"text\",\"content\":\"a\"}\n"+
		"data: {\"type\":\"text\",\n"+
		"data: \"content\":\"b\"}\n\n"+
		"data: [DONE]\n\n")
	require.Len(t, evs, 3)
	require.Equal(t, "a", evs[0].Content)
	require.Equal(t, "b", evs[1].Content)
	require.Equal(t, protocol.ChatEventDone, evs[2].Type)
}

func TestReadChatEvents_MalformedBecomesError(t *testing.T) {
	evs := collect(t, "data: {\"type\":\"text\",\"content\":\"x\"}\n\ndata: {oops\n\ndata: {\"type\":\"done\"}\n\n")
	require.Len(t, evs, 2)
	require.Equal(t, protocol.ChatEventError, evs[1].Type)
	require.Contains(t, evs[1].Message, protocol.ErrMalformedPayload)

}

func TestReadChatEvents_BadFrameDoesNotEndTurn(t *testing.T) {
	evs := collect(t, "data: {\"type\":\"text\",\"content\":\"Hel\"}\n\n"+
		"data: {\"type\":\"tool_end\"}\n\n"+
		"data: {\"type\":\"tool_start\"}\n\n"+
		"data: {\"type\":\"actions\",\"actions\":[{\"id\":\"n1\",\"type\":\"navigate\",\"endpoint\":\"/x\"}]}\n\n"+
		"data: {\"type\":\"actions\",\"actions\":[{\"id\":\"n2\",\"type\":\"navigate\",\"endpoint\":\"/x\"},{\"id\":\"a1\",\"type\":\"start_run\",\"endpoint\":\"/api/projects/film/runs\"}]}\n\n"+
		"data: {\"type\":\"text\",\"content\":\"lo\"}\n\n"+
		"data: {\"type\":\"done\"}\n\n")

	require.Len(t, evs, 5)
	require.Equal(t, protocol.ChatEventType("tool_end"), evs[1].Type)
	require.Equal(t, protocol.ChatEventActions, evs[2].Type)
	require.Len(t, evs[2].Actions, 1)
	require.Equal(t, "a1", evs[2].Actions[0].ID)
	require.Equal(t, "lo", evs[3].Content)
	require.Equal(t, protocol.ChatEventDone, evs[4].Type)
}

func TestReadChatEvents_EOFWithoutDone(t *testing.T) {
	evs := collect(t, "data: {\"type\":\"text\",\"content\":\"partial\"}")
	require.Len(t, evs, 1)
	require.Equal(t, "partial", evs[0].Content)
}

func TestHTTPClient_StreamChat(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/projects/film/chat", r.URL.Path)
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"type\":\"text\",\"content\":\"Hel\"}\n\n")
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, "data: {\"type\":\"text\",\"content\":\"lo\"}\n\ndata: {\"type\":\"done\"}\n\n")
	}))

	events, err := c.StreamChat(context.Background(), protocol.ChatRequest{ProjectID: "film", Message: "hi"})
	require.NoError(t, err)
	var body strings.Builder
	var last protocol.ChatEvent
	for ev := range events {
		body.WriteString(ev.Content)
		last = ev
	}
	require.Equal(t, "Hello", body.String())
	require.Equal(t, protocol.ChatEventDone, last.Type)
}

func TestHTTPClient_StreamChatRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	_, err := c.StreamChat(context.Background(), protocol.ChatRequest{ProjectID: "film"})
	require.Error(t, err)
}
