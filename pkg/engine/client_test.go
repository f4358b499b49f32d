package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(Options{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func TestHTTPClient_GetRunStateKeepsStageOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/runs/r1", r.URL.Path)
		_, _ = io.WriteString(w, `{"run_id":"r1","state":{"run_id":"r1","recipe_id":"mvp_ingest",
			"stages":{"normalize":{"status":"running"},"ingest":{"status":"done"}},
			"stage_order":["ingest","normalize","extract"]},"background_error":null}`)
	}))

	st, err := c.GetRunState(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "r1", st.RunID)
	require.Nil(t, st.BackgroundError)
	require.Equal(t, []string{"normalize", "ingest"}, st.State.Keys())
}

func TestHTTPClient_ListAndStart(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/projects/film/artifacts":
			_, _ = io.WriteString(w, `[{"artifact_type":"scene","entity_id":"scene_1","latest_version":2,"health":"valid"},
				{"artifact_type":"style_bible","entity_id":null,"latest_version":1,"health":null}]`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/projects/film/runs":
			_, _ = io.WriteString(w, `[{"run_id":"r1","status":"failed","recipe_id":"mvp_ingest","finished_at":12}]`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/projects/film/runs":
			var req protocol.StartRunRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, "creative_direction", req.RecipeID)
			_, _ = io.WriteString(w, `{"run_id":"r2"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	ctx := context.Background()

	groups, err := c.ListArtifactGroups(ctx, "film")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Nil(t, groups[1].EntityID)
	require.Equal(t, protocol.HealthUnknown, groups[1].Health)

	runs, err := c.ListRuns(ctx, "film")
	require.NoError(t, err)
	require.Equal(t, protocol.RunStatusFailed, runs[0].Status)

	started, err := c.StartRun(ctx, protocol.StartRunRequest{ProjectID: "film", RecipeID: "creative_direction"})
	require.NoError(t, err)
	require.Equal(t, "r2", started.RunID)
}

func TestHTTPClient_APIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/runs") {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "upstream down")
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":"recipe not found"}`)
	}))

	_, err := c.ListRuns(context.Background(), "film")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.Status)
	require.True(t, apiErr.Retryable())
	require.Equal(t, "upstream down", apiErr.Message)

	_, err = c.ConfirmAction(context.Background(), "/api/projects/film/edit", map[string]any{"x": 1})
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, protocol.ErrActionFailed, apiErr.Code)
	require.Equal(t, "recipe not found", apiErr.Message)
	require.False(t, apiErr.Retryable())
}

func TestHTTPClient_ConfirmActionStaysOnEngineHost(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/projects/film/artifacts/style_bible/edit", r.URL.Path)
		_, _ = io.WriteString(w, `{"version":3,"artifact_type":"style_bible","entity_id":null}`)
	}))

	res, err := c.ConfirmAction(context.Background(), "/api/projects/film/artifacts/style_bible/edit", nil)
	require.NoError(t, err)
	require.Equal(t, 3, res.Version)

	_, err = c.ConfirmAction(context.Background(), "http://elsewhere.example/steal", nil)
	require.Error(t, err)
}

func TestHTTPClient_TransportError(t *testing.T) {
	c, err := NewHTTPClient(Options{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	require.NoError(t, err)
	_, err = c.ListRuns(context.Background(), "film")
	require.Error(t, err)
	require.Contains(t, err.Error(), protocol.ErrTransport)
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient(Options{})
	require.Error(t, err)
	_, err = NewHTTPClient(Options{BaseURL: "ftp://engine"})
	require.Error(t, err)
}
