package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_UnmarshalKeepsStageOrder(t *testing.T) {
	var r Run
	err := json.Unmarshal([]byte(`{
		"run_id": "r1",
		"recipe_id": "mvp_ingest",
		"stages": {
			"normalize": {"status": "running"},
			"ingest": {"status": "done", "duration_seconds": 3.5},
			"extract": {"status": "pending"}
		},
		"stage_order": ["ingest", "normalize", "extract"],
		"started_at": 1700000000.25
	}`), &r)
	require.NoError(t, err)
	require.Equal(t, "r1", r.RunID)
	require.Equal(t, []string{"normalize", "ingest", "extract"}, r.Keys())
	require.Equal(t, StageStatusDone, r.Stages["ingest"].Status)
	require.Equal(t, []string{"ingest", "normalize", "extract"}, r.StageOrder)
	require.Equal(t, int64(1700000000250), MillisOrZero(r.FinishedAt, r.StartedAt))
}

func TestRun_KeysIncludeUnrecordedStages(t *testing.T) {
	r := Run{Stages: map[string]StageState{
		"world":   {Status: StageStatusDone},
		"bible":   {Status: StageStatusRunning},
		"outline": {Status: StageStatusPending},
	}}
	require.Equal(t, []string{"bible", "outline", "world"}, r.Keys())

	r.StageKeys = []string{"world", "gone", "world"}
	require.Equal(t, []string{"world", "bible", "outline"}, r.Keys())

	r.SetStage("alpha", StageState{Status: StageStatusPending})
	require.Equal(t, []string{"world", "alpha", "bible", "outline"}, r.Keys())
}

func TestRun_UnmarshalNullStages(t *testing.T) {
	var r Run
	require.NoError(t, json.Unmarshal([]byte(`{"run_id":"r1","stages":null}`), &r))
	require.Empty(t, r.Keys())
}

func TestRun_UnmarshalRejectsStageArray(t *testing.T) {
	var r Run
	require.Error(t, json.Unmarshal([]byte(`{"run_id":"r1","stages":["a"]}`), &r))
}

func TestHealth_NullIsUnknown(t *testing.T) {
	var g ArtifactGroupSummary
	require.NoError(t, json.Unmarshal([]byte(`{"artifact_type":"scene","entity_id":null,"latest_version":2,"health":null}`), &g))
	require.Equal(t, HealthUnknown, g.Health)
	require.False(t, g.Health.UpToDate())
	require.Equal(t, "null", g.EntityKey())

	b, err := json.Marshal(g)
	require.NoError(t, err)
	require.Contains(t, string(b), `"health":null`)
}

func TestValidateProposedAction(t *testing.T) {
	require.NoError(t, ValidateProposedAction(ProposedAction{ID: "a1", Type: ActionStartRun, Endpoint: "/api/x"}))
	require.Error(t, ValidateProposedAction(ProposedAction{ID: "a1", Type: "delete_everything", Endpoint: "/api/x"}))
	require.Error(t, ValidateProposedAction(ProposedAction{Type: ActionStartRun, Endpoint: "/api/x"}))
	require.Error(t, ValidateProposedAction(ProposedAction{ID: "a1", Type: ActionEditArtifact}))
}
