package protocol

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"

	"github.com/pkg/errors"
)

type StageStatus string

const (
	StageStatusPending       StageStatus = "pending"
	StageStatusRunning       StageStatus = "running"
	StageStatusDone          StageStatus = "done"
	StageStatusSkippedReused StageStatus = "skipped_reused"
	StageStatusFailed        StageStatus = "failed"
	StageStatusPaused        StageStatus = "paused"
)

// Finished reports whether the stage has left "running" for good.
// Paused is not finished: it waits for an external resume.
func (s StageStatus) Finished() bool {
	switch s {
	case StageStatusDone, StageStatusSkippedReused, StageStatusFailed:
		return true
	default:
		return false
	}
}

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusDone      RunStatus = "done"
	RunStatusFailed    RunStatus = "failed"
	RunStatusPaused    RunStatus = "paused"
	RunStatusCancelled RunStatus = "cancelled"
)

type ArtifactRef struct {
	ArtifactType string `json:"artifact_type"`
	EntityID     string `json:"entity_id"`
}

type StageState struct {
	Status          StageStatus   `json:"status"`
	DurationSeconds float64       `json:"duration_seconds,omitempty"`
	CostUSD         float64       `json:"cost_usd,omitempty"`
	ArtifactRefs    []ArtifactRef `json:"artifact_refs,omitempty"`
}

// Run is the engine's view of one pipeline execution.
//
// StageKeys keeps the order in which the engine listed the stages object so
// that fallback ordering is stable across decodes. It is filled by
// UnmarshalJSON and by SetStage.
type Run struct {
	RunID        string                `json:"run_id"`
	RecipeID     string                `json:"recipe_id"`
	Stages       map[string]StageState `json:"stages"`
	StageKeys    []string              `json:"-"`
	StageOrder   []string              `json:"stage_order,omitempty"`
	StartedAt    *float64              `json:"started_at,omitempty"`
	FinishedAt   *float64              `json:"finished_at,omitempty"`
	TotalCostUSD float64               `json:"total_cost_usd,omitempty"`
}

// SetStage inserts or replaces a stage, recording first-insertion order.
func (r *Run) SetStage(id string, st StageState) {
	if r.Stages == nil {
		r.Stages = map[string]StageState{}
	}
	if _, ok := r.Stages[id]; !ok {
		r.StageKeys = append(r.StageKeys, id)
	}
	r.Stages[id] = st
}

// Keys returns the stage identifiers in insertion order. Map entries that
// were never recorded in StageKeys, as in a hand-built Run, follow in sorted
// order.
func (r *Run) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Stages))
	seen := make(map[string]bool, len(r.Stages))
	for _, k := range r.StageKeys {
		if _, ok := r.Stages[k]; ok && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	var rest []string
	for k := range r.Stages {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func (r *Run) UnmarshalJSON(b []byte) error {
	type plain Run
	var raw struct {
		plain
		Stages json.RawMessage `json:"stages"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Run(raw.plain)
	r.Stages = nil
	r.StageKeys = nil

	if len(raw.Stages) == 0 || bytes.Equal(bytes.TrimSpace(raw.Stages), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Stages))
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "decode stages")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Errorf("%s: stages must be an object", ErrMalformedPayload)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, "decode stage key")
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.Errorf("%s: stage key is not a string", ErrMalformedPayload)
		}
		var st StageState
		if err := dec.Decode(&st); err != nil {
			return errors.Wrapf(err, "decode stage %q", key)
		}
		r.SetStage(key, st)
	}
	return nil
}

type RunStateResponse struct {
	RunID           string  `json:"run_id"`
	State           Run     `json:"state"`
	BackgroundError *string `json:"background_error,omitempty"`
}

type RunSummary struct {
	RunID        string    `json:"run_id"`
	Status       RunStatus `json:"status"`
	RecipeID     string    `json:"recipe_id"`
	StartedAt    *float64  `json:"started_at,omitempty"`
	FinishedAt   *float64  `json:"finished_at,omitempty"`
	TotalCostUSD float64   `json:"total_cost_usd,omitempty"`
}

type StartRunRequest struct {
	ProjectID    string         `json:"project_id"`
	InputFile    string         `json:"input_file,omitempty"`
	RecipeID     string         `json:"recipe_id"`
	DefaultModel string         `json:"default_model,omitempty"`
	AcceptConfig map[string]any `json:"accept_config,omitempty"`
}

type StartRunResponse struct {
	RunID string `json:"run_id"`
}

// MillisOrZero converts the first non-nil epoch-seconds value to milliseconds.
func MillisOrZero(secs ...*float64) int64 {
	for _, s := range secs {
		if s != nil {
			return int64(math.Round(*s * 1000))
		}
	}
	return 0
}
