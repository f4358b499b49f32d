package protocol

import (
	"bytes"
	"encoding/json"
)

// Health is the upstream freshness tag of an artifact group. The zero value
// HealthUnknown means "not computed yet" and must never be read as valid.
type Health string

const (
	HealthUnknown     Health = ""
	HealthValid       Health = "valid"
	HealthHealthy     Health = "healthy"
	HealthStale       Health = "stale"
	HealthNeedsReview Health = "needs_review"
)

// UpToDate reports whether the health tag positively marks the artifact current.
func (h Health) UpToDate() bool {
	return h == HealthValid || h == HealthHealthy
}

func (h Health) MarshalJSON() ([]byte, error) {
	if h == HealthUnknown {
		return []byte("null"), nil
	}
	return json.Marshal(string(h))
}

func (h *Health) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*h = HealthUnknown
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*h = Health(s)
	return nil
}

// ArtifactGroupSummary describes the latest state of one (artifact_type,
// entity_id) pair. A nil EntityID means the artifact is project-scoped.
type ArtifactGroupSummary struct {
	ArtifactType  string   `json:"artifact_type"`
	EntityID      *string  `json:"entity_id"`
	LatestVersion int      `json:"latest_version"`
	Health        Health   `json:"health"`
	UpdatedAt     *float64 `json:"updated_at,omitempty"`
}

// EntityKey renders the entity id for use in derived identifiers.
func (g ArtifactGroupSummary) EntityKey() string {
	if g.EntityID == nil {
		return "null"
	}
	return *g.EntityID
}

const (
	ArtifactTypeScene       = "scene"
	ArtifactTypeStageReview = "stage_review"
)
