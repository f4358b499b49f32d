package derive

import (
	"fmt"
	"strings"

	"github.com/go-go-golems/studioctl/pkg/protocol"
)

type InboxItemType string

const (
	InboxStale      InboxItemType = "stale"
	InboxReview     InboxItemType = "review"
	InboxError      InboxItemType = "error"
	InboxGateReview InboxItemType = "gate_review"
)

// reviewableBibles are nudged for review on their first version.
var reviewableBibles = map[string]bool{
	"character_bible": true,
	"location_bible":  true,
	"prop_bible":      true,
	"style_bible":     true,
}

type InboxItem struct {
	ID           string        `json:"id"`
	Type         InboxItemType `json:"type"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	ArtifactType string        `json:"artifact_type,omitempty"`
	EntityID     *string       `json:"entity_id,omitempty"`
	Version      int           `json:"version,omitempty"`
	RunID        string        `json:"run_id,omitempty"`
	SceneID      string        `json:"scene_id,omitempty"`
	StageID      string        `json:"stage_id,omitempty"`
	// Timestamp is epoch milliseconds, 0 when unknown.
	Timestamp int64 `json:"timestamp"`
}

// DeriveInbox applies the stale, review, error and gate rules independently
// and concatenates their results in that order. The same artifact may appear
// under more than one rule.
func DeriveInbox(groups []protocol.ArtifactGroupSummary, runs []protocol.RunSummary) []InboxItem {
	items := []InboxItem{}
	items = append(items, staleItems(groups)...)
	items = append(items, reviewItems(groups)...)
	items = append(items, errorItems(runs)...)
	items = append(items, gateItems(groups)...)
	return items
}

func staleItems(groups []protocol.ArtifactGroupSummary) []InboxItem {
	var out []InboxItem
	for _, g := range groups {
		if g.Health != protocol.HealthStale {
			continue
		}
		out = append(out, InboxItem{
			ID:           fmt.Sprintf("stale-%s-%s", g.ArtifactType, g.EntityKey()),
			Type:         InboxStale,
			Title:        fmt.Sprintf("%s is stale", describeArtifact(g)),
			Description:  fmt.Sprintf("Upstream changes invalidated v%d. Re-run the producing stage to regenerate it.", g.LatestVersion),
			ArtifactType: g.ArtifactType,
			EntityID:     g.EntityID,
			Version:      g.LatestVersion,
			Timestamp:    protocol.MillisOrZero(g.UpdatedAt),
		})
	}
	return out
}

// reviewItems surfaces first drafts of bibles. Unknown health is surfaced as
// well; only stale drafts are left to the stale rule.
func reviewItems(groups []protocol.ArtifactGroupSummary) []InboxItem {
	var out []InboxItem
	for _, g := range groups {
		if !reviewableBibles[g.ArtifactType] || g.LatestVersion != 1 || g.Health == protocol.HealthStale {
			continue
		}
		desc := "First draft has not been reviewed yet."
		if g.Health == protocol.HealthUnknown {
			desc = "First draft has not been reviewed yet. Health has not been computed."
		}
		out = append(out, InboxItem{
			ID:           fmt.Sprintf("review-%s-%s-v%d", g.ArtifactType, g.EntityKey(), g.LatestVersion),
			Type:         InboxReview,
			Title:        fmt.Sprintf("Review %s", describeArtifact(g)),
			Description:  desc,
			ArtifactType: g.ArtifactType,
			EntityID:     g.EntityID,
			Version:      g.LatestVersion,
			Timestamp:    protocol.MillisOrZero(g.UpdatedAt),
		})
	}
	return out
}

func errorItems(runs []protocol.RunSummary) []InboxItem {
	var out []InboxItem
	for _, r := range runs {
		if r.Status != protocol.RunStatusFailed {
			continue
		}
		desc := "The run stopped with an error."
		if r.RecipeID != "" {
			desc = fmt.Sprintf("Recipe %s stopped with an error.", r.RecipeID)
		}
		out = append(out, InboxItem{
			ID:          "error-" + r.RunID,
			Type:        InboxError,
			Title:       fmt.Sprintf("Run %s failed", r.RunID),
			Description: desc,
			RunID:       r.RunID,
			Timestamp:   protocol.MillisOrZero(r.FinishedAt, r.StartedAt),
		})
	}
	return out
}

// gateItems reads stage_review entity ids as "{scene_id}_{stage_id}", split on
// the first underscore. The index is the group's position in the input.
func gateItems(groups []protocol.ArtifactGroupSummary) []InboxItem {
	var out []InboxItem
	for i, g := range groups {
		if g.ArtifactType != protocol.ArtifactTypeStageReview || g.Health != protocol.HealthNeedsReview {
			continue
		}
		key := g.EntityKey()
		sceneID, stageID := splitGateEntity(key)
		out = append(out, InboxItem{
			ID:           fmt.Sprintf("gate-%s-%d", key, i),
			Type:         InboxGateReview,
			Title:        fmt.Sprintf("Approve %s for %s", stageID, sceneID),
			Description:  fmt.Sprintf("The pipeline is paused until %s is approved for %s.", stageID, sceneID),
			ArtifactType: g.ArtifactType,
			EntityID:     g.EntityID,
			Version:      g.LatestVersion,
			SceneID:      sceneID,
			StageID:      stageID,
			Timestamp:    protocol.MillisOrZero(g.UpdatedAt),
		})
	}
	return out
}

func splitGateEntity(entity string) (string, string) {
	scene, stage, ok := strings.Cut(entity, "_")
	if !ok {
		return entity, ""
	}
	return scene, stage
}

func describeArtifact(g protocol.ArtifactGroupSummary) string {
	if g.EntityID == nil {
		return g.ArtifactType
	}
	return fmt.Sprintf("%s (%s)", g.ArtifactType, *g.EntityID)
}

type InboxEntry struct {
	InboxItem
	Read bool `json:"read"`
}

// ApplyReadState joins derived items with acknowledged ids. Ids that no longer
// derive are ignored: the item has resolved.
func ApplyReadState(items []InboxItem, read map[string]bool) ([]InboxEntry, int) {
	out := make([]InboxEntry, 0, len(items))
	unread := 0
	for _, it := range items {
		e := InboxEntry{InboxItem: it, Read: read[it.ID]}
		if !e.Read {
			unread++
		}
		out = append(out, e)
	}
	return out, unread
}

// FilterSince keeps entries at or after sinceMillis. Entries without a
// timestamp are kept.
func FilterSince(entries []InboxEntry, sinceMillis int64) []InboxEntry {
	out := make([]InboxEntry, 0, len(entries))
	for _, e := range entries {
		if e.Timestamp == 0 || e.Timestamp >= sinceMillis {
			out = append(out, e)
		}
	}
	return out
}
