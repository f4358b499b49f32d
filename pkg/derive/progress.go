package derive

import (
	"fmt"
	"strings"

	"github.com/go-go-golems/studioctl/pkg/protocol"
)

const sceneEntityPrefix = "scene_"

// CountSceneRefs counts the per-scene artifacts a stage produced for its own
// artifact type. Project-level outputs of the same stage are not counted.
func CountSceneRefs(refs []protocol.ArtifactRef, stageID string) int {
	n := 0
	for _, ref := range refs {
		if ref.ArtifactType == stageID && strings.HasPrefix(ref.EntityID, sceneEntityPrefix) {
			n++
		}
	}
	return n
}

func TotalScenes(groups []protocol.ArtifactGroupSummary) int {
	n := 0
	for _, g := range groups {
		if g.ArtifactType == protocol.ArtifactTypeScene {
			n++
		}
	}
	return n
}

// SceneSuffix renders " (done/total scenes)", or nothing when the scene total
// is unknown.
func SceneSuffix(done, total int) string {
	if total <= 0 {
		return ""
	}
	return fmt.Sprintf(" (%d/%d scenes)", done, total)
}

// ProgressText narrates the state of a run for the operator. It resolves the
// stage order first; concern-group runs are described by their role, anything
// else by stage position.
func ProgressText(run *protocol.Run, totalScenes int) string {
	if run == nil {
		return ""
	}
	order := ResolveStageOrder(run.Keys(), run.StageOrder)
	if len(order) == 0 {
		return ""
	}

	if role, ok := DetectConcernGroup(run.RecipeID, order); ok {
		st := run.Stages[order[0]]
		switch st.Status {
		case protocol.StageStatusRunning:
			return fmt.Sprintf("%s is working on %s", role.RoleName, role.Label) +
				SceneSuffix(CountSceneRefs(st.ArtifactRefs, order[0]), totalScenes)
		case protocol.StageStatusDone, protocol.StageStatusSkippedReused:
			return fmt.Sprintf("%s finished %s", role.RoleName, role.Label)
		case protocol.StageStatusFailed:
			return fmt.Sprintf("%s could not finish %s", role.RoleName, role.Label)
		case protocol.StageStatusPaused:
			return fmt.Sprintf("%s is waiting for review of %s", role.RoleName, role.Label)
		default:
			return fmt.Sprintf("%s is about to start %s", role.RoleName, role.Label)
		}
	}

	n := len(order)
	finished := 0
	for i, id := range order {
		st := run.Stages[id]
		switch st.Status {
		case protocol.StageStatusRunning:
			return fmt.Sprintf("Stage %d/%d: %s", i+1, n, id) +
				SceneSuffix(CountSceneRefs(st.ArtifactRefs, id), totalScenes)
		case protocol.StageStatusPaused:
			return fmt.Sprintf("Paused at %s: awaiting review", id)
		case protocol.StageStatusFailed:
			return fmt.Sprintf("Failed at %s", id)
		}
		if st.Status.Finished() {
			finished++
		}
	}
	if finished == n {
		return fmt.Sprintf("Completed %d/%d stages", n, n)
	}
	if finished == 0 {
		return fmt.Sprintf("Queued (%d stages)", n)
	}
	for i, id := range order {
		if !run.Stages[id].Status.Finished() {
			return fmt.Sprintf("Stage %d/%d: %s", i+1, n, id)
		}
	}
	return ""
}
