package derive

import "github.com/go-go-golems/studioctl/pkg/protocol"

// Input is one poll snapshot for a project.
type Input struct {
	Catalog   *Catalog
	ActiveRun *protocol.Run
	Groups    []protocol.ArtifactGroupSummary
	Runs      []protocol.RunSummary
	Read      map[string]bool
}

// Projections is everything a renderer needs for one project. Errors holds
// the last fetch error per resource; the projections beside it are derived
// from the last good data.
type Projections struct {
	Project     string               `json:"project"`
	ActiveRunID string               `json:"active_run_id,omitempty"`
	StageOrder  []string             `json:"stage_order,omitempty"`
	Concern     *ConcernRole         `json:"concern,omitempty"`
	Progress    string               `json:"progress"`
	Phases      []PipelineGraphPhase `json:"phases"`
	Nodes       []PipelineGraphNode  `json:"nodes"`
	Inbox       []InboxEntry         `json:"inbox"`
	Unread      int                  `json:"unread"`
	Errors      map[string]string    `json:"errors,omitempty"`
}

// Project derives every projection from one snapshot. Stage order is resolved
// before progress and graph computation.
func Project(in Input) Projections {
	var out Projections

	if in.ActiveRun != nil {
		out.ActiveRunID = in.ActiveRun.RunID
		out.StageOrder = ResolveStageOrder(in.ActiveRun.Keys(), in.ActiveRun.StageOrder)
		if role, ok := DetectConcernGroup(in.ActiveRun.RecipeID, out.StageOrder); ok {
			out.Concern = &role
		}
	}
	out.Progress = ProgressText(in.ActiveRun, TotalScenes(in.Groups))

	g := DeriveGraph(in.Catalog, GraphFacts{Groups: in.Groups, ActiveRun: in.ActiveRun})
	out.Phases = g.Phases
	out.Nodes = g.Nodes

	out.Inbox, out.Unread = ApplyReadState(DeriveInbox(in.Groups, in.Runs), in.Read)
	return out
}
