package derive

import (
	"fmt"
	"strings"

	"github.com/go-go-golems/studioctl/pkg/protocol"
)

type NodeStatus string

const (
	NodeCompleted      NodeStatus = "completed"
	NodeStale          NodeStatus = "stale"
	NodeInProgress     NodeStatus = "in_progress"
	NodeAvailable      NodeStatus = "available"
	NodeBlocked        NodeStatus = "blocked"
	NodeNotImplemented NodeStatus = "not_implemented"
)

type PhaseStatus string

const (
	PhaseCompleted  PhaseStatus = "completed"
	PhasePartial    PhaseStatus = "partial"
	PhaseAvailable  PhaseStatus = "available"
	PhaseBlocked    PhaseStatus = "blocked"
	PhaseNotStarted PhaseStatus = "not_started"
)

type PipelineGraphNode struct {
	ID            string     `json:"id"`
	PhaseID       string     `json:"phase_id"`
	Label         string     `json:"label"`
	Status        NodeStatus `json:"status"`
	ArtifactCount int        `json:"artifact_count"`
	StaleReason   string     `json:"stale_reason,omitempty"`
	FixRecipe     string     `json:"fix_recipe,omitempty"`
}

type PipelineGraphPhase struct {
	ID               string      `json:"id"`
	Label            string      `json:"label"`
	Icon             string      `json:"icon"`
	NavRoute         string      `json:"nav_route,omitempty"`
	Status           PhaseStatus `json:"status"`
	CompletedCount   int         `json:"completed_count"`
	ImplementedCount int         `json:"implemented_count"`
}

type Graph struct {
	Phases []PipelineGraphPhase `json:"phases"`
	Nodes  []PipelineGraphNode  `json:"nodes"`
}

// GraphFacts is the per-snapshot input of DeriveGraph. ActiveRun may be nil.
type GraphFacts struct {
	Groups    []protocol.ArtifactGroupSummary
	ActiveRun *protocol.Run
}

// DeriveGraph computes node statuses in catalog order, then rolls them up per
// phase. The catalog must have passed Validate.
func DeriveGraph(cat *Catalog, facts GraphFacts) Graph {
	g := Graph{Phases: []PipelineGraphPhase{}, Nodes: []PipelineGraphNode{}}
	if cat == nil {
		return g
	}

	byType := map[string][]protocol.ArtifactGroupSummary{}
	for _, grp := range facts.Groups {
		byType[grp.ArtifactType] = append(byType[grp.ArtifactType], grp)
	}
	running := map[string]bool{}
	if facts.ActiveRun != nil {
		for _, id := range facts.ActiveRun.Keys() {
			if facts.ActiveRun.Stages[id].Status == protocol.StageStatusRunning {
				running[id] = true
			}
		}
	}

	d := &graphDeriver{
		cat:      cat,
		byType:   byType,
		running:  running,
		computed: map[string]PipelineGraphNode{},
	}

	for _, p := range cat.Phases {
		var nodes []PipelineGraphNode
		for _, cn := range p.Nodes {
			n := d.node(p.ID, cn)
			nodes = append(nodes, n)
			g.Nodes = append(g.Nodes, n)
		}
		g.Phases = append(g.Phases, rollUpPhase(p, nodes))
	}
	return g
}

type graphDeriver struct {
	cat      *Catalog
	byType   map[string][]protocol.ArtifactGroupSummary
	running  map[string]bool
	computed map[string]PipelineGraphNode
}

func (d *graphDeriver) node(phaseID string, cn CatalogNode) PipelineGraphNode {
	if n, ok := d.computed[cn.ID]; ok {
		return n
	}

	var groups []protocol.ArtifactGroupSummary
	for _, t := range cn.ArtifactTypes {
		groups = append(groups, d.byType[t]...)
	}
	n := PipelineGraphNode{
		ID:            cn.ID,
		PhaseID:       phaseID,
		Label:         cn.Label,
		ArtifactCount: len(groups),
	}

	stale := 0
	upToDate := 0
	for _, grp := range groups {
		if grp.Health == protocol.HealthStale {
			stale++
		}
		if grp.Health.UpToDate() {
			upToDate++
		}
	}

	switch {
	case cn.NotImplemented:
		n.Status = NodeNotImplemented
	case d.anyRunning(cn.Stages):
		n.Status = NodeInProgress
	case stale > 0:
		n.Status = NodeStale
		n.StaleReason = fmt.Sprintf("%d of %d %s artifacts are stale", stale, len(groups), strings.Join(cn.ArtifactTypes, "/"))
		n.FixRecipe = cn.FixRecipe
	case len(groups) > 0 && (!cn.RequireHealthy || upToDate == len(groups)):
		n.Status = NodeCompleted
	case d.prerequisitesMet(cn):
		n.Status = NodeAvailable
	default:
		n.Status = NodeBlocked
	}

	d.computed[cn.ID] = n
	return n
}

func (d *graphDeriver) anyRunning(stages []string) bool {
	for _, s := range stages {
		if d.running[s] {
			return true
		}
	}
	return false
}

// prerequisitesMet reports whether every required node has material to build
// on: completed, or stale but present.
func (d *graphDeriver) prerequisitesMet(cn CatalogNode) bool {
	for _, req := range cn.Requires {
		phaseID, dep, ok := d.cat.Node(req)
		if !ok {
			return false
		}
		st := d.node(phaseID, dep).Status
		if st != NodeCompleted && st != NodeStale {
			return false
		}
	}
	return true
}

func rollUpPhase(p CatalogPhase, nodes []PipelineGraphNode) PipelineGraphPhase {
	out := PipelineGraphPhase{
		ID:       p.ID,
		Label:    p.Label,
		Icon:     p.Icon,
		NavRoute: p.NavRoute,
	}

	var active, available, blocked bool
	for _, n := range nodes {
		if n.Status == NodeNotImplemented {
			continue
		}
		out.ImplementedCount++
		switch n.Status {
		case NodeCompleted:
			out.CompletedCount++
			active = true
		case NodeInProgress:
			active = true
		case NodeAvailable:
			available = true
		case NodeBlocked:
			blocked = true
		}
	}

	switch {
	case out.ImplementedCount > 0 && out.CompletedCount == out.ImplementedCount:
		out.Status = PhaseCompleted
	case active:
		out.Status = PhasePartial
	case available:
		out.Status = PhaseAvailable
	case blocked:
		out.Status = PhaseBlocked
	default:
		out.Status = PhaseNotStarted
	}
	return out
}
