package enginetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-go-golems/studioctl/pkg/engine"
	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/pkg/errors"
)

// Fake is an in-memory engine. Zero value is not usable; call New.
type Fake struct {
	mu sync.Mutex

	runs     map[string]protocol.RunStateResponse
	groups   map[string][]protocol.ArtifactGroupSummary
	runLists map[string][]protocol.RunSummary
	results  map[string]protocol.ConfirmActionResult
	errs     map[string]error
	calls    map[string]int
	started  []protocol.StartRunRequest
	nextRun  int

	chat    []protocol.ChatEvent
	chatErr error

	// ConfirmGate, when set, blocks ConfirmAction until it receives or closes.
	ConfirmGate chan struct{}
}

var _ engine.Client = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		runs:     map[string]protocol.RunStateResponse{},
		groups:   map[string][]protocol.ArtifactGroupSummary{},
		runLists: map[string][]protocol.RunSummary{},
		results:  map[string]protocol.ConfirmActionResult{},
		errs:     map[string]error{},
		calls:    map[string]int{},
	}
}

func (f *Fake) SetGroups(project string, groups []protocol.ArtifactGroupSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[project] = groups
}

func (f *Fake) SetRuns(project string, runs []protocol.RunSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runLists[project] = runs
}

func (f *Fake) SetRunState(run protocol.Run) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.RunID] = protocol.RunStateResponse{RunID: run.RunID, State: run}
}

func (f *Fake) SetConfirmResult(endpoint string, res protocol.ConfirmActionResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[endpoint] = res
}

// Fail makes every call of op return err until cleared with a nil err. Op
// names match the Client method names.
func (f *Fake) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// ScriptChat sets the events the next StreamChat calls deliver. A nil err with
// no done event at the end simulates a dropped stream.
func (f *Fake) ScriptChat(events []protocol.ChatEvent, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chat = append([]protocol.ChatEvent{}, events...)
	f.chatErr = err
}

func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Fake) Started() []protocol.StartRunRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.StartRunRequest{}, f.started...)
}

func (f *Fake) enter(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.errs[op]
}

func (f *Fake) GetRunState(ctx context.Context, runID string) (protocol.RunStateResponse, error) {
	if err := f.enter("GetRunState"); err != nil {
		return protocol.RunStateResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.runs[runID]
	if !ok {
		return protocol.RunStateResponse{}, &engine.APIError{Status: 404, Code: protocol.ErrActionFailed, Message: "run not found"}
	}
	return st, nil
}

func (f *Fake) ListArtifactGroups(ctx context.Context, project string) ([]protocol.ArtifactGroupSummary, error) {
	if err := f.enter("ListArtifactGroups"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.ArtifactGroupSummary{}, f.groups[project]...), nil
}

func (f *Fake) ListRuns(ctx context.Context, project string) ([]protocol.RunSummary, error) {
	if err := f.enter("ListRuns"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.RunSummary{}, f.runLists[project]...), nil
}

func (f *Fake) StartRun(ctx context.Context, req protocol.StartRunRequest) (protocol.StartRunResponse, error) {
	if err := f.enter("StartRun"); err != nil {
		return protocol.StartRunResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newRunLocked(req.ProjectID, req.RecipeID)
	f.started = append(f.started, req)
	return protocol.StartRunResponse{RunID: id}, nil
}

func (f *Fake) newRunLocked(project, recipe string) string {
	f.nextRun++
	id := fmt.Sprintf("run-%d", f.nextRun)
	f.runs[id] = protocol.RunStateResponse{RunID: id, State: protocol.Run{RunID: id, RecipeID: recipe}}
	f.runLists[project] = append(f.runLists[project], protocol.RunSummary{RunID: id, Status: protocol.RunStatusPending, RecipeID: recipe})
	return id
}

func (f *Fake) ConfirmAction(ctx context.Context, endpoint string, payload map[string]any) (protocol.ConfirmActionResult, error) {
	if err := f.enter("ConfirmAction"); err != nil {
		return protocol.ConfirmActionResult{}, err
	}
	if f.ConfirmGate != nil {
		select {
		case <-f.ConfirmGate:
		case <-ctx.Done():
			return protocol.ConfirmActionResult{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if res, ok := f.results[endpoint]; ok {
		return res, nil
	}
	if project, ok := payload["project_id"].(string); ok {
		recipe, _ := payload["recipe_id"].(string)
		return protocol.ConfirmActionResult{RunID: f.newRunLocked(project, recipe)}, nil
	}
	return protocol.ConfirmActionResult{}, errors.Errorf("no result scripted for %s", endpoint)
}

func (f *Fake) StreamChat(ctx context.Context, req protocol.ChatRequest) (<-chan protocol.ChatEvent, error) {
	if err := f.enter("StreamChat"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	script := append([]protocol.ChatEvent{}, f.chat...)
	tail := f.chatErr
	f.mu.Unlock()

	out := make(chan protocol.ChatEvent)
	go func() {
		defer close(out)
		for _, ev := range script {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
		if tail != nil {
			select {
			case out <- protocol.ChatEvent{Type: protocol.ChatEventError, Message: tail.Error()}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}
