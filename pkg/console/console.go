package console

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/studioctl/pkg/derive"
	"github.com/go-go-golems/studioctl/pkg/engine"
	"github.com/go-go-golems/studioctl/pkg/poll"
	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/go-go-golems/studioctl/pkg/state"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	ResourceArtifacts  = "artifacts"
	ResourceRuns       = "runs"
	ResourceRun        = "run"
	ResourceBackground = "background"
)

type Options struct {
	Client   engine.Client
	Catalog  *derive.Catalog
	Stores   *state.Stores
	Interval time.Duration
	// Timeout bounds each shared poll fetch.
	Timeout  time.Duration
}

// Console turns polled engine state into projections for any number of
// projects. Polling only happens while a Watch observes a project.
type Console struct {
	catalog *derive.Catalog
	stores  *state.Stores

	artifacts *poll.Poller[[]protocol.ArtifactGroupSummary]
	runs      *poll.Poller[[]protocol.RunSummary]
	runState  *poll.Poller[protocol.RunStateResponse]

	mu     sync.Mutex
	latest map[string]derive.Projections
	nudges map[chan string]struct{}
}

func New(opts Options) (*Console, error) {
	if opts.Client == nil {
		return nil, errors.New("missing engine client")
	}
	if opts.Catalog == nil {
		return nil, errors.New("missing catalog")
	}
	if opts.Stores == nil {
		return nil, errors.New("missing state stores")
	}
	client := opts.Client
	return &Console{
		catalog: opts.Catalog,
		stores:  opts.Stores,
		artifacts: poll.New(func(ctx context.Context, project string) ([]protocol.ArtifactGroupSummary, error) {
			return client.ListArtifactGroups(ctx, project)
		}, poll.Options{Name: ResourceArtifacts, Interval: opts.Interval, Timeout: opts.Timeout}),
		runs: poll.New(func(ctx context.Context, project string) ([]protocol.RunSummary, error) {
			return client.ListRuns(ctx, project)
		}, poll.Options{Name: ResourceRuns, Interval: opts.Interval, Timeout: opts.Timeout}),
		runState: poll.New(func(ctx context.Context, runID string) (protocol.RunStateResponse, error) {
			return client.GetRunState(ctx, runID)
		}, poll.Options{Name: ResourceRun, Interval: opts.Interval, Timeout: opts.Timeout}),
		latest: map[string]derive.Projections{},
		nudges: map[chan string]struct{}{},
	}, nil
}

func (c *Console) Catalog() *derive.Catalog { return c.catalog }
func (c *Console) Stores() *state.Stores    { return c.stores }

// Watch polls project until ctx is done and calls onUpdate with fresh
// projections whenever any input changes. It follows the project's active-run
// pointer. Fetch failures show up in Projections.Errors and never end the
// watch.
func (c *Console) Watch(ctx context.Context, project string, onUpdate func(derive.Projections)) error {
	if project == "" {
		return errors.New("watch: missing project")
	}

	arts := c.artifacts.Subscribe(project)
	defer arts.Close()
	runs := c.runs.Subscribe(project)
	defer runs.Close()

	pointer := c.stores.ActiveRuns.Subscribe()
	defer c.stores.ActiveRuns.Unsubscribe(pointer)
	nudge := c.subscribeNudges()
	defer c.unsubscribeNudges(nudge)

	var (
		runSub     *poll.Subscription[protocol.RunStateResponse]
		runUpdates <-chan poll.Snapshot[protocol.RunStateResponse]
	)
	defer func() {
		if runSub != nil {
			runSub.Close()
		}
	}()
	follow := func() {
		id, ok := c.stores.ActiveRuns.ActiveRun(project)
		if runSub != nil && ok && runSub.Key() == id {
			return
		}
		if runSub != nil {
			runSub.Close()
			runSub, runUpdates = nil, nil
		}
		if ok {
			runSub = c.runState.Subscribe(id)
			runUpdates = runSub.Updates()
			log.Debug().Str("project", project).Str("run_id", id).Msg("following active run")
		}
	}
	emit := func() {
		var run *poll.Snapshot[protocol.RunStateResponse]
		if runSub != nil {
			s := runSub.Latest()
			run = &s
		}
		p := c.project(project, arts.Latest(), runs.Latest(), run)
		c.store(p)
		if onUpdate != nil {
			onUpdate(p)
		}
	}

	follow()
	emit()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-arts.Updates():
			if !ok {
				return nil
			}
		case _, ok := <-runs.Updates():
			if !ok {
				return nil
			}
		case _, ok := <-runUpdates:
			if !ok {
				runUpdates = nil
				continue
			}
		case p, ok := <-pointer:
			if !ok {
				return nil
			}
			if p != project {
				continue
			}
			follow()
		case p := <-nudge:
			if p != project {
				continue
			}
		}
		emit()
	}
}

// Snapshot fetches everything once and derives projections. runID overrides
// the active run when non-empty. Concurrent snapshots of the same resources
// share their fetches with running watches.
func (c *Console) Snapshot(ctx context.Context, project, runID string) (derive.Projections, error) {
	if project == "" {
		return derive.Projections{}, errors.New("snapshot: missing project")
	}
	arts, _ := c.artifacts.Refresh(ctx, project)
	runs, _ := c.runs.Refresh(ctx, project)

	if runID == "" {
		runID, _ = c.stores.ActiveRuns.ActiveRun(project)
	}
	var run *poll.Snapshot[protocol.RunStateResponse]
	if runID != "" {
		s, _ := c.runState.Refresh(ctx, runID)
		run = &s
	}
	return c.project(project, arts, runs, run), nil
}

// Refresh re-requests the project's resources now; watchers see the results
// through their subscriptions.
func (c *Console) Refresh(ctx context.Context, project string) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_, err := c.artifacts.Refresh(ctx, project)
	keep(err)
	_, err = c.runs.Refresh(ctx, project)
	keep(err)
	if id, ok := c.stores.ActiveRuns.ActiveRun(project); ok {
		_, err = c.runState.Refresh(ctx, id)
		keep(err)
	}
	return firstErr
}

// MarkRead acknowledges inbox items and re-derives watched projections.
func (c *Console) MarkRead(project string, ids ...string) (int, error) {
	n, err := c.stores.ReadSet.MarkRead(project, ids...)
	if err != nil {
		return n, err
	}
	if n > 0 {
		c.broadcastNudge(project)
	}
	return n, nil
}

// Latest returns the projections last derived by a Watch of project.
func (c *Console) Latest(project string) (derive.Projections, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.latest[project]
	return p, ok
}

func (c *Console) Close() {
	c.artifacts.Close()
	c.runs.Close()
	c.runState.Close()
}

func (c *Console) project(
	project string,
	arts poll.Snapshot[[]protocol.ArtifactGroupSummary],
	runs poll.Snapshot[[]protocol.RunSummary],
	run *poll.Snapshot[protocol.RunStateResponse],
) derive.Projections {
	in := derive.Input{
		Catalog: c.catalog,
		Groups:  arts.Value,
		Runs:    runs.Value,
		Read:    c.stores.ReadSet.IDs(project),
	}
	errs := map[string]string{}
	if arts.Err != nil {
		errs[ResourceArtifacts] = arts.Err.Error()
	}
	if runs.Err != nil {
		errs[ResourceRuns] = runs.Err.Error()
	}
	if run != nil {
		if run.HasValue {
			r := run.Value.State
			if r.RunID == "" {
				r.RunID = run.Value.RunID
			}
			in.ActiveRun = &r
			if bg := run.Value.BackgroundError; bg != nil && *bg != "" {
				errs[ResourceBackground] = *bg
			}
		}
		if run.Err != nil {
			errs[ResourceRun] = run.Err.Error()
		}
	}

	p := derive.Project(in)
	p.Project = project
	if run != nil && p.ActiveRunID == "" {
		p.ActiveRunID = run.Key
	}
	if len(errs) > 0 {
		p.Errors = errs
	}
	return p
}

func (c *Console) store(p derive.Projections) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest[p.Project] = p
}

func (c *Console) subscribeNudges() chan string {
	ch := make(chan string, 1)
	c.mu.Lock()
	c.nudges[ch] = struct{}{}
	c.mu.Unlock()
	return ch
}

func (c *Console) unsubscribeNudges(ch chan string) {
	c.mu.Lock()
	delete(c.nudges, ch)
	c.mu.Unlock()
}

func (c *Console) broadcastNudge(project string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.nudges {
		select {
		case ch <- project:
		default:
		}
	}
}
