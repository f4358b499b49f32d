package state

import (
	"sync"
)

// ActiveRuns is the per-project pointer to the run the console follows.
type ActiveRuns struct {
	mu   sync.Mutex
	path string
	runs map[string]string

	lmu       sync.RWMutex
	listeners map[chan string]struct{}
}

func OpenActiveRuns(path string) (*ActiveRuns, error) {
	a := &ActiveRuns{
		path:      path,
		runs:      map[string]string{},
		listeners: map[chan string]struct{}{},
	}
	if err := load(path, &a.runs); err != nil {
		return nil, err
	}
	if a.runs == nil {
		a.runs = map[string]string{}
	}
	return a, nil
}

func (a *ActiveRuns) SetActiveRun(project, runID string) error {
	a.mu.Lock()
	if a.runs[project] == runID {
		a.mu.Unlock()
		return nil
	}
	a.runs[project] = runID
	snapshot := make(map[string]string, len(a.runs))
	for k, v := range a.runs {
		snapshot[k] = v
	}
	err := save(a.path, snapshot)
	a.mu.Unlock()

	a.broadcast(project)
	return err
}

func (a *ActiveRuns) ActiveRun(project string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.runs[project]
	return id, ok && id != ""
}

// Subscribe returns a channel that receives the project id whenever its
// active run changes. Pending notifications are dropped when the channel is
// full; listeners re-read ActiveRun.
func (a *ActiveRuns) Subscribe() chan string {
	ch := make(chan string, 1)
	a.lmu.Lock()
	a.listeners[ch] = struct{}{}
	a.lmu.Unlock()
	return ch
}

func (a *ActiveRuns) Unsubscribe(ch chan string) {
	a.lmu.Lock()
	if _, ok := a.listeners[ch]; ok {
		delete(a.listeners, ch)
		close(ch)
	}
	a.lmu.Unlock()
}

func (a *ActiveRuns) broadcast(project string) {
	a.lmu.RLock()
	defer a.lmu.RUnlock()
	for ch := range a.listeners {
		select {
		case ch <- project:
		default:
		}
	}
}
