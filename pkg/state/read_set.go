package state

import "sync"

// ReadSet records acknowledged inbox item ids per project. It only grows.
type ReadSet struct {
	mu   sync.Mutex
	path string
	ids  map[string][]string
}

func OpenReadSet(path string) (*ReadSet, error) {
	r := &ReadSet{path: path, ids: map[string][]string{}}
	if err := load(path, &r.ids); err != nil {
		return nil, err
	}
	if r.ids == nil {
		r.ids = map[string][]string{}
	}
	return r, nil
}

// MarkRead appends ids not already acknowledged and reports how many were new.
func (r *ReadSet) MarkRead(project string, ids ...string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := map[string]bool{}
	for _, id := range r.ids[project] {
		seen[id] = true
	}
	added := 0
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		r.ids[project] = append(r.ids[project], id)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, save(r.path, r.ids)
}

func (r *ReadSet) IsRead(project, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.ids[project] {
		if v == id {
			return true
		}
	}
	return false
}

func (r *ReadSet) IDs(project string) map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool, len(r.ids[project]))
	for _, id := range r.ids[project] {
		out[id] = true
	}
	return out
}
