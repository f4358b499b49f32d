package derive

// ResolveStageOrder returns stageKeys in execution order. Keys named in
// stageOrder come first in stageOrder's relative order; keys the declared
// order does not mention follow in their original order. Declared stages with
// no known state are dropped.
func ResolveStageOrder(stageKeys []string, stageOrder []string) []string {
	if len(stageOrder) == 0 {
		return append([]string{}, stageKeys...)
	}

	known := make(map[string]bool, len(stageKeys))
	for _, k := range stageKeys {
		known[k] = true
	}

	out := make([]string, 0, len(stageKeys))
	placed := make(map[string]bool, len(stageKeys))
	for _, id := range stageOrder {
		if !known[id] || placed[id] {
			continue
		}
		placed[id] = true
		out = append(out, id)
	}
	for _, k := range stageKeys {
		if placed[k] {
			continue
		}
		placed[k] = true
		out = append(out, k)
	}
	return out
}
