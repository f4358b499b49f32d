package patch

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Overrides edits a nested run configuration (such as a run's accept_config)
// by dotted key, e.g. "script_editor.max_attempts".
type Overrides struct {
	Set   map[string]any `json:"set,omitempty"`
	Unset []string       `json:"unset,omitempty"`
}

func (o Overrides) Empty() bool {
	return len(o.Set) == 0 && len(o.Unset) == 0
}

// Parse builds overrides from "key=value" assignments and bare keys to
// remove. Values are decoded as YAML scalars, so "3" is an int and "true" a
// bool; anything unparseable stays a string.
func Parse(assignments, unset []string) (Overrides, error) {
	o := Overrides{Set: map[string]any{}}
	for _, a := range assignments {
		key, raw, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || len(splitDotted(key)) == 0 {
			return Overrides{}, errors.Errorf("invalid assignment %q (want key=value)", a)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
			v = raw
		}
		o.Set[key] = v
	}
	for _, k := range unset {
		if len(splitDotted(k)) == 0 {
			return Overrides{}, errors.Errorf("invalid key %q", k)
		}
		o.Unset = append(o.Unset, k)
	}
	return o, nil
}

// Apply removes, then sets, the dotted keys of o in cfg. cfg is modified in
// place and returned; a nil cfg starts empty.
func Apply(cfg map[string]any, o Overrides) (map[string]any, error) {
	if cfg == nil {
		cfg = map[string]any{}
	}
	for _, key := range o.Unset {
		if err := unsetDotted(cfg, key); err != nil {
			return nil, err
		}
	}
	for key, value := range o.Set {
		if err := setDotted(cfg, key, value); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func setDotted(cfg map[string]any, dotted string, value any) error {
	parts := splitDotted(dotted)
	if len(parts) == 0 {
		return errors.New("empty dotted key")
	}

	current := cfg
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part]
		if !ok {
			child := map[string]any{}
			current[part] = child
			current = child
			continue
		}
		asMap, ok := next.(map[string]any)
		if !ok {
			return errors.Errorf("cannot set %q: %q is not an object", dotted, part)
		}
		current = asMap
	}
	current[parts[len(parts)-1]] = value
	return nil
}

func unsetDotted(cfg map[string]any, dotted string) error {
	parts := splitDotted(dotted)
	if len(parts) == 0 {
		return errors.New("empty dotted key")
	}

	current := cfg
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part]
		if !ok {
			return nil
		}
		asMap, ok := next.(map[string]any)
		if !ok {
			return errors.Errorf("cannot unset %q: %q is not an object", dotted, part)
		}
		current = asMap
	}
	delete(current, parts[len(parts)-1])
	return nil
}

func splitDotted(dotted string) []string {
	var out []string
	for _, p := range strings.Split(dotted, ".") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
