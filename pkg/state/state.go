package state

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	StateDirName       = ".studioctl"
	ActiveRunsFilename = "active_runs.json"
	ReadIDsFilename    = "inbox_read.json"
	MessagesFilename   = "messages.json"
)

// Dir returns the default state directory under root.
func Dir(root string) string {
	return filepath.Join(root, StateDirName)
}

// Stores bundles the keyed containers backed by one state directory. An empty
// dir keeps everything in memory.
type Stores struct {
	ActiveRuns *ActiveRuns
	ReadSet    *ReadSet
	Messages   *MessageLog
}

func Open(dir string) (*Stores, error) {
	path := func(name string) string {
		if dir == "" {
			return ""
		}
		return filepath.Join(dir, name)
	}
	ar, err := OpenActiveRuns(path(ActiveRunsFilename))
	if err != nil {
		return nil, err
	}
	rs, err := OpenReadSet(path(ReadIDsFilename))
	if err != nil {
		return nil, err
	}
	ml, err := OpenMessageLog(path(MessagesFilename))
	if err != nil {
		return nil, err
	}
	return &Stores{ActiveRuns: ar, ReadSet: rs, Messages: ml}, nil
}

// load reads path into v. A missing file leaves v untouched.
func load(path string, v any) error {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "read %s", filepath.Base(path))
	}
	if err := json.Unmarshal(b, v); err != nil {
		return errors.Wrapf(err, "parse %s", filepath.Base(path))
	}
	return nil
}

func save(path string, v any) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir state dir")
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal state")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errors.Wrap(err, "write state")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "replace state")
	}
	return nil
}
