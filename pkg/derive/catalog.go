package derive

import (
	_ "embed"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

type Catalog struct {
	Phases []CatalogPhase `yaml:"phases" json:"phases"`
}

type CatalogPhase struct {
	ID       string        `yaml:"id" json:"id"`
	Label    string        `yaml:"label" json:"label"`
	Icon     string        `yaml:"icon,omitempty" json:"icon,omitempty"`
	NavRoute string        `yaml:"nav_route,omitempty" json:"nav_route,omitempty"`
	Nodes    []CatalogNode `yaml:"nodes" json:"nodes"`
}

type CatalogNode struct {
	ID             string   `yaml:"id" json:"id"`
	Label          string   `yaml:"label" json:"label"`
	ArtifactTypes  []string `yaml:"artifact_types,omitempty" json:"artifact_types,omitempty"`
	Stages         []string `yaml:"stages,omitempty" json:"stages,omitempty"`
	Requires       []string `yaml:"requires,omitempty" json:"requires,omitempty"`
	RequireHealthy bool     `yaml:"require_healthy,omitempty" json:"require_healthy,omitempty"`
	NotImplemented bool     `yaml:"not_implemented,omitempty" json:"not_implemented,omitempty"`
	FixRecipe      string   `yaml:"fix_recipe,omitempty" json:"fix_recipe,omitempty"`
}

func DefaultCatalog() (*Catalog, error) {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		return nil, errors.Wrap(err, "embedded catalog")
	}
	return c, nil
}

// MustDefaultCatalog panics if the embedded catalog does not parse.
func MustDefaultCatalog() *Catalog {
	c, err := DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog")
	}
	return ParseCatalog(b)
}

func ParseCatalog(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrap(err, "parse catalog yaml")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks id uniqueness and that requirements form a DAG over
// implemented nodes.
func (c *Catalog) Validate() error {
	if c == nil || len(c.Phases) == 0 {
		return errors.New("catalog has no phases")
	}
	phases := map[string]bool{}
	nodes := map[string]CatalogNode{}
	for _, p := range c.Phases {
		if p.ID == "" {
			return errors.New("catalog phase with empty id")
		}
		if phases[p.ID] {
			return errors.Errorf("duplicate phase id %q", p.ID)
		}
		phases[p.ID] = true
		for _, n := range p.Nodes {
			if n.ID == "" {
				return errors.Errorf("phase %q has a node with empty id", p.ID)
			}
			if _, ok := nodes[n.ID]; ok {
				return errors.Errorf("duplicate node id %q", n.ID)
			}
			nodes[n.ID] = n
		}
	}
	for _, n := range nodes {
		for _, req := range n.Requires {
			dep, ok := nodes[req]
			if !ok {
				return errors.Errorf("node %q requires unknown node %q", n.ID, req)
			}
			if dep.NotImplemented {
				return errors.Errorf("node %q requires unimplemented node %q", n.ID, req)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		visited
	)
	marks := map[string]int{}
	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		switch marks[id] {
		case visiting:
			return errors.Errorf("catalog dependency cycle: %v", append(path, id))
		case visited:
			return nil
		}
		marks[id] = visiting
		for _, req := range nodes[id].Requires {
			if err := visit(req, append(path, id)); err != nil {
				return err
			}
		}
		marks[id] = visited
		return nil
	}
	for _, p := range c.Phases {
		for _, n := range p.Nodes {
			if err := visit(n.ID, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// Node looks up a node and the phase that owns it.
func (c *Catalog) Node(id string) (string, CatalogNode, bool) {
	for _, p := range c.Phases {
		for _, n := range p.Nodes {
			if n.ID == id {
				return p.ID, n, true
			}
		}
	}
	return "", CatalogNode{}, false
}
