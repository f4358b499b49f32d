package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/go-go-golems/studioctl/pkg/state"
)

const (
	DefaultConfigFilename = "studioctl.yaml"
	HiddenConfigFilename  = ".studioctl.yaml"
	EnvPrefix             = "STUDIOCTL_"
)

type Config struct {
	EngineURL    string        `koanf:"engine_url"`
	Project      string        `koanf:"project"`
	PollInterval time.Duration `koanf:"poll_interval"`
	StateDir     string        `koanf:"state_dir"`
	CatalogPath  string        `koanf:"catalog"`
	DefaultModel string        `koanf:"default_model"`
	Listen       string        `koanf:"listen"`
	Timeout      time.Duration `koanf:"timeout"`

	// ConfigFile is the file that was loaded, empty when none was found.
	ConfigFile string `koanf:"-"`
}

// flagKeys maps CLI flag names to config keys where they differ.
var flagKeys = map[string]string{
	"refresh": "poll_interval",
	"model":   "default_model",
}

func defaults(root string) map[string]interface{} {
	return map[string]interface{}{
		"engine_url":    "http://127.0.0.1:8000",
		"poll_interval": 2 * time.Second,
		"state_dir":     state.Dir(root),
		"listen":        "127.0.0.1:8787",
		"timeout":       15 * time.Second,
	}
}

// FindConfigFile returns explicit, or the first default config file in root.
func FindConfigFile(root, explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{DefaultConfigFilename, HiddenConfigFilename} {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load layers defaults, the config file, STUDIOCTL_* environment variables and
// explicitly set flags, in increasing precedence. flags may be nil.
func Load(root, explicitFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(root), "."), nil); err != nil {
		return nil, errors.Wrap(err, "load defaults")
	}

	cfgFile := FindConfigFile(root, explicitFile)
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read config %s", cfgFile)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env")
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, errors.Wrap(err, "load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.ConfigFile = cfgFile
	if cfg.StateDir != "" && !filepath.IsAbs(cfg.StateDir) {
		cfg.StateDir = filepath.Join(root, cfg.StateDir)
	}
	if cfg.CatalogPath != "" && !filepath.IsAbs(cfg.CatalogPath) {
		cfg.CatalogPath = filepath.Join(root, cfg.CatalogPath)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.EngineURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("invalid engine_url %q", c.EngineURL)
	}
	if c.PollInterval < 100*time.Millisecond {
		return errors.Errorf("poll_interval %s is too short", c.PollInterval)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

// RequireProject returns an error naming the flag and env var to set.
func (c *Config) RequireProject() error {
	if c.Project == "" {
		return errors.Errorf("no project selected (use --project or %sPROJECT)", EnvPrefix)
	}
	return nil
}
