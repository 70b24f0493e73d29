// Package pgconfig manages the per-user tool configuration and the
// interrogation of pg_config executables registered in it.
package pgconfig

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

const (
	configDirName  = ".pgmantle"
	configFileName = "config.toml"
)

// Config is the on-disk configuration, one pg_config path per
// registered major plus shared settings.
type Config struct {
	// Configs maps a version label like "pg15" to the absolute path
	// of that installation's pg_config.
	Configs map[string]string `toml:"configs"`
	// BasePort anchors scratch-database port allocation; major N
	// listens on BasePort+N.
	BasePort int `toml:"base_port"`

	path string

	downloadOnce sync.Once
	downloadDir  string
	downloadErr  error
}

// DefaultPath returns ~/.pgmantle/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("pgmantle: resolve home directory: %w", err)
	}
	return filepath.Join(home, configDirName, configFileName), nil
}

// Load reads the configuration at path, or returns an empty
// configuration bound to that path when the file does not exist yet.
func Load(path string) (*Config, error) {
	cfg := &Config{Configs: map[string]string{}, BasePort: 28800, path: path}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pgmantle: read config: %w", err)
	}
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("pgmantle: parse %s: %w", path, err)
	}
	if cfg.Configs == nil {
		cfg.Configs = map[string]string{}
	}
	return cfg, nil
}

// Store writes the configuration back to the path it was loaded from,
// creating the directory on first use.
func (c *Config) Store() error {
	raw, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("pgmantle: encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("pgmantle: create config dir: %w", err)
	}
	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		return fmt.Errorf("pgmantle: write config: %w", err)
	}
	return nil
}

// Register records a pg_config path under its version label, replacing
// any previous registration for the same major.
func (c *Config) Register(label, pgConfigPath string) error {
	if _, err := MajorFromLabel(label); err != nil {
		return err
	}
	c.Configs[label] = pgConfigPath
	return nil
}

// Labels returns the registered version labels sorted by major.
func (c *Config) Labels() []string {
	labels := make([]string, 0, len(c.Configs))
	for label := range c.Configs {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		mi, _ := MajorFromLabel(labels[i])
		mj, _ := MajorFromLabel(labels[j])
		return mi < mj
	})
	return labels
}

// PortFor returns the scratch-server port for a major.
func (c *Config) PortFor(major int) int { return c.BasePort + major }

// DownloadDir resolves the shared artifact directory on first use and
// memoizes the result, including a resolution failure.
func (c *Config) DownloadDir() (string, error) {
	c.downloadOnce.Do(func() {
		dir := filepath.Join(filepath.Dir(c.path), "downloads")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			c.downloadErr = fmt.Errorf("pgmantle: create download dir: %w", err)
			return
		}
		c.downloadDir = dir
	})
	return c.downloadDir, c.downloadErr
}

var labelRe = regexp.MustCompile(`^pg(\d+)$`)

// MajorFromLabel parses a "pg<N>" version label.
func MajorFromLabel(label string) (int, error) {
	m := labelRe.FindStringSubmatch(label)
	if m == nil {
		return 0, fmt.Errorf("pgmantle: version label %q is not of the form pg15", label)
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("pgmantle: version label %q: %w", label, err)
	}
	return major, nil
}

// Installation is what pg_config reports about one server build.
type Installation struct {
	Label            string
	Major            int
	VersionString    string
	IncludeDirServer string
	PkgLibDir        string
	BinDir           string
}

// Interrogate runs the registered pg_config for a label and collects
// the directories the tool needs.
func (c *Config) Interrogate(ctx context.Context, label string) (*Installation, error) {
	path, ok := c.Configs[label]
	if !ok {
		return nil, fmt.Errorf("pgmantle: %s is not registered; run `pgmantle config init` first", label)
	}
	major, err := MajorFromLabel(label)
	if err != nil {
		return nil, err
	}

	inst := &Installation{Label: label, Major: major}
	queries := []struct {
		flag string
		dst  *string
	}{
		{"--version", &inst.VersionString},
		{"--includedir-server", &inst.IncludeDirServer},
		{"--pkglibdir", &inst.PkgLibDir},
		{"--bindir", &inst.BinDir},
	}
	for _, q := range queries {
		out, err := exec.CommandContext(ctx, path, q.flag).Output()
		if err != nil {
			return nil, fmt.Errorf("pgmantle: %s %s: %w", path, q.flag, err)
		}
		*q.dst = strings.TrimSpace(string(out))
	}

	reported, err := majorFromVersionString(inst.VersionString)
	if err != nil {
		return nil, err
	}
	if reported != major {
		return nil, fmt.Errorf("pgmantle: %s reports major %d but is registered as %s", path, reported, label)
	}
	return inst, nil
}

var versionRe = regexp.MustCompile(`PostgreSQL (\d+)`)

func majorFromVersionString(s string) (int, error) {
	m := versionRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("pgmantle: cannot read a major version from %q", s)
	}
	return strconv.Atoi(m[1])
}
