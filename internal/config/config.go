// Package config assembles settings from built-in defaults, the state
// directory under the user's home, and the [tool.drt] table of the
// project's pyproject.toml.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/nrser/drt/internal/discover"
	"github.com/nrser/drt/internal/project"
	"github.com/nrser/drt/internal/watch"
)

const stateDirName = ".drt"

type RunnerConfig struct {
	PythonBin      string `toml:"python"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type Config struct {
	SocketPath  string `toml:"-"`
	PIDPath     string `toml:"-"`
	HistoryPath string `toml:"history_db"`
	LogLevel    string `toml:"log_level"`

	Discover discover.Config `toml:"discover"`
	Runner   RunnerConfig    `toml:"runner"`
	Watch    watch.Config    `toml:"watch"`
}

// pyProject mirrors just the slice of pyproject.toml we care about.
type pyProject struct {
	Tool struct {
		Drt Config `toml:"drt"`
	} `toml:"tool"`
}

func Load() *Config {
	homeDir, _ := os.UserHomeDir()
	stateDir := filepath.Join(homeDir, stateDirName)

	return &Config{
		SocketPath:  filepath.Join(stateDir, "daemon.sock"),
		PIDPath:     filepath.Join(stateDir, "daemon.pid"),
		HistoryPath: filepath.Join(stateDir, "history.db"),
		LogLevel:    "warn",
		Discover:    discover.DefaultConfig(),
		Runner: RunnerConfig{
			PythonBin:      "python3",
			TimeoutSeconds: 30,
		},
		Watch: watch.DefaultConfig(),
	}
}

// LoadProject layers [tool.drt] from the package root's pyproject.toml
// over the defaults. A missing file or missing table is not an error.
func LoadProject(root string) (*Config, error) {
	cfg := Load()

	path := filepath.Join(root, project.PyProjectFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	var py pyProject
	py.Tool.Drt = *cfg
	if err := toml.Unmarshal(data, &py); err != nil {
		return nil, err
	}

	merged := py.Tool.Drt
	merged.SocketPath = cfg.SocketPath
	merged.PIDPath = cfg.PIDPath
	return &merged, nil
}

func (c *Config) Timeout() time.Duration {
	if c.Runner.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Runner.TimeoutSeconds) * time.Second
}

func (c *Config) EnsureDirectories() error {
	homeDir, _ := os.UserHomeDir()
	return os.MkdirAll(filepath.Join(homeDir, stateDirName), 0700)
}
