// Package discover expands CLI targets: directories become the set of
// files under them that match the configured include patterns.
package discover

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nrser/drt/internal/logger"
)

var log = logger.ForComponent("discover")

type Config struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

func DefaultConfig() Config {
	return Config{
		Include: []string{"**/*.py"},
		Exclude: []string{
			"**/.git/**",
			"**/__pycache__/**",
			"**/.venv/**",
			"**/node_modules/**",
			"**/build/**",
			"**/dist/**",
		},
	}
}

// Expand maps each raw target to one or more file targets. Non-directory
// arguments pass through untouched, so bare module names still work.
func Expand(targets []string, cfg Config) ([]string, error) {
	var out []string

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil || !info.IsDir() {
			out = append(out, target)
			continue
		}

		files, err := walkDir(target, cfg)
		if err != nil {
			return nil, err
		}
		log.Debug("expanded directory", "dir", target, "files", len(files))
		out = append(out, files...)
	}

	return out, nil
}

func walkDir(dir string, cfg Config) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			// Probe with a child path so "**/.git/**" style patterns
			// prune the whole subtree.
			if Excluded(rel+"/_", cfg.Exclude) {
				return filepath.SkipDir
			}
			return nil
		}

		if Excluded(rel, cfg.Exclude) {
			return nil
		}

		for _, pattern := range cfg.Include {
			if match, _ := doublestar.Match(pattern, rel); match {
				files = append(files, path)
				return nil
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// Excluded reports whether a slash-separated relative path matches any
// exclude pattern.
func Excluded(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if match, _ := doublestar.Match(pattern, rel); match {
			return true
		}
	}
	return false
}
