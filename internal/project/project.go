// Package project locates Python package roots and maps file paths to
// dotted module names.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	PyProjectFilename = "pyproject.toml"
	SetupFilename     = "setup.py"
)

var ErrNoPackageRoot = errors.New("no package root found")

// TargetKind distinguishes how a CLI target is run.
type TargetKind int

const (
	// KindModule targets are importable Python modules; their doctests
	// come from docstrings.
	KindModule TargetKind = iota

	// KindTextFile targets are prose files run as a single document.
	KindTextFile
)

func (k TargetKind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindTextFile:
		return "text_file"
	default:
		return "unknown"
	}
}

// Target is a resolved CLI argument.
type Target struct {
	// Raw is the argument as given on the command line.
	Raw string

	Kind TargetKind

	// Module is the dotted module name (module targets only).
	Module string

	// Path is the absolute file path. Empty when a module was named
	// directly and has not been located yet.
	Path string
}

// Name is what the target is called in results: module name for modules,
// file path for text files.
func (t Target) Name() string {
	if t.Kind == KindModule {
		return t.Module
	}
	return t.Path
}

func isPyProjectRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, PyProjectFilename))
	return err == nil && info.Mode().IsRegular()
}

func isSetupPyRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, SetupFilename))
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	_, err = os.Stat(filepath.Join(dir, "__init__.py"))
	return err != nil
}

// IsPackageRoot reports whether dir is the top of a Python package:
// it holds a pyproject.toml, or a setup.py without being a package itself.
func IsPackageRoot(dir string) bool {
	return isPyProjectRoot(dir) || isSetupPyRoot(dir)
}

// FindRoot walks up from path to the nearest package root.
func FindRoot(path string) (string, error) {
	dir := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		dir = filepath.Dir(path)
	}

	for {
		if IsPackageRoot(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: no %s in ancestors of %s",
				ErrNoPackageRoot, PyProjectFilename, path)
		}
		dir = parent
	}
}

// ToModuleName converts a .py file path into its dotted module name,
// relative to the enclosing package root.
func ToModuleName(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	root, err := FindRoot(abs)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}

	rel = strings.TrimSuffix(rel, ".py")
	rel = strings.TrimSuffix(rel, string(filepath.Separator)+"__init__")
	if rel == "__init__" {
		return filepath.Base(root), nil
	}

	return strings.ReplaceAll(rel, string(filepath.Separator), "."), nil
}

// LocateModule finds the source file for a dotted module name under root.
func LocateModule(root, module string) (string, error) {
	relPath := filepath.Join(strings.Split(module, ".")...)

	asFile := filepath.Join(root, relPath+".py")
	if info, err := os.Stat(asFile); err == nil && info.Mode().IsRegular() {
		return asFile, nil
	}

	asPackage := filepath.Join(root, relPath, "__init__.py")
	if info, err := os.Stat(asPackage); err == nil && info.Mode().IsRegular() {
		return asPackage, nil
	}

	return "", fmt.Errorf("module %s: no source file under %s", module, root)
}

// ResolveTarget classifies a CLI argument as a module or text file.
//
// An existing .py path becomes a module target (with its dotted name
// derived from the package root); any other existing file is a text file;
// a path that does not exist is assumed to be a module name.
func ResolveTarget(raw string) (Target, error) {
	abs, err := filepath.Abs(raw)
	if err != nil {
		return Target{}, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return Target{Raw: raw, Kind: KindModule, Module: raw}, nil
	}

	if info.IsDir() {
		return Target{}, fmt.Errorf("expected target paths to be files, given %q", raw)
	}

	if filepath.Ext(abs) == ".py" {
		module, err := ToModuleName(abs)
		if err != nil {
			return Target{}, err
		}
		return Target{Raw: raw, Kind: KindModule, Module: module, Path: abs}, nil
	}

	return Target{Raw: raw, Kind: KindTextFile, Path: abs}, nil
}
