package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFindRootPyProject(t *testing.T) {
	tempDir := t.TempDir()
	writeFile(t, filepath.Join(tempDir, "pyproject.toml"), "[tool.poetry]\n")
	writeFile(t, filepath.Join(tempDir, "pkg", "mod.py"), "")

	root, err := FindRoot(filepath.Join(tempDir, "pkg", "mod.py"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root != tempDir {
		t.Errorf("expected root %s, got %s", tempDir, root)
	}
}

func TestFindRootSetupPy(t *testing.T) {
	tempDir := t.TempDir()
	writeFile(t, filepath.Join(tempDir, "setup.py"), "")
	writeFile(t, filepath.Join(tempDir, "pkg", "__init__.py"), "")

	root, err := FindRoot(filepath.Join(tempDir, "pkg", "__init__.py"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root != tempDir {
		t.Errorf("expected root %s, got %s", tempDir, root)
	}
}

func TestFindRootSetupPyInsidePackage(t *testing.T) {
	// A setup.py next to an __init__.py does not mark a root.
	tempDir := t.TempDir()
	writeFile(t, filepath.Join(tempDir, "pyproject.toml"), "")
	writeFile(t, filepath.Join(tempDir, "pkg", "setup.py"), "")
	writeFile(t, filepath.Join(tempDir, "pkg", "__init__.py"), "")
	writeFile(t, filepath.Join(tempDir, "pkg", "mod.py"), "")

	root, err := FindRoot(filepath.Join(tempDir, "pkg", "mod.py"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root != tempDir {
		t.Errorf("expected root %s, got %s", tempDir, root)
	}
}

func TestFindRootMissing(t *testing.T) {
	tempDir := t.TempDir()
	writeFile(t, filepath.Join(tempDir, "mod.py"), "")

	_, err := FindRoot(filepath.Join(tempDir, "mod.py"))
	if err == nil {
		t.Skip("an ancestor outside the temp dir is a package root")
	}
	if !errors.Is(err, ErrNoPackageRoot) {
		t.Errorf("expected ErrNoPackageRoot, got %v", err)
	}
}

func TestToModuleName(t *testing.T) {
	tempDir := t.TempDir()
	writeFile(t, filepath.Join(tempDir, "pyproject.toml"), "")
	writeFile(t, filepath.Join(tempDir, "splatlog", "splat_logger.py"), "")
	writeFile(t, filepath.Join(tempDir, "splatlog", "__init__.py"), "")

	name, err := ToModuleName(filepath.Join(tempDir, "splatlog", "splat_logger.py"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "splatlog.splat_logger" {
		t.Errorf("expected splatlog.splat_logger, got %s", name)
	}

	name, err = ToModuleName(filepath.Join(tempDir, "splatlog", "__init__.py"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "splatlog" {
		t.Errorf("expected splatlog, got %s", name)
	}
}

func TestLocateModule(t *testing.T) {
	tempDir := t.TempDir()
	writeFile(t, filepath.Join(tempDir, "pkg", "__init__.py"), "")
	writeFile(t, filepath.Join(tempDir, "pkg", "mod.py"), "")

	path, err := LocateModule(tempDir, "pkg.mod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(tempDir, "pkg", "mod.py") {
		t.Errorf("unexpected path %s", path)
	}

	path, err = LocateModule(tempDir, "pkg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(tempDir, "pkg", "__init__.py") {
		t.Errorf("unexpected path %s", path)
	}

	if _, err := LocateModule(tempDir, "missing.module"); err == nil {
		t.Error("expected error for missing module")
	}
}

func TestResolveTarget(t *testing.T) {
	tempDir := t.TempDir()
	writeFile(t, filepath.Join(tempDir, "pyproject.toml"), "")
	writeFile(t, filepath.Join(tempDir, "pkg", "mod.py"), "")
	writeFile(t, filepath.Join(tempDir, "README.md"), "# docs\n")

	target, err := ResolveTarget(filepath.Join(tempDir, "pkg", "mod.py"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Kind != KindModule {
		t.Errorf("expected module target, got %s", target.Kind)
	}
	if target.Module != "pkg.mod" {
		t.Errorf("expected pkg.mod, got %s", target.Module)
	}

	target, err = ResolveTarget(filepath.Join(tempDir, "README.md"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Kind != KindTextFile {
		t.Errorf("expected text file target, got %s", target.Kind)
	}
	if target.Name() != filepath.Join(tempDir, "README.md") {
		t.Errorf("unexpected name %s", target.Name())
	}

	target, err = ResolveTarget("some.module.name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Kind != KindModule || target.Module != "some.module.name" {
		t.Errorf("bare names resolve as modules, got %+v", target)
	}

	if _, err := ResolveTarget(tempDir); err == nil {
		t.Error("directories are rejected at resolve level")
	}
}
