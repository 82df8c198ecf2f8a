package discover

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestExpandDirectory(t *testing.T) {
	tempDir := t.TempDir()
	touch(t, filepath.Join(tempDir, "a.py"))
	touch(t, filepath.Join(tempDir, "pkg", "b.py"))
	touch(t, filepath.Join(tempDir, "pkg", "data.json"))
	touch(t, filepath.Join(tempDir, "__pycache__", "a.cpython-312.pyc"))

	files, err := Expand([]string{tempDir}, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(files), files)
	}
	if files[0] != filepath.Join(tempDir, "a.py") {
		t.Errorf("unexpected first file %s", files[0])
	}
	if files[1] != filepath.Join(tempDir, "pkg", "b.py") {
		t.Errorf("unexpected second file %s", files[1])
	}
}

func TestExpandPassesThroughNonDirs(t *testing.T) {
	tempDir := t.TempDir()
	touch(t, filepath.Join(tempDir, "README.md"))

	targets := []string{filepath.Join(tempDir, "README.md"), "bare.module"}
	files, err := Expand(targets, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(files))
	}
	if files[1] != "bare.module" {
		t.Errorf("module names pass through, got %s", files[1])
	}
}

func TestExpandCustomPatterns(t *testing.T) {
	tempDir := t.TempDir()
	touch(t, filepath.Join(tempDir, "docs", "guide.md"))
	touch(t, filepath.Join(tempDir, "docs", "skip.txt"))

	cfg := Config{Include: []string{"**/*.md"}}
	files, err := Expand([]string{tempDir}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d: %v", len(files), files)
	}
}

func TestExcluded(t *testing.T) {
	patterns := DefaultConfig().Exclude

	if !Excluded(".venv/lib/mod.py", patterns) {
		t.Error(".venv contents should be excluded")
	}
	if Excluded("pkg/mod.py", patterns) {
		t.Error("ordinary files should not be excluded")
	}
}

func TestDetectEncoding(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want Encoding
		bom  bool
	}{
		{"plain ascii", []byte("hello\n"), EncUTF8, false},
		{"utf8", []byte("héllo\n"), EncUTF8, false},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "hi"...), EncUTF8, true},
		{"utf16le bom", []byte{0xFF, 0xFE, 'h', 0}, EncUTF16LE, true},
		{"utf16be bom", []byte{0xFE, 0xFF, 0, 'h'}, EncUTF16BE, true},
		{"latin1", []byte{'c', 'a', 'f', 0xE9}, EncLatin1, false},
	}

	for _, tc := range cases {
		enc, bom := DetectEncoding(tc.data)
		if enc != tc.want || bom != tc.bom {
			t.Errorf("%s: got (%s, %v), want (%s, %v)", tc.name, enc, bom, tc.want, tc.bom)
		}
	}
}

func TestReadFileUTF8(t *testing.T) {
	tempDir := t.TempDir()

	path := filepath.Join(tempDir, "latin1.txt")
	if err := os.WriteFile(path, []byte{'c', 'a', 'f', 0xE9, '\n'}, 0644); err != nil {
		t.Fatal(err)
	}

	content, enc, err := ReadFileUTF8(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enc != EncLatin1 {
		t.Errorf("expected latin-1, got %s", enc)
	}
	if content != "café\n" {
		t.Errorf("unexpected content %q", content)
	}

	if _, _, err := ReadFileUTF8(filepath.Join(tempDir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
