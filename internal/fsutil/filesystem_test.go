package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestMemoryFileSystem_WriteRead(t *testing.T) {
	m := NewMemoryFileSystem()
	if err := m.MkdirAll("out/2025-08-01", 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := m.WriteFile("out/2025-08-01/frames.json", []byte("[]"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := m.ReadFile("out/2025-08-01/frames.json")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("ReadFile = %q, want %q", data, "[]")
	}
	if !m.Exists("out") || !m.Exists("out/2025-08-01") {
		t.Error("expected parent directories to exist")
	}
}

func TestMemoryFileSystem_MissingParent(t *testing.T) {
	m := NewMemoryFileSystem()
	err := m.WriteFile("nowhere/file.txt", []byte("x"), 0644)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("WriteFile without parent: got %v, want ErrNotExist", err)
	}
	if _, err := m.Create("nowhere/file.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Create without parent: got %v, want ErrNotExist", err)
	}
	// files at the root need no directory
	if err := m.WriteFile("index.txt", nil, 0644); err != nil {
		t.Errorf("WriteFile at root: %v", err)
	}
}

func TestMemoryFileSystem_CreateAndOpen(t *testing.T) {
	m := NewMemoryFileSystem()
	_ = m.MkdirAll("plots", 0755)

	w, err := m.Create("plots/series.png")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := io.WriteString(w, "PNG"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := m.Open("plots/series.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "PNG" {
		t.Errorf("read back %q", data)
	}

	if _, err := m.Open("plots/missing.png"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open missing: got %v", err)
	}
}

func TestMemoryFileSystem_Files(t *testing.T) {
	m := NewMemoryFileSystem()
	_ = m.MkdirAll("b", 0755)
	_ = m.WriteFile("b/2.txt", nil, 0644)
	_ = m.WriteFile("a.txt", nil, 0644)

	got := m.Files()
	want := []string{"a.txt", filepath.Clean("b/2.txt")}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Files() = %v, want %v", got, want)
	}
}

func TestOSFileSystem(t *testing.T) {
	var fsys FileSystem = OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	path := filepath.Join(dir, "f.txt")
	if err := fsys.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if !fsys.Exists(path) {
		t.Error("expected file to exist")
	}
	data, err := fsys.ReadFile(path)
	if err != nil || string(data) != "hello" {
		t.Errorf("ReadFile = %q, %v", data, err)
	}
}
