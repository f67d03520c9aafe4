package recipe

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyDir_CopyInsideNoOverwrite(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	if err := os.MkdirAll(filepath.Join(src, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "nested", "b.txt"), []byte("nested"), 0o644); err != nil {
		t.Fatal(err)
	}

	// pre-existing destination file: must survive untouched (overwrite off)
	if err := os.WriteFile(filepath.Join(dst, "a.txt"), []byte("preexisting"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := copyDir(src, dst); err != nil {
		t.Fatalf("copyDir: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "preexisting" {
		t.Errorf("expected existing destination file preserved, got %q", got)
	}

	nested, err := os.ReadFile(filepath.Join(dst, "nested", "b.txt"))
	if err != nil {
		t.Fatalf("nested file not copied: %v", err)
	}
	if string(nested) != "nested" {
		t.Errorf("unexpected nested content %q", nested)
	}

	// contents land directly under dst (copy_inside=true), not dst/<srcBase>
	if _, err := os.Stat(filepath.Join(dst, filepath.Base(src))); err == nil {
		t.Error("copy_inside semantics violated: source directory itself was nested under destination")
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "sub", "dst.txt")

	if err := os.WriteFile(src, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := copyFile(src, dst); err != nil {
		t.Fatalf("copyFile: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("unexpected content %q", got)
	}
}
