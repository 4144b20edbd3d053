package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndRemove(t *testing.T) {
	root := t.TempDir()
	l := NewLocal(root, 0)

	ref, err := l.Save(context.Background(), DirProducts, "Photo.PNG", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(ref, "images/products/") || !strings.HasSuffix(ref, ".png") {
		t.Errorf("ref = %q", ref)
	}
	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(ref)))
	if err != nil || string(b) != "png-bytes" {
		t.Fatalf("stored content = %q, %v", b, err)
	}

	if err := l.Remove(ref); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(ref))); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}
	if err := l.Remove(ref); err != nil {
		t.Errorf("removing a missing file should be a no-op: %v", err)
	}
}

func TestSaveRejects(t *testing.T) {
	root := t.TempDir()
	l := NewLocal(root, 4)

	if _, err := l.Save(context.Background(), DirPayments, "script.sh", strings.NewReader("x")); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("err = %v, want ErrUnsupportedType", err)
	}
	if _, err := l.Save(context.Background(), DirPayments, "big.jpg", strings.NewReader("12345")); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
	entries, _ := os.ReadDir(filepath.Join(root, DirPayments))
	if len(entries) != 0 {
		t.Errorf("rejected upload left %d files behind", len(entries))
	}
}

func TestRemoveStaysInsideRoot(t *testing.T) {
	parent := t.TempDir()
	outside := filepath.Join(parent, "keep.txt")
	if err := os.WriteFile(outside, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	l := NewLocal(filepath.Join(parent, "root"), 0)
	if err := l.Remove("../keep.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Errorf("file outside root was removed: %v", err)
	}
}
