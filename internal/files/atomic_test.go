package files

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestAtomicWrite_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "boardtrans", "history.jsonl")
	if err := AtomicWrite(path, []byte("{}\n"), 0600); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "{}\n" {
		t.Fatalf("unexpected content %q", data)
	}
	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Fatalf("expected 0600, got %v", info.Mode().Perm())
		}
	}
}

func TestAtomicWrite_Replaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := os.WriteFile(path, []byte("old"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := AtomicWrite(path, []byte("董事會決議"), 0600); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "董事會決議" {
		t.Fatalf("unexpected content %q", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected temp file to be gone, found %d entries", len(entries))
	}
}

func TestOpenAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boardtrans.log")
	for _, line := range []string{"a\n", "b\n"} {
		f, err := OpenAppend(path, 0600)
		if err != nil {
			t.Fatalf("OpenAppend failed: %v", err)
		}
		if _, err := f.WriteString(line); err != nil {
			t.Fatalf("write: %v", err)
		}
		f.Close()
	}
	data, _ := os.ReadFile(path)
	if string(data) != "a\nb\n" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestOpenAppendRejectsSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink not permitted on Windows")
	}
	tmp := t.TempDir()
	target := filepath.Join(tmp, "target.log")
	if err := os.WriteFile(target, nil, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	link := filepath.Join(tmp, "link.log")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if _, err := OpenAppend(link, 0600); err == nil {
		t.Fatalf("expected symlink rejection")
	}
}
