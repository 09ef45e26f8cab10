package vfs

import (
	"errors"
	"testing"
)

func TestMemFSWriteReadFile(t *testing.T) {
	fs := NewMemFS()
	if err := fs.WriteFile("/foo.txt", []byte("hello")); err != nil {
		t.Fatal(err)
	}
	data, err := fs.ReadFile("/foo.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q, want hello", data)
	}
	if !fs.Exists("/foo.txt") {
		t.Fatal("expected /foo.txt to exist")
	}
}

func TestMemFSWriteRequiresParentDir(t *testing.T) {
	fs := NewMemFS()
	err := fs.WriteFile("/no/such/dir/foo.txt", []byte("x"))
	if err == nil {
		t.Fatal("expected an error writing into a nonexistent directory")
	}
}

func TestMemFSAppendFile(t *testing.T) {
	fs := NewMemFS()
	if err := fs.WriteFile("/log", []byte("a\n")); err != nil {
		t.Fatal(err)
	}
	if err := fs.AppendFile("/log", []byte("b\n")); err != nil {
		t.Fatal(err)
	}
	data, err := fs.ReadFile("/log")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a\nb\n" {
		t.Fatalf("got %q, want a\\nb\\n", data)
	}
}

func TestMemFSMkdirAndReaddir(t *testing.T) {
	fs := NewMemFS()
	if err := fs.Mkdir("/dir", MkdirOpts{Recursive: true}); err != nil {
		t.Fatal(err)
	}
	if err := fs.WriteFile("/dir/a", []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := fs.WriteFile("/dir/b", []byte("2")); err != nil {
		t.Fatal(err)
	}
	names, err := fs.Readdir("/dir")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("got %d entries, want 2: %v", len(names), names)
	}
}

func TestMemFSMkdirNonRecursiveFailsWithoutParent(t *testing.T) {
	fs := NewMemFS()
	err := fs.Mkdir("/a/b", MkdirOpts{})
	if err == nil {
		t.Fatal("expected an error creating a nested dir without Recursive")
	}
}

func TestMemFSRm(t *testing.T) {
	fs := NewMemFS()
	if err := fs.WriteFile("/f", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := fs.Rm("/f", RmOpts{}); err != nil {
		t.Fatal(err)
	}
	if fs.Exists("/f") {
		t.Fatal("expected /f to be gone")
	}
}

func TestMemFSRmMissingFailsWithoutForce(t *testing.T) {
	fs := NewMemFS()
	err := fs.Rm("/missing", RmOpts{})
	if err == nil {
		t.Fatal("expected an error removing a missing path without Force")
	}
	if err := fs.Rm("/missing", RmOpts{Force: true}); err != nil {
		t.Fatalf("Force should swallow a missing path, got %v", err)
	}
}

func TestMemFSSymlink(t *testing.T) {
	fs := NewMemFS()
	if err := fs.WriteFile("/real", []byte("data")); err != nil {
		t.Fatal(err)
	}
	if err := fs.Symlink("/real", "/link"); err != nil {
		t.Fatal(err)
	}
	data, err := fs.ReadFile("/link")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "data" {
		t.Fatalf("got %q through symlink, want data", data)
	}
	target, err := fs.Readlink("/link")
	if err != nil {
		t.Fatal(err)
	}
	if target != "/real" {
		t.Fatalf("Readlink = %q, want /real", target)
	}
}

func TestMemFSReadFileMissing(t *testing.T) {
	fs := NewMemFS()
	_, err := fs.ReadFile("/nope")
	if err == nil {
		t.Fatal("expected an error reading a missing file")
	}
	var pe *PathError
	if !errors.As(err, &pe) {
		t.Fatalf("expected a *PathError, got %T: %v", err, err)
	}
}

func TestMemFSNullByteRejected(t *testing.T) {
	fs := NewMemFS()
	err := fs.WriteFile("/has\x00null", []byte("x"))
	if !errors.Is(err, ErrNullByte) {
		t.Fatalf("got %v, want ErrNullByte", err)
	}
}
