// Package vfs defines the filesystem surface the interpreter is sandboxed
// against, plus two implementations: an in-memory tree for tests and
// untrusted scripts, and a host-backed one for the CLI.
package vfs

import (
	"errors"
	"io/fs"
	"strings"
	"time"
)

// ErrNullByte is returned by any operation given a path containing a NUL
// byte; every FS implementation must reject these before touching storage.
var ErrNullByte = errors.New("vfs: path contains a null byte")

// PathError wraps a failed operation with the path and op that failed, in
// the same shape as the standard library's.
type PathError = fs.PathError

// FileInfo is the subset of file metadata the interpreter's stat/test
// builtins need.
type FileInfo struct {
	Size      int64
	ModTime   time.Time
	Mode      fs.FileMode
	IsDir     bool
	IsSymlink bool
}

// MkdirOpts configures Mkdir.
type MkdirOpts struct {
	Recursive bool
	Mode      fs.FileMode
}

// RmOpts configures Rm.
type RmOpts struct {
	Recursive bool
	Force     bool
}

// FS is the virtual filesystem every command and redirection target is
// resolved against. No implementation may touch a real OS resource except
// HostFS, and only when the embedding program explicitly opts into it.
type FS interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	AppendFile(path string, data []byte) error
	Exists(path string) bool
	Stat(path string) (FileInfo, error)
	Lstat(path string) (FileInfo, error)
	Realpath(path string) (string, error)
	Readdir(path string) ([]string, error)
	Mkdir(path string, opts MkdirOpts) error
	Rm(path string, opts RmOpts) error
	Symlink(target, linkPath string) error
	Link(target, linkPath string) error
	Readlink(path string) (string, error)

	// ResolvePath joins a relative path against cwd and cleans it, without
	// touching storage or resolving symlinks (that's Realpath's job).
	ResolvePath(cwd, relative string) string
}

// CheckPath rejects any path containing a null byte, per the filesystem
// contract every handler must enforce before it reaches storage.
func CheckPath(path string) error {
	if strings.IndexByte(path, 0) >= 0 {
		return ErrNullByte
	}
	return nil
}

func opErr(op, path string, err error) error {
	return &PathError{Op: op, Path: path, Err: err}
}

func cleanJoin(cwd, relative string) string {
	if relative == "" {
		relative = "."
	}
	var full string
	if strings.HasPrefix(relative, "/") {
		full = relative
	} else {
		full = cwd + "/" + relative
	}
	return cleanAbs(full)
}

// cleanAbs implements the same segment-collapsing rules as path.Clean, but
// operates on already-absolute, '/'-separated virtual paths so both MemFS
// and HostFS agree on what "resolved" means regardless of host OS.
func cleanAbs(p string) string {
	if p == "" {
		return "/"
	}
	segs := strings.Split(p, "/")
	var out []string
	for _, s := range segs {
		switch s {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, s)
		}
	}
	return "/" + strings.Join(out, "/")
}

func dirAndBase(p string) (string, string) {
	p = cleanAbs(p)
	if p == "/" {
		return "/", ""
	}
	i := strings.LastIndexByte(p, '/')
	if i <= 0 {
		return "/", p[1:]
	}
	return p[:i], p[i+1:]
}
