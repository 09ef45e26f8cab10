package vfs

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// HostFS adapts the real host filesystem, rooted at Dir, to the FS
// interface. It is only wired up by the CLI entry point (cmd/vsh) -- the
// interpreter core itself never imports "os".
type HostFS struct {
	Dir string
}

// NewHostFS returns a HostFS rooted at dir. Every virtual path is joined
// under dir before touching the real filesystem, so a script can't escape
// its sandbox root via "..".
func NewHostFS(dir string) *HostFS { return &HostFS{Dir: dir} }

func (h *HostFS) real(path string) (string, error) {
	if err := CheckPath(path); err != nil {
		return "", err
	}
	clean := cleanAbs(path)
	return filepath.Join(h.Dir, filepath.FromSlash(clean)), nil
}

func (h *HostFS) ReadFile(path string) ([]byte, error) {
	real, err := h.real(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(real)
}

func (h *HostFS) WriteFile(path string, data []byte) error {
	real, err := h.real(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(real), 0o755); err != nil {
		return err
	}
	// renameio gives writeFile the same crash-atomicity the teacher's CLI
	// uses for its own on-disk edits: the destination only ever shows a
	// complete write, never a partial one.
	return renameio.WriteFile(real, data, 0o644)
}

func (h *HostFS) AppendFile(path string, data []byte) error {
	real, err := h.real(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(real), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(real, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

func (h *HostFS) Exists(path string) bool {
	real, err := h.real(path)
	if err != nil {
		return false
	}
	_, err = os.Lstat(real)
	return err == nil
}

func (h *HostFS) Stat(path string) (FileInfo, error) { return h.stat(path, os.Stat) }

func (h *HostFS) Lstat(path string) (FileInfo, error) { return h.stat(path, os.Lstat) }

func (h *HostFS) stat(path string, statFn func(string) (os.FileInfo, error)) (FileInfo, error) {
	real, err := h.real(path)
	if err != nil {
		return FileInfo{}, err
	}
	fi, err := statFn(real)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Size: fi.Size(), ModTime: fi.ModTime(), Mode: fi.Mode(),
		IsDir: fi.IsDir(), IsSymlink: fi.Mode()&fs.ModeSymlink != 0,
	}, nil
}

func (h *HostFS) Realpath(path string) (string, error) {
	real, err := h.real(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(real)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(h.Dir, resolved)
	if err != nil {
		return "", err
	}
	return cleanAbs(filepath.ToSlash(rel)), nil
}

func (h *HostFS) Readdir(path string) ([]string, error) {
	real, err := h.real(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(real)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func (h *HostFS) Mkdir(path string, opts MkdirOpts) error {
	real, err := h.real(path)
	if err != nil {
		return err
	}
	mode := opts.Mode
	if mode == 0 {
		mode = 0o755
	}
	if opts.Recursive {
		return os.MkdirAll(real, mode)
	}
	return os.Mkdir(real, mode)
}

func (h *HostFS) Rm(path string, opts RmOpts) error {
	real, err := h.real(path)
	if err != nil {
		return err
	}
	if opts.Recursive {
		err := os.RemoveAll(real)
		if err != nil && opts.Force {
			return nil
		}
		return err
	}
	err = os.Remove(real)
	if err != nil && opts.Force {
		return nil
	}
	return err
}

func (h *HostFS) Symlink(target, linkPath string) error {
	real, err := h.real(linkPath)
	if err != nil {
		return err
	}
	return os.Symlink(target, real)
}

func (h *HostFS) Link(target, linkPath string) error {
	realTarget, err := h.real(target)
	if err != nil {
		return err
	}
	realLink, err := h.real(linkPath)
	if err != nil {
		return err
	}
	return os.Link(realTarget, realLink)
}

func (h *HostFS) Readlink(path string) (string, error) {
	real, err := h.real(path)
	if err != nil {
		return "", err
	}
	return os.Readlink(real)
}

func (h *HostFS) ResolvePath(cwd, relative string) string {
	return cleanJoin(cwd, relative)
}
