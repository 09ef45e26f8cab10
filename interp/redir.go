package interp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vshlang/vsh/syntax"
	"github.com/vshlang/vsh/vfs"
)

// redirState snapshots the three standard streams so applyRedirs can
// restore them once a statement finishes.
type redirState struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (s *State) saveStreams() redirState {
	return redirState{stdin: s.Stdin, stdout: s.Stdout, stderr: s.Stderr}
}

func (s *State) restoreStreams(r redirState) {
	s.Stdin, s.Stdout, s.Stderr = r.stdin, r.stdout, r.stderr
}

// fileWriter buffers writes and flushes them to the virtual filesystem once
// closed, since vfs.FS has no open-handle concept -- every redirection
// target is a whole-file write or append.
type fileWriter struct {
	fs     vfs.FS
	path   string
	append bool
	buf    bytes.Buffer
}

func (w *fileWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *fileWriter) Close() error {
	if w.append {
		return w.fs.AppendFile(w.path, w.buf.Bytes())
	}
	return w.fs.WriteFile(w.path, w.buf.Bytes())
}

// applyRedirs evaluates and applies every redirection in order, returning a
// function that restores the previous streams (and flushes any buffered
// output) once the statement completes.
func (s *State) applyRedirs(ctx context.Context, redirs []*syntax.Redirect) (func(), error) {
	saved := s.saveStreams()
	var closers []io.Closer
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
		s.restoreStreams(saved)
	}
	for _, rd := range redirs {
		if err := s.applyRedir(ctx, rd, &closers); err != nil {
			cleanup()
			return nil, err
		}
	}
	return cleanup, nil
}

func (s *State) applyRedir(ctx context.Context, rd *syntax.Redirect, closers *[]io.Closer) error {
	word, err := s.expandLiteral(ctx, rd.Word)
	if err != nil {
		return err
	}
	switch rd.Op {
	case syntax.RedirRdr, syntax.RedirRdrIn:
		path := s.resolve(word)
		data, err := s.FS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		s.Stdin = bytes.NewReader(data)
		return nil
	case syntax.RedirWdr, syntax.RedirClobOut:
		return s.openOutput(word, rd.N, false, closers)
	case syntax.RedirAppend:
		return s.openOutput(word, rd.N, true, closers)
	case syntax.RedirRdrAll:
		return s.openOutputBoth(word, false, closers)
	case syntax.RedirAppAll:
		return s.openOutputBoth(word, true, closers)
	case syntax.RedirDupOut:
		return s.dupOut(rd.N, word)
	case syntax.RedirDplIn:
		return s.dupIn(word)
	case syntax.RedirHdoc, syntax.RedirHdocDash:
		body := ""
		if rd.Hdoc != nil {
			body, err = s.expandLiteral(ctx, rd.Hdoc)
			if err != nil {
				return err
			}
		}
		if rd.Op == syntax.RedirHdocDash {
			body = stripLeadingTabs(body)
		}
		s.Stdin = strings.NewReader(body)
		return nil
	case syntax.RedirHdocStr:
		s.Stdin = strings.NewReader(word + "\n")
		return nil
	case syntax.RedirProcIn, syntax.RedirProcOut:
		return fmt.Errorf("process substitution is not supported as a bare redirection target")
	default:
		return fmt.Errorf("unsupported redirection")
	}
}

func stripLeadingTabs(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimLeft(l, "\t")
	}
	return strings.Join(lines, "\n")
}

func (s *State) openOutput(target, fd string, appendMode bool, closers *[]io.Closer) error {
	w := &fileWriter{fs: s.FS, path: s.resolve(target), append: appendMode}
	*closers = append(*closers, w)
	switch fd {
	case "2":
		s.Stderr = w
	default:
		s.Stdout = w
	}
	return nil
}

func (s *State) openOutputBoth(target string, appendMode bool, closers *[]io.Closer) error {
	w := &fileWriter{fs: s.FS, path: s.resolve(target), append: appendMode}
	*closers = append(*closers, w)
	s.Stdout = w
	s.Stderr = w
	return nil
}

func (s *State) resolve(path string) string {
	return s.FS.ResolvePath(s.CWD, path)
}

func (s *State) dupOut(fd, target string) error {
	if target == "-" {
		switch fd {
		case "2":
			s.Stderr = io.Discard
		default:
			s.Stdout = io.Discard
		}
		return nil
	}
	n, err := strconv.Atoi(target)
	if err != nil {
		return fmt.Errorf("unsupported fd duplication target %q", target)
	}
	switch {
	case fd == "2" && n == 1:
		s.Stderr = s.Stdout
	case (fd == "" || fd == "1") && n == 2:
		s.Stdout = s.Stderr
	}
	return nil
}

func (s *State) dupIn(target string) error {
	if target == "-" {
		s.Stdin = strings.NewReader("")
	}
	return nil
}
