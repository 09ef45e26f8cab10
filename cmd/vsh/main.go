// vsh is a demo CLI for the sandboxed shell interpreter: run a script file,
// an inline command, or stdin against an in-memory filesystem by default,
// or a real directory when --hostdir is passed.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/mattn/go-isatty"

	"github.com/vshlang/vsh/command"
	"github.com/vshlang/vsh/interp"
	"github.com/vshlang/vsh/syntax"
	"github.com/vshlang/vsh/vfs"
)

var (
	app = kingpin.New("vsh", "sandboxed POSIX-shell interpreter")

	cCmd      = app.Flag("c", "command to run instead of a script file").Short('c').String()
	hostDir   = app.Flag("hostdir", "run against this real directory instead of an in-memory filesystem").String()
	watch     = app.Flag("watch", "re-run the script whenever the given host path changes").String()
	scriptArg = app.Arg("script", "script file to run; stdin is read if omitted and -c is unset").String()
)

func main() {
	os.Exit(main1())
}

// main1 runs vsh and returns the process exit code, kept separate from main
// so a test binary can register it under a name and drive it through
// testscript the same way it drives a real vsh binary.
func main1() int {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	var es interp.ExitStatus
	if errors.As(err, &es) {
		return int(es)
	}
	if err != nil {
		printErr(err)
		return 1
	}
	return 0
}

func run(ctx context.Context) error {
	envCfg, err := loadEnvConfig()
	if err != nil {
		return err
	}

	fs, cwd := buildFS(*hostDir)
	reg := command.Builtins()

	opts := []interp.Option{
		interp.WithStdio(os.Stdin, os.Stdout, os.Stderr),
		interp.WithOptions(interp.Options{
			NoUnset: envCfg.NoUnset,
			ErrExit: envCfg.ErrExit,
		}),
	}
	if envCfg.Timeout > 0 {
		limits := interp.DefaultLimits()
		limits.Timeout = envCfg.Timeout
		opts = append(opts, interp.WithLimits(limits))
	}

	src, name, err := readSource()
	if err != nil {
		return err
	}

	runOnce := func() error {
		return runSource(ctx, fs, cwd, reg, src, name, opts)
	}

	if *watch != "" {
		return watchAndRun(ctx, *watch, runOnce)
	}
	return runOnce()
}

func buildFS(hostDir string) (vfs.FS, string) {
	if hostDir != "" {
		return vfs.NewHostFS(hostDir), "/"
	}
	return vfs.NewMemFS(), "/"
}

func readSource() (src, name string, err error) {
	if *cCmd != "" {
		return *cCmd, "-c", nil
	}
	if *scriptArg != "" {
		data, err := os.ReadFile(*scriptArg)
		if err != nil {
			return "", "", fmt.Errorf("could not open %s: %w", *scriptArg, err)
		}
		return string(data), *scriptArg, nil
	}
	if isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Fprint(os.Stdout, "$ ")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", "", err
	}
	return string(data), "<stdin>", nil
}

func runSource(ctx context.Context, fs vfs.FS, cwd string, reg *command.Registry, src, name string, opts []interp.Option) error {
	p := syntax.NewParser()
	file, err := p.ParseString(src, name)
	if err != nil {
		return err
	}
	s := interp.New(fs, reg, cwd, opts...)
	res, err := s.Run(ctx, file)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return interp.ExitStatus(res.ExitCode)
	}
	return nil
}

func watchAndRun(ctx context.Context, path string, runOnce func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(path); err != nil {
		return err
	}

	if err := runOnce(); err != nil {
		printErr(err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := runOnce(); err != nil {
				printErr(err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			printErr(err)
		}
	}
}

func printErr(err error) {
	if strings.TrimSpace(err.Error()) == "" {
		return
	}
	red := color.New(color.FgRed)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		red.Fprintln(os.Stderr, err)
		return
	}
	fmt.Fprintln(os.Stderr, err)
}
