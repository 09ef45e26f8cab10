package command

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Builtins returns a registry of pure reference commands. They exist so
// integration tests (and callers wiring up their own sandbox) have
// something concrete to register under the Command contract; they are not a
// claim of utility-suite completeness. Anything resembling awk, sed, grep,
// jq, curl, or sqlite3 stays out of scope.
func Builtins() *Registry {
	r := NewRegistry()
	r.Register("yes", CommandFunc(yesCmd))
	r.Register("seq", CommandFunc(seqCmd))
	r.Register("tr", CommandFunc(trCmd))
	r.Register("wc", CommandFunc(wcCmd))
	r.Register("rev", CommandFunc(revCmd))
	return r
}

// yesCmd writes its argument (or "y") followed by a newline, repeatedly.
// Since there is no real terminal to interrupt it, it is capped at a fixed
// number of repetitions rather than looping forever.
const yesMaxLines = 10000

func yesCmd(_ context.Context, _ Context, argv []string) (Result, error) {
	word := "y"
	if len(argv) > 1 {
		word = strings.Join(argv[1:], " ")
	}
	var sb strings.Builder
	for i := 0; i < yesMaxLines; i++ {
		sb.WriteString(word)
		sb.WriteByte('\n')
	}
	return Result{Stdout: sb.String()}, nil
}

// seqCmd implements the common forms: seq LAST, seq FIRST LAST,
// seq FIRST INCR LAST.
func seqCmd(_ context.Context, _ Context, argv []string) (Result, error) {
	args := argv[1:]
	var first, incr, last float64 = 1, 1, 0
	var err error
	switch len(args) {
	case 1:
		last, err = strconv.ParseFloat(args[0], 64)
	case 2:
		first, err = strconv.ParseFloat(args[0], 64)
		if err == nil {
			last, err = strconv.ParseFloat(args[1], 64)
		}
	case 3:
		first, err = strconv.ParseFloat(args[0], 64)
		if err == nil {
			incr, err = strconv.ParseFloat(args[1], 64)
		}
		if err == nil {
			last, err = strconv.ParseFloat(args[2], 64)
		}
	default:
		return Result{Stderr: "seq: usage: seq [first [incr]] last\n", ExitCode: 1}, nil
	}
	if err != nil {
		return Result{Stderr: "seq: invalid argument\n", ExitCode: 1}, nil
	}
	if incr == 0 {
		return Result{Stderr: "seq: increment must not be zero\n", ExitCode: 1}, nil
	}
	var sb strings.Builder
	if incr > 0 {
		for v := first; v <= last; v += incr {
			writeSeqValue(&sb, v)
		}
	} else {
		for v := first; v >= last; v += incr {
			writeSeqValue(&sb, v)
		}
	}
	return Result{Stdout: sb.String()}, nil
}

func writeSeqValue(sb *strings.Builder, v float64) {
	if v == float64(int64(v)) {
		fmt.Fprintf(sb, "%d\n", int64(v))
	} else {
		fmt.Fprintf(sb, "%g\n", v)
	}
}

// trCmd implements the two common forms: `tr SET1 SET2` (translate) and
// `tr -d SET1` (delete).
func trCmd(_ context.Context, cctx Context, argv []string) (Result, error) {
	args := argv[1:]
	deleteMode := false
	if len(args) > 0 && args[0] == "-d" {
		deleteMode = true
		args = args[1:]
	}
	if (deleteMode && len(args) != 1) || (!deleteMode && len(args) != 2) {
		return Result{Stderr: "tr: invalid arguments\n", ExitCode: 1}, nil
	}
	input := readAllStdin(cctx)
	set1 := expandTrSet(args[0])
	if deleteMode {
		var sb strings.Builder
		del := map[rune]bool{}
		for _, r := range set1 {
			del[r] = true
		}
		for _, r := range input {
			if !del[r] {
				sb.WriteRune(r)
			}
		}
		return Result{Stdout: sb.String()}, nil
	}
	set2 := expandTrSet(args[1])
	if len(set2) == 0 {
		return Result{Stderr: "tr: SET2 must not be empty\n", ExitCode: 1}, nil
	}
	mapping := map[rune]rune{}
	for i, r := range set1 {
		rep := set2[len(set2)-1]
		if i < len(set2) {
			rep = set2[i]
		}
		mapping[r] = rep
	}
	var sb strings.Builder
	for _, r := range input {
		if rep, ok := mapping[r]; ok {
			sb.WriteRune(rep)
		} else {
			sb.WriteRune(r)
		}
	}
	return Result{Stdout: sb.String()}, nil
}

// expandTrSet expands simple a-z range notation; it does not support the
// full POSIX bracket-class syntax.
func expandTrSet(s string) []rune {
	runes := []rune(s)
	var out []rune
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && runes[i+1] == '-' && runes[i+2] > runes[i] {
			for c := runes[i]; c <= runes[i+2]; c++ {
				out = append(out, c)
			}
			i += 2
			continue
		}
		out = append(out, runes[i])
	}
	return out
}

// wcCmd supports -l (lines), -w (words), -c (bytes), defaulting to all
// three.
func wcCmd(_ context.Context, cctx Context, argv []string) (Result, error) {
	args := argv[1:]
	showLines, showWords, showBytes := false, false, false
	for _, a := range args {
		switch a {
		case "-l":
			showLines = true
		case "-w":
			showWords = true
		case "-c":
			showBytes = true
		}
	}
	if !showLines && !showWords && !showBytes {
		showLines, showWords, showBytes = true, true, true
	}
	input := readAllStdin(cctx)
	lines := strings.Count(input, "\n")
	words := len(strings.Fields(input))
	bytes := len(input)
	var parts []string
	if showLines {
		parts = append(parts, fmt.Sprintf("%7d", lines))
	}
	if showWords {
		parts = append(parts, fmt.Sprintf("%7d", words))
	}
	if showBytes {
		parts = append(parts, fmt.Sprintf("%7d", bytes))
	}
	return Result{Stdout: strings.Join(parts, "") + "\n"}, nil
}

// revCmd reverses each line of input.
func revCmd(_ context.Context, cctx Context, argv []string) (Result, error) {
	input := readAllStdin(cctx)
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var sb strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		runes := []rune(line)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		sb.WriteString(string(runes))
		sb.WriteByte('\n')
	}
	return Result{Stdout: sb.String()}, nil
}

func readAllStdin(cctx Context) string {
	if cctx.Stdin == nil {
		return ""
	}
	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := cctx.Stdin.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	return sb.String()
}
