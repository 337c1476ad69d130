package charset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cesargomez89/cuesplit/internal/command"
)

type fakeRunner struct {
	calls []command.Cmd
	run   func(cmd command.Cmd) (command.Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, cmd command.Cmd) (command.Result, error) {
	f.calls = append(f.calls, cmd)
	if f.run == nil {
		return command.Result{}, nil
	}
	return f.run(cmd)
}

type recordLog struct {
	lines    []string
	commands []command.Cmd
}

func (r *recordLog) Printf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *recordLog) Command(cmd command.Cmd, res command.Result) {
	r.commands = append(r.commands, cmd)
}

func writeCue(t *testing.T, dir string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, "album.cue")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write cue: %v", err)
	}
	return path
}

func TestEnsureUTF8AlreadyValid(t *testing.T) {
	dir := t.TempDir()
	cuePath := writeCue(t, dir, []byte("TITLE \"Café\"\nFILE \"a.flac\" WAVE\n"))
	runner := &fakeRunner{}

	res, err := NewFixer(runner, "uchardet").EnsureUTF8(context.Background(), cuePath, dir, &recordLog{})
	if err != nil {
		t.Fatalf("EnsureUTF8 failed: %v", err)
	}
	if res.Path != cuePath || res.Converted {
		t.Errorf("Expected original path without conversion, got %+v", res)
	}
	if len(runner.calls) != 0 {
		t.Errorf("Expected detector not to run, got %d calls", len(runner.calls))
	}
}

func TestEnsureUTF8StripsBOM(t *testing.T) {
	dir := t.TempDir()
	scratch := t.TempDir()
	cuePath := writeCue(t, dir, []byte("\xEF\xBB\xBFFILE \"a.flac\" WAVE\n"))

	res, err := NewFixer(&fakeRunner{}, "uchardet").EnsureUTF8(context.Background(), cuePath, scratch, &recordLog{})
	if err != nil {
		t.Fatalf("EnsureUTF8 failed: %v", err)
	}
	data, _ := os.ReadFile(res.Path)
	if string(data) != "FILE \"a.flac\" WAVE\n" {
		t.Errorf("Expected BOM to be stripped, got %q", data)
	}
}

func TestEnsureUTF8ConvertsLegacy(t *testing.T) {
	dir := t.TempDir()
	scratch := t.TempDir()
	cuePath := writeCue(t, dir, []byte("TITLE \"Caf\xe9\"\nFILE \"a.flac\" WAVE\n"))
	runner := &fakeRunner{run: func(cmd command.Cmd) (command.Result, error) {
		return command.Result{Stdout: "WINDOWS-1252\n"}, nil
	}}
	log := &recordLog{}

	res, err := NewFixer(runner, "uchardet").EnsureUTF8(context.Background(), cuePath, scratch, log)
	if err != nil {
		t.Fatalf("EnsureUTF8 failed: %v", err)
	}
	if res.Path != filepath.Join(scratch, "album.utf8.cue") || !res.Converted {
		t.Errorf("Unexpected result %+v", res)
	}
	data, _ := os.ReadFile(res.Path)
	if string(data) != "TITLE \"Café\"\nFILE \"a.flac\" WAVE\n" {
		t.Errorf("Unexpected converted content %q", data)
	}
	if len(runner.calls) != 1 || runner.calls[0].Args[0] != cuePath {
		t.Errorf("Expected detector to run on the cue sheet, got %+v", runner.calls)
	}
	if len(log.commands) != 1 {
		t.Errorf("Expected detector invocation to be logged")
	}
}

func TestEnsureUTF8DetectorFailure(t *testing.T) {
	dir := t.TempDir()
	cuePath := writeCue(t, dir, []byte("TITLE \"\xff\xfe\"\n"))
	runner := &fakeRunner{run: func(cmd command.Cmd) (command.Result, error) {
		return command.Result{Stderr: "no such file", ExitCode: 1}, errors.New("exit status 1")
	}}

	_, err := NewFixer(runner, "uchardet").EnsureUTF8(context.Background(), cuePath, dir, &recordLog{})
	var de *DetectorError
	if !errors.As(err, &de) || de.ExitCode != 1 || de.Stderr != "no such file" {
		t.Errorf("Expected DetectorError with exit code 1, got %v", err)
	}
}

func TestEnsureUTF8UnknownCharset(t *testing.T) {
	dir := t.TempDir()
	cuePath := writeCue(t, dir, []byte("TITLE \"\x81\x82\"\n"))
	runner := &fakeRunner{run: func(cmd command.Cmd) (command.Result, error) {
		return command.Result{Stdout: "unknown\n"}, nil
	}}

	_, err := NewFixer(runner, "uchardet").EnsureUTF8(context.Background(), cuePath, dir, &recordLog{})
	if !errors.Is(err, ErrUndetectable) {
		t.Errorf("Expected ErrUndetectable, got %v", err)
	}
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"WINDOWS-1251", "ISO-8859-1", "SHIFT_JIS", "UTF-16LE", "KOI8-R"} {
		if _, err := Lookup(name); err != nil {
			t.Errorf("Lookup(%q) failed: %v", name, err)
		}
	}
	if _, err := Lookup("no-such-charset"); !errors.Is(err, ErrUndetectable) {
		t.Errorf("Expected ErrUndetectable for unknown charset, got %v", err)
	}
}
