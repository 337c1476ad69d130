package joblog

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cesargomez89/cuesplit/internal/command"
)

func TestCreateAndPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	path, err := Create(dir, 7)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if path != filepath.Join(dir, "7.log") {
		t.Errorf("Expected %s, got %s", filepath.Join(dir, "7.log"), path)
	}
	content, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if content != "" {
		t.Errorf("Expected empty log, got %q", content)
	}
}

func TestPrintfFormat(t *testing.T) {
	path, err := Create(t.TempDir(), 3)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	l, err := Open(path, 3)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	l.now = func() time.Time { return time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC) }

	l.Printf("Processing %s", "/music/album")
	l.Scope("[Pair 1/2]").Printf("converting")
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	content, _ := Read(path)
	want := "[2024-05-01 10:20:30] [3] Processing /music/album\n" +
		"[2024-05-01 10:20:30] [3] [Pair 1/2] converting\n"
	if content != want {
		t.Errorf("Unexpected log content:\n%q\nwant:\n%q", content, want)
	}
}

func TestCommandBlock(t *testing.T) {
	path, _ := Create(t.TempDir(), 1)
	l, err := Open(path, 1)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	l.Command(command.Cmd{Name: "shnsplit", Args: []string{"-f", "a.cue"}}, command.Result{Stderr: "bad cue", ExitCode: 2})
	l.Close()

	content, _ := Read(path)
	want := "\n$ shnsplit -f a.cue\nbad cue\n[Exit code: 2]\n"
	if content != want {
		t.Errorf("Unexpected command block %q, want %q", content, want)
	}
}

func TestConcurrentWritesDoNotInterleave(t *testing.T) {
	path, _ := Create(t.TempDir(), 9)
	l, err := Open(path, 9)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := l.Scope(fmt.Sprintf("[Pair %d/8]", i+1))
			for j := 0; j < 50; j++ {
				s.Printf("line %d", j)
				s.Command(command.Cmd{Name: "ffmpeg"}, command.Result{Stdout: "ok"})
			}
		}(i)
	}
	wg.Wait()
	l.Close()

	content, _ := Read(path)
	line := regexp.MustCompile(`^(\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] \[9\] \[Pair \d/8\] line \d+|\[Pair \d/8\] \$ ffmpeg|ok|\[Exit code: 0\]|)$`)
	for _, ln := range strings.Split(content, "\n") {
		if !line.MatchString(ln) {
			t.Fatalf("Found interleaved line %q", ln)
		}
	}
	if got := strings.Count(content, "[Exit code: 0]"); got != 400 {
		t.Errorf("Expected 400 command blocks, got %d", got)
	}
}

func TestWriteAfterClose(t *testing.T) {
	path, _ := Create(t.TempDir(), 2)
	l, _ := Open(path, 2)
	l.Close()
	l.Printf("ignored")
	if err := l.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
}
