// Package joblog writes the append-only log file kept for every job.
package joblog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cesargomez89/cuesplit/internal/command"
	"github.com/cesargomez89/cuesplit/internal/constants"
	"github.com/cesargomez89/cuesplit/internal/storage"
)

// Path returns the log file location for a job id.
func Path(dir string, jobID int64) string {
	return filepath.Join(dir, strconv.FormatInt(jobID, 10)+constants.ExtLog)
}

// Create makes an empty log file for a newly submitted job.
func Create(dir string, jobID int64) (string, error) {
	if err := storage.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("failed to create log dir: %w", err)
	}
	path := Path(dir, jobID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, constants.FilePermissions)
	if err != nil {
		return "", fmt.Errorf("failed to create job log: %w", err)
	}
	return path, f.Close()
}

// Read returns the full contents of a job log.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Log appends timestamped lines and command blocks to one job's file.
// Every write holds the mutex, so concurrent pairs never interleave
// inside a line or a command block.
type Log struct {
	mu    sync.Mutex
	f     *os.File
	jobID string
	now   func() time.Time
}

// Open opens an existing job log for appending.
func Open(path string, jobID int64) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, constants.FilePermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to open job log: %w", err)
	}
	return &Log{
		f:     f,
		jobID: strconv.FormatInt(jobID, 10),
		now:   time.Now,
	}, nil
}

// Printf appends one "[time] [job] message" line.
func (l *Log) Printf(format string, args ...any) {
	l.write("", fmt.Sprintf(format, args...))
}

// Command appends the command line, its captured output and exit code as
// a single block.
func (l *Log) Command(cmd command.Cmd, res command.Result) {
	l.writeCommand("", cmd, res)
}

// Scope returns a writer that prefixes every line, e.g. "[Pair 2/3]".
func (l *Log) Scope(prefix string) *Scope {
	return &Scope{log: l, prefix: prefix}
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

func (l *Log) write(prefix, msg string) {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
		b.WriteString(l.header(prefix))
		b.WriteString(line)
		b.WriteByte('\n')
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f != nil {
		_, _ = l.f.WriteString(b.String())
	}
}

func (l *Log) writeCommand(prefix string, cmd command.Cmd, res command.Result) {
	var b strings.Builder
	b.WriteString("\n")
	if prefix != "" {
		b.WriteString(prefix + " ")
	}
	b.WriteString("$ " + cmd.String() + "\n")
	writeOutput(&b, res.Stdout)
	writeOutput(&b, res.Stderr)
	fmt.Fprintf(&b, "[Exit code: %d]\n", res.ExitCode)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f != nil {
		_, _ = l.f.WriteString(b.String())
	}
}

func (l *Log) header(prefix string) string {
	h := "[" + l.now().Format(constants.LogTimeFormat) + "] [" + l.jobID + "] "
	if prefix != "" {
		h += prefix + " "
	}
	return h
}

func writeOutput(b *strings.Builder, out string) {
	if out == "" {
		return
	}
	b.WriteString(out)
	if !strings.HasSuffix(out, "\n") {
		b.WriteByte('\n')
	}
}

// Scope is a prefixed view of a Log.
type Scope struct {
	log    *Log
	prefix string
}

func (s *Scope) Printf(format string, args ...any) {
	s.log.write(s.prefix, fmt.Sprintf(format, args...))
}

func (s *Scope) Command(cmd command.Cmd, res command.Result) {
	s.log.writeCommand(s.prefix, cmd, res)
}
