package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cesargomez89/cuesplit/internal/constants"
)

// Stage names reported as the failing command of a pair.
const (
	StageConvert  = "convert"
	StageEncoding = "encoding"
	StageSplit    = "split"
	StageTag      = "tag"
	StageOptimize = "optimize"
)

// StageError is a failed pipeline stage. It aborts the pair it belongs to
// and nothing else.
type StageError struct {
	Stage    string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *StageError) Error() string {
	detail := truncate(strings.TrimSpace(e.Stderr), constants.MaxStderrInMessage)
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}

	var msg string
	if e.ExitCode != 0 {
		msg = fmt.Sprintf("%s failed with exit code %d", e.Stage, e.ExitCode)
	} else {
		msg = e.Stage + " failed"
	}
	if detail != "" {
		msg += ": " + detail
	}
	return msg
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// truncate keeps the tail of s, where tools usually print the actual error.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	start := len(s) - max
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return "..." + s[start:]
}
