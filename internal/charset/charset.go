// Package charset normalizes CUE sheets to UTF-8 before they reach the
// splitter and tag writer.
package charset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/cesargomez89/cuesplit/internal/command"
	"github.com/cesargomez89/cuesplit/internal/constants"
	"github.com/cesargomez89/cuesplit/internal/storage"
)

var ErrUndetectable = errors.New("cannot determine cue sheet encoding")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Logger receives progress lines and detector invocations.
type Logger interface {
	Printf(format string, args ...any)
	Command(cmd command.Cmd, res command.Result)
}

// DetectorError reports a failed detector invocation.
type DetectorError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("encoding detector exited with code %d: %v", e.ExitCode, e.Err)
}

func (e *DetectorError) Unwrap() error {
	return e.Err
}

// Result tells which file downstream tools should read.
type Result struct {
	Path      string
	Charset   string
	Converted bool
}

// Fixer converts legacy-encoded CUE sheets using an external detector.
type Fixer struct {
	runner      command.Runner
	detectorBin string
}

func NewFixer(runner command.Runner, detectorBin string) *Fixer {
	return &Fixer{runner: runner, detectorBin: detectorBin}
}

// EnsureUTF8 returns cuePath when it already holds UTF-8 without a BOM.
// Otherwise it writes a UTF-8 copy into scratchDir and returns that path.
// The detector only runs for sheets that are not valid UTF-8.
func (f *Fixer) EnsureUTF8(ctx context.Context, cuePath, scratchDir string, log Logger) (Result, error) {
	data, err := os.ReadFile(cuePath)
	if err != nil {
		return Result{}, fmt.Errorf("read cue sheet: %w", err)
	}

	if utf8.Valid(data) {
		if !bytes.HasPrefix(data, utf8BOM) {
			log.Printf("CUE sheet is already UTF-8")
			return Result{Path: cuePath, Charset: "UTF-8"}, nil
		}
		out, err := write(cuePath, scratchDir, bytes.TrimPrefix(data, utf8BOM))
		if err != nil {
			return Result{}, err
		}
		log.Printf("Stripped UTF-8 byte order mark into %s", filepath.Base(out))
		return Result{Path: out, Charset: "UTF-8", Converted: true}, nil
	}

	name, err := f.detect(ctx, cuePath, log)
	if err != nil {
		return Result{}, err
	}
	enc, err := Lookup(name)
	if err != nil {
		return Result{}, err
	}
	log.Printf("CUE sheet encoding detected: %s", name)

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return Result{}, fmt.Errorf("decode %s cue sheet: %w", name, err)
	}
	out, err := write(cuePath, scratchDir, bytes.TrimPrefix(decoded, utf8BOM))
	if err != nil {
		return Result{}, err
	}
	log.Printf("Converted CUE sheet from %s to UTF-8: %s", name, filepath.Base(out))
	return Result{Path: out, Charset: name, Converted: true}, nil
}

func (f *Fixer) detect(ctx context.Context, cuePath string, log Logger) (string, error) {
	cmd := command.Cmd{Name: f.detectorBin, Args: []string{cuePath}}
	res, err := f.runner.Run(ctx, cmd)
	log.Command(cmd, res)
	if err != nil || res.ExitCode != 0 {
		if err == nil {
			err = ErrUndetectable
		}
		return "", &DetectorError{ExitCode: res.ExitCode, Stderr: res.Stderr, Err: err}
	}

	name := strings.TrimSpace(res.Stdout)
	if name == "" || strings.EqualFold(name, "unknown") {
		return "", fmt.Errorf("%w: detector returned %q", ErrUndetectable, name)
	}
	return name, nil
}

// Lookup resolves a charset name using WHATWG labels first and the IANA
// registry second.
func Lookup(name string) (encoding.Encoding, error) {
	if enc, err := htmlindex.Get(name); err == nil && enc != nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: unsupported charset %q", ErrUndetectable, name)
	}
	return enc, nil
}

func write(cuePath, scratchDir string, data []byte) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(cuePath), filepath.Ext(cuePath))
	out := filepath.Join(scratchDir, stem+constants.UTF8CueSuffix)
	if err := storage.WriteFile(out, data); err != nil {
		return "", fmt.Errorf("write utf-8 cue sheet: %w", err)
	}
	return out, nil
}
