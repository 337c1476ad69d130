package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/cesargomez89/cuesplit/internal/command"
	"github.com/cesargomez89/cuesplit/internal/constants"
	"github.com/cesargomez89/cuesplit/internal/cue"
	"github.com/cesargomez89/cuesplit/internal/tagging"
)

// Tagger applies CUE metadata to the split tracks.
type Tagger interface {
	Tag(ctx context.Context, cuePath string, tracks []string, log Logger) error
}

// CuetagTagger runs the external cuetag script once for all tracks.
type CuetagTagger struct {
	runner command.Runner
	bin    string
}

func NewCuetagTagger(runner command.Runner, bin string) *CuetagTagger {
	return &CuetagTagger{runner: runner, bin: bin}
}

func (t *CuetagTagger) Tag(ctx context.Context, cuePath string, tracks []string, log Logger) error {
	cmd := command.Cmd{
		Name: t.bin,
		Args: append([]string{cuePath}, tracks...),
		Env:  utf8Env,
	}
	return runLogged(ctx, t.runner, StageTag, cmd, log)
}

// NativeTagger writes Vorbis comments in-process.
type NativeTagger struct {
	writer *tagging.Writer
}

func NewNativeTagger() *NativeTagger {
	return &NativeTagger{writer: tagging.NewWriter()}
}

func (t *NativeTagger) Tag(ctx context.Context, cuePath string, tracks []string, log Logger) error {
	data, err := os.ReadFile(cuePath)
	if err != nil {
		return &StageError{Stage: StageTag, Err: err}
	}
	sheet, err := cue.Parse(data)
	if err != nil {
		return &StageError{Stage: StageTag, Err: err}
	}
	if err := t.writer.TagTracks(sheet, tracks); err != nil {
		return &StageError{Stage: StageTag, Err: err}
	}
	log.Printf("Wrote tags to %d track(s)", len(tracks))
	return nil
}

// NewTagger picks the tag writer named in the configuration.
func NewTagger(name string, runner command.Runner, cuetagBin string) (Tagger, error) {
	switch name {
	case constants.TaggerCuetag:
		return NewCuetagTagger(runner, cuetagBin), nil
	case constants.TaggerNative:
		return NewNativeTagger(), nil
	default:
		return nil, fmt.Errorf("unknown tagger: %q", name)
	}
}
