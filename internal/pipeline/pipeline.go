// Package pipeline turns one CUE sheet and audio image pair into encoded
// tracks by driving external tools stage by stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/cesargomez89/cuesplit/internal/charset"
	"github.com/cesargomez89/cuesplit/internal/command"
	"github.com/cesargomez89/cuesplit/internal/constants"
	"github.com/cesargomez89/cuesplit/internal/cue"
	"github.com/cesargomez89/cuesplit/internal/domain"
	"github.com/cesargomez89/cuesplit/internal/storage"
	"github.com/cesargomez89/cuesplit/internal/tagging"
)

// shnsplit needs a UTF-8 locale to write accented titles into file names.
var utf8Env = []string{"LC_ALL=C.UTF-8", "LANG=C.UTF-8"}

// Logger receives progress lines and command transcripts for one pair.
type Logger interface {
	Printf(format string, args ...any)
	Command(cmd command.Cmd, res command.Result)
}

// Config holds the collaborators a Processor drives.
type Config struct {
	Runner      command.Runner
	Encoder     Encoder
	Tagger      Tagger
	Fixer       *charset.Fixer
	FFmpegBin   string
	ShnsplitBin string
}

// Processor runs convert, encoding, split, tag and optimize for one pair.
type Processor struct {
	runner   command.Runner
	encoder  Encoder
	tagger   Tagger
	fixer    *charset.Fixer
	ffmpeg   string
	shnsplit string
}

func NewProcessor(cfg Config) *Processor {
	return &Processor{
		runner:   cfg.Runner,
		encoder:  cfg.Encoder,
		tagger:   cfg.Tagger,
		fixer:    cfg.Fixer,
		ffmpeg:   cfg.FFmpegBin,
		shnsplit: cfg.ShnsplitBin,
	}
}

// Result is the verdict for one pair plus the tracks it produced.
type Result struct {
	domain.PairResult
	Outputs []string
}

// Process runs the pipeline. The first failing stage aborts the pair; the
// scratch directory is removed on every path.
func (p *Processor) Process(ctx context.Context, pair domain.Pair, log Logger) Result {
	outputs, err := p.process(ctx, pair, log)
	res := Result{
		PairResult: domain.PairResult{Status: domain.PairStatusSuccess, Cue: pair.CuePath},
		Outputs:    outputs,
	}
	if err != nil {
		res.Status = domain.PairStatusError
		res.Message = err.Error()
		var se *StageError
		if errors.As(err, &se) {
			res.Command = se.Stage
		}
		log.Printf("Failed: %s", res.Message)
		return res
	}
	log.Printf("Finished: %d track(s) written", len(outputs))
	return res
}

func (p *Processor) process(ctx context.Context, pair domain.Pair, log Logger) ([]string, error) {
	albumDir := filepath.Dir(pair.CuePath)
	scratch := filepath.Join(albumDir, constants.ScratchDirPrefix+uuid.NewString())
	if err := storage.EnsureDir(scratch); err != nil {
		return nil, &StageError{Stage: StageConvert, Err: fmt.Errorf("create scratch dir: %w", err)}
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			log.Printf("Failed to remove scratch dir %s: %v", scratch, err)
		}
	}()

	stem := strings.TrimSuffix(filepath.Base(pair.CuePath), filepath.Ext(pair.CuePath))
	wav := filepath.Join(scratch, stem+constants.ExtWAV)

	log.Printf("Converting %s to WAV", filepath.Base(pair.ImagePath))
	if err := p.convert(ctx, pair.ImagePath, wav, log); err != nil {
		return nil, err
	}

	fixed, err := p.fixer.EnsureUTF8(ctx, pair.CuePath, scratch, log)
	if err != nil {
		se := &StageError{Stage: StageEncoding, Err: err}
		var de *charset.DetectorError
		if errors.As(err, &de) {
			se.ExitCode = de.ExitCode
			se.Stderr = de.Stderr
		}
		return nil, se
	}

	log.Printf("Splitting %s", filepath.Base(wav))
	tracks, err := p.split(ctx, fixed.Path, wav, filepath.Join(scratch, "split"), log)
	if err != nil {
		return nil, err
	}
	log.Printf("Split produced %d track(s)", len(tracks))

	log.Printf("Tagging tracks")
	if err := p.tagger.Tag(ctx, fixed.Path, tracks, log); err != nil {
		return nil, err
	}

	log.Printf("Encoding %d track(s) to %s", len(tracks), p.encoder.Format())
	return p.optimize(ctx, tracks, pair.CoverArtPath, filepath.Join(scratch, "out"), albumDir, log)
}

func (p *Processor) convert(ctx context.Context, image, wav string, log Logger) error {
	cmd := command.Cmd{
		Name: p.ffmpeg,
		Args: []string{
			"-hide_banner", "-nostdin", "-y",
			"-i", image,
			"-acodec", "pcm_s16le", "-ar", "44100", "-ac", "2",
			wav,
		},
	}
	return runLogged(ctx, p.runner, StageConvert, cmd, log)
}

// split cuts the WAV into FLAC tracks named "NN. Title.flac". Numbering
// starts at the sheet's first track so split parts keep their numbers.
func (p *Processor) split(ctx context.Context, cuePath, wav, outDir string, log Logger) ([]string, error) {
	data, err := os.ReadFile(cuePath)
	if err != nil {
		return nil, &StageError{Stage: StageSplit, Err: err}
	}
	sheet, err := cue.Parse(data)
	if err != nil {
		return nil, &StageError{Stage: StageSplit, Err: err}
	}
	if err := storage.EnsureDir(outDir); err != nil {
		return nil, &StageError{Stage: StageSplit, Err: err}
	}

	cmd := command.Cmd{
		Name: p.shnsplit,
		Args: []string{
			"-d", outDir,
			"-f", cuePath,
			"-O", "never",
			"-o", "flac flac -" + strconv.Itoa(constants.FLACCompressionLevel) + " -o %f -",
			"-c", strconv.Itoa(sheet.FirstTrack()),
			"-t", "%n. %t",
			wav,
		},
		Env: utf8Env,
	}
	if err := runLogged(ctx, p.runner, StageSplit, cmd, log); err != nil {
		return nil, err
	}

	tracks, err := listTracks(outDir, constants.ExtFLAC)
	if err != nil {
		return nil, &StageError{Stage: StageSplit, Err: err}
	}

	// Pregap audio before the first track comes out as an extra file that
	// no TRACK entry describes.
	kept := tracks[:0]
	for _, t := range tracks {
		if n, ok := tagging.TrackNumber(t); ok {
			if _, found := sheet.Track(n); found {
				kept = append(kept, t)
				continue
			}
		}
		log.Printf("Discarding %s: not described by the CUE sheet", filepath.Base(t))
	}
	if len(kept) == 0 {
		return nil, &StageError{Stage: StageSplit, Err: errors.New("no tracks were produced")}
	}
	return kept, nil
}

// optimize re-encodes every track, embeds the cover where the container
// allows it and moves the results next to the CUE sheet.
func (p *Processor) optimize(ctx context.Context, tracks []string, cover, workDir, destDir string, log Logger) ([]string, error) {
	if err := storage.EnsureDir(workDir); err != nil {
		return nil, &StageError{Stage: StageOptimize, Err: err}
	}

	embed := cover != "" && tagging.CanEmbed(p.encoder.Ext())
	if cover != "" && !embed {
		log.Printf("Cover art is not embedded into %s output", p.encoder.Format())
	}

	encoded := make([]string, 0, len(tracks))
	for _, src := range tracks {
		name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + p.encoder.Ext()
		dst := filepath.Join(workDir, name)

		args := []string{"-hide_banner", "-nostdin", "-y", "-i", src, "-map", "0:a", "-map_metadata", "0"}
		args = append(args, p.encoder.Args()...)
		args = append(args, dst)
		if err := runLogged(ctx, p.runner, StageOptimize, command.Cmd{Name: p.ffmpeg, Args: args}, log); err != nil {
			return nil, err
		}

		if embed {
			if err := tagging.EmbedCover(dst, cover); err != nil {
				if !errors.Is(err, tagging.ErrUnsupportedCover) {
					return nil, &StageError{Stage: StageOptimize, Err: fmt.Errorf("embed cover into %s: %w", name, err)}
				}
				log.Printf("Skipping cover for %s: %v", name, err)
				embed = false
			}
		}
		encoded = append(encoded, dst)
	}

	outputs := make([]string, 0, len(encoded))
	for _, src := range encoded {
		dst := filepath.Join(destDir, filepath.Base(src))
		if err := storage.MoveFile(src, dst); err != nil {
			return outputs, &StageError{Stage: StageOptimize, Err: err}
		}
		outputs = append(outputs, dst)
	}
	return outputs, nil
}

func runLogged(ctx context.Context, runner command.Runner, stage string, cmd command.Cmd, log Logger) error {
	res, err := runner.Run(ctx, cmd)
	log.Command(cmd, res)
	if err != nil || res.ExitCode != 0 {
		return &StageError{Stage: stage, ExitCode: res.ExitCode, Stderr: res.Stderr, Err: err}
	}
	return nil
}

func listTracks(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var tracks []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			tracks = append(tracks, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(tracks)
	return tracks, nil
}
