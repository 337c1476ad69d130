package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cesargomez89/cuesplit/internal/discovery"
	"github.com/cesargomez89/cuesplit/internal/domain"
	"github.com/cesargomez89/cuesplit/internal/joblog"
	"github.com/cesargomez89/cuesplit/internal/logger"
	"github.com/cesargomez89/cuesplit/internal/pipeline"
	"github.com/cesargomez89/cuesplit/internal/storage"
	"github.com/cesargomez89/cuesplit/internal/worker"
)

// PairProcessor runs the full pipeline for one pair.
type PairProcessor interface {
	Process(ctx context.Context, pair domain.Pair, log pipeline.Logger) pipeline.Result
}

// Orchestrator runs one job: discovery, bounded parallel pair processing,
// aggregation and optional cleanup of consumed sources.
type Orchestrator struct {
	Processor   PairProcessor
	Logger      *logger.Logger
	PairThreads int
	Cleanup     bool
}

func NewOrchestrator(processor PairProcessor, pairThreads int, cleanup bool, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Default()
	}
	return &Orchestrator{
		Processor:   processor,
		Logger:      log.WithComponent("orchestrator"),
		PairThreads: pairThreads,
		Cleanup:     cleanup,
	}
}

// Run processes the album behind job and returns its terminal outcome.
func (o *Orchestrator) Run(ctx context.Context, job domain.Job) domain.Outcome {
	log := o.Logger.WithJob(job.ID, job.Path)

	jl, err := joblog.Open(job.LogPath, job.ID)
	if err != nil {
		log.Error("Failed to open job log", "error", err)
		return domain.Outcome{Status: domain.JobStatusError, Message: err.Error()}
	}
	defer jl.Close()

	jl.Printf("Processing %s", job.Path)

	found, err := discovery.Discover(job.Path)
	if err != nil {
		jl.Printf("Discovery failed: %v", err)
		log.Warn("Discovery failed", "error", err)
		return domain.Outcome{Status: domain.JobStatusError, Message: err.Error()}
	}
	for _, d := range found.Dropped {
		jl.Printf("Skipping %s: %s", d.CuePath, d.Reason)
	}
	for _, set := range found.SplitSets {
		jl.Printf("Split %s into %d single-file sheet(s)", filepath.Base(set.OriginalCuePath), len(set.Parts))
		for _, c := range set.Consumed {
			jl.Printf("Part %s already processed, audio file is gone", filepath.Base(c))
		}
	}
	if found.CoverArtPath != "" {
		jl.Printf("Using cover art %s", found.CoverArtPath)
	}

	results := o.processPairs(ctx, found.Pairs, jl)

	details := make([]domain.PairResult, len(results))
	for i, r := range results {
		details[i] = r.PairResult
		details[i].Log = job.LogPath
	}
	out := domain.Aggregate(details)

	if o.Cleanup && out.Status != domain.JobStatusError {
		o.cleanup(found, results, jl)
	}

	jl.Printf("Job finished: %s (%s)", out.Status, out.Message)
	log.Info("Job finished", "status", out.Status, "message", out.Message, "pairs", len(details))
	return out
}

// processPairs blocks until every pair has a verdict. Results keep
// discovery order regardless of completion order.
func (o *Orchestrator) processPairs(ctx context.Context, pairs []domain.Pair, jl *joblog.Log) []pipeline.Result {
	n := len(pairs)
	if n == 0 {
		jl.Printf("No cue/image pairs found")
		return nil
	}
	jl.Printf("Found %d pair(s)", n)

	results := make([]pipeline.Result, n)
	worker.RunBounded(o.PairThreads, n, func(i int) {
		pair := pairs[i]
		scope := jl.Scope(fmt.Sprintf("[Pair %d/%d]", i+1, n))
		defer func() {
			if r := recover(); r != nil {
				scope.Printf("Panic: %v", r)
				results[i] = pipeline.Result{PairResult: domain.PairResult{
					Status:  domain.PairStatusError,
					Message: fmt.Sprintf("internal error: %v", r),
					Cue:     pair.CuePath,
				}}
			}
		}()

		if pair.Generated() {
			scope.Printf("Starting %s (split from %s) with %s", filepath.Base(pair.CuePath),
				filepath.Base(pair.SourceCuePath), filepath.Base(pair.ImagePath))
		} else {
			scope.Printf("Starting %s with %s", filepath.Base(pair.CuePath), filepath.Base(pair.ImagePath))
		}
		if !discovery.IsAudioImage(pair.ImagePath) {
			scope.Printf("Warning: %s has an unusual extension for an audio image", filepath.Base(pair.ImagePath))
		}
		results[i] = o.Processor.Process(ctx, pair, scope)
		o.Logger.WithPair(pair.CuePath, pair.ImagePath).Debug("Pair finished",
			"status", results[i].Status, "tracks", len(results[i].Outputs))
	})
	return results
}

// cleanup removes sources consumed by successful pairs. A file still needed
// by a failed pair is kept, and a multi-file original goes only once every
// part generated from it succeeded.
func (o *Orchestrator) cleanup(found *discovery.Result, results []pipeline.Result, jl *joblog.Log) {
	keep := make(map[string]bool)
	succeeded := make(map[string]bool)
	for i, pair := range found.Pairs {
		if results[i].Status == domain.PairStatusSuccess {
			succeeded[pair.CuePath] = true
			continue
		}
		keep[pair.CuePath] = true
		keep[pair.ImagePath] = true
	}

	removed := make(map[string]bool)
	remove := func(path string) {
		if path == "" || keep[path] || removed[path] {
			return
		}
		removed[path] = true
		ok, err := storage.RemoveIfExists(path)
		switch {
		case err != nil:
			jl.Printf("Failed to remove %s: %v", path, err)
		case ok:
			jl.Printf("Removed %s", path)
		}
	}

	for i, pair := range found.Pairs {
		if results[i].Status != domain.PairStatusSuccess {
			continue
		}
		remove(pair.CuePath)
		remove(pair.ImagePath)
	}

	for _, set := range found.SplitSets {
		complete := len(set.Unpaired) == 0
		for _, part := range set.Parts {
			if !succeeded[part] {
				complete = false
				break
			}
		}
		if !complete {
			jl.Printf("Keeping %s: not every part succeeded", set.OriginalCuePath)
			continue
		}
		remove(set.OriginalCuePath)
		for _, part := range set.Consumed {
			remove(part)
		}
	}
}
