package domain

import (
	"fmt"
	"strings"
	"time"
)

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSuccess    JobStatus = "success"
	JobStatusPartial    JobStatus = "partial"
	JobStatusError      JobStatus = "error"
)

// IsTerminal reports whether no further transition is allowed.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSuccess, JobStatusPartial, JobStatusError:
		return true
	default:
		return false
	}
}

// CanTransition enforces the job state machine edges.
// A queued job may fail directly when it is recovered after a restart.
func (s JobStatus) CanTransition(to JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return to == JobStatusProcessing || to == JobStatusError
	case JobStatusProcessing:
		return to.IsTerminal()
	default:
		return false
	}
}

// Job represents one album-processing request
type Job struct {
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
	Details   PairResults `json:"details,omitempty" db:"details"`
	Path      string      `json:"path" db:"path"`
	Status    JobStatus   `json:"status" db:"status"`
	Message   string      `json:"message,omitempty" db:"message"`
	LogPath   string      `json:"log" db:"log_path"`
	ID        int64       `json:"id" db:"id"`
}

// Key is the string form of the job id used on the wire and as log file name.
func (j Job) Key() string {
	return fmt.Sprintf("%d", j.ID)
}

type PairStatus string

const (
	PairStatusSuccess PairStatus = "success"
	PairStatusError   PairStatus = "error"
)

// PairResult is the verdict of processing one Pair.
type PairResult struct {
	Status  PairStatus `json:"status"`
	Message string     `json:"message,omitempty"`
	Command string     `json:"command,omitempty"`
	Log     string     `json:"log"`
	Cue     string     `json:"cue,omitempty"`
}

// Pair is one CUE sheet matched to one audio image.
type Pair struct {
	CuePath      string
	ImagePath    string
	CoverArtPath string
	// SourceCuePath is the multi-FILE original a generated CUE was split from.
	SourceCuePath string
}

// Generated reports whether the pair's CUE was produced by splitting.
func (p Pair) Generated() bool {
	return p.SourceCuePath != ""
}

// SplitCueSet records the single-FILE documents generated from a multi-FILE CUE.
type SplitCueSet struct {
	OriginalCuePath string
	Parts           []string
	// Consumed lists parts an earlier run already processed and cleaned up.
	// They are not paired again.
	Consumed []string
	// Unpaired lists parts that could not be paired this run. The original
	// is kept while any remain.
	Unpaired []string
}

// Outcome is the aggregated result of running a job.
type Outcome struct {
	Status  JobStatus
	Message string
	Details []PairResult
}

// Aggregate folds pair verdicts into a job outcome.
func Aggregate(results []PairResult) Outcome {
	var succeeded, failed int
	for _, r := range results {
		if r.Status == PairStatusSuccess {
			succeeded++
		} else {
			failed++
		}
	}

	out := Outcome{Details: results}
	switch {
	case len(results) == 0:
		out.Status = JobStatusError
		out.Message = "no cue/image pairs found"
	case failed == 0:
		out.Status = JobStatusSuccess
		out.Message = fmt.Sprintf("all %d pair(s) succeeded", succeeded)
	case succeeded == 0:
		out.Status = JobStatusError
		out.Message = fmt.Sprintf("all %d pair(s) failed", failed)
	default:
		out.Status = JobStatusPartial
		out.Message = fmt.Sprintf("%d of %d pair(s) succeeded", succeeded, succeeded+failed)
	}
	return out
}

type Format string

const (
	FormatFLAC Format = "flac"
	FormatMP3  Format = "mp3"
	FormatAAC  Format = "aac"
)

// ParseFormat normalizes a user supplied output format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatFLAC, FormatMP3, FormatAAC:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format: %q", s)
	}
}
