package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cesargomez89/cuesplit/internal/domain"
	"github.com/cesargomez89/cuesplit/internal/joblog"
	"github.com/cesargomez89/cuesplit/internal/logger"
	"github.com/cesargomez89/cuesplit/internal/store"
)

var ErrEmptyPath = errors.New("path is required")

// ShutdownMessage is recorded on jobs submitted after the workers stopped.
const ShutdownMessage = "service is shutting down"

// Queue hands job ids to the worker pool.
type Queue interface {
	Submit(jobID int64) error
}

// Runner turns a processing job into its terminal outcome.
type Runner interface {
	Run(ctx context.Context, job domain.Job) domain.Outcome
}

type JobService struct {
	Store  *store.Store
	Runner Runner
	Queue  Queue
	Logger *logger.Logger
	LogDir string
}

func NewJobService(st *store.Store, runner Runner, logDir string, log *logger.Logger) *JobService {
	if log == nil {
		log = logger.Default()
	}
	return &JobService{Store: st, Runner: runner, LogDir: logDir, Logger: log.WithComponent("jobs")}
}

// Submit records a queued job for path and hands it to the queue. The job is
// visible through Get before Submit returns.
func (s *JobService) Submit(path string) (domain.Job, error) {
	if strings.TrimSpace(path) == "" {
		return domain.Job{}, ErrEmptyPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.Job{}, fmt.Errorf("failed to resolve path: %w", err)
	}

	id := s.Store.Reserve()
	logPath, err := joblog.Create(s.LogDir, id)
	if err != nil {
		return domain.Job{}, err
	}
	job, err := s.Store.Insert(id, abs, logPath)
	if err != nil {
		return domain.Job{}, err
	}

	if err := s.Queue.Submit(id); err != nil {
		if _, ferr := s.Store.Finish(id, domain.Outcome{Status: domain.JobStatusError, Message: ShutdownMessage}); ferr != nil {
			s.Logger.Error("Failed to fail rejected job", "job_id", id, "error", ferr)
		}
		return domain.Job{}, fmt.Errorf("failed to enqueue job: %w", err)
	}

	s.Logger.Info("Job enqueued", "job_id", id, "path", abs)
	return job, nil
}

func (s *JobService) Get(id int64) (domain.Job, error) {
	return s.Store.Get(id)
}

func (s *JobService) List() []domain.Job {
	return s.Store.List()
}

// ReadLog returns the current contents of a job's log file.
func (s *JobService) ReadLog(id int64) (string, error) {
	job, err := s.Store.Get(id)
	if err != nil {
		return "", err
	}
	return joblog.Read(job.LogPath)
}

// Handle is the worker entry point for one dequeued job.
func (s *JobService) Handle(ctx context.Context, id int64) {
	job, err := s.Store.MarkProcessing(id)
	if err != nil {
		s.Logger.Error("Failed to start job", "job_id", id, "error", err)
		return
	}
	s.Logger.Info("Processing job", "job_id", id, "path", job.Path)

	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("Job panicked", "job_id", id, "panic", r)
			out := domain.Outcome{Status: domain.JobStatusError, Message: fmt.Sprintf("internal error: %v", r)}
			if _, err := s.Store.Finish(id, out); err != nil {
				s.Logger.Error("Failed to finish job", "job_id", id, "error", err)
			}
		}
	}()

	out := s.Runner.Run(ctx, job)
	if _, err := s.Store.Finish(id, out); err != nil {
		s.Logger.Error("Failed to finish job", "job_id", id, "error", err)
		return
	}
	s.Logger.Info("Job completed", "job_id", id, "status", out.Status)
}

// Resume re-enqueues jobs recovered from persistent storage.
func (s *JobService) Resume(ids []int64) error {
	for _, id := range ids {
		if err := s.Queue.Submit(id); err != nil {
			return fmt.Errorf("failed to resume job %d: %w", id, err)
		}
	}
	if len(ids) > 0 {
		s.Logger.Info("Resumed queued jobs", "count", len(ids))
	}
	return nil
}
