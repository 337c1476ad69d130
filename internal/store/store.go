package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cesargomez89/cuesplit/internal/domain"
	"github.com/cesargomez89/cuesplit/internal/logger"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrJobExists         = errors.New("job already exists")
)

// InterruptedMessage is recorded on jobs that were processing when the
// service went down.
const InterruptedMessage = "interrupted by restart"

// Persister mirrors the job table to durable storage.
type Persister interface {
	SaveJob(job *domain.Job) error
	ListJobs() ([]*domain.Job, error)
}

// Store is the in-memory job table. All reads return copies so callers never
// observe a job mid-update. When a Persister is set every mutation is
// written through after the lock is released.
type Store struct {
	jobs    map[int64]*domain.Job
	persist Persister
	Logger  *logger.Logger
	now     func() time.Time
	mu      sync.RWMutex
	nextID  int64
}

func New(persist Persister, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Default()
	}
	return &Store{
		jobs:    make(map[int64]*domain.Job),
		persist: persist,
		Logger:  log.WithComponent("store"),
		now:     time.Now,
		nextID:  1,
	}
}

// Recover loads persisted jobs. Jobs left processing are failed, jobs left
// queued are returned in id order so they can be submitted again. New ids
// continue after the largest persisted one.
func (s *Store) Recover() ([]int64, error) {
	if s.persist == nil {
		return nil, nil
	}
	jobs, err := s.persist.ListJobs()
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}

	var requeue []int64
	var interrupted []domain.Job

	s.mu.Lock()
	for _, job := range jobs {
		switch job.Status {
		case domain.JobStatusProcessing:
			job.Status = domain.JobStatusError
			job.Message = InterruptedMessage
			job.UpdatedAt = s.now()
			interrupted = append(interrupted, snapshot(job))
		case domain.JobStatusQueued:
			requeue = append(requeue, job.ID)
		}
		s.jobs[job.ID] = job
		if job.ID >= s.nextID {
			s.nextID = job.ID + 1
		}
	}
	s.mu.Unlock()

	for i := range interrupted {
		s.save(&interrupted[i])
	}
	sort.Slice(requeue, func(i, j int) bool { return requeue[i] < requeue[j] })

	s.Logger.Info("Recovered jobs", "total", len(jobs), "requeued", len(requeue), "interrupted", len(interrupted))
	return requeue, nil
}

// Reserve hands out the next job id. Ids are never reused.
func (s *Store) Reserve() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	return id
}

// Insert adds a new queued job under an id obtained from Reserve.
func (s *Store) Insert(id int64, path, logPath string) (domain.Job, error) {
	now := s.now()
	job := &domain.Job{
		ID:        id,
		Path:      path,
		Status:    domain.JobStatusQueued,
		LogPath:   logPath,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	if _, ok := s.jobs[id]; ok {
		s.mu.Unlock()
		return domain.Job{}, fmt.Errorf("%w: %d", ErrJobExists, id)
	}
	s.jobs[id] = job
	snap := snapshot(job)
	s.mu.Unlock()

	s.save(&snap)
	return snap, nil
}

func (s *Store) MarkProcessing(id int64) (domain.Job, error) {
	return s.update(id, domain.JobStatusProcessing, func(job *domain.Job) {})
}

// Finish records the terminal outcome of a job.
func (s *Store) Finish(id int64, out domain.Outcome) (domain.Job, error) {
	if !out.Status.IsTerminal() {
		return domain.Job{}, fmt.Errorf("%w: %s is not terminal", ErrInvalidTransition, out.Status)
	}
	return s.update(id, out.Status, func(job *domain.Job) {
		job.Message = out.Message
		job.Details = append(domain.PairResults(nil), out.Details...)
	})
}

func (s *Store) update(id int64, to domain.JobStatus, apply func(*domain.Job)) (domain.Job, error) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return domain.Job{}, fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	if !job.Status.CanTransition(to) {
		from := job.Status
		s.mu.Unlock()
		return domain.Job{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	job.Status = to
	apply(job)
	job.UpdatedAt = s.now()
	snap := snapshot(job)
	s.mu.Unlock()

	s.save(&snap)
	return snap, nil
}

func (s *Store) Get(id int64) (domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	return snapshot(job), nil
}

// List returns every job ordered by id.
func (s *Store) List() []domain.Job {
	s.mu.RLock()
	jobs := make([]domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, snapshot(job))
	}
	s.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs
}

func (s *Store) save(job *domain.Job) {
	if s.persist == nil {
		return
	}
	if err := s.persist.SaveJob(job); err != nil {
		s.Logger.Error("Failed to persist job", "job_id", job.ID, "status", job.Status, "error", err)
	}
}

func snapshot(job *domain.Job) domain.Job {
	c := *job
	if job.Details != nil {
		c.Details = append(domain.PairResults(nil), job.Details...)
	}
	return c
}
