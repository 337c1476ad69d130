package store

import (
	"github.com/cesargomez89/cuesplit/internal/domain"
)

const jobColumns = `id, path, status, message, details, log_path, created_at, updated_at`

// SaveJob inserts or replaces the full job row.
func (db *DB) SaveJob(job *domain.Job) error {
	query := `INSERT INTO jobs (` + jobColumns + `)
		VALUES (:id, :path, :status, :message, :details, :log_path, :created_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			message = excluded.message,
			details = excluded.details,
			updated_at = excluded.updated_at`

	_, err := db.NamedExec(query, job)
	return err
}

func (db *DB) GetJob(id int64) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`

	job := &domain.Job{}
	if err := db.Get(job, query, id); err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs returns every job in id order.
func (db *DB) ListJobs() ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY id ASC`

	var jobs []*domain.Job
	err := db.Select(&jobs, query)
	return jobs, err
}
