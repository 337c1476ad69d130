package dto

import (
	"strconv"
	"strings"

	"github.com/cesargomez89/cuesplit/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

type ProcessRequest struct {
	Path string `json:"path"`
}

// Validate reports every problem with the request body.
func (r ProcessRequest) Validate() []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(r.Path) == "" {
		errs = append(errs, ValidationError{Field: "path", Message: "is required"})
	}
	if strings.ContainsRune(r.Path, 0) {
		errs = append(errs, ValidationError{Field: "path", Message: "must not contain NUL bytes"})
	}
	return errs
}

type ProcessResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type JobResponse struct {
	JobID     string              `json:"job_id,omitempty"`
	Status    string              `json:"status"`
	Path      string              `json:"path"`
	Message   string              `json:"message,omitempty"`
	Log       string              `json:"log"`
	Details   []domain.PairResult `json:"details,omitempty"`
	CreatedAt string              `json:"created_at"`
	UpdatedAt string              `json:"updated_at"`
}

func NewJobResponse(j domain.Job) JobResponse {
	return JobResponse{
		Status:    string(j.Status),
		Path:      j.Path,
		Message:   j.Message,
		Log:       j.LogPath,
		Details:   j.Details,
		CreatedAt: j.CreatedAt.Format(timeFormat),
		UpdatedAt: j.UpdatedAt.Format(timeFormat),
	}
}

// NewJobMap keys every job by its id string.
func NewJobMap(jobs []domain.Job) map[string]JobResponse {
	m := make(map[string]JobResponse, len(jobs))
	for _, j := range jobs {
		m[j.Key()] = NewJobResponse(j)
	}
	return m
}

type LogResponse struct {
	JobID string `json:"job_id"`
	Log   string `json:"log"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type IndexResponse struct {
	Message string `json:"message"`
}

// ParseJobID accepts the decimal id form used on the wire.
func ParseJobID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
