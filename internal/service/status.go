package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/svchk12/agnet-que/internal/domain"
	"github.com/svchk12/agnet-que/internal/logger"
)

// JobStatusView is the merged status reported to polling and streaming
// callers.
type JobStatusView struct {
	JobID       string           `json:"jobId"`
	Status      domain.JobStatus `json:"status"`
	Filename    string           `json:"filename,omitempty"`
	Summary     string           `json:"summary,omitempty"`
	Checklist   []string         `json:"checklist,omitempty"`
	StartedAt   string           `json:"started_at,omitempty"`
	CompletedAt string           `json:"completed_at,omitempty"`
	FailedAt    string           `json:"failed_at,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   *time.Time       `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time       `json:"updatedAt,omitempty"`
}

// StatusReader answers status queries by merging the progress cache
// (preferred, fresher) and the durable store (fallback, authoritative for
// terminal state).
type StatusReader struct {
	jobs     JobStore
	progress ProgressStore
	logger   *logger.Logger
}

// NewStatusReader creates a StatusReader.
func NewStatusReader(jobs JobStore, progress ProgressStore, log *logger.Logger) *StatusReader {
	return &StatusReader{
		jobs:     jobs,
		progress: progress,
		logger:   log,
	}
}

// Read returns the current status of a job. The cache record wins
// unconditionally when present; a job unknown to both stores fails with
// domain.ErrJobNotFound.
func (r *StatusReader) Read(ctx context.Context, jobID string) (*JobStatusView, error) {
	record, err := r.progress.Get(ctx, jobID)
	if err != nil {
		// Degrade to the durable store; the cache is advisory.
		r.logger.WithField(logger.FieldJobID, jobID).WithError(err).Warn("Progress cache read failed")
	}
	if record != nil {
		view := &JobStatusView{
			JobID:       jobID,
			Status:      record.Status,
			Filename:    stripJobPrefix(jobID, record.Filename),
			Summary:     record.Summary,
			StartedAt:   record.StartedAt,
			CompletedAt: record.CompletedAt,
			FailedAt:    record.FailedAt,
			Error:       record.Error,
		}
		if view.Status == "" {
			view.Status = domain.JobStatusPending
		}
		if record.Checklist != "" {
			var items []string
			if err := json.Unmarshal([]byte(record.Checklist), &items); err != nil {
				// A malformed checklist degrades to a single opaque entry.
				items = []string{record.Checklist}
			}
			view.Checklist = items
		}
		return view, nil
	}

	job, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	view := &JobStatusView{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: &job.CreatedAt,
		UpdatedAt: &job.UpdatedAt,
	}
	if len(job.Result) > 0 {
		var result struct {
			Summary   string   `json:"summary"`
			Checklist []string `json:"checklist"`
			Error     string   `json:"error"`
		}
		if err := json.Unmarshal(job.Result, &result); err == nil {
			view.Summary = result.Summary
			view.Checklist = result.Checklist
			view.Error = result.Error
		}
	}
	return view, nil
}

// stripJobPrefix removes the job-id disambiguation prefix the storage layer
// adds to physical filenames.
func stripJobPrefix(jobID, filename string) string {
	return strings.TrimPrefix(filename, jobID+"_")
}
