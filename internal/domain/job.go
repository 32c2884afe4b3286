package domain

import (
	"time"

	"gorm.io/datatypes"
)

// JobStatus represents the lifecycle state of a document processing job.
// A job only moves forward: pending -> processing -> completed | failed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is the durable record of one document processing request. It is created
// once by the intake path with status pending and mutated only by the worker
// during processing. Result is set exactly once, on the transition into
// completed or failed.
type Job struct {
	ID        string         `gorm:"type:text;primaryKey" json:"id"`
	Status    JobStatus      `gorm:"default:pending;index" json:"status"`
	Result    datatypes.JSON `json:"result,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Job.
func (Job) TableName() string {
	return "jobs"
}

// AgentResult is the structured output the reasoning service must produce
// before a job can be marked completed.
type AgentResult struct {
	Summary   string   `json:"summary"`
	Checklist []string `json:"checklist"`
}
