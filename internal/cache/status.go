// Package cache provides the ephemeral, fast-path mirror of in-flight job
// progress. Records live in Redis under job:<id> and are advisory: the durable
// store remains the source of truth, and losing the cache never loses a
// terminal result.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/svchk12/agnet-que/internal/domain"
)

const jobKeyPrefix = "job:"

// ProgressRecord is the flat snapshot of a job's current phase. Every write
// during normal processing replaces the whole record so a retried run can
// never interleave fields from a prior attempt.
type ProgressRecord struct {
	Status      domain.JobStatus `json:"status"`
	Filename    string           `json:"filename,omitempty"`
	StartedAt   string           `json:"started_at,omitempty"`
	CompletedAt string           `json:"completed_at,omitempty"`
	FailedAt    string           `json:"failed_at,omitempty"`
	Error       string           `json:"error,omitempty"`
	Summary     string           `json:"summary"`
	Checklist   string           `json:"checklist"` // JSON-encoded array of strings
}

// StatusStore stores progress records in Redis with a TTL.
type StatusStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStatusStore creates a StatusStore.
func NewStatusStore(rdb *redis.Client, ttl time.Duration) *StatusStore {
	return &StatusStore{
		rdb: rdb,
		ttl: ttl,
	}
}

// Ping verifies the Redis connection.
func (s *StatusStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Get retrieves the progress record for a job. A cold cache returns
// (nil, nil).
func (s *StatusStore) Get(ctx context.Context, jobID string) (*ProgressRecord, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID is required")
	}
	data, err := s.rdb.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var record ProgressRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Replace overwrites the full record for a job, discarding any prior state.
func (s *StatusStore) Replace(ctx context.Context, jobID string, record *ProgressRecord) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, jobKey(jobID), payload, s.ttl).Err()
}

// MarkFailed merges failure fields into whatever record exists for the job,
// starting from an empty record on a cold cache. Unlike Replace, partial
// results written by an earlier phase (filename, started_at) are preserved.
func (s *StatusStore) MarkFailed(ctx context.Context, jobID, message string, failedAt time.Time) error {
	record, err := s.Get(ctx, jobID)
	if err != nil || record == nil {
		record = &ProgressRecord{}
	}
	record.Status = domain.JobStatusFailed
	record.Error = message
	record.FailedAt = failedAt.UTC().Format(time.RFC3339)
	return s.Replace(ctx, jobID, record)
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}
