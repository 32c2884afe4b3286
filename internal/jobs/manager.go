// Package jobs wires document processing into the asynq queue: enqueueing on
// upload and consuming in worker processes. At most one worker handles a given
// job id at a time; the job id doubles as the task id.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/svchk12/agnet-que/internal/config"
	"github.com/svchk12/agnet-que/internal/logger"
)

const (
	// TaskTypeProcess identifies the document processing task.
	TaskTypeProcess = "guideline:process"

	queueName = "guideline"
)

// TaskPayload identifies one document processing job.
type TaskPayload struct {
	JobID    string `json:"jobId"`
	Filename string `json:"filename"`
}

// Processor runs one job to a terminal state. It never returns: failures are
// absorbed by the job's own failure transition.
type Processor interface {
	Process(ctx context.Context, jobID, storedFilename string)
}

// Manager owns the queue client and the worker server.
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	proc   Processor
	logger *logger.Logger
}

// NewManager creates a Manager. The processor may be nil for enqueue-only
// usage (the API process when workers run separately).
func NewManager(cfg *config.QueueConfig, proc Processor, log *logger.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse queue redis url: %w", err)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				queueName: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		client: client,
		server: server,
		mux:    mux,
		proc:   proc,
		logger: log,
	}
	mux.HandleFunc(TaskTypeProcess, manager.handleProcessTask)
	return manager, nil
}

// StartWorkers runs the queue consumer in the background.
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && err != asynq.ErrServerClosed {
			m.logger.WithError(err).Error("Queue server stopped")
		}
	}()
}

// Run runs the queue consumer in the foreground until shutdown.
func (m *Manager) Run() error {
	return m.server.Run(m.mux)
}

// Shutdown stops the worker server and closes the client.
func (m *Manager) Shutdown() {
	m.server.Shutdown()
	m.client.Close()
}

// Enqueue schedules a job for processing. MaxRetry is zero: the processor
// owns failure handling and a handled failure must never be redelivered.
func (m *Manager) Enqueue(ctx context.Context, payload *TaskPayload) error {
	if payload == nil {
		return errors.New("payload is nil")
	}
	if payload.JobID == "" {
		return errors.New("payload.JobID is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeProcess, body, asynq.Queue(queueName))
	_, err = m.client.EnqueueContext(ctx, task, asynq.TaskID(payload.JobID), asynq.MaxRetry(0))
	return err
}

// handleProcessTask decodes the payload and hands the job to the processor.
// Processing failures are consumed inside Process; only payload decode errors
// surface to asynq.
func (m *Manager) handleProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to decode task payload: %w", err)
	}
	if payload.JobID == "" {
		return errors.New("missing jobId in payload")
	}

	m.proc.Process(ctx, payload.JobID, payload.Filename)
	return nil
}
