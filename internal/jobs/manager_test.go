package jobs

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/svchk12/agnet-que/internal/config"
	"github.com/svchk12/agnet-que/internal/logger"
)

type recordingProcessor struct {
	jobID    string
	filename string
	calls    int
}

func (p *recordingProcessor) Process(ctx context.Context, jobID, storedFilename string) {
	p.calls++
	p.jobID = jobID
	p.filename = storedFilename
}

func newTestManager(t *testing.T, proc Processor) *Manager {
	t.Helper()
	m, err := NewManager(
		&config.QueueConfig{RedisURL: "redis://localhost:6379/0"},
		proc,
		logger.New(&logger.Config{Level: "error", Output: io.Discard}),
	)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	return m
}

func TestNewManagerInvalidRedisURL(t *testing.T) {
	_, err := NewManager(&config.QueueConfig{RedisURL: "://not-a-url"}, nil, nil)
	if err == nil {
		t.Fatal("NewManager() expected error for invalid redis url")
	}
}

func TestHandleProcessTask(t *testing.T) {
	proc := &recordingProcessor{}
	m := newTestManager(t, proc)

	payload, _ := json.Marshal(TaskPayload{JobID: "job-1", Filename: "job-1_doc.pdf"})
	task := asynq.NewTask(TaskTypeProcess, payload)

	if err := m.handleProcessTask(context.Background(), task); err != nil {
		t.Fatalf("handleProcessTask() error: %v", err)
	}
	if proc.calls != 1 {
		t.Fatalf("Process called %d times, want 1", proc.calls)
	}
	if proc.jobID != "job-1" || proc.filename != "job-1_doc.pdf" {
		t.Errorf("Process(%q, %q), want job-1, job-1_doc.pdf", proc.jobID, proc.filename)
	}
}

func TestHandleProcessTaskBadPayload(t *testing.T) {
	proc := &recordingProcessor{}
	m := newTestManager(t, proc)

	task := asynq.NewTask(TaskTypeProcess, []byte("{invalid"))
	if err := m.handleProcessTask(context.Background(), task); err == nil {
		t.Fatal("handleProcessTask() expected error for malformed payload")
	}
	if proc.calls != 0 {
		t.Errorf("Process must not run on malformed payload, got %d calls", proc.calls)
	}
}

func TestHandleProcessTaskMissingJobID(t *testing.T) {
	proc := &recordingProcessor{}
	m := newTestManager(t, proc)

	payload, _ := json.Marshal(TaskPayload{Filename: "doc.pdf"})
	task := asynq.NewTask(TaskTypeProcess, payload)
	if err := m.handleProcessTask(context.Background(), task); err == nil {
		t.Fatal("handleProcessTask() expected error for missing job id")
	}
	if proc.calls != 0 {
		t.Errorf("Process must not run without a job id, got %d calls", proc.calls)
	}
}

func TestEnqueueValidation(t *testing.T) {
	m := newTestManager(t, &recordingProcessor{})

	if err := m.Enqueue(context.Background(), nil); err == nil {
		t.Error("Enqueue(nil) expected error")
	}
	if err := m.Enqueue(context.Background(), &TaskPayload{Filename: "doc.pdf"}); err == nil {
		t.Error("Enqueue() without job id expected error")
	}
}
