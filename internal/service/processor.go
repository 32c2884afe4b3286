// Package service contains the job lifecycle orchestrator and the merged
// status read path.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/svchk12/agnet-que/internal/agent"
	"github.com/svchk12/agnet-que/internal/cache"
	"github.com/svchk12/agnet-que/internal/domain"
	"github.com/svchk12/agnet-que/internal/extract"
	"github.com/svchk12/agnet-que/internal/logger"
	"gorm.io/datatypes"
)

// ErrEmptyContent means the document produced no text after trimming.
var ErrEmptyContent = errors.New("extracted file content is empty")

// JobStore is the durable job record access the processor needs.
type JobStore interface {
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	Update(ctx context.Context, job *domain.Job) error
}

// ProgressStore mirrors in-flight progress for polling and streaming readers.
// All writes are advisory; a failing cache never stops processing.
type ProgressStore interface {
	Get(ctx context.Context, jobID string) (*cache.ProgressRecord, error)
	Replace(ctx context.Context, jobID string, record *cache.ProgressRecord) error
	MarkFailed(ctx context.Context, jobID, message string, failedAt time.Time) error
}

// AgentAPI is the reasoning-service boundary.
type AgentAPI interface {
	CreateSession(ctx context.Context) (string, error)
	Run(ctx context.Context, sessionID, content string) ([]agent.Event, error)
}

// FileResolver maps a stored filename to a readable path, failing with
// domain.ErrFileNotFound when the artifact is missing.
type FileResolver interface {
	Resolve(storedFilename string) (string, error)
}

// Processor drives one job through its lifecycle: it dequeues alongside the
// queue consumer, extracts the document text, invokes the agent and writes
// both the durable record and the progress cache on every transition. A job
// handed to Process always reaches a terminal state.
type Processor struct {
	jobs      JobStore
	progress  ProgressStore
	extractor extract.Extractor
	agent     AgentAPI
	files     FileResolver
	logger    *logger.Logger
	now       func() time.Time
}

// NewProcessor creates a Processor. All collaborators are injected so tests
// can substitute fakes without touching shared state.
func NewProcessor(
	jobs JobStore,
	progress ProgressStore,
	extractor extract.Extractor,
	agentAPI AgentAPI,
	files FileResolver,
	log *logger.Logger,
) *Processor {
	return &Processor{
		jobs:      jobs,
		progress:  progress,
		extractor: extractor,
		agent:     agentAPI,
		files:     files,
		logger:    log,
		now:       time.Now,
	}
}

func (p *Processor) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return p.logger
}

// Process runs one job to a terminal state. Errors from downstream steps are
// routed to the failure transition and consumed; nothing is re-raised to a
// caller that has no synchronous relationship to the job.
func (p *Processor) Process(ctx context.Context, jobID, storedFilename string) {
	ctx = logger.SetJobID(ctx, jobID)
	log := p.log(ctx)
	log.WithField("filename", storedFilename).Info("Starting job processing")

	startedAt := p.now().UTC()

	// The initial progress record fully replaces any prior attempt's state.
	if err := p.progress.Replace(ctx, jobID, &cache.ProgressRecord{
		Status:    domain.JobStatusProcessing,
		Filename:  storedFilename,
		StartedAt: startedAt.Format(time.RFC3339),
		Summary:   "",
		Checklist: "[]",
	}); err != nil {
		log.WithError(err).Warn("Failed to write initial progress record")
	}

	job, err := p.jobs.GetByID(ctx, jobID)
	if err != nil {
		p.fail(ctx, jobID, err)
		return
	}
	job.Status = domain.JobStatusProcessing
	if err := p.jobs.Update(ctx, job); err != nil {
		p.fail(ctx, jobID, fmt.Errorf("failed to mark job processing: %w", err))
		return
	}

	result, err := p.run(ctx, storedFilename)
	if err != nil {
		p.fail(ctx, jobID, err)
		return
	}

	p.complete(ctx, job, storedFilename, startedAt, result)
}

// run executes the processing body: resolve file, extract, open session,
// submit, parse. Any step's failure aborts to the failure transition.
func (p *Processor) run(ctx context.Context, storedFilename string) (*domain.AgentResult, error) {
	log := p.log(ctx)

	path, err := p.files.Resolve(storedFilename)
	if err != nil {
		return nil, err
	}

	text, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract file content: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContent
	}
	log.WithField("content_length", len(text)).Info("File content extracted")

	sessionID, err := p.agent.CreateSession(ctx)
	if err != nil {
		return nil, err
	}
	log.WithField("session_id", sessionID).Info("Agent session created")

	events, err := p.agent.Run(ctx, sessionID, text)
	if err != nil {
		return nil, err
	}

	return agent.ParseEvents(events)
}

// complete is the processing -> completed transition: durable commit first,
// then a full replace of the progress record.
func (p *Processor) complete(ctx context.Context, job *domain.Job, storedFilename string, startedAt time.Time, result *domain.AgentResult) {
	log := p.log(ctx)

	payload, err := json.Marshal(result)
	if err != nil {
		p.fail(ctx, job.ID, fmt.Errorf("failed to encode agent result: %w", err))
		return
	}
	job.Status = domain.JobStatusCompleted
	job.Result = datatypes.JSON(payload)
	if err := p.jobs.Update(ctx, job); err != nil {
		p.fail(ctx, job.ID, fmt.Errorf("failed to persist job result: %w", err))
		return
	}

	checklistJSON, err := json.Marshal(result.Checklist)
	if err != nil {
		checklistJSON = []byte("[]")
	}
	if err := p.progress.Replace(ctx, job.ID, &cache.ProgressRecord{
		Status:      domain.JobStatusCompleted,
		Filename:    storedFilename,
		StartedAt:   startedAt.Format(time.RFC3339),
		CompletedAt: p.now().UTC().Format(time.RFC3339),
		Summary:     result.Summary,
		Checklist:   string(checklistJSON),
	}); err != nil {
		log.WithError(err).Warn("Failed to write completed progress record")
	}

	log.WithField("checklist_items", len(result.Checklist)).Info("Job completed")
}

// fail is the terminal failure transition. The durable write and the cache
// write are attempted independently: an error from one is logged and must not
// suppress the other, and neither is re-raised because this is already the
// failure path.
func (p *Processor) fail(ctx context.Context, jobID string, cause error) {
	log := p.log(ctx)
	log.WithError(cause).Error("Job processing failed")

	message := cause.Error()

	// Fresh load: the in-memory reference from the happy path may be stale
	// or may never have existed.
	job, err := p.jobs.GetByID(ctx, jobID)
	if err != nil {
		log.WithError(err).Error("Failed to load job for failure update")
	} else {
		payload, merr := json.Marshal(map[string]string{"error": message})
		if merr == nil {
			job.Status = domain.JobStatusFailed
			job.Result = datatypes.JSON(payload)
			if uerr := p.jobs.Update(ctx, job); uerr != nil {
				log.WithError(uerr).Error("Failed to persist failed job status")
			}
		}
	}

	if cerr := p.progress.MarkFailed(ctx, jobID, message, p.now().UTC()); cerr != nil {
		log.WithError(cerr).Error("Failed to write failed progress record")
	}
}
