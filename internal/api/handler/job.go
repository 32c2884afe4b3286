package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/svchk12/agnet-que/internal/domain"
	"github.com/svchk12/agnet-que/internal/jobs"
	"github.com/svchk12/agnet-que/internal/logger"
	"github.com/svchk12/agnet-que/internal/service"
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".doc":  true,
	".txt":  true,
}

// JobCreator creates the durable pending record for a new job.
type JobCreator interface {
	Create(ctx context.Context, job *domain.Job) error
}

// Uploads stores the raw uploaded document.
type Uploads interface {
	Save(jobID, originalName string, r io.Reader) (string, error)
}

// Enqueuer hands a job to the background queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload *jobs.TaskPayload) error
}

// StatusReader answers merged status queries.
type StatusReader interface {
	Read(ctx context.Context, jobID string) (*service.JobStatusView, error)
}

// JobHandler handles job intake, status polling and status streaming.
type JobHandler struct {
	jobs     JobCreator
	uploads  Uploads
	queue    Enqueuer
	reader   StatusReader
	interval time.Duration
}

// NewJobHandler creates a new job handler. interval is the push period of the
// status stream.
func NewJobHandler(jobCreator JobCreator, uploads Uploads, queue Enqueuer, reader StatusReader, interval time.Duration) *JobHandler {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &JobHandler{
		jobs:     jobCreator,
		uploads:  uploads,
		queue:    queue,
		reader:   reader,
		interval: interval,
	}
}

// CreateJob handles POST /jobs: store the upload, create a pending job and
// enqueue it for processing.
func (h *JobHandler) CreateJob(c *gin.Context) {
	ctx := c.Request.Context()

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF, DOCX, DOC, or TXT files are allowed"})
		return
	}

	jobID := uuid.New().String()

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read uploaded file"})
		return
	}
	defer src.Close()

	storedFilename, err := h.uploads.Save(jobID, file.Filename, src)
	if err != nil {
		logger.CtxError(ctx, "Failed to store upload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store uploaded file"})
		return
	}

	if err := h.jobs.Create(ctx, &domain.Job{ID: jobID, Status: domain.JobStatusPending}); err != nil {
		logger.CtxError(ctx, "Failed to create job record: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create job"})
		return
	}

	if err := h.queue.Enqueue(ctx, &jobs.TaskPayload{JobID: jobID, Filename: storedFilename}); err != nil {
		logger.CtxError(ctx, "Failed to enqueue job: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobId":  jobID,
		"status": domain.JobStatusPending,
	})
}

// GetJobStatus handles GET /jobs/:id.
func (h *JobHandler) GetJobStatus(c *gin.Context) {
	jobID := c.Param("id")
	if strings.TrimSpace(jobID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job id is required"})
		return
	}

	view, err := h.reader.Read(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		logger.CtxError(c.Request.Context(), "Failed to read job status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read job status"})
		return
	}

	c.JSON(http.StatusOK, view)
}

// StreamJobStatus handles GET /jobs/:id/stream: server-sent events pushing
// the merged status at a fixed interval until the job reaches a terminal
// state, then one final push and close.
func (h *JobHandler) StreamJobStatus(c *gin.Context) {
	jobID := c.Param("id")
	if strings.TrimSpace(jobID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job id is required"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		view, err := h.reader.Read(c.Request.Context(), jobID)
		if err != nil {
			c.SSEvent("message", gin.H{"error": "Job not found"})
			return false
		}

		c.SSEvent("message", view)
		if view.Status.Terminal() {
			return false
		}

		select {
		case <-c.Request.Context().Done():
			return false
		case <-ticker.C:
			return true
		}
	})
}
