package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/svchk12/agnet-que/internal/domain"
	"github.com/svchk12/agnet-que/internal/jobs"
	"github.com/svchk12/agnet-que/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeJobCreator struct {
	created []*domain.Job
	err     error
}

func (f *fakeJobCreator) Create(ctx context.Context, job *domain.Job) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, job)
	return nil
}

type fakeUploads struct {
	saved map[string]string
	err   error
}

func (f *fakeUploads) Save(jobID, originalName string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	stored := jobID + "_" + originalName
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[jobID] = stored
	return stored, nil
}

type fakeEnqueuer struct {
	payloads []*jobs.TaskPayload
	err      error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, payload *jobs.TaskPayload) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeReader struct {
	views map[string]*service.JobStatusView
	err   error
}

func (f *fakeReader) Read(ctx context.Context, jobID string) (*service.JobStatusView, error) {
	if f.err != nil {
		return nil, f.err
	}
	view, ok := f.views[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return view, nil
}

func newTestRouter(h *JobHandler) *gin.Engine {
	r := gin.New()
	r.POST("/jobs", h.CreateJob)
	r.GET("/jobs/:id", h.GetJobStatus)
	r.GET("/jobs/:id/stream", h.StreamJobStatus)
	return r
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to build multipart body: %v", err)
	}
	fw.Write(content)
	w.Close()
	return buf, w.FormDataContentType()
}

func TestCreateJob(t *testing.T) {
	creator := &fakeJobCreator{}
	uploads := &fakeUploads{}
	queue := &fakeEnqueuer{}
	h := NewJobHandler(creator, uploads, queue, &fakeReader{}, time.Second)

	body, contentType := multipartBody(t, "guideline.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/jobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		JobID  string `json:"jobId"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.JobID == "" {
		t.Error("response missing jobId")
	}
	if resp.Status != "pending" {
		t.Errorf("status = %q, want pending", resp.Status)
	}

	if len(creator.created) != 1 || creator.created[0].ID != resp.JobID {
		t.Errorf("job record not created for %q: %#v", resp.JobID, creator.created)
	}
	if len(queue.payloads) != 1 {
		t.Fatalf("enqueued %d payloads, want 1", len(queue.payloads))
	}
	if queue.payloads[0].JobID != resp.JobID {
		t.Errorf("enqueued job id = %q, want %q", queue.payloads[0].JobID, resp.JobID)
	}
	if queue.payloads[0].Filename != uploads.saved[resp.JobID] {
		t.Errorf("enqueued filename = %q, want stored name %q", queue.payloads[0].Filename, uploads.saved[resp.JobID])
	}
}

func TestCreateJobRejectsUnsupportedExtension(t *testing.T) {
	queue := &fakeEnqueuer{}
	h := NewJobHandler(&fakeJobCreator{}, &fakeUploads{}, queue, &fakeReader{}, time.Second)

	body, contentType := multipartBody(t, "data.xlsx", []byte("junk"))
	req := httptest.NewRequest(http.MethodPost, "/jobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(queue.payloads) != 0 {
		t.Error("rejected upload must not be enqueued")
	}
}

func TestCreateJobMissingFile(t *testing.T) {
	h := NewJobHandler(&fakeJobCreator{}, &fakeUploads{}, &fakeEnqueuer{}, &fakeReader{}, time.Second)

	req := httptest.NewRequest(http.MethodPost, "/jobs", nil)
	rec := httptest.NewRecorder()

	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateJobEnqueueFailure(t *testing.T) {
	h := NewJobHandler(&fakeJobCreator{}, &fakeUploads{}, &fakeEnqueuer{err: errors.New("redis down")}, &fakeReader{}, time.Second)

	body, contentType := multipartBody(t, "doc.txt", []byte("text"))
	req := httptest.NewRequest(http.MethodPost, "/jobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestGetJobStatus(t *testing.T) {
	reader := &fakeReader{views: map[string]*service.JobStatusView{
		"job-1": {
			JobID:     "job-1",
			Status:    domain.JobStatusCompleted,
			Summary:   "Summary text",
			Checklist: []string{"Check A"},
		},
	}}
	h := NewJobHandler(&fakeJobCreator{}, &fakeUploads{}, &fakeEnqueuer{}, reader, time.Second)

	req := httptest.NewRequest(http.MethodGet, "/jobs/job-1", nil)
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var view service.JobStatusView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.Status != domain.JobStatusCompleted || view.Summary != "Summary text" {
		t.Errorf("view = %#v", view)
	}
}

func TestGetJobStatusNotFound(t *testing.T) {
	h := NewJobHandler(&fakeJobCreator{}, &fakeUploads{}, &fakeEnqueuer{}, &fakeReader{}, time.Second)

	req := httptest.NewRequest(http.MethodGet, "/jobs/ghost", nil)
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStreamJobStatusTerminalJob(t *testing.T) {
	reader := &fakeReader{views: map[string]*service.JobStatusView{
		"job-1": {JobID: "job-1", Status: domain.JobStatusCompleted, Summary: "done"},
	}}
	h := NewJobHandler(&fakeJobCreator{}, &fakeUploads{}, &fakeEnqueuer{}, reader, 10*time.Millisecond)

	srv := httptest.NewServer(newTestRouter(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/jobs/job-1/stream")
	if err != nil {
		t.Fatalf("stream request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read stream: %v", err)
	}
	if !bytes.Contains(body, []byte("completed")) {
		t.Errorf("stream body missing terminal status: %q", body)
	}
}

func TestStreamJobStatusUnknownJob(t *testing.T) {
	h := NewJobHandler(&fakeJobCreator{}, &fakeUploads{}, &fakeEnqueuer{}, &fakeReader{}, 10*time.Millisecond)

	srv := httptest.NewServer(newTestRouter(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/jobs/ghost/stream")
	if err != nil {
		t.Fatalf("stream request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read stream: %v", err)
	}
	if !bytes.Contains(body, []byte("Job not found")) {
		t.Errorf("stream body = %q, want error event", body)
	}
}
