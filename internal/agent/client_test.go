package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&Config{
		BaseURL: baseURL,
		AppName: "guideline_agent",
		UserID:  "u_123",
	})
}

func TestCreateSession(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"ignored"}`))
	}))
	defer srv.Close()

	sessionID, err := newTestClient(srv.URL).CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession() unexpected error: %v", err)
	}
	if sessionID == "" {
		t.Fatal("CreateSession() returned empty session id")
	}

	wantPrefix := "/apps/guideline_agent/users/u_123/sessions/"
	if !strings.HasPrefix(gotPath, wantPrefix) {
		t.Errorf("request path = %q, want prefix %q", gotPath, wantPrefix)
	}
	if !strings.HasSuffix(gotPath, sessionID) {
		t.Errorf("request path %q does not end with session id %q", gotPath, sessionID)
	}
	if _, ok := gotBody["state"]; !ok {
		t.Errorf("request body missing state field: %#v", gotBody)
	}
}

func TestCreateSessionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateSession(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("CreateSession() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, http.StatusInternalServerError)
	}
	if apiErr.Op != "session" {
		t.Errorf("Op = %q, want %q", apiErr.Op, "session")
	}
}

func TestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/run" {
			t.Errorf("request path = %q, want /run", r.URL.Path)
		}
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		if req["appName"] != "guideline_agent" || req["userId"] != "u_123" || req["sessionId"] != "s-1" {
			t.Errorf("unexpected request body: %#v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Event{
			{Author: "summary_agent", Actions: &Actions{StateDelta: map[string]interface{}{"summary": "done"}}},
		})
	}))
	defer srv.Close()

	events, err := newTestClient(srv.URL).Run(context.Background(), "s-1", "document text")
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Author != "summary_agent" {
		t.Fatalf("Run() events = %#v", events)
	}
}

func TestRunEmptyEventList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Run(context.Background(), "s-1", "text")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("Run() error = %v, want ErrEmptyResponse", err)
	}
}

func TestRunServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Run(context.Background(), "s-1", "text")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Run() error = %v, want *APIError", err)
	}
	if apiErr.Op != "run" {
		t.Errorf("Op = %q, want %q", apiErr.Op, "run")
	}
	if !strings.Contains(apiErr.Body, "agent unavailable") {
		t.Errorf("Body = %q, want to contain server message", apiErr.Body)
	}
}
