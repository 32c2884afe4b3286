// Package agent implements the client for the external reasoning service. A
// session is opened per job, the extracted document text is submitted as a
// single user message, and the multi-event response is folded into an
// AgentResult.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

var (
	// ErrEmptyResponse means the service returned a well-formed but empty
	// event list.
	ErrEmptyResponse = errors.New("agent returned no events")

	// ErrNoResult means no event carried a summary or a checklist.
	ErrNoResult = errors.New("agent produced neither summary nor checklist")
)

// APIError is a non-2xx response from the agent service, carrying the
// response body for diagnosis.
type APIError struct {
	Op         string // "session" or "run"
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("agent %s request failed: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// Config holds configuration for the agent client.
type Config struct {
	BaseURL string
	AppName string
	UserID  string
	Timeout time.Duration
}

// Client talks to the agent service over HTTP.
type Client struct {
	http    *resty.Client
	appName string
	userID  string
}

// NewClient creates a new agent client.
func NewClient(cfg *Config) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetHeader("Content-Type", "application/json")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	client.SetTimeout(timeout)

	return &Client{
		http:    client,
		appName: cfg.AppName,
		userID:  cfg.UserID,
	}
}

// Event mirrors one entry of the /run response. Events without an
// actions/stateDelta shape are skipped by the parser, not rejected.
type Event struct {
	Author  string   `json:"author"`
	Actions *Actions `json:"actions"`
}

// Actions holds the state mutations an event carries.
type Actions struct {
	StateDelta map[string]interface{} `json:"stateDelta"`
}

type runRequest struct {
	AppName    string     `json:"appName"`
	UserID     string     `json:"userId"`
	SessionID  string     `json:"sessionId"`
	NewMessage runMessage `json:"newMessage"`
}

type runMessage struct {
	Role  string    `json:"role"`
	Parts []runPart `json:"parts"`
}

type runPart struct {
	Text string `json:"text"`
}

// CreateSession opens a new agent session scoped to the configured app and
// user identity and returns its id.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	sessionID := uuid.New().String()

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"state": map[string]interface{}{}}).
		Post(fmt.Sprintf("/apps/%s/users/%s/sessions/%s", c.appName, c.userID, sessionID))
	if err != nil {
		return "", fmt.Errorf("failed to create agent session: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", &APIError{Op: "session", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return sessionID, nil
}

// Run submits the extracted text to an open session and returns the decoded
// event list.
func (c *Client) Run(ctx context.Context, sessionID, content string) ([]Event, error) {
	req := runRequest{
		AppName:   c.appName,
		UserID:    c.userID,
		SessionID: sessionID,
		NewMessage: runMessage{
			Role:  "user",
			Parts: []runPart{{Text: content}},
		},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post("/run")
	if err != nil {
		return nil, fmt.Errorf("failed to call agent run: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &APIError{Op: "run", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	var events []Event
	if err := json.Unmarshal(resp.Body(), &events); err != nil {
		return nil, fmt.Errorf("failed to decode agent events: %w", err)
	}
	if len(events) == 0 {
		return nil, ErrEmptyResponse
	}
	return events, nil
}
