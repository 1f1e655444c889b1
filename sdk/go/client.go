package teamlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Teamline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Document represents the API document model (partial).
type Document struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ContentJSON  string `json:"content_json"`
	IsLiveShared bool   `json:"is_live_shared"`
	CreatedBy    string `json:"created_by"`
	UpdatedAt    string `json:"updated_at"`
}

// DocumentVersion is one entry of a document's history.
type DocumentVersion struct {
	ID            string `json:"id"`
	DocumentID    string `json:"document_id"`
	VersionNumber int    `json:"version_number"`
	ContentJSON   string `json:"content_json"`
	CreatedBy     string `json:"created_by"`
	CreatedAt     string `json:"created_at"`
}

// DocumentShare is a live or static share grant.
type DocumentShare struct {
	DocumentID      string  `json:"document_id"`
	UserID          string  `json:"user_id"`
	Mode            string  `json:"mode"`
	PinnedVersionID *string `json:"pinned_version_id,omitempty"`
	SharedAt        string  `json:"shared_at"`
}

// Task represents the API task model (partial).
type Task struct {
	ID         string   `json:"id"`
	ProjectID  string   `json:"project_id"`
	Title      string   `json:"title"`
	Status     string   `json:"status"`
	Progress   int      `json:"progress"`
	AssignedTo []string `json:"assigned_to"`
}

// Leave represents a leave request.
type Leave struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	Type       string `json:"type"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Status     string `json:"status"`
	Flagged    bool   `json:"flagged"`
}

// Event represents an audit log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateDocument creates a document with an initial version.
func (c *Client) CreateDocument(ctx context.Context, title string, content map[string]any) (Document, error) {
	body := map[string]any{
		"title":   title,
		"content": content,
	}
	var resp Document
	err := c.do(ctx, http.MethodPost, "v0/documents", body, &resp)
	return resp, err
}

// AppendVersion appends a new content version to a document.
func (c *Client) AppendVersion(ctx context.Context, documentID string, content map[string]any) (Document, error) {
	body := map[string]any{"content": content}
	var resp Document
	endpoint := fmt.Sprintf("v0/documents/%s/versions", url.PathEscape(documentID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// ShareDocument shares a document with a user in live or static mode.
func (c *Client) ShareDocument(ctx context.Context, documentID, userID, mode string) (DocumentShare, error) {
	body := map[string]any{
		"user_id": userID,
		"mode":    mode,
	}
	var resp DocumentShare
	endpoint := fmt.Sprintf("v0/documents/%s/shares", url.PathEscape(documentID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Versions lists a document's versions oldest first.
func (c *Client) Versions(ctx context.Context, documentID string) ([]DocumentVersion, error) {
	var resp []DocumentVersion
	endpoint := fmt.Sprintf("v0/documents/%s/versions", url.PathEscape(documentID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CreateTask creates a task under a project.
func (c *Client) CreateTask(ctx context.Context, projectID, title string, assignedTo []string) (Task, error) {
	body := map[string]any{
		"project_id":  projectID,
		"title":       title,
		"assigned_to": assignedTo,
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "v0/tasks", body, &resp)
	return resp, err
}

// SubmitTask submits a task for review.
func (c *Client) SubmitTask(ctx context.Context, taskID string) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("v0/tasks/%s/submit", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// ReviewTask accepts or rejects a submitted task.
func (c *Client) ReviewTask(ctx context.Context, taskID, decision, message string) (Task, error) {
	body := map[string]any{
		"decision": decision,
		"message":  message,
	}
	var resp Task
	endpoint := fmt.Sprintf("v0/tasks/%s/review", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// ApplyLeave files a leave request for the acting user's employee record.
func (c *Client) ApplyLeave(ctx context.Context, leaveType, from, to, reason string) (Leave, error) {
	body := map[string]any{
		"type":       leaveType,
		"start_date": from,
		"end_date":   to,
		"reason":     reason,
	}
	var resp Leave
	err := c.do(ctx, http.MethodPost, "v0/leaves", body, &resp)
	return resp, err
}

// ApproveLeave approves a pending leave.
func (c *Client) ApproveLeave(ctx context.Context, leaveID string) (Leave, error) {
	var resp Leave
	endpoint := fmt.Sprintf("v0/leaves/%s/approve", url.PathEscape(leaveID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// Events returns recent audit events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
