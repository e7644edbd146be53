package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sfohq/sop-assistant/internal/port"
)

const apiBase = "https://api.todoist.com/rest/v2"

// Todoist implements port.TaskSink against the Todoist REST API. Tasks land
// in the configured project, resolved by name on first use.
type Todoist struct {
	token       string
	projectName string
	baseURL     string
	httpClient  *http.Client

	mu        sync.Mutex
	projectID string
}

// NewTodoist creates a Todoist sink. A missing token is a configuration
// error.
func NewTodoist(token, projectName string) (*Todoist, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: TODOIST_API_TOKEN is missing", port.ErrInvalidConfig)
	}
	return &Todoist{
		token:       token,
		projectName: projectName,
		baseURL:     apiBase,
		httpClient:  &http.Client{Timeout: 20 * time.Second},
	}, nil
}

// CreateTask creates a task in the configured project and returns its ID.
func (t *Todoist) CreateTask(ctx context.Context, title, description string) (string, error) {
	projectID, err := t.resolveProjectID(ctx)
	if err != nil {
		return "", err
	}

	payload := map[string]string{"content": title}
	if description != "" {
		payload["description"] = description
	}
	if projectID != "" {
		payload["project_id"] = projectID
	}

	var task struct {
		ID string `json:"id"`
	}
	if err := t.post(ctx, "/tasks", payload, &task); err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	return task.ID, nil
}

// AddComment attaches a comment to a task and returns the comment ID.
func (t *Todoist) AddComment(ctx context.Context, taskID, content string) (string, error) {
	payload := map[string]string{"task_id": taskID, "content": content}
	var comment struct {
		ID string `json:"id"`
	}
	if err := t.post(ctx, "/comments", payload, &comment); err != nil {
		return "", fmt.Errorf("add comment: %w", err)
	}
	return comment.ID, nil
}

// resolveProjectID looks up the configured project by name once and caches
// the result. An empty project name falls through to the user's inbox.
func (t *Todoist) resolveProjectID(ctx context.Context) (string, error) {
	if t.projectName == "" {
		return "", nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.projectID != "" {
		return t.projectID, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/projects", nil)
	if err != nil {
		return "", fmt.Errorf("list projects: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.token)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("list projects: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("list projects: %s", resp.Status)
	}

	var projects []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&projects); err != nil {
		return "", fmt.Errorf("decode projects: %w", err)
	}
	for _, p := range projects {
		if p.Name == t.projectName {
			t.projectID = p.ID
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("todoist project not found: %s", t.projectName)
}

func (t *Todoist) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
