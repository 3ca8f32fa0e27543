// Package client talks to the task HTTP API and keeps the optimistic local
// state the terminal UI renders.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"task_webapp/internal/domain"
)

// APIError is a non-2xx response. Message is the body's "message", empty
// when the body could not be read.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// ServerMessage returns the server's message when err is an *APIError that
// carries one, else fallback.
func ServerMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// CreateRequest is the body of POST /tasks. DueDate is an RFC 3339 string.
type CreateRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
}

// API is a client for the /tasks endpoints.
type API struct {
	baseURL string
	http    *http.Client
}

// NewAPI returns a client for baseURL (for example http://localhost:8080).
// A nil hc uses a client with a 10s timeout.
func NewAPI(baseURL string, hc *http.Client) *API {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (a *API) List(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := a.do(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

func (a *API) Create(ctx context.Context, req CreateRequest) (*domain.Task, error) {
	var task domain.Task
	if err := a.do(ctx, http.MethodPost, "/tasks", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update sends a partial update. Only the keys present in fields are sent.
func (a *API) Update(ctx context.Context, id int64, fields map[string]any) (*domain.Task, error) {
	var task domain.Task
	if err := a.do(ctx, http.MethodPatch, taskPath(id), fields, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (a *API) SetCompleted(ctx context.Context, id int64, completed bool) (*domain.Task, error) {
	return a.Update(ctx, id, map[string]any{"completed": completed})
}

func (a *API) Delete(ctx context.Context, id int64) error {
	return a.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}

func (a *API) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
