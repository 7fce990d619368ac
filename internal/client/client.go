// Package client talks to the task service REST API and keeps a local,
// filterable copy of the caller's tasks.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/taskflow/task-service/internal/entity"
	"github.com/taskflow/task-service/internal/filter"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
)

// APIError is a non-2xx answer of the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("task service: status %d", e.StatusCode)
	}
	return fmt.Sprintf("task service: %s (status %d)", e.Message, e.StatusCode)
}

func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusNotFound:
		return target == ErrNotFound
	case http.StatusForbidden:
		return target == ErrForbidden
	case http.StatusUnauthorized:
		return target == ErrUnauthorized
	case http.StatusBadRequest:
		return target == ErrBadRequest
	}
	return false
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithToken(token string) Option {
	return func(cl *Client) { cl.token = token }
}

// New returns a client for baseURL, e.g. http://localhost:8080/api/v1.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.token = token
}

type authData struct {
	User  entity.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates an account and keeps its token for later calls.
func (c *Client) Register(ctx context.Context, in entity.RegisterInput) (entity.User, error) {
	var data authData
	if err := c.do(ctx, http.MethodPost, "/auth/register", in, &data); err != nil {
		return entity.User{}, err
	}
	c.token = data.Token
	return data.User, nil
}

// Login keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, in entity.LoginInput) (entity.User, error) {
	var data authData
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &data); err != nil {
		return entity.User{}, err
	}
	c.token = data.Token
	return data.User, nil
}

func (c *Client) ListTasks(ctx context.Context, f filter.Filter) ([]entity.Task, error) {
	path := "/tasks"
	if q := f.Query().Encode(); q != "" {
		path += "?" + q
	}
	var data struct {
		Tasks []entity.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (entity.Task, error) {
	var data struct {
		Task entity.Task `json:"task"`
	}
	err := c.do(ctx, http.MethodGet, "/tasks/"+id, nil, &data)
	return data.Task, err
}

func (c *Client) CreateTask(ctx context.Context, in entity.TaskInput) (entity.Task, error) {
	var data struct {
		Task entity.Task `json:"task"`
	}
	err := c.do(ctx, http.MethodPost, "/tasks", in, &data)
	return data.Task, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, in entity.TaskInput) (entity.Task, error) {
	var data struct {
		Task entity.Task `json:"task"`
	}
	err := c.do(ctx, http.MethodPut, "/tasks/"+id, in, &data)
	return data.Task, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+id, nil, nil)
}

func (c *Client) Stats(ctx context.Context) (entity.TaskStats, error) {
	var stats entity.TaskStats
	err := c.do(ctx, http.MethodGet, "/tasks/stats", nil, &stats)
	return stats, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode >= 300 || env.Status == "error" {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
