package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/task-service/internal/auth"
	"github.com/taskflow/task-service/internal/repo/memory"
	"github.com/taskflow/task-service/internal/usecase"
)

type envelope struct {
	Status  string               `json:"status"`
	Message string               `json:"message"`
	Results *int                 `json:"results"`
	Errors  []usecase.FieldError `json:"errors"`
	Data    json.RawMessage      `json:"data"`
}

type testServer struct {
	t      *testing.T
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	jwtManager := auth.NewJWTManager(auth.JWTConfig{Secret: "test-secret", TTL: time.Hour, Issuer: "task-service"})
	taskUC := usecase.NewTaskUseCase(memory.NewTaskRepository(), nil, nil)
	userUC := usecase.NewUserUseCase(memory.NewUserRepository(), auth.NewPasswordHasher(4), jwtManager)
	return &testServer{t: t, router: NewRouter(taskUC, userUC, jwtManager, RouterConfig{Quiet: true})}
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (s *testServer) register(name, email string) string {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	var data AuthData
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(s.t, data.Token)
	return data.Token
}

func (s *testServer) createTask(token string, body map[string]any) map[string]any {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/api/v1/tasks", token, body)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	var data struct {
		Task map[string]any `json:"task"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data.Task
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	s.register("Alice", "Alice@Example.com")

	rec, env := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Other", "email": "alice@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "error", env.Status)

	rec, env = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var data AuthData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "alice@example.com", data.User.Email)
	assert.NotContains(t, string(env.Data), "secret123")

	rec, _ = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "A", "email": "not-an-email", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, env.Errors, 3)
}

func TestTasksRequireToken(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(http.MethodGet, "/api/v1/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "error", env.Status)

	rec, _ = s.do(http.MethodGet, "/api/v1/tasks", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateTaskDefaults(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Alice", "alice@example.com")

	rec, env := s.do(http.MethodPost, "/api/v1/tasks", token, map[string]any{"title": "Write report"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, "Task created successfully", env.Message)

	var data TaskData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "Write report", data.Task.Title)
	assert.EqualValues(t, "pending", data.Task.Status)
	assert.EqualValues(t, "medium", data.Task.Priority)
	assert.False(t, data.Task.Completed)
	assert.Nil(t, data.Task.CompletedAt)
	assert.Equal(t, []string{}, data.Task.Tags)
}

func TestCreateTaskRejectsBadInput(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Alice", "alice@example.com")

	rec, _ := s.do(http.MethodPost, "/api/v1/tasks", token, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := s.do(http.MethodPost, "/api/v1/tasks", token, map[string]any{"title": strings.Repeat("x", 101)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "title", env.Errors[0].Field)

	rec, _ = s.do(http.MethodPost, "/api/v1/tasks", token, map[string]any{"title": "ok", "status": "done"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskOwnership(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("Alice", "alice@example.com")
	bob := s.register("Bob", "bob@example.com")
	task := s.createTask(alice, map[string]any{"title": "Private"})
	path := "/api/v1/tasks/" + task["id"].(string)

	rec, env := s.do(http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not authorized to access this task", env.Message)

	rec, env = s.do(http.MethodPut, path, bob, map[string]any{"title": "Mine"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not authorized to update this task", env.Message)

	rec, env = s.do(http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not authorized to delete this task", env.Message)

	rec, env = s.do(http.MethodGet, "/api/v1/tasks", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Results)
	assert.Equal(t, 0, *env.Results)

	rec, env = s.do(http.MethodGet, "/api/v1/tasks/does-not-exist", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Task not found", env.Message)
}

func TestUpdateAndDeleteTask(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Alice", "alice@example.com")
	task := s.createTask(token, map[string]any{"title": "Ship", "dueDate": "2024-06-01"})
	path := "/api/v1/tasks/" + task["id"].(string)

	rec, env := s.do(http.MethodPut, path, token, map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Task updated successfully", env.Message)
	var data TaskData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.Task.Completed)
	assert.NotNil(t, data.Task.CompletedAt)
	assert.Equal(t, "Ship", data.Task.Title)
	require.NotNil(t, data.Task.DueDate)

	rec, env = s.do(http.MethodPut, path, token, map[string]any{"dueDate": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Nil(t, data.Task.DueDate)
	assert.True(t, data.Task.Completed)

	rec, env = s.do(http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Task deleted successfully", env.Message)
	assert.Equal(t, "null", string(env.Data))

	rec, _ = s.do(http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListFiltersAndStats(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Alice", "alice@example.com")
	s.createTask(token, map[string]any{"title": "Alpha report", "priority": "high"})
	s.createTask(token, map[string]any{"title": "Beta", "status": "in-progress", "priority": "low"})
	s.createTask(token, map[string]any{"title": "Gamma", "description": "the REPORT draft", "status": "completed"})

	rec, env := s.do(http.MethodGet, "/api/v1/tasks?search=report&sortBy=title&order=asc", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Results)
	assert.Equal(t, 2, *env.Results)
	var list TaskListData
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Tasks, 2)
	assert.Equal(t, "Alpha report", list.Tasks[0].Title)
	assert.Equal(t, "Gamma", list.Tasks[1].Title)

	rec, env = s.do(http.MethodGet, "/api/v1/tasks?status=in-progress", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, *env.Results)

	rec, env = s.do(http.MethodGet, "/api/v1/tasks/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"totalTasks": 3,
		"byStatus": [
			{"_id": "pending", "count": 1},
			{"_id": "in-progress", "count": 1},
			{"_id": "completed", "count": 1}
		],
		"byPriority": [
			{"_id": "low", "count": 1},
			{"_id": "medium", "count": 1},
			{"_id": "high", "count": 1}
		]
	}`, string(env.Data))
}

func TestProfile(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Alice", "alice@example.com")

	rec, env := s.do(http.MethodPut, "/api/v1/auth/profile", token, map[string]any{"name": "Alice Smith"})
	require.Equal(t, http.StatusOK, rec.Code)
	var data AuthData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "Alice Smith", data.User.Name)

	rec, env = s.do(http.MethodGet, "/api/v1/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "Alice Smith", data.User.Name)
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())

	rec, _ = s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "task_service_http_requests_total")
}
