package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/taskflow/task-service/internal/entity"
	"github.com/taskflow/task-service/internal/filter"
	"github.com/taskflow/task-service/internal/usecase"
	"github.com/taskflow/task-service/pkg/logger"
)

type TaskData struct {
	Task entity.Task `json:"task"`
}

type TaskListData struct {
	Tasks []entity.Task `json:"tasks"`
}

// TaskHandler serves the task endpoints of the authenticated user.
type TaskHandler struct {
	taskUseCase usecase.TaskUseCase
}

func NewTaskHandler(taskUseCase usecase.TaskUseCase) *TaskHandler {
	return &TaskHandler{
		taskUseCase: taskUseCase,
	}
}

// RegisterRoutes expects to be mounted behind Authenticate.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.Post("/", h.CreateTask)
		r.Get("/stats", h.TaskStats)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTask)
			r.Put("/", h.UpdateTask)
			r.Delete("/", h.DeleteTask)
		})
	})
}

// ListTasks godoc
// @Summary      List tasks
// @Description  Returns the caller's tasks, filtered and sorted by the query parameters
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        status    query    string false "Filter by status" Enums(pending, in-progress, completed)
// @Param        priority  query    string false "Filter by priority" Enums(low, medium, high)
// @Param        search    query    string false "Case-insensitive substring of title or description"
// @Param        sortBy    query    string false "Sort field" default(createdAt)
// @Param        order     query    string false "Sort direction" Enums(asc, desc) default(desc)
// @Success      200  {object} Response{data=TaskListData}
// @Failure      401  {object} Response
// @Failure      500  {object} Response
// @Router       /tasks [get]
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	f := filter.FromQuery(r.URL.Query())

	tasks, err := h.taskUseCase.List(r.Context(), UserID(r.Context()), f)
	if err != nil {
		respondWithUseCaseError(w, r, err, "")
		return
	}

	results := len(tasks)
	respondWithJSON(w, http.StatusOK, Response{
		Status:  statusSuccess,
		Results: &results,
		Data:    TaskListData{Tasks: tasks},
	})
}

// GetTask godoc
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "Task ID"
// @Success      200  {object} Response{data=TaskData}
// @Failure      403  {object} Response
// @Failure      404  {object} Response
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, err := h.taskUseCase.Get(r.Context(), UserID(r.Context()), id)
	if err != nil {
		respondWithUseCaseError(w, r, err, "Not authorized to access this task")
		return
	}

	respondWithData(w, http.StatusOK, "", TaskData{Task: task})
}

// CreateTask godoc
// @Summary      Create a task
// @Description  Missing status and priority default to pending and medium
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        task body     entity.TaskInput true "Task fields"
// @Success      201  {object} Response{data=TaskData}
// @Failure      400  {object} Response
// @Router       /tasks [post]
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var in entity.TaskInput
	if err := decodeJSON(r, &in); err != nil {
		logger.Log.WithError(err).Warn("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	task, err := h.taskUseCase.Create(r.Context(), UserID(r.Context()), in)
	if err != nil {
		respondWithUseCaseError(w, r, err, "")
		return
	}

	respondWithData(w, http.StatusCreated, "Task created successfully", TaskData{Task: task})
}

// UpdateTask godoc
// @Summary      Update a task
// @Description  Only the fields present in the body change. A null dueDate clears it.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string           true "Task ID"
// @Param        task body     entity.TaskInput true "Fields to change"
// @Success      200  {object} Response{data=TaskData}
// @Failure      400  {object} Response
// @Failure      403  {object} Response
// @Failure      404  {object} Response
// @Router       /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in entity.TaskInput
	if err := decodeJSON(r, &in); err != nil {
		logger.Log.WithFields(logrus.Fields{"task_id": id}).WithError(err).Warn("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	task, err := h.taskUseCase.Update(r.Context(), UserID(r.Context()), id, in)
	if err != nil {
		respondWithUseCaseError(w, r, err, "Not authorized to update this task")
		return
	}

	respondWithData(w, http.StatusOK, "Task updated successfully", TaskData{Task: task})
}

// DeleteTask godoc
// @Summary      Delete a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "Task ID"
// @Success      200  {object} Response
// @Failure      403  {object} Response
// @Failure      404  {object} Response
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.taskUseCase.Delete(r.Context(), UserID(r.Context()), id); err != nil {
		respondWithUseCaseError(w, r, err, "Not authorized to delete this task")
		return
	}

	respondWithData(w, http.StatusOK, "Task deleted successfully", nil)
}

// TaskStats godoc
// @Summary      Task statistics
// @Description  Total count plus counts per status and per priority. Empty groups are omitted.
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} Response{data=entity.TaskStats}
// @Router       /tasks/stats [get]
func (h *TaskHandler) TaskStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.taskUseCase.Stats(r.Context(), UserID(r.Context()))
	if err != nil {
		respondWithUseCaseError(w, r, err, "")
		return
	}

	respondWithData(w, http.StatusOK, "", stats)
}
