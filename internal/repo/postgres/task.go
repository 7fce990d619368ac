package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/taskflow/task-service/internal/entity"
	"github.com/taskflow/task-service/internal/filter"
	"github.com/taskflow/task-service/pkg/logger"
)

const taskColumns = `id, owner_id, title, description, status, priority, due_date, tags,
	completed, completed_at, created_at, updated_at`

// sortColumns maps filter sort fields to columns. Text columns use the C
// collation so ordering is bytewise.
var sortColumns = map[string]string{
	filter.SortCreatedAt:   "created_at",
	filter.SortUpdatedAt:   "updated_at",
	filter.SortDueDate:     "due_date",
	filter.SortCompletedAt: "completed_at",
	filter.SortTitle:       `title COLLATE "C"`,
	filter.SortDescription: `description COLLATE "C"`,
	filter.SortStatus:      `status COLLATE "C"`,
	filter.SortPriority:    `priority COLLATE "C"`,
}

var updateColumns = map[string]string{
	entity.FieldTitle:       "title",
	entity.FieldDescription: "description",
	entity.FieldStatus:      "status",
	entity.FieldPriority:    "priority",
	entity.FieldDueDate:     "due_date",
	entity.FieldTags:        "tags",
	entity.FieldCompleted:   "completed",
	entity.FieldCompletedAt: "completed_at",
	entity.FieldUpdatedAt:   "updated_at",
}

type TaskRepository struct {
	db      *pgxpool.Pool
	timeout time.Duration
	logger  *logrus.Logger
}

func NewTaskRepository(db *pgxpool.Pool, timeout time.Duration) *TaskRepository {
	return &TaskRepository{
		db:      db,
		timeout: timeout,
		logger:  logger.Log,
	}
}

func (r *TaskRepository) Create(ctx context.Context, task entity.Task) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + taskColumns

	id, err := uuid.Parse(task.ID)
	if err != nil {
		return entity.Task{}, fmt.Errorf("invalid task id %q: %w", task.ID, err)
	}
	owner, err := uuid.Parse(task.Owner)
	if err != nil {
		return entity.Task{}, fmt.Errorf("invalid owner id %q: %w", task.Owner, err)
	}
	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}
	created, err := scanTask(r.db.QueryRow(ctx, query,
		id,
		owner,
		task.Title,
		task.Description,
		string(task.Status),
		string(task.Priority),
		task.DueDate,
		tags,
		task.Completed,
		task.CompletedAt,
		task.CreatedAt,
		task.UpdatedAt,
	))
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"method":  "Create",
			"task_id": task.ID,
			"title":   task.Title,
		}).WithError(err).Error("Failed to create task")
		return entity.Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	return created, nil
}

func (r *TaskRepository) Get(ctx context.Context, id string) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return entity.Task{}, entity.ErrTaskNotFound
	}

	task, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, parsedID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Task{}, entity.ErrTaskNotFound
		}
		r.logger.WithFields(logrus.Fields{
			"method":  "Get",
			"task_id": id,
		}).WithError(err).Error("Failed to get task")
		return entity.Task{}, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) List(ctx context.Context, ownerID string, f filter.Filter) ([]entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return []entity.Task{}, nil
	}

	query, args := buildListQuery(owner, f)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"method":   "List",
			"owner_id": ownerID,
		}).WithError(err).Error("Failed to list tasks")
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []entity.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"method": "List",
			}).WithError(err).Error("Failed to scan task row")
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, task entity.Task, fields []string) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	id, err := uuid.Parse(task.ID)
	if err != nil {
		return entity.Task{}, entity.ErrTaskNotFound
	}

	query, args := buildUpdate(id, task, fields)
	updated, err := scanTask(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Task{}, entity.ErrTaskNotFound
		}
		r.logger.WithFields(logrus.Fields{
			"method":  "Update",
			"task_id": task.ID,
		}).WithError(err).Error("Failed to update task")
		return entity.Task{}, fmt.Errorf("failed to update task: %w", err)
	}
	return updated, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return entity.ErrTaskNotFound
	}

	result, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, parsedID)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"method":  "Delete",
			"task_id": id,
		}).WithError(err).Error("Failed to delete task")
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return entity.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) Stats(ctx context.Context, ownerID string) (entity.TaskStats, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stats := entity.TaskStats{ByStatus: []entity.GroupCount{}, ByPriority: []entity.GroupCount{}}
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return stats, nil
	}

	if stats.ByStatus, err = r.groupCount(ctx, owner, "status"); err != nil {
		return entity.TaskStats{}, err
	}
	if stats.ByPriority, err = r.groupCount(ctx, owner, "priority"); err != nil {
		return entity.TaskStats{}, err
	}
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM tasks WHERE owner_id = $1`, owner).Scan(&stats.TotalTasks); err != nil {
		return entity.TaskStats{}, fmt.Errorf("failed to count tasks: %w", err)
	}
	return stats, nil
}

// column is one of the fixed names status or priority.
func (r *TaskRepository) groupCount(ctx context.Context, owner uuid.UUID, column string) ([]entity.GroupCount, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+column+`, count(*) FROM tasks WHERE owner_id = $1 GROUP BY `+column, owner)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"method":   "Stats",
			"owner_id": owner,
			"column":   column,
		}).WithError(err).Error("Failed to aggregate tasks")
		return nil, fmt.Errorf("failed to aggregate tasks by %s: %w", column, err)
	}
	defer rows.Close()

	groups := []entity.GroupCount{}
	for rows.Next() {
		var g entity.GroupCount
		if err := rows.Scan(&g.Value, &g.Count); err != nil {
			return nil, fmt.Errorf("failed to scan %s group: %w", column, err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func buildListQuery(owner uuid.UUID, f filter.Filter) (string, []any) {
	f = f.Normalized()

	var sb strings.Builder
	sb.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1`)
	args := []any{owner}
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Status != "" {
		sb.WriteString(` AND status = ` + next(f.Status))
	}
	if f.Priority != "" {
		sb.WriteString(` AND priority = ` + next(f.Priority))
	}
	if f.Search != "" {
		p := next(f.Search)
		sb.WriteString(` AND (strpos(lower(title), lower(` + p + `)) > 0 OR strpos(lower(description), lower(` + p + `)) > 0)`)
	}

	dir, nulls := "DESC", "NULLS LAST"
	if f.Order == filter.Asc {
		dir, nulls = "ASC", "NULLS FIRST"
	}
	sb.WriteString(` ORDER BY ` + sortColumns[f.SortBy] + ` ` + dir + ` ` + nulls + `, id ` + dir)
	return sb.String(), args
}

func buildUpdate(id uuid.UUID, task entity.Task, fields []string) (string, []any) {
	args := []any{id}
	var sets []string
	for _, f := range fields {
		col, ok := updateColumns[f]
		if !ok {
			continue
		}
		args = append(args, fieldValue(task, f))
		sets = append(sets, col+` = $`+strconv.Itoa(len(args)))
	}
	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + taskColumns
	return query, args
}

func fieldValue(t entity.Task, field string) any {
	switch field {
	case entity.FieldTitle:
		return t.Title
	case entity.FieldDescription:
		return t.Description
	case entity.FieldStatus:
		return string(t.Status)
	case entity.FieldPriority:
		return string(t.Priority)
	case entity.FieldDueDate:
		return t.DueDate
	case entity.FieldTags:
		if t.Tags == nil {
			return []string{}
		}
		return t.Tags
	case entity.FieldCompleted:
		return t.Completed
	case entity.FieldCompletedAt:
		return t.CompletedAt
	default:
		return t.UpdatedAt
	}
}

func scanTask(row pgx.Row) (entity.Task, error) {
	var (
		t                entity.Task
		id, owner        uuid.UUID
		status, priority string
		dueDate, doneAt  *time.Time
	)
	err := row.Scan(&id, &owner, &t.Title, &t.Description, &status, &priority, &dueDate, &t.Tags,
		&t.Completed, &doneAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return entity.Task{}, err
	}

	t.ID = id.String()
	t.Owner = owner.String()
	t.Status = entity.Status(status)
	t.Priority = entity.Priority(priority)
	t.DueDate = utcPtr(dueDate)
	t.CompletedAt = utcPtr(doneAt)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
