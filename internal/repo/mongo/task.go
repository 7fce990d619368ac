package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskflow/task-service/internal/entity"
	"github.com/taskflow/task-service/internal/filter"
	"github.com/taskflow/task-service/pkg/logger"
)

const tasksCollection = "tasks"

type TaskRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
	logger  *logrus.Logger
}

func NewTaskRepository(db *mongo.Database, timeout time.Duration) *TaskRepository {
	return &TaskRepository{
		coll:    db.Collection(tasksCollection),
		timeout: timeout,
		logger:  logger.Log,
	}
}

// taskDocument is the stored shape; bson tags stay out of the entity.
type taskDocument struct {
	ID          string     `bson:"_id"`
	Owner       string     `bson:"owner"`
	Title       string     `bson:"title"`
	Description string     `bson:"description"`
	Status      string     `bson:"status"`
	Priority    string     `bson:"priority"`
	DueDate     *time.Time `bson:"dueDate"`
	Tags        []string   `bson:"tags"`
	Completed   bool       `bson:"completed"`
	CompletedAt *time.Time `bson:"completedAt"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt"`
}

// EnsureIndexes creates the owner-scoped indexes used by List.
func (r *TaskRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "priority", Value: 1}}},
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create task indexes: %w", err)
	}
	return nil
}

func (r *TaskRepository) Create(ctx context.Context, task entity.Task) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, toDocument(task)); err != nil {
		r.logger.WithFields(logrus.Fields{
			"method":  "Create",
			"task_id": task.ID,
		}).WithError(err).Error("Failed to insert task")
		return entity.Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) Get(ctx context.Context, id string) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var doc taskDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entity.Task{}, entity.ErrTaskNotFound
		}
		r.logger.WithFields(logrus.Fields{
			"method":  "Get",
			"task_id": id,
		}).WithError(err).Error("Failed to get task")
		return entity.Task{}, fmt.Errorf("failed to get task: %w", err)
	}
	return fromDocument(doc), nil
}

func (r *TaskRepository) List(ctx context.Context, ownerID string, f filter.Filter) ([]entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query, sort := buildListQuery(ownerID, f)
	cursor, err := r.coll.Find(ctx, query, options.Find().SetSort(sort))
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"method":   "List",
			"owner_id": ownerID,
		}).WithError(err).Error("Failed to list tasks")
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}

	tasks := make([]entity.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, fromDocument(d))
	}
	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, task entity.Task, fields []string) (entity.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc taskDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": task.ID}, buildUpdate(task, fields), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entity.Task{}, entity.ErrTaskNotFound
		}
		r.logger.WithFields(logrus.Fields{
			"method":  "Update",
			"task_id": task.ID,
		}).WithError(err).Error("Failed to update task")
		return entity.Task{}, fmt.Errorf("failed to update task: %w", err)
	}
	return fromDocument(doc), nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"method":  "Delete",
			"task_id": id,
		}).WithError(err).Error("Failed to delete task")
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return entity.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) Stats(ctx context.Context, ownerID string) (entity.TaskStats, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	byStatus, err := r.groupCount(ctx, ownerID, "status")
	if err != nil {
		return entity.TaskStats{}, err
	}
	byPriority, err := r.groupCount(ctx, ownerID, "priority")
	if err != nil {
		return entity.TaskStats{}, err
	}
	total, err := r.coll.CountDocuments(ctx, bson.M{"owner": ownerID})
	if err != nil {
		return entity.TaskStats{}, fmt.Errorf("failed to count tasks: %w", err)
	}

	return entity.TaskStats{TotalTasks: total, ByStatus: byStatus, ByPriority: byPriority}, nil
}

func (r *TaskRepository) groupCount(ctx context.Context, ownerID, field string) ([]entity.GroupCount, error) {
	cursor, err := r.coll.Aggregate(ctx, groupPipeline(ownerID, field))
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"method":   "Stats",
			"owner_id": ownerID,
			"field":    field,
		}).WithError(err).Error("Failed to aggregate tasks")
		return nil, fmt.Errorf("failed to aggregate tasks by %s: %w", field, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s groups: %w", field, err)
	}

	groups := make([]entity.GroupCount, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, entity.GroupCount{Value: row.ID, Count: row.Count})
	}
	return groups, nil
}

func groupPipeline(ownerID, field string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"owner": ownerID}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.M{"$sum": 1}},
		}}},
	}
}

// buildListQuery translates a filter into a Mongo query and sort. The search
// term is matched literally.
func buildListQuery(ownerID string, f filter.Filter) (bson.D, bson.D) {
	f = f.Normalized()

	query := bson.D{{Key: "owner", Value: ownerID}}
	if f.Status != "" {
		query = append(query, bson.E{Key: "status", Value: f.Status})
	}
	if f.Priority != "" {
		query = append(query, bson.E{Key: "priority", Value: f.Priority})
	}
	if f.Search != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
		query = append(query, bson.E{Key: "$or", Value: bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}})
	}

	dir := -1
	if f.Order == filter.Asc {
		dir = 1
	}
	sort := bson.D{{Key: f.SortBy, Value: dir}, {Key: "_id", Value: dir}}
	return query, sort
}

func buildUpdate(task entity.Task, fields []string) bson.D {
	doc := toDocument(task)
	set := bson.D{}
	for _, f := range fields {
		var v any
		switch f {
		case entity.FieldTitle:
			v = doc.Title
		case entity.FieldDescription:
			v = doc.Description
		case entity.FieldStatus:
			v = doc.Status
		case entity.FieldPriority:
			v = doc.Priority
		case entity.FieldDueDate:
			v = doc.DueDate
		case entity.FieldTags:
			v = doc.Tags
		case entity.FieldCompleted:
			v = doc.Completed
		case entity.FieldCompletedAt:
			v = doc.CompletedAt
		case entity.FieldUpdatedAt:
			v = doc.UpdatedAt
		default:
			continue
		}
		set = append(set, bson.E{Key: f, Value: v})
	}
	return bson.D{{Key: "$set", Value: set}}
}

func toDocument(t entity.Task) taskDocument {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return taskDocument{
		ID:          t.ID,
		Owner:       t.Owner,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		Tags:        tags,
		Completed:   t.Completed,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func fromDocument(d taskDocument) entity.Task {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return entity.Task{
		ID:          d.ID,
		Owner:       d.Owner,
		Title:       d.Title,
		Description: d.Description,
		Status:      entity.Status(d.Status),
		Priority:    entity.Priority(d.Priority),
		DueDate:     d.DueDate,
		Tags:        tags,
		Completed:   d.Completed,
		CompletedAt: d.CompletedAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
