package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskboard/apiserver/types"
)

// TaskRepository handles persistence for tasks. Every method is scoped to
// an owner: a task owned by someone else behaves exactly like a missing one.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, owner_id, title, description, completed, created_at, updated_at`

func (r *TaskRepository) List(ctx context.Context, ownerID string) ([]types.Task, error) {
	const query = `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]types.Task, 0)
	for rows.Next() {
		var task types.Task
		if err := scanTask(rows, &task); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) Get(ctx context.Context, ownerID, id string) (types.Task, error) {
	if !isUUID(id) {
		return types.Task{}, ErrNotFound
	}

	const query = `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1 AND owner_id = $2`
	return r.queryOne(ctx, query, id, ownerID)
}

func (r *TaskRepository) Create(ctx context.Context, task types.Task) (types.Task, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return types.Task{}, fmt.Errorf("generate task id: %w", err)
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	task.ID = id.String()
	task.CreatedAt = now
	task.UpdatedAt = now

	const query = `
		INSERT INTO tasks (id, owner_id, title, description, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.OwnerID,
		task.Title,
		task.Description,
		task.Completed,
		task.CreatedAt,
		task.UpdatedAt,
	); err != nil {
		return types.Task{}, err
	}
	return task, nil
}

// Update applies the non-nil fields of patch in a single statement.
func (r *TaskRepository) Update(ctx context.Context, ownerID, id string, patch types.TaskPatch) (types.Task, error) {
	if !isUUID(id) {
		return types.Task{}, ErrNotFound
	}

	const query = `
		UPDATE tasks
		SET title = COALESCE($3, title),
			description = COALESCE($4, description),
			completed = COALESCE($5, completed),
			updated_at = $6
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + taskColumns
	return r.queryOne(ctx, query,
		id,
		ownerID,
		nullString(patch.Title),
		nullString(patch.Description),
		nullBool(patch.Completed),
		time.Now().UTC().Truncate(time.Microsecond),
	)
}

// Toggle flips the completed flag in place.
func (r *TaskRepository) Toggle(ctx context.Context, ownerID, id string) (types.Task, error) {
	if !isUUID(id) {
		return types.Task{}, ErrNotFound
	}

	const query = `
		UPDATE tasks
		SET completed = NOT completed,
			updated_at = $3
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + taskColumns
	return r.queryOne(ctx, query, id, ownerID, time.Now().UTC().Truncate(time.Microsecond))
}

func (r *TaskRepository) Delete(ctx context.Context, ownerID, id string) error {
	if !isUUID(id) {
		return ErrNotFound
	}

	const query = `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) Stats(ctx context.Context, ownerID string) (types.TaskStats, error) {
	const query = `
		SELECT COUNT(1), COUNT(1) FILTER (WHERE NOT completed)
		FROM tasks
		WHERE owner_id = $1`
	var stats types.TaskStats
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&stats.Total, &stats.Pending); err != nil {
		return types.TaskStats{}, err
	}
	stats.Completed = stats.Total - stats.Pending
	return stats, nil
}

func (r *TaskRepository) queryOne(ctx context.Context, query string, args ...any) (types.Task, error) {
	var task types.Task
	if err := scanTask(r.db.QueryRowContext(ctx, query, args...), &task); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Task{}, ErrNotFound
		}
		return types.Task{}, err
	}
	return task, nil
}

// isUUID guards uuid columns: Postgres rejects malformed input with a
// syntax error, which would otherwise surface as a server failure.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner, task *types.Task) error {
	return row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Description,
		&task.Completed,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
