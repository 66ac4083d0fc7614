package types

import "time"

// Length bounds for task fields, counted in characters after trimming.
const (
	MaxTaskTitleLength       = 200
	MaxTaskDescriptionLength = 1000
)

// Task represents a single to-do item.
// Every task has exactly one owner, set at creation and never transferred.
type Task struct {
	// ID is the unique identifier of the task. IDs are time ordered, so
	// sorting by ID breaks ties between tasks created in the same instant.
	ID string `json:"id" db:"id"`

	// OwnerID is the identifier of the user who owns the task.
	OwnerID string `json:"ownerId" db:"owner_id"`

	// Title is the short, required text of the task.
	Title string `json:"title" db:"title"`

	// Description is optional free-form detail. Empty when not provided.
	Description string `json:"description" db:"description"`

	// Completed reports whether the task has been marked done.
	Completed bool `json:"completed" db:"completed"`

	// CreatedAt is the timestamp at which the task was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent change to the task.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// TaskPatch holds a partial update to a task. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// TaskStats summarizes the tasks of one owner.
type TaskStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}
