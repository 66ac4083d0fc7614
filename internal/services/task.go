package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/taskboard/apiserver/types"
)

// TaskRepository defines owner-scoped persistence operations for tasks.
type TaskRepository interface {
	List(ctx context.Context, ownerID string) ([]types.Task, error)
	Get(ctx context.Context, ownerID, id string) (types.Task, error)
	Create(ctx context.Context, task types.Task) (types.Task, error)
	Update(ctx context.Context, ownerID, id string, patch types.TaskPatch) (types.Task, error)
	Toggle(ctx context.Context, ownerID, id string) (types.Task, error)
	Delete(ctx context.Context, ownerID, id string) error
	Stats(ctx context.Context, ownerID string) (types.TaskStats, error)
}

// TaskService encapsulates task use-cases. Every call is scoped to ownerID.
type TaskService struct {
	repo TaskRepository
}

func NewTaskService(repo TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

func (s *TaskService) List(ctx context.Context, ownerID string) ([]types.Task, error) {
	return s.repo.List(ctx, ownerID)
}

func (s *TaskService) Create(ctx context.Context, ownerID, title, description string) (types.Task, error) {
	title, err := validateTitle(title)
	if err != nil {
		return types.Task{}, err
	}
	description, err = validateDescription(description)
	if err != nil {
		return types.Task{}, err
	}

	return s.repo.Create(ctx, types.Task{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
	})
}

// Update applies the present fields of patch. An empty patch returns the
// task unchanged.
func (s *TaskService) Update(ctx context.Context, ownerID, id string, patch types.TaskPatch) (types.Task, error) {
	if patch.Title != nil {
		title, err := validateTitle(*patch.Title)
		if err != nil {
			return types.Task{}, err
		}
		patch.Title = &title
	}
	if patch.Description != nil {
		description, err := validateDescription(*patch.Description)
		if err != nil {
			return types.Task{}, err
		}
		patch.Description = &description
	}

	if patch.IsEmpty() {
		return s.repo.Get(ctx, ownerID, id)
	}
	return s.repo.Update(ctx, ownerID, id, patch)
}

func (s *TaskService) Toggle(ctx context.Context, ownerID, id string) (types.Task, error) {
	return s.repo.Toggle(ctx, ownerID, id)
}

func (s *TaskService) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.Delete(ctx, ownerID, id)
}

func (s *TaskService) Stats(ctx context.Context, ownerID string) (types.TaskStats, error) {
	return s.repo.Stats(ctx, ownerID)
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", validationError("text", "todo text is required")
	}
	if utf8.RuneCountInString(title) > types.MaxTaskTitleLength {
		return "", validationError("text", fmt.Sprintf("must be at most %d characters", types.MaxTaskTitleLength))
	}
	return title, nil
}

func validateDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > types.MaxTaskDescriptionLength {
		return "", validationError("description", fmt.Sprintf("must be at most %d characters", types.MaxTaskDescriptionLength))
	}
	return description, nil
}
