package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskboard/apiserver/types"
)

// MemoryUserRepository is an in-memory user store used with
// STORE_DRIVER=memory and in tests. It enforces the same email uniqueness
// as the Postgres schema.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	users   map[string]types.User // keyed by ID
	byEmail map[string]string     // email -> ID
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:   make(map[string]types.User),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryUserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (m *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *MemoryUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[user.Email]; exists {
		return types.User{}, ErrDuplicate
	}

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	m.users[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return user, nil
}

func (m *MemoryUserRepository) Ping(ctx context.Context) error {
	return nil
}

// MemoryTaskRepository is an in-memory task store. Mutations happen under a
// single lock, which gives the same per-record atomicity as the SQL store.
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]types.Task // keyed by ID
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks: make(map[string]types.Task),
	}
}

func (m *MemoryTaskRepository) List(ctx context.Context, ownerID string) ([]types.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tasks := make([]types.Task, 0)
	for _, task := range m.tasks {
		if task.OwnerID == ownerID {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID > tasks[j].ID
	})
	return tasks, nil
}

func (m *MemoryTaskRepository) Get(ctx context.Context, ownerID, id string) (types.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.owned(ownerID, id)
}

func (m *MemoryTaskRepository) Create(ctx context.Context, task types.Task) (types.Task, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return types.Task{}, fmt.Errorf("generate task id: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	task.ID = id.String()
	task.CreatedAt = now
	task.UpdatedAt = now
	m.tasks[task.ID] = task
	return task, nil
}

func (m *MemoryTaskRepository) Update(ctx context.Context, ownerID, id string, patch types.TaskPatch) (types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, err := m.owned(ownerID, id)
	if err != nil {
		return types.Task{}, err
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	task.UpdatedAt = time.Now().UTC()
	m.tasks[id] = task
	return task, nil
}

func (m *MemoryTaskRepository) Toggle(ctx context.Context, ownerID, id string) (types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, err := m.owned(ownerID, id)
	if err != nil {
		return types.Task{}, err
	}
	task.Completed = !task.Completed
	task.UpdatedAt = time.Now().UTC()
	m.tasks[id] = task
	return task, nil
}

func (m *MemoryTaskRepository) Delete(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.owned(ownerID, id); err != nil {
		return err
	}
	delete(m.tasks, id)
	return nil
}

func (m *MemoryTaskRepository) Stats(ctx context.Context, ownerID string) (types.TaskStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats types.TaskStats
	for _, task := range m.tasks {
		if task.OwnerID != ownerID {
			continue
		}
		stats.Total++
		if task.Completed {
			stats.Completed++
		} else {
			stats.Pending++
		}
	}
	return stats, nil
}

// owned must be called with the lock held.
func (m *MemoryTaskRepository) owned(ownerID, id string) (types.Task, error) {
	task, ok := m.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return types.Task{}, ErrNotFound
	}
	return task, nil
}
