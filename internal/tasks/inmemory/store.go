// Package inmemory provides a map-backed task store, safe for concurrent
// use. Records are lost on restart; production uses the sqlite store.
package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/Artemka2031/finance-control-sub000/internal/tasks"
)

// Store is an in-memory implementation of tasks.Store.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*tasks.Task
}

// NewStore creates a new in-memory task store.
func NewStore() *Store {
	return &Store{tasks: make(map[string]*tasks.Task)}
}

// CreateTask implements the tasks.Store interface.
func (s *Store) CreateTask(ctx context.Context, task *tasks.Task) error {
	if task.TaskID == "" {
		return fmt.Errorf("task id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.TaskID]; exists {
		return fmt.Errorf("task already exists: %s", task.TaskID)
	}
	taskCopy := *task
	s.tasks[task.TaskID] = &taskCopy
	return nil
}

// GetTask implements the tasks.Store interface.
func (s *Store) GetTask(ctx context.Context, taskID string) (*tasks.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", tasks.ErrTaskNotFound, taskID)
	}
	taskCopy := *task
	return &taskCopy, nil
}

// UpdateTaskStatus implements the tasks.Store interface.
func (s *Store) UpdateTaskStatus(ctx context.Context, taskID string, status tasks.TaskStatus, result json.RawMessage, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return fmt.Errorf("%w: %s", tasks.ErrTaskNotFound, taskID)
	}
	task.Status = status
	task.Result = result
	task.Error = errMsg
	return nil
}

// ListTasks implements the tasks.Store interface.
func (s *Store) ListTasks(ctx context.Context, filter tasks.Filter) ([]*tasks.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*tasks.Task
	for _, task := range s.tasks {
		if filter.OwnerID != "" && task.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Type != "" && task.Type != filter.Type {
			continue
		}
		taskCopy := *task
		result = append(result, &taskCopy)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*tasks.Task{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Ensure Store implements the tasks.Store interface.
var _ tasks.Store = (*Store)(nil)
