// Package sqlite provides the durable task store. Tasks survive process
// restarts and are never deleted: completed records serve as the reversal
// reference for later removal tasks.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Artemka2031/finance-control-sub000/internal/tasks"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS tasks (
	task_id     TEXT PRIMARY KEY,
	priority    INTEGER NOT NULL,
	task_type   TEXT NOT NULL,
	payload     TEXT NOT NULL,
	owner_id    TEXT NOT NULL,
	status      TEXT NOT NULL,
	result      TEXT,
	error       TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id);
`

// Store is a sqlite-backed implementation of tasks.Store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the task database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open task db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping task db: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate task db: %w", err)
	}
	// One writer at a time keeps sqlite's locking out of the picture.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTask implements the tasks.Store interface.
func (s *Store) CreateTask(ctx context.Context, task *tasks.Task) error {
	if task.TaskID == "" {
		return fmt.Errorf("task id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (task_id, priority, task_type, payload, owner_id, status, result, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.TaskID,
		task.Priority,
		string(task.Type),
		string(task.Payload),
		task.OwnerID,
		string(task.Status),
		nullableJSON(task.Result),
		task.Error,
		task.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert task %s: %w", task.TaskID, err)
	}
	return nil
}

// GetTask implements the tasks.Store interface.
func (s *Store) GetTask(ctx context.Context, taskID string) (*tasks.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT task_id, priority, task_type, payload, owner_id, status, result, error, created_at
		FROM tasks WHERE task_id = ?`, taskID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", tasks.ErrTaskNotFound, taskID)
	}
	return task, err
}

// UpdateTaskStatus implements the tasks.Store interface.
func (s *Store) UpdateTaskStatus(ctx context.Context, taskID string, status tasks.TaskStatus, result json.RawMessage, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, result = ?, error = ? WHERE task_id = ?`,
		string(status), nullableJSON(result), errMsg, taskID)
	if err != nil {
		return fmt.Errorf("update task %s: %w", taskID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", tasks.ErrTaskNotFound, taskID)
	}
	return nil
}

// ListTasks implements the tasks.Store interface.
func (s *Store) ListTasks(ctx context.Context, filter tasks.Filter) ([]*tasks.Task, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT task_id, priority, task_type, payload, owner_id, status, result, error, created_at
		FROM tasks`)
	var conds []string
	var args []any
	if filter.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		conds = append(conds, "task_type = ?")
		args = append(args, string(filter.Type))
	}
	if len(conds) > 0 {
		query.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	query.WriteString(" ORDER BY created_at DESC")
	if filter.Limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query.WriteString(" OFFSET ?")
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var result []*tasks.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*tasks.Task, error) {
	var (
		task      tasks.Task
		taskType  string
		payload   string
		status    string
		result    sql.NullString
		createdAt string
	)
	err := row.Scan(&task.TaskID, &task.Priority, &taskType, &payload, &task.OwnerID, &status, &result, &task.Error, &createdAt)
	if err != nil {
		return nil, err
	}
	task.Type = tasks.TaskType(taskType)
	task.Payload = json.RawMessage(payload)
	task.Status = tasks.TaskStatus(status)
	if result.Valid && result.String != "" {
		task.Result = json.RawMessage(result.String)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		task.CreatedAt = t
	}
	return &task, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// Ensure Store implements the tasks.Store interface.
var _ tasks.Store = (*Store)(nil)
