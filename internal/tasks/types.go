// Package tasks serializes ledger mutations: every add/remove request
// becomes a durable task, drained by a scheduler that holds a single global
// mutation lock while the executor rewrites cells on the remote document.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TaskType identifies the logical financial operation a task performs.
type TaskType string

const (
	TaskTypeAddExpense      TaskType = "add_expense"
	TaskTypeRemoveExpense   TaskType = "remove_expense"
	TaskTypeAddIncome       TaskType = "add_income"
	TaskTypeRemoveIncome    TaskType = "remove_income"
	TaskTypeRecordBorrowing TaskType = "record_borrowing"
	TaskTypeRemoveBorrowing TaskType = "remove_borrowing"
	TaskTypeRecordRepayment TaskType = "record_repayment"
	TaskTypeRemoveRepayment TaskType = "remove_repayment"
	TaskTypeRecordSaving    TaskType = "record_saving"
	TaskTypeRemoveSaving    TaskType = "remove_saving"
)

// removalPairs maps each removal type to the originating type it is allowed
// to reverse.
var removalPairs = map[TaskType]TaskType{
	TaskTypeRemoveExpense:   TaskTypeAddExpense,
	TaskTypeRemoveIncome:    TaskTypeAddIncome,
	TaskTypeRemoveBorrowing: TaskTypeRecordBorrowing,
	TaskTypeRemoveRepayment: TaskTypeRecordRepayment,
	TaskTypeRemoveSaving:    TaskTypeRecordSaving,
}

// IsRemoval reports whether the type reverses an earlier completed task.
func (t TaskType) IsRemoval() bool {
	_, ok := removalPairs[t]
	return ok
}

// Valid reports whether the type is one of the known task types.
func (t TaskType) Valid() bool {
	if t.IsRemoval() {
		return true
	}
	for _, orig := range removalPairs {
		if t == orig {
			return true
		}
	}
	return false
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

var (
	// ErrTaskNotFound indicates an unknown task id.
	ErrTaskNotFound = errors.New("tasks: task not found")
	// ErrNotCompleted indicates a removal referencing a task that has not
	// completed yet; the caller must wait for the original to resolve.
	ErrNotCompleted = errors.New("tasks: referenced task not completed")
	// ErrTypeMismatch indicates a removal referencing a task of the wrong
	// originating type.
	ErrTypeMismatch = errors.New("tasks: referenced task type mismatch")
)

// Task is the durable record of one mutation request. Tasks are never
// deleted: a completed task is the reversal record a later removal task
// resolves against.
type Task struct {
	TaskID    string          `json:"task_id"`
	Priority  int             `json:"priority"`
	Type      TaskType        `json:"task_type"`
	Payload   json.RawMessage `json:"payload"`
	OwnerID   string          `json:"owner_id"`
	Status    TaskStatus      `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Result is the executor's outcome for a completed task. Date carries the
// ledger day the mutation touched so cache invalidation can target it.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Date    string `json:"date,omitempty"`
}

// ExpensePayload targets one expense subcategory cell on one day.
type ExpensePayload struct {
	Date        string          `json:"date"`
	Section     string          `json:"section"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Amount      decimal.Decimal `json:"amount"`
	Comment     string          `json:"comment,omitempty"`
}

// IncomePayload targets an income category (or subcategory) cell.
type IncomePayload struct {
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Comment     string          `json:"comment,omitempty"`
}

// CreditorPayload targets one of a creditor's derived balance rows.
type CreditorPayload struct {
	Date     string          `json:"date"`
	Creditor string          `json:"creditor"`
	Amount   decimal.Decimal `json:"amount"`
	Comment  string          `json:"comment,omitempty"`
}

// RemovalPayload references the completed task being reversed.
type RemovalPayload struct {
	TaskID string `json:"task_id"`
}

// Filter selects tasks when listing.
type Filter struct {
	OwnerID string
	Status  TaskStatus
	Type    TaskType
	Limit   int
	Offset  int
}

// Store is the durable task record, surviving process restarts. It is the
// source of truth for removal validation.
type Store interface {
	// CreateTask persists a new task.
	CreateTask(ctx context.Context, task *Task) error

	// GetTask retrieves a task by id, ErrTaskNotFound when absent.
	GetTask(ctx context.Context, taskID string) (*Task, error)

	// UpdateTaskStatus transitions a task, recording the result or error.
	UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, result json.RawMessage, errMsg string) error

	// ListTasks retrieves tasks matching the filter, newest first.
	ListTasks(ctx context.Context, filter Filter) ([]*Task, error)
}
