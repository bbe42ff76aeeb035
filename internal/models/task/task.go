package task

import (
	"time"
)

type Task struct {
	ID          int64      `json:"id" db:"id"`
	GroupID     int64      `json:"group_id" db:"group_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Priority    Priority   `json:"priority" db:"priority"`
	Status      Status     `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	CreatedBy   *int64     `json:"created_by,omitempty" db:"created_by"`
	CompletedBy *int64     `json:"completed_by,omitempty" db:"completed_by"`
	Solution    string     `json:"solution" db:"solution"`
}

type Status string
type Priority string

const StatusTodo Status = "todo"
const StatusDone Status = "done"

const PriorityLow Priority = "low"
const PriorityNormal Priority = "normal"
const PriorityHigh Priority = "high"

// SystemSolution отличает автоматическое завершение от завершения человеком
const SystemSolution = "Automatic Return"

func (s Status) Valid() bool {
	return s == StatusTodo || s == StatusDone
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

func (t *Task) IsDone() bool {
	return t.Status == StatusDone
}

// IsSystemCompleted - задача закрыта сканером, а не человеком
func (t *Task) IsSystemCompleted() bool {
	return t.IsDone() && t.CompletedBy == nil && t.Solution == SystemSolution
}

// Clone нужен хранилищу в памяти и локальному снимку клиента
func (t *Task) Clone() *Task {
	c := *t
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.ScheduledAt = cloneTime(t.ScheduledAt)
	c.CreatedBy = cloneID(t.CreatedBy)
	c.CompletedBy = cloneID(t.CompletedBy)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
