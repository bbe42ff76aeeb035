package task

import (
	"strings"
	"time"
)

type TaskOption func(*Task)

// New создаёт задачу в состоянии todo; пустые значения опций игнорируются
func New(groupID int64, title string, opts ...TaskOption) *Task {
	t := &Task{
		GroupID:  groupID,
		Title:    strings.TrimSpace(title),
		Priority: PriorityNormal,
		Status:   StatusTodo,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func WithDescription(description string) TaskOption {
	if description == "" {
		return nil
	}
	return func(task *Task) {
		task.Description = description
	}
}

func WithPriority(priority Priority) TaskOption {
	if priority == "" {
		return nil
	}
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithScheduledAt(scheduledAt *time.Time) TaskOption {
	if scheduledAt == nil || scheduledAt.IsZero() {
		return nil
	}
	at := scheduledAt.UTC()
	return func(task *Task) {
		task.ScheduledAt = &at
	}
}

func WithCreatedBy(userID int64) TaskOption {
	if userID == 0 {
		return nil
	}
	return func(task *Task) {
		task.CreatedBy = &userID
	}
}

// WithStartDate упаковывает дату начала в описание; вызывать после WithDescription
func WithStartDate(start string) TaskOption {
	if start == "" {
		return nil
	}
	return func(task *Task) {
		task.Description = EncodeDescription(start, task.Description)
	}
}
