package activity

import "time"

// Entry - запись журнала действий, только добавление
type Entry struct {
	ID        int64     `json:"id" db:"id"`
	UserID    *int64    `json:"user_id,omitempty" db:"user_id"`
	UserName  string    `json:"user_name" db:"user_name"`
	Action    Action    `json:"action" db:"action"`
	TaskTitle string    `json:"task_title" db:"task_title"`
	GroupName string    `json:"group_name" db:"group_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Action string

const (
	ActionCreated       Action = "CREATED"
	ActionCompleted     Action = "COMPLETED"
	ActionAutoCompleted Action = "AUTO_COMPLETED"
	ActionReopened      Action = "REOPENED"
	ActionDeleted       Action = "DELETED"
)

const SystemUserName = "System"
const UnknownGroup = "Unknown Group"
