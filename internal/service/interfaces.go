package service

import (
	"context"
	"time"

	"whiteboard/internal/models/activity"
	"whiteboard/internal/models/group"
	"whiteboard/internal/models/task"
	"whiteboard/internal/models/user"
)

type BoardRepository interface {
	HealthCheck(ctx context.Context) error

	ListGroups(ctx context.Context) ([]*group.Group, error)
	GetGroup(ctx context.Context, id int64) (*group.Group, error)
	CreateGroup(ctx context.Context, name, color string) (*group.Group, error)
	RenameGroup(ctx context.Context, id int64, name string) error
	DeleteGroup(ctx context.Context, id int64) error
	MoveTask(ctx context.Context, taskID, groupID int64) error

	GetTask(ctx context.Context, id int64) (*task.Task, error)
	CreateTask(ctx context.Context, t *task.Task) error
	UpdateTask(ctx context.Context, id int64, patch task.Patch) (*task.Task, error)
	CompleteTask(ctx context.Context, id int64, c task.Completion) (*task.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	FindOpenTaskByTitle(ctx context.Context, groupID int64, title string) (*task.Task, error)
}

type UserRepository interface {
	ListUsers(ctx context.Context) ([]*user.User, error)
	GetUser(ctx context.Context, id int64) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	CreateUser(ctx context.Context, u *user.User) error
	UpdateUserStatus(ctx context.Context, id int64, status user.Status) error
	TouchLogin(ctx context.Context, id int64, at time.Time) error
	UpdateUser(ctx context.Context, id int64, patch user.Patch) (*user.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type ActivityRepository interface {
	AppendActivity(ctx context.Context, entry *activity.Entry) error
	ListActivity(ctx context.Context, limit int) ([]*activity.Entry, error)
}

// Actor - автор изменения; нулевой ID означает системного пользователя
type Actor struct {
	ID   int64
	Name string
}

var SystemActor = Actor{Name: activity.SystemUserName}

func (a Actor) userID() *int64 {
	if a.ID == 0 {
		return nil
	}
	id := a.ID
	return &id
}
