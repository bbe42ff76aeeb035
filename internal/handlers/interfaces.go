package handlers

import (
	"context"

	"whiteboard/internal/auth"
	"whiteboard/internal/models/activity"
	"whiteboard/internal/models/group"
	"whiteboard/internal/models/task"
	"whiteboard/internal/models/user"
	"whiteboard/internal/service"
)

type BoardService interface {
	HealthCheck(ctx context.Context) error
	ListGroups(ctx context.Context) ([]*group.Group, error)
	CreateGroup(ctx context.Context, name, color string) (*group.Group, error)
	RenameGroup(ctx context.Context, id int64, name string) (*group.Group, error)
	DeleteGroup(ctx context.Context, id int64) error
	CreateTask(ctx context.Context, actor service.Actor, in service.CreateTaskInput) (*task.Task, error)
	UpdateTask(ctx context.Context, actor service.Actor, id int64, in service.UpdateTaskInput) (*task.Task, error)
	AutoComplete(ctx context.Context, id int64) (*task.Task, error)
	DeleteTask(ctx context.Context, actor service.Actor, id int64) error
	ListActivity(ctx context.Context, limit int) ([]*activity.Entry, error)
}

type UserService interface {
	Login(ctx context.Context, email, password string) (*service.Session, error)
	ListUsers(ctx context.Context) ([]*user.User, error)
	SetStatus(ctx context.Context, id int64, status user.Status) (*user.User, error)
	Register(ctx context.Context, name, email, password string) (*user.User, error)
	UpdateUser(ctx context.Context, id int64, patch user.Patch) (*user.User, error)
	DeleteUser(ctx context.Context, actorID, id int64) error
}

var (
	_ BoardService = (*service.BoardService)(nil)
	_ UserService  = (*service.UserService)(nil)
)

// actorFrom берёт автора изменения из проверенного токена
func actorFrom(ctx context.Context) service.Actor {
	claims, ok := auth.ClaimsFrom(ctx)
	if !ok {
		return service.SystemActor
	}
	name := (&user.User{Name: claims.Name, Email: claims.Email}).DisplayName()
	return service.Actor{ID: claims.UserID, Name: name}
}
