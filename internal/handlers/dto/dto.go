package dto

import (
	"whiteboard/internal/datetime"
	"whiteboard/internal/models/activity"
	"whiteboard/internal/models/group"
	"whiteboard/internal/models/task"
	"whiteboard/internal/models/user"
)

type CreateGroupRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type RenameGroupRequest struct {
	Name string `json:"name"`
}

type CreateTaskRequest struct {
	GroupID     int64         `json:"group_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	StartDate   string        `json:"start_date"`
	Priority    task.Priority `json:"priority"`
	Status      task.Status   `json:"status"`
	ScheduledAt datetime.Time `json:"scheduled_at"`
}

// UpdateTaskRequest - частичное обновление; отсутствующий ключ не трогает поле,
// scheduled_at: null снимает расписание
type UpdateTaskRequest struct {
	Status      *task.Status   `json:"status,omitempty"`
	CompletedAt datetime.Time  `json:"completed_at"`
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	StartDate   *string        `json:"start_date,omitempty"`
	Priority    *task.Priority `json:"priority,omitempty"`
	GroupID     *int64         `json:"group_id,omitempty"`
	ScheduledAt datetime.Time  `json:"scheduled_at"`
	Solution    *string        `json:"solution,omitempty"`
}

type UpdateStatusRequest struct {
	Status user.Status `json:"status"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserRequest - правка администратором; отсутствующие поля не меняются
type UpdateUserRequest struct {
	Name   *string      `json:"name,omitempty"`
	Email  *string      `json:"email,omitempty"`
	Status *user.Status `json:"status,omitempty"`
}

func (r UpdateUserRequest) Patch() user.Patch {
	return user.Patch{Name: r.Name, Email: r.Email, Status: r.Status}
}

type TaskResponse struct {
	ID          int64         `json:"id"`
	GroupID     int64         `json:"group_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Priority    task.Priority `json:"priority"`
	Status      task.Status   `json:"status"`
	Solution    string        `json:"solution"`
	CreatedAt   datetime.Time `json:"created_at"`
	ScheduledAt datetime.Time `json:"scheduled_at"`
	CompletedAt datetime.Time `json:"completed_at"`
	CreatedBy   *int64        `json:"created_by"`
	CompletedBy *int64        `json:"completed_by"`
}

type GroupResponse struct {
	ID    int64          `json:"id"`
	Name  string         `json:"name"`
	Color string         `json:"color"`
	Tasks []TaskResponse `json:"tasks"`
}

type UserResponse struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Status    user.Status   `json:"status"`
	LastLogin datetime.Time `json:"last_login"`
}

type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt datetime.Time `json:"expires_at"`
	User      UserResponse  `json:"user"`
}

type ActivityResponse struct {
	ID        int64         `json:"id"`
	UserID    *int64        `json:"user_id"`
	UserName  string        `json:"user_name"`
	Action    string        `json:"action"`
	TaskTitle string        `json:"task_title"`
	GroupName string        `json:"group_name"`
	CreatedAt datetime.Time `json:"created_at"`
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		GroupID:     t.GroupID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		Solution:    t.Solution,
		CreatedAt:   datetime.From(&t.CreatedAt),
		ScheduledAt: datetime.From(t.ScheduledAt),
		CompletedAt: datetime.From(t.CompletedAt),
		CreatedBy:   t.CreatedBy,
		CompletedBy: t.CompletedBy,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

func FromGroup(g *group.Group) GroupResponse {
	return GroupResponse{
		ID:    g.ID,
		Name:  g.Name,
		Color: g.Color,
		Tasks: FromTaskList(g.Tasks),
	}
}

func FromGroupList(groups []*group.Group) []GroupResponse {
	result := make([]GroupResponse, len(groups))
	for i, g := range groups {
		result[i] = FromGroup(g)
	}
	return result
}

func FromUser(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Status:    u.Status,
		LastLogin: datetime.From(u.LastLogin),
	}
}

func FromUserList(users []*user.User) []UserResponse {
	result := make([]UserResponse, len(users))
	for i, u := range users {
		result[i] = FromUser(u)
	}
	return result
}

func FromActivityList(entries []*activity.Entry) []ActivityResponse {
	result := make([]ActivityResponse, len(entries))
	for i, e := range entries {
		result[i] = ActivityResponse{
			ID:        e.ID,
			UserID:    e.UserID,
			UserName:  e.UserName,
			Action:    string(e.Action),
			TaskTitle: e.TaskTitle,
			GroupName: e.GroupName,
			CreatedAt: datetime.From(&e.CreatedAt),
		}
	}
	return result
}

// ToTask восстанавливает модель из ответа; неразобранное время становится nil
func (r TaskResponse) ToTask() *task.Task {
	t := &task.Task{
		ID:          r.ID,
		GroupID:     r.GroupID,
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		Status:      r.Status,
		Solution:    r.Solution,
		ScheduledAt: r.ScheduledAt.Ptr(),
		CompletedAt: r.CompletedAt.Ptr(),
		CreatedBy:   r.CreatedBy,
		CompletedBy: r.CompletedBy,
	}
	if r.CreatedAt.Valid {
		t.CreatedAt = r.CreatedAt.Time
	}
	return t
}

func (r GroupResponse) ToGroup() *group.Group {
	g := &group.Group{ID: r.ID, Name: r.Name, Color: r.Color, Tasks: make([]*task.Task, 0, len(r.Tasks))}
	for _, t := range r.Tasks {
		g.Tasks = append(g.Tasks, t.ToTask())
	}
	return g
}

func (r UserResponse) ToUser() *user.User {
	return &user.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Status:    r.Status,
		LastLogin: r.LastLogin.Ptr(),
	}
}
