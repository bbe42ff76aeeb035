// Package client - HTTP-клиент REST API доски. Реализует хранилище для
// сверки групп и сканера возвратов, чтобы те же алгоритмы работали
// на стороне клиента.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"whiteboard/internal/datetime"
	"whiteboard/internal/handlers/dto"
	"whiteboard/internal/logger"
	"whiteboard/internal/models/activity"
	"whiteboard/internal/models/group"
	"whiteboard/internal/models/task"
	"whiteboard/internal/models/user"
)

var (
	// ErrUnauthorized - 401 или 403: нужен повторный вход
	ErrUnauthorized = errors.New("требуется повторный вход")
	ErrNotFound     = errors.New("не найдено")
)

// APIError - ответ сервера с кодом ошибки
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.Status, e.Code, e.Message)
}

// Is сопоставляет коды сервера с ошибками клиента и модели
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case task.ErrAlreadyDone:
		return e.Code == "ALREADY_DONE"
	case task.ErrTaskDone:
		return e.Code == "TASK_DONE"
	}
	return false
}

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("кодирование запроса: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("Client: Сетевая ошибка", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	logger.Debug("Client: Ответ",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("ms", time.Since(start)))

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: разбор ответа: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Code = body.Error
		apiErr.Message = body.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

// Session - результат входа
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *user.User
}

// Login входит и запоминает токен для следующих вызовов
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var resp dto.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/login", dto.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	session := &Session{Token: resp.Token, User: resp.User.ToUser()}
	if resp.ExpiresAt.Valid {
		session.ExpiresAt = resp.ExpiresAt.Time
	}
	return session, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) ListGroups(ctx context.Context) ([]*group.Group, error) {
	var resp []dto.GroupResponse
	if err := c.do(ctx, http.MethodGet, "/api/groups", nil, &resp); err != nil {
		return nil, err
	}
	groups := make([]*group.Group, 0, len(resp))
	for _, g := range resp {
		groups = append(groups, g.ToGroup())
	}
	return groups, nil
}

func (c *Client) CreateGroup(ctx context.Context, name, color string) (*group.Group, error) {
	var resp dto.GroupResponse
	if err := c.do(ctx, http.MethodPost, "/api/groups", dto.CreateGroupRequest{Name: name, Color: color}, &resp); err != nil {
		return nil, err
	}
	return resp.ToGroup(), nil
}

func (c *Client) RenameGroup(ctx context.Context, id int64, name string) error {
	return c.do(ctx, http.MethodPatch, groupPath(id), dto.RenameGroupRequest{Name: name}, nil)
}

func (c *Client) DeleteGroup(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, groupPath(id), nil, nil)
}

// MoveTask переносит задачу частичным обновлением group_id
func (c *Client) MoveTask(ctx context.Context, taskID, groupID int64) error {
	_, err := c.UpdateTask(ctx, taskID, TaskPatch{GroupID: &groupID})
	return err
}

// NewTask - поля создания задачи
type NewTask struct {
	GroupID     int64
	Title       string
	Description string
	StartDate   string
	Priority    task.Priority
	Status      task.Status
	ScheduledAt *time.Time
}

func (c *Client) CreateTask(ctx context.Context, in NewTask) (*task.Task, error) {
	req := dto.CreateTaskRequest{
		GroupID:     in.GroupID,
		Title:       in.Title,
		Description: in.Description,
		StartDate:   in.StartDate,
		Priority:    in.Priority,
		Status:      in.Status,
		ScheduledAt: datetime.From(in.ScheduledAt),
	}
	var resp dto.TaskResponse
	if err := c.do(ctx, http.MethodPost, "/api/tasks", req, &resp); err != nil {
		return nil, err
	}
	return resp.ToTask(), nil
}

// TaskPatch - частичное обновление: уходят только заданные поля
type TaskPatch struct {
	Status           *task.Status
	CompletedAt      *time.Time
	Title            *string
	Description      *string
	StartDate        *string
	Priority         *task.Priority
	GroupID          *int64
	ScheduledAt      *time.Time
	ClearScheduledAt bool
	Solution         *string
}

func (p TaskPatch) body() map[string]any {
	body := make(map[string]any)
	if p.Status != nil {
		body["status"] = *p.Status
	}
	if p.CompletedAt != nil {
		body["completed_at"] = datetime.Format(*p.CompletedAt)
	}
	if p.Title != nil {
		body["title"] = *p.Title
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.StartDate != nil {
		body["start_date"] = *p.StartDate
	}
	if p.Priority != nil {
		body["priority"] = *p.Priority
	}
	if p.GroupID != nil {
		body["group_id"] = *p.GroupID
	}
	switch {
	case p.ScheduledAt != nil:
		body["scheduled_at"] = datetime.Format(*p.ScheduledAt)
	case p.ClearScheduledAt:
		body["scheduled_at"] = nil
	}
	if p.Solution != nil {
		body["solution"] = *p.Solution
	}
	return body
}

func (c *Client) UpdateTask(ctx context.Context, id int64, patch TaskPatch) (*task.Task, error) {
	var resp dto.TaskResponse
	if err := c.do(ctx, http.MethodPatch, taskPath(id), patch.body(), &resp); err != nil {
		return nil, err
	}
	return resp.ToTask(), nil
}

// CompleteTask - завершение пользователем
func (c *Client) CompleteTask(ctx context.Context, id int64, solution *string) (*task.Task, error) {
	done := task.StatusDone
	now := time.Now()
	return c.UpdateTask(ctx, id, TaskPatch{Status: &done, CompletedAt: &now, Solution: solution})
}

func (c *Client) ReopenTask(ctx context.Context, id int64) (*task.Task, error) {
	todo := task.StatusTodo
	return c.UpdateTask(ctx, id, TaskPatch{Status: &todo})
}

// AutoComplete - системное завершение; проигранная гонка даёт task.ErrAlreadyDone
func (c *Client) AutoComplete(ctx context.Context, taskID int64) (*task.Task, error) {
	var resp dto.TaskResponse
	if err := c.do(ctx, http.MethodPost, taskPath(taskID)+"/auto-complete", nil, &resp); err != nil {
		return nil, err
	}
	return resp.ToTask(), nil
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func (c *Client) ListUsers(ctx context.Context) ([]*user.User, error) {
	var resp []dto.UserResponse
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &resp); err != nil {
		return nil, err
	}
	users := make([]*user.User, 0, len(resp))
	for _, u := range resp {
		users = append(users, u.ToUser())
	}
	return users, nil
}

func (c *Client) SetStatus(ctx context.Context, status user.Status) (*user.User, error) {
	var resp dto.UserResponse
	if err := c.do(ctx, http.MethodPatch, "/api/users/status", dto.UpdateStatusRequest{Status: status}, &resp); err != nil {
		return nil, err
	}
	return resp.ToUser(), nil
}

func (c *Client) ListActivity(ctx context.Context, limit int) ([]*activity.Entry, error) {
	path := "/api/logs"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var resp []dto.ActivityResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	entries := make([]*activity.Entry, 0, len(resp))
	for _, e := range resp {
		entry := &activity.Entry{
			ID:        e.ID,
			UserID:    e.UserID,
			UserName:  e.UserName,
			Action:    activity.Action(e.Action),
			TaskTitle: e.TaskTitle,
			GroupName: e.GroupName,
		}
		if e.CreatedAt.Valid {
			entry.CreatedAt = e.CreatedAt.Time
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func groupPath(id int64) string {
	return "/api/groups/" + strconv.FormatInt(id, 10)
}

func taskPath(id int64) string {
	return "/api/tasks/" + strconv.FormatInt(id, 10)
}
