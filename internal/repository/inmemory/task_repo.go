package inmemory

import (
	"context"
	"strings"

	"whiteboard/internal/models/task"
	repo "whiteboard/internal/repository"
)

func (s *Storage) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return t.Clone(), nil
}

// CreateTask заполняет ID и CreatedAt переданной задачи
func (s *Storage) CreateTask(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.groups[taskToCreate.GroupID]; !ok {
		return repo.ErrNotFound
	}

	s.nextTaskID++
	taskToCreate.ID = s.nextTaskID
	taskToCreate.CreatedAt = s.now().UTC()
	s.tasks[taskToCreate.ID] = taskToCreate.Clone()
	return nil
}

// UpdateTask применяет частичное обновление и возвращает итоговую задачу
func (s *Storage) UpdateTask(ctx context.Context, id int64, patch task.Patch) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if patch.GroupID != nil {
		if _, ok := s.groups[*patch.GroupID]; !ok {
			return nil, repo.ErrNotFound
		}
	}
	patch.Apply(t)
	return t.Clone(), nil
}

// CompleteTask - условный переход в done: проигравший гонку получает ErrAlreadyDone
func (s *Storage) CompleteTask(ctx context.Context, id int64, c task.Completion) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if err := t.Complete(c); err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

func (s *Storage) DeleteTask(ctx context.Context, id int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

// FindOpenTaskByTitle ищет незавершённую задачу с таким же названием без учёта регистра
func (s *Storage) FindOpenTaskByTitle(ctx context.Context, groupID int64, title string) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	for _, t := range s.sortedTasks() {
		if t.GroupID == groupID && !t.IsDone() && strings.EqualFold(strings.TrimSpace(t.Title), strings.TrimSpace(title)) {
			return t, nil
		}
	}
	return nil, repo.ErrNotFound
}
