package inmemory

import (
	"context"
	"sort"

	"whiteboard/internal/models/group"
	"whiteboard/internal/models/task"
	repo "whiteboard/internal/repository"
)

// ListGroups возвращает копии групп с вложенными задачами, по id
func (s *Storage) ListGroups(ctx context.Context) ([]*group.Group, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	groups := make([]*group.Group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, &group.Group{ID: g.ID, Name: g.Name, Color: g.Color})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })

	return group.Nest(groups, s.sortedTasks()), nil
}

func (s *Storage) GetGroup(ctx context.Context, id int64) (*group.Group, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &group.Group{ID: g.ID, Name: g.Name, Color: g.Color}, nil
}

func (s *Storage) CreateGroup(ctx context.Context, name, color string) (*group.Group, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.nextGroupID++
	g := &group.Group{ID: s.nextGroupID, Name: name, Color: color}
	s.groups[g.ID] = g
	return &group.Group{ID: g.ID, Name: g.Name, Color: g.Color}, nil
}

func (s *Storage) RenameGroup(ctx context.Context, id int64, name string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return repo.ErrNotFound
	}
	g.Name = name
	return nil
}

// DeleteGroup удаляет группу вместе с задачами
func (s *Storage) DeleteGroup(ctx context.Context, id int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.groups[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.groups, id)
	for taskID, t := range s.tasks {
		if t.GroupID == id {
			delete(s.tasks, taskID)
		}
	}
	return nil
}

func (s *Storage) MoveTask(ctx context.Context, taskID, groupID int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return repo.ErrNotFound
	}
	if _, ok := s.groups[groupID]; !ok {
		return repo.ErrNotFound
	}
	t.GroupID = groupID
	return nil
}

// вызывать под блокировкой
func (s *Storage) sortedTasks() []*task.Task {
	tasks := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t.Clone())
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}
