package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"whiteboard/internal/models/activity"
	"whiteboard/internal/models/group"
	"whiteboard/internal/models/task"
	"whiteboard/internal/service"
)

// MockBoardRepository - мок репозитория доски
type MockBoardRepository struct {
	mock.Mock
}

func (m *MockBoardRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBoardRepository) ListGroups(ctx context.Context) ([]*group.Group, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*group.Group), args.Error(1)
}

func (m *MockBoardRepository) GetGroup(ctx context.Context, id int64) (*group.Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*group.Group), args.Error(1)
}

func (m *MockBoardRepository) CreateGroup(ctx context.Context, name, color string) (*group.Group, error) {
	args := m.Called(ctx, name, color)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*group.Group), args.Error(1)
}

func (m *MockBoardRepository) RenameGroup(ctx context.Context, id int64, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *MockBoardRepository) DeleteGroup(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBoardRepository) MoveTask(ctx context.Context, taskID, groupID int64) error {
	args := m.Called(ctx, taskID, groupID)
	return args.Error(0)
}

func (m *MockBoardRepository) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockBoardRepository) CreateTask(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockBoardRepository) UpdateTask(ctx context.Context, id int64, patch task.Patch) (*task.Task, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockBoardRepository) CompleteTask(ctx context.Context, id int64, c task.Completion) (*task.Task, error) {
	args := m.Called(ctx, id, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockBoardRepository) DeleteTask(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBoardRepository) FindOpenTaskByTitle(ctx context.Context, groupID int64, title string) (*task.Task, error) {
	args := m.Called(ctx, groupID, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

var _ service.BoardRepository = (*MockBoardRepository)(nil)

// MockActivityRepository - мок журнала
type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) AppendActivity(ctx context.Context, entry *activity.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockActivityRepository) ListActivity(ctx context.Context, limit int) ([]*activity.Entry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*activity.Entry), args.Error(1)
}

var _ service.ActivityRepository = (*MockActivityRepository)(nil)
