package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"whiteboard/internal/models/activity"
	"whiteboard/internal/models/group"
	"whiteboard/internal/models/task"
	"whiteboard/internal/repository"
	"whiteboard/internal/service"
)

var anna = service.Actor{ID: 1, Name: "Anna"}

func newBoard() (*service.BoardService, *MockBoardRepository, *MockActivityRepository) {
	repo := new(MockBoardRepository)
	log := new(MockActivityRepository)
	return service.NewBoardService(repo, log), repo, log
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var busErr *service.BusinessError
	require.True(t, errors.As(err, &busErr), "expected BusinessError, got %v", err)
	assert.Equal(t, code, busErr.Code)
}

func withAction(action activity.Action) interface{} {
	return mock.MatchedBy(func(e *activity.Entry) bool { return e.Action == action })
}

// TestBoardService_HealthCheck тестирует HealthCheck
func TestBoardService_HealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(*MockBoardRepository)
		expectError bool
	}{
		{
			name: "success - health check passes",
			setupMock: func(m *MockBoardRepository) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
		},
		{
			name: "error - health check fails",
			setupMock: func(m *MockBoardRepository) {
				m.On("HealthCheck", mock.Anything).Return(errors.New("db connection failed"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newBoard()
			tt.setupMock(repo)

			err := svc.HealthCheck(context.Background())
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

// TestBoardService_CreateTask_ScheduleRequired тестирует, что без даты в
// группе с расписанием ничего не сохраняется
func TestBoardService_CreateTask_ScheduleRequired(t *testing.T) {
	svc, repo, _ := newBoard()
	repo.On("GetGroup", mock.Anything, int64(1)).Return(&group.Group{ID: 1, Name: "Sick Carers"}, nil)

	_, err := svc.CreateTask(context.Background(), anna, service.CreateTaskInput{GroupID: 1, Title: "Ben"})

	assertCode(t, err, service.CodeValidation)
	repo.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)
}

// TestBoardService_CreateTask тестирует создание с датой начала
func TestBoardService_CreateTask(t *testing.T) {
	svc, repo, log := newBoard()
	at := time.Date(2024, 5, 8, 9, 0, 0, 0, time.UTC)

	repo.On("GetGroup", mock.Anything, int64(1)).Return(&group.Group{ID: 1, Name: "Sick Carers"}, nil)
	repo.On("FindOpenTaskByTitle", mock.Anything, int64(1), "Ben").Return(nil, repository.ErrNotFound)
	repo.On("CreateTask", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
		return t.Description == "[Start: 2024-05-01] flu" &&
			t.ScheduledAt != nil && t.ScheduledAt.Equal(at) &&
			t.CreatedBy != nil && *t.CreatedBy == 1 &&
			t.Status == task.StatusTodo
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*task.Task).ID = 10
	}).Return(nil)
	log.On("AppendActivity", mock.Anything, withAction(activity.ActionCreated)).Return(nil)

	created, err := svc.CreateTask(context.Background(), anna, service.CreateTaskInput{
		GroupID:     1,
		Title:       " Ben ",
		Description: "flu",
		StartDate:   "2024-05-01",
		ScheduledAt: &at,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), created.ID)

	repo.AssertExpectations(t)
	log.AssertExpectations(t)
}

// TestBoardService_CreateTask_Duplicate тестирует конфликт по названию
func TestBoardService_CreateTask_Duplicate(t *testing.T) {
	svc, repo, _ := newBoard()
	repo.On("GetGroup", mock.Anything, int64(2)).Return(&group.Group{ID: 2, Name: "Coordinators"}, nil)
	repo.On("FindOpenTaskByTitle", mock.Anything, int64(2), "Ben").Return(&task.Task{ID: 4, Title: "ben"}, nil)

	_, err := svc.CreateTask(context.Background(), anna, service.CreateTaskInput{GroupID: 2, Title: "Ben"})

	assertCode(t, err, service.CodeDuplicateTask)
	repo.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)
}

// TestBoardService_CreateTask_IntroductionAllowsDuplicates тестирует исключение для Introduction
func TestBoardService_CreateTask_IntroductionAllowsDuplicates(t *testing.T) {
	svc, repo, log := newBoard()
	at := time.Now()
	repo.On("GetGroup", mock.Anything, int64(3)).Return(&group.Group{ID: 3, Name: "Introduction (Schedule)"}, nil)
	repo.On("CreateTask", mock.Anything, mock.Anything).Return(nil)
	log.On("AppendActivity", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.CreateTask(context.Background(), anna, service.CreateTaskInput{GroupID: 3, Title: "Ben", ScheduledAt: &at})
	require.NoError(t, err)
	repo.AssertNotCalled(t, "FindOpenTaskByTitle", mock.Anything, mock.Anything, mock.Anything)
}

// TestBoardService_CreateTask_GroupNotFound тестирует отсутствующую группу
func TestBoardService_CreateTask_GroupNotFound(t *testing.T) {
	svc, repo, _ := newBoard()
	repo.On("GetGroup", mock.Anything, int64(9)).Return(nil, repository.ErrNotFound)

	_, err := svc.CreateTask(context.Background(), anna, service.CreateTaskInput{GroupID: 9, Title: "Ben"})
	assertCode(t, err, service.CodeNotFound)
}

func doneTask(id, groupID int64) *task.Task {
	at := time.Now().Add(-time.Hour)
	by := int64(1)
	return &task.Task{ID: id, GroupID: groupID, Title: "Ben", Priority: task.PriorityNormal,
		Status: task.StatusDone, CompletedAt: &at, CompletedBy: &by}
}

func todoTask(id, groupID int64) *task.Task {
	return &task.Task{ID: id, GroupID: groupID, Title: "Ben", Priority: task.PriorityNormal, Status: task.StatusTodo}
}

// TestBoardService_UpdateTask_DoneIsReadOnly тестирует запрет редактирования
func TestBoardService_UpdateTask_DoneIsReadOnly(t *testing.T) {
	svc, repo, _ := newBoard()
	repo.On("GetTask", mock.Anything, int64(5)).Return(doneTask(5, 2), nil)
	repo.On("GetGroup", mock.Anything, int64(2)).Return(&group.Group{ID: 2, Name: "Extra To Do"}, nil)

	title := "Changed"
	_, err := svc.UpdateTask(context.Background(), anna, 5, service.UpdateTaskInput{Title: &title})

	assertCode(t, err, service.CodeTaskDone)
	repo.AssertNotCalled(t, "UpdateTask", mock.Anything, mock.Anything, mock.Anything)
}

// TestBoardService_UpdateTask_SolutionOnDone тестирует, что решение можно менять всегда
func TestBoardService_UpdateTask_SolutionOnDone(t *testing.T) {
	svc, repo, _ := newBoard()
	solution := "phoned"
	updated := doneTask(5, 2)
	updated.Solution = solution

	repo.On("GetTask", mock.Anything, int64(5)).Return(doneTask(5, 2), nil)
	repo.On("GetGroup", mock.Anything, int64(2)).Return(&group.Group{ID: 2, Name: "Extra To Do"}, nil)
	repo.On("UpdateTask", mock.Anything, int64(5), mock.MatchedBy(func(p task.Patch) bool {
		return p.Solution != nil && *p.Solution == solution && !p.HasEdits()
	})).Return(updated, nil)

	got, err := svc.UpdateTask(context.Background(), anna, 5, service.UpdateTaskInput{Solution: &solution})
	require.NoError(t, err)
	assert.Equal(t, solution, got.Solution)
}

// TestBoardService_UpdateTask_Complete тестирует завершение через status
func TestBoardService_UpdateTask_Complete(t *testing.T) {
	svc, repo, log := newBoard()
	done := task.StatusDone

	repo.On("GetTask", mock.Anything, int64(5)).Return(todoTask(5, 2), nil)
	repo.On("GetGroup", mock.Anything, int64(2)).Return(&group.Group{ID: 2, Name: "Extra To Do"}, nil)
	repo.On("CompleteTask", mock.Anything, int64(5), mock.MatchedBy(func(c task.Completion) bool {
		return c.By != nil && *c.By == 1 && !c.IsSystem()
	})).Return(doneTask(5, 2), nil)
	log.On("AppendActivity", mock.Anything, withAction(activity.ActionCompleted)).Return(nil)

	got, err := svc.UpdateTask(context.Background(), anna, 5, service.UpdateTaskInput{Status: &done})
	require.NoError(t, err)
	assert.True(t, got.IsDone())
	repo.AssertNotCalled(t, "UpdateTask", mock.Anything, mock.Anything, mock.Anything)
	log.AssertExpectations(t)
}

// TestBoardService_UpdateTask_CompleteRace тестирует проигранную гонку
func TestBoardService_UpdateTask_CompleteRace(t *testing.T) {
	svc, repo, _ := newBoard()
	done := task.StatusDone

	repo.On("GetTask", mock.Anything, int64(5)).Return(todoTask(5, 2), nil)
	repo.On("GetGroup", mock.Anything, int64(2)).Return(&group.Group{ID: 2, Name: "Extra To Do"}, nil)
	repo.On("CompleteTask", mock.Anything, int64(5), mock.Anything).Return(nil, repository.ErrAlreadyDone)

	_, err := svc.UpdateTask(context.Background(), anna, 5, service.UpdateTaskInput{Status: &done})
	assertCode(t, err, service.CodeAlreadyDone)
	assert.ErrorIs(t, err, task.ErrAlreadyDone)
}

// TestBoardService_UpdateTask_Reopen тестирует переоткрытие
func TestBoardService_UpdateTask_Reopen(t *testing.T) {
	svc, repo, log := newBoard()
	todo := task.StatusTodo

	repo.On("GetTask", mock.Anything, int64(5)).Return(doneTask(5, 2), nil)
	repo.On("GetGroup", mock.Anything, int64(2)).Return(&group.Group{ID: 2, Name: "Extra To Do"}, nil)
	repo.On("UpdateTask", mock.Anything, int64(5), mock.MatchedBy(func(p task.Patch) bool {
		return p.ClearCompletion && p.Status != nil && *p.Status == task.StatusTodo
	})).Return(todoTask(5, 2), nil)
	log.On("AppendActivity", mock.Anything, withAction(activity.ActionReopened)).Return(nil)

	got, err := svc.UpdateTask(context.Background(), anna, 5, service.UpdateTaskInput{Status: &todo})
	require.NoError(t, err)
	assert.Equal(t, task.StatusTodo, got.Status)
	log.AssertExpectations(t)
}

// TestBoardService_UpdateTask_StartDate тестирует замену даты начала с сохранением наблюдения
func TestBoardService_UpdateTask_StartDate(t *testing.T) {
	svc, repo, _ := newBoard()
	current := todoTask(5, 1)
	current.Description = "[Start: 2024-05-01] flu"
	start := "2024-05-03"

	repo.On("GetTask", mock.Anything, int64(5)).Return(current, nil)
	repo.On("GetGroup", mock.Anything, int64(1)).Return(&group.Group{ID: 1, Name: "Sick Carers"}, nil)
	repo.On("UpdateTask", mock.Anything, int64(5), mock.MatchedBy(func(p task.Patch) bool {
		return p.Description != nil && *p.Description == "[Start: 2024-05-03] flu"
	})).Return(current, nil)

	_, err := svc.UpdateTask(context.Background(), anna, 5, service.UpdateTaskInput{StartDate: &start})
	require.NoError(t, err)
	repo.AssertExpectations(t)

	bad := "03/05/2024"
	_, err = svc.UpdateTask(context.Background(), anna, 5, service.UpdateTaskInput{StartDate: &bad})
	assertCode(t, err, service.CodeValidation)
}

// TestBoardService_AutoComplete тестирует системное завершение
func TestBoardService_AutoComplete(t *testing.T) {
	svc, repo, log := newBoard()
	done := doneTask(5, 1)
	done.CompletedBy = nil
	done.Solution = task.SystemSolution

	repo.On("GetTask", mock.Anything, int64(5)).Return(todoTask(5, 1), nil)
	repo.On("CompleteTask", mock.Anything, int64(5), mock.MatchedBy(func(c task.Completion) bool {
		return c.IsSystem()
	})).Return(done, nil)
	repo.On("GetGroup", mock.Anything, int64(1)).Return(&group.Group{ID: 1, Name: "Sick Carers"}, nil)
	log.On("AppendActivity", mock.Anything, mock.MatchedBy(func(e *activity.Entry) bool {
		return e.Action == activity.ActionAutoCompleted && e.UserID == nil &&
			e.UserName == activity.SystemUserName && e.GroupName == "Sick Carers"
	})).Return(nil)

	got, err := svc.AutoComplete(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, got.IsSystemCompleted())
	log.AssertExpectations(t)
}

// TestBoardService_AutoComplete_Refused тестирует отказ системного завершения
func TestBoardService_AutoComplete_Refused(t *testing.T) {
	tests := []struct {
		name         string
		setupMock    func(*MockBoardRepository)
		expectedCode string
	}{
		{
			name: "not an away group",
			setupMock: func(m *MockBoardRepository) {
				m.On("GetTask", mock.Anything, int64(5)).Return(todoTask(5, 3), nil)
				m.On("GetGroup", mock.Anything, int64(3)).Return(&group.Group{ID: 3, Name: "Coordinators"}, nil)
			},
			expectedCode: service.CodeValidation,
		},
		{
			name: "ad-hoc group",
			setupMock: func(m *MockBoardRepository) {
				m.On("GetTask", mock.Anything, int64(5)).Return(todoTask(5, 3), nil)
				m.On("GetGroup", mock.Anything, int64(3)).Return(&group.Group{ID: 3, Name: "Night Shift"}, nil)
			},
			expectedCode: service.CodeValidation,
		},
		{
			name: "return date not reached",
			setupMock: func(m *MockBoardRepository) {
				m.On("GetTask", mock.Anything, int64(5)).Return(todoTask(5, 1), nil)
				m.On("GetGroup", mock.Anything, int64(1)).Return(&group.Group{ID: 1, Name: "Sick Carers"}, nil)
				m.On("CompleteTask", mock.Anything, int64(5), mock.Anything).Return(nil, repository.ErrNotDue)
			},
			expectedCode: service.CodeValidation,
		},
		{
			name: "already done",
			setupMock: func(m *MockBoardRepository) {
				m.On("GetTask", mock.Anything, int64(5)).Return(doneTask(5, 3), nil)
				m.On("CompleteTask", mock.Anything, int64(5), mock.Anything).Return(nil, repository.ErrAlreadyDone)
			},
			expectedCode: service.CodeAlreadyDone,
		},
		{
			name: "missing task",
			setupMock: func(m *MockBoardRepository) {
				m.On("GetTask", mock.Anything, int64(5)).Return(nil, repository.ErrNotFound)
			},
			expectedCode: service.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, log := newBoard()
			tt.setupMock(repo)

			_, err := svc.AutoComplete(context.Background(), 5)
			assertCode(t, err, tt.expectedCode)
			repo.AssertExpectations(t)
			log.AssertNotCalled(t, "AppendActivity", mock.Anything, mock.Anything)
		})
	}
}

// TestBoardService_DeleteTask тестирует удаление и журнал
func TestBoardService_DeleteTask(t *testing.T) {
	svc, repo, log := newBoard()
	repo.On("GetTask", mock.Anything, int64(5)).Return(doneTask(5, 2), nil)
	repo.On("DeleteTask", mock.Anything, int64(5)).Return(nil)
	repo.On("GetGroup", mock.Anything, int64(2)).Return(nil, repository.ErrNotFound)
	log.On("AppendActivity", mock.Anything, mock.MatchedBy(func(e *activity.Entry) bool {
		return e.Action == activity.ActionDeleted && e.GroupName == activity.UnknownGroup
	})).Return(errors.New("log down"))

	require.NoError(t, svc.DeleteTask(context.Background(), anna, 5), "journal failure does not fail the delete")
	repo.AssertExpectations(t)
}

// TestBoardService_DeleteGroup тестирует защиту фиксированных групп
func TestBoardService_DeleteGroup(t *testing.T) {
	groups := []*group.Group{
		{ID: 1, Name: "Sick Carers"},
		{ID: 2, Name: "Sick"},
		{ID: 3, Name: "Weekend rota"},
	}

	tests := []struct {
		name   string
		id     int64
		code   string
		delete bool
	}{
		{name: "primary slot group is protected", id: 1, code: service.CodeProtectedGroup},
		{name: "variant can be deleted", id: 2, delete: true},
		{name: "ad-hoc can be deleted", id: 3, delete: true},
		{name: "unknown group", id: 99, code: service.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newBoard()
			repo.On("ListGroups", mock.Anything).Return(groups, nil)
			if tt.delete {
				repo.On("DeleteGroup", mock.Anything, tt.id).Return(nil)
			}

			err := svc.DeleteGroup(context.Background(), tt.id)
			if tt.code != "" {
				assertCode(t, err, tt.code)
				repo.AssertNotCalled(t, "DeleteGroup", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

// TestBoardService_CreateGroup тестирует цвет по умолчанию и проверку имени
func TestBoardService_CreateGroup(t *testing.T) {
	svc, repo, _ := newBoard()
	repo.On("CreateGroup", mock.Anything, "Carers on Holiday", "indigo").
		Return(&group.Group{ID: 1, Name: "Carers on Holiday", Color: "indigo"}, nil)

	g, err := svc.CreateGroup(context.Background(), " Carers on Holiday ", "")
	require.NoError(t, err)
	assert.Equal(t, "indigo", g.Color)

	_, err = svc.CreateGroup(context.Background(), "  ", "red")
	assertCode(t, err, service.CodeValidation)
}

// TestBoardService_ListActivity тестирует ограничение выборки
func TestBoardService_ListActivity(t *testing.T) {
	svc, _, log := newBoard()
	log.On("ListActivity", mock.Anything, service.DefaultActivityLimit).Return([]*activity.Entry{}, nil)

	_, err := svc.ListActivity(context.Background(), 0)
	require.NoError(t, err)
	_, err = svc.ListActivity(context.Background(), 5000)
	require.NoError(t, err)
	log.AssertNumberOfCalls(t, "ListActivity", 2)
}
