package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"whiteboard/internal/logger"
	"whiteboard/internal/models/activity"
	"whiteboard/internal/models/task"
	rep "whiteboard/internal/repository"
	"whiteboard/internal/taxonomy"
)

type CreateTaskInput struct {
	GroupID     int64
	Title       string
	Description string
	// StartDate упаковывается в описание для групп с датой начала
	StartDate   string
	Priority    task.Priority
	Status      task.Status
	ScheduledAt *time.Time
}

// UpdateTaskInput - частичное обновление; nil означает "не менять"
type UpdateTaskInput struct {
	Title            *string
	Description      *string
	StartDate        *string
	Priority         *task.Priority
	GroupID          *int64
	Solution         *string
	ScheduledAt      *time.Time
	ClearScheduledAt bool
	Status           *task.Status
	CompletedAt      *time.Time
}

// mapTaskError переводит ошибки модели в бизнес-ошибки
func mapTaskError(err error) error {
	switch {
	case errors.Is(err, task.ErrEmptyTitle):
		return NewValidationError("title", "не может быть пустым")
	case errors.Is(err, task.ErrInvalidPriority):
		return NewValidationError("priority", "допустимо low, normal или high")
	case errors.Is(err, task.ErrInvalidStatus):
		return NewValidationError("status", "допустимо todo или done")
	case errors.Is(err, task.ErrScheduleRequired):
		return NewValidationError("scheduled_at", "обязательна для этой группы")
	case errors.Is(err, task.ErrTaskDone):
		return NewBusinessError(CodeTaskDone, "завершённую задачу нельзя редактировать", err)
	case errors.Is(err, task.ErrAlreadyDone):
		return NewBusinessError(CodeAlreadyDone, "задача уже завершена", err)
	case errors.Is(err, task.ErrNotDue):
		return NewValidationError("scheduled_at", "дата возврата ещё не наступила")
	}
	return err
}

func validStartDate(start string) error {
	if start != "" && !task.ValidStartDate(start) {
		return NewValidationError("start_date", "ожидается YYYY-MM-DD")
	}
	return nil
}

func (s *BoardService) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.Int64("target_id", id))
			return nil, NewNotFound(ResourceTask, id)
		}
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return t, nil
}

// CreateTask проверяет задачу до записи: в группе с расписанием без
// scheduled_at ничего не сохраняется
func (s *BoardService) CreateTask(ctx context.Context, actor Actor, in CreateTaskInput) (*task.Task, error) {
	g, slot, err := s.slotOfGroup(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}
	if err := validStartDate(in.StartDate); err != nil {
		return nil, err
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, mapTaskError(task.ErrInvalidStatus)
	}

	var startDate task.TaskOption
	if slot.StartDate() {
		startDate = task.WithStartDate(in.StartDate)
	}

	newTask := task.New(in.GroupID, in.Title,
		task.WithDescription(in.Description),
		startDate,
		task.WithPriority(in.Priority),
		task.WithScheduledAt(in.ScheduledAt),
		task.WithCreatedBy(actor.ID),
	)
	if err := newTask.Validate(slot.ScheduleBearing()); err != nil {
		return nil, mapTaskError(err)
	}

	if slot != taxonomy.SlotIntroduction {
		existing, err := s.repo.FindOpenTaskByTitle(ctx, in.GroupID, newTask.Title)
		if err == nil {
			return nil, NewBusinessError(CodeDuplicateTask,
				fmt.Sprintf("задача '%s' уже есть в группе '%s'", existing.Title, g.Name), nil,
				ToDetail("task_id", existing.ID))
		}
		if !errors.Is(err, rep.ErrNotFound) {
			return nil, fmt.Errorf("проверка дубликата: %w", err)
		}
	}

	if err := s.repo.CreateTask(ctx, newTask); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound(ResourceGroup, in.GroupID)
		}
		return nil, fmt.Errorf("создание задачи: %w", err)
	}
	logger.Info("Service: Создана задача",
		zap.Int64("task_id", newTask.ID),
		zap.Int64("group_id", newTask.GroupID),
		zap.String("slot", slot.String()))
	s.record(ctx, actor, activity.ActionCreated, newTask.Title, newTask.GroupID)

	if in.Status == task.StatusDone {
		return s.complete(ctx, actor, newTask.ID, nil)
	}
	return newTask, nil
}

// UpdateTask применяет частичное обновление. Переход status выполняется
// через условное завершение или переоткрытие; редактирование полей
// завершённой задачи запрещено.
func (s *BoardService) UpdateTask(ctx context.Context, actor Actor, id int64, in UpdateTaskInput) (*task.Task, error) {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, mapTaskError(task.ErrInvalidStatus)
	}

	targetGroup := current.GroupID
	if in.GroupID != nil {
		targetGroup = *in.GroupID
	}
	_, slot, err := s.slotOfGroup(ctx, targetGroup)
	if err != nil {
		return nil, err
	}

	patch := task.Patch{
		Title:            in.Title,
		Priority:         in.Priority,
		Solution:         in.Solution,
		ScheduledAt:      in.ScheduledAt,
		ClearScheduledAt: in.ClearScheduledAt,
	}
	if in.GroupID != nil && *in.GroupID != current.GroupID {
		patch.GroupID = in.GroupID
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		patch.Title = &title
	}

	if in.Description != nil || in.StartDate != nil {
		start, observation := task.DecodeDescription(current.Description)
		if in.StartDate != nil {
			if err := validStartDate(*in.StartDate); err != nil {
				return nil, err
			}
			start = *in.StartDate
		}
		if in.Description != nil {
			observation = *in.Description
		}
		description := observation
		if slot.StartDate() {
			description = task.EncodeDescription(start, observation)
		}
		patch.Description = &description
	}

	reopen := in.Status != nil && *in.Status == task.StatusTodo && current.IsDone()
	complete := in.Status != nil && *in.Status == task.StatusDone && !current.IsDone()

	check := current.Clone()
	if reopen {
		_ = check.Reopen()
	}
	if err := check.CheckPatch(patch); err != nil {
		return nil, mapTaskError(err)
	}
	if patch.ClearScheduledAt && slot.ScheduleBearing() && !check.IsDone() {
		return nil, mapTaskError(task.ErrScheduleRequired)
	}

	if reopen {
		todo := task.StatusTodo
		patch.Status = &todo
		patch.ClearCompletion = true
	}

	updated := current
	if !patch.IsEmpty() {
		updated, err = s.repo.UpdateTask(ctx, id, patch)
		if err != nil {
			if errors.Is(err, rep.ErrNotFound) {
				return nil, NewNotFound(ResourceTask, id)
			}
			return nil, fmt.Errorf("обновление задачи: %w", err)
		}
	}

	if reopen {
		logger.Info("Service: Задача переоткрыта", zap.Int64("task_id", id))
		s.record(ctx, actor, activity.ActionReopened, updated.Title, updated.GroupID)
	}
	if complete {
		return s.complete(ctx, actor, id, in.CompletedAt)
	}
	return updated, nil
}

// complete - решение, если передано, уже записано патчем
func (s *BoardService) complete(ctx context.Context, actor Actor, id int64, at *time.Time) (*task.Task, error) {
	when := s.now()
	if at != nil && !at.IsZero() {
		when = *at
	}

	done, err := s.repo.CompleteTask(ctx, id, task.UserCompletion(actor.ID, nil, when))
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound(ResourceTask, id)
		}
		return nil, mapTaskError(err)
	}
	logger.Info("Service: Задача завершена", zap.Int64("task_id", id), zap.Int64("user_id", actor.ID))
	s.record(ctx, actor, activity.ActionCompleted, done.Title, done.GroupID)
	return done, nil
}

// AutoComplete - системное завершение: completed_by не задаётся,
// решение получает маркер автоматического возврата. Допустимо только
// в группах отсутствия и после даты возврата; дату проверяет условие записи.
func (s *BoardService) AutoComplete(ctx context.Context, id int64) (*task.Task, error) {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsDone() {
		_, slot, err := s.slotOfGroup(ctx, current.GroupID)
		if err != nil {
			return nil, err
		}
		if !slot.Away() {
			logger.Warn("Service: Автовозврат вне группы отсутствия",
				zap.Int64("task_id", id), zap.String("slot", slot.String()))
			return nil, NewValidationError("group_id", "автовозврат только для групп отсутствия")
		}
	}

	done, err := s.repo.CompleteTask(ctx, id, task.SystemCompletion(s.now()))
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound(ResourceTask, id)
		}
		return nil, mapTaskError(err)
	}
	logger.Info("Service: Задача завершена автоматически", zap.Int64("task_id", id))
	s.record(ctx, SystemActor, activity.ActionAutoCompleted, done.Title, done.GroupID)
	return done, nil
}

func (s *BoardService) DeleteTask(ctx context.Context, actor Actor, id int64) error {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return NewNotFound(ResourceTask, id)
		}
		return fmt.Errorf("удаление задачи: %w", err)
	}
	logger.Info("Service: Задача удалена", zap.Int64("task_id", id))
	s.record(ctx, actor, activity.ActionDeleted, current.Title, current.GroupID)
	return nil
}
