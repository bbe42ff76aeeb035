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
	"whiteboard/internal/models/group"
	rep "whiteboard/internal/repository"
	"whiteboard/internal/taxonomy"
)

// здесь происходит проверка ошибок бизнес-логики

const (
	DefaultActivityLimit = 200
	maxGroupNameLength   = 255
)

type BoardService struct {
	repo     BoardRepository
	activity ActivityRepository
	now      func() time.Time
}

func NewBoardService(repo BoardRepository, activity ActivityRepository) *BoardService {
	return &BoardService{
		repo:     repo,
		activity: activity,
		now:      time.Now,
	}
}

func (s *BoardService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

// Reconcile приводит группы к таксономии
func (s *BoardService) Reconcile(ctx context.Context) (taxonomy.Result, error) {
	return taxonomy.NewReconciler(s.repo).Reconcile(ctx)
}

func (s *BoardService) ListGroups(ctx context.Context) ([]*group.Group, error) {
	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение групп: %w", err)
	}
	return groups, nil
}

func validGroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", NewValidationError("name", "не может быть пустым")
	}
	if len(name) > maxGroupNameLength {
		return "", NewValidationError("name", "слишком длинное")
	}
	return name, nil
}

// CreateGroup создаёт группу; пустой цвет берётся из таксономии
func (s *BoardService) CreateGroup(ctx context.Context, name, color string) (*group.Group, error) {
	name, err := validGroupName(name)
	if err != nil {
		return nil, err
	}
	if color == "" {
		color = taxonomy.DefaultColor(name)
	}

	g, err := s.repo.CreateGroup(ctx, name, color)
	if err != nil {
		return nil, fmt.Errorf("создание группы: %w", err)
	}
	logger.Info("Service: Создана группа", zap.Int64("group_id", g.ID), zap.String("name", name))
	return g, nil
}

func (s *BoardService) RenameGroup(ctx context.Context, id int64, name string) (*group.Group, error) {
	name, err := validGroupName(name)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RenameGroup(ctx, id, name); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound(ResourceGroup, id)
		}
		return nil, fmt.Errorf("переименование группы: %w", err)
	}
	logger.Info("Service: Группа переименована", zap.Int64("group_id", id), zap.String("name", name))
	return s.repo.GetGroup(ctx, id)
}

// DeleteGroup удаляет группу с задачами. Основную группу фиксированного
// слота удалить нельзя: реконсилер тут же создаст её заново.
func (s *BoardService) DeleteGroup(ctx context.Context, id int64) error {
	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("получение групп: %w", err)
	}

	plan := taxonomy.Classify(groups)
	c, ok := plan.Of(id)
	if !ok {
		return NewNotFound(ResourceGroup, id)
	}
	if c.Kind == taxonomy.KindBound {
		return NewBusinessError(CodeProtectedGroup,
			fmt.Sprintf("группа '%s' входит в фиксированную таксономию", c.Group.Name), nil,
			ToDetail("slot", c.Slot.String()))
	}

	if err := s.repo.DeleteGroup(ctx, id); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return NewNotFound(ResourceGroup, id)
		}
		return fmt.Errorf("удаление группы: %w", err)
	}
	logger.Info("Service: Группа удалена",
		zap.Int64("group_id", id),
		zap.String("name", c.Group.Name),
		zap.Int("tasks", len(c.Group.Tasks)))
	return nil
}

func (s *BoardService) ListActivity(ctx context.Context, limit int) ([]*activity.Entry, error) {
	if limit <= 0 || limit > DefaultActivityLimit {
		limit = DefaultActivityLimit
	}
	entries, err := s.activity.ListActivity(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("получение журнала: %w", err)
	}
	return entries, nil
}

// record пишет журнал; ошибка журнала не отменяет действие
func (s *BoardService) record(ctx context.Context, actor Actor, action activity.Action, taskTitle string, groupID int64) {
	groupName := activity.UnknownGroup
	if g, err := s.repo.GetGroup(ctx, groupID); err == nil {
		groupName = g.Name
	}
	userName := actor.Name
	if userName == "" {
		userName = activity.SystemUserName
	}

	entry := &activity.Entry{
		UserID:    actor.userID(),
		UserName:  userName,
		Action:    action,
		TaskTitle: taskTitle,
		GroupName: groupName,
		CreatedAt: s.now().UTC(),
	}
	if err := s.activity.AppendActivity(ctx, entry); err != nil {
		logger.Warn("Service: Не удалось записать журнал", zap.String("action", string(action)), zap.Error(err))
	}
}

// slotOfGroup возвращает группу и её слот
func (s *BoardService) slotOfGroup(ctx context.Context, id int64) (*group.Group, taxonomy.Slot, error) {
	g, err := s.repo.GetGroup(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, taxonomy.SlotNone, NewNotFound(ResourceGroup, id)
		}
		return nil, taxonomy.SlotNone, fmt.Errorf("получение группы: %w", err)
	}
	slot, _ := taxonomy.SlotOf(g.Name)
	return g, slot, nil
}
