package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"whiteboard/internal/logger"
	"whiteboard/internal/models/group"
	"whiteboard/internal/models/task"
	repo "whiteboard/internal/repository"
)

// ListGroups возвращает все группы с вложенными задачами, по id
func (s *Storage) ListGroups(ctx context.Context) ([]*group.Group, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx, `SELECT id, name, color FROM groups ORDER BY id`)
	if err != nil {
		logger.Error("Repository: Не удалось получить группы", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение групп: %w", err)
	}
	defer rows.Close()

	groups := []*group.Group{}
	for rows.Next() {
		g := &group.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Color); err != nil {
			logger.Warn("Repository: Ошибка сканирования группы", zap.Error(err))
			continue
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	tasks, err := s.listTasks(ctx)
	if err != nil {
		return nil, err
	}

	slow("list_groups", start, time.Millisecond*100)
	return group.Nest(groups, tasks), nil
}

func (s *Storage) listTasks(ctx context.Context) ([]*task.Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err)
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования задачи", zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, nil
}

func (s *Storage) GetGroup(ctx context.Context, id int64) (*group.Group, error) {
	g := &group.Group{}
	err := s.pool.QueryRow(ctx, `SELECT id, name, color FROM groups WHERE id = $1`, id).Scan(&g.ID, &g.Name, &g.Color)
	if err != nil {
		if isNoRows(err) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить группу", err, zap.Int64("group_id", id))
		return nil, fmt.Errorf("получение группы: %w", err)
	}
	return g, nil
}

func (s *Storage) CreateGroup(ctx context.Context, name, color string) (*group.Group, error) {
	start := time.Now()

	g := &group.Group{Name: name, Color: color}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO groups (name, color) VALUES ($1, $2) RETURNING id`,
		name, color,
	).Scan(&g.ID)
	if err != nil {
		logger.Error("Repository: Не удалось создать группу", err, zap.String("name", name))
		return nil, fmt.Errorf("создание группы: %w", err)
	}

	slow("create_group", start, time.Millisecond*50)
	return g, nil
}

func (s *Storage) RenameGroup(ctx context.Context, id int64, name string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE groups SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		logger.Error("Repository: Не удалось переименовать группу", err, zap.Int64("group_id", id))
		return fmt.Errorf("переименование группы: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// DeleteGroup удаляет группу и её задачи в одной транзакции
func (s *Storage) DeleteGroup(ctx context.Context, id int64) error {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		logger.Error("Repository: Не удалось начать транзакцию", err)
		return fmt.Errorf("начало транзакции: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE group_id = $1`, id); err != nil {
		logger.Error("Repository: Не удалось удалить задачи группы", err, zap.Int64("group_id", id))
		return fmt.Errorf("удаление задач группы: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить группу", err, zap.Int64("group_id", id))
		return fmt.Errorf("удаление группы: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		logger.Error("Repository: Не удалось зафиксировать транзакцию", err)
		return fmt.Errorf("фиксация транзакции: %w", err)
	}

	slow("delete_group", start, time.Millisecond*100)
	return nil
}

func (s *Storage) MoveTask(ctx context.Context, taskID, groupID int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE tasks SET group_id = $2 WHERE id = $1`, taskID, groupID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось перенести задачу", err, zap.Int64("task_id", taskID))
		return fmt.Errorf("перенос задачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
