package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"whiteboard/internal/logger"
	"whiteboard/internal/models/activity"
)

func (s *Storage) AppendActivity(ctx context.Context, entry *activity.Entry) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO activity_logs (user_id, user_name, action, task_title, group_name)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at`,
		entry.UserID, entry.UserName, entry.Action, entry.TaskTitle, entry.GroupName,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось записать действие", err)
		return fmt.Errorf("запись действия: %w", err)
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	return nil
}

func (s *Storage) ListActivity(ctx context.Context, limit int) ([]*activity.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, user_name, action, task_title, group_name, created_at
			FROM activity_logs
			ORDER BY created_at DESC, id DESC
			LIMIT $1`, limit)
	if err != nil {
		logger.Error("Repository: Не удалось получить журнал", err)
		return nil, fmt.Errorf("получение журнала: %w", err)
	}
	defer rows.Close()

	entries := []*activity.Entry{}
	for rows.Next() {
		e := &activity.Entry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserName, &e.Action, &e.TaskTitle, &e.GroupName, &e.CreatedAt); err != nil {
			logger.Warn("Repository: Ошибка сканирования записи журнала", zap.Error(err))
			continue
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return entries, nil
}
