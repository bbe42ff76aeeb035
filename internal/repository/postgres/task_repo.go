package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"whiteboard/internal/logger"
	"whiteboard/internal/models/task"
	repo "whiteboard/internal/repository"
)

const taskColumns = `id, group_id, title, description, priority, status, created_at,
	completed_at, scheduled_at, created_by, completed_by, solution`

func scanTask(row rowScanner) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.ID,
		&t.GroupID,
		&t.Title,
		&t.Description,
		&t.Priority,
		&t.Status,
		&t.CreatedAt,
		&t.CompletedAt,
		&t.ScheduledAt,
		&t.CreatedBy,
		&t.CompletedBy,
		&t.Solution,
	)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.CompletedAt = utcPtr(t.CompletedAt)
	t.ScheduledAt = utcPtr(t.ScheduledAt)
	return t, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == "23503"
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == "23505"
}

func (s *Storage) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	start := time.Now()

	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	slow("get_task", start, time.Millisecond*100)
	return t, nil
}

func (s *Storage) CreateTask(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	query := `INSERT INTO tasks
				(group_id, title, description, priority, status, scheduled_at, created_by, solution)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id, created_at`

	err := s.pool.QueryRow(ctx, query,
		taskToCreate.GroupID,
		taskToCreate.Title,
		taskToCreate.Description,
		taskToCreate.Priority,
		taskToCreate.Status,
		taskToCreate.ScheduledAt,
		taskToCreate.CreatedBy,
		taskToCreate.Solution,
	).Scan(&taskToCreate.ID, &taskToCreate.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}
	taskToCreate.CreatedAt = taskToCreate.CreatedAt.UTC()

	slow("create_task", start, time.Millisecond*50)
	return nil
}

// UpdateTask пишет только переданные поля
func (s *Storage) UpdateTask(ctx context.Context, id int64, patch task.Patch) (*task.Task, error) {
	start := time.Now()

	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Priority != nil {
		add("priority", *patch.Priority)
	}
	if patch.GroupID != nil {
		add("group_id", *patch.GroupID)
	}
	if patch.Solution != nil {
		add("solution", *patch.Solution)
	}
	if patch.ClearScheduledAt {
		sets = append(sets, "scheduled_at = NULL")
	} else if patch.ScheduledAt != nil {
		add("scheduled_at", patch.ScheduledAt.UTC())
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.ClearCompletion {
		sets = append(sets, "completed_at = NULL", "completed_by = NULL")
	}

	if len(sets) == 0 {
		return s.GetTask(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), taskColumns)

	t, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) || isForeignKeyViolation(err) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось обновить задачу", err, zap.Int64("task_id", id))
		return nil, fmt.Errorf("обновление задачи: %w", err)
	}

	slow("update_task", start, time.Millisecond*100)
	return t, nil
}

// CompleteTask - условное завершение: строка меняется, только если задача
// ещё не done, проигравший гонку получает ErrAlreadyDone
func (s *Storage) CompleteTask(ctx context.Context, id int64, c task.Completion) (*task.Task, error) {
	start := time.Now()

	query := `UPDATE tasks
				SET status = $2,
					completed_at = $3,
					completed_by = $4,
					solution = COALESCE($5, solution)
			WHERE id = $1 AND status <> $2`
	// системное завершение - только по наступившей дате возврата
	if c.IsSystem() {
		query += ` AND scheduled_at IS NOT NULL AND scheduled_at <= $3`
	}
	query += ` RETURNING ` + taskColumns

	t, err := scanTask(s.pool.QueryRow(ctx, query, id, task.StatusDone, c.At.UTC(), c.By, c.Solution))
	if err != nil {
		if !isNoRows(err) {
			logger.Error("Repository: Не удалось завершить задачу", err, zap.Int64("task_id", id))
			return nil, fmt.Errorf("завершение задачи: %w", err)
		}
		var status task.Status
		if err := s.pool.QueryRow(ctx, `SELECT status FROM tasks WHERE id = $1`, id).Scan(&status); err != nil {
			if isNoRows(err) {
				return nil, repo.ErrNotFound
			}
			return nil, fmt.Errorf("проверка задачи: %w", err)
		}
		if status == task.StatusDone {
			return nil, repo.ErrAlreadyDone
		}
		return nil, repo.ErrNotDue
	}

	slow("complete_task", start, time.Millisecond*100)
	return t, nil
}

func (s *Storage) DeleteTask(ctx context.Context, id int64) error {
	start := time.Now()

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Полное удаление задачи", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("удаление задачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) FindOpenTaskByTitle(ctx context.Context, groupID int64, title string) (*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
			WHERE group_id = $1 AND status <> $2 AND LOWER(TRIM(title)) = LOWER(TRIM($3))
			ORDER BY id
			LIMIT 1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, groupID, task.StatusDone, title))
	if err != nil {
		if isNoRows(err) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось найти задачу по названию", err)
		return nil, fmt.Errorf("поиск задачи: %w", err)
	}
	return t, nil
}
