package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"whiteboard/internal/logger"
	"whiteboard/internal/models/user"
	repo "whiteboard/internal/repository"
)

const userColumns = `id, name, email, password_hash, status, last_login`

func scanUser(row rowScanner) (*user.User, error) {
	u := &user.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Status, &u.LastLogin); err != nil {
		return nil, err
	}
	u.LastLogin = utcPtr(u.LastLogin)
	return u, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*user.User, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		logger.Error("Repository: Не удалось получить пользователей", err)
		return nil, fmt.Errorf("получение пользователей: %w", err)
	}
	defer rows.Close()

	users := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования пользователя", zap.Error(err))
			continue
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	slow("list_users", start, time.Millisecond*50)
	return users, nil
}

func (s *Storage) GetUser(ctx context.Context, id int64) (*user.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return u, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		if isNoRows(err) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return u, nil
}

func (s *Storage) CreateUser(ctx context.Context, userToCreate *user.User) error {
	if userToCreate.Status == "" {
		userToCreate.Status = user.StatusFree
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, status) VALUES ($1, $2, $3, $4) RETURNING id`,
		userToCreate.Name, userToCreate.Email, userToCreate.PasswordHash, userToCreate.Status,
	).Scan(&userToCreate.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrAlreadyExists
		}
		logger.Error("Repository: Не удалось создать пользователя", err)
		return fmt.Errorf("создание пользователя: %w", err)
	}
	return nil
}

func (s *Storage) UpdateUserStatus(ctx context.Context, id int64, status user.Status) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		logger.Error("Repository: Не удалось обновить статус", err, zap.Int64("user_id", id))
		return fmt.Errorf("обновление статуса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		logger.Error("Repository: Не удалось обновить last_login", err, zap.Int64("user_id", id))
		return fmt.Errorf("обновление last_login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// UpdateUser меняет только заданные поля; занятый e-mail - ErrAlreadyExists
func (s *Storage) UpdateUser(ctx context.Context, id int64, patch user.Patch) (*user.User, error) {
	var status *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}

	u, err := scanUser(s.pool.QueryRow(ctx, `
		UPDATE users SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			status = COALESCE($4, status)
		WHERE id = $1
		RETURNING `+userColumns,
		id, patch.Name, patch.Email, status))
	if err != nil {
		if isNoRows(err) {
			return nil, repo.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, repo.ErrAlreadyExists
		}
		logger.Error("Repository: Не удалось обновить пользователя", err, zap.Int64("user_id", id))
		return nil, fmt.Errorf("обновление пользователя: %w", err)
	}
	return u, nil
}

func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить пользователя", err, zap.Int64("user_id", id))
		return fmt.Errorf("удаление пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
