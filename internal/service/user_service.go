package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"whiteboard/internal/auth"
	"whiteboard/internal/logger"
	"whiteboard/internal/models/user"
	rep "whiteboard/internal/repository"
)

type UserService struct {
	repo        UserRepository
	tokens      *auth.TokenManager
	now         func() time.Time
	emailDomain string
}

type UserOption func(*UserService)

// WithEmailDomain пускает к регистрации только адреса домена организации
func WithEmailDomain(domain string) UserOption {
	return func(s *UserService) {
		s.emailDomain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@"))
	}
}

func NewUserService(repo UserRepository, tokens *auth.TokenManager, opts ...UserOption) *UserService {
	s := &UserService{
		repo:   repo,
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session - результат успешного входа
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *user.User
}

func invalidCredentials() *BusinessError {
	return NewBusinessError(CodeInvalidCredentials, "неверный e-mail или пароль", nil)
}

// Login проверяет пароль и обновляет last_login; при ошибке last_login не меняется
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Вход с неизвестным e-mail")
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	if err := auth.ComparePassword(u.PasswordHash, password); err != nil {
		logger.Info("Service: Неверный пароль", zap.Int64("user_id", u.ID))
		return nil, invalidCredentials()
	}

	now := s.now().UTC()
	if err := s.repo.TouchLogin(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("обновление last_login: %w", err)
	}
	u.LastLogin = &now

	return s.issue(u)
}

// IssueToken выпускает токен без пароля и без изменения last_login
func (s *UserService) IssueToken(ctx context.Context, email string) (*Session, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewBusinessError(CodeNotFound, fmt.Sprintf("пользователь %s не найден", email), err)
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return s.issue(u)
}

func (s *UserService) issue(u *user.User) (*Session, error) {
	token, expires, err := s.tokens.Generate(u)
	if err != nil {
		return nil, fmt.Errorf("выпуск токена: %w", err)
	}
	logger.Info("Service: Выпущен токен", zap.Int64("user_id", u.ID))
	return &Session{Token: token, ExpiresAt: expires, User: u}, nil
}

func (s *UserService) validateEmail(email string) error {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.ContainsAny(email, " \t") {
		return NewValidationError("email", "ожидается адрес e-mail")
	}
	if s.emailDomain != "" && !strings.EqualFold(domain, s.emailDomain) {
		return NewValidationError("email", "нужен адрес в домене "+s.emailDomain)
	}
	return nil
}

// Register создаёт пользователя со статусом free; имя, e-mail и пароль обязательны
func (s *UserService) Register(ctx context.Context, name, email, password string) (*user.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return nil, NewValidationError("name", "имя обязательно")
	}
	if err := s.validateEmail(email); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, NewValidationError("password", "не короче 8 символов")
		}
		return nil, err
	}

	u := &user.User{Name: name, Email: email, PasswordHash: hash, Status: user.StatusFree}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, rep.ErrAlreadyExists) {
			return nil, NewBusinessError(CodeUserExists, fmt.Sprintf("пользователь %s уже существует", email), err)
		}
		return nil, fmt.Errorf("создание пользователя: %w", err)
	}
	logger.Info("Service: Создан пользователь", zap.Int64("user_id", u.ID))
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*user.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение пользователей: %w", err)
	}
	return users, nil
}

func (s *UserService) SetStatus(ctx context.Context, id int64, status user.Status) (*user.User, error) {
	if !status.Valid() {
		return nil, NewValidationError("status", "неизвестный статус")
	}
	if err := s.repo.UpdateUserStatus(ctx, id, status); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound(ResourceUser, id)
		}
		return nil, fmt.Errorf("обновление статуса: %w", err)
	}
	return s.repo.GetUser(ctx, id)
}

// UpdateUser - правка администратором. Проверка домена здесь не действует:
// администратор может завести внешний адрес.
func (s *UserService) UpdateUser(ctx context.Context, id int64, patch user.Patch) (*user.User, error) {
	if patch.Empty() {
		return nil, NewValidationError("body", "нет полей для обновления")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, NewValidationError("name", "имя не может быть пустым")
		}
		patch.Name = &name
	}
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		local, domain, ok := strings.Cut(email, "@")
		if !ok || local == "" || domain == "" {
			return nil, NewValidationError("email", "ожидается адрес e-mail")
		}
		patch.Email = &email
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, NewValidationError("status", "неизвестный статус")
	}

	updated, err := s.repo.UpdateUser(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, rep.ErrNotFound):
			return nil, NewNotFound(ResourceUser, id)
		case errors.Is(err, rep.ErrAlreadyExists):
			return nil, NewBusinessError(CodeUserExists, fmt.Sprintf("пользователь %s уже существует", *patch.Email), err)
		}
		return nil, fmt.Errorf("обновление пользователя: %w", err)
	}
	logger.Info("Service: Пользователь обновлён", zap.Int64("user_id", id))
	return updated, nil
}

// DeleteUser удаляет учётную запись; удалить самого себя нельзя
func (s *UserService) DeleteUser(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return NewValidationError("id", "нельзя удалить собственную учётную запись")
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return NewNotFound(ResourceUser, id)
		}
		return fmt.Errorf("удаление пользователя: %w", err)
	}
	logger.Info("Service: Пользователь удалён", zap.Int64("user_id", id), zap.Int64("actor_id", actorID))
	return nil
}

// Authenticate проверяет bearer-токен
func (s *UserService) Authenticate(token string) (*auth.Claims, error) {
	return s.tokens.Validate(token)
}
