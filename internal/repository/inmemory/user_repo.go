package inmemory

import (
	"context"
	"sort"
	"strings"
	"time"

	"whiteboard/internal/models/user"
	repo "whiteboard/internal/repository"
)

func cloneUser(u *user.User) *user.User {
	c := *u
	if u.LastLogin != nil {
		at := *u.LastLogin
		c.LastLogin = &at
	}
	return &c
}

func (s *Storage) ListUsers(ctx context.Context) ([]*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	users := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *Storage) GetUser(ctx context.Context, id int64) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *Storage) CreateUser(ctx context.Context, userToCreate *user.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, userToCreate.Email) {
			return repo.ErrAlreadyExists
		}
	}
	if userToCreate.Status == "" {
		userToCreate.Status = user.StatusFree
	}

	s.nextUserID++
	userToCreate.ID = s.nextUserID
	s.users[userToCreate.ID] = cloneUser(userToCreate)
	return nil
}

func (s *Storage) UpdateUserStatus(ctx context.Context, id int64, status user.Status) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	u, ok := s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.Status = status
	return nil
}

// TouchLogin обновляет last_login; вызывается только при успешном входе
func (s *Storage) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	u, ok := s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	at = at.UTC()
	u.LastLogin = &at
	return nil
}

func (s *Storage) UpdateUser(ctx context.Context, id int64, patch user.Patch) (*user.User, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if patch.Email != nil {
		for otherID, other := range s.users {
			if otherID != id && strings.EqualFold(other.Email, *patch.Email) {
				return nil, repo.ErrAlreadyExists
			}
		}
		u.Email = *patch.Email
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Status != nil {
		u.Status = *patch.Status
	}
	return cloneUser(u), nil
}

func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.users[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.users, id)
	return nil
}
