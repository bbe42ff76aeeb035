// Package inmemory - хранилище доски в памяти процесса. Используется для
// разработки и тестов, данные теряются при перезапуске.
package inmemory

import (
	"context"
	"sync"
	"time"

	"whiteboard/internal/logger"
	"whiteboard/internal/models/activity"
	"whiteboard/internal/models/group"
	"whiteboard/internal/models/task"
	"whiteboard/internal/models/user"
)

type Storage struct {
	mtx *sync.RWMutex

	groups   map[int64]*group.Group
	tasks    map[int64]*task.Task
	users    map[int64]*user.User
	activity []*activity.Entry

	nextGroupID    int64
	nextTaskID     int64
	nextUserID     int64
	nextActivityID int64

	now func() time.Time
}

func New() *Storage {
	return &Storage{
		mtx:    &sync.RWMutex{},
		groups: make(map[int64]*group.Group),
		tasks:  make(map[int64]*task.Task),
		users:  make(map[int64]*user.User),
		now:    time.Now,
	}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *Storage) Close() {}
