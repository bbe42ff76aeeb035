package presence

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"whiteboard/internal/logger"
	"whiteboard/internal/models/user"
)

// UserLister - источник пользователей для кэша имён
type UserLister interface {
	ListUsers(ctx context.Context) ([]*user.User, error)
}

// NameCache - id → отображаемое имя. Цикл синхронизации перезаполняет его
// целиком; промах читает список пользователей из источника. Id, которого
// нет и после чтения, до следующего перезаполнения отвечает "Unknown User"
// без новых запросов.
type NameCache struct {
	src     UserLister
	mu      sync.RWMutex
	names   map[int64]string
	missing map[int64]struct{}
	group   singleflight.Group
}

// NewNameCache: src может быть nil, тогда кэш отвечает только из памяти
func NewNameCache(src UserLister) *NameCache {
	return &NameCache{
		src:     src,
		names:   make(map[int64]string),
		missing: make(map[int64]struct{}),
	}
}

// Refill заменяет содержимое кэша
func (c *NameCache) Refill(users []*user.User) {
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	c.mu.Lock()
	c.names = names
	c.missing = make(map[int64]struct{})
	c.mu.Unlock()
}

// Load читает пользователей и заполняет кэш; при ошибке старое содержимое сохраняется
func (c *NameCache) Load(ctx context.Context, src UserLister) ([]*user.User, error) {
	users, err := src.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	c.Refill(users)
	return users, nil
}

func (c *NameCache) Invalidate() {
	c.mu.Lock()
	c.names = make(map[int64]string)
	c.missing = make(map[int64]struct{})
	c.mu.Unlock()
}

func (c *NameCache) cached(id int64) (name string, known, missing bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, known = c.names[id]
	_, missing = c.missing[id]
	return name, known, missing
}

// Name - имя по id; nil и неизвестный id дают "Unknown User".
// Одновременные промахи делят один запрос к источнику.
func (c *NameCache) Name(ctx context.Context, id *int64) string {
	if id == nil {
		return user.UnknownName
	}
	name, known, missing := c.cached(*id)
	if known {
		return name
	}
	if missing || c.src == nil {
		return user.UnknownName
	}

	_, err, _ := c.group.Do(strconv.FormatInt(*id, 10), func() (any, error) {
		return c.Load(ctx, c.src)
	})
	if err != nil {
		logger.Warn("Presence: Не удалось дочитать имя пользователя", zap.Int64("user_id", *id), zap.Error(err))
		return user.UnknownName
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.names[*id]; ok {
		return name
	}
	c.missing[*id] = struct{}{}
	return user.UnknownName
}
