package presence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiteboard/internal/models/user"
	"whiteboard/internal/presence"
)

// TestCutoff тестирует выбор отсечки до и после 08:30
func TestCutoff(t *testing.T) {
	loc := time.FixedZone("Local", 0)
	yesterdayLogin := time.Date(2024, 5, 9, 9, 0, 0, 0, loc)

	tests := []struct {
		name   string
		now    time.Time
		cutoff time.Time
		online bool
	}{
		{
			name:   "08:00 uses yesterday's cutoff",
			now:    time.Date(2024, 5, 10, 8, 0, 0, 0, loc),
			cutoff: time.Date(2024, 5, 9, 8, 30, 0, 0, loc),
			online: true,
		},
		{
			name:   "09:00 uses today's cutoff",
			now:    time.Date(2024, 5, 10, 9, 0, 0, 0, loc),
			cutoff: time.Date(2024, 5, 10, 8, 30, 0, 0, loc),
			online: false,
		},
		{
			name:   "exactly 08:30 is today's cutoff",
			now:    time.Date(2024, 5, 10, 8, 30, 0, 0, loc),
			cutoff: time.Date(2024, 5, 10, 8, 30, 0, 0, loc),
			online: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cutoff := presence.Cutoff(tt.now, presence.DefaultClock, loc)
			assert.True(t, tt.cutoff.Equal(cutoff), "got %s", cutoff)
			assert.Equal(t, tt.online, presence.IsOnline(&yesterdayLogin, cutoff))
		})
	}

	assert.False(t, presence.IsOnline(nil, time.Now()))
}

// TestCutoff_Timezone тестирует отсечку в зоне доски
func TestCutoff_Timezone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	// 07:00 UTC = 09:00 в зоне доски, отсечка сегодня 06:30 UTC
	now := time.Date(2024, 5, 10, 7, 0, 0, 0, time.UTC)
	cutoff := presence.Cutoff(now, presence.DefaultClock, loc)
	assert.True(t, time.Date(2024, 5, 10, 6, 30, 0, 0, time.UTC).Equal(cutoff))
}

// TestParseClock тестирует разбор времени отсечки
func TestParseClock(t *testing.T) {
	c, err := presence.ParseClock("07:45")
	require.NoError(t, err)
	assert.Equal(t, presence.Clock{Hour: 7, Minute: 45}, c)
	assert.Equal(t, "07:45", c.String())

	_, err = presence.ParseClock("half past eight")
	assert.Error(t, err)
}

// TestBuckets тестирует разбиение и сортировку списка присутствия
func TestBuckets(t *testing.T) {
	cutoff := time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC)
	in := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	before := time.Date(2024, 5, 9, 17, 0, 0, 0, time.UTC)

	users := []*user.User{
		{ID: 1, Name: "zoe", Status: user.StatusBusy, LastLogin: &in},
		{ID: 2, Name: "Adam", Status: user.StatusMeeting, LastLogin: &in},
		{ID: 3, Email: "carl@example.com", Status: user.StatusOffline, LastLogin: &before},
		{ID: 4, Name: "bella", Status: user.StatusFree},
	}

	roster := presence.Buckets(users, cutoff)
	require.Len(t, roster.Online, 2)
	require.Len(t, roster.Offline, 2)
	assert.True(t, roster.Separator())

	assert.Equal(t, "Adam", roster.Online[0].Name)
	assert.Equal(t, user.StatusMeeting.Icon(), roster.Online[0].Icon)
	assert.Equal(t, "zoe", roster.Online[1].Name)

	assert.Equal(t, "bella", roster.Offline[0].Name)
	assert.False(t, roster.Offline[0].ExplicitOffline)
	assert.Equal(t, "Carl", roster.Offline[1].Name)
	assert.True(t, roster.Offline[1].ExplicitOffline)
	assert.Empty(t, roster.Offline[1].Icon)

	empty := presence.Buckets(users[:2], cutoff)
	assert.False(t, empty.Separator())
}

type listerFunc func(ctx context.Context) ([]*user.User, error)

func (f listerFunc) ListUsers(ctx context.Context) ([]*user.User, error) { return f(ctx) }

// TestNameCache тестирует перезаполнение и ответ по умолчанию
func TestNameCache(t *testing.T) {
	ctx := context.Background()
	cache := presence.NewNameCache(nil)
	id := int64(1)
	assert.Equal(t, user.UnknownName, cache.Name(ctx, &id))
	assert.Equal(t, user.UnknownName, cache.Name(ctx, nil))

	_, err := cache.Load(ctx, listerFunc(func(context.Context) ([]*user.User, error) {
		return []*user.User{{ID: 1, Email: "anna@example.com"}}, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, "Anna", cache.Name(ctx, &id))

	_, err = cache.Load(ctx, listerFunc(func(context.Context) ([]*user.User, error) {
		return nil, errors.New("offline")
	}))
	assert.Error(t, err)
	assert.Equal(t, "Anna", cache.Name(ctx, &id), "failed load keeps previous names")

	cache.Refill([]*user.User{{ID: 2, Name: "Ben"}})
	assert.Equal(t, user.UnknownName, cache.Name(ctx, &id))

	cache.Invalidate()
	two := int64(2)
	assert.Equal(t, user.UnknownName, cache.Name(ctx, &two))
}

// TestNameCache_ReadThrough тестирует дочитывание при промахе
func TestNameCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	calls := 0
	roster := []*user.User{{ID: 1, Name: "Anna"}}
	var failWith error
	cache := presence.NewNameCache(listerFunc(func(context.Context) ([]*user.User, error) {
		calls++
		if failWith != nil {
			return nil, failWith
		}
		return roster, nil
	}))

	one, two := int64(1), int64(2)
	assert.Equal(t, "Anna", cache.Name(ctx, &one), "miss reads through")
	assert.Equal(t, 1, calls)
	assert.Equal(t, "Anna", cache.Name(ctx, &one))
	assert.Equal(t, 1, calls, "hit served from memory")

	// пользователь зарегистрировался между циклами синхронизации
	roster = append(roster, &user.User{ID: 2, Email: "ben@example.com"})
	assert.Equal(t, "Ben", cache.Name(ctx, &two))
	assert.Equal(t, 2, calls)

	ghost := int64(99)
	assert.Equal(t, user.UnknownName, cache.Name(ctx, &ghost))
	assert.Equal(t, user.UnknownName, cache.Name(ctx, &ghost))
	assert.Equal(t, 3, calls, "unknown id is looked up once per refill")

	cache.Refill(roster)
	failWith = errors.New("offline")
	assert.Equal(t, user.UnknownName, cache.Name(ctx, &ghost))
	assert.Equal(t, 4, calls)
	assert.Equal(t, "Anna", cache.Name(ctx, &one), "failed read-through keeps names")
}
