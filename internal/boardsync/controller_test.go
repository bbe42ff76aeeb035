package boardsync_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiteboard/internal/auth"
	"whiteboard/internal/boardsync"
	"whiteboard/internal/client"
	"whiteboard/internal/handlers"
	"whiteboard/internal/models/group"
	"whiteboard/internal/models/task"
	"whiteboard/internal/repository/inmemory"
	"whiteboard/internal/service"
	"whiteboard/internal/taxonomy"
	"whiteboard/internal/worker"
)

// gatedBackend считает чтения групп и может задержать запись задачи
type gatedBackend struct {
	*client.Client
	mu      sync.Mutex
	lists   int
	gate    chan struct{}
	started chan struct{}
}

func (b *gatedBackend) ListGroups(ctx context.Context) ([]*group.Group, error) {
	b.mu.Lock()
	b.lists++
	b.mu.Unlock()
	return b.Client.ListGroups(ctx)
}

func (b *gatedBackend) UpdateTask(ctx context.Context, id int64, patch client.TaskPatch) (*task.Task, error) {
	if b.gate != nil {
		close(b.started)
		<-b.gate
	}
	return b.Client.UpdateTask(ctx, id, patch)
}

func (b *gatedBackend) listCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lists
}

type recorder struct {
	mu    sync.Mutex
	snaps []boardsync.Snapshot
}

func (r *recorder) Render(s boardsync.Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func newBackend(t *testing.T, login bool) (*gatedBackend, *inmemory.Storage) {
	t.Helper()
	ctx := context.Background()
	store := inmemory.New()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	users := service.NewUserService(store, tokens)
	_, err := users.Register(ctx, "Anna", "anna@example.com", "correct horse")
	require.NoError(t, err)

	srv := httptest.NewServer(handlers.NewRouter(handlers.NewHandler(service.NewBoardService(store, store), users), tokens, handlers.RouterOptions{}))
	t.Cleanup(srv.Close)

	c := client.New(srv.URL, 5*time.Second)
	if login {
		_, err := c.Login(ctx, "anna@example.com", "correct horse")
		require.NoError(t, err)
	}
	return &gatedBackend{Client: c}, store
}

// TestController_PollBuildsSnapshot тестирует сверку и сборку снимка
func TestController_PollBuildsSnapshot(t *testing.T) {
	backend, _ := newBackend(t, true)
	ctx := context.Background()
	render := &recorder{}
	c := boardsync.New(backend, render, nil, boardsync.Options{})

	_, err := backend.CreateGroup(ctx, "Night Shift", "")
	require.NoError(t, err)

	rendered, err := c.Poll(ctx)
	require.NoError(t, err)
	assert.True(t, rendered)
	assert.Equal(t, 1, render.count())

	snap := c.Snapshot()
	require.Len(t, snap.Cards, len(taxonomy.Definitions())+1)
	assert.True(t, snap.Cards[0].Fixed)
	last := snap.Cards[len(snap.Cards)-1]
	assert.False(t, last.Fixed)
	assert.Equal(t, "Night Shift", last.Name)

	require.Len(t, snap.Roster.Online, 1, "login made Anna online")
	assert.Equal(t, "Anna", snap.Roster.Online[0].Name)
	assert.Equal(t, "Anna", c.Names().Name(context.Background(), &snap.Roster.Online[0].User.ID))
}

// TestController_EditGuardSkipsPoll тестирует пропуск цикла при редактировании
func TestController_EditGuardSkipsPoll(t *testing.T) {
	backend, _ := newBackend(t, true)
	render := &recorder{}
	c := boardsync.New(backend, render, nil, boardsync.Options{})

	release := c.Guard().Begin()
	rendered, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, rendered)
	assert.Zero(t, backend.listCalls(), "no fetch while editing")
	assert.Zero(t, render.count(), "no render while editing")

	release()
	release()
	assert.False(t, c.Guard().Held())

	rendered, err = c.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, rendered)
}

// TestController_OptimisticEdit тестирует наложение правки до ответа сервера
func TestController_OptimisticEdit(t *testing.T) {
	backend, store := newBackend(t, true)
	ctx := context.Background()
	c := boardsync.New(backend, &recorder{}, nil, boardsync.Options{})

	adHoc, err := backend.CreateGroup(ctx, "Night Shift", "")
	require.NoError(t, err)
	created, err := backend.CreateTask(ctx, client.NewTask{GroupID: adHoc.ID, Title: "Cover"})
	require.NoError(t, err)

	_, err = c.Poll(ctx)
	require.NoError(t, err)

	backend.gate = make(chan struct{})
	backend.started = make(chan struct{})

	done := task.StatusDone
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.Edit(ctx, created.ID, client.TaskPatch{Status: &done})
		assert.NoError(t, err)
	}()
	<-backend.started

	// локально задача уже завершена
	pending := c.Snapshot()
	local, _ := pending.Task(created.ID)
	require.NotNil(t, local)
	assert.True(t, local.IsDone())

	// опрос во время записи не откатывает правку
	_, err = c.Poll(ctx)
	require.NoError(t, err)
	snap := c.Snapshot()
	local, card := snap.Task(created.ID)
	require.NotNil(t, local)
	assert.True(t, local.IsDone())
	assert.Len(t, card.Done, 1)
	assert.Empty(t, card.Todo)

	close(backend.gate)
	wg.Wait()

	stored, err := store.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDone())

	// сервер - источник истины: чужое переоткрытие видно на следующем цикле
	_, err = store.UpdateTask(ctx, created.ID, task.Patch{Status: ptr(task.StatusTodo), ClearCompletion: true})
	require.NoError(t, err)
	_, err = c.Poll(ctx)
	require.NoError(t, err)
	snap = c.Snapshot()
	local, _ = snap.Task(created.ID)
	require.NotNil(t, local)
	assert.False(t, local.IsDone())
}

func ptr[T any](v T) *T { return &v }

// TestController_AuthFailure тестирует остановку на 401
func TestController_AuthFailure(t *testing.T) {
	backend, _ := newBackend(t, false)
	c := boardsync.New(backend, &recorder{}, nil, boardsync.Options{})

	_, err := c.Poll(context.Background())
	assert.ErrorIs(t, err, boardsync.ErrReauthRequired)
}

// TestController_CheckSession тестирует ежедневный повторный вход
func TestController_CheckSession(t *testing.T) {
	loc := time.UTC
	c := boardsync.New(nil, &recorder{}, nil, boardsync.Options{Location: loc})

	assert.ErrorIs(t, c.CheckSession(time.Now()), boardsync.ErrReauthRequired, "no session yet")

	c.StartSession(time.Date(2024, 5, 9, 9, 0, 0, 0, loc))
	assert.NoError(t, c.CheckSession(time.Date(2024, 5, 10, 8, 0, 0, 0, loc)))
	assert.ErrorIs(t, c.CheckSession(time.Date(2024, 5, 10, 9, 0, 0, 0, loc)), boardsync.ErrReauthRequired)

	c.StartSession(time.Date(2024, 5, 10, 8, 45, 0, 0, loc))
	assert.NoError(t, c.CheckSession(time.Date(2024, 5, 10, 17, 0, 0, 0, loc)))
}

// TestController_Run тестирует остановку цикла по отсечке и уведомление сканера
func TestController_Run(t *testing.T) {
	backend, _ := newBackend(t, true)
	ctx := context.Background()

	_, err := taxonomy.NewReconciler(backend).Reconcile(ctx)
	require.NoError(t, err)
	var holidayID int64
	groups, err := backend.ListGroups(ctx)
	require.NoError(t, err)
	for _, g := range groups {
		if g.Name == "Carers on Holiday" {
			holidayID = g.ID
		}
	}
	require.NotZero(t, holidayID)
	past := time.Now().Add(-time.Minute)
	_, err = backend.CreateTask(ctx, client.NewTask{GroupID: holidayID, Title: "Ben", StartDate: "2024-05-01", ScheduledAt: &past})
	require.NoError(t, err)

	interval := 10 * time.Millisecond
	scanner := worker.NewAutoReturnWorker(backend, &interval, nil)

	var mu sync.Mutex
	var notes []string
	notifier := boardsync.NotifierFunc(func(msg string) {
		mu.Lock()
		notes = append(notes, msg)
		mu.Unlock()
	})

	c := boardsync.New(backend, &recorder{}, notifier, boardsync.Options{
		PollInterval: 20 * time.Millisecond,
		CutoffCheck:  300 * time.Millisecond,
		Scanner:      scanner,
	})
	c.StartSession(time.Now().Add(-48 * time.Hour))

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = c.Run(runCtx)
	assert.ErrorIs(t, err, boardsync.ErrReauthRequired)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, notes, 1, "one batched notification")
	assert.Equal(t, boardsync.ReturnedMessage, notes[0])
}
