// Package boardsync держит локальный снимок доски согласованным с сервером:
// периодический опрос с повторной сверкой групп, оптимистичные правки задач
// и ежедневный принудительный повторный вход.
package boardsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"whiteboard/internal/client"
	"whiteboard/internal/logger"
	"whiteboard/internal/models/task"
	"whiteboard/internal/models/user"
	"whiteboard/internal/presence"
	"whiteboard/internal/taxonomy"
	"whiteboard/internal/worker"
)

// ErrReauthRequired останавливает контроллер: сессия истекла или началась
// до последней утренней отсечки
var ErrReauthRequired = errors.New("требуется повторный вход")

// ReturnedMessage - единое уведомление после прохода сканера
const ReturnedMessage = "System: Carers marked as returned."

// Backend - серверный API, с которым работает контроллер
type Backend interface {
	taxonomy.Store
	presence.UserLister
	UpdateTask(ctx context.Context, id int64, patch client.TaskPatch) (*task.Task, error)
}

type Renderer interface {
	Render(Snapshot)
}

type RendererFunc func(Snapshot)

func (f RendererFunc) Render(s Snapshot) { f(s) }

type Notifier interface {
	Notify(message string)
}

type NotifierFunc func(string)

func (f NotifierFunc) Notify(message string) { f(message) }

type Options struct {
	PollInterval time.Duration
	CutoffCheck  time.Duration
	Clock        presence.Clock
	Location     *time.Location
	// Scanner запускается вместе с опросом, если задан
	Scanner *worker.AutoReturnWorker
	Now     func() time.Time
}

type pendingEdit struct {
	seq   uint64
	id    int64
	patch client.TaskPatch
	at    time.Time
}

type Controller struct {
	backend    Backend
	renderer   Renderer
	notifier   Notifier
	reconciler *taxonomy.Reconciler
	guard      *EditGuard
	names      *presence.NameCache
	opts       Options

	mu           sync.Mutex
	snapshot     Snapshot
	pending      []pendingEdit
	seq          uint64
	sessionStart time.Time

	refresh chan struct{}
}

func New(backend Backend, renderer Renderer, notifier Notifier, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 15 * time.Second
	}
	if opts.CutoffCheck <= 0 {
		opts.CutoffCheck = time.Minute
	}
	if opts.Clock == (presence.Clock{}) {
		opts.Clock = presence.DefaultClock
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if notifier == nil {
		notifier = NotifierFunc(func(string) {})
	}

	c := &Controller{
		backend:    backend,
		renderer:   renderer,
		notifier:   notifier,
		reconciler: taxonomy.NewReconciler(backend),
		guard:      &EditGuard{},
		names:      presence.NewNameCache(backend),
		opts:       opts,
		refresh:    make(chan struct{}, 1),
	}
	if opts.Scanner != nil {
		opts.Scanner.OnReturned(c.onReturned)
	}
	return c
}

func (c *Controller) Guard() *EditGuard { return c.guard }

func (c *Controller) Names() *presence.NameCache { return c.names }

// StartSession отмечает момент входа для ежедневной проверки
func (c *Controller) StartSession(at time.Time) {
	c.mu.Lock()
	c.sessionStart = at
	c.mu.Unlock()
}

// Snapshot - копия последнего снимка с наложенными правками
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot.clone()
}

// Refresh просит внеочередной цикл опроса; повторные запросы схлопываются
func (c *Controller) Refresh() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

func (c *Controller) onReturned(ctx context.Context, returned []*task.Task) {
	logger.Info("Sync: Сканер закрыл задачи", zap.Int("count", len(returned)))
	c.notifier.Notify(ReturnedMessage)
	c.Refresh()
}

func authFailure(err error) bool {
	return errors.Is(err, client.ErrUnauthorized)
}

// Poll выполняет один цикл. false без ошибки означает, что цикл пропущен
// из-за редактирования или сбоя сети.
func (c *Controller) Poll(ctx context.Context) (bool, error) {
	if c.guard.Held() {
		logger.Debug("Sync: Идёт редактирование, цикл пропущен")
		return false, nil
	}

	if _, err := c.reconciler.Reconcile(ctx); err != nil {
		if authFailure(err) {
			return false, ErrReauthRequired
		}
		logger.Warn("Sync: Сверка групп не удалась", zap.Error(err))
	}

	groups, err := c.backend.ListGroups(ctx)
	if err != nil {
		if authFailure(err) {
			return false, ErrReauthRequired
		}
		logger.Warn("Sync: Не удалось получить группы", zap.Error(err))
		return false, nil
	}

	users, err := c.names.Load(ctx, c.backend)
	if err != nil {
		if authFailure(err) {
			return false, ErrReauthRequired
		}
		logger.Warn("Sync: Не удалось получить пользователей", zap.Error(err))
		users = []*user.User{}
	}

	// ввод мог начаться, пока шли запросы
	if c.guard.Held() {
		logger.Debug("Sync: Редактирование началось во время цикла, отрисовка пропущена")
		return false, nil
	}

	now := c.opts.Now()
	cutoff := presence.Cutoff(now, c.opts.Clock, c.opts.Location)
	snap := buildSnapshot(groups, presence.Buckets(users, cutoff), now)

	c.mu.Lock()
	for _, edit := range c.pending {
		snap.apply(edit.id, edit.patch, edit.at)
	}
	c.snapshot = snap
	out := snap.clone()
	c.mu.Unlock()

	c.renderer.Render(out)
	return true, nil
}

// Edit применяет правку к локальному снимку сразу, затем отправляет частичную
// запись. Правка снимается, когда запись завершилась; расхождение исправит
// следующий цикл опроса.
func (c *Controller) Edit(ctx context.Context, id int64, patch client.TaskPatch) (*task.Task, error) {
	now := c.opts.Now()

	c.mu.Lock()
	c.seq++
	edit := pendingEdit{seq: c.seq, id: id, patch: patch, at: now}
	c.pending = append(c.pending, edit)
	c.snapshot.apply(id, patch, now)
	out := c.snapshot.clone()
	c.mu.Unlock()

	c.renderer.Render(out)

	updated, err := c.backend.UpdateTask(ctx, id, patch)

	c.mu.Lock()
	for i, p := range c.pending {
		if p.seq == edit.seq {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	if err != nil {
		logger.Warn("Sync: Правка задачи отклонена", zap.Int64("task_id", id), zap.Error(err))
		c.Refresh()
		if authFailure(err) {
			return nil, ErrReauthRequired
		}
		return nil, err
	}
	return updated, nil
}

// CheckSession требует повторный вход, если сессия началась до последней отсечки
func (c *Controller) CheckSession(now time.Time) error {
	c.mu.Lock()
	started := c.sessionStart
	c.mu.Unlock()

	cutoff := presence.Cutoff(now, c.opts.Clock, c.opts.Location)
	if started.IsZero() || started.Before(cutoff) {
		logger.Info("Sync: Сессия старше утренней отсечки",
			zap.Time("session_start", started),
			zap.Time("cutoff", cutoff))
		return ErrReauthRequired
	}
	return nil
}

// Run крутит опрос, проверку отсечки и (если задан) сканер до отмены ctx
// или до ErrReauthRequired. Тик не прерывается на середине.
func (c *Controller) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if _, err := c.Poll(context.WithoutCancel(gctx)); err != nil {
			return err
		}
		ticker := time.NewTicker(c.opts.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			case <-c.refresh:
			}
			if _, err := c.Poll(context.WithoutCancel(gctx)); err != nil {
				return err
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(c.opts.CutoffCheck)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := c.CheckSession(c.opts.Now()); err != nil {
					return err
				}
			}
		}
	})

	if c.opts.Scanner != nil {
		g.Go(func() error {
			c.opts.Scanner.Start(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("синхронизация: %w", err)
	}
	return nil
}
