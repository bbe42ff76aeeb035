package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"whiteboard/internal/logger"
	"whiteboard/internal/models/group"
	"whiteboard/internal/models/task"
	"whiteboard/internal/taxonomy"
)

// Store - источник групп и системное завершение. ListGroups читается
// заново на каждом проходе, кэша нет.
type Store interface {
	ListGroups(ctx context.Context) ([]*group.Group, error)
	AutoComplete(ctx context.Context, taskID int64) (*task.Task, error)
}

// NotifyFunc вызывается один раз после прохода, закрывшего хотя бы одну задачу
type NotifyFunc func(ctx context.Context, returned []*task.Task)

// AutoReturnWorker закрывает задачи групп отсутствия, у которых наступила
// scheduled_at: сотрудник вернулся из отпуска, больничного или больницы.
type AutoReturnWorker struct {
	store     Store
	interval  time.Duration
	batchSize int
	notify    NotifyFunc
	now       func() time.Time
}

func NewAutoReturnWorker(store Store, interval *time.Duration, batchSize *int) *AutoReturnWorker {
	var intervalToSet time.Duration
	if interval == nil || *interval <= 0 {
		intervalToSet = time.Minute
	} else {
		intervalToSet = *interval
	}

	var batchToSet int
	if batchSize == nil || *batchSize <= 0 {
		batchToSet = 100
	} else {
		batchToSet = *batchSize
	}
	return &AutoReturnWorker{
		store:     store,
		interval:  intervalToSet,
		batchSize: batchToSet,
		now:       time.Now,
	}
}

func (w *AutoReturnWorker) OnReturned(notify NotifyFunc) *AutoReturnWorker {
	w.notify = notify
	return w
}

// Start блокируется до отмены контекста. Проход не прерывается на середине:
// тики, пришедшие во время прохода, отбрасываются тикером.
func (w *AutoReturnWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Debug("Worker: Фоновая проверка возвратов", zap.Time("started_at", w.now()))
			if _, err := w.Check(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Worker: Проверка возвратов не удалась", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("Worker: Фоновая проверка останавливается")
			return
		}
	}
}

// Check выполняет один проход и возвращает закрытые задачи
func (w *AutoReturnWorker) Check(ctx context.Context) ([]*task.Task, error) {
	start := time.Now()

	groups, err := w.store.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение групп: %w", err)
	}

	due := w.dueTasks(groups)
	returned := make([]*task.Task, 0, len(due))
	for _, t := range due {
		if len(returned) >= w.batchSize {
			break
		}
		done, err := w.store.AutoComplete(ctx, t.ID)
		if err != nil {
			if errors.Is(err, task.ErrAlreadyDone) {
				logger.Debug("Worker: Задача уже закрыта", zap.Int64("task_id", t.ID))
				continue
			}
			logger.Warn("Worker: Ошибка автозавершения", zap.Int64("task_id", t.ID), zap.Error(err))
			continue
		}
		if done == nil {
			done = t
		}
		returned = append(returned, done)
	}

	logger.Info(
		"Worker: Завершение проверки возвратов",
		zap.Duration("ms", time.Since(start)),
		zap.Int("due", len(due)),
		zap.Int("returned", len(returned)),
	)

	if len(returned) > 0 && w.notify != nil {
		w.notify(ctx, returned)
	}
	return returned, nil
}

// dueTasks - открытые задачи групп отсутствия с наступившей датой
func (w *AutoReturnWorker) dueTasks(groups []*group.Group) []*task.Task {
	now := w.now()
	plan := taxonomy.Classify(groups)

	var due []*task.Task
	for _, g := range groups {
		if !plan.SlotOf(g.ID).Away() {
			continue
		}
		for _, t := range g.Tasks {
			if !t.IsDone() && t.DueBy(now) {
				due = append(due, t)
			}
		}
	}
	return due
}
