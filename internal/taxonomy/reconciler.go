package taxonomy

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"whiteboard/internal/logger"
	"whiteboard/internal/models/group"
)

// Store - операции хранилища, нужные реконсилеру. ListGroups возвращает
// группы вместе с задачами.
type Store interface {
	ListGroups(ctx context.Context) ([]*group.Group, error)
	CreateGroup(ctx context.Context, name, color string) (*group.Group, error)
	RenameGroup(ctx context.Context, id int64, name string) error
	DeleteGroup(ctx context.Context, id int64) error
	MoveTask(ctx context.Context, taskID, groupID int64) error
}

type Reconciler struct {
	store Store
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// Result - что сделал проход и во что сошлась доска
type Result struct {
	Created    int
	Renamed    int
	Merged     int
	MovedTasks int
	Deleted    int
	Plan       Plan
	View       View
}

// Writes - число записей; на сошедшемся состоянии равно нулю
func (r Result) Writes() int {
	return r.Created + r.Renamed + r.MovedTasks + r.Merged + r.Deleted
}

// Reconcile приводит хранилище к таксономии. Ошибка отдельного вызова
// хранилища пропускает только текущий слот, остальные слоты обрабатываются;
// ошибки собираются в одну. Удаление устаревших групп не влияет на ошибку.
func (r *Reconciler) Reconcile(ctx context.Context) (Result, error) {
	groups, err := r.store.ListGroups(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("получение групп: %w", err)
	}

	var res Result
	var errs error
	plan := Classify(groups)

	for _, slot := range plan.Missing {
		if err := ctx.Err(); err != nil {
			return res, multierr.Append(errs, err)
		}
		def, _ := slot.Definition()
		created, err := r.store.CreateGroup(ctx, def.Canonical, def.Color)
		if err != nil {
			logger.Error("Taxonomy: не удалось создать группу", err, zap.String("slot", def.Canonical))
			errs = multierr.Append(errs, fmt.Errorf("создание %q: %w", def.Canonical, err))
			continue
		}
		logger.Info("Taxonomy: создана группа", zap.String("slot", def.Canonical), zap.Int64("group_id", created.ID))
		res.Created++
	}

	for _, def := range definitions {
		primary, ok := plan.Primary[def.Slot]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, multierr.Append(errs, err)
		}

		if c, _ := plan.Of(primary.ID); c.Kind == KindMigrate {
			if err := r.store.RenameGroup(ctx, primary.ID, def.Canonical); err != nil {
				logger.Error("Taxonomy: не удалось переименовать группу", err,
					zap.Int64("group_id", primary.ID),
					zap.String("from", primary.Name),
					zap.String("to", def.Canonical))
				errs = multierr.Append(errs, fmt.Errorf("переименование %q: %w", primary.Name, err))
				continue
			}
			logger.Info("Taxonomy: группа переименована",
				zap.Int64("group_id", primary.ID),
				zap.String("from", primary.Name),
				zap.String("to", def.Canonical))
			res.Renamed++
		}

		for _, m := range plan.merges(def.Slot) {
			moved, err := r.merge(ctx, m.Group, primary.ID)
			res.MovedTasks += moved
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			res.Merged++
		}
	}

	for _, c := range plan.deprecated() {
		if err := r.store.DeleteGroup(ctx, c.Group.ID); err != nil {
			logger.Warn("Taxonomy: не удалось удалить устаревшую группу",
				zap.Int64("group_id", c.Group.ID),
				zap.String("name", c.Group.Name),
				zap.Error(err))
			continue
		}
		logger.Info("Taxonomy: удалена устаревшая группа",
			zap.Int64("group_id", c.Group.ID),
			zap.String("name", c.Group.Name))
		res.Deleted++
	}

	res.Plan = plan
	res.View = BuildView(plan)
	return res, errs
}

// merge переносит задачи вторичной группы и удаляет её,
// только если все переносы прошли
func (r *Reconciler) merge(ctx context.Context, secondary *group.Group, into int64) (int, error) {
	moved := 0
	var failed error
	for _, t := range secondary.Tasks {
		if err := r.store.MoveTask(ctx, t.ID, into); err != nil {
			logger.Error("Taxonomy: не удалось перенести задачу", err,
				zap.Int64("task_id", t.ID),
				zap.Int64("from", secondary.ID),
				zap.Int64("to", into))
			failed = multierr.Append(failed, fmt.Errorf("перенос задачи %d: %w", t.ID, err))
			continue
		}
		moved++
	}
	if failed != nil {
		logger.Warn("Taxonomy: слияние отложено, группа сохранена",
			zap.Int64("group_id", secondary.ID),
			zap.String("name", secondary.Name))
		return moved, failed
	}

	if err := r.store.DeleteGroup(ctx, secondary.ID); err != nil {
		logger.Error("Taxonomy: не удалось удалить слитую группу", err, zap.Int64("group_id", secondary.ID))
		return moved, fmt.Errorf("удаление %q: %w", secondary.Name, err)
	}
	logger.Info("Taxonomy: группа слита",
		zap.Int64("group_id", secondary.ID),
		zap.String("name", secondary.Name),
		zap.Int64("into", into),
		zap.Int("tasks", moved))
	return moved, nil
}
