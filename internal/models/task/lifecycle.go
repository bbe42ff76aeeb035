package task

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrTaskDone         = errors.New("задача завершена, изменение запрещено")
	ErrAlreadyDone      = errors.New("задача уже завершена")
	ErrNotDone          = errors.New("задача не завершена")
	ErrEmptyTitle       = errors.New("название не может быть пустым")
	ErrInvalidPriority  = errors.New("недопустимый приоритет")
	ErrInvalidStatus    = errors.New("недопустимый статус")
	ErrScheduleRequired = errors.New("для этой группы обязательна дата")
	ErrNotDue           = errors.New("дата возврата ещё не наступила")
)

// Patch - частичное обновление: применяются только заданные поля
type Patch struct {
	Title            *string
	Description      *string
	Priority         *Priority
	GroupID          *int64
	Solution         *string
	ScheduledAt      *time.Time
	ClearScheduledAt bool
	Status           *Status
	ClearCompletion  bool
}

// HasEdits - патч трогает поля, доступные только в состоянии todo
func (p Patch) HasEdits() bool {
	return p.Title != nil || p.Description != nil || p.Priority != nil ||
		p.ScheduledAt != nil || p.ClearScheduledAt
}

func (p Patch) IsEmpty() bool {
	return !p.HasEdits() && p.GroupID == nil && p.Solution == nil &&
		p.Status == nil && !p.ClearCompletion
}

func (p Patch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.GroupID != nil {
		t.GroupID = *p.GroupID
	}
	if p.Solution != nil {
		t.Solution = *p.Solution
	}
	if p.ClearScheduledAt {
		t.ScheduledAt = nil
	} else if p.ScheduledAt != nil {
		at := p.ScheduledAt.UTC()
		t.ScheduledAt = &at
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.ClearCompletion {
		t.CompletedAt = nil
		t.CompletedBy = nil
	}
}

// Completion описывает переход todo → done
type Completion struct {
	At       time.Time
	By       *int64
	Solution *string
}

func UserCompletion(actor int64, solution *string, at time.Time) Completion {
	c := Completion{At: at.UTC(), Solution: solution}
	if actor != 0 {
		c.By = &actor
	}
	return c
}

// SystemCompletion - автозавершение: completed_by не задаётся
func SystemCompletion(at time.Time) Completion {
	solution := SystemSolution
	return Completion{At: at.UTC(), Solution: &solution}
}

func (c Completion) IsSystem() bool {
	return c.By == nil && c.Solution != nil && *c.Solution == SystemSolution
}

// Validate проверяет новую задачу перед записью
func (t *Task) Validate(scheduleBearing bool) error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if !t.Priority.Valid() {
		return ErrInvalidPriority
	}
	if t.Status != StatusTodo {
		return ErrInvalidStatus
	}
	if scheduleBearing && (t.ScheduledAt == nil || t.ScheduledAt.IsZero()) {
		return ErrScheduleRequired
	}
	return nil
}

// CheckPatch - завершённая задача доступна только на чтение, кроме
// решения, перемещения между группами и явного переоткрытия
func (t *Task) CheckPatch(p Patch) error {
	if p.Priority != nil && !p.Priority.Valid() {
		return ErrInvalidPriority
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrEmptyTitle
	}
	if t.IsDone() && p.HasEdits() {
		return ErrTaskDone
	}
	return nil
}

// DueBy - дата возврата задана и не позже at
func (t *Task) DueBy(at time.Time) bool {
	return t.ScheduledAt != nil && !t.ScheduledAt.IsZero() && !t.ScheduledAt.After(at)
}

// Complete: системное завершение допустимо только для наступившей даты возврата
func (t *Task) Complete(c Completion) error {
	if t.IsDone() {
		return ErrAlreadyDone
	}
	if c.IsSystem() && !t.DueBy(c.At) {
		return ErrNotDue
	}
	at := c.At.UTC()
	t.Status = StatusDone
	t.CompletedAt = &at
	t.CompletedBy = cloneID(c.By)
	if c.Solution != nil {
		t.Solution = *c.Solution
	}
	return nil
}

// ReopenPatch возвращает done → todo и очищает поля завершения
func ReopenPatch() Patch {
	todo := StatusTodo
	return Patch{Status: &todo, ClearCompletion: true}
}

func (t *Task) Reopen() error {
	if !t.IsDone() {
		return ErrNotDone
	}
	ReopenPatch().Apply(t)
	return nil
}
