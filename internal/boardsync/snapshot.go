package boardsync

import (
	"sort"
	"time"

	"whiteboard/internal/client"
	"whiteboard/internal/models/group"
	"whiteboard/internal/models/task"
	"whiteboard/internal/presence"
	"whiteboard/internal/taxonomy"
)

// Card - карточка группы с разделением на колонки
type Card struct {
	Slot    taxonomy.Slot
	Fixed   bool
	GroupID int64
	Name    string
	Color   string
	Todo    []*task.Task
	Done    []*task.Task
}

// Snapshot - то, что видит пользователь после цикла опроса
type Snapshot struct {
	Cards     []Card
	Roster    presence.Roster
	FetchedAt time.Time
}

func buildSnapshot(groups []*group.Group, roster presence.Roster, fetchedAt time.Time) Snapshot {
	view := taxonomy.BuildView(taxonomy.Classify(groups))
	snap := Snapshot{
		Cards:     make([]Card, 0, len(view.Cards)),
		Roster:    roster,
		FetchedAt: fetchedAt,
	}
	for _, vc := range view.Cards {
		card := Card{
			Slot:    vc.Slot,
			Fixed:   vc.Fixed,
			GroupID: vc.Group.ID,
			Name:    vc.Name,
			Color:   vc.Color,
		}
		for _, t := range vc.Tasks {
			card.add(t.Clone())
		}
		card.sortDone()
		snap.Cards = append(snap.Cards, card)
	}
	return snap
}

func (c *Card) add(t *task.Task) {
	if t.IsDone() {
		c.Done = append(c.Done, t)
	} else {
		c.Todo = append(c.Todo, t)
	}
}

// sortDone: недавно завершённые сверху
func (c *Card) sortDone() {
	sort.SliceStable(c.Done, func(i, j int) bool {
		a, b := c.Done[i].CompletedAt, c.Done[j].CompletedAt
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})
}

func (c *Card) remove(id int64) *task.Task {
	for i, t := range c.Todo {
		if t.ID == id {
			c.Todo = append(c.Todo[:i:i], c.Todo[i+1:]...)
			return t
		}
	}
	for i, t := range c.Done {
		if t.ID == id {
			c.Done = append(c.Done[:i:i], c.Done[i+1:]...)
			return t
		}
	}
	return nil
}

// Card возвращает карточку группы или nil
func (s *Snapshot) Card(groupID int64) *Card {
	for i := range s.Cards {
		if s.Cards[i].GroupID == groupID {
			return &s.Cards[i]
		}
	}
	return nil
}

// Task ищет задачу во всех карточках
func (s *Snapshot) Task(id int64) (*task.Task, *Card) {
	for i := range s.Cards {
		card := &s.Cards[i]
		for _, t := range card.Todo {
			if t.ID == id {
				return t, card
			}
		}
		for _, t := range card.Done {
			if t.ID == id {
				return t, card
			}
		}
	}
	return nil, nil
}

func (s Snapshot) clone() Snapshot {
	c := s
	c.Cards = make([]Card, len(s.Cards))
	for i, card := range s.Cards {
		cc := card
		cc.Todo = cloneTasks(card.Todo)
		cc.Done = cloneTasks(card.Done)
		c.Cards[i] = cc
	}
	return c
}

func cloneTasks(tasks []*task.Task) []*task.Task {
	out := make([]*task.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

// apply накладывает локальную правку на снимок так, как её применит сервер.
// Задача в merge-группе живёт в карточке слота, поэтому перенос ищет
// карточку по GroupID и без неё оставляет задачу на месте.
func (s *Snapshot) apply(id int64, p client.TaskPatch, now time.Time) {
	t, card := s.Task(id)
	if t == nil {
		return
	}
	card.remove(id)

	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil || p.StartDate != nil {
		start, observation := task.DecodeDescription(t.Description)
		if p.StartDate != nil {
			start = *p.StartDate
		}
		if p.Description != nil {
			observation = *p.Description
		}
		if card.Slot.StartDate() {
			t.Description = task.EncodeDescription(start, observation)
		} else {
			t.Description = observation
		}
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Solution != nil {
		t.Solution = *p.Solution
	}
	switch {
	case p.ScheduledAt != nil:
		at := *p.ScheduledAt
		t.ScheduledAt = &at
	case p.ClearScheduledAt:
		t.ScheduledAt = nil
	}
	if p.Status != nil {
		switch {
		case *p.Status == task.StatusDone && !t.IsDone():
			at := now
			if p.CompletedAt != nil {
				at = *p.CompletedAt
			}
			_ = t.Complete(task.UserCompletion(0, nil, at))
		case *p.Status == task.StatusTodo && t.IsDone():
			_ = t.Reopen()
		}
	}

	target := card
	if p.GroupID != nil {
		if moved := s.Card(*p.GroupID); moved != nil {
			target = moved
			t.GroupID = *p.GroupID
		}
	}
	target.add(t)
	target.sortDone()
}
