package group

import (
	"whiteboard/internal/models/task"
)

type Group struct {
	ID    int64        `json:"id" db:"id"`
	Name  string       `json:"name" db:"name"`
	Color string       `json:"color" db:"color"`
	Tasks []*task.Task `json:"tasks" db:"-"`
}

// Clone копирует группу вместе с задачами
func (g *Group) Clone() *Group {
	c := &Group{ID: g.ID, Name: g.Name, Color: g.Color}
	c.Tasks = make([]*task.Task, 0, len(g.Tasks))
	for _, t := range g.Tasks {
		c.Tasks = append(c.Tasks, t.Clone())
	}
	return c
}

// Nest раскладывает задачи по группам; задачи без группы отбрасываются
func Nest(groups []*Group, tasks []*task.Task) []*Group {
	byID := make(map[int64]*Group, len(groups))
	for _, g := range groups {
		g.Tasks = []*task.Task{}
		byID[g.ID] = g
	}
	for _, t := range tasks {
		if g, ok := byID[t.GroupID]; ok {
			g.Tasks = append(g.Tasks, t)
		}
	}
	return groups
}
