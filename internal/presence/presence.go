// Package presence оценивает, кто из сотрудников на смене: пользователь
// считается онлайн, если входил после последней отсечки (по умолчанию 08:30
// местного времени). Отсечка до 08:30 сегодняшнего дня - вчерашняя.
package presence

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"whiteboard/internal/models/user"
)

// Clock - время суток отсечки
type Clock struct {
	Hour   int
	Minute int
}

var DefaultClock = Clock{Hour: 8, Minute: 30}

// ParseClock разбирает "HH:MM"
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return Clock{}, fmt.Errorf("время отсечки %q: %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Cutoff - самая поздняя отсечка, не превосходящая now, в зоне loc
func Cutoff(now time.Time, clock Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), clock.Hour, clock.Minute, 0, 0, loc)
	if local.Before(today) {
		return today.AddDate(0, 0, -1)
	}
	return today
}

// IsOnline - last_login не раньше отсечки
func IsOnline(lastLogin *time.Time, cutoff time.Time) bool {
	return lastLogin != nil && !lastLogin.Before(cutoff)
}

// Entry - строка списка присутствия
type Entry struct {
	User   *user.User
	Name   string
	Online bool
	// Icon - значок собственного статуса, только для онлайн
	Icon string
	// ExplicitOffline - пользователь сам выставил статус offline
	ExplicitOffline bool
}

// Roster - онлайн и офлайн списки, каждый отсортирован по имени без учёта регистра
type Roster struct {
	Cutoff  time.Time
	Online  []Entry
	Offline []Entry
}

// Separator - между списками нужен разделитель, только если оба не пусты
func (r Roster) Separator() bool {
	return len(r.Online) > 0 && len(r.Offline) > 0
}

func Buckets(users []*user.User, cutoff time.Time) Roster {
	roster := Roster{Cutoff: cutoff, Online: []Entry{}, Offline: []Entry{}}
	for _, u := range users {
		e := Entry{User: u, Name: u.DisplayName()}
		if IsOnline(u.LastLogin, cutoff) {
			e.Online = true
			e.Icon = u.Status.Icon()
			roster.Online = append(roster.Online, e)
			continue
		}
		e.ExplicitOffline = u.Status == user.StatusOffline
		roster.Offline = append(roster.Offline, e)
	}
	byName := func(list []Entry) {
		sort.SliceStable(list, func(i, j int) bool {
			return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
		})
	}
	byName(roster.Online)
	byName(roster.Offline)
	return roster
}
