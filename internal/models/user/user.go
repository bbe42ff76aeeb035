package user

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type User struct {
	ID           int64      `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Status       Status     `json:"status" db:"status"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
}

// Status - статус, выбранный самим пользователем
type Status string

const (
	StatusFree    Status = "free"
	StatusBusy    Status = "busy"
	StatusMeeting Status = "meeting"
	StatusOnCall  Status = "on-call"
	StatusAway    Status = "away"
	StatusBreak   Status = "break"
	StatusHoliday Status = "holiday"
	StatusOffline Status = "offline"
)

var icons = map[Status]string{
	StatusFree:    "⚡",
	StatusBusy:    "⛔",
	StatusMeeting: "📅",
	StatusOnCall:  "📞",
	StatusAway:    "🚗💨",
	StatusBreak:   "🍽️",
	StatusHoliday: "🏖️",
	StatusOffline: "💤",
}

func (s Status) Valid() bool {
	_, ok := icons[s]
	return ok
}

func (s Status) Icon() string {
	return icons[s]
}

const UnknownName = "Unknown User"

// DisplayName: имя, иначе локальная часть e-mail с заглавной буквы
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	if local == "" {
		return UnknownName
	}
	r, size := utf8.DecodeRuneInString(local)
	return string(unicode.ToUpper(r)) + local[size:]
}

// Patch - правка пользователя администратором; nil-поля не меняются
type Patch struct {
	Name   *string
	Email  *string
	Status *Status
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Status == nil
}
