// Package datetime разбирает и форматирует время в текстовом виде хранилища
// ("2006-01-02 15:04:05", UTC) и терпимо относится к вариантам этого формата.
package datetime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Layout     = "2006-01-02 15:04:05"
	DateLayout = "2006-01-02"
)

var (
	ErrEmpty       = errors.New("пустое значение времени")
	ErrUnparseable = errors.New("не удалось разобрать время")
)

var layouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04",
	DateLayout,
}

// Normalize приводит "YYYY-MM-DD HH:MM:SS" к форме с T
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, " ") && !strings.Contains(s, "T") {
		return strings.Replace(s, " ", "T", 1)
	}
	return s
}

// Parse возвращает время в UTC; текст без зоны считается UTC.
func Parse(s string) (time.Time, error) {
	s = Normalize(s)
	if s == "" {
		return time.Time{}, ErrEmpty
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, s)
}

func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Time - nullable время для JSON. Разбор нестрогий: неразобранный текст
// сохраняется в Raw, а Valid остаётся false, чтобы одна битая запись не
// ломала декодирование всего ответа.
type Time struct {
	Time  time.Time
	Valid bool
	Set   bool
	Raw   string
}

func From(t *time.Time) Time {
	if t == nil || t.IsZero() {
		return Time{}
	}
	return Time{Time: t.UTC(), Valid: true, Set: true}
}

func (t Time) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// Malformed - ключ был передан, но значение не удалось разобрать
func (t Time) Malformed() bool {
	return t.Set && !t.Valid && t.Raw != ""
}

// Null - ключ передан явно со значением null или пустой строкой
func (t Time) Null() bool {
	return t.Set && !t.Valid && t.Raw == ""
}

func (t Time) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(Format(t.Time))
}

func (t *Time) UnmarshalJSON(b []byte) error {
	t.Set = true
	t.Valid = false
	t.Raw = ""
	if string(b) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		t.Raw = string(b)
		return nil
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}

	parsed, err := Parse(s)
	if err != nil {
		t.Raw = s
		return nil
	}
	t.Time = parsed
	t.Valid = true
	return nil
}
