package task

import (
	"fmt"
	"regexp"
	"time"
)

// Описание задач в группах отсутствия хранит два поля в одной колонке:
// "[Start: YYYY-MM-DD] наблюдения". Наблюдение, которое само начинается
// с такого префикса, будет разобрано как дата начала - экранирования нет.
// После скобки снимается ровно один пробел, остальное принадлежит наблюдению;
// строки без пробела после скобки тоже разбираются.
var startPrefix = regexp.MustCompile(`(?s)^\[Start: (\d{4}-\d{2}-\d{2})\] ?(.*)$`)

const startDateLayout = "2006-01-02"

func EncodeDescription(start, observation string) string {
	if start == "" {
		return observation
	}
	return fmt.Sprintf("[Start: %s] %s", start, observation)
}

// DecodeDescription возвращает дату начала (или "") и текст наблюдения
func DecodeDescription(description string) (start, observation string) {
	m := startPrefix.FindStringSubmatch(description)
	if m == nil {
		return "", description
	}
	return m[1], m[2]
}

// ValidStartDate проверяет формат YYYY-MM-DD
func ValidStartDate(start string) bool {
	_, err := time.Parse(startDateLayout, start)
	return err == nil
}
