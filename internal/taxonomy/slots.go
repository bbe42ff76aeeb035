// Package taxonomy сопоставляет сохранённые группы с фиксированным набором
// слотов доски и приводит хранилище к состоянию "не больше одной группы на
// слот": создаёт недостающие группы, переименовывает и сливает устаревшие,
// удаляет имена из чёрного списка.
package taxonomy

import (
	"strings"
)

// Slot - позиция в фиксированной таксономии групп
type Slot int

const (
	SlotNone Slot = iota
	SlotIntroduction
	SlotCoordinators
	SlotSupervisors
	SlotLogSheets
	SlotSickCarers
	SlotHoliday
	SlotHospital
	SlotCarersToComeIn
	SlotExtraToDo
)

type Definition struct {
	Slot      Slot
	Canonical string
	// Aliases привязываются к слоту без переименования, регистр не важен.
	// Первый элемент - каноническое имя.
	Aliases []string
	// Variants - устаревшие или вторичные имена: единственный вариант
	// переименовывается, при наличии основной группы - сливается в неё.
	Variants []string
	Color    string
	// ScheduleBearing - задачам группы обязательна scheduled_at
	ScheduleBearing bool
	// Away - состояние отсутствия, задачи закрывает сканер
	Away bool
	// StartDate - описание задач хранит префикс [Start: YYYY-MM-DD]
	StartDate bool
}

var definitions = []Definition{
	{
		Slot:            SlotIntroduction,
		Canonical:       "Introduction",
		Aliases:         []string{"Introduction", "Introduction (Schedule)"},
		Color:           "cyan",
		ScheduleBearing: true,
	},
	{
		Slot:      SlotCoordinators,
		Canonical: "Coordinators",
		Aliases:   []string{"Coordinators"},
		Color:     "pink",
	},
	{
		Slot:      SlotSupervisors,
		Canonical: "Supervisors",
		Aliases:   []string{"Supervisors"},
		Color:     "green",
	},
	{
		Slot:      SlotLogSheets,
		Canonical: "Log Sheets Needed",
		Aliases:   []string{"Log Sheets Needed", "Log Sheets Delivered"},
		Variants:  []string{"Sheets Needed"},
		Color:     "purple",
	},
	{
		Slot:            SlotSickCarers,
		Canonical:       "Sick Carers",
		Aliases:         []string{"Sick Carers"},
		Variants:        []string{"Sick", "Sick Carers Returned", "Returned Sick Carers"},
		Color:           "orange",
		ScheduleBearing: true,
		Away:            true,
		StartDate:       true,
	},
	{
		Slot:            SlotHoliday,
		Canonical:       "Carers on Holiday",
		Aliases:         []string{"Carers on Holiday", "Carers Returning from Holiday"},
		Color:           "indigo",
		ScheduleBearing: true,
		Away:            true,
		StartDate:       true,
	},
	{
		Slot:            SlotHospital,
		Canonical:       "Admitted to Hospital",
		Aliases:         []string{"Admitted to Hospital", "Hospital", "Returned from Hospital"},
		Color:           "pink",
		ScheduleBearing: true,
		Away:            true,
	},
	{
		Slot:            SlotCarersToComeIn,
		Canonical:       "Carers to come in",
		Aliases:         []string{"Carers to come in"},
		Color:           "pink",
		ScheduleBearing: true,
	},
	{
		Slot:      SlotExtraToDo,
		Canonical: "Extra To Do",
		Aliases:   []string{"Extra To Do", "Extra Done"},
		Color:     "teal",
	},
}

// deprecated - устаревшие и ошибочно переведённые имена, точное совпадение
var deprecated = []string{
	"Carer Sick",
	"Returned Carers",
	"Cuidadores que retornaram",
}

// палитра для пользовательских групп без цвета
var adHocPalette = []string{"purple", "orange", "cyan", "pink"}

// Definitions возвращает копию таблицы слотов в порядке отображения
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

func (s Slot) Definition() (Definition, bool) {
	for _, def := range definitions {
		if def.Slot == s {
			return def, true
		}
	}
	return Definition{}, false
}

func (s Slot) String() string {
	if def, ok := s.Definition(); ok {
		return def.Canonical
	}
	return "ad-hoc"
}

func (s Slot) ScheduleBearing() bool {
	def, ok := s.Definition()
	return ok && def.ScheduleBearing
}

func (s Slot) Away() bool {
	def, ok := s.Definition()
	return ok && def.Away
}

func (s Slot) StartDate() bool {
	def, ok := s.Definition()
	return ok && def.StartDate
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Resolve находит слот, для которого имя является псевдонимом
func Resolve(name string) (Slot, bool) {
	slot, _, ok := aliasRank(name)
	return slot, ok
}

func aliasRank(name string) (Slot, int, bool) {
	n := normalize(name)
	for _, def := range definitions {
		for i, alias := range def.Aliases {
			if normalize(alias) == n {
				return def.Slot, i, true
			}
		}
	}
	return SlotNone, 0, false
}

func variantRank(name string) (Slot, int, bool) {
	n := normalize(name)
	for _, def := range definitions {
		for i, variant := range def.Variants {
			if normalize(variant) == n {
				return def.Slot, i, true
			}
		}
	}
	return SlotNone, 0, false
}

func IsDeprecated(name string) bool {
	for _, d := range deprecated {
		if name == d {
			return true
		}
	}
	return false
}

// SlotOf находит слот по псевдониму или варианту имени. Для устаревших
// вариантов это слот, в который группа будет слита или переименована.
func SlotOf(name string) (Slot, bool) {
	if slot, _, ok := aliasRank(name); ok {
		return slot, true
	}
	slot, _, ok := variantRank(name)
	return slot, ok
}

// DefaultColor - цвет слота для имени или "" для пользовательской группы
func DefaultColor(name string) string {
	slot, ok := SlotOf(name)
	if !ok {
		return ""
	}
	def, _ := slot.Definition()
	return def.Color
}
