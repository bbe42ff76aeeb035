package taxonomy

import (
	"sort"

	"whiteboard/internal/models/group"
	"whiteboard/internal/models/task"
)

// Kind - решение по одной сохранённой группе
type Kind int

const (
	KindAdHoc Kind = iota
	KindBound
	KindMigrate
	KindMerge
	KindDeprecated
)

func (k Kind) String() string {
	switch k {
	case KindBound:
		return "bound"
	case KindMigrate:
		return "migrate"
	case KindMerge:
		return "merge"
	case KindDeprecated:
		return "deprecated"
	default:
		return "ad-hoc"
	}
}

type Classification struct {
	Group *group.Group
	Kind  Kind
	Slot  Slot
	// Into - id группы, в которую сливается KindMerge
	Into int64
}

// Plan - результат классификации всего набора групп
type Plan struct {
	Classes []Classification
	// Primary - основная группа слота (KindBound или KindMigrate)
	Primary map[Slot]*group.Group
	// Missing - слоты без единого совпадения, их нужно создать
	Missing []Slot
}

// Classify детерминированно относит каждую группу ровно к одной категории.
// Результат не зависит от порядка входного списка.
func Classify(groups []*group.Group) Plan {
	sorted := make([]*group.Group, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	byID := make(map[int64]Classification, len(sorted))
	plan := Plan{Primary: make(map[Slot]*group.Group)}

	type ranked struct {
		g    *group.Group
		rank int
	}

	aliasMatches := make(map[Slot][]ranked)
	variantMatches := make(map[Slot][]ranked)

	for _, g := range sorted {
		if slot, rank, ok := aliasRank(g.Name); ok {
			aliasMatches[slot] = append(aliasMatches[slot], ranked{g, rank})
			continue
		}
		if slot, rank, ok := variantRank(g.Name); ok {
			variantMatches[slot] = append(variantMatches[slot], ranked{g, rank})
			continue
		}
		if IsDeprecated(g.Name) {
			byID[g.ID] = Classification{Group: g, Kind: KindDeprecated}
			continue
		}
		byID[g.ID] = Classification{Group: g, Kind: KindAdHoc}
	}

	// ранг важнее id; внутри ранга меньший id
	byRank := func(list []ranked) {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].rank != list[j].rank {
				return list[i].rank < list[j].rank
			}
			return list[i].g.ID < list[j].g.ID
		})
	}

	for _, def := range definitions {
		aliases := aliasMatches[def.Slot]
		variants := variantMatches[def.Slot]
		byRank(aliases)
		byRank(variants)

		var primary *group.Group
		var rest []ranked

		switch {
		case len(aliases) > 0:
			primary = aliases[0].g
			byID[primary.ID] = Classification{Group: primary, Kind: KindBound, Slot: def.Slot}
			rest = append(rest, aliases[1:]...)
			rest = append(rest, variants...)
		case len(variants) > 0:
			primary = variants[0].g
			byID[primary.ID] = Classification{Group: primary, Kind: KindMigrate, Slot: def.Slot}
			rest = append(rest, variants[1:]...)
		default:
			plan.Missing = append(plan.Missing, def.Slot)
			continue
		}

		plan.Primary[def.Slot] = primary
		for _, r := range rest {
			byID[r.g.ID] = Classification{Group: r.g, Kind: KindMerge, Slot: def.Slot, Into: primary.ID}
		}
	}

	plan.Classes = make([]Classification, 0, len(groups))
	for _, g := range groups {
		plan.Classes = append(plan.Classes, byID[g.ID])
	}
	return plan
}

// Of возвращает классификацию группы по id
func (p Plan) Of(id int64) (Classification, bool) {
	for _, c := range p.Classes {
		if c.Group.ID == id {
			return c, true
		}
	}
	return Classification{}, false
}

// SlotOf - слот, которому принадлежит группа (включая сливаемые)
func (p Plan) SlotOf(id int64) Slot {
	c, ok := p.Of(id)
	if !ok {
		return SlotNone
	}
	return c.Slot
}

func (p Plan) merges(slot Slot) []Classification {
	var out []Classification
	for _, c := range p.Classes {
		if c.Kind == KindMerge && c.Slot == slot {
			out = append(out, c)
		}
	}
	return out
}

func (p Plan) deprecated() []Classification {
	var out []Classification
	for _, c := range p.Classes {
		if c.Kind == KindDeprecated {
			out = append(out, c)
		}
	}
	return out
}

// Card - одна карточка доски: слот или пользовательская группа
type Card struct {
	Slot  Slot
	Fixed bool
	Group *group.Group
	Name  string
	Color string
	Tasks []*task.Task
}

// View - доска в порядке отображения: слоты по таблице, затем группы по id
type View struct {
	Cards []Card
}

// BuildView собирает доску из плана. Задачи сливаемых групп показываются
// в карточке слота, даже если запись слияния ещё не прошла.
func BuildView(plan Plan) View {
	var view View

	for _, def := range definitions {
		primary, ok := plan.Primary[def.Slot]
		if !ok {
			continue
		}
		card := Card{
			Slot:  def.Slot,
			Fixed: true,
			Group: primary,
			Name:  primary.Name,
			Color: EffectiveColor(primary, def.Slot),
		}
		if c, _ := plan.Of(primary.ID); c.Kind == KindMigrate {
			card.Name = def.Canonical
		}
		card.Tasks = append(card.Tasks, primary.Tasks...)
		for _, m := range plan.merges(def.Slot) {
			card.Tasks = append(card.Tasks, m.Group.Tasks...)
		}
		view.Cards = append(view.Cards, card)
	}

	var adHoc []*group.Group
	for _, c := range plan.Classes {
		if c.Kind == KindAdHoc {
			adHoc = append(adHoc, c.Group)
		}
	}
	sort.SliceStable(adHoc, func(i, j int) bool { return adHoc[i].ID < adHoc[j].ID })
	for _, g := range adHoc {
		view.Cards = append(view.Cards, Card{
			Slot:  SlotNone,
			Group: g,
			Name:  g.Name,
			Color: EffectiveColor(g, SlotNone),
			Tasks: g.Tasks,
		})
	}
	return view
}

// EffectiveColor: сохранённый цвет, иначе цвет слота, иначе цвет из палитры
func EffectiveColor(g *group.Group, slot Slot) string {
	if g.Color != "" {
		return g.Color
	}
	if def, ok := slot.Definition(); ok {
		return def.Color
	}
	idx := int(g.ID % int64(len(adHocPalette)))
	if idx < 0 {
		idx = -idx
	}
	return adHocPalette[idx]
}

// Card возвращает карточку слота
func (v View) Card(slot Slot) (Card, bool) {
	for _, c := range v.Cards {
		if c.Fixed && c.Slot == slot {
			return c, true
		}
	}
	return Card{}, false
}
