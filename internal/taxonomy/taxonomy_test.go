package taxonomy_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiteboard/internal/models/group"
	"whiteboard/internal/models/task"
	"whiteboard/internal/taxonomy"
)

// fakeStore - хранилище групп в памяти с возможностью отказов
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	groups map[int64]*group.Group
	tasks  map[int64]*task.Task

	failCreate map[string]bool
	failRename map[int64]bool
	failMove   map[int64]bool
	failDelete map[int64]bool

	writes int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:     1,
		groups:     map[int64]*group.Group{},
		tasks:      map[int64]*task.Task{},
		failCreate: map[string]bool{},
		failRename: map[int64]bool{},
		failMove:   map[int64]bool{},
		failDelete: map[int64]bool{},
	}
}

func (s *fakeStore) addGroup(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.groups[id] = &group.Group{ID: id, Name: name}
	return id
}

func (s *fakeStore) addTask(groupID int64, title string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.tasks[id] = &task.Task{ID: id, GroupID: groupID, Title: title, Status: task.StatusTodo, Priority: task.PriorityNormal}
	return id
}

func (s *fakeStore) ListGroups(ctx context.Context) ([]*group.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	groups := make([]*group.Group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, &group.Group{ID: g.ID, Name: g.Name, Color: g.Color})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	tasks := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t.Clone())
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return group.Nest(groups, tasks), nil
}

func (s *fakeStore) CreateGroup(ctx context.Context, name, color string) (*group.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate[name] {
		return nil, errors.New("create failed")
	}
	id := s.nextID
	s.nextID++
	g := &group.Group{ID: id, Name: name, Color: color}
	s.groups[id] = g
	s.writes++
	return &group.Group{ID: id, Name: name, Color: color}, nil
}

func (s *fakeStore) RenameGroup(ctx context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRename[id] {
		return errors.New("rename failed")
	}
	s.groups[id].Name = name
	s.writes++
	return nil
}

func (s *fakeStore) DeleteGroup(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete[id] {
		return errors.New("delete failed")
	}
	delete(s.groups, id)
	for tid, t := range s.tasks {
		if t.GroupID == id {
			delete(s.tasks, tid)
		}
	}
	s.writes++
	return nil
}

func (s *fakeStore) MoveTask(ctx context.Context, taskID, groupID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMove[taskID] {
		return errors.New("move failed")
	}
	s.tasks[taskID].GroupID = groupID
	s.writes++
	return nil
}

func (s *fakeStore) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, g := range s.groups {
		out = append(out, g.Name)
	}
	sort.Strings(out)
	return out
}

func (s *fakeStore) tasksIn(groupID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.GroupID == groupID {
			n++
		}
	}
	return n
}

func canonicalNames() []string {
	var out []string
	for _, def := range taxonomy.Definitions() {
		out = append(out, def.Canonical)
	}
	sort.Strings(out)
	return out
}

// TestResolve тестирует сопоставление псевдонимов без учёта регистра
func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		in   string
		slot taxonomy.Slot
		ok   bool
	}{
		{name: "canonical", in: "Sick Carers", slot: taxonomy.SlotSickCarers, ok: true},
		{name: "case and spaces", in: "  carers ON holiday ", slot: taxonomy.SlotHoliday, ok: true},
		{name: "alias", in: "Hospital", slot: taxonomy.SlotHospital, ok: true},
		{name: "variant is not an alias", in: "Sheets Needed", ok: false},
		{name: "ad-hoc", in: "Weekend rota", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, ok := taxonomy.Resolve(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.slot, slot)
			}
		})
	}
}

// TestSlotFlags тестирует признаки слотов
func TestSlotFlags(t *testing.T) {
	assert.True(t, taxonomy.SlotIntroduction.ScheduleBearing())
	assert.False(t, taxonomy.SlotIntroduction.Away())
	assert.True(t, taxonomy.SlotHospital.Away())
	assert.False(t, taxonomy.SlotHospital.StartDate())
	assert.True(t, taxonomy.SlotSickCarers.StartDate())
	assert.False(t, taxonomy.SlotNone.ScheduleBearing())
	assert.Equal(t, "ad-hoc", taxonomy.SlotNone.String())
}

// TestClassify тестирует классификацию групп
func TestClassify(t *testing.T) {
	groups := []*group.Group{
		{ID: 7, Name: "Returned Carers"},
		{ID: 3, Name: "Sick"},
		{ID: 2, Name: "Sick Carers"},
		{ID: 5, Name: "Hospital"},
		{ID: 4, Name: "Admitted to Hospital"},
		{ID: 6, Name: "Weekend rota"},
		{ID: 8, Name: "Sheets Needed"},
	}

	plan := taxonomy.Classify(groups)
	require.Len(t, plan.Classes, len(groups))

	kinds := map[int64]taxonomy.Kind{}
	for _, c := range plan.Classes {
		kinds[c.Group.ID] = c.Kind
	}

	assert.Equal(t, taxonomy.KindBound, kinds[2])
	assert.Equal(t, taxonomy.KindMerge, kinds[3])
	assert.Equal(t, taxonomy.KindBound, kinds[4], "canonical wins over an earlier-id alias")
	assert.Equal(t, taxonomy.KindMerge, kinds[5])
	assert.Equal(t, taxonomy.KindAdHoc, kinds[6])
	assert.Equal(t, taxonomy.KindDeprecated, kinds[7])
	assert.Equal(t, taxonomy.KindMigrate, kinds[8])

	c, ok := plan.Of(3)
	require.True(t, ok)
	assert.Equal(t, int64(2), c.Into)
	assert.Equal(t, taxonomy.SlotSickCarers, plan.SlotOf(3))

	assert.NotContains(t, plan.Missing, taxonomy.SlotSickCarers)
	assert.Contains(t, plan.Missing, taxonomy.SlotCoordinators)
}

// TestClassify_OrderIndependent тестирует независимость от порядка входа
func TestClassify_OrderIndependent(t *testing.T) {
	a := []*group.Group{
		{ID: 1, Name: "Sick Carers Returned"},
		{ID: 2, Name: "Returned Sick Carers"},
		{ID: 3, Name: "Extra Done"},
	}
	b := []*group.Group{a[2], a[0], a[1]}

	pa := taxonomy.Classify(a)
	pb := taxonomy.Classify(b)

	for _, g := range a {
		ca, _ := pa.Of(g.ID)
		cb, _ := pb.Of(g.ID)
		assert.Equal(t, ca.Kind, cb.Kind, g.Name)
		assert.Equal(t, ca.Into, cb.Into, g.Name)
	}
	assert.Equal(t, pa.Primary[taxonomy.SlotSickCarers].ID, pb.Primary[taxonomy.SlotSickCarers].ID)
}

// TestReconcile_EmptyStore тестирует создание всех слотов
func TestReconcile_EmptyStore(t *testing.T) {
	store := newFakeStore()
	rec := taxonomy.NewReconciler(store)

	res, err := rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(taxonomy.Definitions()), res.Created)
	assert.Equal(t, canonicalNames(), store.names())
}

// TestReconcile_Idempotent тестирует, что второй проход ничего не пишет
func TestReconcile_Idempotent(t *testing.T) {
	store := newFakeStore()
	sick := store.addGroup("Sick Carers")
	store.addTask(sick, "Anna")
	variant := store.addGroup("Returned Sick Carers")
	store.addTask(variant, "Ben")
	store.addGroup("Sheets Needed")
	store.addGroup("Carer Sick")
	store.addGroup("Weekend rota")

	rec := taxonomy.NewReconciler(store)

	first, err := rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Greater(t, first.Writes(), 0)

	before := store.writes
	second, err := rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Writes())
	assert.Equal(t, before, store.writes)

	expected := append(canonicalNames(), "Weekend rota")
	sort.Strings(expected)
	assert.Equal(t, expected, store.names())
}

// TestReconcile_Merge тестирует перенос задач и удаление вторичной группы
func TestReconcile_Merge(t *testing.T) {
	store := newFakeStore()
	primary := store.addGroup("Sick Carers")
	for i := 0; i < 3; i++ {
		store.addTask(primary, "p")
	}
	secondary := store.addGroup("Sick Carers Returned")
	for i := 0; i < 2; i++ {
		store.addTask(secondary, "s")
	}

	res, err := taxonomy.NewReconciler(store).Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Merged)
	assert.Equal(t, 2, res.MovedTasks)
	assert.Equal(t, 5, store.tasksIn(primary))

	groups, _ := store.ListGroups(context.Background())
	for _, g := range groups {
		assert.NotEqual(t, secondary, g.ID)
	}

	card, ok := res.View.Card(taxonomy.SlotSickCarers)
	require.True(t, ok)
	assert.Len(t, card.Tasks, 5)
}

// TestReconcile_MigrateSoleVariant тестирует переименование единственного варианта
func TestReconcile_MigrateSoleVariant(t *testing.T) {
	store := newFakeStore()
	id := store.addGroup("Sick")
	store.addTask(id, "Anna")

	res, err := taxonomy.NewReconciler(store).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Renamed)

	groups, _ := store.ListGroups(context.Background())
	var found *group.Group
	for _, g := range groups {
		if g.ID == id {
			found = g
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "Sick Carers", found.Name)
	assert.Len(t, found.Tasks, 1)

	count := 0
	for _, name := range store.names() {
		if strings.EqualFold(name, "Sick Carers") {
			count++
		}
	}
	assert.Equal(t, 1, count, "no duplicate slot group created")
}

// TestReconcile_FailureContinues тестирует, что отказ одного слота не
// останавливает проход
func TestReconcile_FailureContinues(t *testing.T) {
	store := newFakeStore()
	primary := store.addGroup("Carers on Holiday")
	secondary := store.addGroup("Carers Returning from Holiday")
	ok := store.addTask(secondary, "ok")
	broken := store.addTask(secondary, "broken")
	store.failMove[broken] = true
	store.failCreate["Coordinators"] = true

	res, err := taxonomy.NewReconciler(store).Reconcile(context.Background())
	require.Error(t, err)

	assert.Equal(t, len(taxonomy.Definitions())-2, res.Created)
	assert.Equal(t, 0, res.Merged)
	assert.Equal(t, 1, res.MovedTasks)

	s := store
	assert.Equal(t, primary, s.tasks[ok].GroupID)
	assert.Equal(t, secondary, s.tasks[broken].GroupID)
	_, kept := s.groups[secondary]
	assert.True(t, kept, "secondary kept while a move is failing")

	// повтор после восстановления доводит слияние
	delete(store.failMove, broken)
	delete(store.failCreate, "Coordinators")
	res, err = taxonomy.NewReconciler(store).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Merged)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 2, store.tasksIn(primary))
}

// TestReconcile_DeprecatedDeleteFailureIgnored тестирует, что ошибка
// удаления устаревшей группы не возвращается
func TestReconcile_DeprecatedDeleteFailureIgnored(t *testing.T) {
	store := newFakeStore()
	for _, def := range taxonomy.Definitions() {
		store.addGroup(def.Canonical)
	}
	bad := store.addGroup("Cuidadores que retornaram")
	store.failDelete[bad] = true

	res, err := taxonomy.NewReconciler(store).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Deleted)
	assert.Equal(t, 0, res.Writes())
}

// TestReconcile_ListError тестирует ошибку получения списка
func TestReconcile_ListError(t *testing.T) {
	_, err := taxonomy.NewReconciler(failingList{}).Reconcile(context.Background())
	assert.Error(t, err)
}

type failingList struct{ *fakeStore }

func (failingList) ListGroups(ctx context.Context) ([]*group.Group, error) {
	return nil, errors.New("connection refused")
}

// TestBuildView тестирует порядок карточек и цвета
func TestBuildView(t *testing.T) {
	groups := []*group.Group{
		{ID: 10, Name: "Zeta"},
		{ID: 9, Name: "Alpha", Color: "red"},
		{ID: 3, Name: "Extra To Do"},
		{ID: 1, Name: "Introduction"},
	}

	view := taxonomy.BuildView(taxonomy.Classify(groups))
	require.Len(t, view.Cards, 4)

	assert.Equal(t, taxonomy.SlotIntroduction, view.Cards[0].Slot)
	assert.Equal(t, "cyan", view.Cards[0].Color)
	assert.Equal(t, taxonomy.SlotExtraToDo, view.Cards[1].Slot)
	assert.Equal(t, "teal", view.Cards[1].Color)
	assert.Equal(t, "Alpha", view.Cards[2].Name)
	assert.Equal(t, "red", view.Cards[2].Color)
	assert.Equal(t, "Zeta", view.Cards[3].Name)
	assert.False(t, view.Cards[3].Fixed)
	assert.Equal(t, "cyan", view.Cards[3].Color)
}

// TestSlotOf тестирует поиск слота по вариантам имени
func TestSlotOf(t *testing.T) {
	slot, ok := taxonomy.SlotOf("Returned Sick Carers")
	assert.True(t, ok)
	assert.Equal(t, taxonomy.SlotSickCarers, slot)

	_, ok = taxonomy.SlotOf("Carer Sick")
	assert.False(t, ok)

	assert.Equal(t, "purple", taxonomy.DefaultColor("sheets needed"))
	assert.Equal(t, "", taxonomy.DefaultColor("Weekend rota"))
}
