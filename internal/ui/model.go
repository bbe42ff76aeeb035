// Package ui - терминальная доска: отрисовывает снимки контроллера
// синхронизации и отправляет правки пользователя.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"whiteboard/internal/boardsync"
	"whiteboard/internal/client"
	"whiteboard/internal/models/task"
)

const toastDuration = 4 * time.Second

// Board - то, что модели нужно от контроллера синхронизации
type Board interface {
	Edit(ctx context.Context, id int64, patch client.TaskPatch) (*task.Task, error)
	Guard() *boardsync.EditGuard
	Refresh()
}

type GroupRenamer interface {
	RenameGroup(ctx context.Context, id int64, name string) error
}

type snapshotMsg struct{ snapshot boardsync.Snapshot }

type toastMsg struct{ text string }

type toastExpiredMsg struct{ at time.Time }

type errMsg struct{ err error }

// Bridge передаёт снимки и уведомления из контроллера в программу bubbletea.
// Программу подключают через Attach до запуска контроллера.
type Bridge struct {
	program *tea.Program
}

func (b *Bridge) Attach(p *tea.Program) { b.program = p }

func (b *Bridge) Render(s boardsync.Snapshot) { b.program.Send(snapshotMsg{snapshot: s}) }

func (b *Bridge) Notify(message string) { b.program.Send(toastMsg{text: message}) }

var (
	_ boardsync.Renderer = (*Bridge)(nil)
	_ boardsync.Notifier = (*Bridge)(nil)
)

type Model struct {
	board   Board
	renamer GroupRenamer
	keys    KeyMap
	styles  styles

	snapshot boardsync.Snapshot
	loaded   bool
	card     int
	row      int

	renaming      bool
	releaseGuard  func()
	renameInput   textinput.Model
	renameGroupID int64

	toast   string
	toastAt time.Time
	err     error

	width  int
	height int
}

func New(board Board, renamer GroupRenamer) *Model {
	input := textinput.New()
	input.Placeholder = "Название группы"
	input.CharLimit = 100

	return &Model{
		board:       board,
		renamer:     renamer,
		keys:        DefaultKeyMap(),
		styles:      newStyles(),
		renameInput: input,
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// SnapshotMsg оборачивает снимок в сообщение модели
func SnapshotMsg(s boardsync.Snapshot) tea.Msg { return snapshotMsg{snapshot: s} }

func ToastMsg(text string) tea.Msg { return toastMsg{text: text} }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case snapshotMsg:
		m.snapshot = msg.snapshot
		m.loaded = true
		m.clampCursor()
		return m, nil

	case toastMsg:
		m.toast = msg.text
		m.toastAt = time.Now()
		at := m.toastAt
		return m, tea.Tick(toastDuration, func(time.Time) tea.Msg { return toastExpiredMsg{at: at} })

	case toastExpiredMsg:
		if msg.at.Equal(m.toastAt) {
			m.toast = ""
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if m.renaming {
			return m.updateRename(msg)
		}
		return m.updateBoard(msg)
	}
	return m, nil
}

func (m *Model) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.row > 0 {
			m.row--
		}
	case key.Matches(msg, m.keys.Down):
		if m.row < len(m.rows())-1 {
			m.row++
		}
	case key.Matches(msg, m.keys.Left):
		if m.card > 0 {
			m.card--
			m.row = 0
		}
	case key.Matches(msg, m.keys.Right):
		if m.card < len(m.snapshot.Cards)-1 {
			m.card++
			m.row = 0
		}
	case key.Matches(msg, m.keys.Refresh):
		m.board.Refresh()
	case key.Matches(msg, m.keys.Toggle):
		return m, m.toggle()
	case key.Matches(msg, m.keys.Rename):
		return m, m.beginRename()
	}
	return m, nil
}

func (m *Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.endRename()
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		name := strings.TrimSpace(m.renameInput.Value())
		id := m.renameGroupID
		m.endRename()
		if name == "" {
			return m, nil
		}
		return m, m.rename(id, name)
	}
	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return m, cmd
}

// beginRename удерживает guard, пока ввод не сохранён или не отменён
func (m *Model) beginRename() tea.Cmd {
	card := m.currentCard()
	if card == nil {
		return nil
	}
	m.renaming = true
	m.releaseGuard = m.board.Guard().Begin()
	m.renameGroupID = card.GroupID
	m.renameInput.SetValue(card.Name)
	m.renameInput.CursorEnd()
	m.renameInput.Focus()
	return textinput.Blink
}

func (m *Model) endRename() {
	m.renaming = false
	m.renameInput.Blur()
	if m.releaseGuard != nil {
		m.releaseGuard()
		m.releaseGuard = nil
	}
}

func (m *Model) rename(id int64, name string) tea.Cmd {
	for i := range m.snapshot.Cards {
		if m.snapshot.Cards[i].GroupID == id {
			m.snapshot.Cards[i].Name = name
		}
	}
	renamer, board := m.renamer, m.board
	return func() tea.Msg {
		err := renamer.RenameGroup(context.Background(), id, name)
		board.Refresh()
		if err != nil {
			return errMsg{err: fmt.Errorf("переименование группы: %w", err)}
		}
		return nil
	}
}

func (m *Model) toggle() tea.Cmd {
	t := m.currentTask()
	if t == nil {
		return nil
	}
	status := task.StatusDone
	if t.IsDone() {
		status = task.StatusTodo
	}
	id, board := t.ID, m.board
	return func() tea.Msg {
		if _, err := board.Edit(context.Background(), id, client.TaskPatch{Status: &status}); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func (m *Model) currentCard() *boardsync.Card {
	if m.card < 0 || m.card >= len(m.snapshot.Cards) {
		return nil
	}
	return &m.snapshot.Cards[m.card]
}

// rows - задачи карточки в порядке отображения: сначала открытые
func (m *Model) rows() []*task.Task {
	card := m.currentCard()
	if card == nil {
		return nil
	}
	rows := make([]*task.Task, 0, len(card.Todo)+len(card.Done))
	rows = append(rows, card.Todo...)
	return append(rows, card.Done...)
}

func (m *Model) currentTask() *task.Task {
	rows := m.rows()
	if m.row < 0 || m.row >= len(rows) {
		return nil
	}
	return rows[m.row]
}

func (m *Model) clampCursor() {
	if m.card >= len(m.snapshot.Cards) {
		m.card = max(len(m.snapshot.Cards)-1, 0)
	}
	if n := len(m.rows()); m.row >= n {
		m.row = max(n-1, 0)
	}
}

func (m *Model) View() string {
	if !m.loaded {
		return m.styles.Meta.Render("Загрузка доски...")
	}

	var b strings.Builder
	for i := range m.snapshot.Cards {
		b.WriteString(m.renderCard(i))
		b.WriteString("\n")
	}
	b.WriteString(m.renderRoster())

	if m.toast != "" {
		b.WriteString("\n" + m.styles.Toast.Render(m.toast))
	}
	if m.err != nil {
		b.WriteString("\n" + m.styles.Error.Render(m.err.Error()))
	}
	b.WriteString("\n" + m.styles.Help.Render("←/→ группа • ↑/↓ задача • space выполнено • r переименовать • ctrl+r обновить • q выход"))
	return b.String()
}

func (m *Model) renderCard(i int) string {
	card := m.snapshot.Cards[i]
	title := m.styles.Title.Foreground(colorOf(card.Color)).Render(card.Name)
	if m.renaming && i == m.card {
		title = m.styles.Title.Render(m.renameInput.View())
	}
	counts := m.styles.Meta.Render(fmt.Sprintf("%d открыто, %d выполнено", len(card.Todo), len(card.Done)))

	lines := []string{lipgloss.JoinHorizontal(lipgloss.Top, title, " ", counts)}
	row := 0
	for _, t := range card.Todo {
		lines = append(lines, m.renderTask(card, t, i == m.card && row == m.row))
		row++
	}
	for _, t := range card.Done {
		lines = append(lines, m.renderTask(card, t, i == m.card && row == m.row))
		row++
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderTask(card boardsync.Card, t *task.Task, selected bool) string {
	mark := "☐"
	style := m.styles.Task
	if t.IsDone() {
		mark = "☑"
		style = m.styles.Done
	}
	if selected {
		style = m.styles.Selected
	}

	text := mark + " " + t.Title
	var meta []string
	if card.Slot.StartDate() {
		if start, _ := task.DecodeDescription(t.Description); start != "" {
			meta = append(meta, "с "+start)
		}
	}
	if t.ScheduledAt != nil {
		meta = append(meta, "до "+t.ScheduledAt.Local().Format("02.01 15:04"))
	}
	if t.IsSystemCompleted() {
		meta = append(meta, "вернулся автоматически")
	}
	if len(meta) > 0 {
		text += " " + m.styles.Meta.Render("("+strings.Join(meta, ", ")+")")
	}
	return style.Render(text)
}

func (m *Model) renderRoster() string {
	roster := m.snapshot.Roster
	var parts []string
	for _, e := range roster.Online {
		parts = append(parts, strings.TrimSpace(e.Icon+" "+e.Name))
	}
	if roster.Separator() {
		parts = append(parts, "│")
	}
	for _, e := range roster.Offline {
		name := e.Name
		if e.ExplicitOffline {
			name += " (offline)"
		}
		parts = append(parts, m.styles.Meta.Render(name))
	}
	return strings.Join(parts, "  ")
}
