// Package tui is a terminal front-end for the todo list. It owns a store and
// runs every store call as a tea.Cmd so the UI never blocks on the network.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"todolist/internal/model"
	"todolist/internal/store"
	"todolist/internal/validation"
)

// InputMode is what the keyboard currently drives.
type InputMode int

const (
	NormalMode InputMode = iota
	AddMode
	SearchMode
	DeleteConfirmMode
	HelpMode
)

const callTimeout = 10 * time.Second

// loadedMsg reports the end of a Load.
type loadedMsg struct{ err error }

// mutatedMsg reports the end of a store mutation. focus is the todo the cursor should follow.
type mutatedMsg struct {
	action string
	focus  uint
	err    error
}

// statusCycle is the order the status filter steps through; nil means all.
var statusCycle = [][]model.Status{
	nil,
	{model.StatusPending},
	{model.StatusOverdue},
	{model.StatusCompleted},
}

type Model struct {
	store *store.Store
	keys  keyMap

	table       table.Model
	input       textinput.Model
	mode        InputMode
	statusIndex int
	pendingID   uint
	focusID     uint
	notice      string
	err         error
	width       int
	height      int
	now         func() time.Time
}

func New(st *store.Store) Model {
	columns := []table.Column{
		{Title: "", Width: 3},
		{Title: "#", Width: 5},
		{Title: "Title", Width: 40},
		{Title: "Priority", Width: 11},
		{Title: "Due", Width: 16},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	t.SetStyles(tableStyles())

	input := textinput.New()
	input.Width = 50

	return Model{
		store: st,
		keys:  defaultKeyMap(),
		table: t,
		input: input,
		mode:  NormalMode,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m Model) Init() tea.Cmd {
	return m.load(m.store.Filters())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if h := msg.Height - 8; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case loadedMsg:
		switch {
		case msg.err == nil:
			m.err = nil
		case !errors.Is(msg.err, store.ErrSuperseded):
			m.err = msg.err
		}
		m.refresh()
		return m, nil

	case mutatedMsg:
		m.err = nil
		m.notice = ""
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.notice = msg.action
			m.focusID = msg.focus
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case AddMode, SearchMode:
			return m.updateInput(msg)
		case DeleteConfirmMode:
			return m.updateConfirm(msg)
		case HelpMode:
			m.mode = NormalMode
			return m, nil
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	filters := m.store.Filters()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.mode = HelpMode

	case key.Matches(msg, m.keys.Toggle):
		if todo, ok := m.selected(); ok {
			return m, m.toggle(todo.ID)
		}

	case key.Matches(msg, m.keys.Add):
		m.mode = AddMode
		m.input.Reset()
		m.input.Placeholder = "Title | optional description"
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Delete):
		if todo, ok := m.selected(); ok {
			m.pendingID = todo.ID
			m.mode = DeleteConfirmMode
		}

	case key.Matches(msg, m.keys.MoveUp):
		return m, m.moveBy(-1)

	case key.Matches(msg, m.keys.MoveDown):
		return m, m.moveBy(1)

	case key.Matches(msg, m.keys.Search):
		m.mode = SearchMode
		m.input.Reset()
		m.input.Placeholder = "Search title and description"
		m.input.SetValue(filters.Search)
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Status):
		m.statusIndex = (m.statusIndex + 1) % len(statusCycle)
		filters.Statuses = statusCycle[m.statusIndex]
		return m, m.load(filters)

	case key.Matches(msg, m.keys.Sort):
		filters.SortField = nextSortField(filters.SortField)
		return m, m.load(filters)

	case key.Matches(msg, m.keys.Direction):
		filters.SortDirection = filters.SortDirection.Flip()
		return m, m.load(filters)

	case key.Matches(msg, m.keys.Reset):
		m.statusIndex = 0
		return m, m.load(model.DefaultFilters())

	case key.Matches(msg, m.keys.Reload):
		return m, m.load(filters)

	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = NormalMode
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = NormalMode
		m.input.Blur()
		if mode == SearchMode {
			filters := m.store.Filters()
			filters.Search = value
			return m, m.load(filters)
		}
		return m, m.add(parseDraft(value))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = NormalMode
	switch strings.ToLower(msg.String()) {
	case "y", "enter":
		return m, m.remove(m.pendingID)
	}
	m.pendingID = 0
	return m, nil
}

func (m Model) selected() (model.Todo, bool) {
	todos := m.store.Todos()
	i := m.table.Cursor()
	if i < 0 || i >= len(todos) {
		return model.Todo{}, false
	}
	return todos[i], true
}

// moveBy drops the selected todo onto its neighbour delta rows away.
func (m Model) moveBy(delta int) tea.Cmd {
	todos := m.store.Todos()
	i := m.table.Cursor()
	j := i + delta
	if i < 0 || i >= len(todos) || j < 0 || j >= len(todos) {
		return nil
	}
	active, over := todos[i].ID, todos[j].ID
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		outcome, err := st.ReorderPersisted(ctx, active, over)
		return mutatedMsg{action: "moved (" + outcome.String() + ")", focus: active, err: err}
	}
}

func (m Model) load(filters model.Filters) tea.Cmd {
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return loadedMsg{err: st.Load(ctx, filters)}
	}
}

func (m Model) toggle(id uint) tea.Cmd {
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		todo, err := st.ToggleCompletePersisted(ctx, id)
		action := "reopened"
		if todo.CompletedAt != nil {
			action = "completed"
		}
		return mutatedMsg{action: action, focus: id, err: err}
	}
}

func (m Model) add(draft model.Draft) tea.Cmd {
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		todo, err := st.Add(ctx, draft)
		return mutatedMsg{action: "added", focus: todo.ID, err: err}
	}
}

func (m Model) remove(id uint) tea.Cmd {
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return mutatedMsg{action: "deleted", err: st.Delete(ctx, id)}
	}
}

// refresh rebuilds the table rows from the store and keeps the cursor on focusID.
func (m *Model) refresh() {
	todos := m.store.Todos()
	now := m.now()
	rows := make([]table.Row, len(todos))
	cursor := m.table.Cursor()
	for i, todo := range todos {
		rows[i] = todoRow(todo, now)
		if m.focusID != 0 && todo.ID == m.focusID {
			cursor = i
		}
	}
	m.table.SetRows(rows)
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	m.table.SetCursor(cursor)
	m.focusID = 0
}

func todoRow(todo model.Todo, now time.Time) table.Row {
	mark := "[ ]"
	if todo.CompletedAt != nil {
		mark = "[x]"
	}
	due := ""
	if todo.DueAt != nil {
		due = todo.DueAt.Format("2006-01-02 15:04")
		if todo.Status(now) == model.StatusOverdue {
			due = "! " + todo.DueAt.Format("2006-01-02")
		}
	}
	return table.Row{mark, fmt.Sprintf("%d", todo.ID), todo.Title, model.PriorityLabel(todo.Priority), due}
}

func nextSortField(current model.SortField) model.SortField {
	for i, f := range model.SortFields {
		if f == current {
			return model.SortFields[(i+1)%len(model.SortFields)]
		}
	}
	return model.SortOrderIndex
}

func parseDraft(value string) model.Draft {
	title, description, found := strings.Cut(value, "|")
	draft := model.Draft{Title: strings.TrimSpace(title)}
	if d := strings.TrimSpace(description); found && d != "" {
		draft.Description = &d
	}
	return draft
}

func describeError(err error) string {
	var errs validation.Errors
	if errors.As(err, &errs) {
		return errs.Error()
	}
	if errors.Is(err, model.ErrNotFound) {
		return "todo not found, press r to reload"
	}
	return err.Error()
}
