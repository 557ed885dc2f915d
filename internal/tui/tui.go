// Package tui renders the remote todo list with Bubble Tea.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada-remote/internal/model"
	"github.com/Makepad-fr/tada-remote/internal/todolist"
)

const emptyText = "No tasks yet. Add one above!"

// listItem adapts model.Todo to bubbles/list.Item
type listItem struct {
	todo model.Todo
}

func (i listItem) Title() string       { return i.todo.Text }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.todo.Text }

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	box := mutedStyle.Render(boxUnchecked)
	text := it.todo.Text
	if it.todo.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintf(w, "%s%s %s", prefix, box, text)
}

type keyMap struct {
	Add     key.Binding
	Toggle  key.Binding
	Delete  key.Binding
	Refresh key.Binding
	Quit    key.Binding
	Submit  key.Binding
	Cancel  key.Binding
	Yes     key.Binding
	No      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Toggle:  key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
		Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Submit:  key.NewBinding(key.WithKeys("enter")),
		Cancel:  key.NewBinding(key.WithKeys("esc")),
		Yes:     key.NewBinding(key.WithKeys("y", "Y")),
		No:      key.NewBinding(key.WithKeys("n", "N", "esc")),
	}
}

type operation int

const (
	opMount operation = iota
	opList
	opCreate
	opToggle
	opRemove
)

// syncedMsg reports that an operation on the view has settled.
type syncedMsg struct {
	op  operation
	err error
}

// Model is the Bubble Tea model of the todo list view.
type Model struct {
	ctx  context.Context
	view *todolist.View
	keys keyMap

	state todolist.State
	list  list.Model
	ti    textinput.Model
	spin  spinner.Model

	adding  bool
	confirm *confirmRequestMsg

	width, height int
}

// New builds the model. The view is mounted by Init.
func New(ctx context.Context, view *todolist.View) Model {
	keys := defaultKeyMap()

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("task", "tasks")
	extra := func() []key.Binding {
		return []key.Binding{keys.Add, keys.Toggle, keys.Delete, keys.Refresh}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Add a new task..."
	ti.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	return Model{
		ctx:    ctx,
		view:   view,
		keys:   keys,
		state:  todolist.State{Loading: true},
		list:   l,
		ti:     ti,
		spin:   sp,
		width:  80,
		height: 24,
	}
}

// Init mounts the view and starts the loading spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.run(opMount, m.view.Mount))
}

func (m Model) run(op operation, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return syncedMsg{op: op, err: fn(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if !m.state.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case syncedMsg:
		return m.synced(msg)

	case confirmRequestMsg:
		if m.confirm != nil {
			// One dialog at a time; a second request is declined.
			msg.answer(false)
			return m, nil
		}
		m.confirm = &msg
		return m, nil

	case tea.KeyMsg:
		if m.confirm != nil {
			return m.updateConfirm(msg)
		}
		if m.adding {
			return m.updateAdding(msg)
		}
		if m.state.Loading {
			if key.Matches(msg, m.keys.Quit) {
				return m.quit()
			}
			return m, nil
		}
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		case key.Matches(msg, m.keys.Add):
			m.adding = true
			m.ti.SetValue(m.state.PendingInput)
			m.ti.CursorEnd()
			m.resize()
			return m, m.ti.Focus()
		case key.Matches(msg, m.keys.Toggle):
			if t, ok := m.selected(); ok {
				return m, m.run(opToggle, func(ctx context.Context) error { return m.view.Toggle(ctx, t.ID) })
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if t, ok := m.selected(); ok {
				return m, m.run(opRemove, func(ctx context.Context) error { return m.view.Remove(ctx, t.ID) })
			}
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, m.run(opList, m.view.List)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) synced(msg syncedMsg) (tea.Model, tea.Cmd) {
	m.state = m.view.Snapshot()
	if msg.op == opCreate {
		m.ti.SetValue(m.state.PendingInput)
		if msg.err == nil {
			m.adding = false
			m.ti.Blur()
		}
	}
	items := make([]list.Item, 0, len(m.state.Items))
	for _, t := range m.state.Items {
		items = append(items, listItem{todo: t})
	}
	cmd := m.list.SetItems(items)
	m.resize()
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m.quit()
	case key.Matches(msg, m.keys.Yes):
		m.confirm.answer(true)
		m.confirm = nil
	case key.Matches(msg, m.keys.No):
		m.confirm.answer(false)
		m.confirm = nil
	}
	return m, nil
}

func (m Model) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m.quit()
	case key.Matches(msg, m.keys.Submit):
		m.view.SetInput(m.ti.Value())
		if strings.TrimSpace(m.ti.Value()) == "" {
			return m, nil
		}
		return m, m.run(opCreate, m.view.Submit)
	case key.Matches(msg, m.keys.Cancel):
		m.adding = false
		m.ti.Blur()
		m.resize()
		return m, nil
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	m.view.SetInput(m.ti.Value())
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		m.confirm.answer(false)
		m.confirm = nil
	}
	m.view.Unmount()
	return m, tea.Quit
}

func (m Model) selected() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Todo{}, false
	}
	return it.todo, true
}

func (m *Model) resize() {
	// header, counts, banner and panel border
	reserved := 6
	if m.adding {
		reserved += 4
	}
	if m.state.LastError != "" {
		reserved++
	}
	h := m.height - reserved
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width-4, h)
}

func (m Model) View() string {
	if m.state.Loading {
		return panelString(m.spin.View() + " " + mutedStyle.Render("Loading todos..."))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Todo List"))
	b.WriteString("\n")

	done, pending := m.state.Stats()
	fmt.Fprintf(&b, "%s %d  %s %d  %s %d  %s\n",
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), pending,
		accentStyle.Render("Total"), len(m.state.Items),
		mutedStyle.Render(progressBar(done, done+pending, 20)),
	)

	if m.state.LastError != "" {
		b.WriteString(bannerStyle.Render(m.state.LastError))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(m.state.Items) == 0 {
		b.WriteString(mutedStyle.Render(emptyText))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("a add • r refresh • q quit"))
	} else {
		b.WriteString(m.list.View())
	}

	if m.adding {
		b.WriteString("\n")
		b.WriteString(inputStyle.Render("Add new task\n" + m.ti.View()))
	}

	content := b.String()
	if m.confirm != nil {
		dialog := dialogStyle.Render(errorStyle.Render(m.confirm.prompt) + "\n\n" + helpStyle.Render("y yes • n no"))
		content = lipgloss.JoinVertical(lipgloss.Left, content, "", dialog)
	}
	return panelString(content)
}
