package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	taskdto "focusloop/internal/modules/task/dto"
	"focusloop/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type TaskPort interface {
	List(ctx context.Context) ([]taskdto.TaskOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type TasksLoadedMsg struct {
	Tasks []taskdto.TaskOutput
	Err   error
}

type OpenTimerMsg struct {
	TaskID string
	Title  string
}

// ─── list item ───────────────────────────────────────────────────────────────

type taskItem struct {
	task taskdto.TaskOutput
}

func (i taskItem) Title() string {
	if i.task.Completed {
		return "✓ " + i.task.Title
	}
	return i.task.Title
}

func (i taskItem) Description() string {
	return fmt.Sprintf("due %s  %d min focused", i.task.DueDate, i.task.TotalFocusMinutes)
}

func (i taskItem) FilterValue() string { return i.task.Title }

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port    TaskPort
	list    list.Model
	preview viewport.Model
	spinner spinner.Model
	loading bool
	width   int
	height  int
}

func New(port TaskPort) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Tasks"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().
		Background(theme.Mantle).
		Foreground(theme.Text).
		Padding(1)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{
		port:    port,
		list:    l,
		preview: vp,
		spinner: sp,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Reload(), m.spinner.Tick)
}

// Reload fetches the task list again, e.g. after a commit changed a total.
func (m Model) Reload() tea.Cmd {
	port := m.port
	return func() tea.Msg {
		items, err := port.List(context.Background())
		return TasksLoadedMsg{Tasks: items, Err: err}
	}
}

func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resize()
}

func (m *Model) resize() {
	listW := m.width * 5 / 10
	m.list.SetSize(listW, m.height)
	m.preview.Width = m.width - listW - 4
	m.preview.Height = m.height - 4
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)

	case TasksLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.list.Title = "Tasks: " + msg.Err.Error()
			return m, nil
		}
		m.list.Title = "Tasks"
		items := make([]list.Item, len(msg.Tasks))
		for i, t := range msg.Tasks {
			items[i] = taskItem{task: t}
		}
		cmds = append(cmds, m.list.SetItems(items))
		m.preview.SetContent(m.renderDetail())

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		if msg.String() == "enter" && !m.Filtering() {
			if item, ok := m.list.SelectedItem().(taskItem); ok && !item.task.Completed {
				id, title := item.task.ID, item.task.Title
				return m, func() tea.Msg { return OpenTimerMsg{TaskID: id, Title: title} }
			}
			return m, nil
		}
	}

	if !m.loading {
		var lCmd tea.Cmd
		prevIdx := m.list.Index()
		m.list, lCmd = m.list.Update(msg)
		cmds = append(cmds, lCmd)
		if m.list.Index() != prevIdx {
			m.preview.SetContent(m.renderDetail())
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Loading tasks…")
	}

	listW := m.width * 5 / 10
	detailW := m.width - listW

	listPane := lipgloss.NewStyle().
		Width(listW).
		Height(m.height).
		Render(m.list.View())

	detailPane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Surface1).
		Background(theme.Mantle).
		Width(detailW - 2).
		Height(m.height - 2).
		Render(m.preview.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}

func (m Model) renderDetail() string {
	item, ok := m.list.SelectedItem().(taskItem)
	if !ok {
		return theme.Muted.Render("no tasks yet: press : and type task:add <title>")
	}
	t := item.task
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(t.Title) + "\n\n")
	if t.Description != "" {
		sb.WriteString(t.Description + "\n\n")
	}
	sb.WriteString(theme.Muted.Render("due      ") + t.DueDate + "\n")
	sb.WriteString(theme.Muted.Render("focused  ") + theme.Hot.Render(fmt.Sprintf("%d min", t.TotalFocusMinutes)) + "\n")
	status := "open"
	if t.Completed && t.CompletedAt != nil {
		status = "done " + t.CompletedAt.Local().Format("2006-01-02 15:04")
	}
	sb.WriteString(theme.Muted.Render("status   ") + status + "\n")
	sb.WriteString(theme.Muted.Render("id       ") + t.ID + "\n")
	return sb.String()
}

// SelectedTaskID returns the current selection's task ID, if any.
func (m Model) SelectedTaskID() (string, bool) {
	if item, ok := m.list.SelectedItem().(taskItem); ok {
		return item.task.ID, true
	}
	return "", false
}

// SelectedTaskTitle returns the current selection's title.
func (m Model) SelectedTaskTitle() string {
	if item, ok := m.list.SelectedItem().(taskItem); ok {
		return item.task.Title
	}
	return ""
}

// Filtering reports whether the list's search filter is currently active.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}
