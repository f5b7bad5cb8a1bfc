package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	activitydto "focusloop/internal/modules/activity/dto"
	taskdto "focusloop/internal/modules/task/dto"
	apperrors "focusloop/internal/platform/errors"
	"focusloop/internal/ui/components"
	"focusloop/internal/ui/theme"
	tasksview "focusloop/internal/ui/views/tasks"
	timerview "focusloop/internal/ui/views/timer"
)

// ─── ports ───────────────────────────────────────────────────────────────────
// Each port is the minimal interface that this orchestration layer requires.

type TaskPort interface {
	Add(ctx context.Context, title, description, dueDate string) (taskdto.TaskOutput, error)
	List(ctx context.Context) ([]taskdto.TaskOutput, error)
	Show(ctx context.Context, id string) (taskdto.TaskOutput, error)
	Done(ctx context.Context, id string) (taskdto.TaskOutput, error)
	Delete(ctx context.Context, id string) (taskdto.TaskOutput, error)
	Restore(ctx context.Context, id string) (taskdto.TaskOutput, error)
}

type TimerOpener interface {
	OpenTimer(ctx context.Context, taskID string) (timerview.TimerPort, error)
}

type StreakPort interface {
	Streak(ctx context.Context) (activitydto.StreakOutput, error)
}

// ─── tab index ───────────────────────────────────────────────────────────────

type tabID int

const (
	tabTasks tabID = iota
	tabTimer
	tabCount
)

var tabLabels = [tabCount]string{"Tasks", "Timer"}

// ─── async messages ───────────────────────────────────────────────────────────

type timerOpenedMsg struct {
	timer timerview.TimerPort
	title string
	err   error
}

type taskChangedMsg struct {
	action string
	task   taskdto.TaskOutput
	err    error
}

type streakLoadedMsg struct {
	streak activitydto.StreakOutput
	err    error
}

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Tab     key.Binding
	Help    key.Binding
	Palette key.Binding
	Quit    key.Binding
	Enter   key.Binding
	Close   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Palette: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "palette")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		Enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "focus on task")),
		Close:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close timer")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Help, k.Palette, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Enter, k.Close},
		{k.Help, k.Palette, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. It owns tab routing, the open timer,
// the global help overlay, and the command palette. All business logic is
// delegated to port interfaces; all rendering is delegated to sub-views.
type Model struct {
	tasks  TaskPort
	opener TimerOpener
	streak StreakPort

	taskView  tasksview.Model
	timerView timerview.Model
	timerOpen bool
	// quitting is set while a quit waits for the open timer to save.
	quitting bool
	// exitOnDismiss quits once a break runs out, for single-task launches.
	exitOnDismiss bool
	launchTaskID  string
	// lastDeleted is the task task:undo brings back.
	lastDeleted string

	activeTab tabID
	keys      keyMap
	help      help.Model
	showHelp  bool
	palette   components.Palette
	streakOut activitydto.StreakOutput
	status    string
	width     int
	height    int
}

// ─── constructor ─────────────────────────────────────────────────────────────

// NewModel builds the root model. A non-empty launchTaskID opens the timer for
// that task on start and quits when its break is dismissed.
func NewModel(tasks TaskPort, opener TimerOpener, streak StreakPort, launchTaskID string) Model {
	return Model{
		tasks:         tasks,
		opener:        opener,
		streak:        streak,
		taskView:      tasksview.New(taskPortBridge{p: tasks}),
		launchTaskID:  strings.TrimSpace(launchTaskID),
		exitOnDismiss: strings.TrimSpace(launchTaskID) != "",
		activeTab:     tabTasks,
		keys:          defaultKeys(),
		help:          help.New(),
		palette:       components.NewPalette(),
		status:        "ready",
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.taskView.Init(), m.loadStreakCmd()}
	if m.launchTaskID != "" {
		cmds = append(cmds, m.openTimerCmd(m.launchTaskID, ""))
	}
	return tea.Batch(cmds...)
}

// ─── update ───────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// The palette intercepts key input while open; timer traffic keeps flowing.
	if m.palette.Visible() {
		if _, ok := msg.(tea.KeyMsg); ok {
			var cmd tea.Cmd
			m.palette, cmd = m.palette.Update(msg)
			return m, cmd
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 80))
		m.help.Width = m.width
		m.propagateSize()
		return m, nil

	case tasksview.TasksLoadedMsg:
		// Reloads can land while the timer tab is showing.
		var cmd tea.Cmd
		m.taskView, cmd = m.taskView.Update(msg)
		return m, cmd

	case tasksview.OpenTimerMsg:
		return m, m.openTimerCmd(msg.TaskID, msg.Title)

	case timerOpenedMsg:
		if msg.err != nil {
			m.status = "open timer: " + msg.err.Error()
			if m.exitOnDismiss && errors.Is(msg.err, apperrors.ErrNotFound) {
				return m, tea.Quit
			}
			return m, nil
		}
		m.timerView = timerview.New(msg.timer, msg.title)
		m.timerView.SetWidth(m.width)
		m.timerOpen = true
		m.activeTab = tabTimer
		m.status = "timer open: " + msg.title
		return m, m.timerView.Init()

	case timerview.SnapshotMsg, timerview.ActionMsg:
		if !m.timerOpen {
			return m, nil
		}
		var cmd tea.Cmd
		m.timerView, cmd = m.timerView.Update(msg)
		cmds = append(cmds, cmd)
		if action, ok := msg.(timerview.ActionMsg); ok && action.Commit != nil && action.Err == nil {
			cmds = append(cmds, m.taskView.Reload(), m.loadStreakCmd())
		}
		if snap, ok := msg.(timerview.SnapshotMsg); ok && snap.Open && snap.Snapshot.State == "configuring" && snap.Snapshot.Kind == "break" {
			// A focus ran out naturally: its commit already landed.
			cmds = append(cmds, m.taskView.Reload(), m.loadStreakCmd())
		}
		return m, tea.Batch(cmds...)

	case timerview.DismissedMsg:
		if m.exitOnDismiss {
			m.quitting = true
			return m, m.timerView.Close()
		}
		m.status = "break over"
		return m, nil

	case timerview.ClosedMsg:
		if msg.StillOpen {
			m.quitting = false
			m.activeTab = tabTimer
			m.status = "timer not closed: " + msg.Err.Error()
			return m, nil
		}
		m.timerOpen = false
		m.activeTab = tabTasks
		if msg.Err != nil {
			m.status = "timer closed: " + msg.Err.Error()
		} else {
			m.status = "timer closed"
		}
		if m.quitting {
			return m, tea.Quit
		}
		return m, tea.Batch(m.taskView.Reload(), m.loadStreakCmd())

	case taskChangedMsg:
		if msg.err != nil {
			m.status = msg.action + ": " + msg.err.Error()
			return m, nil
		}
		switch msg.action {
		case "task deleted":
			m.lastDeleted = msg.task.ID
		case "task restored":
			m.lastDeleted = ""
		}
		m.status = fmt.Sprintf("%s: %s", msg.action, msg.task.Title)
		return m, tea.Batch(m.taskView.Reload(), m.loadStreakCmd())

	case streakLoadedMsg:
		if msg.err == nil {
			m.streakOut = msg.streak
		}
		return m, nil

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}

		// Yield to the task list when its search filter is active.
		if m.activeTab == tabTasks && m.taskView.Filtering() {
			break
		}

		switch msg.String() {
		case "ctrl+c", "q":
			if m.timerOpen {
				m.quitting = true
				return m, m.timerView.Close()
			}
			return m, tea.Quit
		case "tab":
			if m.timerOpen {
				m.activeTab = (m.activeTab + 1) % tabCount
			}
			return m, nil
		case "?":
			m.showHelp = !m.showHelp
			return m, nil
		case ":":
			return m, m.palette.Open()
		case "esc":
			if m.activeTab == tabTimer && m.timerOpen {
				return m, m.timerView.Close()
			}
		case "enter":
			if m.activeTab == tabTasks && m.timerOpen {
				m.status = "a timer is already open: esc closes it"
				return m, nil
			}
		}
	}

	var tabCmd tea.Cmd
	switch m.activeTab {
	case tabTasks:
		m.taskView, tabCmd = m.taskView.Update(msg)
	case tabTimer:
		if m.timerOpen {
			m.timerView, tabCmd = m.timerView.Update(msg)
		}
	}
	cmds = append(cmds, tabCmd)

	return m, tea.Batch(cmds...)
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	contentH := m.height - lipgloss.Height(tabBar) - lipgloss.Height(statusBar)
	if contentH < 1 {
		contentH = 1
	}

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).
			Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH,
			lipgloss.Center, lipgloss.Center, m.palette.View())
	case m.activeTab == tabTimer && m.timerOpen:
		content = lipgloss.Place(m.width, contentH, lipgloss.Center, lipgloss.Center, m.timerView.View())
	default:
		content = m.taskView.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) renderTabBar() string {
	parts := make([]string, 0, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		label := tabLabels[i]
		switch {
		case i == tabTimer && !m.timerOpen:
			continue
		case i == m.activeTab:
			parts = append(parts, theme.Hot.Render(" "+label+" "))
		default:
			parts = append(parts, theme.Muted.Render(" "+label+" "))
		}
	}
	sep := theme.Muted.Render(" │ ")
	bar := "focusloop  " + strings.Join(parts, sep)
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	if m.timerOpen {
		snap := m.timerView.Snapshot()
		clock := fmt.Sprintf("%02d:%02d", snap.RemainingSeconds/60, snap.RemainingSeconds%60)
		left = lipgloss.NewStyle().Foreground(theme.Accent(snap.Kind)).Bold(true).Render("● "+clock) + "  " + left
	}
	streak := fmt.Sprintf("streak %dd  today %d min", m.streakOut.Current, m.streakOut.Today.FocusMinutes)
	right := theme.Muted.Render(streak + "  ?:help  :::palette  q:quit")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

// ─── palette execution ────────────────────────────────────────────────────────

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(input) == "" {
		return m, nil
	}
	parts := strings.Fields(input)
	selected, _ := m.taskView.SelectedTaskID()

	switch parts[0] {
	case "task:add":
		title := strings.TrimSpace(strings.TrimPrefix(input, parts[0]))
		if title == "" {
			m.status = "usage: task:add <title>"
			return m, nil
		}
		return m, m.addTaskCmd(title)

	case "task:done":
		if selected == "" {
			m.status = "no task selected"
			return m, nil
		}
		return m, m.changeTaskCmd("task done", selected, m.tasks.Done)

	case "task:delete":
		if selected == "" {
			m.status = "no task selected"
			return m, nil
		}
		return m, m.changeTaskCmd("task deleted", selected, m.tasks.Delete)

	case "task:undo":
		if m.lastDeleted == "" {
			m.status = "nothing to undo"
			return m, nil
		}
		return m, m.changeTaskCmd("task restored", m.lastDeleted, m.tasks.Restore)

	case "task:focus":
		if selected == "" {
			m.status = "no task selected"
			return m, nil
		}
		if m.timerOpen {
			m.status = "a timer is already open: esc closes it"
			return m, nil
		}
		return m, m.openTimerCmd(selected, m.taskView.SelectedTaskTitle())

	case "task:reload":
		return m, tea.Batch(m.taskView.Reload(), m.loadStreakCmd())

	case "timer:stop", "timer:retry", "timer:discard", "timer:close":
		if !m.timerOpen {
			m.status = "no timer open"
			return m, nil
		}
		m.activeTab = tabTimer
		switch parts[0] {
		case "timer:stop":
			return m, m.timerView.Stop()
		case "timer:retry":
			return m, m.timerView.Retry()
		case "timer:discard":
			return m, m.timerView.Discard()
		default:
			return m, m.timerView.Close()
		}

	case "streak":
		return m, m.loadStreakCmd()

	default:
		m.status = "unknown command: " + parts[0]
	}
	return m, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (m *Model) propagateSize() {
	m.taskView.SetSize(m.width, m.height-3)
	m.timerView.SetWidth(min(m.width, 72))
}

// ─── async commands ───────────────────────────────────────────────────────────

func (m Model) openTimerCmd(taskID, title string) tea.Cmd {
	opener, tasks := m.opener, m.tasks
	return func() tea.Msg {
		ctx := context.Background()
		if title == "" {
			task, err := tasks.Show(ctx, taskID)
			if err != nil {
				return timerOpenedMsg{err: err}
			}
			title = task.Title
		}
		timer, err := opener.OpenTimer(ctx, taskID)
		return timerOpenedMsg{timer: timer, title: title, err: err}
	}
}

func (m Model) addTaskCmd(title string) tea.Cmd {
	tasks := m.tasks
	return func() tea.Msg {
		out, err := tasks.Add(context.Background(), title, "", "")
		return taskChangedMsg{action: "task added", task: out, err: err}
	}
}

func (m Model) changeTaskCmd(action, id string, change func(context.Context, string) (taskdto.TaskOutput, error)) tea.Cmd {
	return func() tea.Msg {
		out, err := change(context.Background(), id)
		return taskChangedMsg{action: action, task: out, err: err}
	}
}

func (m Model) loadStreakCmd() tea.Cmd {
	streak := m.streak
	return func() tea.Msg {
		if streak == nil {
			return streakLoadedMsg{err: fmt.Errorf("activity adapter not configured")}
		}
		out, err := streak.Streak(context.Background())
		return streakLoadedMsg{streak: out, err: err}
	}
}

// ─── port bridges ─────────────────────────────────────────────────────────────

type taskPortBridge struct{ p TaskPort }

func (b taskPortBridge) List(ctx context.Context) ([]taskdto.TaskOutput, error) {
	return b.p.List(ctx)
}
