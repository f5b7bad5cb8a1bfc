package timer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	focusdto "focusloop/internal/modules/focus/dto"
	"focusloop/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type TimerPort interface {
	Info() focusdto.TimerInfo
	Configure(ctx context.Context) error
	SelectDuration(ctx context.Context, minutes int) error
	Start(ctx context.Context) (focusdto.StartOutput, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) (focusdto.CommitOutput, error)
	Retry(ctx context.Context) (focusdto.CommitOutput, error)
	Discard(ctx context.Context) error
	Snapshot(ctx context.Context) (focusdto.Snapshot, error)
	Subscribe() (<-chan focusdto.Snapshot, func())
	Close(ctx context.Context) error
}

// ─── messages ────────────────────────────────────────────────────────────────

type SnapshotMsg struct {
	Snapshot focusdto.Snapshot
	Open     bool
}

type ActionMsg struct {
	Action string
	Commit *focusdto.CommitOutput
	Err    error
}

// DismissedMsg asks the host to close the timer after a break ran out.
type DismissedMsg struct{}

// ClosedMsg reports the outcome of Close. StillOpen is set when the implicit stop
// could not be saved and the timer is waiting for a retry or discard.
type ClosedMsg struct {
	Err       error
	StillOpen bool
}

// ─── keys ────────────────────────────────────────────────────────────────────

type keyMap struct {
	Prev    key.Binding
	Next    key.Binding
	Start   key.Binding
	Pause   key.Binding
	Stop    key.Binding
	Retry   key.Binding
	Discard key.Binding
	Again   key.Binding
	Close   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Prev:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/→", "duration")),
		Next:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("←/→", "duration")),
		Start:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start")),
		Pause:   key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "pause/resume")),
		Stop:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Retry:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry save")),
		Discard: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "discard")),
		Again:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new focus")),
		Close:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Start, k.Pause, k.Stop, k.Close}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.Start},
		{k.Pause, k.Stop, k.Again},
		{k.Retry, k.Discard, k.Close},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model renders one timer and forwards key presses to it. Rendering is driven by
// the snapshots the timer publishes, never by a local clock.
type Model struct {
	port      TimerPort
	title     string
	info      focusdto.TimerInfo
	snap      focusdto.Snapshot
	updates   <-chan focusdto.Snapshot
	unsub     func()
	status    string
	lastTotal int
	keys      keyMap
	help      help.Model
	width     int
}

func New(port TimerPort, title string) Model {
	updates, unsub := port.Subscribe()
	info := port.Info()
	return Model{
		port:      port,
		title:     title,
		info:      info,
		updates:   updates,
		unsub:     unsub,
		lastTotal: info.TotalFocusMinutes,
		keys:      defaultKeys(),
		help:      help.New(),
		status:    "pick a duration",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForSnapshot(), m.run("configure", func(ctx context.Context) (*focusdto.CommitOutput, error) {
		return nil, m.port.Configure(ctx)
	}))
}

func (m Model) Snapshot() focusdto.Snapshot { return m.snap }

func (m *Model) SetWidth(w int) {
	m.width = w
	m.help.Width = w
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		if !msg.Open {
			return m, nil
		}
		m.snap = msg.Snapshot
		m.lastTotal = msg.Snapshot.TaskTotal
		if m.snap.Dismissed && m.snap.State == "idle" {
			return m, tea.Batch(m.waitForSnapshot(), func() tea.Msg { return DismissedMsg{} })
		}
		return m, m.waitForSnapshot()

	case ActionMsg:
		m.status = describe(msg)
		if msg.Commit != nil && msg.Commit.Kind == "focus" && msg.Commit.CompletedMinutes > 0 {
			m.lastTotal = msg.Commit.TaskTotal
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	state := m.snap.State
	switch {
	case key.Matches(msg, m.keys.Prev) && state == "configuring":
		return m, m.shift(-1)
	case key.Matches(msg, m.keys.Next) && state == "configuring":
		return m, m.shift(1)
	case key.Matches(msg, m.keys.Start) && state == "configuring":
		minutes := m.snap.DurationMinutes
		if minutes == 0 {
			minutes = m.options()[0]
		}
		return m, m.run("start", func(ctx context.Context) (*focusdto.CommitOutput, error) {
			if err := m.port.SelectDuration(ctx, minutes); err != nil {
				return nil, err
			}
			_, err := m.port.Start(ctx)
			return nil, err
		})
	case key.Matches(msg, m.keys.Pause) && state == "running":
		return m, m.run("pause", func(ctx context.Context) (*focusdto.CommitOutput, error) { return nil, m.port.Pause(ctx) })
	case key.Matches(msg, m.keys.Pause) && state == "paused":
		return m, m.run("resume", func(ctx context.Context) (*focusdto.CommitOutput, error) { return nil, m.port.Resume(ctx) })
	case key.Matches(msg, m.keys.Stop) && (state == "running" || state == "paused"):
		return m, m.Stop()
	case key.Matches(msg, m.keys.Retry) && state == "commit_failed":
		return m, m.Retry()
	case key.Matches(msg, m.keys.Discard) && state == "commit_failed":
		return m, m.Discard()
	case key.Matches(msg, m.keys.Again) && state == "idle":
		return m, m.run("configure", func(ctx context.Context) (*focusdto.CommitOutput, error) { return nil, m.port.Configure(ctx) })
	}
	return m, nil
}

func (m Model) Stop() tea.Cmd {
	return m.run("stop", func(ctx context.Context) (*focusdto.CommitOutput, error) {
		out, err := m.port.Stop(ctx)
		return &out, err
	})
}

func (m Model) Retry() tea.Cmd {
	return m.run("retry", func(ctx context.Context) (*focusdto.CommitOutput, error) {
		out, err := m.port.Retry(ctx)
		return &out, err
	})
}

func (m Model) Discard() tea.Cmd {
	return m.run("discard", func(ctx context.Context) (*focusdto.CommitOutput, error) { return nil, m.port.Discard(ctx) })
}

// Close stops the timer (committing an active session) and releases the subscription.
func (m Model) Close() tea.Cmd {
	port, unsub := m.port, m.unsub
	return func() tea.Msg {
		ctx := context.Background()
		err := port.Close(ctx)
		if err != nil {
			if _, snapErr := port.Snapshot(ctx); snapErr == nil {
				return ClosedMsg{Err: err, StillOpen: true}
			}
		}
		unsub()
		return ClosedMsg{Err: err}
	}
}

func (m Model) options() []int {
	if m.snap.Kind == "break" {
		return m.info.BreakMenu
	}
	return m.info.FocusMenu
}

func (m Model) shift(delta int) tea.Cmd {
	opts := m.options()
	if len(opts) == 0 {
		return nil
	}
	idx := 0
	for i, v := range opts {
		if v == m.snap.DurationMinutes {
			idx = i
		}
	}
	if m.snap.DurationMinutes != 0 {
		idx = (idx + delta + len(opts)) % len(opts)
	}
	minutes := opts[idx]
	return m.run("select", func(ctx context.Context) (*focusdto.CommitOutput, error) {
		return nil, m.port.SelectDuration(ctx, minutes)
	})
}

func (m Model) run(action string, fn func(ctx context.Context) (*focusdto.CommitOutput, error)) tea.Cmd {
	return func() tea.Msg {
		out, err := fn(context.Background())
		return ActionMsg{Action: action, Commit: out, Err: err}
	}
}

func (m Model) waitForSnapshot() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		snap, ok := <-updates
		return SnapshotMsg{Snapshot: snap, Open: ok}
	}
}

func describe(msg ActionMsg) string {
	var cerr *focusdto.CommitError
	switch {
	case errors.As(msg.Err, &cerr) && cerr.Retryable:
		return fmt.Sprintf("could not save %d min: press r to retry or d to discard", cerr.CompletedMinutes)
	case msg.Err != nil:
		return msg.Action + " failed: " + msg.Err.Error()
	case msg.Commit != nil:
		return fmt.Sprintf("%s saved: %d min", msg.Commit.Kind, msg.Commit.CompletedMinutes)
	default:
		return msg.Action
	}
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	accent := theme.Accent(m.snap.Kind)
	var sb strings.Builder

	heading := "Focus"
	if m.snap.Kind == "break" {
		heading = "Break"
	}
	sb.WriteString(theme.Title.Foreground(accent).Render(heading+" · "+m.title) + "\n")
	sb.WriteString(theme.Muted.Render(fmt.Sprintf("total focused: %d min", m.lastTotal)) + "\n\n")

	remaining := m.snap.RemainingSeconds
	sb.WriteString(theme.Clock.Foreground(accent).Render(fmt.Sprintf("%02d:%02d", remaining/60, remaining%60)))
	sb.WriteString("  " + theme.Muted.Render(strings.ReplaceAll(m.snap.State, "_", " ")) + "\n\n")

	switch m.snap.State {
	case "configuring":
		sb.WriteString(m.renderMenu() + "\n")
	case "running", "paused", "transitioning":
		sb.WriteString(renderBar(m.snap.DurationMinutes*60, remaining, 36) + "\n")
	case "commit_failed":
		sb.WriteString(theme.Bad.Render(fmt.Sprintf("%d min not saved yet", m.snap.PendingMinutes)) + "\n")
	}

	sb.WriteString("\n" + theme.Muted.Render(m.status) + "\n")
	if m.snap.LastError != "" && m.snap.State != "commit_failed" {
		sb.WriteString(theme.Bad.Render(m.snap.LastError) + "\n")
	}
	sb.WriteString("\n" + m.help.View(m.keys))

	w := m.width
	if w < 30 {
		w = 56
	}
	return theme.Pane.BorderForeground(accent).Width(w - 4).Render(sb.String())
}

func (m Model) renderMenu() string {
	chips := make([]string, 0, len(m.options()))
	for _, v := range m.options() {
		label := fmt.Sprintf("%d min", v)
		if v == m.snap.DurationMinutes {
			chips = append(chips, theme.ChipOn.Background(theme.Accent(m.snap.Kind)).Render(label))
			continue
		}
		chips = append(chips, theme.Chip.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, chips...)
}

func renderBar(total, remaining, width int) string {
	if total <= 0 {
		return ""
	}
	done := (total - remaining) * width / total
	if done < 0 {
		done = 0
	}
	if done > width {
		done = width
	}
	return theme.BarFill.Render(strings.Repeat("█", done)) + theme.BarRest.Render(strings.Repeat("░", width-done))
}
