// Package tui renders the live "assigned to me" view on top of the sync
// engine.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"taskdeck-cli/internal/model"
	"taskdeck-cli/internal/sync"
)

var (
	styleHeader    = lipgloss.NewStyle().Bold(true)
	styleMuted     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styleLive      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleDegraded  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleDone      = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true)
	styleInFlight  = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	styleProjectBy = lipgloss.NewStyle().Foreground(lipgloss.Color("105"))
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type watchModel struct {
	engine *sync.Engine
	snap   sync.Snapshot
	spin   spinner.Model
	width  int
}

func newWatchModel(engine *sync.Engine) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return watchModel{engine: engine, snap: engine.Snapshot(), spin: sp, width: 80}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, tick())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		m.snap = m.engine.Snapshot()
		return m, tick()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			go func() { _ = m.engine.ForceRefreshTodayTasks(context.Background()) }()
			return m, nil
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	var b []byte

	badge := styleLive.Render("● live")
	if !m.snap.IsSubscribed {
		badge = styleDegraded.Render(fmt.Sprintf("○ %s", m.snap.State))
	}
	b = append(b, styleHeader.Render("taskdeck · today")...)
	b = append(b, "  "...)
	b = append(b, badge...)
	b = append(b, '\n', '\n')

	switch {
	case m.snap.TodayLoading:
		b = append(b, m.spin.View()...)
		b = append(b, " loading…"...)
		b = append(b, '\n')
	case len(m.snap.Today) == 0:
		b = append(b, styleMuted.Render("nothing assigned to you")...)
		b = append(b, '\n')
	default:
		for _, t := range m.snap.Today {
			b = append(b, renderRow(t, m.width)...)
			b = append(b, '\n')
		}
	}

	b = append(b, '\n')
	b = append(b, styleMuted.Render("r refresh · q quit")...)
	b = append(b, '\n')
	return string(b)
}

func renderRow(t model.TaskWithProject, width int) string {
	icon := "·"
	title := t.Title
	switch t.Status {
	case model.StatusInProgress:
		icon = styleInFlight.Render("◐")
	case model.StatusDone:
		icon = "✓"
		title = styleDone.Render(title)
	}

	project := styleProjectBy.Render(t.ProjectName)
	if t.ProjectName == "" {
		project = styleMuted.Render(t.ProjectID)
	}

	line := fmt.Sprintf("  %s %s  %s", icon, title, project)
	if xansi.StringWidth(line) > width && width > 1 {
		line = xansi.Cut(line, 0, width-1) + "…"
	}
	return line
}

// Run starts the engine's watch view and blocks until the user quits.
func Run(engine *sync.Engine) error {
	lipgloss.SetColorProfile(termenv.ColorProfile())
	_, err := tea.NewProgram(newWatchModel(engine), tea.WithAltScreen()).Run()
	return err
}
