package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"optimg/internal/transcoder"
)

type Model struct {
	title      string
	updates    <-chan transcoder.ProgressUpdate
	interrupt  func()
	started    time.Time
	width      int
	total      int
	processed  int
	errors     int
	bytesSaved int64
	quitting   bool
}

type doneMsg struct{}

type updateMsg transcoder.ProgressUpdate

func NewModel(title string, updates <-chan transcoder.ProgressUpdate) Model {
	return Model{title: title, updates: updates, started: time.Now()}
}

// WithInterrupt sets the function called on ctrl+c. The model keeps
// draining updates until the producer closes the channel.
func (m Model) WithInterrupt(fn func()) Model {
	m.interrupt = fn
	return m
}

func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.total += msg.TotalDelta
		m.processed += msg.ProcessedDelta
		m.errors += msg.ErrorDelta
		m.bytesSaved += msg.BytesSavedDelta
		next := waitForUpdate(m.updates)
		if msg.Event != nil {
			return m, tea.Sequence(tea.Println(FormatEvent(*msg.Event)), next)
		}
		return m, next
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && m.interrupt != nil {
			m.interrupt()
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := 40
	if m.width > 0 {
		width = min(max(m.width-12, 20), 60)
	}
	done := 0.0
	if m.total > 0 {
		done = min(float64(m.processed)/float64(m.total), 1)
	}

	status := fmt.Sprintf("Images: %d/%d", m.processed, m.total)
	if m.errors > 0 {
		status += failStyle.Render(fmt.Sprintf("  %d failed", m.errors))
	}

	return strings.Join([]string{
		titleStyle.Render(m.title),
		progressBar(width, done) + dimStyle.Render(fmt.Sprintf(" %3.0f%%", done*100)),
		pathStyle.Render(status),
		dimStyle.Render(fmt.Sprintf("saved %s · %s elapsed", HumanBytes(m.bytesSaved), time.Since(m.started).Round(time.Second))),
	}, "\n")
}

// waitForUpdate turns the next progress update into a message; a closed
// channel ends the program.
func waitForUpdate(updates <-chan transcoder.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(u)
	}
}

func progressBar(width int, done float64) string {
	filled := min(max(int(math.Round(done*float64(width))), 0), width)
	return barFullStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	barFullStyle  = lipgloss.NewStyle().Foreground(ColorSuccess)
	barEmptyStyle = lipgloss.NewStyle().Foreground(ColorDim)
	dimStyle      = lipgloss.NewStyle().Foreground(ColorDim)
)
