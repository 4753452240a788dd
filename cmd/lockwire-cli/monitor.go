package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lockwire/lockwire/internal/session"
)

// maxMonitorLines bounds the scrollback kept in memory
const maxMonitorLines = 500

// Monitor color palette
var (
	monPrimaryColor = lipgloss.Color("#7D56F4") // Purple
	monOKColor      = lipgloss.Color("#43BF6D") // Green
	monWarnColor    = lipgloss.Color("#FFA500") // Orange
	monErrorColor   = lipgloss.Color("#FF5555") // Red
	monSubtleColor  = lipgloss.Color("#626262") // Gray

	monTitleStyle = lipgloss.NewStyle().
			Foreground(monPrimaryColor).
			Bold(true).
			Padding(0, 1)

	monStatusStyle = lipgloss.NewStyle().
			Foreground(monSubtleColor).
			Padding(0, 1)

	monOKStyle    = lipgloss.NewStyle().Foreground(monOKColor)
	monWarnStyle  = lipgloss.NewStyle().Foreground(monWarnColor)
	monErrorStyle = lipgloss.NewStyle().Foreground(monErrorColor)
	monDimStyle   = lipgloss.NewStyle().Foreground(monSubtleColor)

	monHelpStyle = lipgloss.NewStyle().
			Foreground(monSubtleColor).
			Padding(1, 1, 0, 1)
)

// monitorCmd streams device events in a live TUI
var monitorCmd = &cobra.Command{
	Use:   "monitor <device>",
	Short: "Live event monitor for a key controller",
	Long: `Connect to a key controller and stream its events live.

Shows status reports, unlock logs, record-upload changes and connection
state as they happen. Useful while walking a site with the key in hand.`,
	Args: cobra.ExactArgs(1),
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	deviceID := args[0]
	eng, _, err := newEngine(deviceID)
	if err != nil {
		return err
	}

	m := newMonitorModel(deviceID, eng)
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(monitorModel); ok && fm.fatal != nil {
		return fm.fatal
	}
	return nil
}

// Messages

type connectedMsg struct{}
type connectFailedMsg struct{ err error }
type engineEventMsg struct{ ev session.Event }

// monitorModel is the bubbletea model for the live monitor
type monitorModel struct {
	deviceID string
	eng      *session.Engine

	spinner   spinner.Model
	connected bool
	fatal     error

	lines []string
	width int
}

func newMonitorModel(deviceID string, eng *session.Engine) monitorModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(monPrimaryColor)

	return monitorModel{
		deviceID: deviceID,
		eng:      eng,
		spinner:  sp,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.connect(), m.nextEvent())
}

// connect runs the transport connect + handshake off the UI loop
func (m monitorModel) connect() tea.Cmd {
	eng, deviceID := m.eng, m.deviceID
	return func() tea.Msg {
		if err := eng.Connect(context.Background(), deviceID); err != nil {
			return connectFailedMsg{err: err}
		}
		return connectedMsg{}
	}
}

// nextEvent blocks on the engine's event stream
func (m monitorModel) nextEvent() tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		ev, ok := <-eng.Events()
		if !ok {
			return nil
		}
		return engineEventMsg{ev: ev}
	}
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			_ = m.eng.Disconnect(m.deviceID)
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case connectedMsg:
		m.connected = true
		return m, nil

	case connectFailedMsg:
		m.fatal = msg.err
		return m, tea.Quit

	case engineEventMsg:
		m.append(formatEvent(msg.ev))
		if d, ok := msg.ev.(session.Disconnected); ok && d.Reason != nil {
			m.connected = false
		}
		return m, m.nextEvent()
	}

	return m, nil
}

func (m *monitorModel) append(line string) {
	if line == "" {
		return
	}
	stamp := monDimStyle.Render(time.Now().Format("15:04:05"))
	m.lines = append(m.lines, stamp+" "+line)
	if len(m.lines) > maxMonitorLines {
		m.lines = m.lines[len(m.lines)-maxMonitorLines:]
	}
}

// formatEvent renders one engine event as a monitor line. DataReceived
// is deliberately dropped: raw chunk traffic would drown everything.
func formatEvent(ev session.Event) string {
	switch e := ev.(type) {
	case session.Connected:
		return monOKStyle.Render("session established")
	case session.Disconnected:
		if e.Reason != nil {
			return monErrorStyle.Render(fmt.Sprintf("disconnected: %v", e.Reason))
		}
		return monDimStyle.Render("disconnected")
	case session.LockStatus:
		return monOKStyle.Render(e.Report.String())
	case session.UnlockLogged:
		verdict := "ok"
		if !e.Log.Success {
			verdict = "FAILED"
		}
		return fmt.Sprintf("unlock log: lock %s %s at %s",
			e.Log.LockID, verdict, e.Log.Timestamp.Format("15:04:05"))
	case session.DeviceInfoRead:
		return fmt.Sprintf("device info: fw %s, battery %d%%, %d locks",
			e.Info.Firmware, e.Info.Battery.Percent(), e.Info.LockCount)
	case session.RecordUploadChanged:
		return monWarnStyle.Render(fmt.Sprintf("record upload action 0x%02x", e.Action))
	case session.EngineError:
		return monErrorStyle.Render(fmt.Sprintf("error: %v", e.Err))
	case session.DeviceReport:
		return monDimStyle.Render(fmt.Sprintf("report op=0x%02x % x", e.Opcode, e.Payload))
	default:
		return ""
	}
}

func (m monitorModel) View() string {
	var b strings.Builder

	b.WriteString(monTitleStyle.Render("LOCKWIRE MONITOR — " + m.deviceID))
	b.WriteString("\n")

	if m.connected {
		b.WriteString(monStatusStyle.Render(monOKStyle.Render("● connected")))
	} else {
		b.WriteString(monStatusStyle.Render(m.spinner.View() + " connecting / authenticating..."))
	}
	b.WriteString("\n\n")

	if len(m.lines) == 0 {
		b.WriteString(monDimStyle.Render("  waiting for events..."))
		b.WriteString("\n")
	} else {
		for _, line := range m.lines {
			b.WriteString("  " + line + "\n")
		}
	}

	b.WriteString(monHelpStyle.Render("q: quit"))
	return b.String()
}
