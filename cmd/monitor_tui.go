// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/railkit/cvscope/pkg/dccex"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for informational entries
}

// stationState is the last known state reported by the command station
type stationState struct {
	version     string
	hasPower    bool
	power       bool
	track       string
	lastCV      string
	lastUpdated time.Time
}

// TUI model
type monitorModel struct {
	connInfo      string
	statsInterval int
	errorsOnly    bool
	stats         *dccex.Statistics
	eventLog      []eventLogEntry
	maxLogEntries int
	synchronized  bool
	skippedBytes  uint64
	station       stationState
	closedErr     error
	width         int
	height        int
	quitting      bool
}

// Messages
type tickMsg time.Time
type syncMsg struct {
	skipped uint64
}
type connClosedMsg struct {
	err error
}

func initialMonitorModel(connInfo string, statsInterval int, errorsOnly bool) monitorModel {
	return monitorModel{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		errorsOnly:    errorsOnly,
		stats:         dccex.NewStatistics(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.addLogEntry("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case syncMsg:
		m.synchronized = true
		m.skippedBytes = msg.skipped
		if msg.skipped > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d bytes", msg.skipped), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case connClosedMsg:
		m.closedErr = msg.err
		m.addLogEntry(fmt.Sprintf("Connection closed: %v", msg.err), true)

	case stationEvent:
		m.handleEvent(msg)
	}

	return m, nil
}

func (m *monitorModel) handleEvent(e stationEvent) {
	m.stats.SetJunkBytes(e.junkBytes)
	if e.decodeErr != nil {
		m.stats.Update(nil, e.decodeErr)
		m.addLogEntry(fmt.Sprintf("FRAMING ERROR: %v", e.decodeErr), true)
		return
	}

	m.stats.Update(&e.reply, nil)
	m.station.lastUpdated = e.message.Timestamp()

	switch e.reply.Kind {
	case dccex.ReplyStatus:
		m.station.version = e.reply.Version
	case dccex.ReplyPower:
		m.station.hasPower = true
		m.station.power = e.reply.Power
		m.station.track = e.reply.Track
	case dccex.ReplyVariable:
		m.station.lastCV = e.reply.String()
	}

	if e.isProblem() {
		m.addLogEntry(fmt.Sprintf("%s %s", e.message, e.reply), true)
	} else if !m.errorsOnly {
		m.addLogEntry(fmt.Sprintf("%s %s", e.message, e.reply), false)
	}
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// Styles shared by the monitor and throttle views
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// renderEventLog renders the newest entries that fit into height lines
func renderEventLog(entries []eventLogEntry, height, width int) string {
	if height < 5 {
		height = 5
	}

	var content strings.Builder
	startIdx := len(entries) - height
	if startIdx < 0 {
		startIdx = 0
	}

	if len(entries) == 0 {
		content.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for _, entry := range entries[startIdx:] {
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				content.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				content.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	return boxStyle.Width(width - 4).Render(content.String())
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	mode := "All messages"
	if m.errorsOnly {
		mode = "Errors only"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("CVSCOPE - STATION MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | 'r' reset stats | 'q' quit", m.connInfo, mode)))
	s.WriteString("\n\n")

	switch {
	case m.closedErr != nil:
		s.WriteString(errorStyle.Render("✗ Connection closed"))
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
	default:
		s.WriteString(valueStyle.Render("✓ Synchronized"))
		if m.skippedBytes > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d bytes)", m.skippedBytes)))
		}
	}
	s.WriteString("\n\n")

	// Statistics
	m.stats.CalculateRates()
	st := m.stats

	var stats strings.Builder
	stats.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Messages:"), valueStyle.Render(fmt.Sprintf("%d", st.TotalMessages)),
		labelStyle.Render("Unknown:"), warningStyle.Render(fmt.Sprintf("%d", st.UnknownMessages)),
		labelStyle.Render("Framing Errors:"), errorStyle.Render(fmt.Sprintf("%d", st.FramingErrors)),
	))
	if st.JunkBytes > 0 || st.Diagnostics > 0 {
		stats.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			labelStyle.Render("Diagnostics:"), valueStyle.Render(fmt.Sprintf("%d", st.Diagnostics)),
			labelStyle.Render("Junk Bytes:"), warningStyle.Render(fmt.Sprintf("%d", st.JunkBytes)),
		))
	}
	stats.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Message Rate:"), valueStyle.Render(fmt.Sprintf("%.1f msgs/s", st.MessageRate)),
		labelStyle.Render("Error Rate:"), func() string {
			if st.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate))
			}
			return valueStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(stats.String()))
	s.WriteString("\n\n")

	// Station section (only shown once something was reported)
	if !m.station.lastUpdated.IsZero() {
		s.WriteString(labelStyle.Render("Command Station:"))
		s.WriteString("\n")

		var station strings.Builder
		if m.station.version != "" {
			station.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Version:"), valueStyle.Render(m.station.version)))
		}
		if m.station.hasPower {
			power := errorStyle.Render("OFF")
			if m.station.power {
				power = valueStyle.Render("ON")
			}
			if m.station.track != "" {
				power += headerStyle.Render(" " + m.station.track)
			}
			station.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Power:"), power))
		}
		if m.station.lastCV != "" {
			station.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Last CV:"), valueStyle.Render(m.station.lastCV)))
		}
		station.WriteString(fmt.Sprintf("%s %s",
			labelStyle.Render("Updated:"), headerStyle.Render(m.station.lastUpdated.Format("15:04:05.000"))))

		s.WriteString(boxStyle.Render(station.String()))
		s.WriteString("\n\n")
	}

	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	s.WriteString(renderEventLog(m.eventLog, m.height-18, m.width))

	return s.String()
}
