// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/railkit/cvscope/pkg/dcc"
	"github.com/railkit/cvscope/pkg/dccex"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	refreshIntervalSeconds = 2 // Resend the speed packet every N seconds
	fastSpeedDelta         = 10
)

// Focus states
const (
	focusAddress = iota
	focusSpeed
	focusFunctions
	focusCount
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// functionItem is one row of the function list
type functionItem struct {
	fn dcc.Function
	on bool
}

// Implement list.Item interface
func (f functionItem) Title() string {
	if f.on {
		return fmt.Sprintf("F%-2d ● on", f.fn)
	}
	return fmt.Sprintf("F%-2d ○ off", f.fn)
}
func (f functionItem) Description() string { return dcc.FunctionGroupOf(f.fn).String() }
func (f functionItem) FilterValue() string { return fmt.Sprintf("F%d", f.fn) }

// throttleModel is the Bubble Tea model for the throttle TUI
type throttleModel struct {
	sender         frameSender
	connInfo       string
	connectionLost bool

	state        throttleState
	addressInput textinput.Model
	functionList list.Model
	focusedField int

	// Last transmitted packet
	lastFrame     dcc.Request
	lastFrameTime time.Time
	lastRefresh   time.Time

	// Station
	stats         *dccex.Statistics
	version       string
	hasPower      bool
	power         bool
	eventLog      []eventLogEntry
	maxLogEntries int

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type throttleTickMsg time.Time

type connectionLostMsg struct{}

type connectedMsg struct {
	connInfo    string
	reconnected bool
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialThrottleModel(sender frameSender, state throttleState, lastFunction dcc.Function) throttleModel {
	ti := textinput.New()
	ti.Placeholder = "3"
	ti.CharLimit = 5
	ti.Width = 8
	ti.SetValue(fmt.Sprintf("%d", state.address))

	items := make([]list.Item, 0, int(lastFunction)+1)
	for fn := range dcc.MakeRange[dcc.Function](0, lastFunction).All() {
		items = append(items, functionItem{fn: fn})
	}
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	functionList := list.New(items, delegate, 24, 12)
	functionList.Title = "Functions"
	functionList.SetShowStatusBar(false)
	functionList.SetShowHelp(false)
	functionList.SetFilteringEnabled(false)

	return throttleModel{
		sender:         sender,
		connectionLost: true,
		state:          state,
		addressInput:   ti,
		functionList:   functionList,
		focusedField:   focusSpeed,
		stats:          dccex.NewStatistics(),
		eventLog:       make([]eventLogEntry, 0),
		maxLogEntries:  100,
		width:          80,
		height:         24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m throttleModel) Init() tea.Cmd {
	return throttleTickCmd()
}

func throttleTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return throttleTickMsg(t)
	})
}

func (m throttleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.functionList.SetHeight(max(m.height-16, 6))

	case throttleTickMsg:
		m.stats.CalculateRates()
		// Keep the vehicle moving: command stations forget raw packets
		if !m.connectionLost && m.state.running() &&
			time.Since(m.lastRefresh) >= refreshIntervalSeconds*time.Second {
			m.sendSpeed(false)
		}
		return m, throttleTickCmd()

	case connectionLostMsg:
		m.connectionLost = true
		m.addLogEntry("Connection lost - reconnecting...", true)

	case connectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		if msg.reconnected {
			m.addLogEntry("Reconnected", false)
			m.sendSpeed(true)
		} else {
			m.addLogEntry(fmt.Sprintf("Connected: %s", msg.connInfo), false)
		}

	case stationEvent:
		m.handleStationEvent(msg)
	}

	return m, nil
}

func (m *throttleModel) handleStationEvent(e stationEvent) {
	if e.decodeErr != nil {
		m.stats.Update(nil, e.decodeErr)
		return
	}
	m.stats.Update(&e.reply, nil)

	switch e.reply.Kind {
	case dccex.ReplyStatus:
		m.version = e.reply.Version
	case dccex.ReplyPower:
		m.hasPower = true
		m.power = e.reply.Power
		m.addLogEntry(fmt.Sprintf("Station: %s", e.reply), false)
	case dccex.ReplyRejected, dccex.ReplyUnknown:
		m.addLogEntry(fmt.Sprintf("Station: %s %s", e.message, e.reply), true)
	case dccex.ReplyDiagnostic:
		m.addLogEntry(fmt.Sprintf("Station: %s", e.reply.Note), false)
	}
}

func (m throttleModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		return m.cycleFocus(1), nil
	case "shift+tab":
		return m.cycleFocus(-1), nil
	}

	if m.focusedField == focusAddress {
		if key == "enter" {
			m.applyAddress()
			return m.cycleFocus(1), nil
		}
		var cmd tea.Cmd
		m.addressInput, cmd = m.addressInput.Update(msg)
		return m, cmd
	}

	switch key {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "p":
		m.togglePower()
		return m, nil
	case "l":
		m.toggleFunction(0)
		return m, nil
	case " ", "s", "0":
		m.state = m.state.stop()
		m.sendSpeed(true)
		return m, nil
	case "x", "e":
		m.state = m.state.emergencyStop()
		m.sendSpeed(true)
		return m, nil
	}

	if m.focusedField == focusFunctions {
		if key == "enter" {
			if item, ok := m.functionList.SelectedItem().(functionItem); ok {
				m.toggleFunction(item.fn)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.functionList, cmd = m.functionList.Update(msg)
		return m, cmd
	}

	switch key {
	case "up", "k", "+", "right":
		m.state = m.state.accelerate(1)
		m.sendSpeed(true)
	case "down", "j", "-", "left":
		m.state = m.state.accelerate(-1)
		m.sendSpeed(true)
	case "pgup":
		m.state = m.state.accelerate(fastSpeedDelta)
		m.sendSpeed(true)
	case "pgdown":
		m.state = m.state.accelerate(-fastSpeedDelta)
		m.sendSpeed(true)
	case "r", "d":
		m.state = m.state.flipDirection()
		m.sendSpeed(true)
	case "m":
		m.state = m.state.cycleSteps()
		m.addLogEntry(fmt.Sprintf("Speed steps: %s", m.state.steps), false)
		m.sendSpeed(true)
	}

	return m, nil
}

func (m throttleModel) cycleFocus(delta int) throttleModel {
	m.focusedField = (m.focusedField + delta + focusCount) % focusCount
	if m.focusedField == focusAddress {
		m.addressInput.Focus()
	} else {
		m.addressInput.Blur()
	}
	return m
}

// applyAddress takes over the address typed into the address field
func (m *throttleModel) applyAddress() {
	address, err := ParseAddress(m.addressInput.Value())
	if err != nil {
		m.addLogEntry(err.Error(), true)
		m.addressInput.SetValue(fmt.Sprintf("%d", m.state.address))
		return
	}
	if address == m.state.address {
		return
	}

	// Stop the old vehicle before taking over the new one
	if m.state.speed != 0 {
		m.state = m.state.stop()
		m.sendSpeed(true)
	}

	m.state.address = address
	m.state.functions = dcc.FunctionState{}
	m.syncFunctionList()
	m.addLogEntry(fmt.Sprintf("Driving address %d", address), false)
}

func (m *throttleModel) toggleFunction(fn dcc.Function) {
	var req dcc.Request
	m.state, req = m.state.toggleFunction(fn)
	m.syncFunctionList()
	m.send(req, true)
	if fn == 0 && m.state.steps == "14" {
		m.sendSpeed(false)
	}
}

// syncFunctionList updates the list rows from the function state
func (m *throttleModel) syncFunctionList() {
	for i, item := range m.functionList.Items() {
		fi, ok := item.(functionItem)
		if !ok {
			continue
		}
		fi.on = m.state.functions.Test(fi.fn)
		m.functionList.SetItem(i, fi)
	}
}

func (m *throttleModel) togglePower() {
	on := !(m.hasPower && m.power)
	if m.connectionLost {
		m.addLogEntry("Cannot switch power: connection lost", true)
		return
	}
	if err := m.sender.SetPower(on); err != nil {
		m.addLogEntry(fmt.Sprintf("Power command failed: %v", err), true)
		return
	}
	if on {
		m.addLogEntry("Requested track power on", false)
	} else {
		m.addLogEntry("Requested track power off", false)
	}
}

func (m *throttleModel) sendSpeed(logged bool) {
	req, err := m.state.speedRequest()
	if err != nil {
		m.addLogEntry(err.Error(), true)
		return
	}
	m.lastRefresh = time.Now()
	m.send(req, logged)
}

// send transmits req and remembers it for display
func (m *throttleModel) send(req dcc.Request, logged bool) {
	if !req.Valid() {
		m.addLogEntry("Packet could not be encoded", true)
		return
	}
	if m.connectionLost {
		m.addLogEntry("Cannot send packet: connection lost", true)
		return
	}
	if err := m.sender.SendFrame(req); err != nil {
		m.addLogEntry(fmt.Sprintf("Send failed: %v", err), true)
		return
	}

	m.lastFrame = req
	m.lastFrameTime = time.Now()
	if logged {
		m.addLogEntry(fmt.Sprintf("%s %s", dcc.FormatRequestType(req), dcc.FormatHex(req.Bytes())), false)
	}
}

func (m *throttleModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

var (
	focusedBoxStyle = boxStyle.
			BorderForeground(lipgloss.Color("12"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("12")).
			Padding(0, 2)

	activeButtonStyle = buttonStyle.
				Background(lipgloss.Color("10"))
)

func (m throttleModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("CVSCOPE THROTTLE"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | Tab=switch ↑↓=speed r=direction m=steps s=stop x=e-stop p=power q=quit", connStatus)))
	s.WriteString("\n")
	if m.version != "" {
		s.WriteString(fmt.Sprintf(" %s %s", labelStyle.Render("Station:"), valueStyle.Render(m.version)))
	}
	s.WriteString("\n\n")

	// Layout: left panel (functions) | right panel (throttle)
	leftWidth := 24
	rightWidth := max(m.width-leftWidth-6, 30)

	listStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusFunctions {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	functionPanel := listStyle.Render(m.functionList.View())

	throttleStyle := boxStyle.Width(rightWidth)
	if m.focusedField == focusSpeed || m.focusedField == focusAddress {
		throttleStyle = focusedBoxStyle.Width(rightWidth)
	}
	throttlePanel := throttleStyle.Render(m.renderThrottlePanel())

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, functionPanel, " ", throttlePanel))
	s.WriteString("\n\n")

	s.WriteString(m.renderStatisticsBar())
	s.WriteString("\n\n")

	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	s.WriteString(renderEventLog(m.eventLog, m.height-m.functionList.Height()-14, m.width))

	return s.String()
}

func (m throttleModel) renderThrottlePanel() string {
	var s strings.Builder

	// Address field
	s.WriteString(labelStyle.Render("Address: "))
	if m.focusedField == focusAddress {
		s.WriteString(m.addressInput.View())
	} else {
		s.WriteString(fmt.Sprintf("[%d]", m.state.address))
	}
	s.WriteString("\n\n")

	// Speed and direction
	speedText := m.state.speedLabel()
	if m.state.running() {
		s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Speed:"), valueStyle.Render(speedText)))
	} else {
		s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Speed:"), warningStyle.Render(speedText)))
	}
	s.WriteString(fmt.Sprintf("%s %s steps\n", labelStyle.Render("Mode:"), valueStyle.Render(m.state.steps)))
	s.WriteString(renderSpeedBar(m.state, 30))
	s.WriteString("\n\n")

	forward, reverse := buttonStyle, buttonStyle
	if m.state.direction == dcc.DirectionForward {
		forward = activeButtonStyle
	} else {
		reverse = activeButtonStyle
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, reverse.Render("◀ REV"), " ", forward.Render("FWD ▶")))
	s.WriteString("\n\n")

	// Power
	power := headerStyle.Render("unknown")
	if m.hasPower {
		power = errorStyle.Render("OFF")
		if m.power {
			power = valueStyle.Render("ON")
		}
	}
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Track Power:"), power))

	if fns := m.state.functions.String(); fns != "" {
		s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Functions:"), valueStyle.Render(fns)))
	}
	s.WriteString("\n")

	// Last packet
	s.WriteString(labelStyle.Render("Last Packet:"))
	s.WriteString("\n")
	if !m.lastFrame.Valid() {
		s.WriteString(headerStyle.Render("  (nothing sent yet)"))
	} else {
		s.WriteString(fmt.Sprintf("  %s %s\n", valueStyle.Render(dcc.FormatRequestType(m.lastFrame)),
			headerStyle.Render(m.lastFrameTime.Format("15:04:05.000"))))
		s.WriteString(fmt.Sprintf("  %s\n", dcc.FormatHex(m.lastFrame.Bytes())))
		s.WriteString(fmt.Sprintf("  %s", headerStyle.Render(dcc.FormatRequest(m.lastFrame))))
	}

	return s.String()
}

// renderSpeedBar draws the speed as a bar of width cells
func renderSpeedBar(state throttleState, width int) string {
	filled := 0
	if state.running() {
		filled = (state.speed*width + state.maxSpeed() - 1) / state.maxSpeed()
	}
	return "[" + valueStyle.Render(strings.Repeat("█", filled)) + strings.Repeat("░", width-filled) + "]"
}

func (m throttleModel) renderStatisticsBar() string {
	st := m.stats
	errors := st.UnknownMessages + st.FramingErrors
	errStr := valueStyle.Render(fmt.Sprintf("%d", errors))
	if errors > 0 {
		errStr = errorStyle.Render(fmt.Sprintf("%d", errors))
	}
	return boxStyle.Render(fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("Messages:"), valueStyle.Render(fmt.Sprintf("%d", st.TotalMessages)),
		labelStyle.Render("Errors:"), errStr,
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f msgs/s", st.MessageRate)),
	))
}
