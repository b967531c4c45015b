// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/railkit/cvscope/pkg/dcc"
	"github.com/railkit/cvscope/pkg/dccex"
	"github.com/spf13/cobra"
)

var (
	throttleAddress   int
	throttleSteps     string
	throttleFunctions int
)

var throttleCmd = &cobra.Command{
	Use:   "throttle",
	Short: "Interactive TUI for driving a vehicle",
	Long: `Drive a vehicle on the main track via an interactive terminal UI.

Every speed and function change is encoded as a DCC packet, shown with its
bytes and decoded fields, and sent to the command station with <M 0 ...>.

Features:
  - Speed in 14, 28 or 126 steps, direction, stop and emergency stop
  - Function toggles (F0..F68)
  - Track power
  - Station message statistics and event log
  - Automatic reconnection on connection loss

Tab switches between the address field, the speed panel and the function
list.

Supports both serial and WebSocket connections.`,
	RunE: runThrottle,
}

func init() {
	rootCmd.AddCommand(throttleCmd)
	throttleCmd.Flags().IntVarP(&throttleAddress, "address", "a", 3, "Initial vehicle address")
	throttleCmd.Flags().StringVar(&throttleSteps, "steps", "126", "Speed steps (14, 28, 126)")
	throttleCmd.Flags().IntVar(&throttleFunctions, "functions", 28, "Highest function shown in the function list")
}

//////////////////////////////////////////////////////////////
// Throttle state
//////////////////////////////////////////////////////////////

// stepModes lists the step modes in the order they are cycled through
var stepModes = []string{"14", "28", "126"}

// throttleState is what a throttle knows about the vehicle it drives.
// speed is the wire value in the current step mode.
type throttleState struct {
	address   dcc.VehicleAddress
	steps     string
	speed     int
	direction dcc.Direction
	functions dcc.FunctionState
}

func newThrottleState(address dcc.VehicleAddress, steps string) (throttleState, error) {
	valid := false
	for _, mode := range stepModes {
		valid = valid || mode == steps
	}
	if !valid {
		return throttleState{}, fmt.Errorf("invalid speed steps %q (expected 14, 28 or 126)", steps)
	}
	return throttleState{address: address, steps: steps, direction: dcc.DirectionForward}, nil
}

// maxSpeed returns the highest wire value of the step mode
func (s throttleState) maxSpeed() int {
	switch s.steps {
	case "14":
		return 15
	case "28":
		return 31
	}
	return 127
}

// minRunning returns the lowest wire value that moves the vehicle.
// In 28 step mode the values 1..3 are stop and emergency stop codes.
func (s throttleState) minRunning() int {
	if s.steps == "28" {
		return 4
	}
	return 2
}

// emergencyStopValue returns the wire value of an emergency stop
func (s throttleState) emergencyStopValue() int {
	if s.steps == "28" {
		return 2
	}
	return 1
}

func (s throttleState) running() bool {
	return s.speed >= s.minRunning()
}

// accelerate changes the speed by delta steps, skipping the stop codes
func (s throttleState) accelerate(delta int) throttleState {
	switch {
	case delta > 0 && !s.running():
		s.speed = s.minRunning() + delta - 1
	case delta < 0 && s.speed+delta < s.minRunning():
		s.speed = 0
	default:
		s.speed += delta
	}
	s.speed = min(s.speed, s.maxSpeed())
	return s
}

func (s throttleState) stop() throttleState {
	s.speed = 0
	return s
}

func (s throttleState) emergencyStop() throttleState {
	s.speed = s.emergencyStopValue()
	return s
}

func (s throttleState) flipDirection() throttleState {
	s.direction = s.direction.Flip()
	return s
}

// quantity wraps the current speed in its encoding
func (s throttleState) quantity() dcc.Speed {
	switch s.steps {
	case "14":
		return dcc.NewSpeed(dcc.Speed14(s.speed))
	case "28":
		return dcc.NewSpeed(dcc.Speed28(s.speed))
	}
	return dcc.NewSpeed(dcc.Speed126(s.speed))
}

// cycleSteps switches to the next step mode, keeping the speed fraction
func (s throttleState) cycleSteps() throttleState {
	speed := s.quantity()
	wasRunning := s.running()

	for i, mode := range stepModes {
		if mode == s.steps {
			s.steps = stepModes[(i+1)%len(stepModes)]
			break
		}
	}

	if !wasRunning {
		s.speed = 0
		return s
	}

	switch s.steps {
	case "14":
		s.speed = int(dcc.SpeedCast[dcc.Speed14](speed))
	case "28":
		s.speed = int(dcc.SpeedCast[dcc.Speed28](speed))
	default:
		s.speed = int(dcc.SpeedCast[dcc.Speed126](speed))
	}
	s.speed = max(s.speed, s.minRunning())
	return s
}

// speedRequest encodes the current speed. In 14 step mode F0 travels in the
// speed packet.
func (s throttleState) speedRequest() (dcc.Request, error) {
	light := s.steps == "14" && s.functions.Test(0)
	return speedRequest(s.address, s.speed, s.steps, s.direction, light)
}

// toggleFunction switches fn and returns the packet for its group
func (s throttleState) toggleFunction(fn dcc.Function) (throttleState, dcc.Request) {
	s.functions = s.functions.WithFunction(fn, !s.functions.Test(fn))
	g := dcc.FunctionGroupOf(fn)
	return s, dcc.SetFunctions(s.address, g, dcc.FunctionMask(g.Range(), s.functions))
}

// speedLabel renders the speed like "12/126 (9%)" or "STOP"
func (s throttleState) speedLabel() string {
	switch {
	case s.speed == 0 || (s.steps == "28" && s.speed == 1):
		return "STOP"
	case !s.running():
		return "EMERGENCY STOP"
	}
	percent := dcc.SpeedCast[dcc.SpeedPercentile](s.quantity())
	return fmt.Sprintf("%d/%d (%d%%)", s.speed, s.maxSpeed(), percent)
}

//////////////////////////////////////////////////////////////
// Connection
//////////////////////////////////////////////////////////////

// frameSender transmits packets to the command station
type frameSender interface {
	SendFrame(req dcc.Request) error
	SetPower(on bool) error
}

var errConnectionLost = errors.New("connection lost")

// connectionManager handles client lifecycle and reconnection
type connectionManager struct {
	mu       sync.RWMutex
	client   *dccex.Client
	connInfo string
	p        *tea.Program
	done     chan struct{}
}

func (cm *connectionManager) getClient() *dccex.Client {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.client
}

func (cm *connectionManager) setClient(client *dccex.Client, connInfo string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.client = client
	cm.connInfo = connInfo
}

func (cm *connectionManager) SendFrame(req dcc.Request) error {
	client := cm.getClient()
	if client == nil {
		return errConnectionLost
	}
	return client.SendFrame(req)
}

func (cm *connectionManager) SetPower(on bool) error {
	client := cm.getClient()
	if client == nil {
		return errConnectionLost
	}
	return client.SetPower(on)
}

// connect opens a client whose messages are forwarded to the TUI
func (cm *connectionManager) connect() error {
	client, connInfo, err := OpenClient(func(msg *dccex.Message, reply dccex.Reply) {
		cm.p.Send(stationEvent{message: msg, reply: reply})
	})
	if err != nil {
		return err
	}

	// Ask for the banner and power state
	if err := client.Send(dccex.StatusCommand()); err != nil {
		client.Close()
		return err
	}
	cm.setClient(client, connInfo)
	return nil
}

func (cm *connectionManager) info() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.connInfo
}

// watch reconnects whenever the connection is lost until shutdown
func (cm *connectionManager) watch() {
	cm.p.Send(connectedMsg{connInfo: cm.info()})

	for {
		client := cm.getClient()
		select {
		case <-cm.done:
			return
		case <-client.Done():
		}

		client.Close()
		cm.setClient(nil, "")
		cm.p.Send(connectionLostMsg{})

		if !cm.reconnect() {
			return // Shutdown requested during reconnect
		}
	}
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (cm *connectionManager) reconnect() bool {
	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		if err := cm.connect(); err == nil {
			cm.p.Send(connectedMsg{connInfo: cm.info(), reconnected: true})
			return true
		}

		// Exponential backoff
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (cm *connectionManager) close() {
	close(cm.done)
	if client := cm.getClient(); client != nil {
		client.Close()
	}
}

func runThrottle(cmd *cobra.Command, args []string) error {
	address, err := dcc.NewVehicleAddress(throttleAddress)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	state, err := newThrottleState(address, throttleSteps)
	if err != nil {
		return err
	}
	lastFunction, err := dcc.NewFunction(throttleFunctions)
	if err != nil {
		return fmt.Errorf("invalid --functions: %w", err)
	}

	cm := &connectionManager{done: make(chan struct{})}

	m := initialThrottleModel(cm, state, lastFunction)
	p := tea.NewProgram(m, tea.WithAltScreen())
	cm.p = p

	if err := cm.connect(); err != nil {
		return err
	}
	defer cm.close()
	go cm.watch()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
