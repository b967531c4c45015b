// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/railkit/cvscope/pkg/dccex"
	"github.com/spf13/cobra"
)

var (
	errorsOnly    bool
	statsInterval int
	useTUI        bool
	requestStatus bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display the command station message log",
	Long: `Continuously decode and display DCC-EX messages as they arrive.

Each message is shown with its timestamp, raw text and decoded reply:
  - CV results (<r cv value>), including failed accesses
  - Status banner (<iDCC-EX ...>) and track power (<p0>, <p1>)
  - Rejected commands (<X>) and diagnostics (<* ... *>)
  - Framing errors (unterminated or oversized messages)

Framing errors are ignored until the first complete message has been seen.
Periodic statistics summaries are displayed at a configurable interval.

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&errorsOnly, "errors-only", false, "Only show failures, rejections, unknown messages and framing errors")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", false, "Use terminal UI")
	monitorCmd.Flags().BoolVar(&requestStatus, "status", true, "Request the status banner on connect")
}

// stationEvent is a decoded message or a framing error
type stationEvent struct {
	message   *dccex.Message
	reply     dccex.Reply
	decodeErr error
	junkBytes uint64
}

// isProblem reports whether an event is shown with --errors-only
func (e stationEvent) isProblem() bool {
	if e.decodeErr != nil {
		return true
	}
	switch e.reply.Kind {
	case dccex.ReplyUnknown, dccex.ReplyRejected:
		return true
	}
	return e.reply.Failed()
}

// stationReader decodes the connection into events until it fails. Framing
// errors seen before the first complete message are only counted.
type stationReader struct {
	conn    io.Reader
	decoder *dccex.Decoder

	synchronized bool
	onSync       func(skipped uint64)
	onEvent      func(stationEvent)
}

func (r *stationReader) run() error {
	buf := make([]byte, 128)
	for {
		n, err := r.conn.Read(buf)
		for _, b := range buf[:n] {
			r.decodeByte(b)
		}
		if err != nil {
			return err
		}
	}
}

func (r *stationReader) decodeByte(b byte) {
	msg, err := r.decoder.DecodeByte(b)
	if err != nil {
		if r.synchronized {
			r.onEvent(stationEvent{decodeErr: err, junkBytes: r.decoder.JunkBytes()})
		}
		return
	}
	if msg == nil {
		return
	}

	if !r.synchronized {
		// First message, we're now synchronized
		r.synchronized = true
		r.onSync(r.decoder.JunkBytes())
	}
	r.onEvent(stationEvent{
		message:   msg,
		reply:     dccex.ParseReply(msg.Text()),
		junkBytes: r.decoder.JunkBytes(),
	})
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(settings.Connection)
	if err != nil {
		return err
	}
	defer conn.Close()

	if requestStatus {
		if _, err := io.WriteString(conn, dccex.StatusCommand()); err != nil {
			return fmt.Errorf("failed to request status: %w", err)
		}
	}

	if useTUI {
		return runMonitorTUI(conn, connInfo)
	}
	return runMonitorText(conn, connInfo)
}

// printEvent prints a message or framing error
func printEvent(e stationEvent) {
	if e.decodeErr != nil {
		timestamp := time.Now().Format("15:04:05.000")
		fmt.Printf("[%s] \033[1;31mFRAMING ERROR:\033[0m %v\n", timestamp, e.decodeErr)
		return
	}

	timestamp := e.message.Timestamp().Format("15:04:05.000")
	switch {
	case e.reply.Kind == dccex.ReplyRejected || e.reply.Failed():
		fmt.Printf("[%s] %s \033[1;31m%s\033[0m\n", timestamp, e.message, e.reply)
	case e.reply.Kind == dccex.ReplyUnknown:
		fmt.Printf("[%s] %s \033[1;33m%s\033[0m\n", timestamp, e.message, e.reply)
	case e.reply.Kind == dccex.ReplyStatus || e.reply.Kind == dccex.ReplyPower:
		fmt.Printf("[%s] %s \033[1;32m%s\033[0m\n", timestamp, e.message, e.reply)
	default:
		fmt.Printf("[%s] %s %s\n", timestamp, e.message, e.reply)
	}
}

func runMonitorText(conn Connection, connInfo string) error {
	fmt.Printf("cvscope - Station Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if errorsOnly {
		fmt.Printf("Mode: Errors only\n")
	} else {
		fmt.Printf("Mode: All messages\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := dccex.NewStatistics()

	events := make(chan stationEvent, 16)
	readErr := make(chan error, 1)
	reader := &stationReader{
		conn:    conn,
		decoder: dccex.NewDecoder(),
		onSync: func(skipped uint64) {
			if skipped > 0 {
				fmt.Printf("[SYNC] Synchronized after skipping %d bytes\n\n", skipped)
			} else {
				fmt.Printf("[SYNC] Synchronized\n\n")
			}
		},
		onEvent: func(e stationEvent) { events <- e },
	}
	go func() { readErr <- reader.run() }()

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case e := <-events:
			if e.decodeErr != nil {
				stats.Update(nil, e.decodeErr)
			} else {
				stats.Update(&e.reply, nil)
			}
			stats.SetJunkBytes(e.junkBytes)

			if !errorsOnly || e.isProblem() {
				printEvent(e)
			}

		case err := <-readErr:
			for len(events) > 0 {
				if e := <-events; !errorsOnly || e.isProblem() {
					printEvent(e)
				}
			}

			// For WebSocket connections, a read error usually means
			// the connection is permanently closed - exit gracefully
			if errors.Is(err, ErrConnectionClosed) {
				log.Printf("Connection closed")
				fmt.Println()
				fmt.Print(stats.String())
				return nil
			}
			return fmt.Errorf("read error: %w", err)

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}

// runMonitorTUI runs the monitor in TUI mode
func runMonitorTUI(conn Connection, connInfo string) error {
	m := initialMonitorModel(connInfo, statsInterval, errorsOnly)
	p := tea.NewProgram(m, tea.WithAltScreen())

	reader := &stationReader{
		conn:    conn,
		decoder: dccex.NewDecoder(),
		onSync:  func(skipped uint64) { p.Send(syncMsg{skipped: skipped}) },
		onEvent: func(e stationEvent) { p.Send(e) },
	}
	go func() {
		p.Send(connClosedMsg{err: reader.run()})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
