// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/railkit/cvscope/pkg/dccex"
)

// collectEvents runs a stationReader over input and returns everything it reported
func collectEvents(t *testing.T, input string) (events []stationEvent, syncs []uint64) {
	t.Helper()

	reader := &stationReader{
		conn:    strings.NewReader(input),
		decoder: dccex.NewDecoder(),
		onSync:  func(skipped uint64) { syncs = append(syncs, skipped) },
		onEvent: func(e stationEvent) { events = append(events, e) },
	}
	if err := reader.run(); !errors.Is(err, io.EOF) {
		t.Fatalf("run() error = %v, want EOF", err)
	}
	return events, syncs
}

func TestStationReader(t *testing.T) {
	events, syncs := collectEvents(t, "junk<p1>\n<r 1 3><r 1 -1><abc<X>")

	if len(syncs) != 1 || syncs[0] != 4 {
		t.Fatalf("syncs = %v, want [4]", syncs)
	}

	want := []struct {
		kind    dccex.ReplyKind
		err     bool
		problem bool
	}{
		{dccex.ReplyPower, false, false},
		{dccex.ReplyVariable, false, false},
		{dccex.ReplyVariable, false, true},
		{0, true, true},
		{dccex.ReplyRejected, false, true},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}

	for i, w := range want {
		e := events[i]
		if (e.decodeErr != nil) != w.err {
			t.Errorf("event %d: decodeErr = %v, want error %v", i, e.decodeErr, w.err)
		}
		if !w.err && e.reply.Kind != w.kind {
			t.Errorf("event %d: kind = %v, want %v", i, e.reply.Kind, w.kind)
		}
		if got := e.isProblem(); got != w.problem {
			t.Errorf("event %d: isProblem() = %v, want %v", i, got, w.problem)
		}
		if e.junkBytes != 4 {
			t.Errorf("event %d: junkBytes = %d, want 4", i, e.junkBytes)
		}
	}

	if !errors.Is(events[3].decodeErr, dccex.ErrUnterminatedMessage) {
		t.Errorf("framing error = %v, want ErrUnterminatedMessage", events[3].decodeErr)
	}
}

func TestStationReader_ErrorsBeforeSyncIgnored(t *testing.T) {
	events, syncs := collectEvents(t, "<ab<p0>")

	if len(syncs) != 1 || syncs[0] != 0 {
		t.Fatalf("syncs = %v, want [0]", syncs)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].reply.Kind != dccex.ReplyPower || events[0].reply.Power {
		t.Errorf("event = %v, want power off", events[0].reply)
	}
}

func TestStationReader_NoMessages(t *testing.T) {
	events, syncs := collectEvents(t, "garbage without frames")
	if len(events) != 0 || len(syncs) != 0 {
		t.Errorf("events = %d, syncs = %v, want none", len(events), syncs)
	}
}

func stationEventOf(text string) stationEvent {
	return stationEvent{message: dccex.NewMessage(text), reply: dccex.ParseReply(text)}
}

func TestMonitorModel_HandleEvent(t *testing.T) {
	m := initialMonitorModel("test", 10, false)

	for _, text := range []string{"iDCC-EX V-5.0.0 / MEGA", "p1 MAIN", "r 29 6", "X"} {
		updated, _ := m.Update(stationEventOf(text))
		m = updated.(monitorModel)
	}
	updated, _ := m.Update(stationEvent{decodeErr: fmt.Errorf("%w: dropped 2 bytes", dccex.ErrUnterminatedMessage)})
	m = updated.(monitorModel)

	if m.station.version != "DCC-EX V-5.0.0 / MEGA" {
		t.Errorf("version = %q", m.station.version)
	}
	if !m.station.hasPower || !m.station.power || m.station.track != "MAIN" {
		t.Errorf("power = %v/%v track %q, want on MAIN", m.station.hasPower, m.station.power, m.station.track)
	}
	if !strings.Contains(m.station.lastCV, "cv=29 value=6") {
		t.Errorf("lastCV = %q", m.station.lastCV)
	}
	if m.stats.TotalMessages != 4 || m.stats.FramingErrors != 1 {
		t.Errorf("stats = %d messages %d framing errors, want 4 and 1", m.stats.TotalMessages, m.stats.FramingErrors)
	}
	if len(m.eventLog) != 5 {
		t.Fatalf("event log has %d entries, want 5", len(m.eventLog))
	}

	errorEntries := 0
	for _, entry := range m.eventLog {
		if entry.isError {
			errorEntries++
		}
	}
	if errorEntries != 2 {
		t.Errorf("error entries = %d, want 2", errorEntries)
	}
}

func TestMonitorModel_ErrorsOnly(t *testing.T) {
	m := initialMonitorModel("test", 10, true)

	for _, text := range []string{"p1", "r 29 6", "r 29 -1", "bogus"} {
		updated, _ := m.Update(stationEventOf(text))
		m = updated.(monitorModel)
	}

	if len(m.eventLog) != 2 {
		t.Fatalf("event log has %d entries, want 2", len(m.eventLog))
	}
	for _, entry := range m.eventLog {
		if !entry.isError {
			t.Errorf("entry %q is not an error", entry.message)
		}
	}
}

func TestMonitorModel_LogLimit(t *testing.T) {
	m := initialMonitorModel("test", 10, false)
	for i := 0; i < m.maxLogEntries+20; i++ {
		m.addLogEntry(fmt.Sprintf("entry %d", i), false)
	}
	if len(m.eventLog) != m.maxLogEntries {
		t.Fatalf("event log has %d entries, want %d", len(m.eventLog), m.maxLogEntries)
	}
	if last := m.eventLog[len(m.eventLog)-1].message; last != fmt.Sprintf("entry %d", m.maxLogEntries+19) {
		t.Errorf("last entry = %q", last)
	}
}
