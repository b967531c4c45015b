// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestProbeStation(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	go func() {
		buf := make([]byte, 16)
		if _, err := remote.Read(buf); err != nil {
			return
		}
		io.WriteString(remote, "<p1><iDCC-EX V-5.0.0 / MEGA / STANDARD_MOTOR_SHIELD G-3bddf4d>\n")
		io.Copy(io.Discard, remote)
	}()

	version, err := probeStation(local, time.Second)
	if err != nil {
		t.Fatalf("probeStation() error = %v", err)
	}
	if want := "DCC-EX V-5.0.0 / MEGA / STANDARD_MOTOR_SHIELD G-3bddf4d"; version != want {
		t.Errorf("version = %q, want %q", version, want)
	}
}

func TestProbeStation_Silent(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	go io.Copy(io.Discard, remote)

	_, err := probeStation(local, 50*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("probeStation() error = %v, want DeadlineExceeded", err)
	}
}
