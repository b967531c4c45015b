// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/railkit/cvscope/pkg/dcc"
)

func TestSpeedRequest(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		steps     string
		direction dcc.Direction
		light     bool
		want      []byte
	}{
		{"126 forward", 64, "126", dcc.DirectionForward, false, []byte{0x03, 0x3f, 0xc0, 0xfc}},
		{"126 reverse", 64, "126", dcc.DirectionReverse, false, []byte{0x03, 0x3f, 0x40, 0x7c}},
		{"28 odd step", 17, "28", dcc.DirectionForward, false, []byte{0x03, 0x78, 0x7b}},
		{"14 with light", 8, "14", dcc.DirectionReverse, true, []byte{0x03, 0x58, 0x5b}},
		{"percent full", 100, "percent", dcc.DirectionForward, false, []byte{0x03, 0x3f, 0xff, 0xc3}},
		{"percent upper case", 100, "PERCENT", dcc.DirectionForward, false, []byte{0x03, 0x3f, 0xff, 0xc3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := speedRequest(3, tt.value, tt.steps, tt.direction, tt.light)
			if err != nil {
				t.Fatalf("speedRequest() error = %v", err)
			}
			if !bytes.Equal(req.Bytes(), tt.want) {
				t.Errorf("speedRequest() = % X, want % X", req.Bytes(), tt.want)
			}
		})
	}
}

func TestSpeedRequest_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		steps     string
		direction dcc.Direction
		light     bool
	}{
		{"unknown steps", 10, "64", dcc.DirectionForward, false},
		{"14 too fast", 16, "14", dcc.DirectionForward, false},
		{"28 too fast", 32, "28", dcc.DirectionForward, false},
		{"126 too fast", 128, "126", dcc.DirectionForward, false},
		{"percent too fast", 101, "percent", dcc.DirectionForward, false},
		{"negative", -1, "126", dcc.DirectionForward, false},
		{"light with 28 steps", 4, "28", dcc.DirectionForward, true},
		{"unknown direction", 4, "126", dcc.DirectionUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if req, err := speedRequest(3, tt.value, tt.steps, tt.direction, tt.light); err == nil {
				t.Errorf("speedRequest() = % X, want error", req.Bytes())
			}
		})
	}
}

func TestFunctionRequests(t *testing.T) {
	tests := []struct {
		name      string
		functions []dcc.Function
		on        bool
		want      [][]byte
	}{
		{"one group", []dcc.Function{0, 2}, true, [][]byte{{0x03, 0x92, 0x91}}},
		{"two groups", []dcc.Function{1, 13, 3}, true, [][]byte{
			{0x03, 0x85, 0x86},
			{0x03, 0xde, 0x01, 0xdc},
		}},
		{"off", []dcc.Function{1, 13}, false, [][]byte{
			{0x03, 0x80, 0x83},
			{0x03, 0xde, 0x00, 0xdd},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := functionRequests(3, tt.functions, tt.on)
			if len(got) != len(tt.want) {
				t.Fatalf("functionRequests() returned %d packets, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !bytes.Equal(got[i].Bytes(), tt.want[i]) {
					t.Errorf("packet %d = % X, want % X", i, got[i].Bytes(), tt.want[i])
				}
			}
		})
	}
}

func TestFormatRequestLine(t *testing.T) {
	line := formatRequestLine(dcc.SetSpeed126(3, 64, dcc.DirectionForward))
	for _, want := range []string{"SPEED_128", "03 3f c0 fc", "address=3"} {
		if !strings.Contains(line, want) {
			t.Errorf("formatRequestLine() = %q, missing %q", line, want)
		}
	}
}
