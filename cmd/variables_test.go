// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"testing"

	"github.com/railkit/cvscope/pkg/dcc"
)

func TestParseVariable(t *testing.T) {
	tests := []struct {
		arg  string
		want dcc.ExtendedVariableIndex
	}{
		{"29", dcc.CVConfiguration},
		{"1024", 1024},
		{"257:255", dcc.CVRailComManufacturer},
		{"0:255", dcc.CVRailComManufacturer},
		{"257:0.255", dcc.CVRailComManufacturer},
		{"0x0FF501", dcc.CVRailComManufacturer},
		{"0xff501", dcc.CVRailComManufacturer},
		{"0:256", dcc.CVRailComPlusIcon},
		{"900@1", dcc.CVSusi1ProductId},
		{"900@0xFE", dcc.CVSusi1ManufacturerAlt},
		{"261:0x100", dcc.ExtendedVariable(261, 256)},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := ParseVariable(tt.arg)
			if err != nil {
				t.Fatalf("ParseVariable(%q) error = %v", tt.arg, err)
			}
			if got != tt.want {
				t.Errorf("ParseVariable(%q) = 0x%X, want 0x%X", tt.arg, got, tt.want)
			}
		})
	}
}

func TestParseVariable_Invalid(t *testing.T) {
	for _, arg := range []string{"", "0", "1025", "abc", "29:", "29:70000", "29:1.300", "0@1", "900@256", "0xZZ", "-1"} {
		if v, err := ParseVariable(arg); err == nil {
			t.Errorf("ParseVariable(%q) = 0x%X, want error", arg, v)
		}
	}
}

func TestParseVariables(t *testing.T) {
	got, err := ParseVariables([]string{"1", "8", "257:255"})
	if err != nil {
		t.Fatalf("ParseVariables() error = %v", err)
	}
	want := []dcc.ExtendedVariableIndex{dcc.CVBasicAddress, dcc.CVManufacturer, dcc.CVRailComManufacturer}
	if len(got) != len(want) {
		t.Fatalf("ParseVariables() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParseVariables()[%d] = 0x%X, want 0x%X", i, got[i], want[i])
		}
	}

	if _, err := ParseVariables([]string{"1", "x"}); err == nil {
		t.Error("ParseVariables() should fail on an invalid argument")
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		arg  string
		want dcc.VariableValue
	}{
		{"0", 0},
		{"255", 255},
		{"0x33", 0x33},
		{"0b00000110", 6},
	}

	for _, tt := range tests {
		got, err := ParseValue(tt.arg)
		if err != nil || got != tt.want {
			t.Errorf("ParseValue(%q) = %d, %v, want %d", tt.arg, got, err, tt.want)
		}
	}

	if _, err := ParseValue("256"); err == nil {
		t.Error("ParseValue(256) should fail")
	}
}

func TestParseAddress(t *testing.T) {
	if got, err := ParseAddress("830"); err != nil || got != 830 {
		t.Errorf("ParseAddress(830) = %d, %v", got, err)
	}
	if _, err := ParseAddress("10240"); !errors.Is(err, dcc.ErrOutOfRange) {
		t.Errorf("ParseAddress(10240) error = %v, want ErrOutOfRange", err)
	}
	if _, err := ParseAddress("loco"); err == nil {
		t.Error("ParseAddress(loco) should fail")
	}
}
