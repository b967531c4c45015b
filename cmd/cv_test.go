// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"strings"
	"testing"

	"github.com/railkit/cvscope/pkg/dcc"
)

func TestDescribeVariable(t *testing.T) {
	tests := []struct {
		name     string
		variable dcc.ExtendedVariableIndex
		want     []string
	}{
		{"plain", dcc.CVConfiguration, []string{
			"Configuration",
			"Base CV:  29\n",
			"Page:     none\n",
		}},
		{"extended page", dcc.CVRailComManufacturer, []string{
			"RailComManufacturer",
			"Index:    0x0FF501\n",
			"Base CV:  257\n",
			"Page:     255 (CV31=0, CV32=255)\n",
		}},
		{"susi bank", dcc.CVSusi1ProductId, []string{
			"Susi1ProductId",
			"Base CV:  900\n",
			"Bank:     1 (CV1021=1, ",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describeVariable(tt.variable)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("describeVariable() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestVariableArgument_RoundTrip(t *testing.T) {
	variables := []dcc.ExtendedVariableIndex{
		dcc.CVBasicAddress,
		dcc.CVConfiguration,
		dcc.CVRailComManufacturer,
		dcc.CVRailComPlusIcon,
		dcc.CVSusi1ProductId,
		dcc.CVSusi1ManufacturerAlt,
		dcc.ExtendedVariable(300, 0x1234),
	}

	for _, v := range variables {
		arg := variableArgument(v)
		got, err := ParseVariable(arg)
		if err != nil {
			t.Errorf("ParseVariable(%q) error = %v", arg, err)
			continue
		}
		if got != v {
			t.Errorf("ParseVariable(variableArgument(0x%X)) = 0x%X via %q", v, got, arg)
		}
	}
}

func TestFormatVariableSpaces(t *testing.T) {
	got := formatVariableSpaces()
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != len(dcc.VariableSpaces)+1 {
		t.Fatalf("got %d lines, want header plus %d spaces", len(lines), len(dcc.VariableSpaces))
	}
	if !strings.HasPrefix(lines[0], "SPACE") {
		t.Errorf("header = %q", lines[0])
	}
}
