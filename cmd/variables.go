// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/railkit/cvscope/pkg/dcc"
)

const variableSyntax = `Variables:
  N        plain CV (1..1024), e.g. 29
  N:P      CV N on extended page P, e.g. 257:255 or 0:255
  N:A.B    CV N with CV31=A and CV32=B, e.g. 257:0.255
  N@S      CV N in SUSI bank S, e.g. 900@1
  0x...    raw extended variable index, e.g. 0xFF501`

// parseNumber accepts decimal, 0x hex and 0b binary
func parseNumber(s string, bits int) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(s), 0, bits)
}

func parseBaseVariable(s string, minimum uint64) (dcc.VariableIndex, error) {
	n, err := parseNumber(s, 16)
	if err != nil || n < minimum || n > uint64(dcc.VariableIndexBounds.Max) {
		return 0, fmt.Errorf("invalid variable %q (expected %d..%d)", s, minimum, dcc.VariableIndexBounds.Max)
	}
	return dcc.VariableIndex(n), nil
}

// ParseVariable parses a variable argument into an extended variable index
func ParseVariable(arg string) (dcc.ExtendedVariableIndex, error) {
	s := strings.TrimSpace(arg)
	lower := strings.ToLower(s)

	switch {
	case strings.HasPrefix(lower, "0x") && !strings.ContainsAny(s, ":@"):
		n, err := parseNumber(s, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid variable index %q: %w", arg, err)
		}
		return dcc.ExtendedVariableIndex(n), nil

	case strings.Contains(s, "@"):
		base, bank, _ := strings.Cut(s, "@")
		variable, err := parseBaseVariable(base, 1)
		if err != nil {
			return 0, err
		}
		page, err := parseNumber(bank, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid SUSI bank %q (expected 0..255)", bank)
		}
		return dcc.SusiVariable(variable, dcc.SusiPageIndex(page)), nil

	case strings.Contains(s, ":"):
		base, pageText, _ := strings.Cut(s, ":")
		variable, err := parseBaseVariable(base, 0)
		if err != nil {
			return 0, err
		}

		if high, low, ok := strings.Cut(pageText, "."); ok {
			cv31, err := parseNumber(high, 8)
			if err != nil {
				return 0, fmt.Errorf("invalid CV31 value %q (expected 0..255)", high)
			}
			cv32, err := parseNumber(low, 8)
			if err != nil {
				return 0, fmt.Errorf("invalid CV32 value %q (expected 0..255)", low)
			}
			return dcc.ExtendedVariableOf(variable, dcc.VariableValue(cv31), dcc.VariableValue(cv32)), nil
		}

		page, err := parseNumber(pageText, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid extended page %q (expected 0..65535)", pageText)
		}
		return dcc.ExtendedVariable(variable, dcc.ExtendedPageIndex(page)), nil
	}

	variable, err := parseBaseVariable(s, 1)
	if err != nil {
		return 0, err
	}
	return dcc.ExtendedVariableIndex(variable), nil
}

// ParseVariables parses every argument, stopping at the first invalid one
func ParseVariables(args []string) ([]dcc.ExtendedVariableIndex, error) {
	variables := make([]dcc.ExtendedVariableIndex, 0, len(args))
	for _, arg := range args {
		v, err := ParseVariable(arg)
		if err != nil {
			return nil, err
		}
		variables = append(variables, v)
	}
	return variables, nil
}

// ParseValue parses a variable value in decimal, hex or binary
func ParseValue(arg string) (dcc.VariableValue, error) {
	n, err := parseNumber(arg, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q (expected 0..255)", arg)
	}
	return dcc.VariableValue(n), nil
}

// ParseAddress parses a vehicle address
func ParseAddress(arg string) (dcc.VehicleAddress, error) {
	n, err := parseNumber(arg, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", arg)
	}
	address, err := dcc.NewVehicleAddress(int(n))
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", arg, err)
	}
	return address, nil
}
