// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package control

import "github.com/railkit/cvscope/pkg/dcc"

// VariableResult is the outcome of reading or writing a variable
type VariableResult = Result[dcc.VariableValue]

// VariableCallback receives the result of a variable access
type VariableCallback = Callback[dcc.VariableValue]

// VariableControl is implemented by command station links able to access
// decoder variables.
//
// Each call performs a single attempt and invokes done exactly once, possibly
// from another goroutine. Retries are left to Programmer.
type VariableControl interface {
	ReadVariable(address dcc.VehicleAddress, variable dcc.VariableIndex, done func(VariableResult))
	WriteVariable(address dcc.VehicleAddress, variable dcc.VariableIndex, value dcc.VariableValue, done func(VariableResult))
}

// State is the progress of a paged variable access
type State uint8

const (
	StateIdle State = iota
	StateSelectingPage
	StatePagedAccess
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSelectingPage:
		return "SelectingPage"
	case StatePagedAccess:
		return "PagedAccess"
	case StateSettled:
		return "Settled"
	default:
		return "Unknown"
	}
}
