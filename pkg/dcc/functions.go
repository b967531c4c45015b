// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dcc

import (
	"math/bits"
	"strconv"
	"strings"
)

// FunctionGroup identifies the block of functions sent in one function packet
type FunctionGroup uint8

const (
	FunctionGroupNone FunctionGroup = iota
	FunctionGroup1                  // F0..F4
	FunctionGroup2                  // F5..F8
	FunctionGroup3                  // F9..F12
	FunctionGroup4                  // F13..F20
	FunctionGroup5                  // F21..F28
	FunctionGroup6                  // F29..F36
	FunctionGroup7                  // F37..F44
	FunctionGroup8                  // F45..F52
	FunctionGroup9                  // F53..F60
	FunctionGroup10                 // F61..F68
)

// FunctionGroups lists all real groups in order
var FunctionGroups = []FunctionGroup{
	FunctionGroup1, FunctionGroup2, FunctionGroup3, FunctionGroup4, FunctionGroup5,
	FunctionGroup6, FunctionGroup7, FunctionGroup8, FunctionGroup9, FunctionGroup10,
}

// FunctionRangeAll covers every function
var FunctionRangeAll = MakeRange[Function](0, 68)

var functionGroupRanges = [...]Range[Function]{
	FunctionGroupNone: {0, 0},
	FunctionGroup1:    {0, 4},
	FunctionGroup2:    {5, 8},
	FunctionGroup3:    {9, 12},
	FunctionGroup4:    {13, 20},
	FunctionGroup5:    {21, 28},
	FunctionGroup6:    {29, 36},
	FunctionGroup7:    {37, 44},
	FunctionGroup8:    {45, 52},
	FunctionGroup9:    {53, 60},
	FunctionGroup10:   {61, 68},
}

// Range returns the functions of the group. FunctionGroupNone yields [0..0].
func (g FunctionGroup) Range() Range[Function] {
	if int(g) >= len(functionGroupRanges) {
		return functionGroupRanges[FunctionGroupNone]
	}
	return functionGroupRanges[g]
}

func (g FunctionGroup) String() string {
	if g == FunctionGroupNone || int(g) >= len(functionGroupRanges) {
		return "None"
	}
	return "Group" + strconv.Itoa(int(g))
}

// FunctionGroupOf returns the group owning fn, or FunctionGroupNone above F68.
func FunctionGroupOf(fn Function) FunctionGroup {
	for _, g := range FunctionGroups {
		if g.Range().Contains(fn) {
			return g
		}
	}
	return FunctionGroupNone
}

// functionBit returns the bit of fn within the mask of the group spanning r
func functionBit(r Range[Function], fn Function) uint8 {
	switch {
	case fn == 0:
		return 0x10
	case fn >= 1 && fn <= 4:
		return 1 << (fn - 1)
	default:
		return 1 << (fn - r.First)
	}
}

// FunctionState is the on/off state of F0..F68.
// It is a value type; use WithGroup or WithFunction to derive new states.
type FunctionState struct {
	bits [2]uint64
}

// Test reports whether fn is on.
func (s FunctionState) Test(fn Function) bool {
	if !fn.Valid() {
		return false
	}
	return s.bits[fn/64]&(1<<(fn%64)) != 0
}

// Count returns the number of functions switched on.
func (s FunctionState) Count() int {
	return bits.OnesCount64(s.bits[0]) + bits.OnesCount64(s.bits[1])
}

// FunctionMask returns the bits of the functions in r that are on in state,
// laid out as the function group packet expects: F0 is 0x10, F1..F4 are
// 0x01..0x08, any other function fn is 1 << (fn - r.First).
func FunctionMask(r Range[Function], state FunctionState) uint8 {
	var mask uint8
	for fn := range r.All() {
		if state.Test(fn) {
			mask |= functionBit(r, fn)
		}
	}
	return mask
}

// WithGroup returns a copy of s with the functions of group g taken from mask.
func (s FunctionState) WithGroup(g FunctionGroup, mask uint8) FunctionState {
	if g == FunctionGroupNone {
		return s
	}
	r := g.Range()
	for fn := range r.All() {
		word, bit := fn/64, uint64(1)<<(fn%64)
		if mask&functionBit(r, fn) != 0 {
			s.bits[word] |= bit
		} else {
			s.bits[word] &^= bit
		}
	}
	return s
}

// WithFunction returns a copy of s with fn switched on or off.
func (s FunctionState) WithFunction(fn Function, on bool) FunctionState {
	g := FunctionGroupOf(fn)
	if g == FunctionGroupNone {
		return s
	}
	mask := FunctionMask(g.Range(), s)
	if on {
		mask |= functionBit(g.Range(), fn)
	} else {
		mask &^= functionBit(g.Range(), fn)
	}
	return s.WithGroup(g, mask)
}

// FunctionStateOf returns a state with exactly the given functions on.
func FunctionStateOf(functions ...Function) FunctionState {
	var s FunctionState
	for _, fn := range functions {
		s = s.WithFunction(fn, true)
	}
	return s
}

// String lists the functions that are on, like "F0, F3".
func (s FunctionState) String() string {
	var names []string
	for fn := range FunctionRangeAll.All() {
		if s.Test(fn) {
			names = append(names, "F"+strconv.Itoa(int(fn)))
		}
	}
	return strings.Join(names, ", ")
}
