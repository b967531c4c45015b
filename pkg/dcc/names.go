// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dcc

import (
	"strconv"
	"strings"
)

// shortVariableNames shortens catalog names that are too long for tables
var shortVariableNames = map[ExtendedVariableIndex]string{
	CVAccelerationAdjustment: "AccelerationAdjust",
	CVDecelerationAdjustment: "DecelerationAdjust",
	CVExtendedAddressHigh:    "ExtendedAddrHigh",
	CVExtendedAddressLow:     "ExtendedAddrLow",
}

// subscript renders n with Unicode subscript digits
func subscript(n uint32) string {
	digits := strconv.FormatUint(uint64(n), 10)
	var b strings.Builder
	for _, d := range digits {
		b.WriteRune(0x2080 + d - '0')
	}
	return b.String()
}

// variableSuffix returns the subscripted page of v, or "" for unpaged variables
func variableSuffix(v ExtendedVariableIndex) string {
	base := v.VariableIndex()
	switch {
	case SpaceExtended.ContainsIndex(base):
		return subscript(uint32(v.ExtendedPage()))
	case SpaceSusi.ContainsIndex(base):
		return subscript(uint32(v.SusiPage()))
	}
	return ""
}

// VariableString renders the plain CV number of v with its page as subscript,
// e.g. "CV 257₂₅₅" for the RailCom manufacturer.
func VariableString(v ExtendedVariableIndex) string {
	return "CV\u202f" + strconv.Itoa(int(v.VariableIndex())) + variableSuffix(v)
}

// FullVariableName returns a descriptive name for v, or "" if none is known.
//
// Catalog names win. Otherwise the variable spaces are searched from the
// last to the first and the name is built from the space name and the offset
// of v within the space, e.g. "Susi1.1" or "Extended0₁₆".
func FullVariableName(v ExtendedVariableIndex) string {
	name, ok := shortVariableNames[v]
	if !ok {
		name = VehicleVariableName(v)
	}

	if strings.HasSuffix(name, "Begin") || strings.HasSuffix(name, "End") {
		name = ""
	}

	if name != "" {
		return name
	}

	base := ExtendedVariableIndex(v.VariableIndex())
	for i := len(VariableSpaces) - 1; i >= 0; i-- {
		space := VariableSpaces[i]
		r := space.Range()

		if r.Contains(v) {
			return spaceName(space) + strconv.FormatUint(uint64(v-r.First), 10)
		}
		if r.Contains(base) {
			return spaceName(space) + strconv.FormatUint(uint64(base-r.First), 10) + variableSuffix(v)
		}
	}

	return ""
}

// spaceName returns the space name ready for an offset to be appended
func spaceName(space VariableSpace) string {
	name := space.String()
	if last := name[len(name)-1]; last >= '0' && last <= '9' {
		name += "."
	}
	return name
}
