// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dcc

import (
	"fmt"
	"strings"
)

// FormatRequest renders r for debug output.
//
// Single instruction packets show the 3 bit command and 5 bit argument
// ("address=3, command=0b011, args=0b01000"), longer packets the full
// instruction byte and the remaining bytes in hex.
func FormatRequest(r Request) string {
	if !r.Valid() {
		return "invalid"
	}

	start := 1
	if r.HasExtendedAddress() {
		start = 2
	}

	result := fmt.Sprintf("address=%d", r.Address())

	if len(r)-start == 2 {
		b := r[start]
		result += fmt.Sprintf(", command=0b%03b, args=0b%05b", b>>5&0x07, b&0x1f)
		return result
	}

	if start >= len(r)-1 {
		return result
	}

	args := r[start+1 : len(r)-1]
	result += fmt.Sprintf(", command=0b%08b, args=%s", r[start], FormatHex(args))
	return result
}

// FormatHex renders bytes as space separated lowercase hex
func FormatHex(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, " ")
}

// FormatRequestType names the kind of packet r is
func FormatRequestType(r Request) string {
	payload := r.Payload()
	if len(payload) == 0 {
		return "INVALID"
	}
	if r[0] == 0 && len(r) == 3 && r[1] == 0 {
		return "RESET"
	}

	if len(r) == 4 && r[0]&0xf0 == 0x70 {
		// Service mode packets share their layout with short addresses 112..127
		switch r[0] & 0x7c {
		case cmdVerifyBit:
			return "VERIFY_BIT"
		case cmdVerifyByte:
			return "VERIFY_BYTE"
		case cmdWriteByte:
			return "WRITE_BYTE"
		}
	}

	b := payload[0]
	switch {
	case b == cmdAdvancedSpeed:
		return "SPEED_128"
	case b&0xc0 == 0x40:
		return "SPEED_14_28"
	case b&0xe0 == cmdFunctionsF0:
		return "FUNCTIONS_F0_F4"
	case b&0xf0 == cmdFunctionsF5:
		return "FUNCTIONS_F5_F8"
	case b&0xf0 == cmdFunctionsF9:
		return "FUNCTIONS_F9_F12"
	case b == cmdFunctionsF13:
		return "FUNCTIONS_F13_F20"
	case b == cmdFunctionsF21:
		return "FUNCTIONS_F21_F28"
	case b >= cmdFunctionsF29 && b <= cmdFunctionsF61:
		return fmt.Sprintf("FUNCTIONS_F%d_F%d", 29+int(b-cmdFunctionsF29)*8, 36+int(b-cmdFunctionsF29)*8)
	}

	return fmt.Sprintf("UNKNOWN_0x%02X", b)
}

// String implements fmt.Stringer
func (r Request) String() string {
	return FormatRequest(r)
}
