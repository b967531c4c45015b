// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dcc

import (
	"errors"
	"fmt"
	"strings"
)

// Broadcast addresses every multi-function decoder
const Broadcast VehicleAddress = 0

const (
	// MinRequestSize is the shortest valid frame: address, instruction, checksum
	MinRequestSize = 3
	// MaxRequestSize is the longest frame an NMRA packet may carry
	MaxRequestSize = 6
)

// Instruction bytes
const (
	cmdSpeedReverse  = 0b010_0_0000
	cmdSpeedForward  = 0b011_0_0000
	cmdSpeedLight    = 0b000_1_0000
	cmdAdvancedSpeed = 0b001_11111
	cmdFunctionsF0   = 0b100_00000
	cmdFunctionsF5   = 0b1011_0000
	cmdFunctionsF9   = 0b1010_0000
	cmdFunctionsF13  = 0b1101_1110
	cmdFunctionsF21  = 0b1101_1111
	cmdFunctionsF29  = 0b1101_1000
	cmdFunctionsF37  = 0b1101_1001
	cmdFunctionsF45  = 0b1101_1010
	cmdFunctionsF53  = 0b1101_1011
	cmdFunctionsF61  = 0b1101_1100
	cmdVerifyBit     = 0x78
	cmdVerifyByte    = 0x74
	cmdWriteByte     = 0x7c
	longAddressFlag  = 0xc0
)

var (
	ErrFrameTooShort = errors.New("frame too short")
	ErrFrameTooLong  = errors.New("frame too long")
	ErrChecksum      = errors.New("checksum mismatch")
)

// Direction is the travel direction of a vehicle
type Direction uint8

const (
	DirectionUnknown Direction = iota
	DirectionForward
	DirectionReverse
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "Forward"
	case DirectionReverse:
		return "Reverse"
	default:
		return "Unknown"
	}
}

// Flip returns the opposite direction. Unknown stays unknown.
func (d Direction) Flip() Direction {
	switch d {
	case DirectionForward:
		return DirectionReverse
	case DirectionReverse:
		return DirectionForward
	}
	return DirectionUnknown
}

// ParseDirection accepts "forward", "fwd", "f", "reverse", "rev" and "r"
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "fwd", "f":
		return DirectionForward, nil
	case "reverse", "rev", "r":
		return DirectionReverse, nil
	}
	return DirectionUnknown, fmt.Errorf("invalid direction %q", s)
}

// Request is a DCC packet: address, instruction bytes and the XOR checksum.
// A nil or empty Request is the result of rejected input.
type Request []byte

// Valid reports whether r holds a frame.
func (r Request) Valid() bool {
	return len(r) >= MinRequestSize
}

// Bytes returns the frame including its checksum.
func (r Request) Bytes() []byte {
	return []byte(r)
}

// HasExtendedAddress reports whether r starts with a two byte (long) address.
func (r Request) HasExtendedAddress() bool {
	return len(r) > 0 && r[0] >= longAddressFlag && r[0] <= longAddressFlag|byte(VehicleAddressBounds.Max>>8)
}

// Address returns the decoder address r is sent to.
func (r Request) Address() VehicleAddress {
	switch {
	case len(r) == 0:
		return Broadcast
	case r.HasExtendedAddress() && len(r) > 1:
		return VehicleAddress((uint16(r[0])<<8 | uint16(r[1])) & 0x3fff)
	}
	return VehicleAddress(r[0] & 0x7f)
}

// Payload returns the instruction bytes between address and checksum.
func (r Request) Payload() []byte {
	if !r.Valid() {
		return nil
	}
	start := 1
	if r.HasExtendedAddress() {
		start = 2
	}
	if start >= len(r)-1 {
		return nil
	}
	return r[start : len(r)-1]
}

// Checksum returns the trailing error detection byte.
func (r Request) Checksum() byte {
	if len(r) == 0 {
		return 0
	}
	return r[len(r)-1]
}

// ParseRequest validates a received frame
func ParseRequest(frame []byte) (Request, error) {
	if len(frame) < MinRequestSize {
		return nil, fmt.Errorf("%w: %d bytes (min %d)", ErrFrameTooShort, len(frame), MinRequestSize)
	}
	if len(frame) > MaxRequestSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLong, len(frame), MaxRequestSize)
	}

	expected := Checksum(frame[:len(frame)-1])
	if got := frame[len(frame)-1]; got != expected {
		return nil, fmt.Errorf("%w: expected 0x%02X, got 0x%02X", ErrChecksum, expected, got)
	}

	r := make(Request, len(frame))
	copy(r, frame)
	return r, nil
}

// newRequest appends the checksum to data
func newRequest(data ...byte) Request {
	r := make(Request, 0, len(data)+1)
	r = append(r, data...)
	return append(r, Checksum(data))
}

// multiFunctionRequest addresses instruction bytes to a multi-function decoder
func multiFunctionRequest(address VehicleAddress, instruction ...byte) Request {
	if address < 128 {
		return newRequest(append([]byte{byte(address)}, instruction...)...)
	}

	addrHigh := byte(address>>8) | longAddressFlag
	addrLow := byte(address & 255)
	return newRequest(append([]byte{addrHigh, addrLow}, instruction...)...)
}

func checkAddress(address VehicleAddress) bool {
	if address > VehicleAddressBounds.Max {
		warnf("Vehicle address %d out of range [0..%d]", address, VehicleAddressBounds.Max)
		return false
	}
	return true
}

// ResetRequest returns the digital decoder reset packet
func ResetRequest() Request {
	return Request{0x00, 0x00, 0x00}
}

// SetSpeed14 builds a 14 step speed and direction packet.
// Speed 0 stops, speed 1 is an emergency stop. light sets the FL bit.
func SetSpeed14(address VehicleAddress, speed Speed14, direction Direction, light bool) Request {
	if speed > 15 {
		warnf("Speed value out of range [0..15]")
		return nil
	}
	if !checkAddress(address) {
		return nil
	}

	instruction := byte(speed)
	if light {
		instruction |= cmdSpeedLight
	}

	switch direction {
	case DirectionForward:
		return multiFunctionRequest(address, cmdSpeedForward|instruction)
	case DirectionReverse:
		return multiFunctionRequest(address, cmdSpeedReverse|instruction)
	}

	warnf("Invalid direction")
	return nil
}

// SetSpeed28 builds a 28 step speed and direction packet.
// The lowest speed bit travels in the bit used as FL in 14 step mode.
func SetSpeed28(address VehicleAddress, speed Speed28, direction Direction) Request {
	if speed > 31 {
		warnf("Speed value out of range [0..31]")
		return nil
	}
	return SetSpeed14(address, Speed14(speed>>1), direction, speed&1 != 0)
}

// SetSpeed126 builds an advanced operations 128 step speed packet.
func SetSpeed126(address VehicleAddress, speed Speed126, direction Direction) Request {
	if speed > 127 {
		warnf("Speed value out of range [0..127]")
		return nil
	}
	if !checkAddress(address) {
		return nil
	}

	switch direction {
	case DirectionForward:
		return multiFunctionRequest(address, cmdAdvancedSpeed, 0x80|byte(speed))
	case DirectionReverse:
		return multiFunctionRequest(address, cmdAdvancedSpeed, byte(speed))
	}

	warnf("Invalid direction")
	return nil
}

// SetSpeed builds the speed packet matching the encoding of speed.
// Percentile speeds are sent in 126 step mode.
func SetSpeed(address VehicleAddress, speed Speed, direction Direction) Request {
	switch speed.kind {
	case speed14:
		return SetSpeed14(address, Speed14(speed.count), direction, false)
	case speed28:
		return SetSpeed28(address, Speed28(speed.count), direction)
	case speed126:
		return SetSpeed126(address, Speed126(speed.count), direction)
	case speedPercentile:
		return SetSpeed126(address, SpeedCast[Speed126](speed), direction)
	}

	warnf("Invalid speed")
	return nil
}

// SetFunctions builds the function group packet for group g.
// functions is the group mask as produced by FunctionMask.
func SetFunctions(address VehicleAddress, g FunctionGroup, functions uint8) Request {
	if !checkAddress(address) {
		return nil
	}

	switch g {
	case FunctionGroup1, FunctionGroup2, FunctionGroup3:
		if functions > 0x1f {
			warnf("Functions value out of range for function group %d", g)
			return nil
		}
	}

	switch g {
	case FunctionGroup1:
		return multiFunctionRequest(address, cmdFunctionsF0|functions)
	case FunctionGroup2:
		return multiFunctionRequest(address, cmdFunctionsF5|functions)
	case FunctionGroup3:
		return multiFunctionRequest(address, cmdFunctionsF9|functions)
	case FunctionGroup4:
		return multiFunctionRequest(address, cmdFunctionsF13, functions)
	case FunctionGroup5:
		return multiFunctionRequest(address, cmdFunctionsF21, functions)
	case FunctionGroup6:
		return multiFunctionRequest(address, cmdFunctionsF29, functions)
	case FunctionGroup7:
		return multiFunctionRequest(address, cmdFunctionsF37, functions)
	case FunctionGroup8:
		return multiFunctionRequest(address, cmdFunctionsF45, functions)
	case FunctionGroup9:
		return multiFunctionRequest(address, cmdFunctionsF53, functions)
	case FunctionGroup10:
		return multiFunctionRequest(address, cmdFunctionsF61, functions)
	}

	return nil
}

// serviceModeRequest builds a direct mode CV access packet
func serviceModeRequest(command byte, variable VariableIndex, data byte) Request {
	if !variable.Valid() {
		warnf("Variable index %d out of range [1..1024]", variable)
		return nil
	}

	addrHigh := byte((variable - 1) >> 8)
	addrLow := byte((variable - 1) & 255)
	return newRequest(command|addrHigh, addrLow, data)
}

// VerifyBit builds a service mode packet checking bit position of variable against value.
func VerifyBit(variable VariableIndex, value bool, position uint8) Request {
	if position > 7 {
		warnf("Bit position %d out of range [0..7]", position)
		return nil
	}

	data := 0xe0 | position
	if value {
		data |= 0x08
	}
	return serviceModeRequest(cmdVerifyBit, variable, data)
}

// VerifyByte builds a service mode packet checking variable against value.
func VerifyByte(variable VariableIndex, value VariableValue) Request {
	return serviceModeRequest(cmdVerifyByte, variable, byte(value))
}

// WriteByte builds a service mode packet storing value in variable.
func WriteByte(variable VariableIndex, value VariableValue) Request {
	return serviceModeRequest(cmdWriteByte, variable, byte(value))
}
