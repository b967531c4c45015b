// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dcc

import (
	"errors"
	"fmt"
	"iter"
)

// ErrOutOfRange is matched by every *RangeError
var ErrOutOfRange = errors.New("value out of range")

// RangeError reports a bounded value constructed outside its inclusive range
type RangeError struct {
	Type  string
	Value int64
	Min   int64
	Max   int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [%d..%d]", e.Type, e.Value, e.Min, e.Max)
}

// Is makes errors.Is(err, ErrOutOfRange) work for range errors
func (e *RangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// Integer is the set of underlying types used by bounded values
type Integer interface {
	~uint8 | ~uint16 | ~uint32
}

// Bounds describes the inclusive range accepted by a bounded value type.
type Bounds[T Integer] struct {
	Name string
	Min  T
	Max  T
}

// Contains reports whether v can be represented by the bounded type.
func (b Bounds[T]) Contains(v int64) bool {
	return v >= int64(b.Min) && v <= int64(b.Max)
}

// New converts v into T, failing with a *RangeError when v is outside [Min..Max].
func (b Bounds[T]) New(v int64) (T, error) {
	if !b.Contains(v) {
		return 0, &RangeError{Type: b.Name, Value: v, Min: int64(b.Min), Max: int64(b.Max)}
	}
	return T(v), nil
}

// Must is like New but panics on out-of-range input. Use it for constants.
func (b Bounds[T]) Must(v int64) T {
	t, err := b.New(v)
	if err != nil {
		panic(err)
	}
	return t
}

// BasicAddress is a short (7 bit) multi-function decoder address
type BasicAddress uint8

// VehicleAddress is a multi-function decoder address, short or long
type VehicleAddress uint16

// AccessoryAddress is the address of a turnout or signal decoder
type AccessoryAddress uint16

// VariableIndex is a plain NMRA configuration variable number
type VariableIndex uint16

// VariableValue is the content of a configuration variable
type VariableValue uint8

// ExtendedVariableIndex encodes a CV together with its extended or SUSI page.
//
// Bit 10 (0x400) marks a CV31/CV32 paged variable with the page in bits 12 and up,
// bit 11 (0x800) marks a SUSI paged variable with the bank in bits 12..19.
// Without either bit the low 10 bits hold a direct CV.
type ExtendedVariableIndex uint32

// ExtendedPageIndex is the page selected through CV31 (high byte) and CV32 (low byte)
type ExtendedPageIndex uint16

// SusiPageIndex is the SUSI bank selected through CV1021
type SusiPageIndex uint8

// Function is a decoder function number F0..F68
type Function uint8

var (
	BasicAddressBounds          = Bounds[BasicAddress]{Name: "BasicAddress", Min: 0, Max: 127}
	VehicleAddressBounds        = Bounds[VehicleAddress]{Name: "VehicleAddress", Min: 1, Max: 10239}
	AccessoryAddressBounds      = Bounds[AccessoryAddress]{Name: "AccessoryAddress", Min: 1, Max: 16383}
	VariableIndexBounds         = Bounds[VariableIndex]{Name: "VariableIndex", Min: 1, Max: 1024}
	VariableValueBounds         = Bounds[VariableValue]{Name: "VariableValue", Min: 0, Max: 255}
	ExtendedVariableIndexBounds = Bounds[ExtendedVariableIndex]{Name: "ExtendedVariableIndex", Min: 0, Max: 0xffffffff}
	ExtendedPageIndexBounds     = Bounds[ExtendedPageIndex]{Name: "ExtendedPageIndex", Min: 0, Max: 0xffff}
	SusiPageIndexBounds         = Bounds[SusiPageIndex]{Name: "SusiPageIndex", Min: 0, Max: 0xff}
	FunctionBounds              = Bounds[Function]{Name: "Function", Min: 0, Max: 68}
)

// NewBasicAddress returns a checked BasicAddress
func NewBasicAddress(v int) (BasicAddress, error) { return BasicAddressBounds.New(int64(v)) }

// NewVehicleAddress returns a checked VehicleAddress
func NewVehicleAddress(v int) (VehicleAddress, error) { return VehicleAddressBounds.New(int64(v)) }

// NewAccessoryAddress returns a checked AccessoryAddress
func NewAccessoryAddress(v int) (AccessoryAddress, error) {
	return AccessoryAddressBounds.New(int64(v))
}

// NewVariableIndex returns a checked VariableIndex
func NewVariableIndex(v int) (VariableIndex, error) { return VariableIndexBounds.New(int64(v)) }

// NewVariableValue returns a checked VariableValue
func NewVariableValue(v int) (VariableValue, error) { return VariableValueBounds.New(int64(v)) }

// NewExtendedVariableIndex returns a checked ExtendedVariableIndex
func NewExtendedVariableIndex(v int64) (ExtendedVariableIndex, error) {
	return ExtendedVariableIndexBounds.New(v)
}

// NewExtendedPageIndex returns a checked ExtendedPageIndex
func NewExtendedPageIndex(v int) (ExtendedPageIndex, error) {
	return ExtendedPageIndexBounds.New(int64(v))
}

// NewSusiPageIndex returns a checked SusiPageIndex
func NewSusiPageIndex(v int) (SusiPageIndex, error) { return SusiPageIndexBounds.New(int64(v)) }

// NewFunction returns a checked Function
func NewFunction(v int) (Function, error) { return FunctionBounds.New(int64(v)) }

// Valid reports whether the address is within the vehicle address range.
func (a VehicleAddress) Valid() bool { return VehicleAddressBounds.Contains(int64(a)) }

// Valid reports whether the index names a plain CV.
func (v VariableIndex) Valid() bool { return VariableIndexBounds.Contains(int64(v)) }

// Valid reports whether fn is one of F0..F68.
func (fn Function) Valid() bool { return FunctionBounds.Contains(int64(fn)) }

// Range is an inclusive interval [First..Last].
// A range with First > Last is empty.
type Range[T Integer] struct {
	First T
	Last  T
}

// MakeRange returns the range [first..last]
func MakeRange[T Integer](first, last T) Range[T] {
	return Range[T]{First: first, Last: last}
}

// Contains reports whether x lies within the range.
func (r Range[T]) Contains(x T) bool {
	return x >= r.First && x <= r.Last
}

// Size returns the number of values in the range.
func (r Range[T]) Size() int {
	if r.First > r.Last {
		return 0
	}
	return int(uint64(r.Last)-uint64(r.First)) + 1
}

// All iterates the range from First to Last.
func (r Range[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		if r.First > r.Last {
			return
		}
		for v := r.First; ; v++ {
			if !yield(v) || v == r.Last {
				return
			}
		}
	}
}

func (r Range[T]) String() string {
	return fmt.Sprintf("[%d..%d]", r.First, r.Last)
}
