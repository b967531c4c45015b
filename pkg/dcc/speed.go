// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dcc

import "fmt"

// Speed14 is a speed in 14 step mode (0 stop, 1 emergency stop, 2..15 running)
type Speed14 uint8

// Speed28 is a speed in 28 step mode
type Speed28 uint8

// Speed126 is a speed in 126 step mode
type Speed126 uint8

// SpeedPercentile is a speed in percent of full speed
type SpeedPercentile uint8

// Steps returns the largest valid count, used as denominator in conversions.
func (Speed14) Steps() uint32         { return 15 }
func (Speed28) Steps() uint32         { return 31 }
func (Speed126) Steps() uint32        { return 127 }
func (SpeedPercentile) Steps() uint32 { return 100 }

// SpeedQuantity is implemented by the four speed encodings.
type SpeedQuantity interface {
	Speed14 | Speed28 | Speed126 | SpeedPercentile
	Steps() uint32
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// QuantityCast converts between speed encodings, rounding half up.
// Zero maps to zero and full speed to full speed.
func QuantityCast[To, From SpeedQuantity](from From) To {
	var to To
	cden := gcd(to.Steps(), from.Steps())
	num := to.Steps() / cden
	den := from.Steps() / cden
	return To((uint32(from)*num + den/2) / den)
}

// Fraction returns q as a fraction of full speed, without rounding.
func Fraction[T SpeedQuantity](q T) float64 {
	return float64(q) / float64(q.Steps())
}

type speedKind uint8

const (
	speedNone speedKind = iota
	speed14
	speed28
	speed126
	speedPercentile
)

// Speed holds a speed in any of the supported encodings.
// The zero value holds no speed at all.
type Speed struct {
	kind  speedKind
	count uint8
}

// NewSpeed wraps q into a Speed
func NewSpeed[T SpeedQuantity](q T) Speed {
	switch v := any(q).(type) {
	case Speed14:
		return Speed{kind: speed14, count: uint8(v)}
	case Speed28:
		return Speed{kind: speed28, count: uint8(v)}
	case Speed126:
		return Speed{kind: speed126, count: uint8(v)}
	case SpeedPercentile:
		return Speed{kind: speedPercentile, count: uint8(v)}
	}
	return Speed{}
}

// IsValid reports whether s holds a speed.
func (s Speed) IsValid() bool {
	return s.kind != speedNone
}

// SpeedCast converts s into the requested encoding. An empty Speed yields zero.
func SpeedCast[T SpeedQuantity](s Speed) T {
	switch s.kind {
	case speed14:
		return QuantityCast[T](Speed14(s.count))
	case speed28:
		return QuantityCast[T](Speed28(s.count))
	case speed126:
		return QuantityCast[T](Speed126(s.count))
	case speedPercentile:
		return QuantityCast[T](SpeedPercentile(s.count))
	}
	return 0
}

// String renders s like "8/14", or "invalid" for an empty Speed.
func (s Speed) String() string {
	switch s.kind {
	case speed14:
		return fmt.Sprintf("%d/14", s.count)
	case speed28:
		return fmt.Sprintf("%d/28", s.count)
	case speed126:
		return fmt.Sprintf("%d/126", s.count)
	case speedPercentile:
		return fmt.Sprintf("%d/100", s.count)
	}
	return "invalid"
}
