// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dcc

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// newFuzzRng creates a random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := time.Now().UnixNano()
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if s, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			seed = s
		}
	}
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomRequest builds a random valid request
func randomRequest(rng *rand.Rand) Request {
	address := VehicleAddress(rng.Intn(10240))
	direction := DirectionForward + Direction(rng.Intn(2))

	switch rng.Intn(6) {
	case 0:
		return SetSpeed14(address, Speed14(rng.Intn(16)), direction, rng.Intn(2) == 1)
	case 1:
		return SetSpeed28(address, Speed28(rng.Intn(32)), direction)
	case 2:
		return SetSpeed126(address, Speed126(rng.Intn(128)), direction)
	case 3:
		g := FunctionGroups[rng.Intn(len(FunctionGroups))]
		var state FunctionState
		for fn := range g.Range().All() {
			state = state.WithFunction(fn, rng.Intn(2) == 1)
		}
		return SetFunctions(address, g, FunctionMask(g.Range(), state))
	case 4:
		return WriteByte(VariableIndex(rng.Intn(1024)+1), VariableValue(rng.Intn(256)))
	default:
		return VerifyBit(VariableIndex(rng.Intn(1024)+1), rng.Intn(2) == 1, uint8(rng.Intn(8)))
	}
}

// ============================================================
// Request Fuzz Tests
// ============================================================

// TestFuzzParseRequest_RandomBytes verifies arbitrary frames never panic and
// that every accepted frame has a zero XOR
func TestFuzzParseRequest_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		frame := make([]byte, rng.Intn(MaxRequestSize+3))
		rng.Read(frame)

		r, err := ParseRequest(frame)
		if err != nil {
			continue
		}
		if Checksum(r) != 0 {
			t.Errorf("Round %d: accepted % X with bad checksum", i, frame)
		}
		_ = FormatRequest(r)
		_ = FormatRequestType(r)
	}
}

// TestFuzzRequest_RoundTrip checks built requests parse back unchanged
func TestFuzzRequest_RoundTrip(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		r := randomRequest(rng)
		if !r.Valid() {
			t.Errorf("Round %d: builder returned an invalid request", i)
			continue
		}

		parsed, err := ParseRequest(r.Bytes())
		if err != nil {
			t.Errorf("Round %d: ParseRequest(% X) error = %v", i, r.Bytes(), err)
			continue
		}
		if !bytes.Equal(parsed, r) {
			t.Errorf("Round %d: parsed % X, want % X", i, parsed.Bytes(), r.Bytes())
		}

		// Corrupt one byte: the XOR check catches every single byte error
		corrupt := bytes.Clone(r.Bytes())
		corrupt[rng.Intn(len(corrupt))] ^= byte(rng.Intn(255) + 1)
		if _, err := ParseRequest(corrupt); err == nil {
			t.Errorf("Round %d: corrupted frame % X accepted", i, corrupt)
		}
	}
}

// ============================================================
// Address Algebra Fuzz Tests
// ============================================================

// TestFuzzExtendedVariable_RoundTrip checks page and base survive encoding
func TestFuzzExtendedVariable_RoundTrip(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		base := VariableIndex(rng.Intn(256) + 257)
		page := ExtendedPageIndex(rng.Intn(65536))

		v := ExtendedVariable(base, page)
		if v.VariableIndex() != base || v.ExtendedPage() != page {
			t.Errorf("Round %d: ExtendedVariable(%d, %d) = base %d page %d", i, base, page, v.VariableIndex(), v.ExtendedPage())
		}
		if ExtendedVariableOf(base, v.CV31(), v.CV32()) != v {
			t.Errorf("Round %d: CV31/CV32 do not rebuild 0x%X", i, v)
		}

		susiBase := VariableIndex(rng.Intn(120) + 900)
		bank := SusiPageIndex(rng.Intn(256))
		s := SusiVariable(susiBase, bank)
		if s.VariableIndex() != susiBase || s.SusiPage() != bank {
			t.Errorf("Round %d: SusiVariable(%d, %d) = base %d bank %d", i, susiBase, bank, s.VariableIndex(), s.SusiPage())
		}
	}
}
