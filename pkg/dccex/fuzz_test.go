// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dccex

import (
	"fmt"
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

// randomBody returns printable text without frame delimiters
func randomBody(rng *rand.Rand, maxLen int) string {
	b := make([]byte, rng.Intn(maxLen+1))
	for i := range b {
		c := byte(rng.Intn(95) + 32)
		if c == StartByte || c == EndByte {
			c = '.'
		}
		b[i] = c
	}
	return string(b)
}

// ============================================================
// Decoder Fuzz Tests
// ============================================================

// TestFuzzDecoder_RandomBytes feeds random bytes to the decoder
// and verifies it doesn't crash or panic
func TestFuzzDecoder_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()

		length := rng.Intn(1024) + 1
		data := make([]byte, length)
		rng.Read(data)

		for _, b := range data {
			msg, _ := d.DecodeByte(b)
			if msg != nil && len(msg.Text()) > MaxMessageSize {
				t.Fatalf("Round %d: message of %d bytes exceeds maximum", i, len(msg.Text()))
			}
		}
	}
}

// TestFuzzDecoder_RandomMessages frames random bodies between junk and
// checks every body comes back unchanged
func TestFuzzDecoder_RandomMessages(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()

		count := rng.Intn(5) + 1
		var input []byte
		var want []string
		for j := 0; j < count; j++ {
			input = append(input, randomBody(rng, 8)...)
			body := randomBody(rng, MaxMessageSize)
			want = append(want, body)
			input = append(input, StartByte)
			input = append(input, body...)
			input = append(input, EndByte)
		}

		messages, errs := d.Decode(input)
		if len(errs) != 0 {
			t.Errorf("Round %d: unexpected errors: %v", i, errs)
			continue
		}
		if len(messages) != len(want) {
			t.Errorf("Round %d: got %d messages, want %d", i, len(messages), len(want))
			continue
		}
		for j, msg := range messages {
			if msg.Text() != want[j] {
				t.Errorf("Round %d: message %d = %q, want %q", i, j, msg.Text(), want[j])
			}
		}
	}
}

// ============================================================
// Reply Fuzz Tests
// ============================================================

// TestFuzzParseReply_Variable checks random variable replies parse back
func TestFuzzParseReply_Variable(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		cv := rng.Intn(1024) + 1
		value := rng.Intn(257) - 1

		text := fmt.Sprintf("r %d %d", cv, value)
		if rng.Intn(2) == 1 {
			text = fmt.Sprintf("r %d|%d|%d %d", rng.Intn(1000), rng.Intn(1000), cv, value)
		}

		reply := ParseReply(text)
		if reply.Kind != ReplyVariable || int(reply.Variable) != cv || reply.Value != value {
			t.Errorf("Round %d: ParseReply(%q) = %+v", i, text, reply)
		}
		if reply.Failed() != (value < 0) {
			t.Errorf("Round %d: Failed() = %v for value %d", i, reply.Failed(), value)
		}
	}
}

// TestFuzzParseReply_RandomText verifies arbitrary text never panics and
// keeps the original text
func TestFuzzParseReply_RandomText(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		text := randomBody(rng, 32)
		reply := ParseReply(text)
		if reply.Text != text {
			t.Errorf("Round %d: Text = %q, want %q", i, reply.Text, text)
		}
		_ = reply.String()
	}
}
