// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dccex

import (
	"errors"
	"strings"
	"testing"

	"github.com/railkit/cvscope/pkg/control"
	"github.com/railkit/cvscope/pkg/dcc"
)

// ============================================================
// Decoder Tests
// ============================================================

func decodeAll(t *testing.T, input string) ([]string, []error, *Decoder) {
	t.Helper()
	d := NewDecoder()
	messages, errs := d.Decode([]byte(input))
	texts := make([]string, 0, len(messages))
	for _, msg := range messages {
		texts = append(texts, msg.Text())
	}
	return texts, errs, d
}

func TestDecoder_Messages(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "<r 1 3>", []string{"r 1 3"}},
		{"with newlines", "<p1>\r\n<iDCC-EX V-5.0.0 / MEGA>\n", []string{"p1", "iDCC-EX V-5.0.0 / MEGA"}},
		{"empty body", "<>", []string{""}},
		{"junk between frames", "boot<X>ok", []string{"X"}},
		{"stray end", "><p0>", []string{"p0"}},
		{"diagnostic", "<* LCD0:Ready *>", []string{"* LCD0:Ready *"}},
	}

	junk := map[string]uint64{
		"junk between frames": 6,
		"stray end":           1,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs, d := decodeAll(t, tt.input)
			if len(errs) != 0 {
				t.Fatalf("unexpected errors: %v", errs)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("messages = %q, want %q", got, tt.want)
			}
			if d.JunkBytes() != junk[tt.name] {
				t.Errorf("JunkBytes() = %d, want %d", d.JunkBytes(), junk[tt.name])
			}
		})
	}
}

func TestDecoder_SplitAcrossReads(t *testing.T) {
	d := NewDecoder()
	var got []string
	for _, chunk := range []string{"<r 2", "57 1", "51>"} {
		messages, errs := d.Decode([]byte(chunk))
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		for _, msg := range messages {
			got = append(got, msg.Text())
		}
	}
	if len(got) != 1 || got[0] != "r 257 151" {
		t.Errorf("messages = %q, want [\"r 257 151\"]", got)
	}
}

func TestDecoder_Unterminated(t *testing.T) {
	got, errs, _ := decodeAll(t, "<r 1<p1>")
	if len(errs) != 1 || !errors.Is(errs[0], ErrUnterminatedMessage) {
		t.Fatalf("errors = %v, want ErrUnterminatedMessage", errs)
	}
	if len(got) != 1 || got[0] != "p1" {
		t.Errorf("messages = %q, want [\"p1\"]", got)
	}
}

func TestDecoder_Overflow(t *testing.T) {
	input := "<" + strings.Repeat("a", MaxMessageSize+1) + "><p0>"
	got, errs, _ := decodeAll(t, input)
	if len(errs) != 1 || !errors.Is(errs[0], ErrMessageTooLong) {
		t.Fatalf("errors = %v, want ErrMessageTooLong", errs)
	}
	if len(got) != 1 || got[0] != "p0" {
		t.Errorf("messages = %q, want [\"p0\"]", got)
	}
}

func TestDecoder_MaxSizeAccepted(t *testing.T) {
	body := strings.Repeat("a", MaxMessageSize)
	got, errs, _ := decodeAll(t, "<"+body+">")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(got) != 1 || got[0] != body {
		t.Errorf("message of %d bytes not decoded", MaxMessageSize)
	}
}

// ============================================================
// Reply Tests
// ============================================================

func TestParseReply(t *testing.T) {
	tests := []struct {
		text     string
		kind     ReplyKind
		variable dcc.VariableIndex
		value    int
		failed   bool
	}{
		{text: "r 8 151", kind: ReplyVariable, variable: 8, value: 151},
		{text: "r 1024 0", kind: ReplyVariable, variable: 1024, value: 0},
		{text: "r 29 -1", kind: ReplyVariable, variable: 29, value: -1, failed: true},
		{text: "r 1234|5678|29 6", kind: ReplyVariable, variable: 29, value: 6},
		{text: "r 0 1", kind: ReplyUnknown},
		{text: "r 1025 1", kind: ReplyUnknown},
		{text: "r 1 256", kind: ReplyUnknown},
		{text: "r 1", kind: ReplyUnknown},
		{text: "iDCC-EX V-5.0.0 / MEGA", kind: ReplyStatus},
		{text: "p0", kind: ReplyPower},
		{text: "p1 MAIN", kind: ReplyPower},
		{text: "p2", kind: ReplyUnknown},
		{text: "X", kind: ReplyRejected},
		{text: "* LCD0:Ready *", kind: ReplyDiagnostic},
		{text: "H 1 0", kind: ReplyUnknown},
		{text: "", kind: ReplyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			r := ParseReply(tt.text)
			if r.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", r.Kind, tt.kind)
			}
			if r.Kind != ReplyVariable {
				return
			}
			if r.Variable != tt.variable || r.Value != tt.value {
				t.Errorf("got cv=%d value=%d, want cv=%d value=%d", r.Variable, r.Value, tt.variable, tt.value)
			}
			if r.Failed() != tt.failed {
				t.Errorf("Failed() = %v, want %v", r.Failed(), tt.failed)
			}
		})
	}
}

func TestParseReply_Fields(t *testing.T) {
	if r := ParseReply("p1 MAIN"); !r.Power || r.Track != "MAIN" {
		t.Errorf("power reply = %+v", r)
	}
	if r := ParseReply("iDCC-EX V-5.0.0 / MEGA"); r.Version != "DCC-EX V-5.0.0 / MEGA" {
		t.Errorf("Version = %q", r.Version)
	}
	if r := ParseReply("* LCD0:Ready *"); r.Note != "LCD0:Ready" {
		t.Errorf("Note = %q", r.Note)
	}
}

func TestReply_String(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"r 8 151", "VARIABLE cv=8 value=151 (0x97)"},
		{"r 8 -1", "VARIABLE cv=8 failed"},
		{"p1", "POWER on"},
		{"p0 PROG", "POWER off PROG"},
		{"X", "REJECTED"},
		{"?", `UNKNOWN "?"`},
	}

	for _, tt := range tests {
		if got := ParseReply(tt.text).String(); got != tt.want {
			t.Errorf("ParseReply(%q).String() = %q, want %q", tt.text, got, tt.want)
		}
	}
}

// ============================================================
// Command Tests
// ============================================================

func TestCommands(t *testing.T) {
	if got := ReadCommand(257); got != "<R 257>" {
		t.Errorf("ReadCommand = %q", got)
	}
	if got := WriteCommand(31, 0); got != "<W 31 0>" {
		t.Errorf("WriteCommand = %q", got)
	}
	if got := PowerCommand(true); got != "<1>" {
		t.Errorf("PowerCommand(true) = %q", got)
	}
	if got := StatusCommand(); got != "<s>" {
		t.Errorf("StatusCommand = %q", got)
	}
}

func TestFrameCommand(t *testing.T) {
	req := dcc.SetSpeed14(830, 0, dcc.DirectionForward, false)
	got, err := FrameCommand(req)
	if err != nil {
		t.Fatalf("FrameCommand() error = %v", err)
	}
	if want := "<M 0 C3 3E 60>"; got != want {
		t.Errorf("FrameCommand() = %q, want %q", got, want)
	}

	if _, err := FrameCommand(nil); !errors.Is(err, control.ErrInvalidRequest) {
		t.Errorf("FrameCommand(nil) error = %v, want ErrInvalidRequest", err)
	}
}

// ============================================================
// Statistics Tests
// ============================================================

func TestStatistics(t *testing.T) {
	s := NewStatistics()

	unknown := ParseReply("?")
	variable := ParseReply("r 1 3")
	s.Update(&variable, nil)
	s.Update(&unknown, nil)
	s.Update(nil, ErrMessageTooLong)
	s.RecordOperation(nil)
	s.RecordOperation(control.ErrTimeout)
	s.RecordOperation(control.ErrValueRejected)
	s.RecordOperation(control.ErrRequestFailed)

	if s.TotalMessages != 2 || s.UnknownMessages != 1 || s.FramingErrors != 1 {
		t.Errorf("message counters = %d/%d/%d", s.TotalMessages, s.UnknownMessages, s.FramingErrors)
	}
	if s.Operations != 4 || s.Succeeded != 1 || s.Timeouts != 1 || s.Rejected != 1 || s.Failed != 1 {
		t.Errorf("operation counters = %+v", s)
	}

	out := s.String()
	for _, want := range []string{"Total Messages:", "Framing Errors:", "CV Operations:", "Timeouts:"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}

	s.Reset()
	if s.TotalMessages != 0 || s.Operations != 0 {
		t.Error("Reset() should clear counters")
	}
}
