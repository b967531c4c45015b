// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dccex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/railkit/cvscope/pkg/control"
	"github.com/railkit/cvscope/pkg/dcc"
)

// ReplyKind identifies what a message from the command station reports
type ReplyKind uint8

const (
	ReplyUnknown ReplyKind = iota
	ReplyVariable
	ReplyStatus
	ReplyPower
	ReplyRejected
	ReplyDiagnostic
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyVariable:
		return "VARIABLE"
	case ReplyStatus:
		return "STATUS"
	case ReplyPower:
		return "POWER"
	case ReplyRejected:
		return "REJECTED"
	case ReplyDiagnostic:
		return "DIAGNOSTIC"
	default:
		return "UNKNOWN"
	}
}

// Reply is a parsed message
type Reply struct {
	Kind ReplyKind
	Text string

	// Variable and Value are set for ReplyVariable. A negative value means
	// the decoder did not acknowledge the access.
	Variable dcc.VariableIndex
	Value    int

	// Power is set for ReplyPower, Track names the district if any
	Power bool
	Track string

	// Version is the status banner for ReplyStatus, Note the body of a
	// diagnostic
	Version string
	Note    string
}

// Failed reports whether a variable reply signals a failed access
func (r Reply) Failed() bool {
	return r.Kind == ReplyVariable && r.Value < 0
}

// ParseReply interprets the body of a message. Messages that cannot be
// understood are returned as ReplyUnknown.
func ParseReply(text string) Reply {
	reply := Reply{Kind: ReplyUnknown, Text: text}
	if text == "" {
		return reply
	}

	switch text[0] {
	case 'r':
		return parseVariable(reply)

	case 'i':
		reply.Kind = ReplyStatus
		reply.Version = strings.TrimSpace(text[1:])
		return reply

	case 'p':
		fields := strings.Fields(text[1:])
		if len(fields) == 0 {
			return reply
		}
		switch fields[0] {
		case "0":
			reply.Power = false
		case "1":
			reply.Power = true
		default:
			return reply
		}
		reply.Kind = ReplyPower
		if len(fields) > 1 {
			reply.Track = fields[1]
		}
		return reply

	case 'X':
		if strings.TrimSpace(text) == "X" {
			reply.Kind = ReplyRejected
		}
		return reply

	case '*':
		reply.Kind = ReplyDiagnostic
		reply.Note = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(text, "*"), "*"))
		return reply
	}

	return reply
}

// parseVariable handles "r cv value" and the callback form "r n|m|cv value"
func parseVariable(reply Reply) Reply {
	fields := strings.Fields(reply.Text[1:])
	if len(fields) != 2 {
		return reply
	}

	cvField := fields[0]
	if i := strings.LastIndexByte(cvField, '|'); i >= 0 {
		cvField = cvField[i+1:]
	}

	cv, err := strconv.Atoi(cvField)
	if err != nil || !dcc.VariableIndexBounds.Contains(int64(cv)) {
		return reply
	}
	value, err := strconv.Atoi(fields[1])
	if err != nil || value < -1 || value > 255 {
		return reply
	}

	reply.Kind = ReplyVariable
	reply.Variable = dcc.VariableIndex(cv)
	reply.Value = value
	return reply
}

// String renders a reply for display
func (r Reply) String() string {
	switch r.Kind {
	case ReplyVariable:
		if r.Failed() {
			return fmt.Sprintf("VARIABLE cv=%d failed", r.Variable)
		}
		return fmt.Sprintf("VARIABLE cv=%d value=%d (0x%02X)", r.Variable, r.Value, r.Value)
	case ReplyStatus:
		return fmt.Sprintf("STATUS %s", r.Version)
	case ReplyPower:
		state := "off"
		if r.Power {
			state = "on"
		}
		if r.Track != "" {
			return fmt.Sprintf("POWER %s %s", state, r.Track)
		}
		return fmt.Sprintf("POWER %s", state)
	case ReplyRejected:
		return "REJECTED"
	case ReplyDiagnostic:
		return fmt.Sprintf("DIAGNOSTIC %s", r.Note)
	default:
		return fmt.Sprintf("UNKNOWN %q", r.Text)
	}
}

// Commands understood by DCC-EX

// ReadCommand reads a variable on the programming track
func ReadCommand(variable dcc.VariableIndex) string {
	return fmt.Sprintf("<R %d>", variable)
}

// WriteCommand writes a variable on the programming track
func WriteCommand(variable dcc.VariableIndex, value dcc.VariableValue) string {
	return fmt.Sprintf("<W %d %d>", variable, value)
}

// StatusCommand requests the status banner
func StatusCommand() string {
	return "<s>"
}

// PowerCommand switches track power
func PowerCommand(on bool) string {
	if on {
		return "<1>"
	}
	return "<0>"
}

// FrameCommand transmits a DCC frame on the main track. The station appends
// its own checksum, so the trailing checksum byte of req is omitted.
func FrameCommand(req dcc.Request) (string, error) {
	if !req.Valid() {
		return "", fmt.Errorf("%w: empty frame", control.ErrInvalidRequest)
	}
	data := req.Bytes()
	var b strings.Builder
	b.WriteString("<M 0")
	for _, v := range data[:len(data)-1] {
		fmt.Fprintf(&b, " %02X", v)
	}
	b.WriteString(">")
	return b.String(), nil
}
