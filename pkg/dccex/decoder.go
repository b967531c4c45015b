// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package dccex talks to DCC-EX command stations over their text protocol.
//
// Commands and replies are framed as <...>. The Client implements
// control.VariableControl on top of the programming track commands <R> and
// <W>, and can transmit raw DCC frames built by package dcc.
package dccex

import (
	"errors"
	"fmt"
	"time"
)

const (
	StartByte = '<'
	EndByte   = '>'

	// MaxMessageSize is the largest message body accepted between the delimiters
	MaxMessageSize = 256
)

const (
	stateIdle = iota
	stateMessage
)

var (
	ErrMessageTooLong      = errors.New("message too long")
	ErrUnterminatedMessage = errors.New("unterminated message")
)

// Message is one framed message received from the command station
type Message struct {
	text      string
	timestamp time.Time
}

// NewMessage creates a message with the current time
func NewMessage(text string) *Message {
	return &Message{text: text, timestamp: time.Now()}
}

// Text returns the message body without delimiters
func (m *Message) Text() string { return m.text }

// Timestamp returns when the closing delimiter was received
func (m *Message) Timestamp() time.Time { return m.timestamp }

// String returns the message with delimiters
func (m *Message) String() string { return fmt.Sprintf("<%s>", m.text) }

// Decoder frames messages from a byte stream
type Decoder struct {
	state     int
	buffer    []byte
	rawBuffer []byte
	junk      uint64
}

// NewDecoder creates a new message decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:     stateIdle,
		buffer:    make([]byte, 0, MaxMessageSize),
		rawBuffer: make([]byte, 0, MaxMessageSize+2),
	}
}

// Reset drops a partial message
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.buffer = d.buffer[:0]
	d.rawBuffer = d.rawBuffer[:0]
}

// RawBytes returns the bytes of the current or last partial message
func (d *Decoder) RawBytes() []byte {
	return d.rawBuffer
}

// JunkBytes returns how many bytes arrived outside of a frame. Whitespace
// between frames is not counted.
func (d *Decoder) JunkBytes() uint64 {
	return d.junk
}

// DecodeByte processes a single byte.
// Returns a completed message, or nil if the message is incomplete.
// Returns an error if a partial message had to be dropped.
func (d *Decoder) DecodeByte(b byte) (*Message, error) {
	switch d.state {
	case stateIdle:
		switch b {
		case StartByte:
			d.Reset()
			d.rawBuffer = append(d.rawBuffer, b)
			d.state = stateMessage
		case ' ', '\t', '\r', '\n':
		default:
			d.junk++
		}
		return nil, nil

	case stateMessage:
		switch b {
		case StartByte:
			partial := len(d.buffer)
			d.Reset()
			d.rawBuffer = append(d.rawBuffer, b)
			d.state = stateMessage
			return nil, fmt.Errorf("%w: dropped %d bytes", ErrUnterminatedMessage, partial)

		case EndByte:
			msg := NewMessage(string(d.buffer))
			d.Reset()
			return msg, nil

		default:
			if len(d.buffer) >= MaxMessageSize {
				d.Reset()
				return nil, fmt.Errorf("%w: exceeds %d bytes", ErrMessageTooLong, MaxMessageSize)
			}
			d.buffer = append(d.buffer, b)
			d.rawBuffer = append(d.rawBuffer, b)
			return nil, nil
		}

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", d.state)
	}
}

// Decode feeds p through the decoder and returns all completed messages
// together with any framing errors
func (d *Decoder) Decode(p []byte) ([]*Message, []error) {
	var messages []*Message
	var errs []error
	for _, b := range p {
		msg, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
		}
		if msg != nil {
			messages = append(messages, msg)
		}
	}
	return messages, errs
}
