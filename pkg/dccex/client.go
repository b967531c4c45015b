// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dccex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/railkit/cvscope/pkg/control"
	"github.com/railkit/cvscope/pkg/dcc"
)

// DefaultTimeout bounds a single programming track operation
const DefaultTimeout = 5 * time.Second

// ErrClosed is returned for operations on a closed or failed connection
var ErrClosed = errors.New("connection closed")

// Config configures a Client
type Config struct {
	// Timeout for a single read or write. Zero means DefaultTimeout.
	Timeout time.Duration

	// OnMessage is called on the reader goroutine for every received message
	OnMessage func(msg *Message, reply Reply)

	// LoggerFactory for logging. If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

type operation struct {
	command  string
	variable dcc.VariableIndex
	done     func(control.VariableResult)
	timer    *time.Timer
	sent     uint64
}

// Client drives a DCC-EX command station over a serial or WebSocket link.
//
// Programming track operations are queued and sent one at a time. Results
// are delivered on the reader goroutine or, on timeout, on a timer goroutine.
type Client struct {
	conn      io.ReadWriteCloser
	timeout   time.Duration
	onMessage func(*Message, Reply)
	log       logging.LeveledLogger
	stats     *Statistics
	decoder   *Decoder

	writeMu sync.Mutex

	mu       sync.Mutex
	queue    []*operation
	inflight *operation
	waiters  []chan Reply
	closed   bool
	sent     uint64

	readDone chan struct{}
}

var _ control.VariableControl = (*Client)(nil)

// NewClient starts reading from conn. Close stops the client and closes conn.
func NewClient(conn io.ReadWriteCloser, cfg Config) *Client {
	c := &Client{
		conn:      conn,
		timeout:   cfg.Timeout,
		onMessage: cfg.OnMessage,
		stats:     NewStatistics(),
		decoder:   NewDecoder(),
		readDone:  make(chan struct{}),
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if cfg.LoggerFactory != nil {
		c.log = cfg.LoggerFactory.NewLogger("dccex")
	}

	go c.readLoop()
	return c
}

// Statistics returns the live statistics of the client
func (c *Client) Statistics() *Statistics {
	return c.stats
}

// Close closes the connection and fails all pending operations
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.readDone
	return err
}

// Done is closed once the connection has failed or was closed
func (c *Client) Done() <-chan struct{} {
	return c.readDone
}

// Send writes a raw command
func (c *Client) Send(command string) error {
	return c.send(command, nil)
}

// send writes command and numbers it. The number of op is set before the
// write so a reply can never overtake it.
func (c *Client) send(command string, op *operation) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	c.sent++
	if op != nil {
		op.sent = c.sent
	}
	c.mu.Unlock()

	if c.log != nil {
		c.log.Tracef("-> %s", command)
	}
	if _, err := io.WriteString(c.conn, command); err != nil {
		return fmt.Errorf("failed to send %s: %w", command, err)
	}
	return nil
}

// SendFrame transmits an encoded DCC frame on the main track
func (c *Client) SendFrame(req dcc.Request) error {
	command, err := FrameCommand(req)
	if err != nil {
		return err
	}
	return c.Send(command)
}

// SetPower switches track power on or off
func (c *Client) SetPower(on bool) error {
	return c.Send(PowerCommand(on))
}

// Status requests the status banner and waits for it
func (c *Client) Status(ctx context.Context) (Reply, error) {
	ch := make(chan Reply, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Reply{}, ErrClosed
	}
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()

	if err := c.Send(StatusCommand()); err != nil {
		c.removeWaiter(ch)
		return Reply{}, err
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			return Reply{}, ErrClosed
		}
		return reply, nil
	case <-ctx.Done():
		c.removeWaiter(ch)
		return Reply{}, ctx.Err()
	}
}

func (c *Client) removeWaiter(ch chan Reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if w == ch {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}

// ReadVariable reads a variable on the programming track. DCC-EX addresses
// whatever decoder sits on that track, so address is only logged.
func (c *Client) ReadVariable(address dcc.VehicleAddress, variable dcc.VariableIndex, done func(control.VariableResult)) {
	if !variable.Valid() {
		done(control.Failed[dcc.VariableValue](
			fmt.Errorf("%w: variable %d out of range", control.ErrInvalidRequest, variable)))
		return
	}
	if c.log != nil {
		c.log.Debugf("Reading variable %d for address %d", variable, address)
	}
	c.enqueue(&operation{command: ReadCommand(variable), variable: variable, done: done})
}

// WriteVariable writes a variable on the programming track
func (c *Client) WriteVariable(address dcc.VehicleAddress, variable dcc.VariableIndex, value dcc.VariableValue, done func(control.VariableResult)) {
	if !variable.Valid() {
		done(control.Failed[dcc.VariableValue](
			fmt.Errorf("%w: variable %d out of range", control.ErrInvalidRequest, variable)))
		return
	}
	if c.log != nil {
		c.log.Debugf("Writing variable %d=%d for address %d", variable, value, address)
	}
	c.enqueue(&operation{command: WriteCommand(variable, value), variable: variable, done: done})
}

func (c *Client) enqueue(op *operation) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		op.done(control.Failed[dcc.VariableValue](ErrClosed))
		return
	}
	c.queue = append(c.queue, op)
	var next *operation
	if c.inflight == nil {
		next = c.startNextLocked()
	}
	c.mu.Unlock()

	if next != nil {
		c.transmit(next)
	}
}

// startNextLocked moves the head of the queue in flight and arms its timeout
func (c *Client) startNextLocked() *operation {
	if len(c.queue) == 0 {
		return nil
	}
	op := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	c.inflight = op
	op.timer = time.AfterFunc(c.timeout, func() {
		c.complete(op, control.Failed[dcc.VariableValue](
			fmt.Errorf("%w: no reply to %s within %v", control.ErrTimeout, op.command, c.timeout)))
	})
	return op
}

func (c *Client) transmit(op *operation) {
	if err := c.send(op.command, op); err != nil {
		c.complete(op, control.Failed[dcc.VariableValue](err))
	}
}

// complete finishes op if it is still in flight and starts the next one
func (c *Client) complete(op *operation, result control.VariableResult) {
	c.mu.Lock()
	if c.inflight != op {
		c.mu.Unlock()
		return
	}
	c.inflight = nil
	op.timer.Stop()
	next := c.startNextLocked()
	c.mu.Unlock()

	c.stats.RecordOperation(result.Err)
	op.done(result)

	if next != nil {
		c.transmit(next)
	}
}

func (c *Client) readLoop() {
	defer close(c.readDone)

	buf := make([]byte, MaxMessageSize)
	for {
		n, err := c.conn.Read(buf)
		for _, b := range buf[:n] {
			c.decodeByte(b)
		}
		if err != nil {
			c.shutdown(err)
			return
		}
	}
}

func (c *Client) decodeByte(b byte) {
	msg, err := c.decoder.DecodeByte(b)
	if err != nil {
		c.stats.Update(nil, err)
		if c.log != nil {
			c.log.Warnf("Decode error: %v", err)
		}
		return
	}
	if msg == nil {
		return
	}

	reply := ParseReply(msg.Text())
	c.stats.Update(&reply, nil)
	c.stats.SetJunkBytes(c.decoder.JunkBytes())
	if c.log != nil {
		c.log.Tracef("<- %s", msg)
	}
	if c.onMessage != nil {
		c.onMessage(msg, reply)
	}
	c.dispatch(reply)
}

func (c *Client) dispatch(reply Reply) {
	switch reply.Kind {
	case ReplyVariable:
		c.mu.Lock()
		op := c.inflight
		c.mu.Unlock()
		if op == nil || op.variable != reply.Variable {
			if c.log != nil {
				c.log.Warnf("Unexpected reply for variable %d", reply.Variable)
			}
			return
		}
		if reply.Failed() {
			c.complete(op, control.Failed[dcc.VariableValue](
				fmt.Errorf("%w: no acknowledgement for variable %d", control.ErrRequestFailed, reply.Variable)))
			return
		}
		c.complete(op, control.Succeeded(dcc.VariableValue(reply.Value)))

	case ReplyRejected:
		// <X> names no command, so it only belongs to the operation in
		// flight if nothing else was sent after it.
		c.mu.Lock()
		op := c.inflight
		latest := op != nil && op.sent == c.sent
		c.mu.Unlock()
		if op == nil {
			return
		}
		if !latest {
			if c.log != nil {
				c.log.Debugf("Ignoring rejection while %s is in flight", op.command)
			}
			return
		}
		c.complete(op, control.Failed[dcc.VariableValue](
			fmt.Errorf("%w: %s", control.ErrValueRejected, op.command)))

	case ReplyStatus:
		c.mu.Lock()
		waiters := c.waiters
		c.waiters = nil
		c.mu.Unlock()
		for _, ch := range waiters {
			ch <- reply
		}

	case ReplyDiagnostic:
		if c.log != nil {
			c.log.Debugf("Command station: %s", reply.Note)
		}
	}
}

// shutdown fails everything still pending once the connection is gone
func (c *Client) shutdown(cause error) {
	c.mu.Lock()
	c.closed = true
	pending := c.queue
	c.queue = nil
	if c.inflight != nil {
		c.inflight.timer.Stop()
		pending = append([]*operation{c.inflight}, pending...)
		c.inflight = nil
	}
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	if c.log != nil && !errors.Is(cause, io.EOF) {
		c.log.Infof("Connection closed: %v", cause)
	}

	err := fmt.Errorf("%w: %w", ErrClosed, cause)
	for _, op := range pending {
		c.stats.RecordOperation(err)
		op.done(control.Failed[dcc.VariableValue](err))
	}
	for _, ch := range waiters {
		close(ch)
	}
}
