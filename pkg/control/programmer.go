// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package control

import (
	"errors"
	"fmt"

	"github.com/pion/logging"
	"github.com/railkit/cvscope/pkg/dcc"
)

// DefaultRetryLimit is the number of reissues before an operation gives up
const DefaultRetryLimit = 3

// Config configures a Programmer
type Config struct {
	// Control performs single variable accesses. Required.
	Control VariableControl

	// RetryLimit bounds how often a primitive is reissued after the callback
	// returned Retry. Zero means DefaultRetryLimit, negative disables retries.
	RetryLimit int

	// PageSelectPolicy decides how to continue after each CV31, CV32 or
	// CV1021 write. Defaults to RetryOnError.
	PageSelectPolicy func(err error) Continuation

	// StateObserver is notified about the progress of extended accesses
	StateObserver func(variable dcc.ExtendedVariableIndex, state State)

	// LoggerFactory for logging. If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Programmer accesses decoder variables through a VariableControl, selecting
// extended and SUSI pages and retrying failed primitives.
//
// A Programmer holds no per-access state and may be shared between
// goroutines. It never blocks; every result is delivered to a callback.
type Programmer struct {
	control    VariableControl
	retryLimit int
	policy     func(error) Continuation
	observer   func(dcc.ExtendedVariableIndex, State)
	log        logging.LeveledLogger
}

// NewProgrammer creates a Programmer from cfg
func NewProgrammer(cfg Config) *Programmer {
	p := &Programmer{
		control:    cfg.Control,
		retryLimit: cfg.RetryLimit,
		policy:     cfg.PageSelectPolicy,
		observer:   cfg.StateObserver,
	}
	switch {
	case p.retryLimit == 0:
		p.retryLimit = DefaultRetryLimit
	case p.retryLimit < 0:
		p.retryLimit = 0
	}
	if p.policy == nil {
		p.policy = RetryOnError
	}
	if cfg.LoggerFactory != nil {
		p.log = cfg.LoggerFactory.NewLogger("control")
	}
	return p
}

// RetryLimit returns the effective retry limit
func (p *Programmer) RetryLimit() int {
	return p.retryLimit
}

type primitive func(done func(VariableResult))

// ReadVariable reads a base variable. A nil callback accepts the first result.
func (p *Programmer) ReadVariable(address dcc.VehicleAddress, variable dcc.VariableIndex, cb VariableCallback) {
	op := func(done func(VariableResult)) {
		p.control.ReadVariable(address, variable, done)
	}
	p.attempt(op, cb, Proceed, "read", address, variable, 0)
}

// WriteVariable writes a base variable. A nil callback accepts the first result.
func (p *Programmer) WriteVariable(address dcc.VehicleAddress, variable dcc.VariableIndex, value dcc.VariableValue, cb VariableCallback) {
	op := func(done func(VariableResult)) {
		p.control.WriteVariable(address, variable, value, done)
	}
	p.attempt(op, cb, Proceed, "write", address, variable, 0)
}

func (p *Programmer) attempt(op primitive, cb VariableCallback, fallback Continuation,
	action string, address dcc.VehicleAddress, variable dcc.VariableIndex, retries int) {
	op(func(r VariableResult) {
		if callIfDefined(fallback, cb, r) != Retry {
			return
		}

		if retries >= p.retryLimit {
			if p.log != nil {
				p.log.Warnf("Giving up to %s variable %d for address %d after %d retries", action, variable, address, retries)
			}
			if cb != nil {
				cb(Failed[dcc.VariableValue](exhausted(r.Err)))
			}
			return
		}

		retries++
		if p.log != nil {
			p.log.Warnf("Retrying to %s variable %d for address %d (%d/%d)", action, variable, address, retries, p.retryLimit)
		}
		p.attempt(op, cb, fallback, action, address, variable, retries)
	})
}

func exhausted(last error) error {
	if last == nil {
		return ErrRetryExhausted
	}
	return fmt.Errorf("%w: %w", ErrRetryExhausted, last)
}

func pageSelectFailed(cause error) error {
	if cause == nil {
		return ErrPageSelect
	}
	return fmt.Errorf("%w: %w", ErrPageSelect, cause)
}

// pageStep turns a page select write into a callback that continues with
// next or finishes with done.
func (p *Programmer) pageStep(next func(), done func(error)) VariableCallback {
	return func(r VariableResult) Continuation {
		if errors.Is(r.Err, ErrRetryExhausted) {
			done(pageSelectFailed(r.Err))
			return Abort
		}

		switch c := p.policy(r.Err); c {
		case Proceed:
			next()
			return Proceed
		case Retry:
			return Retry
		default:
			done(pageSelectFailed(r.Err))
			return c
		}
	}
}

// SelectExtendedPage writes CV31 and CV32. done receives nil once the page is
// selected or an error matching ErrPageSelect.
func (p *Programmer) SelectExtendedPage(address dcc.VehicleAddress, page dcc.ExtendedPageIndex, done func(error)) {
	writeCV32 := func() {
		p.WriteVariable(address, dcc.VariableIndex(dcc.CVExtendedPageIndexLow), dcc.CV32(page),
			p.pageStep(func() { done(nil) }, done))
	}
	p.WriteVariable(address, dcc.VariableIndex(dcc.CVExtendedPageIndexHigh), dcc.CV31(page),
		p.pageStep(writeCV32, done))
}

// SelectSusiPage writes the SUSI bank index CV1021
func (p *Programmer) SelectSusiPage(address dcc.VehicleAddress, page dcc.SusiPageIndex, done func(error)) {
	p.WriteVariable(address, dcc.VariableIndex(dcc.CVSusiBankIndex), dcc.VariableValue(page),
		p.pageStep(func() { done(nil) }, done))
}

func (p *Programmer) observe(variable dcc.ExtendedVariableIndex, state State) {
	if p.observer != nil {
		p.observer(variable, state)
	}
}

// settling reports StateSettled once cb accepts a result or the result is terminal
func (p *Programmer) settling(variable dcc.ExtendedVariableIndex, cb VariableCallback) VariableCallback {
	return func(r VariableResult) Continuation {
		c := callIfDefined(Proceed, cb, r)
		if c != Retry || IsTerminal(r.Err) {
			p.observe(variable, StateSettled)
		}
		return c
	}
}

// paged selects the page of variable, if any, and then runs access
func (p *Programmer) paged(address dcc.VehicleAddress, variable dcc.ExtendedVariableIndex,
	cb VariableCallback, access func(VariableCallback)) {
	p.observe(variable, StateIdle)
	cb = p.settling(variable, cb)

	selected := func(err error) {
		if err != nil {
			if p.log != nil {
				p.log.Warnf("Selecting page for %v failed: %v", variable, err)
			}
			cb(Failed[dcc.VariableValue](err))
			return
		}
		p.observe(variable, StatePagedAccess)
		access(cb)
	}

	switch {
	case variable.HasExtendedPage():
		p.observe(variable, StateSelectingPage)
		p.SelectExtendedPage(address, variable.ExtendedPage(), selected)
	case variable.HasSusiPage():
		p.observe(variable, StateSelectingPage)
		p.SelectSusiPage(address, variable.SusiPage(), selected)
	default:
		access(cb)
	}
}

// ReadExtendedVariable selects the page of variable and reads its base
// variable. A failed page select is reported once with ErrPageSelect and the
// read is not attempted.
func (p *Programmer) ReadExtendedVariable(address dcc.VehicleAddress, variable dcc.ExtendedVariableIndex, cb VariableCallback) {
	p.paged(address, variable, cb, func(cb VariableCallback) {
		p.ReadVariable(address, variable.VariableIndex(), cb)
	})
}

// WriteExtendedVariable selects the page of variable and writes its base variable
func (p *Programmer) WriteExtendedVariable(address dcc.VehicleAddress, variable dcc.ExtendedVariableIndex,
	value dcc.VariableValue, cb VariableCallback) {
	p.paged(address, variable, cb, func(cb VariableCallback) {
		p.WriteVariable(address, variable.VariableIndex(), value, cb)
	})
}

// BatchCallback receives the result for one variable of a batch
type BatchCallback func(variable dcc.ExtendedVariableIndex, r VariableResult) Continuation

// IsTerminal reports whether err is a final notification after which the
// callback's answer can no longer cause a retry
func IsTerminal(err error) bool {
	return errors.Is(err, ErrRetryExhausted) || errors.Is(err, ErrPageSelect)
}

// ReadExtendedVariables reads variables one after another. Proceed moves on to
// the next variable, Retry reissues the current read and Abort stops the
// batch. done, if not nil, is called when the batch has finished or stopped.
func (p *Programmer) ReadExtendedVariables(address dcc.VehicleAddress, variables []dcc.ExtendedVariableIndex,
	cb BatchCallback, done func()) {
	p.readNext(address, variables, 0, cb, done)
}

func (p *Programmer) readNext(address dcc.VehicleAddress, variables []dcc.ExtendedVariableIndex, i int,
	cb BatchCallback, done func()) {
	if i >= len(variables) {
		if done != nil {
			done()
		}
		return
	}

	variable := variables[i]
	p.ReadExtendedVariable(address, variable, func(r VariableResult) Continuation {
		c := Proceed
		if cb != nil {
			c = cb(variable, r)
		}

		switch {
		case c == Proceed:
			p.readNext(address, variables, i+1, cb, done)
		case c == Abort, IsTerminal(r.Err):
			if p.log != nil {
				p.log.Debugf("Batch stopped at %v (%d/%d)", variable, i+1, len(variables))
			}
			if done != nil {
				done()
			}
		}
		return c
	})
}

// ReadExtendedVariableMap reads all variables, retrying failed reads, and
// delivers every final result at once. An empty list completes immediately.
func (p *Programmer) ReadExtendedVariableMap(address dcc.VehicleAddress, variables []dcc.ExtendedVariableIndex,
	done func(map[dcc.ExtendedVariableIndex]VariableResult)) {
	results := make(map[dcc.ExtendedVariableIndex]VariableResult, len(variables))
	if len(variables) == 0 {
		done(results)
		return
	}

	collect := func(variable dcc.ExtendedVariableIndex, r VariableResult) Continuation {
		if r.Failed() && !IsTerminal(r.Err) {
			return Retry
		}
		results[variable] = r
		return Proceed
	}
	p.ReadExtendedVariables(address, variables, collect, func() { done(results) })
}
