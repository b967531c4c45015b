// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dcc

import (
	"sync/atomic"

	"github.com/pion/logging"
)

type loggerHolder struct {
	log logging.LeveledLogger
}

var logger atomic.Pointer[loggerHolder]

func init() {
	SetLoggerFactory(logging.NewDefaultLoggerFactory())
}

// SetLoggerFactory replaces the logger used to report rejected encoder input.
// A nil factory disables logging.
func SetLoggerFactory(factory logging.LoggerFactory) {
	if factory == nil {
		logger.Store(&loggerHolder{})
		return
	}
	logger.Store(&loggerHolder{log: factory.NewLogger("dcc")})
}

func warnf(format string, args ...interface{}) {
	if h := logger.Load(); h != nil && h.log != nil {
		h.log.Warnf(format, args...)
	}
}
