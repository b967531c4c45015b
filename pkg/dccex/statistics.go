// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dccex

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/railkit/cvscope/pkg/control"
)

// Statistics tracks message and programming statistics.
// It is safe for concurrent use.
type Statistics struct {
	mu sync.Mutex

	StartTime      time.Time
	LastUpdateTime time.Time

	// Messages
	TotalMessages   uint64
	UnknownMessages uint64
	Diagnostics     uint64
	FramingErrors   uint64
	JunkBytes       uint64

	// Programming track operations
	Operations uint64
	Succeeded  uint64
	Failed     uint64
	Rejected   uint64
	Timeouts   uint64

	// Rates (calculated)
	MessageRate float64 // messages/sec
	ErrorRate   float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update accounts for a received message or a framing error
func (s *Statistics) Update(reply *Reply, decodeErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastUpdateTime = time.Now()
	if decodeErr != nil {
		s.FramingErrors++
		return
	}

	s.TotalMessages++
	switch reply.Kind {
	case ReplyUnknown:
		s.UnknownMessages++
	case ReplyDiagnostic:
		s.Diagnostics++
	}
}

// SetJunkBytes records the decoder's count of bytes outside of frames
func (s *Statistics) SetJunkBytes(n uint64) {
	s.mu.Lock()
	s.JunkBytes = n
	s.mu.Unlock()
}

// RecordOperation accounts for a finished read or write
func (s *Statistics) RecordOperation(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Operations++
	switch {
	case err == nil:
		s.Succeeded++
	case errors.Is(err, control.ErrTimeout):
		s.Timeouts++
	case errors.Is(err, control.ErrValueRejected):
		s.Rejected++
	default:
		s.Failed++
	}
}

func (s *Statistics) calculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.MessageRate = float64(s.TotalMessages) / elapsed
		errorCount := s.FramingErrors + s.Failed + s.Rejected + s.Timeouts
		s.ErrorRate = float64(errorCount) / elapsed
	}
}

// CalculateRates calculates message and error rates
func (s *Statistics) CalculateRates() {
	s.mu.Lock()
	s.calculateRates()
	s.mu.Unlock()
}

func percent(n, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100.0 / float64(total)
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()

	var b strings.Builder
	fmt.Fprintf(&b, "=== Statistics (%.0f seconds) ===\n", time.Since(s.StartTime).Seconds())
	fmt.Fprintf(&b, "Total Messages:  %8d\n", s.TotalMessages)
	if s.UnknownMessages > 0 {
		fmt.Fprintf(&b, "Unknown:         %8d (%.1f%%)\n", s.UnknownMessages, percent(s.UnknownMessages, s.TotalMessages))
	}
	if s.Diagnostics > 0 {
		fmt.Fprintf(&b, "Diagnostics:     %8d (%.1f%%)\n", s.Diagnostics, percent(s.Diagnostics, s.TotalMessages))
	}
	if s.FramingErrors > 0 {
		fmt.Fprintf(&b, "Framing Errors:  %8d\n", s.FramingErrors)
	}
	if s.JunkBytes > 0 {
		fmt.Fprintf(&b, "Junk Bytes:      %8d\n", s.JunkBytes)
	}

	if s.Operations > 0 {
		fmt.Fprintf(&b, "CV Operations:   %8d\n", s.Operations)
		fmt.Fprintf(&b, "  Succeeded:        %5d (%.1f%%)\n", s.Succeeded, percent(s.Succeeded, s.Operations))
		if s.Failed > 0 {
			fmt.Fprintf(&b, "  Failed:           %5d\n", s.Failed)
		}
		if s.Rejected > 0 {
			fmt.Fprintf(&b, "  Rejected:         %5d\n", s.Rejected)
		}
		if s.Timeouts > 0 {
			fmt.Fprintf(&b, "  Timeouts:         %5d\n", s.Timeouts)
		}
	}

	fmt.Fprintf(&b, "Message Rate:    %8.1f msgs/sec\n", s.MessageRate)
	fmt.Fprintf(&b, "Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	b.WriteString("================================\n")
	return b.String()
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.TotalMessages = 0
	s.UnknownMessages = 0
	s.Diagnostics = 0
	s.FramingErrors = 0
	s.JunkBytes = 0
	s.Operations = 0
	s.Succeeded = 0
	s.Failed = 0
	s.Rejected = 0
	s.Timeouts = 0
	s.MessageRate = 0
	s.ErrorRate = 0
}
