package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// StatusLogger writes plain lifecycle status lines ("Client abc handshake!").
//
// Output happens only while the log_state flag is false; setting log_state
// to true silences it. This mirrors the behaviour existing deployments rely
// on, even though the flag name suggests the opposite.
type StatusLogger struct {
	suppress bool
	out      io.Writer
	mu       sync.Mutex
}

// NewStatusLogger creates a StatusLogger writing to stdout.
// logState is the log_state configuration flag.
func NewStatusLogger(logState bool) *StatusLogger {
	return NewStatusLoggerWithWriter(logState, os.Stdout)
}

// NewStatusLoggerWithWriter creates a StatusLogger writing to w.
func NewStatusLoggerWithWriter(logState bool, w io.Writer) *StatusLogger {
	return &StatusLogger{suppress: logState, out: w}
}

// Log writes msg followed by a newline unless output is suppressed.
//
// Returns:
//   - bool: true when the line was suppressed, false when it was written
func (s *StatusLogger) Log(msg string) bool {
	if s.suppress {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	//nolint:errcheck // Best-effort status output
	fmt.Fprintln(s.out, msg)
	return false
}
