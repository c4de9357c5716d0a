package logging

import (
	"bytes"
	"testing"
)

func TestStatusLogger_WritesWhenLogStateOff(t *testing.T) {
	var buf bytes.Buffer
	status := NewStatusLoggerWithWriter(false, &buf)

	if suppressed := status.Log("Client abc handshake!"); suppressed {
		t.Error("Log() suppressed = true with log_state off")
	}

	if got := buf.String(); got != "Client abc handshake!\n" {
		t.Errorf("output = %q, want %q", got, "Client abc handshake!\n")
	}
}

func TestStatusLogger_SuppressedWhenLogStateOn(t *testing.T) {
	var buf bytes.Buffer
	status := NewStatusLoggerWithWriter(true, &buf)

	if suppressed := status.Log("Client abc handshake!"); !suppressed {
		t.Error("Log() suppressed = false with log_state on")
	}

	if buf.Len() != 0 {
		t.Errorf("output = %q, want nothing", buf.String())
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "***"},
		{"abc", "***"},
		{"abcd", "***"},
		{"supersecret", "supe..."},
	}

	for _, tt := range tests {
		if got := Redact(tt.input); got != tt.want {
			t.Errorf("Redact(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
