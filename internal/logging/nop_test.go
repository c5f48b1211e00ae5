package logging

import "testing"

func TestNopLogger_DoesNotPanic(t *testing.T) {
	l := NewNop()

	l.Debug("debug", "k", "v")
	l.Info("info", "k", "v")
	l.Warn("warn", "k", "v")
	l.Error("error", "k", "v")
}
