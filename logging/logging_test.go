package logging

import "testing"

func TestNopSinkAcceptsAllCallsWithoutPanicking(t *testing.T) {
	s := NewNop()
	s.Debugw("debug", "k", "v")
	s.Infow("info", "k", "v")
	s.Warnw("warn", "k", "v")
	s.Errorw("error", "k", "v")
	if err := s.Sync(); err != nil {
		t.Errorf("Sync() on a nop sink = %v, want nil", err)
	}
}

func TestNewZapWrapsUnderlyingLogger(t *testing.T) {
	s, err := NewDevelopment()
	if err != nil {
		t.Fatalf("NewDevelopment: %v", err)
	}
	var _ Sink = s
	s.Infow("smoke test")
}
