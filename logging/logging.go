// Package logging defines the structured logging sink the engine's
// Controller is given at construction time. There is no package-level
// logger: every component that wants to log takes a Sink as an argument,
// so the core carries no process-wide mutable logging state.
package logging

import "go.uber.org/zap"

// Sink is the structured logging interface the Controller and the Trial
// Driver log through. The
// key/value-pair signature mirrors zap's SugaredLogger, which backs the
// default implementation.
type Sink interface {
	Debugw(msg string, kv ...interface{})
	Infow(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
	Errorw(msg string, kv ...interface{})
	Sync() error
}

type zapSink struct {
	l *zap.SugaredLogger
}

// NewZap wraps a *zap.Logger as a Sink.
func NewZap(l *zap.Logger) Sink {
	return &zapSink{l: l.Sugar()}
}

// NewProduction builds a Sink backed by zap's production configuration
// (JSON output, info level and above).
func NewProduction() (Sink, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewZap(l), nil
}

// NewDevelopment builds a Sink backed by zap's development configuration
// (console output, debug level and above), used when Config.Verbose is set.
func NewDevelopment() (Sink, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return NewZap(l), nil
}

// NewNop builds a Sink that discards everything, for tests and for callers
// of analyze_only who don't want trial-driver chatter.
func NewNop() Sink { return &zapSink{l: zap.NewNop().Sugar()} }

func (s *zapSink) Debugw(msg string, kv ...interface{}) { s.l.Debugw(msg, kv...) }
func (s *zapSink) Infow(msg string, kv ...interface{})  { s.l.Infow(msg, kv...) }
func (s *zapSink) Warnw(msg string, kv ...interface{})  { s.l.Warnw(msg, kv...) }
func (s *zapSink) Errorw(msg string, kv ...interface{}) { s.l.Errorw(msg, kv...) }
func (s *zapSink) Sync() error                          { return s.l.Sync() }
