package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// LoggerAdapter routes watermill logs into zerolog
type LoggerAdapter struct {
	log zerolog.Logger
}

var _ watermill.LoggerAdapter = LoggerAdapter{}

// NewLoggerAdapter wraps log
func NewLoggerAdapter(log zerolog.Logger) LoggerAdapter {
	return LoggerAdapter{log: log}
}

func withFields(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}

func (l LoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	withFields(l.log.Error().Err(err), fields).Msg(msg)
}

func (l LoggerAdapter) Info(msg string, fields watermill.LogFields) {
	withFields(l.log.Info(), fields).Msg(msg)
}

func (l LoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	withFields(l.log.Debug(), fields).Msg(msg)
}

func (l LoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	withFields(l.log.Trace(), fields).Msg(msg)
}

func (l LoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := l.log.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return LoggerAdapter{log: ctx.Logger()}
}
