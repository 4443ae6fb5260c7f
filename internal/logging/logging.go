// Package logging configures logrus and bridges it to watermill.
package logging

import (
	"context"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr at level, as text or JSON.
func New(level, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// WatermillAdapter sends watermill's logs through logrus.
type WatermillAdapter struct {
	entry logrus.FieldLogger
}

// NewWatermill wraps log as a watermill.LoggerAdapter.
func NewWatermill(log logrus.FieldLogger) watermill.LoggerAdapter {
	return WatermillAdapter{entry: log}
}

// Error logs msg at error level with err attached.
func (w WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	w.entry.WithFields(logrus.Fields(fields)).WithError(err).Error(msg)
}

// Info logs msg at info level.
func (w WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	w.entry.WithFields(logrus.Fields(fields)).Info(msg)
}

// Debug logs msg at debug level.
func (w WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	w.entry.WithFields(logrus.Fields(fields)).Debug(msg)
}

// Trace is mapped to debug; watermill traces every message otherwise.
func (w WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	w.entry.WithFields(logrus.Fields(fields)).Debug(msg)
}

// With returns an adapter that adds fields to every entry.
func (w WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return WatermillAdapter{entry: w.entry.WithFields(logrus.Fields(fields))}
}

type ctxKey int

const correlationIDKey ctxKey = iota

// ContextWithCorrelationID attaches id to ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the id set by ContextWithCorrelationID, or
// an empty string.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// FromContext decorates log with the correlation id carried by ctx, if any.
func FromContext(ctx context.Context, log logrus.FieldLogger) logrus.FieldLogger {
	if id := CorrelationIDFromContext(ctx); id != "" {
		return log.WithField("correlation_id", id)
	}
	return log
}
