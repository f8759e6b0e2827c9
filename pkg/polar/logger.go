package polar

import (
	"sort"

	"go.uber.org/zap"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NopLogger discards every message.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]interface{}) {}
func (NopLogger) Info(string, map[string]interface{})  {}
func (NopLogger) Warn(string, map[string]interface{})  {}
func (NopLogger) Error(string, map[string]interface{}) {}

// ZapLogger adapts a *zap.Logger to Logger.
type ZapLogger struct {
	lg *zap.Logger
}

// NewZapLogger wraps lg. A nil logger is replaced with zap.NewNop.
func NewZapLogger(lg *zap.Logger) *ZapLogger {
	if lg == nil {
		lg = zap.NewNop()
	}

	return &ZapLogger{lg: lg}
}

// Zap returns the wrapped logger.
func (l *ZapLogger) Zap() *zap.Logger {
	return l.lg
}

func (l *ZapLogger) Debug(msg string, fields map[string]interface{}) {
	l.lg.Debug(msg, zapFields(fields)...)
}

func (l *ZapLogger) Info(msg string, fields map[string]interface{}) {
	l.lg.Info(msg, zapFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields map[string]interface{}) {
	l.lg.Warn(msg, zapFields(fields)...)
}

func (l *ZapLogger) Error(msg string, fields map[string]interface{}) {
	l.lg.Error(msg, zapFields(fields)...)
}

// zapFields converts fields in key order so output is stable.
func zapFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))

	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}

		out = append(out, zap.Any(k, fields[k]))
	}

	return out
}

func loggerOrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}

	return l
}
