package observability

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

var (
	_ log.Logger     = (*TemporalLogger)(nil)
	_ log.WithLogger = (*TemporalLogger)(nil)
)

// TemporalLogger routes Temporal SDK logs through zerolog. The SDK logs every poll and
// heartbeat at debug, so those entries are demoted to trace.
type TemporalLogger struct {
	logger zerolog.Logger
}

// NewTemporalLogger wraps logger and tags entries with component=temporal-sdk.
func NewTemporalLogger(logger zerolog.Logger) *TemporalLogger {
	return &TemporalLogger{logger: logger.With().Str("component", "temporal-sdk").Logger()}
}

func (l *TemporalLogger) Debug(msg string, keyvals ...any) {
	l.write(l.logger.Trace(), msg, keyvals)
}

func (l *TemporalLogger) Info(msg string, keyvals ...any) {
	l.write(l.logger.Info(), msg, keyvals)
}

func (l *TemporalLogger) Warn(msg string, keyvals ...any) {
	l.write(l.logger.Warn(), msg, keyvals)
}

func (l *TemporalLogger) Error(msg string, keyvals ...any) {
	l.write(l.logger.Error(), msg, keyvals)
}

// With returns a logger carrying keyvals on every entry. Workflow and activity
// loggers are built this way by the SDK.
func (l *TemporalLogger) With(keyvals ...any) log.Logger {
	return &TemporalLogger{logger: l.logger.With().Fields(fields(keyvals)).Logger()}
}

func (l *TemporalLogger) write(event *zerolog.Event, msg string, keyvals []any) {
	if event == nil {
		return
	}
	event.Fields(fields(keyvals)).Msg(msg)
}

// fields pairs up alternating keys and values. A trailing key without a value is kept
// with a nil value so it is not silently dropped.
func fields(keyvals []any) map[string]any {
	m := make(map[string]any, (len(keyvals)+1)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		if i+1 < len(keyvals) {
			m[key] = keyvals[i+1]
		} else {
			m[key] = nil
		}
	}
	return m
}
