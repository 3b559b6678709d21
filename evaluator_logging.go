package videocfg

import (
	"context"
	"log/slog"
	"time"
)

// EvaluatorLogEvent records one run of a rule condition.
type EvaluatorLogEvent struct {
	Engine    Engine
	Rule      string
	Condition string
	Result    any
	Duration  time.Duration
	Err       error
}

// EvaluatorLogger receives rule evaluation events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// SlogEvaluatorLogger logs successful evaluations at debug and failures at
// warn.
func SlogEvaluatorLogger(logger *slog.Logger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		attrs := []slog.Attr{
			slog.String("rule", event.Rule),
			slog.String("engine", string(event.Engine)),
			slog.String("condition", event.Condition),
			slog.Duration("took", event.Duration),
		}
		if event.Err != nil {
			logger.LogAttrs(context.Background(), slog.LevelWarn, "rule condition failed",
				append(attrs, slog.Any("error", event.Err))...)
			return
		}
		logger.LogAttrs(context.Background(), slog.LevelDebug, "rule condition evaluated",
			append(attrs, slog.Any("result", event.Result))...)
	})
}
