package xlog

import (
	"go.uber.org/zap/zapcore"
)

// AntsXLogger the ants pool only logs the recovered worker panics,
// so everything is printed at the error level.
type AntsXLogger struct {
	logger XLogger
}

func (l *AntsXLogger) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Logf(zapcore.ErrorLevel, format, args...)
}

func NewAntsXLogger(logger XLogger) *AntsXLogger {
	xl, ok := logger.(*xLogger)
	if !ok || xl == nil {
		return &AntsXLogger{logger: logger}
	}
	return &AntsXLogger{logger: xl.named("Ants")}
}
