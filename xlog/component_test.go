package xlog

import (
	"errors"
	"strings"
	"syscall"
	"testing"
	"time"

	antsv2 "github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"
)

func TestFxXLogger(t *testing.T) {
	var nilLogger *FxXLogger
	nilLogger.LogEvent(&fxevent.Started{})

	parent, w := newTestMemLogger(t)
	logger := NewFxXLogger(parent)

	events := []fxevent.Event{
		&fxevent.OnStartExecuting{FunctionName: "start", CallerName: "main"},
		&fxevent.OnStartExecuted{FunctionName: "start", CallerName: "main", Runtime: time.Millisecond},
		&fxevent.OnStopExecuting{FunctionName: "stop", CallerName: "main"},
		&fxevent.OnStopExecuted{FunctionName: "stop", CallerName: "main", Err: errors.New("stop")},
		&fxevent.Supplied{TypeName: "config"},
		&fxevent.Provided{OutputTypeNames: []string{"logger", "pool"}, ConstructorName: "newPool"},
		&fxevent.Replaced{OutputTypeNames: []string{"logger"}},
		&fxevent.Decorated{OutputTypeNames: []string{"logger"}, DecoratorName: "decorate"},
		&fxevent.Invoking{FunctionName: "run"},
		&fxevent.Invoked{FunctionName: "run"},
		&fxevent.Invoked{FunctionName: "run", Err: errors.New("invoke")},
		&fxevent.Stopping{Signal: syscall.SIGTERM},
		&fxevent.Stopped{},
		&fxevent.RollingBack{StartErr: errors.New("rollback")},
		&fxevent.RolledBack{},
		&fxevent.Started{},
		&fxevent.LoggerInitialized{ConstructorName: "NewFxXLogger"},
	}
	for _, e := range events {
		logger.LogEvent(e)
	}

	lines := w.lines(t)
	// Two provided types, the succeeded Invoked, Stopped and RolledBack are silent.
	require.Len(t, lines, 15)
	for _, line := range lines {
		require.Equal(t, "Fx", line["component"])
		require.NotContains(t, line, "callAt")
	}
	require.Equal(t, "hook OnStart executing", lines[0]["msg"])
	require.Equal(t, "stop", lines[3]["error"])
	require.Equal(t, "ERROR", lines[3]["lvl"])

	// The component logger follows the parent level.
	parent.IncreaseLogLevel(zapcore.InfoLevel)
	logger.LogEvent(&fxevent.Started{})
	require.Len(t, w.lines(t), 15)
	logger.LogEvent(&fxevent.Started{Err: errors.New("start")})
	require.Len(t, w.lines(t), 16)
}

func TestAntsXLogger_ParentLogLevelChanged(t *testing.T) {
	var logger *AntsXLogger
	logger.Printf("test %d", 123)

	parent, w := newTestMemLogger(t)
	logger = NewAntsXLogger(parent)
	logger.Printf("worker %d exits", 1)
	parent.IncreaseLogLevel(zapcore.ErrorLevel)
	logger.Printf("worker %d exits", 2)
	parent.IncreaseLogLevel(zapcore.FatalLevel)
	logger.Printf("worker %d exits", 3)

	lines := w.lines(t)
	require.Len(t, lines, 2)
	require.Equal(t, "Ants", lines[0]["component"])
	require.Equal(t, "ERROR", lines[0]["lvl"])
	require.Equal(t, "worker 2 exits", lines[1]["msg"])
}

func TestAntsXLogger_AntsPool(t *testing.T) {
	parent, w := newTestMemLogger(t)
	logger := NewAntsXLogger(parent)

	p, err := antsv2.NewPool(2, antsv2.WithLogger(logger))
	require.NoError(t, err)
	defer p.Release()

	require.NoError(t, p.Submit(func() {
		panic("xlogger panic in ants pool")
	}))
	require.Eventually(t, func() bool {
		return strings.Contains(w.String(), "xlogger panic in ants pool")
	}, time.Second, 10*time.Millisecond)
	require.Contains(t, w.String(), `"component":"Ants"`)
}
