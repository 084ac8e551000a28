package logger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		" warn ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got, s)
	}

	_, ok := ParseLogLevel("verbose")
	require.False(t, ok)
}

// TestFromContext_FallsBackToGlobal checks that a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestWithNameAndKV ensures names and fields travel with the context.
func TestWithNameAndKV(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "controller")
	ctx = WithKV(ctx, "pin", 17)

	InfoKV(ctx, "Armed", "source", "stdin")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "controller", entries[0].LoggerName)
	require.Equal(t, "Armed", entries[0].Message)

	fields := entries[0].ContextMap()
	require.EqualValues(t, 17, fields["pin"])
	require.Equal(t, "stdin", fields["source"])
}

// TestSyncFlushesBufferedEntries checks that Sync writes out entries held by a buffering core.
// It swaps the global logger, so it does not run in parallel.
func TestSyncFlushesBufferedEntries(t *testing.T) {
	var out bytes.Buffer

	sink := &zapcore.BufferedWriteSyncer{WS: zapcore.AddSync(&out), Size: 4096, FlushInterval: time.Hour}
	defer func() {
		_ = sink.Stop()
	}()

	previous := Logger()
	defer SetLogger(previous)

	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), sink, zapcore.DebugLevel)
	SetLogger(zap.New(core).Sugar())

	Info(context.Background(), "Alarm sounding")
	require.Zero(t, out.Len(), "entry is still buffered")

	Sync()
	require.Contains(t, out.String(), "Alarm sounding")
}
