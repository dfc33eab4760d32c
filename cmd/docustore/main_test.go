package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/inferaflow/docustore/core"
)

func newLoggerContext(t *testing.T, level string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("log-level", level, "")
	return cli.NewContext(&cli.App{}, set, nil)
}

func TestSetupLogger(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
		require.NoError(t, setupLogger(newLoggerContext(t, level)), "level %q", level)
	}

	err := setupLogger(newLoggerContext(t, "chatty"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestIngestCommandRequiresFile(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	ctx := cli.NewContext(&cli.App{Writer: os.Stderr}, set, nil)

	err := ingestCommand(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file argument")
}

func TestWaitForTerminalReturnsSettledRecord(t *testing.T) {
	statuses := []core.ProcessingStatus{core.StatusPending, core.StatusParsing, core.StatusCompleted}
	calls := 0

	record, err := waitForTerminal(context.Background(), func() (*core.FileRecord, error) {
		status := statuses[calls]
		calls++
		return &core.FileRecord{Status: status}, nil
	}, time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, record.Status)
	assert.Equal(t, 3, calls)
}

func TestWaitForTerminalTimesOutOnStuckRecord(t *testing.T) {
	_, err := waitForTerminal(context.Background(), func() (*core.FileRecord, error) {
		return &core.FileRecord{Status: core.StatusPending}, nil
	}, time.Millisecond, 20*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not settle")
	assert.Contains(t, err.Error(), string(core.StatusPending))
}

func TestWaitForTerminalPropagatesLookupError(t *testing.T) {
	lookupErr := errors.New("db gone")
	_, err := waitForTerminal(context.Background(), func() (*core.FileRecord, error) {
		return nil, lookupErr
	}, time.Millisecond, time.Second)
	assert.ErrorIs(t, err, lookupErr)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "first", firstLine("first\nsecond"))
	assert.Equal(t, "only", firstLine("only"))
	assert.Equal(t, "", firstLine("\ntrailing"))
}
