package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(level LogLevel) (*ServiceLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewLogger(&LoggerConfig{Level: level, Format: "json", Output: buf}), buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestServiceLoggerRecordsKeyValueArgs(t *testing.T) {
	sl, buf := newBufferedLogger(LogLevelInfo)
	var logger Logger = sl

	logger.Info("tool.dispatch.settled", "tool", "generate_plan", "success", true)

	entry := decodeLine(t, buf)
	assert.Equal(t, "tool.dispatch.settled", entry["msg"])
	assert.Equal(t, "generate_plan", entry["tool"])
	assert.Equal(t, true, entry["success"])
}

func TestServiceLoggerKeepsDanglingArg(t *testing.T) {
	sl, buf := newBufferedLogger(LogLevelInfo)

	sl.Info("sweep completed", "evicted")

	entry := decodeLine(t, buf)
	assert.Equal(t, "sweep completed", entry["msg"])
	assert.Equal(t, "evicted", entry["!BADKEY"])
}

func TestServiceLoggerAttachesContext(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelInfo)

	logger.WithComponent("jobs").WithConversation("chat-1").Info("poll started")

	entry := decodeLine(t, buf)
	assert.Equal(t, "poll started", entry["msg"])
	assert.Equal(t, "jobs", entry["component"])
	assert.Equal(t, "chat-1", entry["conversation"])
}

func TestServiceLoggerLevelFilter(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelWarn)

	logger.Info("should be dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestLogToolCallFailure(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelInfo)

	logger.LogToolCall("generate_plan", 1200*time.Millisecond, false, errors.New("timeout"))

	entry := decodeLine(t, buf)
	assert.Equal(t, "Tool execution failed", entry["msg"])
	assert.Equal(t, "generate_plan", entry["tool_name"])
	assert.Equal(t, "timeout", entry["error"])
}

func TestLogPollAttemptIsDebugLevel(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelInfo)
	logger.LogPollAttempt("T1", 1, 10, "pending")
	assert.Zero(t, buf.Len(), "poll attempts log at debug only")

	logger, buf = newBufferedLogger(LogLevelDebug)
	logger.LogPollAttempt("T1", 1, 10, "pending")
	entry := decodeLine(t, buf)
	assert.Equal(t, "T1", entry["job_id"])
}

func TestSlogAdapterPassesThrough(t *testing.T) {
	buf := &bytes.Buffer{}
	var logger Logger = NewSlogAdapter(slog.New(slog.NewJSONHandler(buf, nil)))

	logger.Info("jobs.submitted", "job_id", "T1")

	entry := decodeLine(t, buf)
	assert.Equal(t, "jobs.submitted", entry["msg"])
	assert.Equal(t, "T1", entry["job_id"])
}

func TestWithContextDoesNotMutateParent(t *testing.T) {
	parent, buf := newBufferedLogger(LogLevelInfo)
	child := parent.WithContext("request_id", "r-1")

	parent.Info("parent entry")
	entry := decodeLine(t, buf)
	_, hasRequestID := entry["request_id"]
	assert.False(t, hasRequestID)

	buf.Reset()
	child.Info("child entry")
	entry = decodeLine(t, buf)
	assert.Equal(t, "r-1", entry["request_id"])
}
