// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/scalpel-webdriver/internal/config"
)

// -- Test Helper Functions --

func bufferSink() (*bytes.Buffer, zapcore.WriteSyncer) {
	var buf bytes.Buffer
	return &buf, zapcore.AddSync(&buf)
}

// -- Test Cases --

func TestNew(t *testing.T) {
	t.Run("console format colors the level", func(t *testing.T) {
		buf, sink := bufferSink()
		logger := New(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "TestService",
			Colors:      config.ColorConfig{Info: "green"},
		}, sink)

		logger.Named("element_store").Info("Registered element.", zap.String("tag", "div"))
		require.NoError(t, logger.Sync())

		out := buf.String()
		assert.Contains(t, out, levelColors["green"]+"INFO"+colorReset)
		assert.Contains(t, out, "TestService.element_store.")
		assert.Contains(t, out, "Registered element.")
		assert.Contains(t, out, `"tag": "div"`)
		assert.Equal(t, 1, strings.Count(strings.TrimSpace(out), "\n")+1, "console output is one line per entry")
	})

	t.Run("uncolored levels stay plain", func(t *testing.T) {
		buf, sink := bufferSink()
		logger := New(config.LoggerConfig{Level: "debug", Format: "console"}, sink)
		logger.Warn("plain")
		assert.Contains(t, buf.String(), "WARN")
		assert.NotContains(t, buf.String(), colorReset)
	})

	t.Run("json format", func(t *testing.T) {
		buf, sink := bufferSink()
		logger := New(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "JSONTest"}, sink)
		logger.Warn("This is a JSON message.", zap.String("key", "value"))

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry), "log output should be valid JSON")
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "JSONTest", entry["logger"])
		assert.Equal(t, "This is a JSON message.", entry["msg"])
		assert.Equal(t, "value", entry["key"])
	})

	t.Run("level filtering and invalid levels", func(t *testing.T) {
		buf, sink := bufferSink()
		logger := New(config.LoggerConfig{Level: "loud", Format: "json"}, sink)
		logger.Debug("hidden")
		logger.Info("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown", "an unknown level falls back to info")
	})

	t.Run("rotating file sink", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "webdriver.log")
		_, sink := bufferSink()
		logger := New(config.LoggerConfig{Level: "debug", Format: "console", LogFile: path, MaxSize: 1}, sink)
		logger.Error("This should go to the file.")
		require.NoError(t, logger.Sync())

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), `"msg":"This should go to the file."`, "the file sink always writes JSON")
	})
}

func TestInitialize(t *testing.T) {
	t.Cleanup(ResetForTest)

	t.Run("initializes only once", func(t *testing.T) {
		ResetForTest()
		buf, sink := bufferSink()

		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "First"}, sink)
		first := GetLogger()
		Initialize(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "Second"}, sink)
		second := GetLogger()

		assert.Same(t, first, second)
		second.Info("test")
		Sync()
		assert.Contains(t, buf.String(), `"logger":"First"`)
		assert.Same(t, first, zap.L(), "the zap globals follow the initialized logger")
	})

	t.Run("fallback before initialization", func(t *testing.T) {
		ResetForTest()
		logger := GetLogger()
		require.NotNil(t, logger)
		assert.Nil(t, globalLogger.Load(), "the fallback is not stored")
		Sync()
	})
}

func TestIgnorableSyncError(t *testing.T) {
	assert.True(t, ignorableSyncError(&os.PathError{Op: "sync", Path: "/dev/stderr", Err: os.ErrInvalid}))
	assert.False(t, ignorableSyncError(os.ErrPermission))
}
