package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	rawslog "log/slog"

	"github.com/stretchr/testify/require"
)

type slogLine struct {
	Level    string `json:"level"`
	Msg      string `json:"msg"`
	Resource string `json:"resource"`
	Status   int    `json:"status"`
}

func TestSlogLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(rawslog.NewJSONHandler(&buf, &rawslog.HandlerOptions{Level: rawslog.LevelDebug}))

	for _, tc := range []struct {
		emit  func(msg string, args ...any)
		level string
	}{
		{log.Error, "ERROR"},
		{log.Warn, "WARN"},
		{log.Info, "INFO"},
		{log.Debug, "DEBUG"},
	} {
		t.Run(tc.level, func(t *testing.T) {
			buf.Reset()
			tc.emit("request finished", "resource", "vehicles", "status", 200)

			var line slogLine
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			require.Equal(t, slogLine{Level: tc.level, Msg: "request finished", Resource: "vehicles", Status: 200}, line)
		})
	}
}

func TestSlogWith(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "info").With("resource", "companies")
	log.Info("listed", "status", 204)

	var line slogLine
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "companies", line.Resource)
	require.Equal(t, 204, line.Status)
}

func TestNewJSONRespectsLevel(t *testing.T) {
	buffer := bytes.NewBuffer([]byte{})
	logger := NewJSON(buffer, "warn")

	logger.Info("hidden")
	require.Empty(t, buffer.String())

	logger.Warn("shown")
	require.Contains(t, buffer.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, rawslog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, rawslog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, rawslog.LevelError, ParseLevel("error"))
	require.Equal(t, rawslog.LevelInfo, ParseLevel("nonsense"))
}

func TestZerolog(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := NewBuild().FromBuffer(buff).Level("debug").Make()
	require.NoError(t, err)
	require.NotNil(t, templogger)
	require.Equal(t, 0, buff.Len())

	templogger.Warn("dropped element", "index", 2, "path", "results", "error", errors.New("bad uuid"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buff.Bytes(), &line))
	require.Equal(t, "warn", line["level"])
	require.Equal(t, "dropped element", line["message"])
	require.Equal(t, float64(2), line["index"])
	require.Equal(t, "results", line["path"])
	require.Equal(t, "bad uuid", line["error"])
}

func TestZerologLevelFilter(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger := NewZerolog(buff, "error")

	templogger.Info("hidden")
	require.Equal(t, 0, buff.Len())
	templogger.Error("shown")
	require.Contains(t, buff.String(), "shown")
}

func TestOrNop(t *testing.T) {
	require.NotNil(t, OrNop(nil))
	OrNop(nil).Error("ignored")
}
