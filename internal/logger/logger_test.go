package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: FormatJSON, Level: slog.LevelInfo})

	log.Info("submission created", "submission_id", 7)

	assert.Contains(t, buf.String(), `"msg":"submission created"`)
	assert.Contains(t, buf.String(), `"submission_id":7`)
	assert.Contains(t, buf.String(), `"level":"INFO"`)
}

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		want        string
	}{
		{"production uses json", "production", `"msg":"hello"`},
		{"development off a terminal uses text", "development", `msg=hello`},
		{"empty environment off a terminal uses text", "", `msg=hello`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			New(Config{Writer: &buf, Environment: tt.environment}).Info("hello")
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestPrettyHandler_Plain(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil, false))

	log.Info("content fix finished", "updated", 2, "note", "two words")

	line := buf.String()
	assert.NotContains(t, line, "\033[", "no escapes without color")
	assert.Contains(t, line, "INF content fix finished")
	assert.Contains(t, line, "updated=2")
	assert.Contains(t, line, `note="two words"`)
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestPrettyHandler_Color(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, true))

	log.Warn("slow request")

	assert.Contains(t, buf.String(), colorYellow+"WRN"+colorReset)
	assert.Contains(t, buf.String(), colorBold+"slow request"+colorReset)
}

func TestPrettyHandler_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}, false))

	log.Debug("d")
	log.Info("i")
	log.Warn("w")
	log.Error("e")

	out := buf.String()
	assert.NotContains(t, out, "DBG")
	assert.NotContains(t, out, "INF")
	assert.Contains(t, out, "WRN w")
	assert.Contains(t, out, "ERR e")
}

func TestPrettyHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil, false)

	assert.Same(t, h, h.WithGroup(""))

	log := slog.New(h.WithAttrs([]slog.Attr{slog.String("service", "api")}).WithGroup("http"))
	log.Info("request", "status", 200, slog.Group("route", "pattern", "/articles"))

	out := buf.String()
	assert.Contains(t, out, "service=api")
	assert.Contains(t, out, "http.status=200")
	assert.Contains(t, out, "http.route.pattern=/articles")
}

func TestPrettyHandler_Source(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{AddSource: true}, false))

	log.Info("where")

	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestFormatValue(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "plain", formatValue(slog.StringValue("plain")))
	assert.Equal(t, `""`, formatValue(slog.StringValue("")))
	assert.Equal(t, `"a=b"`, formatValue(slog.StringValue("a=b")))
	assert.Equal(t, "2024-03-01T12:00:00Z", formatValue(slog.TimeValue(at)))
	assert.Equal(t, "1.5s", formatValue(slog.DurationValue(1500*time.Millisecond)))
	assert.Equal(t, "true", formatValue(slog.BoolValue(true)))
}

func TestLogger_Helpers(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: FormatJSON})

	log.WithError(errors.New("disk full")).
		WithFields(map[string]any{"kind": "article", "id": 3}).
		Error("save failed")

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, `"error":"disk full"`)
	assert.Contains(t, out, `"kind":"article"`)
	assert.Contains(t, out, `"id":3`)
}
