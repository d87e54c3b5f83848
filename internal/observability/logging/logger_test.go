package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWritesJSONWithServiceAndChannel(t *testing.T) {
	var buf bytes.Buffer
	logger := Channel(New(&buf, "api", "debug", "json"), ChannelRAG)
	logger.Debug("query received", "conversation_id", "c1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if record["service"] != "api" || record["logger"] != "rag" || record["conversation_id"] != "c1" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNewTextFormatAndLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "batch", "warn", "text")
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
