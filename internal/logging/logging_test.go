package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":  zerolog.DebugLevel,
		"DEBUG":  zerolog.DebugLevel,
		"warn":   zerolog.WarnLevel,
		"error":  zerolog.ErrorLevel,
		"info":   zerolog.InfoLevel,
		"":       zerolog.InfoLevel,
		"chatty": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitJSONWithFile(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "studio.log")
	closer := Init(Options{Level: "debug", Format: "json", File: path, Out: &buf})

	log.Debug().Str("session_id", "abc").Msg("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &doc); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if doc["message"] != "hello" || doc["session_id"] != "abc" {
		t.Errorf("log event = %v", doc)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `"session_id":"abc"`) {
		t.Errorf("log file = %q, want the event", data)
	}
}

func TestStartupLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	Init(Options{Level: "info", Format: "json", Out: &buf})

	NewStartupLogger("studio-web").
		Version("dev").
		Endpoint("http", ":8080").
		Feature("nativePicker", true).
		Config("model", "gemini-2.5-flash-image").
		Log()

	var doc map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &doc); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	process, _ := doc["process"].(map[string]any)
	if process["name"] != "studio-web" {
		t.Errorf("process.name = %v, want studio-web", process["name"])
	}
	features, _ := doc["features"].(map[string]any)
	if features["nativePicker"] != true {
		t.Errorf("features.nativePicker = %v, want true", features["nativePicker"])
	}
	cfg, _ := doc["config"].(map[string]any)
	if cfg["model"] != "gemini-2.5-flash-image" {
		t.Errorf("config.model = %v", cfg["model"])
	}
}
