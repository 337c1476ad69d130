package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cfgs := []Config{
		{Level: "info", Format: "text"},
		{Level: "info", Format: "json"},
		{Level: "debug", Format: "json"},
		{Level: "invalid", Format: "text"},
	}
	for _, cfg := range cfgs {
		if New(cfg) == nil {
			t.Errorf("Expected logger to not be nil for %+v", cfg)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "warn", Format: "text"}, &buf)

	log.Info("hidden message")
	log.Warn("visible message")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("Expected info record to be filtered, got %q", out)
	}
	if !strings.Contains(out, "visible message") {
		t.Errorf("Expected warn record, got %q", out)
	}
}

func TestWithJobAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "info", Format: "json"}, &buf)

	log.WithComponent("worker").WithJob(42, "/music/album").Info("job started")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("Expected JSON record, got %q: %v", buf.String(), err)
	}
	if rec["component"] != "worker" {
		t.Errorf("Expected component worker, got %v", rec["component"])
	}
	if rec["job_id"] != float64(42) {
		t.Errorf("Expected job_id 42, got %v", rec["job_id"])
	}
	if rec["path"] != "/music/album" {
		t.Errorf("Expected path /music/album, got %v", rec["path"])
	}
}

func TestWithPair(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "info", Format: "text"}, &buf)

	log.WithPair("a.cue", "a.flac").Info("pair")
	if !strings.Contains(buf.String(), "cue=a.cue") || !strings.Contains(buf.String(), "image=a.flac") {
		t.Errorf("Expected pair attributes, got %q", buf.String())
	}
}

func TestDefaultAndDiscard(t *testing.T) {
	if Default() == nil {
		t.Error("Expected default logger to not be nil")
	}
	Discard().Error("dropped")
}
