package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, nil))

	log.Info("replica ready", "auctions", 3)

	line := buf.String()
	if !strings.Contains(line, "[INF] replica ready auctions=3") {
		t.Errorf("unexpected line %q", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Errorf("line not terminated: %q", line)
	}
}

func TestHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, slog.LevelWarn))

	log.Info("dropped")
	log.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record written below warn level: %q", out)
	}
	if !strings.Contains(out, "[WRN] kept") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, nil)).With("component", "vote").WithGroup("tally")

	log.Debug("counted", "replies", 2)

	out := buf.String()
	if !strings.Contains(out, "component=vote") {
		t.Errorf("missing With attribute: %q", out)
	}
	if !strings.Contains(out, "tally.replies=2") {
		t.Errorf("missing grouped attribute: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("WARN")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if l != slog.LevelWarn {
		t.Errorf("got %v, want %v", l, slog.LevelWarn)
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}
