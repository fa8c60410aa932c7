package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"DEBUG", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warning", logrus.WarnLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"bogus", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	if !ValidLevel("Warn") {
		t.Error("expected Warn to be valid")
	}
	if ValidLevel("loud") {
		t.Error("expected loud to be invalid")
	}
}

func TestNewWritesComponentField(t *testing.T) {
	var buf bytes.Buffer
	_, root := New(Config{Level: "debug", Output: &buf, Prefix: "test"})

	Component(root, "tty").Debug("opened")

	out := buf.String()
	if !strings.Contains(out, "component=tty") {
		t.Errorf("expected component field, got %q", out)
	}
	if !strings.Contains(out, "app=test") {
		t.Errorf("expected app field, got %q", out)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	_, root := New(Config{Level: "warn", Output: &buf})

	root.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %q", buf.String())
	}
	root.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("expected warn to be written")
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	_, root := New(Config{Level: "info", Format: "json", Output: &buf})
	root.Info("hello")
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("nothing")
	Component(nil, "x").Info("nothing")
}
