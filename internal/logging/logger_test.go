package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestDefaultLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LevelWarn, "test")

	l.Errorf("an error: %d", 1)
	l.Warnf("a warning")
	l.Infof("dropped info")
	l.Debugf("dropped debug")

	out := buf.String()
	if !strings.Contains(out, "ERROR [test] an error: 1") {
		t.Errorf("missing error line in %q", out)
	}
	if !strings.Contains(out, "WARN [test] a warning") {
		t.Errorf("missing warn line in %q", out)
	}
	if strings.Contains(out, "dropped") {
		t.Errorf("lines above the level leaked into %q", out)
	}
}

func TestLevelString(t *testing.T) {
	for lvl, want := range map[Level]string{
		LevelError: "ERROR",
		LevelWarn:  "WARN",
		LevelInfo:  "INFO",
		LevelDebug: "DEBUG",
		Level(99):  "UNKNOWN",
	} {
		if got := lvl.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", lvl, got, want)
		}
	}
}

func TestDiscardIsSilent(t *testing.T) {
	// Must not panic with any argument shapes.
	Discard.Errorf("x %d", 1)
	Discard.Warnf("x")
	Discard.Infof("%s", "y")
	Discard.Debugf("")
}
