package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("warn", &buf)
	if err != nil {
		t.Fatal(err)
	}
	log.Info("hidden")
	log.WithField("op", "upload").Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "op=upload") {
		t.Errorf("missing warn line: %q", out)
	}
}

func TestNewBadLevel(t *testing.T) {
	if _, err := New("loud", nil); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
