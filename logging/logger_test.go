package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestNewLoggerSingleton(t *testing.T) {
	a := NewLogger("test-component")
	b := NewLogger("test-component")
	if a != b {
		t.Error("NewLogger should return the same entry for the same component")
	}
}

func TestTextFormatter(t *testing.T) {
	f := &TextFormatter{}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "something odd",
		Data:    logrus.Fields{"component": "build", "session": "s1"},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}

	line := string(out)
	if !strings.Contains(line, "[WARN]") {
		t.Errorf("expected [WARN] in %q", line)
	}
	if !strings.Contains(line, "[build]") {
		t.Errorf("expected component tag in %q", line)
	}
	if !strings.Contains(line, "session=s1") {
		t.Errorf("expected extra field in %q", line)
	}
}

func TestTextFormatterDisableTimestamp(t *testing.T) {
	f := &TextFormatter{Config: FormatConfig{DisableTimestamp: true, DisableComponent: true}}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Now(),
		Level:   logrus.InfoLevel,
		Message: "plain",
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("[INFO]")) {
		t.Errorf("expected line to start with level, got %q", out)
	}
}
