package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLoggerOptions(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(
		WithOutput(&buf),
		WithLevel(logrus.DebugLevel),
		WithFormatter(&logrus.JSONFormatter{}),
	)

	logger.Debug("configured")
	out := buf.String()
	if !strings.Contains(out, `"configured"`) {
		t.Errorf("output = %q, want JSON debug message", out)
	}
}

func TestGetLoggerVerbose(t *testing.T) {
	cmd := NewStandardCommand("anvil", "test command")
	if err := cmd.ParseFlags([]string{"--verbose"}); err != nil {
		t.Fatal(err)
	}

	logger := GetLogger(cmd)
	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", logger.GetLevel())
	}
}

func TestGetLoggerJSONFormatter(t *testing.T) {
	cmd := NewStandardCommand("anvil", "test command")
	if err := cmd.ParseFlags([]string{"--json"}); err != nil {
		t.Fatal(err)
	}

	logger := GetLogger(cmd)
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T, want *logrus.JSONFormatter", logger.Formatter)
	}
}
