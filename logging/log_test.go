package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestApplicationLogPrefix(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Options{
		ApplicationLogPrefix: "[TEST]",
		ApplicationLogOutput: &buf,
	}); err != nil {
		t.Fatal(err)
	}

	defer func() {
		logrus.SetFormatter(&logrus.TextFormatter{})
		logrus.SetOutput(os.Stderr)
	}()

	logrus.Info("hello")
	if !strings.HasPrefix(buf.String(), "[TEST]") {
		t.Errorf("prefix missing from log entry: %q", buf.String())
	}
}

func TestApplicationLogLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Options{
		ApplicationLogOutput: &buf,
		ApplicationLogLevel:  "warn",
	}); err != nil {
		t.Fatal(err)
	}

	defer logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("dropped")
	logrus.Warn("kept")
	if strings.Contains(buf.String(), "dropped") {
		t.Error("info entry logged above level")
	}

	if !strings.Contains(buf.String(), "kept") {
		t.Error("warn entry missing")
	}
}

func TestInvalidLogLevel(t *testing.T) {
	if err := Init(Options{ApplicationLogLevel: "noise"}); err == nil {
		t.Error("expected error for invalid level")
	}
}
