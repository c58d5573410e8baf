package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	t.Setenv("NO_COLOR", "")

	noColor = true
	if result := colorize(colorGreen, "hello"); strings.Contains(result, "\033") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}

	noColor = false
	if result := colorize(colorGreen, "hello"); !strings.Contains(result, colorGreen) {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestColorizeNoColorEnv(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = false

	t.Setenv("NO_COLOR", "1")
	if result := colorize(colorGreen, "hello"); strings.Contains(result, "\033") {
		t.Errorf("NO_COLOR should suppress ANSI codes, got %q", result)
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	path := pidFilePath(t.TempDir())

	if err := writePIDFile(path); err != nil {
		t.Fatalf("writing PID file: %v", err)
	}
	defer removePIDFile(path)

	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("reading PID file: %v", err)
	}
	if pid <= 0 {
		t.Errorf("pid = %d, want positive", pid)
	}
}

func TestReadPIDFileMissing(t *testing.T) {
	if _, err := readPIDFile(filepath.Join(t.TempDir(), "absent.pid")); err == nil {
		t.Error("missing PID file should error")
	}
}

func TestAskRejectsUnknownPhase(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"ask", "--phase", "bogus", "does it work?"})
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "unknown phase") {
		t.Fatalf("err = %v, want unknown phase error", err)
	}
}
