package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func capturedLogger() (*Logger, *bytes.Buffer) {
	lg := New().(*Logger)
	var buf bytes.Buffer
	lg.SetOutput(&buf)
	return lg, &buf
}

func TestLogger_Info(t *testing.T) {
	lg, buf := capturedLogger()
	lg.Info("some message")

	output := buf.String()
	if !strings.Contains(output, "some message") {
		t.Errorf("expected output to contain 'some message', got: %s", output)
	}
	if !strings.Contains(output, "INFO") {
		t.Errorf("expected output to contain 'INFO', got: %s", output)
	}
}

func TestLogger_Warn(t *testing.T) {
	lg, buf := capturedLogger()
	lg.Warn("some warning")

	output := buf.String()
	if !strings.Contains(output, "some warning") {
		t.Errorf("expected output to contain 'some warning', got: %s", output)
	}
	if !strings.Contains(output, "WARN") {
		t.Errorf("expected output to contain 'WARN', got: %s", output)
	}
}

func TestLogger_Error(t *testing.T) {
	lg, buf := capturedLogger()
	lg.Error(os.ErrPermission)

	output := buf.String()
	if !strings.Contains(output, "permission denied") {
		t.Errorf("expected output to contain the error message, got: %s", output)
	}
	if !strings.Contains(output, "ERROR") {
		t.Errorf("expected output to contain 'ERROR', got: %s", output)
	}
}
