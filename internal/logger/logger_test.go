package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		expectError bool
	}{
		{
			name:        "Debug level",
			level:       "debug",
			expectError: false,
		},
		{
			name:        "Warn level",
			level:       "warn",
			expectError: false,
		},
		{
			name:        "Error level",
			level:       "error",
			expectError: false,
		},
		{
			name:        "Invalid level",
			level:       "loud",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Init(tt.level)
			if tt.expectError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
			}
		})
	}
}

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	})
	log.SetLevel(logrus.DebugLevel)
	return &buf
}

func TestLogging(t *testing.T) {
	buf := captureOutput(t)

	tests := []struct {
		name          string
		logFunc       func(string, ...map[string]interface{})
		message       string
		fields        map[string]interface{}
		expectedLevel string
	}{
		{
			name:          "Debug message",
			logFunc:       Debug,
			message:       "Weight computed",
			expectedLevel: "debug",
		},
		{
			name:          "Info message",
			logFunc:       Info,
			message:       "Page split",
			expectedLevel: "info",
		},
		{
			name:    "Warn with fields",
			logFunc: Warn,
			message: "Page cannot be split",
			fields: map[string]interface{}{
				"page_id": "p1",
			},
			expectedLevel: "warning",
		},
		{
			name:          "Nil fields map",
			logFunc:       Info,
			message:       "Nil fields",
			fields:        nil,
			expectedLevel: "info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()

			if tt.fields != nil {
				tt.logFunc(tt.message, tt.fields)
			} else {
				tt.logFunc(tt.message)
			}

			output := buf.String()
			if !strings.Contains(output, "level="+tt.expectedLevel) {
				t.Errorf("Expected log level %s, got %s", tt.expectedLevel, output)
			}
			if !strings.Contains(output, tt.message) {
				t.Errorf("Expected message %s, got %s", tt.message, output)
			}
			for k, v := range tt.fields {
				if !strings.Contains(output, k+"="+v.(string)) {
					t.Errorf("Expected field %s=%v in output: %s", k, v, output)
				}
			}
		})
	}
}

func TestError(t *testing.T) {
	buf := captureOutput(t)

	testError := errors.New("provider unavailable")

	Error("Transform failed", testError)
	output := buf.String()
	if !strings.Contains(output, "level=error") {
		t.Error("Expected error level")
	}
	if !strings.Contains(output, "Transform failed") {
		t.Error("Expected error message")
	}
	if !strings.Contains(output, testError.Error()) {
		t.Error("Expected error details")
	}

	buf.Reset()
	Error("Transform failed", testError, map[string]interface{}{"action": "continue"})
	output = buf.String()
	if !strings.Contains(output, "action=continue") {
		t.Error("Expected error with fields")
	}
}
