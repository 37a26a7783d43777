package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/boehmseb/benchbuild/internal/project"
)

// EncodeInstrumentation serializes a project's instrumentation for a TEXT
// or JSONB column.
func EncodeInstrumentation(in project.Instrumentation) (string, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encode instrumentation: %w", err)
	}
	return string(data), nil
}

// DecodeInstrumentation is the inverse of EncodeInstrumentation.
func DecodeInstrumentation(s string) (project.Instrumentation, error) {
	var in project.Instrumentation
	if s == "" {
		return in, nil
	}
	if err := json.Unmarshal([]byte(s), &in); err != nil {
		return in, fmt.Errorf("decode instrumentation: %w", err)
	}
	return in, nil
}

// EncodeCommand serializes an argv as a JSON array.
func EncodeCommand(argv []string) (string, error) {
	if argv == nil {
		argv = []string{}
	}
	data, err := json.Marshal(argv)
	if err != nil {
		return "", fmt.Errorf("encode command: %w", err)
	}
	return string(data), nil
}

// DecodeCommand is the inverse of EncodeCommand.
func DecodeCommand(s string) ([]string, error) {
	var argv []string
	if err := json.Unmarshal([]byte(s), &argv); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	return argv, nil
}

// FormatTime formats t in TimeFormat (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime parses a TimeFormat timestamp.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
