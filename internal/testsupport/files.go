package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// WriteStateFile writes payload to dir/name, creating dir if needed.
func WriteStateFile(t *testing.T, dir, name, payload string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

// WritePositionRecord writes a well-formed position record.
func WritePositionRecord(t *testing.T, dir, name string, x, y, ts float64) string {
	t.Helper()
	data, err := json.Marshal(map[string]float64{"x": x, "y": y, "ts": ts})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return WriteStateFile(t, dir, name, string(data))
}

// WriteButtonRecord writes a well-formed button event record.
func WriteButtonRecord(t *testing.T, dir, name, button string, pressed bool, timestamp float64) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"button":    button,
		"pressed":   pressed,
		"timestamp": timestamp,
	})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return WriteStateFile(t, dir, name, string(data))
}

// WriteConsoleRecord writes a console record from arbitrary channel values.
func WriteConsoleRecord(t *testing.T, dir, name string, fields map[string]any) string {
	t.Helper()
	data, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return WriteStateFile(t, dir, name, string(data))
}
