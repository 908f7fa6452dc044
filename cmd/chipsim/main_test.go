package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	attrs := filepath.Join(dir, "attrs.toml")
	if err := os.WriteFile(attrs, []byte("temperature = 18.25\nhumidity = 35\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cli := &CLI{
		Attrs:    attrs,
		Set:      map[string]float64{"humidity": 70},
		Reads:    2,
		Interval: time.Second,
		LogLevel: "error",
	}
	if err := run(cli, &out, io.Discard); err != nil {
		t.Fatal("run failed:", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatal("Expected two readings", lines)
	}
	if !strings.Contains(lines[0], "temperature=18.25") || !strings.Contains(lines[0], "humidity=69.99") {
		t.Error("Unexpected reading", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1s") {
		t.Error("Second reading should be one second later", lines[1])
	}
}

func TestRunBadAttributes(t *testing.T) {
	dir := t.TempDir()
	attrs := filepath.Join(dir, "attrs.toml")
	if err := os.WriteFile(attrs, []byte("temperature = \"warm\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	err := run(&CLI{Attrs: attrs, Reads: 1, LogLevel: "error"}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "temperature") {
		t.Error("Expected an attribute error", err)
	}
}
