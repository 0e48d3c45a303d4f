package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bryanchriswhite/focusshot/internal/capture"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestConfigSetGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if got := strings.TrimSpace(run(t, "config", "path", "--config", path)); got != path {
		t.Fatalf("path = %q, want %q", got, path)
	}
	run(t, "config", "set", "capture.backend", "generic", "--config", path)
	if got := strings.TrimSpace(run(t, "config", "get", "capture.backend", "--config", path)); got != "generic" {
		t.Fatalf("capture.backend = %q, want generic", got)
	}
	run(t, "config", "set", "editor.mosaic.divisor", "20", "--config", path)
	if got := strings.TrimSpace(run(t, "config", "get", "editor.mosaic.divisor", "--config", path)); got != "20" {
		t.Fatalf("editor.mosaic.divisor = %q, want 20", got)
	}
}

func TestConfigSetRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"config", "set", "no.such.key", "1", "--config", path})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected an error for an unknown key")
	}
}

func TestPrintDisplaysTable(t *testing.T) {
	var out bytes.Buffer
	err := printDisplaysTable(&out, []capture.DisplayDescriptor{
		{Index: 0, Name: "eDP-1", Width: 1920, Height: 1080, ScaleFactor: 1, IsPrimary: true},
		{Index: 1, Name: "HDMI-1", X: 1920, Width: 2560, Height: 1440, ScaleFactor: 1.5},
	})
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), out.String())
	}
	for i, want := range [][]string{
		{"0", "eDP-1", "1920x1080", "+0+0", "Yes"},
		{"1", "HDMI-1", "2560x1440", "+1920+0", "1.5", "No"},
	} {
		for _, field := range want {
			if !strings.Contains(lines[i+2], field) {
				t.Errorf("row %d = %q, missing %q", i, lines[i+2], field)
			}
		}
	}
}
