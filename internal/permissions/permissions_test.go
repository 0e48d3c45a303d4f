package permissions

import (
	"errors"
	"testing"

	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
)

func TestParseStatus(t *testing.T) {
	cases := map[string]struct {
		value    string
		expected Status
	}{
		"granted":     {"granted", StatusGranted},
		"upper":       {" ALLOW ", StatusGranted},
		"denied":      {"denied", StatusDenied},
		"prompt":      {"ask", StatusPromptRequired},
		"unsupported": {"unsupported", StatusUnavailable},
		"unknown":     {"", StatusUnknown},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := ParseStatus(tc.value); got != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestGateCheck(t *testing.T) {
	cases := map[string]struct {
		value string
		allow bool
	}{
		"granted":     {"granted", true},
		"prompt":      {"prompt", true},
		"denied":      {"denied", false},
		"unavailable": {"unavailable", false},
		"unknown":     {"maybe", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			g := NewGate(tc.value, "granted")
			err := g.Check(Filesystem)
			if tc.allow && err != nil {
				t.Fatalf("expected allow, got %v", err)
			}
			if !tc.allow && !errors.Is(err, apperrors.ErrPermissionDenied) {
				t.Fatalf("expected ErrPermissionDenied, got %v", err)
			}
			if err := g.Check(Clipboard); err != nil {
				t.Fatalf("clipboard should be granted: %v", err)
			}
		})
	}
}

func TestAllowAll(t *testing.T) {
	g := AllowAll()
	for _, c := range []Capability{Filesystem, Clipboard} {
		if err := g.Check(c); err != nil {
			t.Errorf("%s: %v", c, err)
		}
	}
	if g.Status("camera") != StatusUnknown {
		t.Error("unlisted capability should be unknown")
	}
}
