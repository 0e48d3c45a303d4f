package portal

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestURIToPath(t *testing.T) {
	tests := []struct {
		uri     string
		want    string
		wantErr bool
	}{
		{"file:///home/me/Pictures/Screenshot.png", "/home/me/Pictures/Screenshot.png", false},
		{"file:///tmp/with%20space.png", "/tmp/with space.png", false},
		{"https://example.com/a.png", "", true},
		{"file://", "", true},
	}
	for _, tt := range tests {
		got, err := URIToPath(tt.uri)
		if (err != nil) != tt.wantErr {
			t.Errorf("URIToPath(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("URIToPath(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestParseResponse(t *testing.T) {
	results := map[string]dbus.Variant{"uri": dbus.MakeVariant("file:///tmp/x.png")}

	code, got, err := parseResponse(&dbus.Signal{Body: []interface{}{uint32(0), results}})
	if err != nil || code != ResponseSuccess {
		t.Fatalf("parseResponse = %d, %v", code, err)
	}
	if got["uri"].Value() != "file:///tmp/x.png" {
		t.Errorf("results lost: %v", got)
	}

	bad := []*dbus.Signal{
		{Body: []interface{}{uint32(0)}},
		{Body: []interface{}{"0", results}},
		{Body: []interface{}{uint32(1), "nope"}},
	}
	for i, sig := range bad {
		if _, _, err := parseResponse(sig); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}
