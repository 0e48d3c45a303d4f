package portal

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Screenshot asks the portal for a full-screen capture and returns the path
// of the image file it wrote. With interactive set the desktop shows its own
// picker first.
func (p *Portal) Screenshot(ctx context.Context, interactive bool) (string, error) {
	options := map[string]dbus.Variant{
		"modal":       dbus.MakeVariant(false),
		"interactive": dbus.MakeVariant(interactive),
	}
	results, err := p.request(ctx, screenshotIface+".Screenshot", []interface{}{""}, options)
	if err != nil {
		return "", err
	}

	v, ok := results["uri"]
	if !ok {
		return "", fmt.Errorf("no uri in screenshot response")
	}
	uri, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected uri type %T", v.Value())
	}
	return URIToPath(uri)
}
