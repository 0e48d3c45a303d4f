package portal

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
)

type filterPattern struct {
	Kind    uint32
	Pattern string
}

type filter struct {
	Name     string
	Patterns []filterPattern
}

var pngFilter = filter{Name: "PNG image", Patterns: []filterPattern{{Kind: 0, Pattern: "*.png"}}}

// SaveFile shows the desktop "save as" dialog and returns the chosen path.
// Dismissing the dialog returns ErrDialogCancelled.
func (p *Portal) SaveFile(ctx context.Context, title, currentName, currentFolder string) (string, error) {
	options := map[string]dbus.Variant{
		"modal":          dbus.MakeVariant(true),
		"current_name":   dbus.MakeVariant(currentName),
		"filters":        dbus.MakeVariant([]filter{pngFilter}),
		"current_filter": dbus.MakeVariant(pngFilter),
	}
	if currentFolder != "" {
		// ay, NUL-terminated
		options["current_folder"] = dbus.MakeVariant(append([]byte(currentFolder), 0))
	}

	results, err := p.request(ctx, fileChooserIface+".SaveFile", []interface{}{"", title}, options)
	if apperrors.Is(err, apperrors.ErrUserCancelled) {
		return "", fmt.Errorf("save dialog: %w", apperrors.ErrDialogCancelled)
	}
	if err != nil {
		return "", err
	}

	v, ok := results["uris"]
	if !ok {
		return "", fmt.Errorf("no uris in save dialog response")
	}
	uris, ok := v.Value().([]string)
	if !ok || len(uris) == 0 {
		return "", fmt.Errorf("unexpected uris value %v", v.Value())
	}
	return URIToPath(uris[0])
}
