package output

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/bryanchriswhite/focusshot/internal/portal"
)

// SaveDialog asks the user where to save. Dismissal returns ErrDialogCancelled.
type SaveDialog interface {
	ChoosePath(ctx context.Context, suggested string) (string, error)
}

// PortalDialog is a SaveDialog backed by the xdg FileChooser portal. The bus
// connection is opened on first use.
type PortalDialog struct {
	Title string

	mu     sync.Mutex
	portal *portal.Portal
}

// NewPortalDialog creates a dialog with the given window title.
func NewPortalDialog(title string) *PortalDialog {
	return &PortalDialog{Title: title}
}

func (d *PortalDialog) ChoosePath(ctx context.Context, suggested string) (string, error) {
	d.mu.Lock()
	if d.portal == nil {
		p, err := portal.Connect()
		if err != nil {
			d.mu.Unlock()
			return "", err
		}
		d.portal = p
	}
	p := d.portal
	d.mu.Unlock()

	return p.SaveFile(ctx, d.Title, filepath.Base(suggested), filepath.Dir(suggested))
}

// Close releases the bus connection, if one was opened.
func (d *PortalDialog) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.portal == nil {
		return nil
	}
	err := d.portal.Close()
	d.portal = nil
	return err
}
