// Package capture takes raster snapshots of displays.
//
// A Backend is one platform strategy (X11, the desktop portal, or the generic
// cross-platform library). The Router picks a preferred backend once at
// startup, bounds every call with a timeout, and falls back to the generic
// backend when the preferred one fails.
package capture

import (
	"context"
	"fmt"
	"image"
)

// DisplayDescriptor describes one display in physical pixels. X and Y place
// it on the virtual desktop.
type DisplayDescriptor struct {
	Index       int     `json:"index"`
	Name        string  `json:"name,omitempty"`
	X           int     `json:"x"`
	Y           int     `json:"y"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	ScaleFactor float64 `json:"scale_factor"`
	IsPrimary   bool    `json:"is_primary"`
}

// Bounds returns the display rectangle on the virtual desktop.
func (d DisplayDescriptor) Bounds() image.Rectangle {
	return image.Rect(d.X, d.Y, d.X+d.Width, d.Y+d.Height)
}

func (d DisplayDescriptor) String() string {
	primary := ""
	if d.IsPrimary {
		primary = " primary"
	}
	return fmt.Sprintf("#%d %s %dx%d+%d+%d%s", d.Index, d.Name, d.Width, d.Height, d.X, d.Y, primary)
}

// Backend captures displays on one platform.
type Backend interface {
	// Name returns a human-readable name for this backend
	Name() string

	// Displays enumerates the active displays, indexed from zero
	Displays(ctx context.Context) ([]DisplayDescriptor, error)

	// Capture returns the pixels of d. The result may be at logical size on
	// scaled panels; the Router corrects that.
	Capture(ctx context.Context, d DisplayDescriptor) (*image.RGBA, error)

	// Close releases any connection the backend holds
	Close() error
}

// Primary returns the primary display, or the first one when none is marked.
func Primary(displays []DisplayDescriptor) (DisplayDescriptor, bool) {
	if len(displays) == 0 {
		return DisplayDescriptor{}, false
	}
	for _, d := range displays {
		if d.IsPrimary {
			return d, true
		}
	}
	return displays[0], true
}

// VirtualBounds is the bounding box of every display.
func VirtualBounds(displays []DisplayDescriptor) image.Rectangle {
	var r image.Rectangle
	for i, d := range displays {
		if i == 0 {
			r = d.Bounds()
			continue
		}
		r = r.Union(d.Bounds())
	}
	return r
}
