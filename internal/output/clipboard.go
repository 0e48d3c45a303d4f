package output

import (
	"context"
	"fmt"
	"runtime"

	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
)

// Clipboard writes a PNG bitmap to the system clipboard. One implementation
// is compiled per platform; NewClipboard picks it.
type Clipboard interface {
	Name() string
	WriteImage(ctx context.Context, png []byte) error
}

// Releaser is a clipboard whose last write only lives as long as this
// process, as with an X11 selection. Released fires once another client
// takes the clipboard over; nil means the write does not need holding.
type Releaser interface {
	Released() <-chan struct{}
}

// Unsupported is the clipboard for platforms without a bitmap writer.
type Unsupported struct {
	Platform string
}

// NewUnsupported returns the fallback clipboard for the running platform.
func NewUnsupported() Unsupported {
	return Unsupported{Platform: runtime.GOOS + "/" + runtime.GOARCH}
}

func (u Unsupported) Name() string { return "unsupported" }

func (u Unsupported) WriteImage(context.Context, []byte) error {
	return fmt.Errorf("image clipboard on %s: %w", u.Platform, apperrors.ErrUnsupportedPlatform)
}
