//go:build windows || ((linux || darwin) && cgo)

package output

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.design/x/clipboard"

	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
)

type nativeClipboard struct {
	once    sync.Once
	initErr error
	writeMu sync.Mutex
	changed <-chan struct{}
}

// NewClipboard returns the native bitmap clipboard.
func NewClipboard() Clipboard {
	return &nativeClipboard{}
}

func (c *nativeClipboard) Name() string { return "native" }

// WriteImage serializes writes so parallel copies cannot interleave.
func (c *nativeClipboard) WriteImage(ctx context.Context, png []byte) error {
	c.once.Do(func() { c.initErr = clipboard.Init() })
	if c.initErr != nil {
		return fmt.Errorf("init clipboard: %w: %v", apperrors.ErrClipboardSetFailed, c.initErr)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	changed := clipboard.Write(clipboard.FmtImage, png)
	if changed == nil {
		return fmt.Errorf("write image: %w", apperrors.ErrClipboardSetFailed)
	}
	c.changed = changed
	return nil
}

// Released fires when the last written image is replaced. Only X11 loses
// the selection when the owner exits, so other platforms return nil.
func (c *nativeClipboard) Released() <-chan struct{} {
	if runtime.GOOS != "linux" {
		return nil
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.changed
}
