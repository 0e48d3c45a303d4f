// Package output encodes finished screenshots and delivers them: to a file,
// to the system clipboard, back to the caller as a data URI, or as a live
// MJPEG preview of the editor.
package output

import (
	"context"
	"image"
	"time"

	"github.com/bryanchriswhite/focusshot/internal/logger"
)

// Output is a frame stream such as the MJPEG editor preview.
type Output interface {
	Start() error
	Stop() error
	// WriteFrame sends one RGBA frame to every consumer.
	WriteFrame(frame *image.RGBA) error
	Name() string
	IsRunning() bool
}

// Config holds common configuration for frame outputs.
type Config struct {
	Width  int
	Height int
	FPS    int
}

// Options configures a Pipeline.
type Options struct {
	Directory string
	CacheSize int
	Clipboard Clipboard
	// Dialog, when set, is consulted for every save without an explicit filename.
	Dialog SaveDialog
}

// Pipeline bundles the encoder cache and the three sinks. Each sink fails
// independently of the others.
type Pipeline struct {
	cache     *Cache
	files     *FileSink
	clipboard Clipboard
	dialog    SaveDialog
}

// NewPipeline builds a pipeline. A nil Clipboard selects the platform default.
func NewPipeline(opts Options) (*Pipeline, error) {
	cache, err := NewCache(opts.CacheSize)
	if err != nil {
		return nil, err
	}
	cb := opts.Clipboard
	if cb == nil {
		cb = NewClipboard()
	}
	logger.WithComponent("output").Debug().
		Str("directory", opts.Directory).
		Str("clipboard", cb.Name()).
		Bool("save_dialog", opts.Dialog != nil).
		Msg("Output pipeline ready")
	return &Pipeline{
		cache:     cache,
		files:     NewFileSink(opts.Directory),
		clipboard: cb,
		dialog:    opts.Dialog,
	}, nil
}

// Encode returns PNG bytes for a session revision, encoding at most once.
func (p *Pipeline) Encode(sessionID string, revision uint64, img image.Image) ([]byte, error) {
	return p.cache.Encode(sessionID, revision, img)
}

// DataURI returns the encoded revision wrapped as a data URI.
func (p *Pipeline) DataURI(sessionID string, revision uint64, img image.Image) (string, error) {
	data, err := p.Encode(sessionID, revision, img)
	if err != nil {
		return "", err
	}
	return DataURI(data), nil
}

// UsesDialog reports whether saves without a filename go through the dialog.
func (p *Pipeline) UsesDialog() bool { return p.dialog != nil }

// ChoosePath resolves the save target for filename. Without a dialog, or
// when a filename is given, this is the file sink's resolution.
func (p *Pipeline) ChoosePath(ctx context.Context, filename string) (string, error) {
	suggested := p.files.Resolve(filename)
	if p.dialog == nil || filename != "" {
		return suggested, nil
	}
	return p.dialog.ChoosePath(ctx, suggested)
}

// Write stores data at an already resolved path.
func (p *Pipeline) Write(path string, data []byte) error {
	return p.files.Write(path, data)
}

// Copy places data on the clipboard.
func (p *Pipeline) Copy(ctx context.Context, data []byte) error {
	return p.clipboard.WriteImage(ctx, data)
}

// HoldClipboard keeps the last copy alive for a process about to exit. It
// returns once another client owns the clipboard, ctx ends, or limit passes,
// and reports whether the copy was taken over. Clipboards that keep data
// after their writer exits return true at once.
func (p *Pipeline) HoldClipboard(ctx context.Context, limit time.Duration) bool {
	r, ok := p.clipboard.(Releaser)
	if !ok {
		return true
	}
	released := r.Released()
	if released == nil {
		return true
	}
	timer := time.NewTimer(limit)
	defer timer.Stop()
	select {
	case <-released:
		return true
	case <-ctx.Done():
	case <-timer.C:
	}
	return false
}

// Forget drops cached artifacts of a finished session.
func (p *Pipeline) Forget(sessionID string) {
	p.cache.Forget(sessionID)
}

// Directory returns the default save directory.
func (p *Pipeline) Directory() string {
	return p.files.Dir()
}
