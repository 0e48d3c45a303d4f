package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bryanchriswhite/focusshot/internal/capture"
	"github.com/bryanchriswhite/focusshot/internal/config"
	"github.com/bryanchriswhite/focusshot/internal/display"
	"github.com/bryanchriswhite/focusshot/internal/event"
	"github.com/bryanchriswhite/focusshot/internal/interaction"
	"github.com/bryanchriswhite/focusshot/internal/logger"
	"github.com/bryanchriswhite/focusshot/internal/output"
	"github.com/bryanchriswhite/focusshot/internal/permissions"
	"github.com/bryanchriswhite/focusshot/internal/session"
	"github.com/bryanchriswhite/focusshot/internal/window"
	"github.com/bryanchriswhite/focusshot/internal/worker"
)

// app is the wired service graph shared by the commands.
type app struct {
	config   *config.Manager
	router   *capture.Router
	pipeline *output.Pipeline
	gate     *permissions.Gate
	editor   *interaction.Controller
	sessions *session.Manager

	closers []io.Closer
	detach  func()
}

type appOptions struct {
	// overlay opens the X11 editor window for interactive sessions
	overlay bool
}

func newApp(cfgMgr *config.Manager, opts appOptions) (*app, error) {
	cfg := cfgMgr.Get()
	log := logger.WithComponent("app")

	router, err := capture.Resolve(cfg.Capture.Backend, time.Duration(cfg.Capture.TimeoutSeconds)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve capture backend: %w", err)
	}
	a := &app{
		config:  cfgMgr,
		router:  router,
		gate:    permissions.NewGate(cfg.Permissions.Filesystem, cfg.Permissions.Clipboard),
		closers: []io.Closer{router},
	}

	pipeOpts := output.Options{
		Directory: cfg.Output.Directory,
		Clipboard: output.NewClipboard(),
	}
	if cfg.Output.UseSaveDialog {
		dialog := output.NewPortalDialog("Save Screenshot")
		pipeOpts.Dialog = dialog
		a.closers = append(a.closers, dialog)
	}
	a.pipeline, err = output.NewPipeline(pipeOpts)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create output pipeline: %w", err)
	}

	pool := worker.New(1)
	a.closers = append(a.closers, closerFunc(func() error { pool.Close(); return nil }))

	editorOpts := interaction.OptionsFromConfig(cfg.Editor)
	editorOpts.Pool = pool
	a.editor = interaction.NewController(editorOpts)

	bus := event.NewBus()
	a.detach = a.editor.Attach(bus)

	host := window.Open(cfg.Window)
	if c, ok := host.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	sessCfg := session.Config{
		Capturer:   router,
		Output:     a.pipeline,
		Gate:       a.gate,
		Bus:        bus,
		MainWindow: host,
		Composer:   a.editor,
	}
	if opts.overlay {
		if os.Getenv("DISPLAY") == "" {
			log.Warn().Msg("DISPLAY not set, sessions run without an overlay window")
		} else {
			editor := a.editor
			sessCfg.Overlays = func(d capture.DisplayDescriptor) (session.OverlayWindow, error) {
				o, err := display.NewOverlay(d, editor)
				if err != nil {
					return nil, err
				}
				return o, nil
			}
		}
	}
	a.sessions, err = session.NewManager(sessCfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.editor.SetHost(a.sessions)

	log.Debug().
		Str("backend", router.Name()).
		Str("output_dir", a.pipeline.Directory()).
		Bool("save_dialog", a.pipeline.UsesDialog()).
		Msg("Services wired")
	return a, nil
}

// Close tears the graph down in reverse construction order.
func (a *app) Close() error {
	var errs []error
	if a.sessions != nil {
		errs = append(errs, a.sessions.Close())
	}
	if a.detach != nil {
		a.detach()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
