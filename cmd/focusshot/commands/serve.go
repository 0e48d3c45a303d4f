package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/focusshot/internal/api"
	"github.com/bryanchriswhite/focusshot/internal/config"
	"github.com/bryanchriswhite/focusshot/internal/logger"
	"github.com/bryanchriswhite/focusshot/internal/output"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FocusShot server",
	Long: `Start the FocusShot HTTP server.

The server exposes capture, session and editor endpoints plus a WebSocket
event stream. When an X display is available, interactive sessions open a
full-screen overlay window for selection and annotation.`,
	Example: `  # Start server on default port (8080)
  focusshot serve

  # Start server on custom port
  focusshot serve --port 9090

  # Start with debug logging and no preview stream
  focusshot serve --log-level debug --preview=false`,
	RunE: runServe,
}

var (
	previewEnabled bool
	previewWidth   int
	previewHeight  int
	previewFPS     int
	noOverlay      bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&previewEnabled, "preview", true, "serve an MJPEG preview of the editor at /api/editor/preview")
	serveCmd.Flags().IntVar(&previewWidth, "preview-width", 1280, "preview frame width")
	serveCmd.Flags().IntVar(&previewHeight, "preview-height", 720, "preview frame height")
	serveCmd.Flags().IntVar(&previewFPS, "preview-fps", 10, "preview frame rate")
	serveCmd.Flags().BoolVar(&noOverlay, "no-overlay", false, "run sessions without the X11 overlay window")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	a, err := newApp(configMgr, appOptions{overlay: !noOverlay})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("Shutdown incomplete")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var preview *output.PreviewStream
	if previewEnabled {
		preview = output.NewPreviewStream(output.Config{Width: previewWidth, Height: previewHeight, FPS: previewFPS})
		if err := preview.Start(); err != nil {
			return fmt.Errorf("failed to start preview stream: %w", err)
		}
		defer preview.Stop()
		go preview.Run(ctx, a.editor.Frame)
	}

	// a reload replaces the in-memory config, so flag and env overrides are
	// layered on again
	configMgr.Watch(func(*config.Config) {
		if err := configMgr.ApplyOverrides(v); err != nil {
			log.Warn().Err(err).Msg("Failed to re-apply overrides")
		}
		logger.SetLevel(configMgr.Get().LogLevel)
	})

	server := api.NewServer(a.sessions, a.editor, configMgr, preview)

	log.Info().
		Str("config", configMgr.GetConfigPath()).
		Str("backend", a.router.Name()).
		Str("api", fmt.Sprintf("http://localhost:%d/api", cfg.ServerPort)).
		Msg("FocusShot is running, press Ctrl+C to stop")

	if err := server.Start(ctx, cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	log.Info().Msg("Shutting down gracefully")
	return nil
}
