package commands

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/focusshot/internal/capture"
	"github.com/bryanchriswhite/focusshot/internal/logger"
	"github.com/bryanchriswhite/focusshot/internal/output"
	"github.com/bryanchriswhite/focusshot/internal/permissions"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Take a screenshot without the editor",
	Long: `Capture one display, or all displays stitched together, and write the
PNG to a file, stdout or the clipboard.

On X11 the clipboard only holds the image while focusshot runs, so
--clipboard waits until another application takes the clipboard over, the
--hold time passes, or the command is interrupted.`,
	Example: `  # Capture the primary display into the output directory
  focusshot capture

  # Capture display 1 to a specific file
  focusshot capture --display 1 --output ~/shot.png

  # Capture everything and pipe it elsewhere
  focusshot capture --all --output - | convert - shot.jpg

  # Copy the primary display to the clipboard
  focusshot capture --clipboard`,
	Args: cobra.NoArgs,
	RunE: runCapture,
}

var (
	captureDisplay   int
	captureAll       bool
	captureOutput    string
	captureClipboard bool
	captureDataURI   bool
	captureHold      time.Duration
)

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().IntVarP(&captureDisplay, "display", "d", capture.PrimaryDisplay, "display index (-1 for the primary display)")
	captureCmd.Flags().BoolVarP(&captureAll, "all", "a", false, "capture all displays into one image")
	captureCmd.Flags().StringVarP(&captureOutput, "output", "o", "", "output file, '-' for stdout (default is a timestamped file in the output directory)")
	captureCmd.Flags().BoolVar(&captureClipboard, "clipboard", false, "copy to the clipboard instead of writing a file")
	captureCmd.Flags().DurationVar(&captureHold, "hold", 30*time.Second, "with --clipboard, how long to keep serving the image where the clipboard dies with its owner")
	captureCmd.Flags().BoolVar(&captureDataURI, "data-uri", false, "print a data:image/png;base64 URI instead of writing a file")
}

func runCapture(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("capture-cmd")

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(configMgr, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	display := captureDisplay
	if !cmd.Flags().Changed("display") {
		display = configMgr.Get().Capture.Display
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()
	var img *image.RGBA
	if captureAll {
		img, err = a.sessions.CaptureAllDisplays(ctx)
	} else {
		img, _, err = a.sessions.CaptureDisplay(ctx, display)
	}
	if err != nil {
		return err
	}
	log.Debug().
		Str("size", img.Bounds().Size().String()).
		Dur("took", time.Since(started)).
		Msg("Captured")

	data, err := output.Encode(img)
	if err != nil {
		return err
	}

	switch {
	case captureDataURI:
		_, err = fmt.Fprintln(cmd.OutOrStdout(), output.DataURI(data))
		return err
	case captureClipboard:
		if err := a.gate.Check(permissions.Clipboard); err != nil {
			return err
		}
		if err := a.pipeline.Copy(ctx, data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Copied %s to the clipboard\n", humanize.Bytes(uint64(len(data))))
		holdCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		if !a.pipeline.HoldClipboard(holdCtx, captureHold) {
			log.Info().Dur("hold", captureHold).Msg("Stopped holding the clipboard; the image is gone once focusshot exits")
		}
		return nil
	case captureOutput == "-":
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	if err := a.gate.Check(permissions.Filesystem); err != nil {
		return err
	}
	path, err := a.pipeline.ChoosePath(ctx, captureOutput)
	if err != nil {
		return err
	}
	if err := a.pipeline.Write(path, data); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
